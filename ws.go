/*
Copyright © 2026 LEI-122713
*/

package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"github.com/LEI-122713/kahoot/trivia"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// clientMessage is the closed set of messages a player can send: a join
// request first, then answers.
type clientMessage struct {
	Type     string `json:"type"` // "join", "answer"
	Team     string `json:"team,omitempty"`
	Username string `json:"username,omitempty"`
	Round    int    `json:"round"`
	Option   int    `json:"option"`
}

type joinedMessage struct {
	Type           string `json:"type"` // "joined"
	Code           string `json:"code"`
	Team           string `json:"team"`
	Username       string `json:"username"`
	PlayersPerTeam int    `json:"players_per_team"`
	Info           string `json:"info,omitempty"`
}

type joinRejectedMessage struct {
	Type   string `json:"type"` // "join_rejected"
	Reason string `json:"reason"`
}

type roundOpenedMessage struct {
	Type string `json:"type"` // "round_opened"
	trivia.RoundOpened
}

type roundClosedMessage struct {
	Type string `json:"type"` // "round_closed"
	trivia.RoundClosed
}

type matchOverMessage struct {
	Type string `json:"type"` // "match_over"
	trivia.MatchOver
}

// envelope wraps a core event with its wire discriminator. The switch is
// exhaustive over the event union; the core stays wire-format agnostic.
func envelope(ev trivia.Event) any {
	switch e := ev.(type) {
	case trivia.RoundOpened:
		return roundOpenedMessage{Type: "round_opened", RoundOpened: e}
	case trivia.RoundClosed:
		return roundClosedMessage{Type: "round_closed", RoundClosed: e}
	case trivia.MatchOver:
		return matchOverMessage{Type: "match_over", MatchOver: e}
	default:
		return nil
	}
}

// client is one websocket connection. It implements trivia.Endpoint; Send
// never blocks, so a slow or dead client only loses its own messages.
//
// The match driver may still hold this endpoint in a broadcast snapshot
// after the reader has disconnected, so enqueue and shutdown share a mutex:
// once closed, Send drops events instead of hitting a closed channel.
type client struct {
	id   string
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
	send   chan any
}

func (c *client) Send(ev trivia.Event) {
	msg := envelope(ev)
	if msg == nil {
		return
	}
	c.enqueue(msg)
}

func (c *client) enqueue(msg any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- msg:
	default:
		log.Warn().Str("connection_id", c.id).Msg("send buffer full, dropping event")
	}
}

// shutdown closes the outbound queue exactly once, which in turn stops the
// write pump. Safe to call with broadcasts still in flight.
func (c *client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// serveWS upgrades the connection and runs the join-then-answer protocol
// for one player. Each connection gets its own reader goroutine feeding
// the match, so one slow client never blocks another.
func (s *triviaServer) serveWS(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := ps.ByName("code")
	if code == "" {
		http.Error(w, "missing match code", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan any, 32),
	}
	go c.writePump()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// First message must be a join request.
	var join clientMessage
	if err := conn.ReadJSON(&join); err != nil || join.Type != "join" {
		c.enqueue(joinRejectedMessage{Type: "join_rejected", Reason: "expected a join message"})
		c.shutdown()
		return
	}

	match, res := s.registry.Join(code, join.Team, join.Username, c)
	if !res.OK {
		log.Debug().
			Str("code", code).
			Str("username", join.Username).
			Str("reason", res.Reason).
			Msg("join rejected")
		c.enqueue(joinRejectedMessage{Type: "join_rejected", Reason: res.Reason})
		c.shutdown()
		return
	}

	c.enqueue(joinedMessage{
		Type:           "joined",
		Code:           code,
		Team:           join.Team,
		Username:       join.Username,
		PlayersPerTeam: match.PlayersPerTeam(),
		Info:           res.Reason,
	})

	defer func() {
		s.registry.Leave(code, join.Username, c)
		c.shutdown()
		log.Debug().
			Str("code", code).
			Str("username", join.Username).
			Msg("player disconnected")
	}()

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case "answer":
			match.Submit(trivia.AnswerSubmission{
				Username:   join.Username,
				TeamID:     join.Team,
				RoundIndex: msg.Round,
				Option:     msg.Option,
			})
		default:
			// ignore unknown types
		}
	}
}
