/*
Copyright © 2026 LEI-122713
*/

package main

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/LEI-122713/kahoot/trivia"
)

// triviaServer wires the round-coordination core to HTTP and websocket
// routes. The operator API mirrors the original server console: create a
// match with a code, list active matches and their scoreboards.
type triviaServer struct {
	cfg      *Config
	registry *trivia.Registry
	pool     []trivia.Question
}

func registerTriviaServer(cfg *Config, mux *httprouter.Router) error {
	pool, err := loadQuestions(cfg.questionsPath)
	if err != nil {
		return err
	}

	s := &triviaServer{
		cfg: cfg,
		registry: trivia.NewRegistry(trivia.Options{
			RoundDeadline: cfg.roundDeadline,
			BonusFactor:   cfg.bonusFactor,
			BonusSlots:    cfg.bonusSlots,
		}),
		pool: pool,
	}

	mux.POST(cfg.prefix+"/api/matches", s.createMatch)
	mux.GET(cfg.prefix+"/api/matches", s.listMatches)
	mux.GET(cfg.prefix+"/play/:code/ws", s.serveWS)
	mux.GET(cfg.prefix+"/play/:code/qr", s.serveJoinQR)

	log.Info().Int("questions", len(pool)).Msg("question pool loaded")

	return nil
}

type createMatchRequest struct {
	Teams          int `json:"teams"`
	PlayersPerTeam int `json:"players_per_team"`
	Questions      int `json:"questions"`
}

type createMatchResponse struct {
	Code    string `json:"code"`
	Rounds  int    `json:"rounds"`
	JoinURL string `json:"join_url"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *triviaServer) createMatch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	securityHeaders(s.cfg, w)

	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Questions < 1 {
		writeError(w, http.StatusBadRequest, "at least one question required")
		return
	}

	questions := selectQuestions(s.pool, req.Questions)
	m, err := s.registry.CreateMatch(trivia.MatchSetup{
		MaxTeams:       req.Teams,
		PlayersPerTeam: req.PlayersPerTeam,
		Questions:      questions,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Info().Str("code", m.Code()).Str("remote", realIP(r)).Msg("match created via api")

	writeJSON(w, http.StatusCreated, createMatchResponse{
		Code:    m.Code(),
		Rounds:  len(questions),
		JoinURL: s.joinURL(r, m.Code()),
	})
}

func (s *triviaServer) listMatches(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	securityHeaders(s.cfg, w)

	writeJSON(w, http.StatusOK, s.registry.List())
}

// serveJoinQR renders the join URL for a match as a PNG QR code, so players
// can scan their way into the lobby.
func (s *triviaServer) serveJoinQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := ps.ByName("code")
	if _, ok := s.registry.Match(code); !ok {
		http.NotFound(w, r)
		return
	}

	url := s.joinURL(r, code)

	const qrSize = 320
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// joinURL derives the externally-visible match URL, respecting TLS and
// X-Forwarded-Proto when behind a proxy.
func (s *triviaServer) joinURL(r *http.Request, code string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return scheme + "://" + r.Host + s.cfg.prefix + "/play/" + code
}
