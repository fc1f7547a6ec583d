package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
)

func testConfig() *Config {
	return &Config{
		bind:          "127.0.0.1",
		bonusFactor:   2,
		bonusSlots:    2,
		port:          8080,
		roundDeadline: 30 * time.Second,
	}
}

func newTestMux(t *testing.T) (*httprouter.Router, *Config) {
	t.Helper()

	cfg := testConfig()
	mux := httprouter.New()
	mux.GET("/healthz", serveHealthCheck(cfg))
	mux.GET("/version", serveVersion(cfg))
	if err := registerTriviaServer(cfg, mux); err != nil {
		t.Fatalf("registerTriviaServer: %v", err)
	}
	return mux, cfg
}

func postJSON(t *testing.T, mux http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestCreateMatchEndpoint(t *testing.T) {
	mux, _ := newTestMux(t)

	w := postJSON(t, mux, "/api/matches", `{"teams":2,"players_per_team":1,"questions":2}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d (%s)", w.Code, http.StatusCreated, w.Body.String())
	}

	var resp createMatchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Code) != 4 {
		t.Fatalf("code %q has wrong length", resp.Code)
	}
	if resp.Rounds != 2 {
		t.Fatalf("rounds: got %d, want 2", resp.Rounds)
	}
	if !strings.HasSuffix(resp.JoinURL, "/play/"+resp.Code) {
		t.Fatalf("join url %q does not end in /play/%s", resp.JoinURL, resp.Code)
	}
}

func TestCreateMatchEndpointRejectsBadRequests(t *testing.T) {
	mux, _ := newTestMux(t)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"zero questions", `{"teams":2,"players_per_team":1,"questions":0}`},
		{"zero teams", `{"teams":0,"players_per_team":1,"questions":2}`},
		{"zero players", `{"teams":2,"players_per_team":0,"questions":2}`},
	}
	for _, tc := range cases {
		if w := postJSON(t, mux, "/api/matches", tc.body); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: got status %d, want %d", tc.name, w.Code, http.StatusBadRequest)
		}
	}
}

func TestCreateMatchEndpointCapsQuestionCount(t *testing.T) {
	mux, _ := newTestMux(t)

	w := postJSON(t, mux, "/api/matches", `{"teams":1,"players_per_team":1,"questions":9999}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d (%s)", w.Code, w.Body.String())
	}

	var resp createMatchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	pool, err := loadQuestions("")
	if err != nil {
		t.Fatalf("loadQuestions: %v", err)
	}
	if resp.Rounds != len(pool) {
		t.Fatalf("rounds: got %d, want pool size %d", resp.Rounds, len(pool))
	}
}

func TestListMatchesEndpoint(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/api/matches", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var empty []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&empty); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no matches, got %v", empty)
	}

	created := postJSON(t, mux, "/api/matches", `{"teams":2,"players_per_team":2,"questions":3}`)
	var resp createMatchResponse
	if err := json.NewDecoder(created.Body).Decode(&resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/matches", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	var listed []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected one match, got %d", len(listed))
	}
	if listed[0]["code"] != resp.Code || listed[0]["state"] != "waiting" {
		t.Fatalf("unexpected listing: %v", listed[0])
	}
}

func TestJoinQREndpoint(t *testing.T) {
	mux, _ := newTestMux(t)

	created := postJSON(t, mux, "/api/matches", `{"teams":1,"players_per_team":1,"questions":1}`)
	var resp createMatchResponse
	if err := json.NewDecoder(created.Body).Decode(&resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/play/"+resp.Code+"/qr", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type: got %q", ct)
	}
	if w.Body.Len() == 0 {
		t.Fatal("empty qr body")
	}

	req = httptest.NewRequest(http.MethodGet, "/play/ZZZZ/qr", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown code: got status %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHealthCheckEndpoint(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if w.Body.String() != "Ok\n" {
		t.Fatalf("body: got %q", w.Body.String())
	}
}

func TestVersionEndpoint(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), releaseVersion) {
		t.Fatalf("body %q missing version %q", w.Body.String(), releaseVersion)
	}
}
