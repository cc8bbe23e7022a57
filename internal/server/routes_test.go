package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kiyo-e/pairlane/internal/signaling"
)

func testServer(cfg Config) (*Server, signaling.ConfigStore) {
	store := signaling.NewMemoryStore()
	hub := signaling.NewHub(store, zerolog.Nop())
	go hub.Run()
	return New(hub, store, cfg, zerolog.Nop()), store
}

func TestCreateRoomClampsMaxConcurrent(t *testing.T) {
	cases := []struct {
		body string
		want int
	}{
		{`{"maxConcurrent": 99}`, 10},
		{`{"maxConcurrent": -1}`, 1},
		{`{"maxConcurrent": 5}`, 5},
		{`{}`, 3},
		{`not json`, 3},
	}

	for _, c := range cases {
		srv, store := testServer(DefaultConfig())
		router := srv.Router()

		req := httptest.NewRequest(http.MethodPost, "/api/rooms", strings.NewReader(c.body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("body %q: status = %d", c.body, rec.Code)
		}
		var resp struct {
			RoomID string `json:"roomId"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("body %q: %v", c.body, err)
		}
		if len(resp.RoomID) != 10 {
			t.Fatalf("room id = %q", resp.RoomID)
		}

		cfg, ok, err := store.Load(resp.RoomID)
		if err != nil || !ok {
			t.Fatalf("config not recorded: ok=%v err=%v", ok, err)
		}
		if cfg.MaxConcurrent != c.want {
			t.Errorf("body %q: maxConcurrent = %d, want %d", c.body, cfg.MaxConcurrent, c.want)
		}
	}
}

func TestCreateRoomRecordsCreator(t *testing.T) {
	srv, store := testServer(DefaultConfig())
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/rooms", strings.NewReader(`{"creatorCid":"cid-123"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp struct {
		RoomID string `json:"roomId"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	cfg, _, _ := store.Load(resp.RoomID)
	if cfg.CreatorCid != "cid-123" {
		t.Fatalf("creatorCid = %q", cfg.CreatorCid)
	}
}

func TestCreateRoomRateLimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = RateLimitConfig{RPS: 1, Burst: 5}
	srv, _ := testServer(cfg)
	router := srv.Router()

	successes, limited := 0, 0
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/rooms", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		switch rec.Code {
		case http.StatusOK:
			successes++
		case http.StatusTooManyRequests:
			limited++
		default:
			t.Fatalf("unexpected status %d", rec.Code)
		}
	}

	if limited == 0 {
		t.Fatal("expected 429s from one source address hammering the endpoint")
	}
	// Burst 5 plus at most a token or two of refill during the loop.
	if successes > 10 {
		t.Fatalf("too many successes before limiting: %d", successes)
	}
}

func TestRoomShellSurfacesConfig(t *testing.T) {
	srv, store := testServer(DefaultConfig())
	router := srv.Router()
	store.Save(signaling.RoomConfig{RoomID: "KNOWNROOM1", MaxConcurrent: 7})

	req := httptest.NewRequest(http.MethodGet, "/r/KNOWNROOM1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp struct {
		RoomID        string `json:"roomId"`
		MaxConcurrent int    `json:"maxConcurrent"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.MaxConcurrent != 7 {
		t.Fatalf("maxConcurrent = %d, want 7", resp.MaxConcurrent)
	}

	// Unknown rooms report a fresh default config.
	req = httptest.NewRequest(http.MethodGet, "/r/NOSUCHROOM", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.MaxConcurrent != signaling.DefaultMaxConcurrent {
		t.Fatalf("default maxConcurrent = %d", resp.MaxConcurrent)
	}
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	srv, _ := testServer(DefaultConfig())
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/ws/SOMEROOM12?cid=abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUpgradeRequired {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUpgradeRequired)
	}
}

func TestUnsupportedMethodIsBadRequest(t *testing.T) {
	srv, _ := testServer(DefaultConfig())
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
