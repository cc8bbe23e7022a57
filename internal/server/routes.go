package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/kiyo-e/pairlane/internal/signaling"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// The webapp and the CLI both connect cross-origin; room ids are
	// unguessable, so origin is not part of the access model.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is the rendezvous router: it mints rooms and hands websocket
// upgrades to the hub.
type Server struct {
	log     zerolog.Logger
	hub     *signaling.Hub
	store   signaling.ConfigStore
	limiter *ipLimiter
}

// New assembles the router around a running hub.
func New(hub *signaling.Hub, store signaling.ConfigStore, cfg Config, log zerolog.Logger) *Server {
	return &Server{
		log:     log,
		hub:     hub,
		store:   store,
		limiter: newIPLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	}
}

// Router builds the HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unsupported method", http.StatusBadRequest)
	})

	r.Get("/health", s.handleHealth)
	r.Post("/api/rooms", s.handleCreateRoom)
	r.Get("/r/{roomID}", s.handleRoomShell)
	r.Get("/ws/{roomID}", s.handleWebSocket)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Signaling server is healthy."))
}

type createRoomRequest struct {
	MaxConcurrent int    `json:"maxConcurrent"`
	CreatorCid    string `json:"creatorCid"`
}

type createRoomResponse struct {
	RoomID string `json:"roomId"`
}

// handleCreateRoom mints a room id and records its configuration before
// returning. A malformed body falls back to the defaults; out-of-range
// maxConcurrent is clamped, never rejected.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(r.RemoteAddr) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = createRoomRequest{}
	}

	cfg := signaling.RoomConfig{
		RoomID:        signaling.NewRoomID(),
		MaxConcurrent: signaling.ClampMaxConcurrent(req.MaxConcurrent),
		CreatorCid:    req.CreatorCid,
	}
	if err := s.store.Save(cfg); err != nil {
		s.log.Error().Err(err).Msg("room config save failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.log.Info().Str("room", cfg.RoomID).Int("maxConcurrent", cfg.MaxConcurrent).Msg("room created")

	writeJSON(w, createRoomResponse{RoomID: cfg.RoomID})
}

type roomShellResponse struct {
	RoomID        string `json:"roomId"`
	MaxConcurrent int    `json:"maxConcurrent"`
}

// handleRoomShell surfaces the room's concurrency ceiling so the shell can
// render it. Unknown rooms report a fresh default config.
func (s *Server) handleRoomShell(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	cfg, ok, err := s.store.Load(roomID)
	if err != nil {
		s.log.Error().Err(err).Str("room", roomID).Msg("room config load failed")
	}
	if !ok {
		cfg = signaling.DefaultRoomConfig(roomID)
	}

	writeJSON(w, roomShellResponse{RoomID: roomID, MaxConcurrent: cfg.MaxConcurrent})
}

// handleWebSocket routes an upgrade to the room singleton. The cid query
// parameter is the client's stable identity; one is minted when absent.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "websocket upgrade required", http.StatusUpgradeRequired)
		return
	}

	roomID := chi.URLParam(r, "roomID")
	cid := r.URL.Query().Get("cid")
	if cid == "" {
		cid = uuid.New().String()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := signaling.NewClient(s.hub, conn, roomID, cid, s.log)
	s.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Connection-level failure; the status line is already gone.
		return
	}
}
