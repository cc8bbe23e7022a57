package signaling

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/kiyo-e/pairlane/internal/protocol"
)

// inboundFrame pairs a parsed signalling frame with the socket it came in
// on. The cid on the client is authoritative; whatever the frame claims is
// ignored.
type inboundFrame struct {
	client *Client
	msg    *protocol.Message
}

// Hub owns every room. It is the single goroutine that mutates room state:
// upgrades, closures and signalling frames all funnel through its channels
// and are processed strictly one at a time, which is what the pairing
// invariants rely on.
type Hub struct {
	log   zerolog.Logger
	store ConfigStore

	rooms map[string]*Room

	register   chan *Client
	unregister chan *Client
	inbound    chan *inboundFrame

	// now is swappable for deterministic queue-ordering tests.
	now func() time.Time
}

// NewHub creates a hub backed by the given config store.
func NewHub(store ConfigStore, log zerolog.Logger) *Hub {
	return &Hub{
		log:        log,
		store:      store,
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan *inboundFrame),
		now:        time.Now,
	}
}

// Register hands a freshly upgraded socket to the hub actor.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Run starts the hub's processing loop.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.admit(c)
		case c := <-h.unregister:
			h.drop(c)
		case f := <-h.inbound:
			h.dispatch(f)
		}
	}
}

// admit routes a socket into its room, reviving the room from the config
// store if no instance is live.
func (h *Hub) admit(c *Client) {
	room, ok := h.rooms[c.roomID]
	if !ok {
		room = newRoom(c.roomID, h.loadConfig(c.roomID), h.log, h.now)
		h.rooms[c.roomID] = room
		h.log.Info().Str("room", c.roomID).Int("maxConcurrent", room.Config.MaxConcurrent).Msg("room opened")
	}
	room.admit(c)
}

// drop processes a socket closure; the room dies with its last socket,
// leaving only the stored config behind.
func (h *Hub) drop(c *Client) {
	defer c.closeSend()

	room, ok := h.rooms[c.roomID]
	if !ok {
		return
	}
	room.drop(c)
	if room.empty() {
		delete(h.rooms, room.ID)
		h.log.Info().Str("room", room.ID).Msg("room closed")
	}
}

// dispatch routes one signalling frame. Frames from sockets the room does
// not recognise (or with types it does not know) are dropped without any
// reply; peers recover through the sid fence.
func (h *Hub) dispatch(f *inboundFrame) {
	room, ok := h.rooms[f.client.roomID]
	if !ok || room.clients[f.client.cid] != f.client {
		return
	}

	switch f.msg.Type {
	case protocol.TypeOffer, protocol.TypeAnswer, protocol.TypeCandidate:
		room.relay(f.client, f.msg)
	case protocol.TypeTransferDone:
		room.transferDone(f.client, f.msg)
	default:
		h.log.Debug().Str("type", f.msg.Type).Msg("dropping unknown frame")
	}
}

// loadConfig rehydrates a room's config, falling back to (and recording)
// the defaults for rooms that were never created through the API.
func (h *Hub) loadConfig(roomID string) RoomConfig {
	cfg, ok, err := h.store.Load(roomID)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomID).Msg("config load failed")
	}
	if !ok {
		cfg = DefaultRoomConfig(roomID)
		if err := h.store.Save(cfg); err != nil {
			h.log.Error().Err(err).Str("room", roomID).Msg("config save failed")
		}
	}
	return cfg
}
