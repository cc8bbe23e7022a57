package signaling

import (
	"sort"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/kiyo-e/pairlane/internal/protocol"
)

// Room holds the authoritative signalling state for one room id: role
// assignment, the waiting queue, the active pair set and the immutable
// config. All methods run on the hub actor goroutine, so there is exactly
// one mutation in flight at any time and no locks are needed.
type Room struct {
	ID     string
	Config RoomConfig

	// clients is keyed by cid; at most one open socket per cid.
	clients map[string]*Client

	// activePairs maps answerer cid to offerer cid. An entry exists iff
	// the answerer's state is active.
	activePairs map[string]string

	log zerolog.Logger
	now func() time.Time
}

func newRoom(id string, cfg RoomConfig, log zerolog.Logger, now func() time.Time) *Room {
	if now == nil {
		now = time.Now
	}
	return &Room{
		ID:          id,
		Config:      cfg,
		clients:     make(map[string]*Client),
		activePairs: make(map[string]string),
		log:         log.With().Str("room", id).Logger(),
		now:         now,
	}
}

func (r *Room) empty() bool { return len(r.clients) == 0 }

// offerer returns the unique sender socket, or nil.
func (r *Room) offerer() *Client {
	for _, c := range r.clients {
		if c.role == protocol.RoleOfferer {
			return c
		}
	}
	return nil
}

// waitingOrdered returns the waiting receivers in promotion order:
// ascending joinedAt, ties broken by cid so promotion is deterministic
// under coarse clocks.
func (r *Room) waitingOrdered() []*Client {
	var waiting []*Client
	for _, c := range r.clients {
		if c.role == protocol.RoleAnswerer && c.state == StateWaiting {
			waiting = append(waiting, c)
		}
	}
	sort.Slice(waiting, func(i, j int) bool {
		if !waiting[i].joinedAt.Equal(waiting[j].joinedAt) {
			return waiting[i].joinedAt.Before(waiting[j].joinedAt)
		}
		return waiting[i].cid < waiting[j].cid
	})
	return waiting
}

func (r *Room) activeCount() int {
	n := 0
	for _, c := range r.clients {
		if c.role == protocol.RoleAnswerer && c.state == StateActive {
			n++
		}
	}
	return n
}

// admit runs the admission sequence for a freshly upgraded socket: evict
// any prior socket with the same cid, pick a role, persist the attachment,
// then let the slot filler promote whoever fits.
func (r *Room) admit(c *Client) {
	if prev, ok := r.clients[c.cid]; ok {
		delete(r.clients, c.cid)
		if prev.role == protocol.RoleAnswerer {
			if _, paired := r.activePairs[prev.cid]; paired {
				delete(r.activePairs, prev.cid)
				if off := r.offerer(); off != nil {
					off.trySend(&protocol.Message{Type: protocol.TypePeerLeft, PeerID: prev.cid})
				}
			}
		}
		prev.closeWithReason(websocket.CloseNormalClosure, "replaced")
		r.log.Debug().Str("cid", c.cid).Msg("evicted prior socket")
	}

	role := protocol.RoleAnswerer
	if r.Config.CreatorCid != "" {
		if c.cid == r.Config.CreatorCid {
			role = protocol.RoleOfferer
		}
	} else if r.offerer() == nil {
		role = protocol.RoleOfferer
	}

	c.role = role
	c.joinedAt = r.now()
	if role == protocol.RoleAnswerer {
		c.state = StateWaiting
	}
	r.clients[c.cid] = c

	c.trySend(&protocol.Message{Type: protocol.TypeRole, Role: role, Cid: c.cid})
	if role == protocol.RoleAnswerer {
		r.sendWait(c)
	}
	r.broadcastPeers()
	r.fillSlots()

	r.log.Info().Str("cid", c.cid).Str("role", role).Int("peers", len(r.clients)).Msg("client joined")
}

// drop handles a socket closure. A close from a socket that has already
// been replaced changes no membership; everything else follows the
// departure rules for its role.
func (r *Room) drop(c *Client) {
	cur, ok := r.clients[c.cid]
	if !ok || cur != c {
		r.broadcastPeers()
		return
	}
	delete(r.clients, c.cid)

	switch c.role {
	case protocol.RoleOfferer:
		// The sender is gone: every active receiver goes back to the
		// queue and will be promoted again when a sender returns.
		r.activePairs = make(map[string]string)
		for _, cl := range r.clients {
			if cl.role == protocol.RoleAnswerer && cl.state == StateActive {
				cl.state = StateWaiting
			}
		}
		for _, cl := range r.waitingOrdered() {
			r.sendWait(cl)
		}

	case protocol.RoleAnswerer:
		if _, paired := r.activePairs[c.cid]; paired {
			delete(r.activePairs, c.cid)
			if off := r.offerer(); off != nil {
				off.trySend(&protocol.Message{Type: protocol.TypePeerLeft, PeerID: c.cid})
			}
		}
		r.fillSlots()
	}

	r.broadcastPeers()
	r.log.Info().Str("cid", c.cid).Int("peers", len(r.clients)).Msg("client left")
}

// fillSlots promotes waiting receivers until the concurrency ceiling is
// reached. Runs whenever membership or per-receiver state changes.
func (r *Room) fillSlots() {
	off := r.offerer()
	if off == nil {
		return
	}
	available := r.Config.MaxConcurrent - r.activeCount()
	if available <= 0 {
		return
	}
	for _, a := range r.waitingOrdered() {
		if available == 0 {
			break
		}
		a.state = StateActive
		r.activePairs[a.cid] = off.cid
		a.trySend(&protocol.Message{Type: protocol.TypeStart})
		off.trySend(&protocol.Message{Type: protocol.TypeStart, PeerID: a.cid})
		available--
		r.log.Debug().Str("peer", a.cid).Msg("slot filled")
	}
}

// relay forwards an offer/answer/candidate to its partner, but only if the
// pair is currently authorized. The server strips To, injects From and
// passes sid and payload through verbatim; sid is interpreted by peers
// only. Anything unauthorized is silently dropped.
func (r *Room) relay(origin *Client, msg *protocol.Message) {
	target, ok := r.clients[msg.To]
	if !ok {
		return
	}

	authorized := false
	switch msg.Type {
	case protocol.TypeOffer:
		authorized = origin.role == protocol.RoleOfferer && r.activePairs[msg.To] == origin.cid
	case protocol.TypeAnswer:
		authorized = origin.role == protocol.RoleAnswerer && r.activePairs[origin.cid] == msg.To
	case protocol.TypeCandidate:
		if origin.role == protocol.RoleOfferer {
			authorized = r.activePairs[msg.To] == origin.cid
		} else {
			authorized = r.activePairs[origin.cid] == msg.To
		}
	}
	if !authorized {
		r.log.Debug().Str("type", msg.Type).Str("from", origin.cid).Str("to", msg.To).Msg("dropping unauthorized relay")
		return
	}

	target.trySend(&protocol.Message{
		Type:      msg.Type,
		From:      origin.cid,
		Sid:       msg.Sid,
		SDP:       msg.SDP,
		Candidate: msg.Candidate,
	})
}

// transferDone marks the named receiver done and frees its slot. Accepted
// only from the sender; repeating it for an already-done receiver is a
// no-op, and a done receiver is never promoted again.
func (r *Room) transferDone(origin *Client, msg *protocol.Message) {
	if origin.role != protocol.RoleOfferer {
		return
	}
	target, ok := r.clients[msg.PeerID]
	if !ok || target.role != protocol.RoleAnswerer || target.state == StateDone {
		return
	}
	target.state = StateDone
	delete(r.activePairs, target.cid)
	r.fillSlots()
	r.log.Info().Str("peer", target.cid).Msg("transfer done")
}

func (r *Room) broadcastPeers() {
	count := len(r.clients)
	for _, c := range r.clients {
		c.trySend(&protocol.Message{Type: protocol.TypePeers, Count: count})
	}
}

// sendWait tells a queued receiver its 1-based position among the waiting.
func (r *Room) sendWait(c *Client) {
	position := 0
	for i, w := range r.waitingOrdered() {
		if w == c {
			position = i + 1
			break
		}
	}
	c.trySend(&protocol.Message{Type: protocol.TypeWait, Position: position})
}
