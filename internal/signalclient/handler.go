package signalclient

import "github.com/kiyo-e/pairlane/internal/protocol"

// RoleInfo is the role assignment received right after connecting.
type RoleInfo struct {
	Role string
	Cid  string
}

// Handler routes incoming signalling frames to typed channels so command
// loops can select on exactly the events they care about. Relayed frames
// (offer/answer/candidate) stay whole because the engines need from, sid
// and payload together.
type Handler struct {
	client    *Client
	Role      chan RoleInfo
	Peers     chan int
	Wait      chan int
	Start     chan string
	PeerLeft  chan string
	Offer     chan *protocol.Message
	Answer    chan *protocol.Message
	Candidate chan *protocol.Message
	Closed    chan struct{}
}

// NewHandler creates a handler over a connected client.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:    client,
		Role:      make(chan RoleInfo, 1),
		Peers:     make(chan int, 8),
		Wait:      make(chan int, 8),
		Start:     make(chan string, 8),
		PeerLeft:  make(chan string, 8),
		Offer:     make(chan *protocol.Message, 32),
		Answer:    make(chan *protocol.Message, 32),
		Candidate: make(chan *protocol.Message, 32),
		Closed:    make(chan struct{}),
	}
}

// Run consumes the client's incoming stream until the connection drops.
// Run it in its own goroutine.
func (h *Handler) Run() {
	defer close(h.Closed)

	for msg := range h.client.Incoming() {
		switch msg.Type {

		case protocol.TypeRole:
			h.Role <- RoleInfo{Role: msg.Role, Cid: msg.Cid}

		case protocol.TypePeers:
			h.Peers <- msg.Count

		case protocol.TypeWait:
			h.Wait <- msg.Position

		case protocol.TypeStart:
			h.Start <- msg.PeerID

		case protocol.TypePeerLeft:
			h.PeerLeft <- msg.PeerID

		case protocol.TypeOffer:
			h.Offer <- msg

		case protocol.TypeAnswer:
			h.Answer <- msg

		case protocol.TypeCandidate:
			h.Candidate <- msg

		default:
			// Unknown frames are dropped, same as the server does.
		}
	}
}
