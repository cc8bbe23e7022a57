// Package protocol defines the signalling frames exchanged over the
// rendezvous websocket. The same flat JSON shape is spoken by the server,
// the CLI and the web client, so every field is optional and tagged
// omitempty; consumers dispatch on Type and ignore fields they don't use.
package protocol

import "encoding/json"

// Server to client frame types.
const (
	TypeRole     = "role"
	TypePeers    = "peers"
	TypeWait     = "wait"
	TypeStart    = "start"
	TypePeerLeft = "peer-left"
)

// Relayed / client to server frame types.
const (
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeCandidate    = "candidate"
	TypeTransferDone = "transfer-done"
)

// Role values carried by a "role" frame.
const (
	RoleOfferer  = "offerer"
	RoleAnswerer = "answerer"
)

// Message is a single signalling frame. SDP and Candidate payloads are kept
// opaque: the server relays them verbatim and only the peer engines parse
// them.
type Message struct {
	Type string `json:"type"`

	// role
	Role string `json:"role,omitempty"`
	Cid  string `json:"cid,omitempty"`

	// peers
	Count int `json:"count,omitempty"`

	// wait (position is 1-based; 0 means unknown)
	Position int `json:"position,omitempty"`

	// start / peer-left / transfer-done
	PeerID string `json:"peerId,omitempty"`

	// relayed frames: To is set by the sending client and stripped by the
	// server, which injects From before forwarding.
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// sid fences stale offer/answer/candidate frames across reconnects.
	Sid uint64 `json:"sid,omitempty"`

	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}
