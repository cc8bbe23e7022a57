package transfer

import (
	"encoding/json"

	pion "github.com/pion/webrtc/v4"

	"github.com/kiyo-e/pairlane/internal/config"
)

// NewPeerConnection builds a connection with the configured STUN servers.
// There is no TURN fallback: when direct connectivity fails, the transfer
// fails.
func NewPeerConnection(cfg *config.Config) (*pion.PeerConnection, error) {
	pc, err := pion.NewPeerConnection(pion.Configuration{
		ICEServers: []pion.ICEServer{{URLs: cfg.GetSTUNServers()}},
	})
	if err != nil {
		return nil, NewError("create peer connection", err)
	}
	return pc, nil
}

// pendingCandidate is a remote candidate buffered until the description it
// belongs to has been applied, tagged with the sid it arrived under.
type pendingCandidate struct {
	sid       uint64
	candidate pion.ICECandidateInit
}

// drainCandidates returns the buffered candidates matching sid. Candidates
// tagged with any other sid are stale and silently discarded.
func drainCandidates(pending []pendingCandidate, sid uint64) []pion.ICECandidateInit {
	var matched []pion.ICECandidateInit
	for _, item := range pending {
		if item.sid == sid {
			matched = append(matched, item.candidate)
		}
	}
	return matched
}

// parseCandidate decodes the opaque candidate payload of a signalling
// frame.
func parseCandidate(raw json.RawMessage) (pion.ICECandidateInit, error) {
	var init pion.ICECandidateInit
	if err := json.Unmarshal(raw, &init); err != nil {
		return pion.ICECandidateInit{}, NewError("parse ICE candidate", err)
	}
	return init, nil
}

// parseDescription decodes the opaque sdp payload of a signalling frame.
func parseDescription(raw json.RawMessage) (pion.SessionDescription, error) {
	var desc pion.SessionDescription
	if err := json.Unmarshal(raw, &desc); err != nil {
		return pion.SessionDescription{}, NewError("parse session description", err)
	}
	return desc, nil
}

// marshalDescription renders a local description for relay.
func marshalDescription(desc *pion.SessionDescription) (json.RawMessage, error) {
	raw, err := json.Marshal(desc)
	if err != nil {
		return nil, NewError("marshal session description", err)
	}
	return raw, nil
}
