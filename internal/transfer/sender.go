package transfer

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	pion "github.com/pion/webrtc/v4"

	"github.com/kiyo-e/pairlane/internal/config"
	"github.com/kiyo-e/pairlane/internal/e2ee"
	"github.com/kiyo-e/pairlane/internal/files"
	"github.com/kiyo-e/pairlane/internal/protocol"
	"github.com/kiyo-e/pairlane/internal/signalclient"
)

// OffererEngine runs on the sender. It owns one connection per active
// receiver, streams the selected file over each data channel and reports
// completion to the room. Signalling handlers are driven from the single
// command loop; pion callbacks run on their own goroutines and take the
// per-peer lock.
type OffererEngine struct {
	client *signalclient.Client
	cfg    *config.Config
	cipher *e2ee.Cipher

	// OnProgress and OnComplete are invoked from transfer goroutines.
	OnProgress func(peerID string, sent, total int64)
	OnComplete func(peerID string)

	mu    sync.Mutex
	file  *files.FileInfo
	peers map[string]*offererPeer
}

// offererPeer is the per-receiver connection state. The sid fence lives
// here: only frames carrying the current activeSid are acted on.
type offererPeer struct {
	engine *OffererEngine
	peerID string
	pc     *pion.PeerConnection
	dc     *pion.DataChannel
	drain  chan struct{}

	mu            sync.Mutex
	signalSid     uint64
	activeSid     uint64
	offerInFlight bool
	remoteDescSet bool
	pending       []pendingCandidate
	sending       bool
	sent          bool
}

// NewOffererEngine creates the sender engine. A nil cipher sends
// plaintext chunks.
func NewOffererEngine(client *signalclient.Client, cfg *config.Config, file *files.FileInfo, cipher *e2ee.Cipher) *OffererEngine {
	return &OffererEngine{
		client: client,
		cfg:    cfg,
		cipher: cipher,
		file:   file,
		peers:  make(map[string]*offererPeer),
	}
}

// SetFile switches the selection and resets both per-peer progress flags,
// so each peer's next transmit sends the new selection once. Transmit runs
// when a peer's data channel opens; SetFile itself sends nothing to peers
// whose channel is already open.
func (e *OffererEngine) SetFile(file *files.FileInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.file = file
	for _, p := range e.peers {
		p.mu.Lock()
		p.sending = false
		p.sent = false
		p.mu.Unlock()
	}
}

// isCurrent reports whether p is still the live context for its peer id.
// Connection callbacks outlive reconnects; stale ones must be ignored.
func (e *OffererEngine) isCurrent(p *offererPeer) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.peers[p.peerID] == p
}

func (e *OffererEngine) peer(peerID string) *offererPeer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.peers[peerID]
}

// HandleStart reacts to a start{peerId} frame: tear down any prior session
// for the peer, build a fresh connection with its own data channel, and
// issue the first offer.
func (e *OffererEngine) HandleStart(peerID string) error {
	e.mu.Lock()
	if prev, ok := e.peers[peerID]; ok {
		delete(e.peers, peerID)
		go prev.teardown()
	}
	e.mu.Unlock()

	pc, err := NewPeerConnection(e.cfg)
	if err != nil {
		return err
	}

	p := &offererPeer{
		engine: e,
		peerID: peerID,
		pc:     pc,
		drain:  make(chan struct{}, 1),
	}

	e.mu.Lock()
	e.peers[peerID] = p
	e.mu.Unlock()

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil || !e.isCurrent(p) {
			return
		}
		p.mu.Lock()
		sid := p.activeSid
		p.mu.Unlock()
		if sid == 0 {
			return
		}
		raw, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		e.client.SendMessage(&protocol.Message{
			Type:      protocol.TypeCandidate,
			To:        p.peerID,
			Sid:       sid,
			Candidate: raw,
		})
	})

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		if !e.isCurrent(p) {
			return
		}
		slog.Debug("peer connection state", "peer", p.peerID, "state", state.String())
	})

	ordered := true
	dc, err := pc.CreateDataChannel(ChannelLabel, &pion.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return NewError("create data channel", err)
	}
	p.dc = dc

	dc.SetBufferedAmountLowThreshold(LowWaterMark)
	dc.OnBufferedAmountLow(func() {
		select {
		case p.drain <- struct{}{}:
		default:
		}
	})
	dc.OnOpen(func() {
		if !e.isCurrent(p) {
			return
		}
		go p.transmit()
	})

	return p.issueOffer()
}

// issueOffer allocates the next sid and pushes a fresh offer with ICE
// restart. No-op while another offer is in flight or the connection is
// mid-negotiation.
func (p *offererPeer) issueOffer() error {
	p.mu.Lock()
	if p.offerInFlight || p.pc.SignalingState() != pion.SignalingStateStable {
		p.mu.Unlock()
		return nil
	}
	p.offerInFlight = true
	p.signalSid++
	sid := p.signalSid
	p.activeSid = sid
	p.remoteDescSet = false
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.offerInFlight = false
		p.mu.Unlock()
	}()

	offer, err := p.pc.CreateOffer(&pion.OfferOptions{ICERestart: true})
	if err != nil {
		return NewError("create offer", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return NewError("set local description", err)
	}
	raw, err := marshalDescription(p.pc.LocalDescription())
	if err != nil {
		return err
	}

	p.engine.client.SendMessage(&protocol.Message{
		Type: protocol.TypeOffer,
		To:   p.peerID,
		Sid:  sid,
		SDP:  raw,
	})
	return nil
}

// HandleAnswer applies a relayed answer if it carries the current sid,
// then drains the candidate buffer.
func (e *OffererEngine) HandleAnswer(msg *protocol.Message) error {
	p := e.peer(msg.From)
	if p == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if msg.Sid != p.activeSid {
		return nil
	}

	desc, err := parseDescription(msg.SDP)
	if err != nil {
		return err
	}
	if err := p.pc.SetRemoteDescription(desc); err != nil {
		return NewError("set remote description", err)
	}
	p.remoteDescSet = true

	for _, candidate := range drainCandidates(p.pending, p.activeSid) {
		if err := p.pc.AddICECandidate(candidate); err != nil {
			slog.Warn("add buffered candidate failed", "peer", p.peerID, "err", err)
		}
	}
	p.pending = nil
	return nil
}

// HandleCandidate adds or buffers a relayed candidate. Stale sids are
// dropped; add failures are logged and discarded.
func (e *OffererEngine) HandleCandidate(msg *protocol.Message) {
	p := e.peer(msg.From)
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if msg.Sid != p.activeSid {
		return
	}

	candidate, err := parseCandidate(msg.Candidate)
	if err != nil {
		return
	}
	if !p.remoteDescSet {
		p.pending = append(p.pending, pendingCandidate{sid: msg.Sid, candidate: candidate})
		return
	}
	if err := p.pc.AddICECandidate(candidate); err != nil {
		slog.Warn("add candidate failed", "peer", p.peerID, "err", err)
	}
}

// HandlePeerLeft destroys the session for a departed receiver.
func (e *OffererEngine) HandlePeerLeft(peerID string) {
	e.mu.Lock()
	p := e.peers[peerID]
	delete(e.peers, peerID)
	e.mu.Unlock()

	if p != nil {
		p.teardown()
	}
}

// transmit pushes the current selection to this peer exactly once. The
// sending flag guards re-entry from duplicate open events; the sent flag
// keeps one selection from fanning out twice to the same peer.
func (p *offererPeer) transmit() {
	if !p.engine.isCurrent(p) {
		return
	}

	p.mu.Lock()
	if p.sending || p.sent {
		p.mu.Unlock()
		return
	}
	p.sending = true
	p.mu.Unlock()

	err := p.sendFile()

	p.mu.Lock()
	p.sending = false
	if err == nil {
		p.sent = true
	}
	p.mu.Unlock()

	if err != nil {
		slog.Error("transfer failed", "peer", p.peerID, "err", err)
		return
	}

	p.engine.client.SendMessage(&protocol.Message{
		Type:   protocol.TypeTransferDone,
		PeerID: p.peerID,
	})
	if p.engine.OnComplete != nil {
		p.engine.OnComplete(p.peerID)
	}
}

// sendFile streams meta, chunks and done over the data channel, blocking
// on the buffered-amount window between chunks.
func (p *offererPeer) sendFile() error {
	p.engine.mu.Lock()
	info := p.engine.file
	p.engine.mu.Unlock()
	if info == nil {
		return NewError("send file", ErrChannelNotOpen)
	}

	file, err := os.Open(info.Path)
	if err != nil {
		return NewFileError("open file", info.Name, err)
	}
	defer file.Close()

	encrypted := p.engine.cipher != nil
	meta, err := EncodeMeta(NewMeta(info, encrypted))
	if err != nil {
		return NewError("encode meta", err)
	}
	if err := p.dc.SendText(string(meta)); err != nil {
		return NewError("send meta", err)
	}

	buffer := make([]byte, PlainChunkSize(encrypted))
	var sent int64
	for {
		n, readErr := file.Read(buffer)
		if n > 0 {
			payload := buffer[:n]
			if encrypted {
				payload, err = p.engine.cipher.Seal(payload)
				if err != nil {
					return NewFileError("encrypt chunk", info.Name, err)
				}
			}
			if err := p.waitForWindow(); err != nil {
				return err
			}
			if err := p.dc.Send(payload); err != nil {
				return NewFileError("send chunk", info.Name, err)
			}
			sent += int64(n)
			if p.engine.OnProgress != nil {
				p.engine.OnProgress(p.peerID, sent, info.Size)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return NewFileError("read file", info.Name, readErr)
		}
	}

	if err := p.dc.SendText(DoneFrame); err != nil {
		return NewError("send done", err)
	}
	p.waitForDrain()
	return nil
}

// waitForWindow blocks until the channel's buffered amount is below the
// high-water mark, resuming on the low-watermark signal.
func (p *offererPeer) waitForWindow() error {
	if p.dc.BufferedAmount() <= HighWaterMark {
		return nil
	}
	select {
	case <-p.drain:
		return nil
	case <-time.After(SendTimeout):
		return WrapError("wait for window", ErrBufferTimeout, "channel not draining")
	}
}

// waitForDrain gives the channel a bounded window to flush its buffer
// after the done frame, so completion isn't reported ahead of delivery.
func (p *offererPeer) waitForDrain() {
	for i := 0; i < drainPollLimit; i++ {
		if p.dc.ReadyState() != pion.DataChannelStateOpen {
			return
		}
		if p.dc.BufferedAmount() == 0 {
			return
		}
		time.Sleep(drainPollInterval)
	}
}

func (p *offererPeer) teardown() error {
	var result *multierror.Error
	if p.dc != nil {
		if err := p.dc.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := p.pc.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// Close tears down every peer session, aggregating errors.
func (e *OffererEngine) Close() error {
	e.mu.Lock()
	peers := make([]*offererPeer, 0, len(e.peers))
	for _, p := range e.peers {
		peers = append(peers, p)
	}
	e.peers = make(map[string]*offererPeer)
	e.mu.Unlock()

	var result *multierror.Error
	for _, p := range peers {
		if err := p.teardown(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
