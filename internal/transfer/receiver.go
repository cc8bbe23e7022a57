package transfer

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/kiyo-e/pairlane/internal/config"
	"github.com/kiyo-e/pairlane/internal/e2ee"
	"github.com/kiyo-e/pairlane/internal/files"
	"github.com/kiyo-e/pairlane/internal/protocol"
	"github.com/kiyo-e/pairlane/internal/signalclient"
)

// AnswererEngine runs on a receiver. It binds to the sender on the first
// offer, adopts the data channel the sender opens, and streams chunks to
// disk, decrypting when the session key is present.
type AnswererEngine struct {
	client    *signalclient.Client
	cfg       *config.Config
	outputDir string
	cipher    *e2ee.Cipher

	// Callbacks fire from data-channel goroutines.
	OnProgress func(received, total int64)
	OnComplete func(path string)
	OnFailed   func(reason string)

	mu            sync.Mutex
	pc            *pion.PeerConnection
	peerID        string
	activeSid     uint64
	remoteDescSet bool
	pending       []pendingCandidate
	recv          *receiveState
}

// receiveState tracks one in-flight transfer, reset on every meta frame.
type receiveState struct {
	file      *os.File
	path      string
	expected  uint64
	received  uint64
	encrypted bool
	failed    bool
}

// NewAnswererEngine creates a receiver engine writing into outputDir. A
// nil cipher means encrypted transfers fail with a visible status instead
// of producing garbage.
func NewAnswererEngine(client *signalclient.Client, cfg *config.Config, outputDir string, cipher *e2ee.Cipher) *AnswererEngine {
	return &AnswererEngine{
		client:    client,
		cfg:       cfg,
		outputDir: outputDir,
		cipher:    cipher,
	}
}

// HandleStart prepares the connection ahead of the sender's offer. A
// repeated start replaces the previous connection wholesale.
func (e *AnswererEngine) HandleStart() error {
	e.mu.Lock()
	prev := e.pc
	e.pc = nil
	e.peerID = ""
	e.activeSid = 0
	e.remoteDescSet = false
	e.pending = nil
	e.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	pc, err := NewPeerConnection(e.cfg)
	if err != nil {
		return err
	}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		e.mu.Lock()
		peerID, sid := e.peerID, e.activeSid
		e.mu.Unlock()
		if peerID == "" || sid == 0 {
			return
		}
		raw, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		e.client.SendMessage(&protocol.Message{
			Type:      protocol.TypeCandidate,
			To:        peerID,
			Sid:       sid,
			Candidate: raw,
		})
	})

	pc.OnDataChannel(func(dc *pion.DataChannel) {
		dc.OnMessage(func(msg pion.DataChannelMessage) {
			e.onMessage(msg)
		})
		dc.OnClose(func() {
			e.surfacePartial()
		})
	})

	e.mu.Lock()
	e.pc = pc
	e.mu.Unlock()
	return nil
}

// HandleOffer runs the answer lifecycle: bind the sender, apply the
// description, drain buffered candidates for this sid and push the
// answer. A fresh offer from the same sender with a higher sid re-enters
// here; anything else is dropped.
func (e *AnswererEngine) HandleOffer(msg *protocol.Message) error {
	e.mu.Lock()
	needStart := e.pc == nil
	e.mu.Unlock()
	if needStart {
		// Dormant until the first offer; the start frame may have been
		// missed across a reconnect.
		if err := e.HandleStart(); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.peerID != "" && msg.From != e.peerID {
		return nil
	}
	if e.activeSid != 0 && msg.Sid <= e.activeSid {
		return nil
	}

	desc, err := parseDescription(msg.SDP)
	if err != nil {
		return err
	}

	e.peerID = msg.From
	e.activeSid = msg.Sid

	if err := e.pc.SetRemoteDescription(desc); err != nil {
		return NewError("set remote description", err)
	}
	e.remoteDescSet = true

	for _, candidate := range drainCandidates(e.pending, e.activeSid) {
		if err := e.pc.AddICECandidate(candidate); err != nil {
			slog.Warn("add buffered candidate failed", "err", err)
		}
	}
	e.pending = nil

	answer, err := e.pc.CreateAnswer(nil)
	if err != nil {
		return NewError("create answer", err)
	}
	if err := e.pc.SetLocalDescription(answer); err != nil {
		return NewError("set local description", err)
	}
	raw, err := marshalDescription(e.pc.LocalDescription())
	if err != nil {
		return err
	}

	e.client.SendMessage(&protocol.Message{
		Type: protocol.TypeAnswer,
		To:   e.peerID,
		Sid:  e.activeSid,
		SDP:  raw,
	})
	return nil
}

// HandleCandidate adds or buffers a candidate from the bound sender.
func (e *AnswererEngine) HandleCandidate(msg *protocol.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pc == nil {
		return
	}
	if e.peerID != "" && msg.From != e.peerID {
		return
	}

	candidate, err := parseCandidate(msg.Candidate)
	if err != nil {
		return
	}
	if !e.remoteDescSet {
		e.pending = append(e.pending, pendingCandidate{sid: msg.Sid, candidate: candidate})
		return
	}
	if msg.Sid != e.activeSid {
		return
	}
	if err := e.pc.AddICECandidate(candidate); err != nil {
		slog.Warn("add candidate failed", "err", err)
	}
}

// onMessage dispatches one data-channel frame: text frames are control,
// binary frames are chunks.
func (e *AnswererEngine) onMessage(msg pion.DataChannelMessage) {
	if msg.IsString {
		switch FrameType(msg.Data) {
		case FrameMeta:
			meta, err := ParseMeta(msg.Data)
			if err != nil {
				return
			}
			e.beginTransfer(meta)
		case FrameDone:
			e.finishTransfer()
		}
		return
	}
	e.appendChunk(msg.Data)
}

// beginTransfer resets per-transfer state for a fresh meta frame.
func (e *AnswererEngine) beginTransfer(meta Meta) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.recv != nil && e.recv.file != nil {
		e.recv.file.Close()
	}
	e.recv = &receiveState{
		expected:  meta.Size,
		encrypted: meta.Encrypted,
	}

	if meta.Encrypted && e.cipher == nil {
		e.recv.failed = true
		e.failLocked("encrypted transfer but no decryption key; pass --key or use the #k= link")
		return
	}

	path := files.UniquePath(e.outputDir, files.SanitizeName(meta.Name))
	file, err := os.Create(path)
	if err != nil {
		e.recv.failed = true
		e.failLocked("create output file: " + err.Error())
		return
	}
	e.recv.file = file
	e.recv.path = path
	slog.Info("receiving file", "name", meta.Name, "size", meta.Size, "mime", meta.Mime, "encrypted", meta.Encrypted)
}

// appendChunk decrypts (when needed) and writes one chunk. Chunks arriving
// after a failure, or before any meta, are ignored until the next meta.
func (e *AnswererEngine) appendChunk(data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.recv == nil || e.recv.failed || e.recv.file == nil {
		return
	}

	payload := data
	if e.recv.encrypted {
		plain, err := e.cipher.Open(data)
		if err != nil {
			e.recv.file.Close()
			e.recv.file = nil
			e.recv.failed = true
			e.failLocked("chunk decryption failed: " + err.Error())
			return
		}
		payload = plain
	}

	if _, err := e.recv.file.Write(payload); err != nil {
		e.recv.file.Close()
		e.recv.file = nil
		e.recv.failed = true
		e.failLocked("write output file: " + err.Error())
		return
	}
	e.recv.received += uint64(len(payload))

	if e.OnProgress != nil {
		e.OnProgress(int64(e.recv.received), int64(e.recv.expected))
	}
	if e.recv.expected > 0 && e.recv.received >= e.recv.expected {
		e.completeLocked()
	}
}

func (e *AnswererEngine) finishTransfer() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.recv == nil || e.recv.failed || e.recv.file == nil {
		return
	}
	e.completeLocked()
}

func (e *AnswererEngine) completeLocked() {
	e.recv.file.Close()
	path := e.recv.path
	e.recv = nil
	if e.OnComplete != nil {
		e.OnComplete(path)
	}
}

func (e *AnswererEngine) failLocked(reason string) {
	slog.Error("transfer failed", "reason", reason)
	if e.OnFailed != nil {
		e.OnFailed(reason)
	}
}

// surfacePartial reports a channel that closed mid-transfer. The partial
// file stays on disk; there is no resume protocol.
func (e *AnswererEngine) surfacePartial() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.recv == nil || e.recv.file == nil || e.recv.failed {
		return
	}
	e.recv.file.Close()
	e.recv.file = nil
	e.recv.failed = true
	e.failLocked("channel closed mid-transfer; partial file kept")
}

// Close releases the connection and any in-flight transfer state.
func (e *AnswererEngine) Close() error {
	e.mu.Lock()
	pc := e.pc
	e.pc = nil
	if e.recv != nil && e.recv.file != nil {
		e.recv.file.Close()
	}
	e.recv = nil
	e.mu.Unlock()

	if pc != nil {
		return pc.Close()
	}
	return nil
}
