package transfer

import (
	"testing"

	pion "github.com/pion/webrtc/v4"

	"github.com/kiyo-e/pairlane/internal/e2ee"
	"github.com/kiyo-e/pairlane/internal/files"
)

func TestMetaRoundTrip(t *testing.T) {
	info := &files.FileInfo{Name: "report.pdf", Size: 1 << 20, Mime: "application/pdf"}

	data, err := EncodeMeta(NewMeta(info, true))
	if err != nil {
		t.Fatal(err)
	}
	if FrameType(data) != FrameMeta {
		t.Fatalf("frame type = %q", FrameType(data))
	}

	meta, err := ParseMeta(data)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Name != "report.pdf" || meta.Size != 1<<20 || meta.Mime != "application/pdf" || !meta.Encrypted {
		t.Fatalf("meta = %+v", meta)
	}
}

func TestDoneFrameType(t *testing.T) {
	if FrameType([]byte(DoneFrame)) != FrameDone {
		t.Fatalf("done frame parsed as %q", FrameType([]byte(DoneFrame)))
	}
}

func TestFrameTypeToleratesGarbage(t *testing.T) {
	if FrameType([]byte("not json")) != "" {
		t.Fatal("garbage must report an empty frame type")
	}
}

func TestPlainChunkSizeStaysWithinFrameBudget(t *testing.T) {
	if got := PlainChunkSize(false); got != ChunkSize {
		t.Fatalf("plaintext chunk = %d, want %d", got, ChunkSize)
	}
	got := PlainChunkSize(true)
	if got != ChunkSize-e2ee.Overhead {
		t.Fatalf("encrypted chunk = %d, want %d", got, ChunkSize-e2ee.Overhead)
	}
	// An encrypted chunk must not exceed the wire budget once sealed.
	if got+e2ee.Overhead > ChunkSize {
		t.Fatal("sealed chunk exceeds the frame budget")
	}
}

func TestDrainCandidatesDropsStaleSids(t *testing.T) {
	pending := []pendingCandidate{
		{sid: 1, candidate: pion.ICECandidateInit{Candidate: "candidate:old-1"}},
		{sid: 2, candidate: pion.ICECandidateInit{Candidate: "candidate:current-a"}},
		{sid: 1, candidate: pion.ICECandidateInit{Candidate: "candidate:old-2"}},
		{sid: 2, candidate: pion.ICECandidateInit{Candidate: "candidate:current-b"}},
	}

	got := drainCandidates(pending, 2)
	if len(got) != 2 {
		t.Fatalf("drained %d candidates, want 2", len(got))
	}
	if got[0].Candidate != "candidate:current-a" || got[1].Candidate != "candidate:current-b" {
		t.Fatalf("drained = %+v", got)
	}

	if got := drainCandidates(nil, 1); got != nil {
		t.Fatalf("empty buffer drained %+v", got)
	}
}

func TestParseCandidateAndDescription(t *testing.T) {
	candidate, err := parseCandidate([]byte(`{"candidate":"candidate:1 1 udp 2","sdpMid":"0"}`))
	if err != nil {
		t.Fatal(err)
	}
	if candidate.Candidate == "" {
		t.Fatal("candidate lost in parsing")
	}

	desc, err := parseDescription([]byte(`{"type":"offer","sdp":"v=0\r\n"}`))
	if err != nil {
		t.Fatal(err)
	}
	if desc.Type != pion.SDPTypeOffer || desc.SDP == "" {
		t.Fatalf("desc = %+v", desc)
	}

	if _, err := parseDescription([]byte(`nope`)); err == nil {
		t.Fatal("malformed sdp must error")
	}
}
