package transfer

import (
	"encoding/json"

	"github.com/kiyo-e/pairlane/internal/e2ee"
	"github.com/kiyo-e/pairlane/internal/files"
)

// Control frame types carried as text on the data channel. Binary frames
// are chunks; everything else is one of these JSON envelopes.
const (
	FrameMeta = "meta"
	FrameDone = "done"
)

// Meta announces the file about to follow on the channel.
type Meta struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	Size      uint64 `json:"size"`
	Mime      string `json:"mime"`
	Encrypted bool   `json:"encrypted"`
}

// NewMeta builds the announcement for a local file.
func NewMeta(info *files.FileInfo, encrypted bool) Meta {
	return Meta{
		Type:      FrameMeta,
		Name:      info.Name,
		Size:      uint64(info.Size),
		Mime:      info.Mime,
		Encrypted: encrypted,
	}
}

// EncodeMeta renders a meta frame for the channel.
func EncodeMeta(m Meta) ([]byte, error) {
	m.Type = FrameMeta
	return json.Marshal(m)
}

// DoneFrame is the terminal control frame.
const DoneFrame = `{"type":"done"}`

// FrameType peeks at the type of a textual control frame; malformed frames
// report an empty type and are ignored by callers.
func FrameType(data []byte) string {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ""
	}
	return probe.Type
}

// ParseMeta decodes a meta frame.
func ParseMeta(data []byte) (Meta, error) {
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return Meta{}, NewError("parse meta", err)
	}
	return m, nil
}

// PlainChunkSize is how much plaintext fits in one wire frame. Encrypted
// chunks give up room for the IV prefix and the GCM tag.
func PlainChunkSize(encrypted bool) int {
	if encrypted {
		return ChunkSize - e2ee.Overhead
	}
	return ChunkSize
}
