package transfer

import "time"

const (
	// ChannelLabel names the single data channel both engines share.
	ChannelLabel = "file"

	// ChunkSize bounds one wire frame on the data channel.
	ChunkSize = 16 * 1024

	// LowWaterMark is the buffered-amount-low threshold: once the
	// channel drains below it, blocked sends resume.
	LowWaterMark = 4 * 1024 * 1024

	// HighWaterMark is the backpressure ceiling: sends block while the
	// channel buffers more than this.
	HighWaterMark = 8 * 1024 * 1024
)

const (
	// SendTimeout bounds a single wait for the channel to drain.
	SendTimeout = 60 * time.Second

	// drainPollInterval / drainPollLimit bound the post-done wait for
	// the channel buffer to empty before completion is reported.
	drainPollInterval = 10 * time.Millisecond
	drainPollLimit    = 500
)
