package protocol

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusFrames(t *testing.T, f *Framer, ticks ...uint32) []byte {
	t.Helper()
	var stream []byte
	for _, tick := range ticks {
		out := NewScratchOutput()
		f.output = out
		s := Status{Tick: tick, Current: int32(tick)}
		require.NoError(t, f.EncodeFrame(func(o OutputBuffer) { EncodeStatus(o, s) }))
		stream = append(stream, out.Result()...)
	}
	return stream
}

func collect(t *testing.T, stream []byte) ([]Status, ReaderStats) {
	t.Helper()
	r := NewReader(bytes.NewReader(stream))
	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	var got []Status
	for msg := range r.Frames() {
		s, err := DecodeStatus(msg.Payload)
		require.NoError(t, err)
		got = append(got, s)
	}
	require.NoError(t, <-done)
	return got, r.Stats()
}

func ticksOf(statuses []Status) []uint32 {
	out := make([]uint32, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, s.Tick)
	}
	return out
}

func TestReaderParsesStream(t *testing.T) {
	f := NewFramer(nil)
	stream := statusFrames(t, f, 1, 2, 3)

	got, stats := collect(t, stream)
	assert.Equal(t, []uint32{1, 2, 3}, ticksOf(got))
	assert.Equal(t, ReaderStats{Frames: 3}, stats)
}

func TestReaderResyncsAfterCorruption(t *testing.T) {
	f := NewFramer(nil)
	first := statusFrames(t, f, 10)
	bad := statusFrames(t, f, 11)
	last := statusFrames(t, f, 12)

	bad[3] ^= 0x55 // corrupt the payload so the CRC fails

	stream := append([]byte{0x00, 0x42, MessageValueSync}, first...)
	stream = append(stream, bad...)
	stream = append(stream, last...)

	got, stats := collect(t, stream)
	assert.Equal(t, []uint32{10, 12}, ticksOf(got))
	assert.Equal(t, uint64(2), stats.Frames)
	assert.GreaterOrEqual(t, stats.Errors, uint64(2))
	assert.Equal(t, uint64(1), stats.Gaps)
}

type chunkedReader struct {
	data  []byte
	chunk int
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, errors.New("port closed")
	}
	n := c.chunk
	if n > len(c.data) {
		n = len(c.data)
	}
	n = copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func TestReaderSplitReads(t *testing.T) {
	f := NewFramer(nil)
	stream := statusFrames(t, f, 100, 200)

	r := NewReader(&chunkedReader{data: stream, chunk: 3})
	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	var got []uint32
	for msg := range r.Frames() {
		s, err := DecodeStatus(msg.Payload)
		require.NoError(t, err)
		got = append(got, s.Tick)
	}
	assert.EqualError(t, <-done, "read telemetry: port closed")
	assert.Equal(t, []uint32{100, 200}, got)
}
