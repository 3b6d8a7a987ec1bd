package serial

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"els/core"
	"els/protocol"
)

func TestStatusWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewStatusWriter(&buf)

	require.NoError(t, w.WriteSnapshot(core.Snapshot{Tick: 7, Current: -3, Desired: 4, Enabled: true}))
	require.NoError(t, w.WriteSnapshot(core.Snapshot{Tick: 8, Current: 1, Desired: 1}))

	r := protocol.NewReader(&buf)
	go func() { _ = r.Run(context.Background()) }()

	var got []protocol.Status
	for msg := range r.Frames() {
		s, err := protocol.DecodeStatus(msg.Payload)
		require.NoError(t, err)
		got = append(got, s)
	}

	require.Len(t, got, 2)
	assert.Equal(t, uint32(7), got[0].Tick)
	assert.Equal(t, int32(7), got[0].Backlog())
	assert.True(t, got[0].Has(protocol.StatusEnabled))
	assert.False(t, got[1].Has(protocol.StatusEnabled))
	assert.Zero(t, r.Stats().Gaps)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyACM0")
	assert.Equal(t, "/dev/ttyACM0", cfg.Device)
	assert.Equal(t, 115200, cfg.Baud)
}

func TestOpenNilConfig(t *testing.T) {
	_, err := Open(nil)
	assert.ErrorIs(t, err, ErrNilConfig)
}
