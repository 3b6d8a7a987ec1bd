package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStatus() Status {
	return Status{
		Tick:          4000000000,
		Current:       -123456,
		Desired:       -123400,
		Shoulder:      2000,
		Start:         -150000,
		Flags:         StatusEnabled | StatusThreadMode | StatusLimitPending,
		LimitState:    3,
		ShoulderState: 1,
		PulseState:    2,
	}
}

func TestStatusRoundTrip(t *testing.T) {
	out := NewScratchOutput()
	f := NewFramer(out)
	want := testStatus()
	require.NoError(t, f.EncodeFrame(func(o OutputBuffer) { EncodeStatus(o, want) }))

	msg, _, err := ParseFrame(out.Result())
	require.NoError(t, err)

	got, err := DecodeStatus(msg.Payload)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, got.Has(StatusLimitPending))
	assert.False(t, got.Has(StatusFault))
	assert.Equal(t, int32(56), got.Backlog())
}

func TestStatusWorstCaseFitsFrame(t *testing.T) {
	out := NewScratchOutput()
	f := NewFramer(out)
	worst := Status{
		Tick:     0xFFFFFFFF,
		Current:  -2147483648,
		Desired:  2147483647,
		Shoulder: -2147483648,
		Start:    2147483647,
		Flags:    0xFFFFFFFF,
	}
	assert.NoError(t, f.EncodeFrame(func(o OutputBuffer) { EncodeStatus(o, worst) }))
}

func TestDecodeStatusErrors(t *testing.T) {
	out := NewScratchOutput()
	EncodeStatus(out, testStatus())
	body := append([]byte(nil), out.Result()...)

	_, err := DecodeStatus(body[:len(body)-1])
	assert.ErrorIs(t, err, ErrShortStatus)

	_, err = DecodeStatus(nil)
	assert.ErrorIs(t, err, ErrShortStatus)

	body[0] = 7
	_, err = DecodeStatus(body)
	assert.ErrorIs(t, err, ErrUnknownMessage)
}
