package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC16(t *testing.T) {
	testCases := []struct {
		data     []byte
		expected uint16
	}{
		{[]byte{}, 0xFFFF},
		{[]byte("123456789"), 0x6F91},
		{[]byte{5, MessageDest}, 0x9E81},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, CRC16(tc.data), "CRC16(%v)", tc.data)
	}
}

func encodeTestFrame(t *testing.T, f *Framer, payload ...byte) {
	t.Helper()
	require.NoError(t, f.EncodeFrame(func(out OutputBuffer) {
		out.Output(payload)
	}))
}

func TestFramerLayout(t *testing.T) {
	out := NewScratchOutput()
	f := NewFramer(out)
	encodeTestFrame(t, f, 0x01, 0x02)

	frame := out.Result()
	require.Len(t, frame, 7)
	assert.Equal(t, byte(7), frame[MessagePositionLen])
	assert.Equal(t, byte(MessageDest), frame[MessagePositionSeq])
	assert.Equal(t, byte(MessageValueSync), frame[6])

	crc := CRC16(frame[:4])
	assert.Equal(t, byte(crc>>8), frame[4])
	assert.Equal(t, byte(crc), frame[5])
}

func TestFramerSequenceWraps(t *testing.T) {
	out := NewScratchOutput()
	f := NewFramer(out)
	for i := 0; i < 17; i++ {
		out.Reset()
		encodeTestFrame(t, f, byte(i))
		assert.Equal(t, byte(MessageDest|(i&MessageSeqMask)), out.Result()[MessagePositionSeq])
	}
	assert.Equal(t, uint8(1), f.Sequence())
}

func TestFramerTooLarge(t *testing.T) {
	f := NewFramer(NewScratchOutput())
	err := f.EncodeFrame(func(out OutputBuffer) {
		out.Output(make([]byte, MessageLengthMax))
	})
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestParseFrame(t *testing.T) {
	out := NewScratchOutput()
	f := NewFramer(out)
	encodeTestFrame(t, f, 0x0A, 0x0B, 0x0C)
	frame := append([]byte(nil), out.Result()...)

	msg, n, err := ParseFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), n)
	assert.Equal(t, []byte{0x0A, 0x0B, 0x0C}, msg.Payload)
	assert.Equal(t, uint8(0), msg.Sequence)

	t.Run("incomplete", func(t *testing.T) {
		_, n, err := ParseFrame(frame[:len(frame)-1])
		assert.ErrorIs(t, err, ErrIncomplete)
		assert.Zero(t, n)
	})

	t.Run("bad crc", func(t *testing.T) {
		bad := append([]byte(nil), frame...)
		bad[3] ^= 0xFF
		_, _, err := ParseFrame(bad)
		assert.ErrorIs(t, err, ErrBadCRC)
	})

	t.Run("bad length", func(t *testing.T) {
		bad := append([]byte(nil), frame...)
		bad[MessagePositionLen] = MessageLengthMax + 1
		_, _, err := ParseFrame(bad)
		assert.ErrorIs(t, err, ErrBadFrame)
	})

	t.Run("bad sequence", func(t *testing.T) {
		bad := append([]byte(nil), frame...)
		bad[MessagePositionSeq] = 0x20
		_, _, err := ParseFrame(bad)
		assert.ErrorIs(t, err, ErrBadFrame)
	})

	t.Run("missing sync", func(t *testing.T) {
		bad := append([]byte(nil), frame...)
		bad[len(bad)-1] = 0x00
		_, _, err := ParseFrame(bad)
		assert.ErrorIs(t, err, ErrBadFrame)
	})
}
