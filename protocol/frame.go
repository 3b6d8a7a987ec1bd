package protocol

import "errors"

var (
	ErrIncomplete    = errors.New("incomplete frame")
	ErrBadFrame      = errors.New("malformed frame")
	ErrBadCRC        = errors.New("frame CRC mismatch")
	ErrFrameTooLarge = errors.New("frame exceeds maximum length")
)

// CRC16 is the CCITT checksum used by the Klipper serial protocol
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		b ^= uint8(crc)
		b ^= b << 4
		w := uint16(b)
		crc = (w<<8 | crc>>8) ^ (w >> 4) ^ (w << 3)
	}
	return crc
}

// Framer writes sequenced frames to an output buffer. The sequence number
// increments per frame so the receiver can count lost frames.
type Framer struct {
	output OutputBuffer
	seq    uint8
}

// NewFramer creates a framer writing to output
func NewFramer(output OutputBuffer) *Framer {
	return &Framer{output: output}
}

// EncodeFrame appends one frame whose payload is written by body.
// On ErrFrameTooLarge the partial frame is left in the output and the
// caller must reset it.
func (f *Framer) EncodeFrame(body func(out OutputBuffer)) error {
	start := f.output.CurPosition()
	f.output.Output([]byte{0, 0}) // Header placeholder

	body(f.output)

	length := f.output.CurPosition() - start + MessageTrailerSize
	if length > MessageLengthMax {
		return ErrFrameTooLarge
	}
	f.output.Update(start+MessagePositionLen, byte(length))
	f.output.Update(start+MessagePositionSeq, MessageDest|(f.seq&MessageSeqMask))

	crc := CRC16(f.output.DataSince(start))
	f.output.Output([]byte{byte(crc >> 8), byte(crc), MessageValueSync})
	f.seq++
	return nil
}

// Sequence returns the sequence number of the next frame
func (f *Framer) Sequence() uint8 {
	return f.seq & MessageSeqMask
}

// ParseFrame decodes the frame at the start of data and returns it with the
// number of bytes it occupies. ErrIncomplete means more data is needed.
func ParseFrame(data []byte) (Message, int, error) {
	if len(data) < MessageLengthMin {
		return Message{}, 0, ErrIncomplete
	}

	length := int(data[MessagePositionLen])
	if length < MessageLengthMin || length > MessageLengthMax {
		return Message{}, 0, ErrBadFrame
	}
	seq := data[MessagePositionSeq]
	if seq&^MessageSeqMask != MessageDest {
		return Message{}, 0, ErrBadFrame
	}
	if len(data) < length {
		return Message{}, 0, ErrIncomplete
	}
	if data[length-MessageTrailerSync] != MessageValueSync {
		return Message{}, 0, ErrBadFrame
	}

	frameCRC := uint16(data[length-MessageTrailerCRC])<<8 | uint16(data[length-MessageTrailerCRC+1])
	if frameCRC != CRC16(data[:length-MessageTrailerSize]) {
		return Message{}, 0, ErrBadCRC
	}

	payload := make([]byte, length-MessageLengthMin)
	copy(payload, data[MessageHeaderSize:length-MessageTrailerSize])
	return Message{
		Length:   uint8(length),
		Sequence: seq & MessageSeqMask,
		Payload:  payload,
		CRC:      frameCRC,
	}, length, nil
}
