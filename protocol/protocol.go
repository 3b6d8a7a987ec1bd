// Package protocol implements the telemetry wire format: Klipper-style
// framed messages carrying VLQ-encoded status reports.
package protocol

// Version is the telemetry protocol version
const Version = "1"

// Frame layout: length, sequence, payload, CRC16 (big endian), sync
const (
	MessageMax         = 512 // Scratch output size, room for several frames
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10

	// Message sequence mask
	MessageSeqMask = 0x0F
)

// Message is a parsed frame
type Message struct {
	Length   uint8
	Sequence uint8
	Payload  []byte // Frame data without header/trailer
	CRC      uint16
}
