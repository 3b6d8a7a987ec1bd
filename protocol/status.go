package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrShortStatus    = errors.New("status message truncated")
	ErrUnknownMessage = errors.New("unknown message id")
)

// Message ids
const (
	MsgStatus = 1
)

// Status flag bits
const (
	StatusEnabled uint32 = 1 << iota
	StatusFault
	StatusAlarm
	StatusThreadMode
	StatusLimitPending
)

// Status is the periodic drive report
type Status struct {
	Tick          uint32
	Current       int32
	Desired       int32
	Shoulder      int32
	Start         int32
	Flags         uint32
	LimitState    uint8
	ShoulderState uint8
	PulseState    uint8
}

// Has reports whether a flag bit is set
func (s Status) Has(flag uint32) bool {
	return s.Flags&flag != 0
}

// Backlog returns desired minus current
func (s Status) Backlog() int32 {
	return s.Desired - s.Current
}

// EncodeStatus writes a status message body
func EncodeStatus(out OutputBuffer, s Status) {
	EncodeVLQUint(out, MsgStatus)
	EncodeVLQUint(out, s.Tick)
	EncodeVLQInt(out, s.Current)
	EncodeVLQInt(out, s.Desired)
	EncodeVLQInt(out, s.Shoulder)
	EncodeVLQInt(out, s.Start)
	EncodeVLQUint(out, s.Flags)
	EncodeVLQUint(out, uint32(s.LimitState))
	EncodeVLQUint(out, uint32(s.ShoulderState))
	EncodeVLQUint(out, uint32(s.PulseState))
}

// DecodeStatus parses a status message body
func DecodeStatus(payload []byte) (Status, error) {
	data := payload
	id, err := DecodeVLQUint(&data)
	if err != nil {
		return Status{}, statusErr(err)
	}
	if id != MsgStatus {
		return Status{}, fmt.Errorf("%w: %d", ErrUnknownMessage, id)
	}

	var s Status
	var small [3]uint32
	fields := []func() error{
		func() (err error) { s.Tick, err = DecodeVLQUint(&data); return },
		func() (err error) { s.Current, err = DecodeVLQInt(&data); return },
		func() (err error) { s.Desired, err = DecodeVLQInt(&data); return },
		func() (err error) { s.Shoulder, err = DecodeVLQInt(&data); return },
		func() (err error) { s.Start, err = DecodeVLQInt(&data); return },
		func() (err error) { s.Flags, err = DecodeVLQUint(&data); return },
		func() (err error) { small[0], err = DecodeVLQUint(&data); return },
		func() (err error) { small[1], err = DecodeVLQUint(&data); return },
		func() (err error) { small[2], err = DecodeVLQUint(&data); return },
	}
	for _, field := range fields {
		if err := field(); err != nil {
			return Status{}, statusErr(err)
		}
	}
	s.LimitState = uint8(small[0])
	s.ShoulderState = uint8(small[1])
	s.PulseState = uint8(small[2])
	return s, nil
}

func statusErr(err error) error {
	if errors.Is(err, ErrBufferTooSmall) {
		return ErrShortStatus
	}
	return err
}
