package core

// TicksPerSecond returns the tick rate for a cycle period in microseconds
func TicksPerSecond(cycleUS uint32) uint32 {
	if cycleUS == 0 {
		return 0
	}
	return 1000000 / cycleUS
}

// TicksFromUS converts microseconds to drive ticks
func TicksFromUS(us, cycleUS uint32) uint32 {
	if cycleUS == 0 {
		return 0
	}
	return us / cycleUS
}

// TicksToUS converts drive ticks to microseconds
func TicksToUS(ticks, cycleUS uint32) uint32 {
	return ticks * cycleUS
}

// RPMMeter estimates spindle speed and direction from encoder counts
// sampled at a known interval.
type RPMMeter struct {
	countsPerRev uint32
	maxCount     uint32

	last    uint32
	primed  bool
	rpm     uint16
	forward bool
}

// NewRPMMeter creates a meter for an encoder with the given resolution and
// counter range
func NewRPMMeter(countsPerRev, maxCount uint32) *RPMMeter {
	return &RPMMeter{countsPerRev: countsPerRev, maxCount: maxCount, forward: true}
}

// Sample takes the encoder count elapsedUS after the previous sample and
// returns the speed and direction. Direction holds its last value while the
// spindle is stopped.
func (m *RPMMeter) Sample(count, elapsedUS uint32) (rpm uint16, forward bool) {
	if !m.primed || elapsedUS == 0 || m.countsPerRev == 0 {
		m.last = count
		m.primed = true
		return m.rpm, m.forward
	}

	delta := int64(count) - int64(m.last)
	half := int64(m.maxCount / 2)
	if delta > half {
		delta -= int64(m.maxCount)
	} else if delta < -half {
		delta += int64(m.maxCount)
	}
	m.last = count

	if delta != 0 {
		m.forward = delta > 0
	}
	if delta < 0 {
		delta = -delta
	}
	r := uint64(delta) * 60000000 / (uint64(m.countsPerRev) * uint64(elapsedUS))
	if r > 0xffff {
		r = 0xffff
	}
	m.rpm = uint16(r)
	return m.rpm, m.forward
}

// RPM returns the last computed speed
func (m *RPMMeter) RPM() uint16 {
	return m.rpm
}

// Forward returns the last observed direction
func (m *RPMMeter) Forward() bool {
	return m.forward
}
