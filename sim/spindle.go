package sim

// Spindle is a simulated quadrature encoder on a spindle turning at a set
// speed. It implements core.Encoder.
type Spindle struct {
	countsPerRev uint32
	maxCount     uint32
	cycleUS      uint32

	count   uint32
	rpm     uint16
	forward bool
	frac    float64
}

// NewSpindle creates a stopped spindle at count zero
func NewSpindle(countsPerRev, maxCount, cycleUS uint32) *Spindle {
	return &Spindle{
		countsPerRev: countsPerRev,
		maxCount:     maxCount,
		cycleUS:      cycleUS,
		forward:      true,
	}
}

// SetSpeed sets the spindle speed and direction
func (s *Spindle) SetSpeed(rpm uint16, forward bool) {
	s.rpm = rpm
	s.forward = forward
}

// Speed returns the spindle speed and direction
func (s *Spindle) Speed() (uint16, bool) {
	return s.rpm, s.forward
}

func (s *Spindle) Position() uint32 {
	return s.count
}

func (s *Spindle) MaxCount() uint32 {
	return s.maxCount
}

// Advance turns the spindle by one tick at the set speed
func (s *Spindle) Advance() {
	if s.rpm == 0 {
		return
	}
	s.frac += float64(s.rpm) / 60 * float64(s.countsPerRev) * float64(s.cycleUS) / 1e6
	whole := int32(s.frac)
	s.frac -= float64(whole)
	if !s.forward {
		whole = -whole
	}
	s.Turn(whole)
}

// Turn moves the encoder by counts, as when the spindle is turned by hand
func (s *Spindle) Turn(counts int32) {
	m := int64(s.maxCount)
	s.count = uint32(((int64(s.count)+int64(counts))%m + m) % m)
}
