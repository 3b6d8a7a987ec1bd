package core

// Encoder reports the spindle position as a count in [0, MaxCount()).
// The count wraps from MaxCount()-1 to 0 going forward.
type Encoder interface {
	Position() uint32
	MaxCount() uint32
}

// Feed is the gear ratio from encoder counts to motor steps
type Feed struct {
	Numerator   int64
	Denominator int64
}

// Valid returns true when the ratio can be applied
func (f Feed) Valid() bool {
	return f.Denominator != 0
}

// StepsPerRevolution returns motor steps per spindle revolution for an
// encoder with the given counts per revolution.
func (f Feed) StepsPerRevolution(countsPerRev uint32) float32 {
	if !f.Valid() {
		return 0
	}
	return float32(int64(countsPerRev)*f.Numerator) / float32(f.Denominator)
}

// Follower turns spindle encoder counts into the drive's desired position
// at the selected feed.
type Follower struct {
	drive        *Drive
	encoder      Encoder
	countsPerRev uint32

	feed      Feed
	direction int64

	prevFeed      Feed
	prevDirection int64
	prevCount     uint32
}

// NewFollower creates a follower. countsPerRev is the encoder resolution per
// spindle revolution.
func NewFollower(d *Drive, enc Encoder, countsPerRev uint32) *Follower {
	return &Follower{
		drive:        d,
		encoder:      enc,
		countsPerRev: countsPerRev,
		direction:    1,
	}
}

// SetFeed selects the feed ratio and updates the drive's pitch
func (f *Follower) SetFeed(feed Feed) {
	state := disableInterrupts()
	f.feed = feed
	f.drive.stepsPerUnitPitch = feed.StepsPerRevolution(f.countsPerRev)
	restoreInterrupts(state)
}

// Feed returns the selected feed
func (f *Follower) Feed() Feed {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return f.feed
}

// SetReverse selects left-hand (reverse) motion
func (f *Follower) SetReverse(reverse bool) {
	state := disableInterrupts()
	if reverse {
		f.direction = -1
	} else {
		f.direction = 1
	}
	restoreInterrupts(state)
}

// StepsPerUnitPitch returns motor steps per spindle revolution at the
// selected feed
func (f *Follower) StepsPerUnitPitch() float32 {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return f.feed.StepsPerRevolution(f.countsPerRev)
}

func (f *Follower) ratio(count uint32) int32 {
	return int32(int64(count) * f.feed.Numerator / f.feed.Denominator * f.direction)
}

// Tick updates the desired position from the encoder and runs the drive.
// Does nothing until a feed is selected.
func (f *Follower) Tick(rpm uint16, forward bool) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if !f.feed.Valid() {
		return
	}
	d := f.drive
	count := f.encoder.Position()
	desired := f.ratio(count)
	d.desired.Store(desired)

	maxCount := f.encoder.MaxCount()
	if f.prevFeed.Valid() {
		switch {
		case count < f.prevCount && f.prevCount-count > maxCount/2:
			adjust := -f.ratio(maxCount)
			d.incrementCurrent(adjust)
			d.record(EvtWrap, adjust, int32(count))
		case count > f.prevCount && count-f.prevCount > maxCount/2:
			adjust := f.ratio(maxCount)
			d.incrementCurrent(adjust)
			d.record(EvtWrap, adjust, int32(count))
		}
	}
	if f.feed != f.prevFeed || f.direction != f.prevDirection {
		// new ratio, start following from here
		d.current.Store(desired)
		d.record(EvtResync, desired, 0)
		f.prevFeed = f.feed
		f.prevDirection = f.direction
	}
	f.prevCount = count

	d.tick(rpm, forward)
}
