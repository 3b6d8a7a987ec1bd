package core

import "sync/atomic"

// quadTable maps (previous AB << 2 | current AB) to a count delta
var quadTable = [16]int8{
	0, -1, 1, 0,
	1, 0, 0, -1,
	-1, 0, 0, 1,
	0, 1, -1, 0,
}

// Quadrature decodes A/B encoder channel levels into a position counter in
// [0, MaxCount()). It implements Encoder. Update must not be called
// concurrently with itself; Position may be read from anywhere.
type Quadrature struct {
	maxCount uint32
	state    uint8
	count    atomic.Uint32
	errors   atomic.Uint32
}

// NewQuadrature creates a decoder whose channels currently read a and b
func NewQuadrature(maxCount uint32, a, b bool) *Quadrature {
	q := &Quadrature{maxCount: maxCount}
	q.state = quadState(a, b)
	return q
}

func quadState(a, b bool) uint8 {
	var s uint8
	if a {
		s |= 2
	}
	if b {
		s |= 1
	}
	return s
}

// Update takes the channel levels after an edge on either channel
func (q *Quadrature) Update(a, b bool) {
	next := quadState(a, b)
	idx := q.state<<2 | next
	q.state = next

	switch quadTable[idx] {
	case 1:
		c := q.count.Load() + 1
		if c >= q.maxCount {
			c = 0
		}
		q.count.Store(c)
	case -1:
		c := q.count.Load()
		if c == 0 {
			c = q.maxCount
		}
		q.count.Store(c - 1)
	default:
		// both channels changed: a missed edge
		if q.state != idx>>2 {
			q.errors.Add(1)
		}
	}
}

func (q *Quadrature) Position() uint32 {
	return q.count.Load()
}

func (q *Quadrature) MaxCount() uint32 {
	return q.maxCount
}

// Errors returns the number of invalid transitions seen
func (q *Quadrature) Errors() uint32 {
	return q.errors.Load()
}
