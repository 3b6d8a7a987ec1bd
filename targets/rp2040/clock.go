//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWL = timerBase + 0x0C // Raw timer low word
)

var timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))

// hardwareTime returns the low 32 bits of the 1MHz microsecond counter
func hardwareTime() uint32 {
	return timerRAWL.Get()
}

// pacer releases ticks at a fixed period measured on the hardware timer
type pacer struct {
	period uint32
	next   uint32
	late   uint32 // ticks skipped because the loop fell behind
}

func newPacer(periodUS uint32) *pacer {
	return &pacer{period: periodUS, next: hardwareTime() + periodUS}
}

// due returns true once per period. After falling more than a few periods
// behind, the missed ticks are dropped rather than run back to back.
func (p *pacer) due(now uint32) bool {
	if int32(now-p.next) < 0 {
		return false
	}
	p.next += p.period
	if behind := now - p.next; int32(behind) > int32(4*p.period) {
		p.late += behind / p.period
		p.next = now + p.period
	}
	return true
}
