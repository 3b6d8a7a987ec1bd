//go:build linux

package main

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"

	"els/core"
)

// edgePoll bounds how long a watcher blocks before checking for shutdown
const edgePoll = 100 * time.Millisecond

// watchLimit raises the drive's limit flag on every edge into the active
// level
func watchLimit(ctx context.Context, pin gpio.PinIO, activeHigh bool, drive *core.Drive, log *zap.Logger) error {
	edge := gpio.FallingEdge
	active := gpio.Low
	if activeHigh {
		edge = gpio.RisingEdge
		active = gpio.High
	}
	if err := pin.In(gpio.PullUp, edge); err != nil {
		return err
	}

	for ctx.Err() == nil {
		if !pin.WaitForEdge(edgePoll) {
			continue
		}
		if pin.Read() == active {
			drive.LimitReached()
			log.Debug("limit switch", zap.Stringer("pin", pin))
		}
	}
	return nil
}

// quadratureInput decodes the spindle encoder from two edge watchers
type quadratureInput struct {
	*core.Quadrature
	mu   sync.Mutex
	a, b gpio.PinIO
}

func newQuadratureInput(a, b gpio.PinIO, maxCount uint32) (*quadratureInput, error) {
	for _, p := range []gpio.PinIO{a, b} {
		if err := p.In(gpio.PullUp, gpio.BothEdges); err != nil {
			return nil, err
		}
	}
	return &quadratureInput{
		Quadrature: core.NewQuadrature(maxCount, a.Read() == gpio.High, b.Read() == gpio.High),
		a:          a,
		b:          b,
	}, nil
}

// watch follows one channel until ctx is done
func (q *quadratureInput) watch(ctx context.Context, pin gpio.PinIO) error {
	for ctx.Err() == nil {
		if !pin.WaitForEdge(edgePoll) {
			continue
		}
		q.mu.Lock()
		q.Update(q.a.Read() == gpio.High, q.b.Read() == gpio.High)
		q.mu.Unlock()
	}
	return nil
}
