//go:build rp2040

package main

import (
	"machine"

	"els/core"
)

// QuadratureEncoder feeds spindle encoder edges from pin interrupts into a
// decoder. Both channel interrupts run at the same priority, so Update is
// never reentered.
type QuadratureEncoder struct {
	*core.Quadrature
	a, b machine.Pin
}

// NewQuadratureEncoder configures the channel pins and their interrupts
func NewQuadratureEncoder(a, b machine.Pin, maxCount uint32) (*QuadratureEncoder, error) {
	a.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	b.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	e := &QuadratureEncoder{
		Quadrature: core.NewQuadrature(maxCount, a.Get(), b.Get()),
		a:          a,
		b:          b,
	}

	edges := machine.PinRising | machine.PinFalling
	if err := a.SetInterrupt(edges, e.edge); err != nil {
		return nil, err
	}
	if err := b.SetInterrupt(edges, e.edge); err != nil {
		return nil, err
	}
	return e, nil
}

// edge runs in interrupt context
func (e *QuadratureEncoder) edge(machine.Pin) {
	e.Update(e.a.Get(), e.b.Get())
}
