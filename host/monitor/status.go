package monitor

import (
	"els/core"
	"els/protocol"
)

// StatusView is the JSON form of a status report
type StatusView struct {
	Tick          uint32 `json:"tick"`
	Current       int32  `json:"current"`
	Desired       int32  `json:"desired"`
	Backlog       int32  `json:"backlog"`
	Shoulder      int32  `json:"shoulder"`
	Start         int32  `json:"start"`
	Enabled       bool   `json:"enabled"`
	Fault         bool   `json:"fault"`
	Alarm         bool   `json:"alarm"`
	ThreadMode    bool   `json:"thread_mode"`
	LimitPending  bool   `json:"limit_pending"`
	LimitState    string `json:"limit_state"`
	ShoulderState string `json:"shoulder_state"`
	PulseState    string `json:"pulse_state"`
}

// NewStatusView converts a decoded status report
func NewStatusView(s protocol.Status) StatusView {
	return StatusView{
		Tick:          s.Tick,
		Current:       s.Current,
		Desired:       s.Desired,
		Backlog:       s.Backlog(),
		Shoulder:      s.Shoulder,
		Start:         s.Start,
		Enabled:       s.Has(protocol.StatusEnabled),
		Fault:         s.Has(protocol.StatusFault),
		Alarm:         s.Has(protocol.StatusAlarm),
		ThreadMode:    s.Has(protocol.StatusThreadMode),
		LimitPending:  s.Has(protocol.StatusLimitPending),
		LimitState:    core.LimitState(s.LimitState).String(),
		ShoulderState: core.ShoulderState(s.ShoulderState).String(),
		PulseState:    core.PulseState(s.PulseState).String(),
	}
}
