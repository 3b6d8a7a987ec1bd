package core

import "strconv"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event captures a control transition for post-mortem analysis
type Event struct {
	Type   uint8  // Event type code
	Tick   uint32 // Drive tick at event
	Value1 int32  // Context-dependent value
	Value2 int32  // Context-dependent value
}

// Event type codes
const (
	EvtLimitState      = 1 // limit arbiter changed state (v1=old, v2=new)
	EvtBacklogFault    = 2 // backlog monitor disabled the drive (v1=backlog)
	EvtShoulderHold    = 3 // shoulder reached, stepping held (v1=desired, v2=shoulder)
	EvtShoulderRelease = 4 // shoulder hold released
	EvtRetractDone     = 5 // move-to-start finished (v1=current)
	EvtResync          = 6 // follower snapped current to desired (v1=desired)
	EvtWrap            = 7 // encoder wrapped (v1=adjustment)
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// eventRing is a fixed ring of recent events. It is written from the tick
// handler and never allocates.
type eventRing struct {
	events [EventRingSize]Event
	head   uint8
}

func (r *eventRing) record(eventType uint8, tick uint32, value1, value2 int32) {
	r.events[r.head] = Event{Type: eventType, Tick: tick, Value1: value1, Value2: value2}
	r.head = (r.head + 1) % EventRingSize
}

// snapshot returns the recorded events oldest first
func (r *eventRing) snapshot() []Event {
	out := make([]Event, 0, EventRingSize)
	for i := uint8(0); i < EventRingSize; i++ {
		evt := r.events[(r.head+i)%EventRingSize]
		if evt.Type == 0 {
			continue // Empty slot
		}
		out = append(out, evt)
	}
	return out
}

func (r *eventRing) clear() {
	*r = eventRing{}
}

// EventName returns a short name for an event type code
func EventName(eventType uint8) string {
	switch eventType {
	case EvtLimitState:
		return "LIMIT_STATE"
	case EvtBacklogFault:
		return "BACKLOG_FAULT!"
	case EvtShoulderHold:
		return "SHOULDER_HOLD"
	case EvtShoulderRelease:
		return "SHOULDER_RELEASE"
	case EvtRetractDone:
		return "RETRACT_DONE"
	case EvtResync:
		return "RESYNC"
	case EvtWrap:
		return "WRAP"
	default:
		return "UNKNOWN"
	}
}

// DumpEvents writes the event ring through the debug writer.
// Call from the polling loop, never from the tick handler.
func DumpEvents(events []Event) {
	if debugPrintln == nil {
		return
	}
	debugPrintln("[EVENTS] === Event Ring Dump ===")
	for _, evt := range events {
		debugPrintln("[EVENTS] " + EventName(evt.Type) +
			" tick=" + strconv.FormatUint(uint64(evt.Tick), 10) +
			" v1=" + strconv.Itoa(int(evt.Value1)) +
			" v2=" + strconv.Itoa(int(evt.Value2)))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}
