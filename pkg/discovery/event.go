package discovery

import "time"

// EventKind classifies a diagnostic Event.
type EventKind uint8

const (
	EventProbeResponded EventKind = iota
	EventProbeSilent
	EventConfirmStarted
	EventConfirmed
	EventConfirmFailed
	EventConfirmTimeout
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventProbeResponded:
		return "PROBE_RESPONDED"
	case EventProbeSilent:
		return "PROBE_SILENT"
	case EventConfirmStarted:
		return "CONFIRM_STARTED"
	case EventConfirmed:
		return "CONFIRMED"
	case EventConfirmFailed:
		return "CONFIRM_FAILED"
	case EventConfirmTimeout:
		return "CONFIRM_TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Event is a diagnostic emitted during a scan. EventConfirmStarted has no
// Address; it carries the number of candidates in Count and the
// per-candidate timeout in Duration.
type Event struct {
	Kind     EventKind
	Address  string
	Info     string
	Err      error
	Duration time.Duration
	Count    int
}
