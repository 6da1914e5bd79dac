package log

// Logger receives capture events. Implementations must be safe for
// concurrent use; Log is called from the connection read loop and must
// not block.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards all events.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
