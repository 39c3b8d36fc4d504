package instr

// Logger is the observability port used by facades, e.g. to report drained
// device error queue entries.  *log.Logger and *structlog.Logger both
// satisfy it.
type Logger interface {
	Printf(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...interface{}) {}

// NopLogger discards everything.  It is the default when a facade is
// constructed with a nil logger.
var NopLogger Logger = nopLogger{}
