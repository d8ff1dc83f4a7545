package core

// Logger is implemented by the app loggers (see services/logger).
// Arguments after msg are alternating keys and values, eg. `logger.Error("querying", "error", err, "dataset", name)`.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Fatal(msg string, keysAndValues ...interface{})
}
