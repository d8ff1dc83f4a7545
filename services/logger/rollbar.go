package logsvc

import (
	"fmt"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/spf13/cast"

	"github.com/trezcool/masomo/core"
)

// RollbarLogger reports warnings and errors to Rollbar and delegates every entry to the inner logger.
type RollbarLogger struct {
	inner core.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(inner core.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{inner: inner}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Close waits for the queued items to be sent.
func (l RollbarLogger) Close() {
	rollbar.Close()
}

// prepare turns the key/value pairs into rollbar arguments: msg, the logged error (if any) and the extras.
// The person is set from the "principal_id" and "principal_kind" keys.
func (l RollbarLogger) prepare(msg string, keysAndValues []interface{}) []interface{} {
	args := []interface{}{msg}
	extras := make(map[string]interface{}, len(keysAndValues)/2)
	var personID, personKind string

	for i := 0; i < len(keysAndValues); i += 2 {
		key := cast.ToString(keysAndValues[i])
		var val interface{}
		if i+1 < len(keysAndValues) {
			val = keysAndValues[i+1]
		}
		switch key {
		case "error":
			if err, ok := val.(error); ok {
				args = append(args, err)
				continue
			}
		case "principal_id":
			personID = cast.ToString(val)
		case "principal_kind":
			personKind = cast.ToString(val)
		}
		extras[key] = fmt.Sprintf("%v", val)
	}

	if personID != "" {
		rollbar.SetPerson(personID, personKind, "")
	} else {
		rollbar.ClearPerson()
	}
	if len(extras) > 0 {
		args = append(args, extras)
	}
	return args
}

func (l RollbarLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.inner.Debug(msg, keysAndValues...)
}

func (l RollbarLogger) Info(msg string, keysAndValues ...interface{}) {
	l.inner.Info(msg, keysAndValues...)
}

func (l RollbarLogger) Warn(msg string, keysAndValues ...interface{}) {
	rollbar.Warning(l.prepare(msg, keysAndValues)...)
	l.inner.Warn(msg, keysAndValues...)
}

func (l RollbarLogger) Error(msg string, keysAndValues ...interface{}) {
	rollbar.Error(l.prepare(msg, keysAndValues)...)
	l.inner.Error(msg, keysAndValues...)
}

func (l RollbarLogger) Fatal(msg string, keysAndValues ...interface{}) {
	rollbar.Critical(l.prepare(msg, keysAndValues)...)
	rollbar.Close()
	l.inner.Fatal(msg, keysAndValues...)
}
