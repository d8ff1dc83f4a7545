package logsvc

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/masomo/core"
)

type ZapLogger struct {
	inner *zap.SugaredLogger
}

var _ core.Logger = ZapLogger{}

func NewZapLogger(log *zap.Logger) ZapLogger {
	return ZapLogger{inner: log.Sugar()}
}

// NewZap builds the app logger: JSON in production, console output in debug mode.
// Errors logged under the "error" key carry their stack trace (errorVerbose).
func NewZap(conf *core.Config) (ZapLogger, *zap.Logger, error) {
	zconf := zap.NewProductionConfig()
	if conf.Debug {
		zconf = zap.NewDevelopmentConfig()
	}
	if conf.LogLevel != "" {
		lvl, err := zapcore.ParseLevel(conf.LogLevel)
		if err != nil {
			return ZapLogger{}, nil, errors.Wrapf(err, "parsing log level %q", conf.LogLevel)
		}
		zconf.Level = zap.NewAtomicLevelAt(lvl)
	}

	log, err := zconf.Build(zap.Fields(zap.String("app", conf.AppName), zap.String("build", conf.Build)))
	if err != nil {
		return ZapLogger{}, nil, errors.Wrap(err, "building zap logger")
	}
	return NewZapLogger(log), log, nil
}

func (l ZapLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.inner.Debugw(msg, keysAndValues...)
}

func (l ZapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.inner.Infow(msg, keysAndValues...)
}

func (l ZapLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.inner.Warnw(msg, keysAndValues...)
}

func (l ZapLogger) Error(msg string, keysAndValues ...interface{}) {
	l.inner.Errorw(msg, keysAndValues...)
}

func (l ZapLogger) Fatal(msg string, keysAndValues ...interface{}) {
	l.inner.Fatalw(msg, keysAndValues...)
}
