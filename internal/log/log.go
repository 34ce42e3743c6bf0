package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

func init() {
	Logger = logrus.New()
	Logger.Formatter = &logrus.TextFormatter{
		DisableLevelTruncation: true,
		PadLevelText:           true,
		TimestampFormat:        "2006/01/02 15:04:05",
		FullTimestamp:          true,
	}
}

// SetLevel parses a level name such as "debug" or "warn". Unknown names keep the current level.
func SetLevel(level string) {
	if level == "" {
		return
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		Logger.Warnf("unknown log level %q, keeping %s", level, Logger.Level)
		return
	}
	Logger.SetLevel(lvl)
}

func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

func WithField(key string, value any) *logrus.Entry {
	return Logger.WithField(key, value)
}

func Debugf(fmt string, args ...any) {
	Logger.Debugf(fmt, args...)
}

func Infof(fmt string, args ...any) {
	Logger.Infof(fmt, args...)
}

func Info(args ...any) {
	Logger.Infoln(args...)
}

func Warnf(fmt string, args ...any) {
	Logger.Warnf(fmt, args...)
}

func Errorf(fmt string, args ...any) {
	Logger.Errorf(fmt, args...)
}
