package output

import (
	"io"

	log "github.com/sirupsen/logrus"
)

// InitLogging configures the global logger. Log lines go to w so stdout
// stays reserved for reports; pass os.Stderr in binaries.
func InitLogging(w io.Writer, level log.Level) {
	log.SetOutput(w)
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
}

// LogLevel maps the verbosity flags to a logrus level. Quiet wins over
// verbose.
func LogLevel(verbose int, quiet bool) log.Level {
	if quiet {
		return log.ErrorLevel
	}
	switch {
	case verbose >= 2:
		return log.TraceLevel
	case verbose == 1:
		return log.DebugLevel
	default:
		return log.InfoLevel
	}
}
