package cli

import (
	"io"

	"github.com/sirupsen/logrus"
)

// newLogger writes to w. Verbose forces debug level, otherwise level is
// parsed from the config and falls back to warn.
func newLogger(w io.Writer, verbose bool, level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if verbose {
		log.SetLevel(logrus.DebugLevel)
		return log
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.WarnLevel
	}
	log.SetLevel(lvl)
	return log
}
