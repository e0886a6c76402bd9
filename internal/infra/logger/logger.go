package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. dev gets readable text, everything else JSON.
func New(level string, dev bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if dev {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableLevelTruncation: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}
