package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

func makeBaseLogger(logLevelStr string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})

	const defaultLogLevel = logrus.InfoLevel

	logLevelMessage := "Logging at this level"
	logLevel, err := logrus.ParseLevel(logLevelStr)

	switch {
	case logLevelStr == "":
		logLevel = defaultLogLevel
		logLevelMessage += " (default)"
	case err != nil:
		logLevel = defaultLogLevel
		logLevelMessage += fmt.Sprintf(" (LOG_LEVEL=%q -> %s)", logLevelStr, err.Error())
	default:
		logLevelMessage += fmt.Sprintf(" (LOG_LEVEL=%q)", logLevelStr)
	}

	logger.SetLevel(logLevel)
	logger.Debug(logLevelMessage)
	return logger
}
