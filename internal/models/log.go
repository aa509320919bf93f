package models

import (
	"time"

	"github.com/sirupsen/logrus"
)

// LogEntry is a recorded diagnostic event.
type LogEntry struct {
	Data    logrus.Fields `json:"data,omitempty"`
	Time    time.Time     `json:"time"`
	Level   logrus.Level  `json:"level"`
	Message string        `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
}

func NewLogEntry(entry *logrus.Entry) *LogEntry {
	logEntry := &LogEntry{
		Data:    make(logrus.Fields, len(entry.Data)),
		Time:    entry.Time,
		Level:   entry.Level,
		Message: entry.Message,
	}

	for key, value := range entry.Data {
		if err, ok := value.(error); ok && key == logrus.ErrorKey {
			logEntry.Error = err.Error()
			continue
		}
		logEntry.Data[key] = value
	}

	return logEntry
}
