package config

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pipedeck/console/internal/models"
)

const defaultDiagnosticsSize = 200

// DiagnosticsHook keeps the most recent warnings and errors in a ring
// buffer. Recovered session failures are logged, never returned to callers,
// so this is where they can be inspected afterwards.
type DiagnosticsHook struct {
	mu          sync.RWMutex
	eventBuffer []*models.LogEntry
	maxSize     int
	currentPos  int
	isFull      bool
}

func NewDiagnosticsHook(size int) *DiagnosticsHook {
	if size <= 0 {
		size = defaultDiagnosticsSize
	}
	return &DiagnosticsHook{
		eventBuffer: make([]*models.LogEntry, size),
		maxSize:     size,
	}
}

func (d *DiagnosticsHook) Fire(entry *logrus.Entry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.eventBuffer[d.currentPos] = models.NewLogEntry(entry)
	d.currentPos = (d.currentPos + 1) % d.maxSize

	if d.currentPos == 0 {
		d.isFull = true
	}

	return nil
}

func (d *DiagnosticsHook) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
	}
}

func (d *DiagnosticsHook) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.eventBuffer = make([]*models.LogEntry, d.maxSize)
	d.currentPos = 0
	d.isFull = false
}

// Entries returns recorded events oldest first.
func (d *DiagnosticsHook) Entries() []*models.LogEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.isFull {
		result := make([]*models.LogEntry, d.currentPos)
		copy(result, d.eventBuffer[:d.currentPos])
		return result
	}

	result := make([]*models.LogEntry, d.maxSize)
	copy(result, d.eventBuffer[d.currentPos:])
	copy(result[d.maxSize-d.currentPos:], d.eventBuffer[:d.currentPos])
	return result
}

func (d *DiagnosticsHook) Recent(count int) []*models.LogEntry {
	events := d.Entries()
	if len(events) <= count {
		return events
	}
	return events[len(events)-count:]
}
