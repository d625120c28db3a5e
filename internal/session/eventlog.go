package session

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// eventLogName is the free-text per-site event log inside the site's
// artifact directory.
const eventLogName = "logs.txt"

// eventLog appends timestamped free-text lines to a site's logs.txt.
//
// A nil *eventLog is a valid no-op logger, so a site whose log file could
// not be opened still crawls; the structured logger carries the same
// information either way.
type eventLog struct {
	mu sync.Mutex
	f  *os.File
}

// openEventLog opens (creating if needed) the event log at path for append.
func openEventLog(path string) (*eventLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &eventLog{f: f}, nil
}

// printf appends one timestamped line. Write errors are swallowed; the
// event log is an artifact, not a dependency.
func (l *eventLog) printf(format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.f, "%s %s\n", time.Now().Format(time.RFC3339), line)
}

// Close closes the underlying file.
func (l *eventLog) Close() error {
	if l == nil {
		return nil
	}
	return l.f.Close()
}
