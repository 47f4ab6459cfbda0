// Package notify carries user-facing notices about data source activity:
// fetch failures, empty results and successful loads.
package notify

import (
	"sync"
	"time"

	"github.com/dbsmedya/outreachkpi/internal/logger"
)

// Level is the severity of a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is one message shown to the user.
type Notice struct {
	Level   Level     `json:"level"`
	Dataset string    `json:"dataset"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Notifier receives notices.
type Notifier interface {
	Notify(n Notice)
}

// LogNotifier writes notices to the structured log.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a notifier backed by log.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.NewNop()
	}
	return &LogNotifier{log: log}
}

// Notify logs n at the matching level.
func (l *LogNotifier) Notify(n Notice) {
	log := l.log.WithDataset(n.Dataset)
	switch n.Level {
	case LevelError:
		log.Errorw(n.Title, "message", n.Message)
	case LevelWarning:
		log.Warnw(n.Title, "message", n.Message)
	default:
		log.Infow(n.Title, "message", n.Message)
	}
}

// DefaultRingSize is the number of notices a Ring keeps when none is given.
const DefaultRingSize = 100

// Ring keeps the most recent notices in memory.
type Ring struct {
	mu    sync.Mutex
	buf   []Notice
	next  int
	count int
}

// NewRing creates a ring holding up to size notices.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Ring{buf: make([]Notice, size)}
}

// Notify stores n, evicting the oldest notice when full.
func (r *Ring) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.next] = n
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Recent returns up to limit notices, newest first. limit <= 0 returns all.
func (r *Ring) Recent(limit int) []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Notice, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.buf)) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}

// Fanout delivers each notice to every wrapped notifier in order.
type Fanout []Notifier

// Notify forwards n.
func (f Fanout) Notify(n Notice) {
	for _, nt := range f {
		if nt != nil {
			nt.Notify(n)
		}
	}
}
