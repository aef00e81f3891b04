// Package notify carries user-visible notices from background components
// (position loading and saving) to whatever surface displays them.
package notify

import (
	"log"
	"sync"
	"time"
)

// Kind distinguishes notices that disappear on their own from ones that
// stay until the user acts.
type Kind int

const (
	// Transient notices are dismissed automatically after Timeout.
	Transient Kind = iota
	// Persistent notices stay until dismissed and may offer a retry.
	Persistent
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Persistent:
		return "persistent"
	default:
		return "unknown"
	}
}

// Notice is a single message for the user.
type Notice struct {
	Kind    Kind
	Message string
	Timeout time.Duration // Transient only
	Retry   func()        // nil when the notice offers no retry
}

// Retryable reports whether the notice carries a retry action.
func (n Notice) Retryable() bool {
	return n.Retry != nil
}

// Notifier displays notices.
type Notifier interface {
	Notify(Notice)
}

// Func adapts a function to the Notifier interface.
type Func func(Notice)

func (f Func) Notify(n Notice) { f(n) }

// Discard drops every notice.
var Discard Notifier = Func(func(Notice) {})

// LogNotifier writes notices to the standard logger and remembers the most
// recent retryable one so a terminal UI can offer "retry".
type LogNotifier struct {
	mu        sync.Mutex
	lastRetry *Notice
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (l *LogNotifier) Notify(n Notice) {
	switch n.Kind {
	case Persistent:
		if n.Retryable() {
			log.Printf("[NOTICE] %s (type 'retry' to try again)", n.Message)
		} else {
			log.Printf("[NOTICE] %s", n.Message)
		}
	default:
		log.Printf("[NOTICE] %s", n.Message)
	}

	if n.Retryable() {
		l.mu.Lock()
		notice := n
		l.lastRetry = &notice
		l.mu.Unlock()
	}
}

// Retry runs and clears the last retryable notice's action.
// Returns false when there was nothing to retry.
func (l *LogNotifier) Retry() bool {
	l.mu.Lock()
	n := l.lastRetry
	l.lastRetry = nil
	l.mu.Unlock()

	if n == nil {
		return false
	}
	n.Retry()
	return true
}

// Recorder keeps every notice it receives. Useful in tests.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Count returns how many notices of kind k were recorded.
func (r *Recorder) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, notice := range r.notices {
		if notice.Kind == k {
			n++
		}
	}
	return n
}

// Last returns the most recent notice.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}
