package visitor

import (
	"log/slog"
	"sync"
)

// Notifier receives progress narration and recoverable problems during an operation.
// Implementations must be safe for concurrent use; image downloads report in parallel.
type Notifier interface {
	Status(message string)
	Warn(message string)
}

// LogNotifier forwards notifications to a structured logger
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) logger() *slog.Logger {
	if n.Logger == nil {
		return slog.Default()
	}
	return n.Logger
}

// Status logs at info level
func (n LogNotifier) Status(message string) {
	n.logger().Info(message)
}

// Warn logs at warn level
func (n LogNotifier) Warn(message string) {
	n.logger().Warn(message)
}

// Recorder collects notifications and optionally forwards them
type Recorder struct {
	Next Notifier

	mu       sync.Mutex
	statuses []string
	warnings []string
}

// Status records a status message
func (r *Recorder) Status(message string) {
	r.mu.Lock()
	r.statuses = append(r.statuses, message)
	r.mu.Unlock()
	if r.Next != nil {
		r.Next.Status(message)
	}
}

// Warn records a warning
func (r *Recorder) Warn(message string) {
	r.mu.Lock()
	r.warnings = append(r.warnings, message)
	r.mu.Unlock()
	if r.Next != nil {
		r.Next.Warn(message)
	}
}

// Statuses returns a copy of the recorded status messages
func (r *Recorder) Statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses...)
}

// Warnings returns a copy of the recorded warnings
func (r *Recorder) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warnings...)
}

type discardNotifier struct{}

func (discardNotifier) Status(string) {}
func (discardNotifier) Warn(string)   {}

func notifierOrDiscard(n Notifier) Notifier {
	if n == nil {
		return discardNotifier{}
	}
	return n
}
