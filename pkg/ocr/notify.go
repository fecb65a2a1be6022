package ocr

import (
	"log/slog"
	"sync"
)

// Notifier is the user-facing loading indicator and error toast.
type Notifier interface {
	SetLoading(loading bool)
	NotifyError(err error)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) SetLoading(bool)   {}
func (NopNotifier) NotifyError(error) {}

// LogNotifier reports through slog, for the CLI.
type LogNotifier struct{}

func (LogNotifier) SetLoading(loading bool) {
	if loading {
		slog.Info("Analyzing image")
	}
}

func (LogNotifier) NotifyError(err error) {
	slog.Error("Failed to analyze image", "err", err)
}

// StatusNotifier remembers the last notification so it can be polled,
// which is how the web UI shows its loading spinner and error toast.
type StatusNotifier struct {
	mu      sync.Mutex
	loading bool
	message string
}

func (n *StatusNotifier) SetLoading(loading bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.loading = loading
	if loading {
		n.message = ""
	}
}

func (n *StatusNotifier) NotifyError(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.message = "Failed to analyze image: " + err.Error()
}

// Status returns the loading flag and the last error message.
func (n *StatusNotifier) Status() (bool, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loading, n.message
}
