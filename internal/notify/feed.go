// Package notify holds the user-facing notifications raised by the agent.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/niranjanaambadi/lawmate-prod-sub000/pkg/logger"
)

type Level string

const (
	LevelInfo     Level = "info"
	LevelSuccess  Level = "success"
	LevelError    Level = "error"
	LevelProgress Level = "progress"
)

// Notification is one message for the user. Persistent notifications stay
// until dismissed.
type Notification struct {
	ID         string    `json:"id"`
	Level      Level     `json:"level"`
	Message    string    `json:"message"`
	Persistent bool      `json:"persistent"`
	CreatedAt  time.Time `json:"created_at"`
}

// Notifier receives notifications.
type Notifier interface {
	Notify(level Level, message string, persistent bool)
}

// Feed is a bounded, newest-last notification buffer.
type Feed struct {
	mu     sync.RWMutex
	items  []Notification
	max    int
	logger *logger.Logger
	now    func() time.Time
}

// NewFeed creates a feed keeping at most max notifications.
func NewFeed(max int, logger *logger.Logger) *Feed {
	if max <= 0 {
		max = 100
	}
	return &Feed{max: max, logger: logger, now: time.Now}
}

func (f *Feed) Notify(level Level, message string, persistent bool) {
	n := Notification{
		ID:         uuid.NewString(),
		Level:      level,
		Message:    message,
		Persistent: persistent,
		CreatedAt:  f.now(),
	}

	f.mu.Lock()
	f.items = append(f.items, n)
	if len(f.items) > f.max {
		f.items = append([]Notification(nil), f.items[len(f.items)-f.max:]...)
	}
	f.mu.Unlock()

	if level == LevelError {
		f.logger.Warn("User notified", "level", level, "message", message, "persistent", persistent)
	} else {
		f.logger.Debug("User notified", "level", level, "message", message)
	}
}

// Recent returns up to limit notifications, newest first. limit <= 0 means all.
func (f *Feed) Recent(limit int) []Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := len(f.items)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Notification, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, f.items[i])
	}
	return out
}

// Dismiss removes a notification by id.
func (f *Feed) Dismiss(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, n := range f.items {
		if n.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return true
		}
	}
	return false
}

func (f *Feed) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = nil
}
