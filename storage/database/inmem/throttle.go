package inmemdb

import (
	"context"
	"sync"
	"time"

	"github.com/phoenixacademy/resultsportal/core/security"
)

type (
	throttle struct {
		window  time.Duration
		entries map[string]*throttleEntry
		mutex   sync.Mutex
	}

	throttleEntry struct {
		count   int
		expires time.Time
	}
)

var _ security.Throttle = (*throttle)(nil)

// NewThrottle returns a fixed-window login throttle kept in memory.
func NewThrottle(window time.Duration) security.Throttle {
	return &throttle{window: window, entries: make(map[string]*throttleEntry)}
}

func (t *throttle) current(key string, now time.Time) *throttleEntry {
	entry, ok := t.entries[key]
	if !ok || !now.Before(entry.expires) {
		return nil
	}
	return entry
}

func (t *throttle) Hit(_ context.Context, key string) (int, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	now := time.Now()
	entry := t.current(key, now)
	if entry == nil {
		entry = &throttleEntry{expires: now.Add(t.window)}
		t.entries[key] = entry
	}
	entry.count++
	return entry.count, nil
}

func (t *throttle) Count(_ context.Context, key string) (int, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if entry := t.current(key, time.Now()); entry != nil {
		return entry.count, nil
	}
	return 0, nil
}

func (t *throttle) Reset(_ context.Context, key string) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	delete(t.entries, key)
	return nil
}
