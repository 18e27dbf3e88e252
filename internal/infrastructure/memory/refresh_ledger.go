package memory

import (
	"context"
	"sync"
	"time"
)

// RefreshLedger tracks consumed refresh token ids until they expire.
type RefreshLedger struct {
	mu   sync.Mutex
	used map[string]time.Time
	now  func() time.Time
}

func NewRefreshLedger() *RefreshLedger {
	return &RefreshLedger{used: make(map[string]time.Time), now: time.Now}
}

func (l *RefreshLedger) Consume(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.purge(now)

	if exp, ok := l.used[tokenID]; ok && now.Before(exp) {
		return false, nil
	}
	l.used[tokenID] = expiresAt
	return true, nil
}

// purge drops ids whose token could no longer verify anyway.
func (l *RefreshLedger) purge(now time.Time) {
	for id, exp := range l.used {
		if !now.Before(exp) {
			delete(l.used, id)
		}
	}
}

func (l *RefreshLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.used)
}
