package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryDenylist keeps revoked token ids in process. Entries are dropped
// once the token would have expired anyway.
type MemoryDenylist struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{revoked: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revoked[tokenID] = until
	return nil
}

func (d *MemoryDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	d.mu.RLock()
	until, exists := d.revoked[tokenID]
	d.mu.RUnlock()
	if !exists {
		return false, nil
	}
	return d.now().Before(until), nil
}

// Sweep removes expired entries and returns how many were dropped.
func (d *MemoryDenylist) Sweep() int {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for id, until := range d.revoked {
		if !now.Before(until) {
			delete(d.revoked, id)
			n++
		}
	}
	return n
}

// Run sweeps on every tick until ctx is done.
func (d *MemoryDenylist) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Sweep()
		}
	}
}
