// Package relay holds one-time codes harvested from inbound email-relay
// events and hands each out at most once.
package relay

import (
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

const sweepInterval = time.Minute

// Store owns the id to entry mapping. All operations serialize through one
// mutex so that LatestCode followed by MarkUsed behaves atomically with
// respect to concurrent webhook deliveries and pollers.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entity.OTPEntry
	ttl     time.Duration
	now     func() time.Time

	sweepStop chan struct{}
	sweepOnce sync.Once
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = entity.DefaultOTPTTL
	}
	return &Store{
		entries:   make(map[string]*entity.OTPEntry),
		ttl:       ttl,
		now:       time.Now,
		sweepStop: make(chan struct{}),
	}
}

// AddCode creates a TTL-bound entry and sweeps expired ones as a side effect.
func (s *Store) AddCode(code, sender, subject, bodyExcerpt string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	bodyExcerpt = truncateExcerpt(bodyExcerpt, 200)

	entry := &entity.OTPEntry{
		ID:          uuid.NewString(),
		Code:        code,
		Sender:      sender,
		Subject:     subject,
		BodyExcerpt: bodyExcerpt,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	s.entries[entry.ID] = entry
	return entry.ID
}

// truncateExcerpt caps s at max bytes without splitting a multi-byte rune.
func truncateExcerpt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// LatestCode returns the most recently created unused, unexpired entry whose
// age is at least minAge. A nil entry means nothing qualifies right now.
// The returned value is a copy; the caller cannot mutate store state.
func (s *Store) LatestCode(minAge time.Duration) *entity.OTPEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	var best *entity.OTPEntry
	for _, e := range s.entries {
		if !e.Available(now) {
			continue
		}
		if now.Sub(e.CreatedAt) < minAge {
			continue
		}
		if best == nil || e.CreatedAt.After(best.CreatedAt) {
			best = e
		}
	}
	if best == nil {
		return nil
	}
	copied := *best
	return &copied
}

// MarkUsed is idempotent: true if the entry exists and is now used (or
// already was), false if the id is unknown.
func (s *Store) MarkUsed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(s.now())

	e, ok := s.entries[id]
	if !ok {
		return false
	}
	e.Used = true
	return true
}

// Cleanup removes exactly the entries whose expiry has passed.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

func (s *Store) sweepLocked(now time.Time) int {
	removed := 0
	for id, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

func (s *Store) Stats() entity.RelayStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stats := entity.RelayStats{Total: len(s.entries)}
	for _, e := range s.entries {
		if e.Used {
			stats.Used++
		} else if !e.Expired(now) {
			stats.Active++
		}
	}
	return stats
}

// Entries returns metadata copies of all retained entries, newest first.
func (s *Store) Entries() []entity.OTPEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entity.OTPEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// StartSweeper runs periodic cleanup for the life of the process,
// independent of any task activity.
func (s *Store) StartSweeper() {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-s.sweepStop:
				return
			}
		}
	}()
}

func (s *Store) Close() {
	s.sweepOnce.Do(func() { close(s.sweepStop) })
}
