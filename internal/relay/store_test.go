package relay

import (
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(ttl time.Duration) (*Store, *time.Time) {
	s := NewStore(ttl)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestLatestCode_ReturnsNewest(t *testing.T) {
	s, now := newTestStore(10 * time.Minute)

	s.AddCode("111111", "a@example.com", "first", "")
	*now = now.Add(time.Second)
	id2 := s.AddCode("222222", "b@example.com", "second", "")

	entry := s.LatestCode(0)
	require.NotNil(t, entry)
	assert.Equal(t, id2, entry.ID)
	assert.Equal(t, "222222", entry.Code)
}

func TestLatestCode_UnretrievableAfterUse(t *testing.T) {
	s, _ := newTestStore(10 * time.Minute)

	id := s.AddCode("482913", "otp@example.com", "Your code", "")

	entry := s.LatestCode(0)
	require.NotNil(t, entry)
	assert.Equal(t, id, entry.ID)

	assert.True(t, s.MarkUsed(id))
	assert.Nil(t, s.LatestCode(0), "used entry must never be handed out again")

	// MarkUsed is idempotent.
	assert.True(t, s.MarkUsed(id))
}

func TestLatestCode_UnretrievableAfterExpiry(t *testing.T) {
	s, now := newTestStore(10 * time.Minute)

	s.AddCode("482913", "otp@example.com", "Your code", "")
	*now = now.Add(10*time.Minute + time.Second)

	assert.Nil(t, s.LatestCode(0))
}

func TestLatestCode_MinAge(t *testing.T) {
	s, now := newTestStore(10 * time.Minute)

	s.AddCode("482913", "otp@example.com", "Your code", "")

	assert.Nil(t, s.LatestCode(5*time.Second), "entry younger than minAge must not be returned")

	*now = now.Add(6 * time.Second)
	entry := s.LatestCode(5 * time.Second)
	require.NotNil(t, entry)
	assert.Equal(t, "482913", entry.Code)
}

func TestCleanup_RemovesOnlyExpired(t *testing.T) {
	s, now := newTestStore(10 * time.Minute)

	s.AddCode("111111", "a@example.com", "old", "")
	*now = now.Add(9 * time.Minute)
	idFresh := s.AddCode("222222", "b@example.com", "fresh", "")

	*now = now.Add(2 * time.Minute) // old is past TTL, fresh is not

	removed := s.Cleanup()
	assert.Equal(t, 1, removed)

	stats := s.Stats()
	assert.Equal(t, 1, stats.Total)

	entry := s.LatestCode(0)
	require.NotNil(t, entry)
	assert.Equal(t, idFresh, entry.ID)
	assert.Equal(t, "222222", entry.Code, "surviving entry fields must be untouched")
	assert.Equal(t, "b@example.com", entry.Sender)
}

func TestMarkUsed_UnknownID(t *testing.T) {
	s, _ := newTestStore(10 * time.Minute)

	s.AddCode("111111", "a@example.com", "subject", "")

	assert.False(t, s.MarkUsed("no-such-id"))

	// Nothing was mutated.
	entry := s.LatestCode(0)
	require.NotNil(t, entry)
	assert.False(t, entry.Used)
}

// Truncating the excerpt at a fixed byte offset could split a multi-byte
// rune; the cut must land on a rune boundary and keep the string valid UTF-8.
func TestAddCode_ExcerptTruncatesOnRuneBoundary(t *testing.T) {
	s, _ := newTestStore(10 * time.Minute)

	// 199 ASCII bytes followed by a 3-byte rune straddling the 200-byte cap.
	body := strings.Repeat("a", 199) + "日本語"
	s.AddCode("111111", "a@example.com", "subject", body)

	entry := s.LatestCode(0)
	require.NotNil(t, entry)
	assert.True(t, utf8.ValidString(entry.BodyExcerpt))
	assert.Equal(t, strings.Repeat("a", 199), entry.BodyExcerpt)
	assert.LessOrEqual(t, len(entry.BodyExcerpt), 200)

	// Short bodies pass through untouched.
	s.AddCode("222222", "b@example.com", "subject", "short 日本語")
	entry = s.LatestCode(0)
	require.NotNil(t, entry)
	assert.Equal(t, "short 日本語", entry.BodyExcerpt)
}

func TestStats(t *testing.T) {
	s, now := newTestStore(10 * time.Minute)

	id1 := s.AddCode("111111", "a@example.com", "one", "")
	s.AddCode("222222", "b@example.com", "two", "")
	s.MarkUsed(id1)

	stats := s.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Used)

	*now = now.Add(11 * time.Minute)
	s.Cleanup()
	assert.Equal(t, 0, s.Stats().Total)
}

// Webhook writers and pollers hit the store concurrently; every operation
// must serialize through the store mutex. Run with -race.
func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore(10 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.AddCode("552013", "otp@example.com", "code", "body")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if entry := s.LatestCode(0); entry != nil {
					s.MarkUsed(entry.ID)
				}
				s.Cleanup()
				s.Stats()
			}
		}()
	}
	wg.Wait()

	// A used entry is never offered again, regardless of interleaving.
	for {
		entry := s.LatestCode(0)
		if entry == nil {
			break
		}
		assert.False(t, entry.Used)
		s.MarkUsed(entry.ID)
	}
}
