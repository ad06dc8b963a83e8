// Package session persists authenticated browser state per (identity, host)
// and keeps a live session warm while a task is mid-flight.
package session

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/copp1723/vinny-sub002/internal/application/port/output"
	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

var _ output.SessionStorePort = (*Store)(nil)

// Store keeps one JSON file per (identity, host) key under dir.
type Store struct {
	dir    string
	logger output.LoggerPort
	now    func() time.Time
}

func NewStore(dir string, logger output.LoggerPort) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &Store{dir: dir, logger: logger, now: time.Now}, nil
}

func sessionKey(identity, host string) string {
	h := sha1.Sum([]byte(strings.ToLower(identity) + "|" + strings.ToLower(host)))
	return hex.EncodeToString(h[:])
}

func (s *Store) path(identity, host string) string {
	return filepath.Join(s.dir, sessionKey(identity, host)+".json")
}

// Restore returns the persisted record for the key, or nil on a miss. A miss
// is not an error: it just means full authentication is required. Stale and
// unreadable records are also treated as misses.
func (s *Store) Restore(identity, host string) (*entity.SessionRecord, error) {
	data, err := os.ReadFile(s.path(identity, host))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		s.logger.Warn("Session file unreadable, treating as miss", "identity", identity, "host", host, "error", err)
		return nil, nil
	}

	var record entity.SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		s.logger.Warn("Session file corrupt, treating as miss", "identity", identity, "host", host, "error", err)
		return nil, nil
	}

	if record.Stale(s.now()) {
		s.logger.Debug("Session record stale", "identity", identity, "host", host, "savedAt", record.SavedAt)
		return nil, nil
	}

	return &record, nil
}

// Save persists the serialized browser state after a successful
// authentication.
func (s *Store) Save(identity, host string, state *entity.BrowsingState) error {
	record := entity.SessionRecord{
		Identity: identity,
		Host:     host,
		State:    *state,
		SavedAt:  s.now(),
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	path := s.path(identity, host)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit session record: %w", err)
	}

	s.logger.Info("Session saved", "identity", identity, "host", host)
	return nil
}
