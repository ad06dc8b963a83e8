// Package pattern persists learned action sequences and ranks them for
// replay by confidence and rolling success rate.
package pattern

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/copp1723/vinny-sub002/internal/application/port/output"
	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

var _ output.PatternStorePort = (*Store)(nil)

const storeFile = "patterns.json"

// Store keeps all patterns in one JSON file, loaded once and rewritten on
// every mutation. Pattern volume is small; simplicity beats a database here.
type Store struct {
	mu       sync.Mutex
	path     string
	patterns map[string]*entity.LearnedPattern
	logger   output.LoggerPort
	now      func() time.Time
}

func NewStore(dir string, logger output.LoggerPort) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create pattern dir: %w", err)
	}

	s := &Store{
		path:     filepath.Join(dir, storeFile),
		patterns: make(map[string]*entity.LearnedPattern),
		logger:   logger,
		now:      time.Now,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read pattern store: %w", err)
	}

	var list []*entity.LearnedPattern
	if err := json.Unmarshal(data, &list); err != nil {
		// A corrupt store is not worth failing a task over. Start fresh.
		s.logger.Warn("Pattern store corrupt, starting empty", "path", s.path, "error", err)
		return nil
	}
	for _, p := range list {
		s.patterns[p.ID] = p
	}
	return nil
}

func (s *Store) persistLocked() error {
	list := make([]*entity.LearnedPattern, 0, len(s.patterns))
	for _, p := range s.patterns {
		list = append(list, p)
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pattern store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write pattern store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit pattern store: %w", err)
	}
	return nil
}

// StorePattern persists a freshly observed successful action sequence.
func (s *Store) StorePattern(taskType entity.TaskType, fingerprint string, steps []entity.PatternStep) (*entity.LearnedPattern, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("refusing to store empty action sequence")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	p := &entity.LearnedPattern{
		ID:                 uuid.NewString(),
		TaskType:           taskType,
		ContextFingerprint: fingerprint,
		ActionSequence:     steps,
		Confidence:         entity.PatternInitialConfidence,
		SuccessRate:        1.0,
		Executions:         1,
		LastUsedAt:         now,
		CreatedAt:          now,
	}
	s.patterns[p.ID] = p

	if err := s.persistLocked(); err != nil {
		delete(s.patterns, p.ID)
		return nil, err
	}

	s.logger.Info("Pattern stored", "id", p.ID, "taskType", taskType, "steps", len(steps))
	return p, nil
}

// BestPattern ranks matching candidates by confidence times rolling success
// rate, excluding anything below the usability threshold. A copy is
// returned; callers report outcomes through UpdateAfterExecution.
func (s *Store) BestPattern(taskType entity.TaskType, fingerprint string) (*entity.LearnedPattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *entity.LearnedPattern
	for _, p := range s.patterns {
		if p.TaskType != taskType || p.ContextFingerprint != fingerprint {
			continue
		}
		if !p.Usable() {
			continue
		}
		if best == nil || p.Score() > best.Score() {
			best = p
		}
	}
	if best == nil {
		return nil, entity.ErrNoPattern
	}

	copied := *best
	copied.ActionSequence = append([]entity.PatternStep(nil), best.ActionSequence...)
	return &copied, nil
}

// UpdateAfterExecution folds one replay outcome into the pattern's
// bookkeeping. Repeated failures degrade its rank until it drops below the
// usability threshold and is no longer offered.
func (s *Store) UpdateAfterExecution(id string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patterns[id]
	if !ok {
		return fmt.Errorf("pattern %s: %w", id, entity.ErrNotFound)
	}

	p.RecordExecution(success, s.now())

	if err := s.persistLocked(); err != nil {
		return err
	}

	s.logger.Debug("Pattern updated",
		"id", id,
		"success", success,
		"successRate", p.SuccessRate,
		"confidence", p.Confidence,
		"usable", p.Usable(),
	)
	return nil
}
