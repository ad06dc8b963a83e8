package output

import (
	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

// PatternStorePort persists learned action sequences per task type.
type PatternStorePort interface {
	StorePattern(taskType entity.TaskType, fingerprint string, steps []entity.PatternStep) (*entity.LearnedPattern, error)
	BestPattern(taskType entity.TaskType, fingerprint string) (*entity.LearnedPattern, error)
	UpdateAfterExecution(id string, success bool) error
}

// SessionStorePort persists authenticated browser state per (identity, host).
// A restore miss is a nil record with a nil error, never a failure.
type SessionStorePort interface {
	Restore(identity, host string) (*entity.SessionRecord, error)
	Save(identity, host string, state *entity.BrowsingState) error
}
