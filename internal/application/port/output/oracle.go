package output

import (
	"context"

	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

// LoginFields is the oracle's reading of a login page.
type LoginFields struct {
	UsernameSelector string  `json:"username_selector"`
	PasswordSelector string  `json:"password_selector"`
	SubmitSelector   string  `json:"submit_selector"`
	Confidence       float64 `json:"confidence"`
}

// ActionProposal is the oracle's next move. Exactly one tagged shape per
// call: non-conforming responses are rejected rather than probed for
// optional fields.
type ActionProposal struct {
	Kind       entity.ActionKind `json:"kind"`
	Selector   string            `json:"selector,omitempty"`
	Value      string            `json:"value,omitempty"`
	WaitMs     int               `json:"wait_ms,omitempty"`
	Done       bool              `json:"done"`
	Reason     string            `json:"reason,omitempty"`
	Confidence float64           `json:"confidence"`
}

// Verdict answers "are the success criteria met now".
type Verdict struct {
	Met        bool    `json:"met"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

// OraclePort is the vision oracle: given a page snapshot and an instruction
// it proposes selectors or actions. Optional capability; every consumer must
// work without it.
type OraclePort interface {
	AnalyzeLogin(ctx context.Context, snap *entity.Snapshot) (*LoginFields, error)
	NextAction(ctx context.Context, snap *entity.Snapshot, instruction string) (*ActionProposal, error)
	VerifyCompletion(ctx context.Context, snap *entity.Snapshot, criteria string) (*Verdict, error)
}
