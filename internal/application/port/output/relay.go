package output

import (
	"context"
	"time"
)

// RelayCode is one code handed out by the OTP relay.
type RelayCode struct {
	ID   string
	Code string
}

// RelayPort is the authenticator's view of the OTP relay. LatestCode returns
// entity.ErrNoCode when nothing qualifies; transport errors are returned
// as-is so polling loops can keep retrying through transient failures.
type RelayPort interface {
	LatestCode(ctx context.Context, minAge time.Duration) (*RelayCode, error)
	MarkUsed(ctx context.Context, id string) error
}
