package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/copp1723/vinny-sub002/internal/application/port/output"
	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

var _ output.OraclePort = (*FakeOracle)(nil)

// FakeOracle replays scripted responses. Proposals are consumed in order;
// the last one repeats once the queue is drained.
type FakeOracle struct {
	mu sync.Mutex

	LoginFieldsVal *output.LoginFields
	LoginErr       error
	Proposals      []output.ActionProposal
	ProposalErr    error
	VerdictVal     *output.Verdict
	VerdictErr     error

	NextActionCalls int
	VerifyCalls     int
}

func (f *FakeOracle) AnalyzeLogin(ctx context.Context, snap *entity.Snapshot) (*output.LoginFields, error) {
	if f.LoginErr != nil {
		return nil, f.LoginErr
	}
	return f.LoginFieldsVal, nil
}

func (f *FakeOracle) NextAction(ctx context.Context, snap *entity.Snapshot, instruction string) (*output.ActionProposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.NextActionCalls++
	if f.ProposalErr != nil {
		return nil, f.ProposalErr
	}
	if len(f.Proposals) == 0 {
		return &output.ActionProposal{Done: true, Confidence: 1}, nil
	}
	p := f.Proposals[0]
	if len(f.Proposals) > 1 {
		f.Proposals = f.Proposals[1:]
	}
	return &p, nil
}

func (f *FakeOracle) VerifyCompletion(ctx context.Context, snap *entity.Snapshot, criteria string) (*output.Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.VerifyCalls++
	if f.VerdictErr != nil {
		return nil, f.VerdictErr
	}
	if f.VerdictVal != nil {
		return f.VerdictVal, nil
	}
	return &output.Verdict{Met: false, Confidence: 0.5}, nil
}

var _ output.RelayPort = (*FakeRelay)(nil)

// RelayResponse is one scripted answer from the fake relay.
type RelayResponse struct {
	Code *output.RelayCode
	Err  error
}

// FakeRelay pops one response per LatestCode call; the last repeats.
type FakeRelay struct {
	mu        sync.Mutex
	Responses []RelayResponse
	UsedIDs   []string
	UseErr    error
}

func (f *FakeRelay) LatestCode(ctx context.Context, minAge time.Duration) (*output.RelayCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Responses) == 0 {
		return nil, entity.ErrNoCode
	}
	r := f.Responses[0]
	if len(f.Responses) > 1 {
		f.Responses = f.Responses[1:]
	}
	return r.Code, r.Err
}

func (f *FakeRelay) MarkUsed(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UseErr != nil {
		return f.UseErr
	}
	f.UsedIDs = append(f.UsedIDs, id)
	return nil
}

var _ output.DispatcherPort = (*FakeDispatcher)(nil)

type FakeDispatcher struct {
	mu        sync.Mutex
	Delivered []*entity.ExecutionResult
	Err       error
}

func (f *FakeDispatcher) Deliver(ctx context.Context, cfg entity.OutputConfig, result *entity.ExecutionResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Delivered = append(f.Delivered, result)
	return nil
}
