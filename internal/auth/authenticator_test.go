package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copp1723/vinny-sub002/internal/application/port/output"
	"github.com/copp1723/vinny-sub002/internal/domain/entity"
	"github.com/copp1723/vinny-sub002/internal/infrastructure/logger"
	"github.com/copp1723/vinny-sub002/internal/mocks"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.SettleDelay = 0
	opts.OTPPollEvery = time.Millisecond
	opts.OTPPollWindow = 100 * time.Millisecond
	return opts
}

func newTestAuth(surface output.SurfacePort, oracle output.OraclePort, relay output.RelayPort) *Authenticator {
	a := New(surface, oracle, relay, logger.NewNop(), testOptions())
	a.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return a
}

func TestAuthenticate_AlreadyAuthenticated(t *testing.T) {
	surface := mocks.NewFakeSurface()
	surface.SetURL("https://app.example.com/dashboard")

	a := newTestAuth(surface, nil, nil)
	require.NoError(t, a.Authenticate(context.Background(), "user", "secret"))
	assert.Equal(t, StateAuthenticated, a.State())
	assert.Empty(t, surface.Fills)
}

func TestAuthenticate_CandidateSelectors(t *testing.T) {
	surface := mocks.NewFakeSurface()
	surface.SetURL("https://app.example.com/login")
	surface.Present[`input[type="password"]`] = true
	surface.Present[`#username`] = true
	surface.Present[`#password`] = true
	surface.Present[`button[type="submit"]`] = true
	surface.OnClick = func(string) {
		surface.SetURL("https://app.example.com/dashboard")
	}

	a := newTestAuth(surface, nil, nil)
	require.NoError(t, a.Authenticate(context.Background(), "user@example.com", "hunter2"))

	assert.Equal(t, StateAuthenticated, a.State())
	assert.Equal(t, "user@example.com", surface.Fills[`#username`])
	assert.Equal(t, "hunter2", surface.Fills[`#password`])
	assert.Equal(t, []string{`button[type="submit"]`}, surface.Clicks)
}

func TestAuthenticate_OracleGuided(t *testing.T) {
	surface := mocks.NewFakeSurface()
	surface.SetURL("https://app.example.com/login")
	surface.Present[`input[type="password"]`] = true
	surface.Present[`#login-user`] = true
	surface.Present[`#login-pass`] = true
	surface.Present[`#login-go`] = true
	surface.OnClick = func(string) {
		surface.SetURL("https://app.example.com/home")
	}

	oracle := &mocks.FakeOracle{
		LoginFieldsVal: &output.LoginFields{
			UsernameSelector: "#login-user",
			PasswordSelector: "#login-pass",
			SubmitSelector:   "#login-go",
			Confidence:       0.95,
		},
	}

	a := newTestAuth(surface, oracle, nil)
	require.NoError(t, a.Authenticate(context.Background(), "user", "secret"))

	assert.Equal(t, "user", surface.Fills["#login-user"])
	assert.Equal(t, "secret", surface.Fills["#login-pass"])
}

func TestAuthenticate_AutomatedSecondFactor(t *testing.T) {
	surface := mocks.NewFakeSurface()
	surface.SetURL("https://app.example.com/login")
	surface.Present[`input[type="password"]`] = true
	surface.Present[`#username`] = true
	surface.Present[`#password`] = true
	surface.Present[`button[type="submit"]`] = true
	surface.Present[`input[name="otp"]`] = true

	clicks := 0
	surface.OnClick = func(string) {
		clicks++
		if clicks == 1 {
			surface.SetURL("https://app.example.com/login/verify")
		} else {
			surface.SetURL("https://app.example.com/dashboard")
		}
	}

	relay := &mocks.FakeRelay{
		Responses: []mocks.RelayResponse{
			{Err: entity.ErrNoCode},
			{Err: errors.New("connection refused")},
			{Code: &output.RelayCode{ID: "abc", Code: "552013"}},
		},
	}

	a := newTestAuth(surface, nil, relay)
	require.NoError(t, a.Authenticate(context.Background(), "user", "secret"))

	assert.Equal(t, StateAuthenticated, a.State())
	assert.Equal(t, "552013", surface.Fills[`input[name="otp"]`])
	assert.Equal(t, []string{"abc"}, relay.UsedIDs)
}

func TestAuthenticate_OTPWindowExpires(t *testing.T) {
	surface := mocks.NewFakeSurface()
	surface.SetURL("https://app.example.com/login")
	surface.Present[`input[type="password"]`] = true
	surface.Present[`#username`] = true
	surface.Present[`#password`] = true
	surface.Present[`button[type="submit"]`] = true
	surface.Present[`input[name="otp"]`] = true

	relay := &mocks.FakeRelay{} // never produces a code

	a := newTestAuth(surface, nil, relay)
	a.opts.OTPPollWindow = 0

	err := a.Authenticate(context.Background(), "user", "secret")
	require.Error(t, err)

	var authErr *entity.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "second_factor", authErr.Stage)
	assert.ErrorIs(t, err, entity.ErrTimeout)
}

func TestAuthenticate_CompletionFallsBackToIndicators(t *testing.T) {
	surface := mocks.NewFakeSurface()
	// URL never leaves the login pattern, but the dashboard chrome appears.
	surface.SetURL("https://app.example.com/login")
	surface.Present[`input[type="password"]`] = true
	surface.Present[`#username`] = true
	surface.Present[`#password`] = true
	surface.Present[`button[type="submit"]`] = true
	surface.Present[`nav`] = true

	a := newTestAuth(surface, nil, nil)
	require.NoError(t, a.Authenticate(context.Background(), "user", "secret"))
	assert.Equal(t, StateAuthenticated, a.State())
}

func TestAuthenticate_MissingFieldsFails(t *testing.T) {
	surface := mocks.NewFakeSurface()
	surface.SetURL("https://app.example.com/login")
	surface.Present[`input[type="password"]`] = true // indicator only

	a := newTestAuth(surface, nil, nil)
	err := a.Authenticate(context.Background(), "user", "secret")
	require.Error(t, err)

	var authErr *entity.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "credentials", authErr.Stage)
}

func TestIsAuthURL(t *testing.T) {
	assert.True(t, IsAuthURL("https://app.example.com/login"))
	assert.True(t, IsAuthURL("https://id.example.com/SSO/start"))
	assert.True(t, IsAuthURL("https://app.example.com/account/verify"))
	assert.False(t, IsAuthURL("https://app.example.com/dashboard"))
	assert.False(t, IsAuthURL("https://app.example.com/reports"))
}
