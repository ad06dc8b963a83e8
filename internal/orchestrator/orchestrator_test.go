package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copp1723/vinny-sub002/internal/domain/entity"
	"github.com/copp1723/vinny-sub002/internal/infrastructure/logger"
	"github.com/copp1723/vinny-sub002/internal/mocks"
	"github.com/copp1723/vinny-sub002/internal/pattern"
	"github.com/copp1723/vinny-sub002/internal/session"
)

type fixture struct {
	surface    *mocks.FakeSurface
	dispatcher *mocks.FakeDispatcher
	patterns   *pattern.Store
	sessions   *session.Store
	orch       *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	patterns, err := pattern.NewStore(t.TempDir(), logger.NewNop())
	require.NoError(t, err)
	sessions, err := session.NewStore(t.TempDir(), logger.NewNop())
	require.NoError(t, err)

	surface := mocks.NewFakeSurface()
	dispatcher := &mocks.FakeDispatcher{}

	orch := New(Deps{
		Surface:     surface,
		Relay:       &mocks.FakeRelay{},
		Sessions:    sessions,
		Patterns:    patterns,
		Dispatcher:  dispatcher,
		Logger:      logger.NewNop(),
		Environment: "test",
	})

	return &fixture{
		surface:    surface,
		dispatcher: dispatcher,
		patterns:   patterns,
		sessions:   sessions,
		orch:       orch,
	}
}

func lookupConfig() *entity.TaskConfig {
	return &entity.TaskConfig{
		Target: entity.TargetConfig{
			URL:      "https://crm.example.com/dashboard",
			TaskType: entity.TaskRecordLookup,
			Parameters: map[string]string{
				"query":          "Smith",
				"searchSelector": "#search",
				"submitSelector": "#go",
			},
		},
		Authentication: entity.AuthConfig{Identity: "agent@example.com", Secret: "hunter2"},
	}
}

func TestExecute_ConfigErrorPropagates(t *testing.T) {
	f := newFixture(t)

	cfg := lookupConfig()
	cfg.Authentication.Secret = ""

	result, err := f.orch.Execute(context.Background(), cfg)
	assert.Nil(t, result)

	var cfgErr *entity.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "authentication.secret", cfgErr.Field)
}

func TestExecute_InterpretationErrorIsPreflight(t *testing.T) {
	f := newFixture(t)

	cfg := lookupConfig()
	delete(cfg.Target.Parameters, "query")

	_, err := f.orch.Execute(context.Background(), cfg)
	var cfgErr *entity.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Empty(t, f.surface.Navigations, "no browser work before validation passes")
}

func TestExecute_HappyPath(t *testing.T) {
	f := newFixture(t)
	f.surface.SetURL("https://crm.example.com/dashboard")
	f.surface.Present["#search"] = true
	f.surface.Present["#go"] = true

	cfg := lookupConfig()
	cfg.Output.CallbackURL = "https://hooks.example.com/done"
	cfg.Output.ArtifactDir = t.TempDir()

	result, err := f.orch.Execute(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, entity.TaskRecordLookup, result.TaskType)
	assert.Equal(t, "Smith", f.surface.Fills["#search"])
	assert.Contains(t, f.surface.Navigations, "https://crm.example.com/dashboard")
	assert.NotEmpty(t, result.Data["attempts"])

	require.Len(t, f.dispatcher.Delivered, 1)
	assert.True(t, f.dispatcher.Delivered[0].Success)

	assert.True(t, f.surface.Closed, "surface torn down after the task")

	rec, err := f.sessions.Restore("agent@example.com", "crm.example.com")
	require.NoError(t, err)
	assert.NotNil(t, rec, "session saved after authentication")
}

func TestExecute_InteractionCountNeverExceedsBudget(t *testing.T) {
	f := newFixture(t)
	f.surface.SetURL("https://crm.example.com/dashboard")
	f.surface.Present["#search"] = true
	f.surface.Present["#go"] = true

	cfg := lookupConfig()
	cfg.Capabilities.MaxInteractions = 1

	result, err := f.orch.Execute(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, result.Success, "partial result once the budget runs out")
	assert.LessOrEqual(t, result.InteractionCount, 1)
	assert.Equal(t, "Smith", f.surface.Fills["#search"], "the committed interaction stands")
	assert.Empty(t, f.surface.Clicks, "no interaction past the ceiling")
}

func TestExecute_StrategyExhaustionBecomesFailureResult(t *testing.T) {
	f := newFixture(t)
	f.surface.SetURL("https://crm.example.com/dashboard")
	// No selectors present: learned, direct, and position all fail.

	result, err := f.orch.Execute(context.Background(), lookupConfig())
	require.NoError(t, err, "task failures never propagate as Go errors")
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.NotEmpty(t, result.Data["attempts"])
	assert.True(t, f.surface.Closed)
}

func TestExecute_SuccessStoresPatternWhenLearningEnabled(t *testing.T) {
	f := newFixture(t)
	f.surface.SetURL("https://crm.example.com/dashboard")
	f.surface.Present["#search"] = true
	f.surface.Present["#go"] = true

	cfg := lookupConfig()
	cfg.Learning.EnablePatternStorage = true

	result, err := f.orch.Execute(context.Background(), cfg)
	require.NoError(t, err)
	require.True(t, result.Success)

	fingerprint := entity.ContextFingerprint(entity.TaskRecordLookup, "crm.example.com", "test")
	stored, err := f.patterns.BestPattern(entity.TaskRecordLookup, fingerprint)
	require.NoError(t, err)
	assert.Len(t, stored.ActionSequence, 2)
	assert.Equal(t, entity.ActionFill, stored.ActionSequence[0].Kind)
}

func TestExecute_RestoredSessionImported(t *testing.T) {
	f := newFixture(t)
	f.surface.SetURL("https://crm.example.com/dashboard")
	f.surface.Present["#search"] = true
	f.surface.Present["#go"] = true

	saved := &entity.BrowsingState{Cookies: []byte(`[{"name":"sid"}]`)}
	require.NoError(t, f.sessions.Save("agent@example.com", "crm.example.com", saved))

	_, err := f.orch.Execute(context.Background(), lookupConfig())
	require.NoError(t, err)

	require.NotNil(t, f.surface.Imported)
	assert.Equal(t, saved.Cookies, f.surface.Imported.Cookies)
}

func TestBuildInterpretation_ActionSequenceJSON(t *testing.T) {
	cfg := &entity.TaskConfig{
		Target: entity.TargetConfig{
			URL:      "https://crm.example.com",
			TaskType: entity.TaskActionSequence,
			Parameters: map[string]string{
				"actions": `[{"kind":"click","target":{"primarySelector":"#open"}},{"kind":"fill","target":{"primarySelector":"#note"},"value":"called back"}]`,
			},
		},
	}

	interp, err := BuildInterpretation(cfg)
	require.NoError(t, err)
	require.Len(t, interp.SubActions, 2)
	assert.Equal(t, entity.ActionClick, interp.SubActions[0].Kind)
	assert.Equal(t, "called back", interp.SubActions[1].Value)
}

func TestBuildInterpretation_BadActionsJSON(t *testing.T) {
	cfg := &entity.TaskConfig{
		Target: entity.TargetConfig{
			URL:        "https://crm.example.com",
			TaskType:   entity.TaskActionSequence,
			Parameters: map[string]string{"actions": "{not json"},
		},
	}

	_, err := BuildInterpretation(cfg)
	var cfgErr *entity.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestBuildInterpretation_NaturalLanguage(t *testing.T) {
	cfg := &entity.TaskConfig{
		Target: entity.TargetConfig{
			URL:                 "https://crm.example.com",
			TaskType:            entity.TaskNaturalLanguage,
			NaturalLanguageTask: "export last month's sales numbers",
			Parameters:          map[string]string{"estimatedSteps": "7"},
		},
	}

	interp, err := BuildInterpretation(cfg)
	require.NoError(t, err)
	assert.Equal(t, "export last month's sales numbers", interp.Description)
	assert.Equal(t, 7, interp.EstimatedSteps)
	assert.Empty(t, interp.SubActions)
}
