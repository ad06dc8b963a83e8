package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copp1723/vinny-sub002/internal/domain/entity"
	"github.com/copp1723/vinny-sub002/internal/infrastructure/logger"
)

func TestDeliver_CallbackReceivesResultVerbatim(t *testing.T) {
	var received entity.ExecutionResult
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := New(Config{}, logger.NewNop())
	result := &entity.ExecutionResult{
		Success:          true,
		TaskType:         entity.TaskReportDownload,
		InteractionCount: 3,
		DurationMs:       1200,
	}

	err := d.Deliver(context.Background(), entity.OutputConfig{CallbackURL: server.URL}, result)
	require.NoError(t, err)
	assert.True(t, received.Success)
	assert.Equal(t, entity.TaskReportDownload, received.TaskType)
	assert.Equal(t, 3, received.InteractionCount)
}

func TestDeliver_CallbackServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	d := New(Config{}, logger.NewNop())
	err := d.Deliver(context.Background(), entity.OutputConfig{CallbackURL: server.URL}, &entity.ExecutionResult{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestDeliver_EmailOnlyForSuccessfulArtifacts(t *testing.T) {
	artifact := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(artifact, []byte("a,b\n1,2\n"), 0o644))

	var sent *mail.SGMailV3
	d := New(DefaultConfig("key", "agent@example.com"), logger.NewNop())
	d.send = func(email *mail.SGMailV3) error {
		sent = email
		return nil
	}

	cfg := entity.OutputConfig{Recipients: []string{"ops@example.com"}}

	// Failed results produce no email.
	err := d.Deliver(context.Background(), cfg, &entity.ExecutionResult{Success: false, ArtifactPath: artifact})
	require.NoError(t, err)
	assert.Nil(t, sent)

	err = d.Deliver(context.Background(), cfg, &entity.ExecutionResult{
		Success:      true,
		TaskType:     entity.TaskReportDownload,
		ArtifactPath: artifact,
	})
	require.NoError(t, err)
	require.NotNil(t, sent)
	require.Len(t, sent.Attachments, 1)
	assert.Equal(t, "report.csv", sent.Attachments[0].Filename)
	require.Len(t, sent.Personalizations, 1)
	assert.Equal(t, "ops@example.com", sent.Personalizations[0].To[0].Address)
}

func TestDeliver_MissingArtifactFails(t *testing.T) {
	d := New(DefaultConfig("key", "agent@example.com"), logger.NewNop())
	d.send = func(email *mail.SGMailV3) error { return nil }

	err := d.Deliver(context.Background(),
		entity.OutputConfig{Recipients: []string{"ops@example.com"}},
		&entity.ExecutionResult{Success: true, ArtifactPath: "/nonexistent/report.csv"})
	require.Error(t, err)
}
