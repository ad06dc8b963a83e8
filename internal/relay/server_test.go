package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, srv *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func getJSON(t *testing.T, srv *Server, path string) (map[string]any, int) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body, w.Code
}

func TestWebhook_EndToEnd(t *testing.T) {
	store := NewStore(10 * time.Minute)
	srv := NewServer(store)

	w := postJSON(t, srv, "/webhook", map[string]any{
		"sender":     "noreply@vinsolutions.com",
		"subject":    "Your verification code",
		"body-plain": "Your verification code is: 552013",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var stored map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stored))
	assert.Equal(t, true, stored["success"])
	codeID, _ := stored["codeId"].(string)
	require.NotEmpty(t, codeID)

	latest, code := getJSON(t, srv, "/code/latest?minAgeMs=0")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, latest["success"])
	assert.Equal(t, "552013", latest["code"])
	assert.Equal(t, codeID, latest["id"])

	w = postJSON(t, srv, "/code/"+codeID+"/use", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	latest, code = getJSON(t, srv, "/code/latest")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, latest["success"])
	assert.Equal(t, "no valid codes found", latest["message"])
}

func TestWebhook_RejectsMissingFields(t *testing.T) {
	srv := NewServer(NewStore(10 * time.Minute))

	w := postJSON(t, srv, "/webhook", map[string]any{
		"body-plain": "Your verification code is: 552013",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_NoExtractableCode(t *testing.T) {
	srv := NewServer(NewStore(10 * time.Minute))

	w := postJSON(t, srv, "/webhook", map[string]any{
		"sender":  "news@example.com",
		"subject": "Weekly digest",
		"body":    "Nothing numeric here.",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Nil(t, body["codeId"])
}

func TestWebhook_AlternateBodyFields(t *testing.T) {
	store := NewStore(10 * time.Minute)
	srv := NewServer(store)

	w := postJSON(t, srv, "/webhook", map[string]any{
		"sender":        "otp@example.com",
		"subject":       "Code inside",
		"stripped-text": "verification code: 445566",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	latest, _ := getJSON(t, srv, "/code/latest")
	assert.Equal(t, "445566", latest["code"])
}

func TestUse_UnknownID(t *testing.T) {
	srv := NewServer(NewStore(10 * time.Minute))

	w := postJSON(t, srv, "/code/does-not-exist/use", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLatest_BadMinAge(t *testing.T) {
	srv := NewServer(NewStore(10 * time.Minute))

	_, code := getJSON(t, srv, "/code/latest?minAgeMs=banana")
	assert.Equal(t, http.StatusBadRequest, code)
}

// The listing endpoint is diagnostics only and must never leak code values.
func TestList_MasksCodes(t *testing.T) {
	store := NewStore(10 * time.Minute)
	srv := NewServer(store)
	store.AddCode("552013", "otp@example.com", "Your code", "verification code: 552013")

	body, code := getJSON(t, srv, "/codes")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["total"])

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "552013")
}

func TestHealth(t *testing.T) {
	srv := NewServer(NewStore(10 * time.Minute))

	body, code := getJSON(t, srv, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestClient_AgainstServer(t *testing.T) {
	store := NewStore(10 * time.Minute)
	srv := httptest.NewServer(NewServer(store))
	defer srv.Close()

	client := NewClient(srv.URL)
	ctx := context.Background()

	_, err := client.LatestCode(ctx, 0)
	assert.Error(t, err)

	id := store.AddCode("998877", "otp@example.com", "Your code", "")

	got, err := client.LatestCode(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "998877", got.Code)

	require.NoError(t, client.MarkUsed(ctx, id))
	_, err = client.LatestCode(ctx, 0)
	assert.Error(t, err)

	err = client.MarkUsed(ctx, "unknown")
	assert.Error(t, err)
}
