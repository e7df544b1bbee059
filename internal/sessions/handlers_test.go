package sessions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatamjad/LinkedHer-sub004/internal/auth"
)

func newTestRouter(t *testing.T, m *Manager, geo GeoResolver) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// Stand-in for the auth middleware: every request runs as usr_1.
	r.Use(func(c *gin.Context) {
		c.Set(auth.ContextKeyUserID, "usr_1")
		c.Next()
	})
	NewHandler(m, geo).RegisterRoutes(&r.RouterGroup)
	return r
}

func doJSON(r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateSessionEndpoint(t *testing.T) {
	m, _ := testManager(NewMemoryStore(), noon)
	r := newTestRouter(t, m, NoopResolver{})

	w := doJSON(r, http.MethodPost, "/sessions", nil, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	assert.Contains(t, body["sessionId"], "ses_")
	assert.Equal(t, "active", body["status"])
	assert.Equal(t, float64(0), body["riskScore"])
}

func TestCreateSessionEndpoint_AnonymousFlag(t *testing.T) {
	store := NewMemoryStore()
	m, _ := testManager(store, noon)
	r := newTestRouter(t, m, NoopResolver{})

	w := doJSON(r, http.MethodPost, "/sessions", gin.H{"isAnonymous": true}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	id := decode(t, w)["sessionId"].(string)
	s, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, s.IsAnonymous)
}

func TestListSessionsEndpoint(t *testing.T) {
	m, _ := testManager(NewMemoryStore(), noon)
	r := newTestRouter(t, m, NoopResolver{})

	for i := 0; i < 2; i++ {
		at := noon.Add(time.Duration(i) * time.Minute)
		m.WithClock(func() time.Time { return at })
		require.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/sessions", nil, nil).Code)
	}

	w := doJSON(r, http.MethodGet, "/sessions", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(2), body["count"])
	assert.NotContains(t, body, "nextCursor")
}

func TestListSessionsEndpoint_LimitValidation(t *testing.T) {
	m, _ := testManager(NewMemoryStore(), noon)
	r := newTestRouter(t, m, NoopResolver{})

	for _, limit := range []string{"0", "101", "-3", "abc"} {
		w := doJSON(r, http.MethodGet, "/sessions?limit="+limit, nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit %s", limit)
		assert.Equal(t, "invalid_request", decode(t, w)["error"])
	}
}

func TestListSessionsEndpoint_BadCursor(t *testing.T) {
	m, _ := testManager(NewMemoryStore(), noon)
	r := newTestRouter(t, m, NoopResolver{})

	w := doJSON(r, http.MethodGet, "/sessions?cursor=%21%21not-a-cursor", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid cursor", decode(t, w)["message"])
}

func TestRevokeSessionEndpoint(t *testing.T) {
	m, _ := testManager(NewMemoryStore(), noon)
	r := newTestRouter(t, m, NoopResolver{})

	w := doJSON(r, http.MethodPost, "/sessions", nil, nil)
	id := decode(t, w)["sessionId"].(string)

	w = doJSON(r, http.MethodDelete, "/sessions/"+id, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["revoked"])

	// Idempotent retry surfaces as not found.
	w = doJSON(r, http.MethodDelete, "/sessions/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["error"])
}

func TestRevokeOtherSessionsEndpoint(t *testing.T) {
	m, _ := testManager(NewMemoryStore(), noon)
	r := newTestRouter(t, m, NoopResolver{})

	var ids []string
	for i := 0; i < 3; i++ {
		at := noon.Add(time.Duration(i) * time.Minute)
		m.WithClock(func() time.Time { return at })
		w := doJSON(r, http.MethodPost, "/sessions", nil, nil)
		ids = append(ids, decode(t, w)["sessionId"].(string))
	}

	w := doJSON(r, http.MethodDelete, "/sessions", nil, map[string]string{SessionHeader: ids[2]})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["revoked"])
}

func TestRefreshActivityEndpoint(t *testing.T) {
	m, _ := testManager(NewMemoryStore(), noon)
	r := newTestRouter(t, m, NoopResolver{})

	w := doJSON(r, http.MethodPost, "/sessions", nil, nil)
	id := decode(t, w)["sessionId"].(string)

	w = doJSON(r, http.MethodPatch, "/sessions/activity", nil, map[string]string{SessionHeader: id})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode(t, w)["sessionId"])
}

func TestRefreshActivityEndpoint_MissingHeader(t *testing.T) {
	m, _ := testManager(NewMemoryStore(), noon)
	r := newTestRouter(t, m, NoopResolver{})

	w := doJSON(r, http.MethodPatch, "/sessions/activity", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decode(t, w)["error"])
}

func TestReportSuspiciousEndpoint(t *testing.T) {
	m, _ := testManager(NewMemoryStore(), noon)
	r := newTestRouter(t, m, NoopResolver{})

	w := doJSON(r, http.MethodPost, "/sessions", nil, nil)
	id := decode(t, w)["sessionId"].(string)

	w = doJSON(r, http.MethodPost, "/sessions/"+id+"/suspicious", gin.H{"reason": "unusual_device"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "suspicious", body["status"])
	assert.Contains(t, body["anomalyReasons"], "unusual_device")
}

func TestReportSuspiciousEndpoint_UnknownReason(t *testing.T) {
	m, _ := testManager(NewMemoryStore(), noon)
	r := newTestRouter(t, m, NoopResolver{})

	w := doJSON(r, http.MethodPost, "/sessions", nil, nil)
	id := decode(t, w)["sessionId"].(string)

	w = doJSON(r, http.MethodPost, "/sessions/"+id+"/suspicious", gin.H{"reason": "vibes"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportSuspiciousEndpoint_UnknownSession(t *testing.T) {
	m, _ := testManager(NewMemoryStore(), noon)
	r := newTestRouter(t, m, NoopResolver{})

	w := doJSON(r, http.MethodPost, "/sessions/ses_missing/suspicious", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
