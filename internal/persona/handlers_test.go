package persona

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatamjad/LinkedHer-sub004/internal/auth"
)

func newTestRouter(t *testing.T, store Store, userID string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(auth.ContextKeyUserID, userID)
		c.Next()
	})
	NewHandler(store, seededRouter(1)).RegisterRoutes(&r.RouterGroup)
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
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

func createPersona(t *testing.T, r *gin.Engine, name string) string {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/personas", `{"displayName": "`+name+`"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	p := decode(t, w)["persona"].(map[string]any)
	return p["id"].(string)
}

func TestCreatePersona(t *testing.T) {
	r := newTestRouter(t, NewMemoryStore(), "usr_1")

	w := doJSON(r, http.MethodPost, "/personas", `{"displayName": "NightOwl"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	p := decode(t, w)["persona"].(map[string]any)
	assert.Equal(t, "NightOwl", p["displayName"])
	assert.Equal(t, "usr_1", p["userId"])
	assert.True(t, strings.HasPrefix(p["id"].(string), "per_"))
	assert.True(t, strings.HasPrefix(p["stealthAddr"].(string), "anon_"))

	mixing := p["mixing"].(map[string]any)
	assert.Equal(t, true, mixing["timingNoise"])
	assert.Equal(t, false, mixing["multiPathRouting"])
	assert.Equal(t, float64(3), mixing["proxyHops"])
}

func TestCreatePersona_MissingDisplayName(t *testing.T) {
	r := newTestRouter(t, NewMemoryStore(), "usr_1")

	w := doJSON(r, http.MethodPost, "/personas", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decode(t, w)["error"])
}

func TestCreatePersona_DuplicateName(t *testing.T) {
	store := NewMemoryStore()
	r := newTestRouter(t, store, "usr_1")
	createPersona(t, r, "NightOwl")

	w := doJSON(r, http.MethodPost, "/personas", `{"displayName": "NightOwl"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "name_taken", decode(t, w)["error"])

	// A different user can reuse the name.
	other := newTestRouter(t, store, "usr_2")
	createPersona(t, other, "NightOwl")
}

func TestCreatePersona_NameSanitized(t *testing.T) {
	r := newTestRouter(t, NewMemoryStore(), "usr_1")

	w := doJSON(r, http.MethodPost, "/personas", `{"displayName": "  Owl  "}`)
	require.Equal(t, http.StatusCreated, w.Code)

	p := decode(t, w)["persona"].(map[string]any)
	assert.Equal(t, "Owl", p["displayName"])
}

func TestListPersonas(t *testing.T) {
	store := NewMemoryStore()
	r := newTestRouter(t, store, "usr_1")
	other := newTestRouter(t, store, "usr_2")

	createPersona(t, r, "One")
	createPersona(t, r, "Two")
	createPersona(t, other, "Theirs")

	w := doJSON(r, http.MethodGet, "/personas", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["count"])
}

func TestGetPersona_NotFound(t *testing.T) {
	r := newTestRouter(t, NewMemoryStore(), "usr_1")

	w := doJSON(r, http.MethodGet, "/personas/per_missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["error"])
}

func TestGetPersona_ForeignForbidden(t *testing.T) {
	store := NewMemoryStore()
	owner := newTestRouter(t, store, "usr_1")
	id := createPersona(t, owner, "Mine")

	intruder := newTestRouter(t, store, "usr_2")
	w := doJSON(intruder, http.MethodGet, "/personas/"+id, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decode(t, w)["error"])
}

func TestGetRoutingPath_DisabledByDefault(t *testing.T) {
	r := newTestRouter(t, NewMemoryStore(), "usr_1")
	id := createPersona(t, r, "Owl")

	w := doJSON(r, http.MethodGet, "/personas/"+id+"/routing", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := decode(t, w)
	assert.Equal(t, "feature_disabled", body["error"])
	assert.Equal(t, true, body["disabled"])
}

func TestGetRoutingPath_Enabled(t *testing.T) {
	r := newTestRouter(t, NewMemoryStore(), "usr_1")
	id := createPersona(t, r, "Owl")

	w := doJSON(r, http.MethodPut, "/personas/"+id+"/mixing", `{"multiPathRouting": true, "proxyHops": 9}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/personas/"+id+"/routing", "")
	require.Equal(t, http.StatusOK, w.Code)

	routing := decode(t, w)["routing"].(map[string]any)
	assert.Equal(t, float64(5), routing["hops"])
	assert.Len(t, routing["path"], 5)
}

func TestGetDelayParameters(t *testing.T) {
	r := newTestRouter(t, NewMemoryStore(), "usr_1")
	id := createPersona(t, r, "Owl")

	w := doJSON(r, http.MethodGet, "/personas/"+id+"/delay", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(DefaultMinDelayMs), body["minDelay"])
	assert.Equal(t, float64(DefaultMaxDelayMs), body["maxDelay"])
}

func TestGetDelayParameters_Disabled(t *testing.T) {
	r := newTestRouter(t, NewMemoryStore(), "usr_1")
	id := createPersona(t, r, "Owl")

	w := doJSON(r, http.MethodPut, "/personas/"+id+"/mixing", `{"timingNoise": false}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/personas/"+id+"/delay", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "feature_disabled", decode(t, w)["error"])
}

func TestGetHeaders(t *testing.T) {
	r := newTestRouter(t, NewMemoryStore(), "usr_1")
	id := createPersona(t, r, "Owl")

	w := doJSON(r, http.MethodGet, "/personas/"+id+"/headers", "")
	require.Equal(t, http.StatusOK, w.Code)

	headers := decode(t, w)["headers"].(map[string]any)
	// Mimicry is on by default, so a catalog user agent is present.
	assert.Contains(t, mimicUserAgents, headers["User-Agent"])
}

func TestGetHeaders_NonMimic(t *testing.T) {
	r := newTestRouter(t, NewMemoryStore(), "usr_1")
	id := createPersona(t, r, "Owl")

	w := doJSON(r, http.MethodPut, "/personas/"+id+"/metadata", `{"mimicBrowser": false}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/personas/"+id+"/headers", "")
	require.Equal(t, http.StatusOK, w.Code)

	headers := decode(t, w)["headers"].(map[string]any)
	assert.Len(t, headers, 3)
	assert.Contains(t, headers, "X-Request-Token")
}

func TestUpdateMixing_PersistsPatch(t *testing.T) {
	store := NewMemoryStore()
	r := newTestRouter(t, store, "usr_1")
	id := createPersona(t, r, "Owl")

	w := doJSON(r, http.MethodPut, "/personas/"+id+"/mixing", `{"minDelayMs": 250}`)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 250, stored.Mixing.MinDelayMs)
	assert.Equal(t, DefaultMaxDelayMs, stored.Mixing.MaxDelayMs)
	assert.True(t, stored.UpdatedAt.After(stored.CreatedAt))
}

func TestUpdateMixing_RejectsNonObjectBody(t *testing.T) {
	r := newTestRouter(t, NewMemoryStore(), "usr_1")
	id := createPersona(t, r, "Owl")

	w := doJSON(r, http.MethodPut, "/personas/"+id+"/mixing", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decode(t, w)["error"])
}

func TestUpdateSecurity(t *testing.T) {
	store := NewMemoryStore()
	r := newTestRouter(t, store, "usr_1")
	id := createPersona(t, r, "Owl")

	w := doJSON(r, http.MethodPut, "/personas/"+id+"/security", `{"autoSwitchMinutes": 5}`)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Security.AutoSwitchMinutes)
	assert.True(t, stored.Security.PurgeOnLogout)
}

func TestUpdateMetadata_ForeignForbidden(t *testing.T) {
	store := NewMemoryStore()
	owner := newTestRouter(t, store, "usr_1")
	id := createPersona(t, owner, "Mine")

	intruder := newTestRouter(t, store, "usr_2")
	w := doJSON(intruder, http.MethodPut, "/personas/"+id+"/metadata", `{"displayName": "Stolen"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	stored, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Mine", stored.DisplayName)
}
