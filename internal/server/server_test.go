package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/thatamjad/LinkedHer-sub004/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig returns a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Port:                "0",
		Env:                 "development",
		LogLevel:            "error",
		SessionTTLHours:     168,
		TrustedGeoHeaders:   true,
		SuspiciousThreshold: 70,
		RateLimitRPM:        6000,
	}
}

// newTestServer creates a server backed by in-memory stores
func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(testConfig())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

// register creates an account and returns its raw API key
func register(t *testing.T, s *Server, handle string) string {
	t.Helper()

	body := `{"handle":"` + handle + `","displayName":"Test User"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/accounts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 registering account, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	key, _ := resp["apiKey"].(string)
	if key == "" {
		t.Fatal("Expected apiKey in registration response")
	}
	return key
}

// ---------------------------------------------------------------------------
// Health endpoint tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp["status"])
	}
}

func TestLivenessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/live", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestReadinessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/ready", nil)
	s.router.ServeHTTP(w, req)

	// Server hasn't called Run() so ready is false
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 (not ready), got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Route registration tests
// ---------------------------------------------------------------------------

func TestSessionRoutesRegistered(t *testing.T) {
	s := newTestServer(t)

	routes := s.router.Routes()
	sessionRoutes := map[string]bool{
		"POST:/v1/sessions":                       false,
		"GET:/v1/sessions":                        false,
		"DELETE:/v1/sessions/:sessionId":          false,
		"DELETE:/v1/sessions":                     false,
		"PATCH:/v1/sessions/activity":             false,
		"POST:/v1/sessions/:sessionId/suspicious": false,
	}

	for _, route := range routes {
		key := route.Method + ":" + route.Path
		if _, ok := sessionRoutes[key]; ok {
			sessionRoutes[key] = true
		}
	}

	for route, found := range sessionRoutes {
		if !found {
			t.Errorf("Session route %s not registered", route)
		}
	}
}

func TestPersonaRoutesRegistered(t *testing.T) {
	s := newTestServer(t)

	routes := s.router.Routes()
	expected := []string{
		"POST:/v1/personas",
		"GET:/v1/personas",
		"GET:/v1/personas/:personaId",
		"GET:/v1/personas/:personaId/routing",
		"GET:/v1/personas/:personaId/delay",
		"GET:/v1/personas/:personaId/headers",
		"PUT:/v1/personas/:personaId/mixing",
		"PUT:/v1/personas/:personaId/security",
		"PUT:/v1/personas/:personaId/metadata",
	}

	routeSet := make(map[string]bool)
	for _, route := range routes {
		routeSet[route.Method+":"+route.Path] = true
	}

	for _, e := range expected {
		if !routeSet[e] {
			t.Errorf("Persona route %s not registered", e)
		}
	}
}

// ---------------------------------------------------------------------------
// Registration and auth flow
// ---------------------------------------------------------------------------

func TestAccountRegistration(t *testing.T) {
	s := newTestServer(t)
	key := register(t, s, "testuser")

	// The returned key authenticates subsequent requests
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+key)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 from /v1/auth/me, got %d: %s", w.Code, w.Body.String())
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/sessions", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without API key, got %d", w.Code)
	}
}

func TestSessionCreationFlow(t *testing.T) {
	s := newTestServer(t)
	key := register(t, s, "sessionflow")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/sessions", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0")
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 creating session, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["sessionId"] == nil || resp["sessionId"] == "" {
		t.Error("Expected sessionId in creation response")
	}
	if resp["status"] != "active" {
		t.Errorf("Expected first session to be active, got %v", resp["status"])
	}
}

// ---------------------------------------------------------------------------
// 404 test
// ---------------------------------------------------------------------------

func TestDashboardRoute(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Session Security") {
		t.Error("Expected dashboard HTML")
	}
}

func TestNotFoundRoute(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/nonexistent", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
