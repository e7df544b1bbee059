package sessions

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/thatamjad/LinkedHer-sub004/internal/auth"
	"github.com/thatamjad/LinkedHer-sub004/internal/pagination"
)

// SessionHeader names the caller's current session on endpoints that operate
// relative to it (activity refresh, revoke-others).
const SessionHeader = "X-Session-ID"

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Handler provides HTTP endpoints for session management.
type Handler struct {
	manager *Manager
	geo     GeoResolver
}

// NewHandler creates a session handler. The resolver supplies geolocation
// for newly created sessions.
func NewHandler(manager *Manager, geo GeoResolver) *Handler {
	if geo == nil {
		geo = NoopResolver{}
	}
	return &Handler{manager: manager, geo: geo}
}

// RegisterRoutes sets up session routes. All of them require an
// authenticated caller.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions", h.ListSessions)
	r.DELETE("/sessions/:sessionId", h.RevokeSession)
	r.DELETE("/sessions", h.RevokeOtherSessions)
	r.PATCH("/sessions/activity", h.RefreshActivity)
	r.POST("/sessions/:sessionId/suspicious", h.ReportSuspicious)
}

// CreateSession handles POST /v1/sessions.
// The server resolves IP, user agent, and geolocation from the request;
// the body only carries the anonymous-mode flag.
func (h *Handler) CreateSession(c *gin.Context) {
	userID := auth.GetUserID(c)

	var req struct {
		IsAnonymous bool `json:"isAnonymous"`
	}
	// Body is optional; a missing or empty body means a regular session.
	_ = c.ShouldBindJSON(&req)

	client := ClientContext{
		IP:          c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
		Location:    h.geo.Resolve(c.Request),
		IsAnonymous: req.IsAnonymous,
	}

	s, err := h.manager.Create(c.Request.Context(), userID, client)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to create session"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"sessionId": s.ID,
		"expiresAt": s.ExpiresAt,
		"status":    s.Status,
		"riskScore": s.RiskScore,
	})
}

// ListSessions handles GET /v1/sessions.
func (h *Handler) ListSessions(c *gin.Context) {
	userID := auth.GetUserID(c)

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "limit must be in [1,100]"})
			return
		}
		limit = n
	}

	list, next, err := h.manager.List(c.Request.Context(), userID, c.Query("cursor"), limit)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid cursor"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list sessions"})
		return
	}

	resp := gin.H{"sessions": list, "count": len(list)}
	if next != "" {
		resp["nextCursor"] = next
	}
	c.JSON(http.StatusOK, resp)
}

// RevokeSession handles DELETE /v1/sessions/:sessionId.
func (h *Handler) RevokeSession(c *gin.Context) {
	userID := auth.GetUserID(c)
	sessionID := c.Param("sessionId")

	err := h.manager.Revoke(c.Request.Context(), userID, sessionID)
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "no active session with that id"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to revoke session"})
	default:
		c.JSON(http.StatusOK, gin.H{"revoked": true, "sessionId": sessionID})
	}
}

// RevokeOtherSessions handles DELETE /v1/sessions: revoke every active
// session except the one named by the X-Session-ID header.
func (h *Handler) RevokeOtherSessions(c *gin.Context) {
	userID := auth.GetUserID(c)
	keepID := c.GetHeader(SessionHeader)

	count, err := h.manager.RevokeOthers(c.Request.Context(), userID, keepID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to revoke sessions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": count})
}

// RefreshActivity handles PATCH /v1/sessions/activity.
func (h *Handler) RefreshActivity(c *gin.Context) {
	userID := auth.GetUserID(c)
	sessionID := c.GetHeader(SessionHeader)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": SessionHeader + " header is required"})
		return
	}

	s, err := h.manager.Touch(c.Request.Context(), userID, sessionID)
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "no session with that id"})
	case errors.Is(err, ErrInactive):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "session is not active"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to refresh activity"})
	default:
		c.JSON(http.StatusOK, gin.H{"sessionId": s.ID, "lastActivityAt": s.LastActivityAt})
	}
}

// ReportSuspicious handles POST /v1/sessions/:sessionId/suspicious.
func (h *Handler) ReportSuspicious(c *gin.Context) {
	userID := auth.GetUserID(c)
	sessionID := c.Param("sessionId")

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req) // reason is optional

	reason := AnomalyReason(req.Reason)
	if req.Reason != "" && !ValidReason(reason) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "unknown anomaly reason"})
		return
	}

	s, err := h.manager.MarkSuspicious(c.Request.Context(), userID, sessionID, reason)
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "no session with that id"})
	case errors.Is(err, ErrInactive):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "session is not active"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to flag session"})
	default:
		c.JSON(http.StatusOK, gin.H{
			"sessionId":      s.ID,
			"status":         s.Status,
			"anomalyReasons": s.AnomalyReasons,
		})
	}
}
