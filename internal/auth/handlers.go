package auth

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

var validHandle = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{2,31}$`)

// Handler provides HTTP endpoints for accounts and API keys.
type Handler struct {
	manager *Manager
}

// NewHandler creates an auth handler.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterPublicRoutes sets up routes that need no authentication.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/accounts", h.RegisterAccount)
}

// RegisterProtectedRoutes sets up routes that require a valid API key.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/auth/me", h.Me)
	r.GET("/auth/keys", h.ListKeys)
	r.POST("/auth/keys", h.CreateKey)
	r.DELETE("/auth/keys/:keyId", h.RevokeKey)
}

// RegisterAccount handles POST /v1/accounts.
func (h *Handler) RegisterAccount(c *gin.Context) {
	var req struct {
		Handle      string `json:"handle" binding:"required"`
		DisplayName string `json:"displayName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "handle is required"})
		return
	}

	handle := strings.ToLower(strings.TrimSpace(req.Handle))
	if !validHandle.MatchString(handle) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_handle",
			"message": "handle must be 3-32 lowercase alphanumeric/underscore/hyphen, starting alphanumeric",
		})
		return
	}

	rawKey, account, key, err := h.manager.Register(c.Request.Context(), handle, req.DisplayName)
	if err != nil {
		if errors.Is(err, ErrHandleTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "handle_taken", "message": "handle already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to register account"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"account": account,
		"apiKey":  rawKey,
		"keyId":   key.ID,
		"warning": "Store this API key securely. It will not be shown again.",
	})
}

// Me handles GET /v1/auth/me.
func (h *Handler) Me(c *gin.Context) {
	userID := GetUserID(c)

	account, err := h.manager.Store().GetAccount(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "account not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}

// ListKeys handles GET /v1/auth/keys.
func (h *Handler) ListKeys(c *gin.Context) {
	keys, err := h.manager.ListKeys(c.Request.Context(), GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list keys"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys, "count": len(keys)})
}

// CreateKey handles POST /v1/auth/keys.
func (h *Handler) CreateKey(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.Name == "" {
		req.Name = "unnamed"
	}

	rawKey, key, err := h.manager.GenerateKey(c.Request.Context(), GetUserID(c), req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to create key"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"apiKey":  rawKey,
		"keyId":   key.ID,
		"warning": "Store this API key securely. It will not be shown again.",
	})
}

// RevokeKey handles DELETE /v1/auth/keys/:keyId.
func (h *Handler) RevokeKey(c *gin.Context) {
	err := h.manager.RevokeKey(c.Request.Context(), c.Param("keyId"), GetUserID(c))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "no key with that id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to revoke key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": true})
}
