package persona

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thatamjad/LinkedHer-sub004/internal/auth"
	"github.com/thatamjad/LinkedHer-sub004/internal/idgen"
	"github.com/thatamjad/LinkedHer-sub004/internal/metrics"
	"github.com/thatamjad/LinkedHer-sub004/internal/validation"
)

// Handler provides HTTP endpoints for personas and their obfuscation
// parameters.
type Handler struct {
	store  Store
	router *Router
}

// NewHandler creates a persona handler.
func NewHandler(store Store, router *Router) *Handler {
	if router == nil {
		router = NewRouter()
	}
	return &Handler{store: store, router: router}
}

// RegisterRoutes sets up persona routes. All of them require an
// authenticated caller; routes with :personaId additionally require
// ownership.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/personas", h.CreatePersona)
	r.GET("/personas", h.ListPersonas)
	r.GET("/personas/:personaId", h.GetPersona)
	r.GET("/personas/:personaId/routing", h.GetRoutingPath)
	r.GET("/personas/:personaId/delay", h.GetDelayParameters)
	r.GET("/personas/:personaId/headers", h.GetHeaders)
	r.PUT("/personas/:personaId/mixing", h.UpdateMixing)
	r.PUT("/personas/:personaId/security", h.UpdateSecurity)
	r.PUT("/personas/:personaId/metadata", h.UpdateMetadata)
}

// CreatePersona handles POST /v1/personas.
func (h *Handler) CreatePersona(c *gin.Context) {
	var req struct {
		DisplayName string `json:"displayName" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "displayName is required"})
		return
	}

	userID := auth.GetUserID(c)
	name := validation.SanitizeString(req.DisplayName, 100)

	existing, err := h.store.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to create persona"})
		return
	}
	for _, e := range existing {
		if e.DisplayName == name {
			c.JSON(http.StatusConflict, gin.H{"error": "name_taken", "message": "a persona with that display name already exists"})
			return
		}
	}

	now := time.Now()
	p := &Persona{
		ID:          idgen.WithPrefix("per_"),
		UserID:      userID,
		DisplayName: name,
		StealthAddr: "anon_" + idgen.Hex(10),
		Mixing:      DefaultMixing(),
		Fingerprint: DefaultFingerprint(),
		Security:    DefaultSecurity(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.store.Create(c.Request.Context(), p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to create persona"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"persona": p})
}

// ListPersonas handles GET /v1/personas.
func (h *Handler) ListPersonas(c *gin.Context) {
	list, err := h.store.ListByUser(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list personas"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"personas": list, "count": len(list)})
}

// GetPersona handles GET /v1/personas/:personaId.
func (h *Handler) GetPersona(c *gin.Context) {
	p, ok := h.owned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"persona": p})
}

// GetRoutingPath handles GET /v1/personas/:personaId/routing.
// A persona without multi-path routing gets a "feature disabled" response,
// which is distinct from an error.
func (h *Handler) GetRoutingPath(c *gin.Context) {
	p, ok := h.owned(c)
	if !ok {
		return
	}

	desc := h.router.RoutingPath(p)
	if desc == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "feature_disabled",
			"disabled": true,
			"message":  "multi-path routing is not enabled for this persona",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"routing": desc})
}

// GetDelayParameters handles GET /v1/personas/:personaId/delay.
func (h *Handler) GetDelayParameters(c *gin.Context) {
	p, ok := h.owned(c)
	if !ok {
		return
	}

	bounds := h.router.DelayBounds(p)
	if bounds == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "feature_disabled",
			"disabled": true,
			"message":  "timing noise is not enabled for this persona",
		})
		return
	}
	c.JSON(http.StatusOK, bounds)
}

// GetHeaders handles GET /v1/personas/:personaId/headers.
func (h *Handler) GetHeaders(c *gin.Context) {
	p, ok := h.owned(c)
	if !ok {
		return
	}

	headers := h.router.ObfuscationHeaders(p.Fingerprint.MimicBrowser)
	metrics.PersonaHeadersGeneratedTotal.Inc()
	c.JSON(http.StatusOK, gin.H{"headers": headers})
}

// UpdateMixing handles PUT /v1/personas/:personaId/mixing.
func (h *Handler) UpdateMixing(c *gin.Context) {
	p, ok := h.owned(c)
	if !ok {
		return
	}
	body, ok := h.readBody(c)
	if !ok {
		return
	}

	patch, err := DecodeMixingPatch(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "body must be a JSON object"})
		return
	}

	patch.Apply(&p.Mixing)
	h.persist(c, p, gin.H{"mixing": p.Mixing})
}

// UpdateSecurity handles PUT /v1/personas/:personaId/security.
func (h *Handler) UpdateSecurity(c *gin.Context) {
	p, ok := h.owned(c)
	if !ok {
		return
	}
	body, ok := h.readBody(c)
	if !ok {
		return
	}

	patch, err := DecodeSecurityPatch(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "body must be a JSON object"})
		return
	}

	patch.Apply(&p.Security)
	h.persist(c, p, gin.H{"security": p.Security})
}

// UpdateMetadata handles PUT /v1/personas/:personaId/metadata.
func (h *Handler) UpdateMetadata(c *gin.Context) {
	p, ok := h.owned(c)
	if !ok {
		return
	}
	body, ok := h.readBody(c)
	if !ok {
		return
	}

	patch, err := DecodeMetadataPatch(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "body must be a JSON object"})
		return
	}

	patch.Apply(p)
	h.persist(c, p, gin.H{"persona": p})
}

// owned loads the persona named by the :personaId param and verifies the
// caller owns it. One store lookup decides both outcomes: an absent record
// is 404, a foreign record is 403.
func (h *Handler) owned(c *gin.Context) (*Persona, bool) {
	p, err := h.store.Get(c.Request.Context(), c.Param("personaId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "no persona with that id"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load persona"})
		}
		return nil, false
	}
	if p.UserID != auth.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "you do not own this persona"})
		return nil, false
	}
	return p, true
}

func (h *Handler) readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "failed to read request body"})
		return nil, false
	}
	return body, true
}

func (h *Handler) persist(c *gin.Context, p *Persona, resp gin.H) {
	p.UpdatedAt = time.Now()
	if err := h.store.Update(c.Request.Context(), p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to update persona"})
		return
	}
	metrics.PersonaUpdatesTotal.Inc()
	c.JSON(http.StatusOK, resp)
}
