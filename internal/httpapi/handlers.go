package httpapi

import (
	"errors"
	"net/http"
	"time"

	"followup-platform/internal/auth"
	"followup-platform/internal/campaign"
	"followup-platform/internal/engine"
	"followup-platform/internal/enrollment"
	"followup-platform/internal/gateway"
	"followup-platform/internal/rbac"
	"followup-platform/internal/stats"
	"followup-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth   *auth.Manager
	Engine *engine.Engine
	Stats  *stats.Service

	// WebhookSecret, when set, must match the apikey header of gateway
	// webhook calls.
	WebhookSecret string
}

// --- Auth ---

type loginRequest struct {
	UserID    string `json:"user_id"`
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.AccountID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, account_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.AccountID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Campaign passes ---

// EnrollCampaign triggers an enrollment pass for one campaign. The scheduler
// runs these periodically; the endpoint exists so the dashboard can enroll
// immediately after activating a campaign.
func (h Handlers) EnrollCampaign(c *gin.Context) {
	if h.Engine == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "engine not configured"})
		return
	}
	id := c.Param("campaign_id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "campaign_id required"})
		return
	}

	res, err := h.Engine.RunEnrollmentPass(c.Request.Context(), id)
	switch {
	case errors.Is(err, campaign.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	case err != nil:
		logger.FromGin(c).Error("enrollment pass failed", "campaign_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "enrollment pass failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// RunSequencer triggers one delivery pass. Idempotent and safe to call at any
// time; it overlaps cleanly with the scheduler's own passes.
func (h Handlers) RunSequencer(c *gin.Context) {
	if h.Engine == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "engine not configured"})
		return
	}
	res, err := h.Engine.RunSequencerPass(c.Request.Context())
	if err != nil {
		logger.FromGin(c).Error("sequencer pass failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "sequencer pass failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// CampaignDeleted cascades a campaign deletion to its open enrollments. The
// dashboard calls it after removing the campaign row.
func (h Handlers) CampaignDeleted(c *gin.Context) {
	if h.Engine == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "engine not configured"})
		return
	}
	id := c.Param("campaign_id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "campaign_id required"})
		return
	}

	res, err := h.Engine.HandleCampaignDeleted(c.Request.Context(), id)
	if err != nil {
		logger.FromGin(c).Error("campaign deletion cascade failed", "campaign_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "cascade failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// CampaignStats returns the aggregate snapshot for one campaign.
func (h Handlers) CampaignStats(c *gin.Context) {
	if h.Stats == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "stats not configured"})
		return
	}
	id := c.Param("campaign_id")

	out, err := h.Stats.CampaignStats(c.Request.Context(), stats.CampaignStatsRequest{CampaignID: id})
	switch {
	case errors.Is(err, stats.ErrInvalidRequest):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "campaign_id required"})
		return
	case errors.Is(err, campaign.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	case err != nil:
		logger.FromGin(c).Error("stats lookup failed", "campaign_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "stats lookup failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Gateway webhook ---

// InboundWebhook receives gateway "messages.upsert" events. The gateway
// instance name is the assistant id. Always answers 200 for events we choose
// to drop (non-message events, our own outbound messages) so the gateway does
// not retry them forever.
func (h Handlers) InboundWebhook(c *gin.Context) {
	if h.Engine == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "engine not configured"})
		return
	}
	if h.WebhookSecret != "" && c.GetHeader("apikey") != h.WebhookSecret {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook credentials"})
		return
	}

	msg, err := gateway.ParseInboundWebhook(c.Request)
	switch {
	case errors.Is(err, gateway.ErrNotAMessageEvent):
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}
	if msg.FromMe {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ev := enrollment.InboundEvent{
		ProviderMessageID: msg.MessageID,
		AssistantID:       msg.Instance,
		Phone:             msg.From,
		Text:              msg.Text,
		ReceivedAt:        msg.ReceivedAt,
	}
	if err := h.Engine.HandleInboundEvent(c.Request.Context(), ev); err != nil {
		logger.FromGin(c).Error("inbound event handling failed",
			"assistant_id", msg.Instance, "err", err)
		// 500 makes the gateway redeliver; ingestion dedup keeps that safe.
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "event handling failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

// Convenience middleware bundle.
func RequireAccountAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireAccount(), rbac.RequireAnyRole(roles...)}
}
