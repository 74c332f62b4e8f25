package main

import (
	"followup-platform/internal/auth"
	"followup-platform/internal/engine"
	"followup-platform/internal/httpapi"
	"followup-platform/internal/rbac"
	"followup-platform/internal/stats"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	auth          *auth.Manager
	engine        *engine.Engine
	stats         *stats.Service
	webhookSecret string
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, deps routeDeps) {
	h := httpapi.Handlers{
		Auth:          deps.auth,
		Engine:        deps.engine,
		Stats:         deps.stats,
		WebhookSecret: deps.webhookSecret,
	}

	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Gateway webhook (public; guarded by the shared apikey header when
	// GATEWAY_WEBHOOK_SECRET is set).
	r.POST("/webhooks/whatsapp", h.InboundWebhook)

	// Token issuance.
	r.POST("/v1/auth/login", h.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(deps.auth))
	{
		v1.GET("/me", func(c *gin.Context) {
			uid, _ := auth.UserID(c.Request.Context())
			aid, _ := auth.AccountID(c.Request.Context())
			role, _ := auth.Role(c.Request.Context())
			c.JSON(200, gin.H{"user_id": uid, "account_id": aid, "role": role})
		})

		// CAMPAIGN engine routes. Analysts can read stats; mutating passes
		// need owner/operator.
		campaigns := v1.Group("/campaigns")
		campaigns.Use(rbac.RequireAccount())
		{
			campaigns.GET("/:campaign_id/stats",
				rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleOperator, rbac.RoleAnalyst), h.CampaignStats)
			campaigns.POST("/:campaign_id/enroll",
				rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleOperator), h.EnrollCampaign)
			campaigns.POST("/:campaign_id/deleted",
				rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleOperator), h.CampaignDeleted)
		}

		// Manual pass triggers, for operators and runbooks.
		passes := v1.Group("/passes")
		passes.Use(rbac.RequireAccount())
		passes.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleOperator))
		{
			passes.POST("/sequencer", h.RunSequencer)
		}
	}
}
