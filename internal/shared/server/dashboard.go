package server

import (
	"context"

	"github.com/gin-gonic/gin"

	"quotation-backend/internal/quotations"
	"quotation-backend/internal/shared/auth"
	"quotation-backend/internal/shared/server/middleware"
	"quotation-backend/internal/shared/server/respond"
)

type quotationStats interface {
	Stats(ctx context.Context, actor auth.Identity) (quotations.Stats, error)
}

type userCounter interface {
	CountUsers(ctx context.Context, actor auth.Identity) (int64, error)
}

// DashboardHandler serves the administrator landing summary.
type DashboardHandler struct {
	Quotations quotationStats
	Users      userCounter
}

func NewDashboardHandler(q quotationStats, u userCounter) *DashboardHandler {
	return &DashboardHandler{Quotations: q, Users: u}
}

func (h *DashboardHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/admin/dashboard", h.dashboard)
}

func (h *DashboardHandler) dashboard(c *gin.Context) {
	actor, _ := middleware.IdentityFromContext(c)
	stats, err := h.Quotations.Stats(c.Request.Context(), actor)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	count, err := h.Users.CountUsers(c.Request.Context(), actor)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, gin.H{
		"message": "Welcome to the administration panel",
		"user": gin.H{
			"id":    actor.UserID,
			"email": actor.Email,
			"role":  actor.Role,
		},
		"quotations": stats,
		"users":      count,
	})
}
