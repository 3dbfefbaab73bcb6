package users

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"quotation-backend/internal/shared/apperr"
	"quotation-backend/internal/shared/server/middleware"
	"quotation-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterPublicRoutes attaches the unauthenticated auth endpoints.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/register", h.register)
	rg.POST("/auth/login", h.login)
}

// RegisterRoutes attaches endpoints for any authenticated user.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/profile", h.profile)
	rg.PUT("/auth/profile", h.updateProfile)
	rg.PUT("/auth/password", h.changePassword)
}

// RegisterAdminRoutes attaches administrator-only user management.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/users", h.list)
	rg.GET("/users/:id", h.get)
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respond.FromError(c, apperr.New(apperr.ErrValidation, "request body must be valid JSON"))
		return false
	}
	return true
}

func (h *Handler) register(c *gin.Context) {
	var in RegisterInput
	if !bindJSON(c, &in) {
		return
	}
	session, err := h.Svc.Register(c.Request.Context(), in)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.Created(c, session)
}

func (h *Handler) login(c *gin.Context) {
	var in LoginInput
	if !bindJSON(c, &in) {
		return
	}
	session, err := h.Svc.Login(c.Request.Context(), in)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, session)
}

func (h *Handler) profile(c *gin.Context) {
	actor, _ := middleware.IdentityFromContext(c)
	profile, err := h.Svc.GetProfile(c.Request.Context(), actor)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, gin.H{"user": profile})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var in UpdateProfileInput
	if !bindJSON(c, &in) {
		return
	}
	actor, _ := middleware.IdentityFromContext(c)
	profile, err := h.Svc.UpdateProfile(c.Request.Context(), actor, in)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, gin.H{"user": profile})
}

func (h *Handler) changePassword(c *gin.Context) {
	var in ChangePasswordInput
	if !bindJSON(c, &in) {
		return
	}
	actor, _ := middleware.IdentityFromContext(c)
	if err := h.Svc.ChangePassword(c.Request.Context(), actor, in); err != nil {
		respond.FromError(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) list(c *gin.Context) {
	actor, _ := middleware.IdentityFromContext(c)
	list, err := h.Svc.ListUsers(c.Request.Context(), actor)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, gin.H{"users": list})
}

func (h *Handler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.FromError(c, apperr.New(apperr.ErrValidation, "id must be a positive integer"))
		return
	}
	actor, _ := middleware.IdentityFromContext(c)
	profile, err := h.Svc.GetUser(c.Request.Context(), actor, id)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, gin.H{"user": profile})
}
