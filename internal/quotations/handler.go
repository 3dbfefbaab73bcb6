package quotations

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"quotation-backend/internal/shared/apperr"
	"quotation-backend/internal/shared/server/middleware"
	"quotation-backend/internal/shared/server/respond"
)

const dateLayout = "2006-01-02"

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches quotation routes for any authenticated user.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/quotations", h.create)
	rg.GET("/quotations/mine", h.listMine)
	rg.GET("/quotations/:id", h.get)
	rg.PUT("/quotations/:id", h.update)
	rg.DELETE("/quotations/:id", h.delete)
}

// RegisterAdminRoutes attaches the review endpoints. The group is expected
// to require the administrator role; the service checks it again.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/quotations", h.listAll)
	rg.GET("/quotations/stats", h.stats)
	rg.PATCH("/quotations/:id/status", h.updateStatus)
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respond.FromError(c, apperr.New(apperr.ErrValidation, "request body must be valid JSON"))
		return false
	}
	return true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.FromError(c, apperr.New(apperr.ErrValidation, "id must be a positive integer"))
		return 0, false
	}
	c.Set(middleware.QuotationIDKey, id)
	return id, true
}

func (h *Handler) create(c *gin.Context) {
	var in ContentInput
	if !bindJSON(c, &in) {
		return
	}
	actor, _ := middleware.IdentityFromContext(c)
	q, err := h.Svc.Create(c.Request.Context(), actor, in)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.Set(middleware.QuotationIDKey, q.ID)
	respond.Created(c, gin.H{"quotation": toResponse(q)})
}

func (h *Handler) listMine(c *gin.Context) {
	actor, _ := middleware.IdentityFromContext(c)
	list, err := h.Svc.ListMine(c.Request.Context(), actor)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, gin.H{"quotations": toResponses(list)})
}

func (h *Handler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	actor, _ := middleware.IdentityFromContext(c)
	q, err := h.Svc.Get(c.Request.Context(), actor, id)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, gin.H{"quotation": toResponse(q)})
}

func (h *Handler) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in ContentInput
	if !bindJSON(c, &in) {
		return
	}
	actor, _ := middleware.IdentityFromContext(c)
	q, err := h.Svc.Update(c.Request.Context(), actor, id, in)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, gin.H{"quotation": toResponse(q)})
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	actor, _ := middleware.IdentityFromContext(c)
	if err := h.Svc.Delete(c.Request.Context(), actor, id); err != nil {
		respond.FromError(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) listAll(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	actor, _ := middleware.IdentityFromContext(c)
	list, err := h.Svc.ListAll(c.Request.Context(), actor, f)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, gin.H{"quotations": toResponses(list)})
}

func (h *Handler) stats(c *gin.Context) {
	actor, _ := middleware.IdentityFromContext(c)
	st, err := h.Svc.Stats(c.Request.Context(), actor)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, gin.H{"stats": st})
}

func (h *Handler) updateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in StatusInput
	if !bindJSON(c, &in) {
		return
	}
	actor, _ := middleware.IdentityFromContext(c)
	q, from, err := h.Svc.UpdateStatus(c.Request.Context(), actor, id, in)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.Set(middleware.StatusTransitionKey, fmt.Sprintf("%s->%s", from, q.Status))
	respond.OK(c, gin.H{"quotation": toResponse(q)})
}

// parseFilter reads status, userId, from and to. Dates are calendar days in
// UTC and both ends are inclusive.
func parseFilter(c *gin.Context) (Filter, error) {
	var f Filter
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		s, err := ParseStatus(raw)
		if err != nil {
			return Filter{}, invalidStatus()
		}
		f.Status = s
	}
	if raw := strings.TrimSpace(c.Query("userId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return Filter{}, queryError("userId", "must be a positive integer")
		}
		f.OwnerID = id
	}
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		day, err := time.Parse(dateLayout, raw)
		if err != nil {
			return Filter{}, queryError("from", "must be a date formatted YYYY-MM-DD")
		}
		start, _ := dayBounds(day)
		f.CreatedFrom = &start
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		day, err := time.Parse(dateLayout, raw)
		if err != nil {
			return Filter{}, queryError("to", "must be a date formatted YYYY-MM-DD")
		}
		_, end := dayBounds(day)
		f.CreatedTo = &end
	}
	return f, nil
}

// dayBounds turns a calendar date into the half-open range covering it.
func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

func queryError(field, msg string) error {
	return apperr.WithDetails(apperr.ErrValidation, field+" "+msg, map[string]string{field: msg})
}
