package documents

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"quotation-backend/internal/shared/apperr"
	"quotation-backend/internal/shared/server/middleware"
	"quotation-backend/internal/shared/server/respond"
)

// multipartOverhead leaves room for boundaries and the quotation_id field
// on top of the file itself.
const multipartOverhead = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.GET("/documents/mine", h.listMine)
	rg.GET("/documents/quotation/:id", h.listForQuotation)
	rg.GET("/documents/:id/file", h.download)
	rg.DELETE("/documents/:id", h.delete)
}

// RegisterAdminRoutes attaches the cross-user listing.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/documents", h.listAll)
}

func parseID(raw, field string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.WithDetails(apperr.ErrValidation, field+" must be a positive integer",
			map[string]string{field: "must be a positive integer"})
	}
	return id, nil
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.FromError(c, tooLarge())
			return
		}
		respond.FromError(c, apperr.WithDetails(apperr.ErrValidation, "file is required",
			map[string]string{"file": "is required"}))
		return
	}
	quotationID, err := parseID(c.PostForm("quotation_id"), "quotation_id")
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.Set(middleware.QuotationIDKey, quotationID)

	file, err := fileHeader.Open()
	if err != nil {
		respond.FromError(c, apperr.New(apperr.ErrValidation, "unable to read file"))
		return
	}
	defer file.Close()

	actor, _ := middleware.IdentityFromContext(c)
	doc, err := h.Svc.Upload(c.Request.Context(), actor, UploadInput{
		QuotationID:  quotationID,
		FileName:     fileHeader.Filename,
		MimeType:     fileHeader.Header.Get("Content-Type"),
		DeclaredSize: fileHeader.Size,
		Body:         file,
	})
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.Set(middleware.DocumentIDKey, doc.ID)
	respond.Created(c, gin.H{"document": toResponse(doc)})
}

func (h *Handler) listMine(c *gin.Context) {
	actor, _ := middleware.IdentityFromContext(c)
	docs, err := h.Svc.ListMine(c.Request.Context(), actor)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, gin.H{"documents": toResponses(docs)})
}

func (h *Handler) listForQuotation(c *gin.Context) {
	quotationID, err := parseID(c.Param("id"), "id")
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.Set(middleware.QuotationIDKey, quotationID)
	actor, _ := middleware.IdentityFromContext(c)
	docs, err := h.Svc.ListForQuotation(c.Request.Context(), actor, quotationID)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, gin.H{"documents": toResponses(docs)})
}

func (h *Handler) listAll(c *gin.Context) {
	actor, _ := middleware.IdentityFromContext(c)
	docs, err := h.Svc.ListAll(c.Request.Context(), actor)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, gin.H{"documents": toResponses(docs)})
}

func (h *Handler) delete(c *gin.Context) {
	id, err := parseID(c.Param("id"), "id")
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.Set(middleware.DocumentIDKey, id)
	actor, _ := middleware.IdentityFromContext(c)
	if err := h.Svc.Delete(c.Request.Context(), actor, id); err != nil {
		respond.FromError(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) download(c *gin.Context) {
	id, err := parseID(c.Param("id"), "id")
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.Set(middleware.DocumentIDKey, id)
	actor, _ := middleware.IdentityFromContext(c)
	doc, rc, err := h.Svc.Download(c.Request.Context(), actor, id)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	defer rc.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName})
	c.DataFromReader(http.StatusOK, doc.SizeBytes, doc.MimeType, rc, map[string]string{
		"Content-Disposition":    disposition,
		"X-Content-Type-Options": "nosniff",
	})
}
