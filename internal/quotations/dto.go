package quotations

import "time"

// QuotationResponse is the outward-facing representation of a quotation.
type QuotationResponse struct {
	ID               int64                `json:"id"`
	UserID           int64                `json:"userId"`
	OwnerName        string               `json:"ownerName,omitempty"`
	OwnerEmail       string               `json:"ownerEmail,omitempty"`
	Service          string               `json:"service"`
	Description      string               `json:"description"`
	Status           Status               `json:"status"`
	AdminObservation *string              `json:"adminObservation"`
	CreatedAt        time.Time            `json:"createdAt"`
	UpdatedAt        time.Time            `json:"updatedAt"`
	Documents        []AttachmentResponse `json:"documents"`
}

type AttachmentResponse struct {
	ID         int64     `json:"id"`
	UploadedBy int64     `json:"uploadedBy"`
	FileName   string    `json:"fileName"`
	MimeType   string    `json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	UploadedAt time.Time `json:"uploadedAt"`
}

func toResponse(q Quotation) QuotationResponse {
	docs := make([]AttachmentResponse, 0, len(q.Attachments))
	for _, a := range q.Attachments {
		docs = append(docs, AttachmentResponse{
			ID:         a.ID,
			UploadedBy: a.UploadedBy,
			FileName:   a.FileName,
			MimeType:   a.MimeType,
			SizeBytes:  a.SizeBytes,
			UploadedAt: a.UploadedAt,
		})
	}
	return QuotationResponse{
		ID:               q.ID,
		UserID:           q.UserID,
		OwnerName:        q.OwnerName,
		OwnerEmail:       q.OwnerEmail,
		Service:          q.Service,
		Description:      q.Description,
		Status:           q.Status,
		AdminObservation: q.AdminObservation,
		CreatedAt:        q.CreatedAt,
		UpdatedAt:        q.UpdatedAt,
		Documents:        docs,
	}
}

func toResponses(list []Quotation) []QuotationResponse {
	out := make([]QuotationResponse, 0, len(list))
	for _, q := range list {
		out = append(out, toResponse(q))
	}
	return out
}
