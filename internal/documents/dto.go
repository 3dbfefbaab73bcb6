package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID               int64     `json:"id"`
	QuotationID      int64     `json:"quotationId"`
	UploadedBy       int64     `json:"uploadedBy"`
	FileName         string    `json:"fileName"`
	MimeType         string    `json:"mimeType"`
	SizeBytes        int64     `json:"sizeBytes"`
	UploadedAt       time.Time `json:"uploadedAt"`
	QuotationService string    `json:"quotationService,omitempty"`
	UploaderName     string    `json:"uploaderName,omitempty"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		ID:               doc.ID,
		QuotationID:      doc.QuotationID,
		UploadedBy:       doc.UserID,
		FileName:         doc.FileName,
		MimeType:         doc.MimeType,
		SizeBytes:        doc.SizeBytes,
		UploadedAt:       doc.UploadedAt,
		QuotationService: doc.QuotationService,
		UploaderName:     doc.UploaderName,
	}
}

func toResponses(docs []Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toResponse(doc))
	}
	return out
}
