package documents

import (
	"mime"
	"strings"
	"time"
)

// MaxUploadBytes is the largest accepted document.
const MaxUploadBytes int64 = 10 << 20

// Document is a file attached to a quotation.
type Document struct {
	ID          int64
	QuotationID int64
	UserID      int64
	StorageKey  string
	FileName    string
	MimeType    string
	SizeBytes   int64
	UploadedAt  time.Time

	// Populated on the administrator listing.
	QuotationService string
	UploaderName     string
}

// NormalizeMimeType lower-cases the media type and drops parameters such
// as charset. It returns "" when the value does not parse.
func NormalizeMimeType(declared string) string {
	mt, _, err := mime.ParseMediaType(strings.TrimSpace(declared))
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

// IsAllowedMimeType reports whether a normalized media type is accepted.
func IsAllowedMimeType(mt string) bool {
	switch mt {
	case "application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"image/jpeg",
		"image/png",
		"image/gif":
		return true
	}
	return false
}
