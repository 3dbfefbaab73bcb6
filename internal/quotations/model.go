package quotations

import (
	"fmt"
	"strings"
	"time"
)

// Status is the review state of a quotation. Any status may follow any other;
// administrators have full discretion over the workflow.
type Status string

const (
	StatusPending  Status = "pending"
	StatusInReview Status = "in_review"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{StatusPending, StatusInReview, StatusApproved, StatusRejected}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if s.Valid() {
		return s, nil
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Quotation is a service request owned by one user.
type Quotation struct {
	ID               int64
	UserID           int64
	Service          string
	Description      string
	Status           Status
	AdminObservation *string
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Populated by joins on admin and detail reads.
	OwnerName  string
	OwnerEmail string

	Attachments []Attachment
}

// Attachment is the summary of a document linked to a quotation.
type Attachment struct {
	ID         int64
	UploadedBy int64
	FileName   string
	MimeType   string
	SizeBytes  int64
	UploadedAt time.Time
}

// Filter narrows the administrator listing. Zero values match everything.
// CreatedFrom is inclusive, CreatedTo exclusive.
type Filter struct {
	Status      Status
	OwnerID     int64
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// Stats counts quotations per status.
type Stats struct {
	Pending  int64 `json:"pending"`
	InReview int64 `json:"inReview"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Total    int64 `json:"total"`
}

type ContentInput struct {
	Service     string `json:"service" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=5000"`
}

type StatusInput struct {
	Status      string  `json:"status" validate:"required"`
	Observation *string `json:"observation" validate:"omitempty,max=2000"`
}
