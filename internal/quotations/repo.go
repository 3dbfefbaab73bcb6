package quotations

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("quotation not found")
	ErrNotPending = errors.New("quotation is no longer pending")
)

type Repo interface {
	Create(ctx context.Context, q Quotation) (Quotation, error)
	Get(ctx context.Context, id int64) (Quotation, error)
	ListByOwner(ctx context.Context, userID int64) ([]Quotation, error)
	List(ctx context.Context, f Filter) ([]Quotation, error)
	// UpdateContent succeeds only while the quotation is pending.
	UpdateContent(ctx context.Context, id int64, service, description string) (Quotation, error)
	UpdateStatus(ctx context.Context, id int64, status Status, observation *string) (Quotation, error)
	// Delete removes a pending quotation and its document rows, returning the
	// storage keys of the removed documents.
	Delete(ctx context.Context, id int64) ([]string, error)
	Stats(ctx context.Context) (Stats, error)
}

// AttachmentSource lists documents per quotation.
type AttachmentSource interface {
	AttachmentsFor(ctx context.Context, quotationIDs ...int64) (map[int64][]Attachment, error)
}

// ObjectRemover reclaims stored document bytes.
type ObjectRemover interface {
	Delete(ctx context.Context, storageKey string) error
}
