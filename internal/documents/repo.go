package documents

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrQuotationNotFound = errors.New("quotation not found")
)

// Repo defines persistence operations for documents.
type Repo interface {
	// CreateForQuotation reads the parent quotation's owner, lets authorize
	// veto the insert, and stores the row, all in one unit of work.
	CreateForQuotation(ctx context.Context, doc Document, authorize func(quotationOwnerID int64) error) (Document, error)
	Get(ctx context.Context, id int64) (Document, error)
	ListByQuotation(ctx context.Context, quotationID int64) ([]Document, error)
	ListByQuotations(ctx context.Context, quotationIDs []int64) (map[int64][]Document, error)
	ListByUploader(ctx context.Context, userID int64) ([]Document, error)
	ListAll(ctx context.Context) ([]Document, error)
	// Delete removes the row and returns it so the caller can reclaim bytes.
	Delete(ctx context.Context, id int64) (Document, error)
}

// QuotationLookup resolves the owner of a quotation. Implementations return
// an error matching apperr.ErrNotFound when the id does not resolve.
type QuotationLookup interface {
	OwnerOf(ctx context.Context, quotationID int64) (int64, error)
}
