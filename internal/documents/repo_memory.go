package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	docs   map[int64]Document

	// QuotationOwner resolves a parent quotation; it must return
	// ErrQuotationNotFound for unknown ids.
	QuotationOwner func(ctx context.Context, quotationID int64) (int64, error)
	// Labels fills the joined fields of the administrator listing.
	Labels func(quotationID, uploaderID int64) (service, uploader string)
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{docs: make(map[int64]Document)}
}

func (r *MemoryRepo) CreateForQuotation(ctx context.Context, doc Document, authorize func(int64) error) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.QuotationOwner == nil {
		return Document{}, ErrQuotationNotFound
	}
	owner, err := r.QuotationOwner(ctx, doc.QuotationID)
	if err != nil {
		return Document{}, err
	}
	if err := authorize(owner); err != nil {
		return Document{}, err
	}
	r.nextID++
	doc.ID = r.nextID
	doc.UploadedAt = time.Now().UTC()
	r.docs[doc.ID] = doc
	return doc, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id int64) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (r *MemoryRepo) ListByQuotation(ctx context.Context, quotationID int64) ([]Document, error) {
	return r.filter(ctx, func(d Document) bool { return d.QuotationID == quotationID })
}

func (r *MemoryRepo) ListByQuotations(ctx context.Context, quotationIDs []int64) (map[int64][]Document, error) {
	wanted := make(map[int64]struct{}, len(quotationIDs))
	for _, id := range quotationIDs {
		wanted[id] = struct{}{}
	}
	docs, err := r.filter(ctx, func(d Document) bool {
		_, ok := wanted[d.QuotationID]
		return ok
	})
	if err != nil {
		return nil, err
	}
	out := make(map[int64][]Document)
	for _, d := range docs {
		out[d.QuotationID] = append(out[d.QuotationID], d)
	}
	return out, nil
}

func (r *MemoryRepo) ListByUploader(ctx context.Context, userID int64) ([]Document, error) {
	return r.filter(ctx, func(d Document) bool { return d.UserID == userID })
}

func (r *MemoryRepo) ListAll(ctx context.Context) ([]Document, error) {
	docs, err := r.filter(ctx, func(Document) bool { return true })
	if err != nil || r.Labels == nil {
		return docs, err
	}
	for i := range docs {
		docs[i].QuotationService, docs[i].UploaderName = r.Labels(docs[i].QuotationID, docs[i].UserID)
	}
	return docs, nil
}

// filter returns matching documents newest first.
func (r *MemoryRepo) filter(ctx context.Context, match func(Document) bool) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := []Document{}
	for _, d := range r.docs {
		if match(d) {
			out = append(out, d)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id int64) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	delete(r.docs, id)
	return doc, nil
}

// DeleteByQuotation drops every row of a quotation and returns their
// storage keys. It mirrors the foreign key cascade of the Postgres schema.
func (r *MemoryRepo) DeleteByQuotation(quotationID int64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []string
	for id, d := range r.docs {
		if d.QuotationID == quotationID {
			keys = append(keys, d.StorageKey)
			delete(r.docs, id)
		}
	}
	sort.Strings(keys)
	return keys
}
