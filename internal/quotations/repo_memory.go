package quotations

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo keeps quotations in process memory for dev and tests.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]Quotation

	// Now stamps created and updated times. Defaults to time.Now.
	Now func() time.Time
	// Cascade is invoked after a quotation is removed and returns the
	// storage keys of the document rows it removed. It runs outside the
	// repo lock so it may call back into lookups.
	Cascade func(quotationID int64) []string
	// Owners resolves owner name and email for joined reads.
	Owners func(userID int64) (name, email string)
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: make(map[int64]Quotation)}
}

func (r *MemoryRepo) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *MemoryRepo) withOwner(q Quotation) Quotation {
	if r.Owners != nil {
		q.OwnerName, q.OwnerEmail = r.Owners(q.UserID)
	}
	return q
}

func (r *MemoryRepo) Create(ctx context.Context, q Quotation) (Quotation, error) {
	if err := ctx.Err(); err != nil {
		return Quotation{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	q.ID = r.nextID
	q.Status = StatusPending
	q.AdminObservation = nil
	q.CreatedAt = r.now()
	q.UpdatedAt = q.CreatedAt
	r.items[q.ID] = q
	return q, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id int64) (Quotation, error) {
	if err := ctx.Err(); err != nil {
		return Quotation{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.items[id]
	if !ok {
		return Quotation{}, ErrNotFound
	}
	return r.withOwner(q), nil
}

func (r *MemoryRepo) ListByOwner(ctx context.Context, userID int64) ([]Quotation, error) {
	return r.List(ctx, Filter{OwnerID: userID})
}

func (r *MemoryRepo) List(ctx context.Context, f Filter) ([]Quotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Quotation
	for _, q := range r.items {
		if f.Status != "" && q.Status != f.Status {
			continue
		}
		if f.OwnerID != 0 && q.UserID != f.OwnerID {
			continue
		}
		if f.CreatedFrom != nil && q.CreatedAt.Before(*f.CreatedFrom) {
			continue
		}
		if f.CreatedTo != nil && !q.CreatedAt.Before(*f.CreatedTo) {
			continue
		}
		out = append(out, r.withOwner(q))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) UpdateContent(ctx context.Context, id int64, service, description string) (Quotation, error) {
	if err := ctx.Err(); err != nil {
		return Quotation{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.items[id]
	if !ok {
		return Quotation{}, ErrNotFound
	}
	if q.Status != StatusPending {
		return Quotation{}, ErrNotPending
	}
	q.Service = service
	q.Description = description
	q.UpdatedAt = r.now()
	r.items[id] = q
	return r.withOwner(q), nil
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, id int64, status Status, observation *string) (Quotation, error) {
	if err := ctx.Err(); err != nil {
		return Quotation{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.items[id]
	if !ok {
		return Quotation{}, ErrNotFound
	}
	q.Status = status
	q.AdminObservation = nil
	if observation != nil {
		obs := *observation
		q.AdminObservation = &obs
	}
	q.UpdatedAt = r.now()
	r.items[id] = q
	return r.withOwner(q), nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id int64) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	q, ok := r.items[id]
	if !ok {
		r.mu.Unlock()
		return nil, ErrNotFound
	}
	if q.Status != StatusPending {
		r.mu.Unlock()
		return nil, ErrNotPending
	}
	delete(r.items, id)
	r.mu.Unlock()
	if r.Cascade == nil {
		return nil, nil
	}
	return r.Cascade(id), nil
}

func (r *MemoryRepo) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var st Stats
	for _, q := range r.items {
		st.add(q.Status, 1)
	}
	return st, nil
}

func (st *Stats) add(s Status, n int64) {
	switch s {
	case StatusPending:
		st.Pending += n
	case StatusInReview:
		st.InReview += n
	case StatusApproved:
		st.Approved += n
	case StatusRejected:
		st.Rejected += n
	default:
		return
	}
	st.Total += n
}
