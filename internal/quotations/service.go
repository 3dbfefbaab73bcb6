package quotations

import (
	"context"
	"errors"
	"strings"
	"sync"

	"quotation-backend/internal/policy"
	"quotation-backend/internal/shared/apperr"
	"quotation-backend/internal/shared/auth"
	"quotation-backend/internal/shared/metrics"
	"quotation-backend/internal/shared/telemetry"
	"quotation-backend/internal/shared/validation"
)

const notPendingMsg = "quotation can only be changed while pending"

type Service struct {
	Repo        Repo
	Attachments AttachmentSource
	Objects     ObjectRemover

	initOnce sync.Once
	validate *validation.Validator
}

func NewService(repo Repo, attachments AttachmentSource, objects ObjectRemover) *Service {
	return &Service{Repo: repo, Attachments: attachments, Objects: objects}
}

func (s *Service) validator() *validation.Validator {
	s.initOnce.Do(func() { s.validate = validation.New() })
	return s.validate
}

func (s *Service) Create(ctx context.Context, actor auth.Identity, in ContentInput) (Quotation, error) {
	in = trimContent(in)
	if err := s.validator().Struct(in); err != nil {
		return Quotation{}, err
	}
	q, err := s.Repo.Create(ctx, Quotation{
		UserID:      actor.UserID,
		Service:     in.Service,
		Description: in.Description,
	})
	if err != nil {
		return Quotation{}, apperr.Internal("quotations.create", err)
	}
	q.Attachments = []Attachment{}
	metrics.IncQuotationCreated()
	telemetry.Info("quotation.created", map[string]any{"quotation_id": q.ID, "user_id": actor.UserID})
	return q, nil
}

// ListMine returns the caller's quotations, newest first.
func (s *Service) ListMine(ctx context.Context, actor auth.Identity) ([]Quotation, error) {
	list, err := s.Repo.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, apperr.Internal("quotations.list_mine", err)
	}
	return s.withAttachments(ctx, list)
}

func (s *Service) Get(ctx context.Context, actor auth.Identity, id int64) (Quotation, error) {
	q, err := s.load(ctx, "quotations.get", id)
	if err != nil {
		return Quotation{}, err
	}
	if err := policy.CanView(actor, q.UserID); err != nil {
		return Quotation{}, err
	}
	list, err := s.withAttachments(ctx, []Quotation{q})
	if err != nil {
		return Quotation{}, err
	}
	return list[0], nil
}

// Update rewrites service and description. Only the owner may do so, and
// only while the quotation is pending.
func (s *Service) Update(ctx context.Context, actor auth.Identity, id int64, in ContentInput) (Quotation, error) {
	q, err := s.load(ctx, "quotations.update", id)
	if err != nil {
		return Quotation{}, err
	}
	if err := policy.CanEditContent(actor, q.UserID); err != nil {
		return Quotation{}, err
	}
	if q.Status != StatusPending {
		return Quotation{}, apperr.New(apperr.ErrInvalidState, notPendingMsg)
	}
	in = trimContent(in)
	if err := s.validator().Struct(in); err != nil {
		return Quotation{}, err
	}
	updated, err := s.Repo.UpdateContent(ctx, id, in.Service, in.Description)
	if err != nil {
		return Quotation{}, mapRepoErr("quotations.update", err)
	}
	list, err := s.withAttachments(ctx, []Quotation{updated})
	if err != nil {
		return Quotation{}, err
	}
	return list[0], nil
}

// Delete removes a pending quotation with its documents, then reclaims the
// stored objects. Reclaim failures are logged and never undo the delete.
func (s *Service) Delete(ctx context.Context, actor auth.Identity, id int64) error {
	q, err := s.load(ctx, "quotations.delete", id)
	if err != nil {
		return err
	}
	if err := policy.CanDeleteQuotation(actor, q.UserID); err != nil {
		return err
	}
	if q.Status != StatusPending {
		return apperr.New(apperr.ErrInvalidState, notPendingMsg)
	}
	keys, err := s.Repo.Delete(ctx, id)
	if err != nil {
		return mapRepoErr("quotations.delete", err)
	}
	metrics.IncQuotationDeleted()
	telemetry.Info("quotation.deleted", map[string]any{
		"quotation_id": id,
		"user_id":      actor.UserID,
		"documents":    len(keys),
	})
	s.reclaim(ctx, id, keys)
	return nil
}

func (s *Service) reclaim(ctx context.Context, quotationID int64, keys []string) {
	if s.Objects == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.Objects.Delete(ctx, key); err != nil {
			metrics.IncStorageReclaimFailed()
			telemetry.Warn("storage.reclaim_failed", map[string]any{
				"quotation_id": quotationID,
				"storage_key":  key,
				"error":        err.Error(),
			})
		}
	}
}

// ListAll lists quotations across owners. Administrators only.
func (s *Service) ListAll(ctx context.Context, actor auth.Identity, f Filter) ([]Quotation, error) {
	if err := policy.CanListAll(actor); err != nil {
		return nil, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalidStatus()
	}
	list, err := s.Repo.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal("quotations.list_all", err)
	}
	return s.withAttachments(ctx, list)
}

// UpdateStatus moves a quotation to any status and sets or clears the
// observation. It returns the updated quotation and the previous status.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Identity, id int64, in StatusInput) (Quotation, Status, error) {
	if err := policy.CanReview(actor); err != nil {
		return Quotation{}, "", err
	}
	if err := s.validator().Struct(in); err != nil {
		return Quotation{}, "", err
	}
	status, err := ParseStatus(in.Status)
	if err != nil {
		return Quotation{}, "", invalidStatus()
	}
	q, err := s.load(ctx, "quotations.review", id)
	if err != nil {
		return Quotation{}, "", err
	}

	var observation *string
	if in.Observation != nil {
		if trimmed := strings.TrimSpace(*in.Observation); trimmed != "" {
			observation = &trimmed
		}
	}
	updated, err := s.Repo.UpdateStatus(ctx, id, status, observation)
	if err != nil {
		return Quotation{}, "", mapRepoErr("quotations.review", err)
	}
	metrics.IncStatusChange(string(status))
	telemetry.Info("quotation.status_changed", map[string]any{
		"quotation_id": id,
		"admin_id":     actor.UserID,
		"from":         string(q.Status),
		"to":           string(status),
	})
	list, err := s.withAttachments(ctx, []Quotation{updated})
	if err != nil {
		return Quotation{}, "", err
	}
	return list[0], q.Status, nil
}

// Stats counts quotations per status. Administrators only.
func (s *Service) Stats(ctx context.Context, actor auth.Identity) (Stats, error) {
	if err := policy.CanListAll(actor); err != nil {
		return Stats{}, err
	}
	st, err := s.Repo.Stats(ctx)
	if err != nil {
		return Stats{}, apperr.Internal("quotations.stats", err)
	}
	return st, nil
}

// OwnerOf reports who owns a quotation without applying any policy.
func (s *Service) OwnerOf(ctx context.Context, id int64) (int64, error) {
	q, err := s.load(ctx, "quotations.owner", id)
	if err != nil {
		return 0, err
	}
	return q.UserID, nil
}

func (s *Service) load(ctx context.Context, op string, id int64) (Quotation, error) {
	q, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Quotation{}, mapRepoErr(op, err)
	}
	return q, nil
}

func (s *Service) withAttachments(ctx context.Context, list []Quotation) ([]Quotation, error) {
	if list == nil {
		list = []Quotation{}
	}
	if len(list) == 0 {
		return list, nil
	}
	var byID map[int64][]Attachment
	if s.Attachments != nil {
		ids := make([]int64, 0, len(list))
		for _, q := range list {
			ids = append(ids, q.ID)
		}
		var err error
		byID, err = s.Attachments.AttachmentsFor(ctx, ids...)
		if err != nil {
			return nil, apperr.Internal("quotations.attachments", err)
		}
	}
	for i := range list {
		list[i].Attachments = byID[list[i].ID]
		if list[i].Attachments == nil {
			list[i].Attachments = []Attachment{}
		}
	}
	return list, nil
}

func trimContent(in ContentInput) ContentInput {
	in.Service = strings.TrimSpace(in.Service)
	in.Description = strings.TrimSpace(in.Description)
	return in
}

func invalidStatus() error {
	return apperr.WithDetails(apperr.ErrValidation, "status is invalid",
		map[string]string{"status": "must be one of: pending in_review approved rejected"})
}

func mapRepoErr(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.New(apperr.ErrNotFound, ErrNotFound.Error())
	case errors.Is(err, ErrNotPending):
		return apperr.New(apperr.ErrInvalidState, notPendingMsg)
	default:
		return apperr.Internal(op, err)
	}
}
