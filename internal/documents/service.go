package documents

import (
	"context"
	"errors"
	"io"

	"quotation-backend/internal/policy"
	"quotation-backend/internal/shared/apperr"
	"quotation-backend/internal/shared/auth"
	"quotation-backend/internal/shared/metrics"
	"quotation-backend/internal/shared/storage/object"
	"quotation-backend/internal/shared/telemetry"
	"quotation-backend/internal/shared/util"
)

// Service contains business logic for documents.
type Service struct {
	Store      object.ObjectStore
	Repo       Repo
	Quotations QuotationLookup
}

func NewService(store object.ObjectStore, repo Repo, quotations QuotationLookup) *Service {
	return &Service{Store: store, Repo: repo, Quotations: quotations}
}

// UploadInput carries one received file. DeclaredSize is the length the
// client announced, or a negative value when unknown.
type UploadInput struct {
	QuotationID  int64
	FileName     string
	MimeType     string
	DeclaredSize int64
	Body         io.Reader
}

// Upload stores the bytes and records the document. Bytes written before a
// failed check are deleted again.
func (s *Service) Upload(ctx context.Context, actor auth.Identity, in UploadInput) (Document, error) {
	if in.QuotationID <= 0 {
		return Document{}, apperr.WithDetails(apperr.ErrValidation, "quotation_id is required",
			map[string]string{"quotation_id": "must be a positive integer"})
	}
	name, err := util.SanitizeFileName(in.FileName)
	if err != nil {
		return Document{}, apperr.WithDetails(apperr.ErrValidation, "file name is invalid",
			map[string]string{"file": "must have a usable name"})
	}
	mt := NormalizeMimeType(in.MimeType)
	if !IsAllowedMimeType(mt) {
		metrics.IncDocumentRejected()
		return Document{}, apperr.Newf(apperr.ErrUnsupportedMediaType, "file type %q is not allowed", in.MimeType)
	}
	if in.DeclaredSize > MaxUploadBytes {
		metrics.IncDocumentRejected()
		return Document{}, tooLarge()
	}

	// Fail early on a missing or foreign quotation; the insert re-checks.
	if s.Quotations != nil {
		owner, err := s.Quotations.OwnerOf(ctx, in.QuotationID)
		if err != nil {
			return Document{}, err
		}
		if err := policy.CanAttach(actor, owner); err != nil {
			return Document{}, err
		}
	}

	stored, err := s.Store.Save(ctx, actor.UserID, name, io.LimitReader(in.Body, MaxUploadBytes+1))
	if err != nil {
		if errors.Is(err, util.ErrInvalidFileName) {
			return Document{}, apperr.New(apperr.ErrValidation, "file name is invalid")
		}
		return Document{}, apperr.Internal("documents.store", err)
	}
	if stored.Size > MaxUploadBytes {
		s.discard(ctx, stored.Key)
		metrics.IncDocumentRejected()
		return Document{}, tooLarge()
	}

	doc, err := s.Repo.CreateForQuotation(ctx, Document{
		QuotationID: in.QuotationID,
		UserID:      actor.UserID,
		StorageKey:  stored.Key,
		FileName:    name,
		MimeType:    mt,
		SizeBytes:   stored.Size,
	}, func(owner int64) error {
		return policy.CanAttach(actor, owner)
	})
	if err != nil {
		s.discard(ctx, stored.Key)
		return Document{}, mapRepoErr("documents.create", err)
	}

	metrics.ObserveDocumentUploaded(doc.SizeBytes)
	telemetry.Info("document.uploaded", map[string]any{
		"document_id":  doc.ID,
		"quotation_id": doc.QuotationID,
		"user_id":      actor.UserID,
		"mime_type":    doc.MimeType,
		"size_bytes":   doc.SizeBytes,
	})
	return doc, nil
}

// discard compensates for bytes stored ahead of a rejected insert.
func (s *Service) discard(ctx context.Context, key string) {
	if err := s.Store.Delete(context.WithoutCancel(ctx), key); err != nil {
		metrics.IncStorageReclaimFailed()
		telemetry.Error("storage.discard_failed", map[string]any{"storage_key": key, "error": err.Error()})
	}
}

// ListForQuotation returns a quotation's documents to whoever may view it.
func (s *Service) ListForQuotation(ctx context.Context, actor auth.Identity, quotationID int64) ([]Document, error) {
	owner, err := s.Quotations.OwnerOf(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanView(actor, owner); err != nil {
		return nil, err
	}
	docs, err := s.Repo.ListByQuotation(ctx, quotationID)
	if err != nil {
		return nil, apperr.Internal("documents.list_quotation", err)
	}
	return docs, nil
}

// ListMine returns every document the caller uploaded, on any quotation.
func (s *Service) ListMine(ctx context.Context, actor auth.Identity) ([]Document, error) {
	docs, err := s.Repo.ListByUploader(ctx, actor.UserID)
	if err != nil {
		return nil, apperr.Internal("documents.list_mine", err)
	}
	return docs, nil
}

// ListAll lists every document with its quotation and uploader labels.
func (s *Service) ListAll(ctx context.Context, actor auth.Identity) ([]Document, error) {
	if err := policy.CanListAll(actor); err != nil {
		return nil, err
	}
	docs, err := s.Repo.ListAll(ctx)
	if err != nil {
		return nil, apperr.Internal("documents.list_all", err)
	}
	return docs, nil
}

// Delete removes the record, then reclaims the stored bytes once.
func (s *Service) Delete(ctx context.Context, actor auth.Identity, id int64) error {
	doc, err := s.Repo.Get(ctx, id)
	if err != nil {
		return mapRepoErr("documents.delete", err)
	}
	if err := policy.CanDeleteDocument(actor, doc.UserID); err != nil {
		return err
	}
	removed, err := s.Repo.Delete(ctx, id)
	if err != nil {
		return mapRepoErr("documents.delete", err)
	}
	metrics.IncDocumentDeleted()
	// The row is gone; the bytes must follow even if the caller hung up.
	if err := s.Store.Delete(context.WithoutCancel(ctx), removed.StorageKey); err != nil {
		metrics.IncStorageReclaimFailed()
		telemetry.Warn("storage.reclaim_failed", map[string]any{
			"document_id": id,
			"storage_key": removed.StorageKey,
			"error":       err.Error(),
		})
	}
	telemetry.Info("document.deleted", map[string]any{"document_id": id, "user_id": actor.UserID})
	return nil
}

// Download opens the stored bytes for the uploader, the quotation owner or
// an administrator. The caller closes the returned reader.
func (s *Service) Download(ctx context.Context, actor auth.Identity, id int64) (Document, io.ReadCloser, error) {
	doc, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Document{}, nil, mapRepoErr("documents.download", err)
	}
	owner, err := s.Quotations.OwnerOf(ctx, doc.QuotationID)
	if err != nil {
		return Document{}, nil, err
	}
	if err := policy.CanDownload(actor, doc.UserID, owner); err != nil {
		return Document{}, nil, err
	}
	rc, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Document{}, nil, apperr.New(apperr.ErrNotFound, "document content is no longer available")
		}
		return Document{}, nil, apperr.Internal("documents.open", err)
	}
	return doc, rc, nil
}

func tooLarge() error {
	return apperr.Newf(apperr.ErrPayloadTooLarge, "file exceeds the %d MiB limit", MaxUploadBytes>>20)
}

func mapRepoErr(op string, err error) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, ErrNotFound):
		return apperr.New(apperr.ErrNotFound, ErrNotFound.Error())
	case errors.Is(err, ErrQuotationNotFound):
		return apperr.New(apperr.ErrNotFound, ErrQuotationNotFound.Error())
	default:
		return apperr.Internal(op, err)
	}
}
