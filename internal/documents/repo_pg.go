package documents

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"quotation-backend/internal/shared/storage/db"
)

const documentColumns = `d.id, d.quotation_id, d.user_id, d.storage_key, d.file_name, d.mime_type, d.size_bytes, d.uploaded_at`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner, extra ...any) (Document, error) {
	var doc Document
	dest := []any{
		&doc.ID,
		&doc.QuotationID,
		&doc.UserID,
		&doc.StorageKey,
		&doc.FileName,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.UploadedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// CreateForQuotation holds a share lock on the parent row so a concurrent
// delete cannot orphan the new document.
func (r *PGRepo) CreateForQuotation(ctx context.Context, doc Document, authorize func(int64) error) (Document, error) {
	var created Document
	err := db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		var owner int64
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM quotations WHERE id = $1 FOR SHARE`, doc.QuotationID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrQuotationNotFound
		}
		if err != nil {
			return err
		}
		if err := authorize(owner); err != nil {
			return err
		}

		const query = `
INSERT INTO documents AS d (quotation_id, user_id, storage_key, file_name, mime_type, size_bytes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + documentColumns
		created, err = scanDocument(tx.QueryRowContext(ctx, query,
			doc.QuotationID,
			doc.UserID,
			doc.StorageKey,
			doc.FileName,
			doc.MimeType,
			doc.SizeBytes,
		))
		return err
	})
	if err != nil {
		return Document{}, err
	}
	return created, nil
}

func (r *PGRepo) Get(ctx context.Context, id int64) (Document, error) {
	const query = `SELECT ` + documentColumns + ` FROM documents d WHERE d.id = $1`
	return scanDocument(r.DB.QueryRowContext(ctx, query, id))
}

func (r *PGRepo) ListByQuotation(ctx context.Context, quotationID int64) ([]Document, error) {
	const query = `SELECT ` + documentColumns + `
FROM documents d
WHERE d.quotation_id = $1
ORDER BY d.uploaded_at DESC, d.id DESC`
	return r.list(ctx, query, quotationID)
}

func (r *PGRepo) ListByQuotations(ctx context.Context, quotationIDs []int64) (map[int64][]Document, error) {
	out := make(map[int64][]Document)
	if len(quotationIDs) == 0 {
		return out, nil
	}
	const query = `SELECT ` + documentColumns + `
FROM documents d
WHERE d.quotation_id = ANY($1::bigint[])
ORDER BY d.uploaded_at DESC, d.id DESC`
	docs, err := r.list(ctx, query, int8Array(quotationIDs))
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		out[doc.QuotationID] = append(out[doc.QuotationID], doc)
	}
	return out, nil
}

func (r *PGRepo) ListByUploader(ctx context.Context, userID int64) ([]Document, error) {
	const query = `SELECT ` + documentColumns + `
FROM documents d
WHERE d.user_id = $1
ORDER BY d.uploaded_at DESC, d.id DESC`
	return r.list(ctx, query, userID)
}

func (r *PGRepo) ListAll(ctx context.Context) ([]Document, error) {
	const query = `SELECT ` + documentColumns + `, q.service, u.name
FROM documents d
JOIN quotations q ON q.id = d.quotation_id
JOIN users u ON u.id = d.user_id
ORDER BY d.uploaded_at DESC, d.id DESC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		var service, uploader string
		doc, err := scanDocument(rows, &service, &uploader)
		if err != nil {
			return nil, err
		}
		doc.QuotationService = service
		doc.UploaderName = uploader
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (r *PGRepo) list(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (r *PGRepo) Delete(ctx context.Context, id int64) (Document, error) {
	const query = `DELETE FROM documents d WHERE d.id = $1 RETURNING ` + documentColumns
	return scanDocument(r.DB.QueryRowContext(ctx, query, id))
}

// int8Array renders ids as a Postgres array literal.
func int8Array(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

var _ Repo = (*PGRepo)(nil)
