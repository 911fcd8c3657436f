package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/geocoder89/taxdesk/internal/domain/document"
	"github.com/geocoder89/taxdesk/internal/observability"
	"github.com/geocoder89/taxdesk/internal/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ExtractedDataRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewExtractedDataRepo(pool *pgxpool.Pool, prom *observability.Prom) *ExtractedDataRepo {
	return &ExtractedDataRepo{pool: pool, prom: prom}
}

func (r *ExtractedDataRepo) Create(ctx context.Context, req document.CreateExtractedDataRequest) (document.ExtractedData, error) {
	if req.Extracted == nil || req.Extracted.DocumentType() != req.DocumentType {
		return document.ExtractedData{}, fmt.Errorf("payload does not match document type %q", req.DocumentType)
	}

	payload, err := json.Marshal(req.Extracted)
	if err != nil {
		return document.ExtractedData{}, fmt.Errorf("encode payload: %w", err)
	}

	now := time.Now().UTC()
	rec := document.ExtractedData{
		ID:               uuid.NewString(),
		UserID:           req.UserID,
		DocumentType:     req.DocumentType,
		Extracted:        req.Extracted,
		OriginalFileName: req.OriginalFileName,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = observe(r.prom, "extracted_data.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO extracted_data (id, user_id, document_type, extracted, original_file_name, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			rec.ID, rec.UserID, string(rec.DocumentType), payload, rec.OriginalFileName, rec.CreatedAt, rec.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return document.ExtractedData{}, err
	}

	return rec, nil
}

// ListByUser returns every record owned by userID, newest first.
func (r *ExtractedDataRepo) ListByUser(ctx context.Context, userID string) ([]document.ExtractedData, error) {
	var rows pgx.Rows

	err := observe(r.prom, "extracted_data.list_by_user", func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, `
			SELECT id, user_id, document_type, extracted, original_file_name, created_at, updated_at
			FROM extracted_data
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
		`, userID)
		return qerr
	})
	if err != nil {
		return nil, err
	}

	return collectRecords(rows, 0)
}

// ListByUserCursor pages through a user's records newest first, starting
// after the given cursor when one is set.
func (r *ExtractedDataRepo) ListByUserCursor(
	ctx context.Context,
	userID string,
	limit int,
	after *utils.RecordCursor,
) (items []document.ExtractedData, nextCursor *string, err error) {
	q := `
		SELECT id, user_id, document_type, extracted, original_file_name, created_at, updated_at
		FROM extracted_data
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	args := []any{userID, limit + 1}

	if after != nil {
		q = `
		SELECT id, user_id, document_type, extracted, original_file_name, created_at, updated_at
		FROM extracted_data
		WHERE user_id = $1
		  AND (created_at, id) < ($3, $4)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
		args = append(args, after.CreatedAt, after.ID)
	}

	var rows pgx.Rows
	err = observe(r.prom, "extracted_data.list_by_user_cursor", func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, q, args...)
		return qerr
	})
	if err != nil {
		return nil, nil, err
	}

	out, err := collectRecords(rows, limit+1)
	if err != nil {
		return nil, nil, err
	}

	if len(out) > limit {
		out = out[:limit]
		last := out[len(out)-1]
		cur, encErr := utils.EncodeRecordCursor(last.CreatedAt, last.ID)
		if encErr != nil {
			return nil, nil, encErr
		}
		nextCursor = &cur
	}

	return out, nextCursor, nil
}

func collectRecords(rows pgx.Rows, capHint int) ([]document.ExtractedData, error) {
	defer rows.Close()

	out := make([]document.ExtractedData, 0, capHint)

	for rows.Next() {
		var (
			rec     document.ExtractedData
			docType string
			payload []byte
		)

		if err := rows.Scan(&rec.ID, &rec.UserID, &docType, &payload, &rec.OriginalFileName, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}

		rec.DocumentType = document.Type(docType)

		p, err := document.UnmarshalStored(rec.DocumentType, payload)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		rec.Extracted = p

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
