package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/loandrop/internal/model"
	"github.com/dharsanguruparan/loandrop/internal/storage"
)

// uniqueViolation is the Postgres SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

const documentColumns = `id, application_id, owner_user_id, org_name, kind, description,
	original_filename, mime_type, storage_key, state, raw_metadata, failure_reason,
	created_at, updated_at`

// Store wraps all SQL used by the reference API and the worker.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// NewStore constructs a repository over an open pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateDocument inserts a pending document.
func (s *Store) CreateDocument(ctx context.Context, doc *model.Document) error {
	now := time.Now().UTC()
	doc.State = model.StatePending
	doc.CreatedAt = now
	doc.UpdatedAt = now
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (id, application_id, owner_user_id, org_name, kind, description, state, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, doc.ID, doc.ApplicationID, doc.OwnerUserID, doc.OrgName, int(doc.Kind), doc.Description, string(doc.State), doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", mapWriteErr(err))
	}
	return nil
}

// GetDocument returns a document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("select document: %w", err)
	}
	return doc, nil
}

// ListByApplication pages through an application's documents in creation order.
func (s *Store) ListByApplication(ctx context.Context, applicationID string, limit, offset int) ([]model.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE application_id=$1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3
	`, applicationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	out := []model.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

// RegisterUpload stores the file reference. A re-upload clears any previous
// processing outcome.
func (s *Store) RegisterUpload(ctx context.Context, id string, up storage.Upload) error {
	return s.exec(ctx, id, `
		UPDATE documents
		SET original_filename=$1, mime_type=$2, storage_key=$3, state=$4,
			raw_metadata=NULL, failure_reason='', updated_at=$5
		WHERE id=$6
	`, up.Filename, up.MimeType, up.StorageKey, string(model.StatePending), time.Now().UTC(), id)
}

// MarkProcessing sets the state to processing.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	return s.exec(ctx, id, `
		UPDATE documents SET state=$1, failure_reason='', updated_at=$2 WHERE id=$3
	`, string(model.StateProcessing), time.Now().UTC(), id)
}

// MarkCompleted stores the extracted metadata.
func (s *Store) MarkCompleted(ctx context.Context, id string, metadata json.RawMessage) error {
	return s.exec(ctx, id, `
		UPDATE documents SET state=$1, raw_metadata=$2, updated_at=$3 WHERE id=$4
	`, string(model.StateCompleted), []byte(metadata), time.Now().UTC(), id)
}

// MarkFailed records why processing failed.
func (s *Store) MarkFailed(ctx context.Context, id string, reason string) error {
	return s.exec(ctx, id, `
		UPDATE documents SET state=$1, failure_reason=$2, updated_at=$3 WHERE id=$4
	`, string(model.StateFailed), reason, time.Now().UTC(), id)
}

func (s *Store) exec(ctx context.Context, id, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func scanDocument(row pgx.Row) (*model.Document, error) {
	var (
		doc   model.Document
		kind  int
		state string
		raw   []byte
	)
	err := row.Scan(&doc.ID, &doc.ApplicationID, &doc.OwnerUserID, &doc.OrgName, &kind, &doc.Description,
		&doc.OriginalFilename, &doc.MimeType, &doc.StorageKey, &state, &raw, &doc.FailureReason,
		&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.Kind = model.Kind(kind)
	doc.State = model.ProcessingState(state)
	if len(raw) > 0 {
		doc.RawMetadata = json.RawMessage(raw)
	}
	return &doc, nil
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return storage.ErrConflict
	}
	return err
}
