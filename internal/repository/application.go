package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dharsanguruparan/loandrop/internal/model"
	"github.com/dharsanguruparan/loandrop/internal/storage"
)

// CreateApplication inserts a new application in progress.
func (s *Store) CreateApplication(ctx context.Context, app *model.Application) error {
	now := time.Now().UTC()
	if app.Status == "" {
		app.Status = model.ApplicationInProgress
	}
	app.CreatedAt = now
	app.UpdatedAt = now
	_, err := s.pool.Exec(ctx, `
		INSERT INTO applications (id, org_name, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
	`, app.ID, app.OrgName, string(app.Status), app.CreatedAt, app.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert application: %w", mapWriteErr(err))
	}
	return nil
}

// GetApplication loads the application and a ref for each attached document.
func (s *Store) GetApplication(ctx context.Context, id string) (*model.Application, error) {
	var (
		app    model.Application
		status string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, org_name, status, created_at, updated_at FROM applications WHERE id=$1
	`, id).Scan(&app.ID, &app.OrgName, &status, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("application %s: %w", id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("select application: %w", err)
	}
	app.Status = model.ApplicationStatus(status)

	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, state FROM documents WHERE application_id=$1 ORDER BY created_at, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("select application documents: %w", err)
	}
	defer rows.Close()
	app.Documents = []model.DocumentRef{}
	for rows.Next() {
		var (
			ref   model.DocumentRef
			kind  int
			state string
		)
		if err := rows.Scan(&ref.DocumentID, &kind, &state); err != nil {
			return nil, fmt.Errorf("scan document ref: %w", err)
		}
		ref.Kind = model.Kind(kind)
		ref.State = model.ProcessingState(state)
		app.Documents = append(app.Documents, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select application documents: %w", err)
	}
	return &app, nil
}
