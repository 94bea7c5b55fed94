package database

import (
	"context"
	"fmt"

	"github.com/example/retype/pkg/models"
)

const TableUserProgress = "user_progress"

// UserProgressRepository handles per-item completion records
type UserProgressRepository struct {
	store Store
}

// NewUserProgressRepository creates a new repository instance
func NewUserProgressRepository(store Store) *UserProgressRepository {
	return &UserProgressRepository{store: store}
}

func progressFromRow(row Row) models.ProgressRecord {
	return models.ProgressRecord{
		ID:          row.Int("id"),
		UserID:      row.String("user_id"),
		ContentID:   row.String("content_id"),
		ContentType: models.ContentType(row.String("content_type")),
		Completed:   row.Bool("completed"),
		CompletedAt: row.String("completed_at"),
	}
}

// Get returns the record for one content item, or ErrNotFound
func (r *UserProgressRepository) Get(ctx context.Context, userID, contentID string, contentType models.ContentType) (*models.ProgressRecord, error) {
	rows, err := r.store.Select(ctx, Query{
		Table: TableUserProgress,
		Filters: []Filter{
			Eq("user_id", userID),
			Eq("content_id", contentID),
			Eq("content_type", string(contentType)),
		},
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user progress: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	progress := progressFromRow(rows[0])
	return &progress, nil
}

// ListForUser returns every progress record of the user
func (r *UserProgressRepository) ListForUser(ctx context.Context, userID string) ([]models.ProgressRecord, error) {
	rows, err := r.store.Select(ctx, Query{
		Table:   TableUserProgress,
		Filters: []Filter{Eq("user_id", userID)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list user progress: %w", err)
	}
	records := make([]models.ProgressRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, progressFromRow(row))
	}
	return records, nil
}

// Create inserts a new progress record
func (r *UserProgressRepository) Create(ctx context.Context, progress *models.ProgressRecord) error {
	row := Row{
		"user_id":      progress.UserID,
		"content_id":   progress.ContentID,
		"content_type": string(progress.ContentType),
		"completed":    progress.Completed,
	}
	if progress.CompletedAt != "" {
		row["completed_at"] = progress.CompletedAt
	}
	if err := r.store.Insert(ctx, TableUserProgress, row); err != nil {
		return fmt.Errorf("failed to create user progress: %w", err)
	}
	return nil
}

// Update rewrites the completion state of an existing record
func (r *UserProgressRepository) Update(ctx context.Context, progress *models.ProgressRecord) error {
	set := Row{"completed": progress.Completed}
	if progress.CompletedAt != "" {
		set["completed_at"] = progress.CompletedAt
	}
	n, err := r.store.Update(ctx, TableUserProgress, set, Eq("id", progress.ID))
	if err != nil {
		return fmt.Errorf("failed to update user progress: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateOrUpdate updates the record for the same item when one exists and
// inserts a new one otherwise. A completed record is never reset.
func (r *UserProgressRepository) CreateOrUpdate(ctx context.Context, progress *models.ProgressRecord) error {
	existing, err := r.Get(ctx, progress.UserID, progress.ContentID, progress.ContentType)
	switch {
	case err == nil && existing.Completed && !progress.Completed:
		*progress = *existing
		return nil
	case err == nil:
		progress.ID = existing.ID
		return r.Update(ctx, progress)
	case err == ErrNotFound:
		return r.Create(ctx, progress)
	default:
		return err
	}
}
