package database

import (
	"context"
	"fmt"

	"github.com/example/retype/pkg/models"
)

const TableAccessCodes = "access_codes"

// AccessCodeRepository handles one-time access codes
type AccessCodeRepository struct {
	store Store
}

// NewAccessCodeRepository creates a new repository instance
func NewAccessCodeRepository(store Store) *AccessCodeRepository {
	return &AccessCodeRepository{store: store}
}

// GetByCode returns the access code, or ErrNotFound
func (r *AccessCodeRepository) GetByCode(ctx context.Context, code string) (*models.AccessCode, error) {
	rows, err := r.store.Select(ctx, Query{
		Table:   TableAccessCodes,
		Filters: []Filter{Eq("code", code)},
		Limit:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get access code: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	row := rows[0]
	return &models.AccessCode{
		ID:       row.Int("id"),
		Code:     row.String("code"),
		CodeType: row.String("code_type"),
		IsUsed:   row.Bool("is_used"),
		UsedAt:   row.String("used_at"),
		UserID:   row.String("user_id"),
	}, nil
}

// Create stores a new unused code
func (r *AccessCodeRepository) Create(ctx context.Context, code *models.AccessCode) error {
	err := r.store.Insert(ctx, TableAccessCodes, Row{
		"code":      code.Code,
		"code_type": code.CodeType,
		"is_used":   false,
	})
	if err != nil {
		return fmt.Errorf("failed to create access code: %w", err)
	}
	return nil
}

// MarkUsed binds an unused code to userID. It reports false when the code
// was used in the meantime.
func (r *AccessCodeRepository) MarkUsed(ctx context.Context, id int64, userID, usedAt string) (bool, error) {
	n, err := r.store.Update(ctx, TableAccessCodes,
		Row{"is_used": true, "used_at": usedAt, "user_id": userID},
		Eq("id", id), Eq("is_used", false))
	if err != nil {
		return false, fmt.Errorf("failed to mark access code used: %w", err)
	}
	return n > 0, nil
}
