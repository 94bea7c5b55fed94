package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/retype/pkg/models"
)

const (
	TableContentSets    = "content_sets"
	TableParagraphs     = "paragraphs"
	TableWisdomSections = "wisdom_sections"
)

// ContentRepository handles content sets and their items
type ContentRepository struct {
	store Store
}

// NewContentRepository creates a new repository instance
func NewContentRepository(store Store) *ContentRepository {
	return &ContentRepository{store: store}
}

// First returns the first content set without its items, or ErrNotFound
func (r *ContentRepository) First(ctx context.Context) (*models.ContentSet, error) {
	rows, err := r.store.Select(ctx, Query{
		Table:   TableContentSets,
		Columns: []string{"id", "title", "subtitle"},
		OrderBy: "created_at",
		Limit:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get content set: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &models.ContentSet{
		ID:       rows[0].String("id"),
		Title:    rows[0].String("title"),
		Subtitle: rows[0].String("subtitle"),
	}, nil
}

// Paragraphs returns the paragraphs of a set in order
func (r *ContentRepository) Paragraphs(ctx context.Context, setID string) ([]models.Paragraph, error) {
	rows, err := r.store.Select(ctx, Query{
		Table:   TableParagraphs,
		Filters: []Filter{Eq("content_set_id", setID)},
		OrderBy: "order_index",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get paragraphs: %w", err)
	}
	paragraphs := make([]models.Paragraph, 0, len(rows))
	for _, row := range rows {
		paragraphs = append(paragraphs, models.Paragraph{
			ID:           row.String("id"),
			ContentSetID: row.String("content_set_id"),
			OrderIndex:   int(row.Int("order_index")),
			Content:      row.String("content"),
		})
	}
	return paragraphs, nil
}

// WisdomSections returns the wisdom sections of a set
func (r *ContentRepository) WisdomSections(ctx context.Context, setID string) ([]models.WisdomSection, error) {
	rows, err := r.store.Select(ctx, Query{
		Table:   TableWisdomSections,
		Filters: []Filter{Eq("content_set_id", setID)},
		OrderBy: "id",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get wisdom sections: %w", err)
	}
	sections := make([]models.WisdomSection, 0, len(rows))
	for _, row := range rows {
		sections = append(sections, models.WisdomSection{
			ID:           row.String("id"),
			ContentSetID: row.String("content_set_id"),
			Type:         row.String("type"),
			Title:        row.String("title"),
			Content:      row.String("content"),
		})
	}
	return sections, nil
}

// SaveSet creates a content set or renames an existing one. created reports
// whether a new set was stored; the creation time of existing sets is kept.
func (r *ContentRepository) SaveSet(ctx context.Context, set *models.ContentSet, createdAt string) (created bool, err error) {
	err = r.store.Insert(ctx, TableContentSets, Row{
		"id":         set.ID,
		"title":      set.Title,
		"subtitle":   set.Subtitle,
		"created_at": createdAt,
	})
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, ErrDuplicate) {
		return false, fmt.Errorf("failed to create content set: %w", err)
	}
	_, err = r.store.Update(ctx, TableContentSets,
		Row{"title": set.Title, "subtitle": set.Subtitle},
		Eq("id", set.ID))
	if err != nil {
		return false, fmt.Errorf("failed to update content set: %w", err)
	}
	return false, nil
}

// SaveParagraph creates or replaces a paragraph
func (r *ContentRepository) SaveParagraph(ctx context.Context, p *models.Paragraph) error {
	err := r.store.Upsert(ctx, TableParagraphs, Row{
		"id":             p.ID,
		"content_set_id": p.ContentSetID,
		"order_index":    p.OrderIndex,
		"content":        p.Content,
	}, "id")
	if err != nil {
		return fmt.Errorf("failed to save paragraph: %w", err)
	}
	return nil
}

// SaveWisdomSection creates or replaces a wisdom section
func (r *ContentRepository) SaveWisdomSection(ctx context.Context, w *models.WisdomSection) error {
	err := r.store.Upsert(ctx, TableWisdomSections, Row{
		"id":             w.ID,
		"content_set_id": w.ContentSetID,
		"type":           w.Type,
		"title":          w.Title,
		"content":        w.Content,
	}, "id")
	if err != nil {
		return fmt.Errorf("failed to save wisdom section: %w", err)
	}
	return nil
}
