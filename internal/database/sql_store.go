package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// SQLStore implements Store on top of a sqlite3 or postgres database
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps an open connection
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func sortedColumns(row Row) []string {
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func whereClause(filters []Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		if err := checkIdent(f.Column); err != nil {
			return "", nil, err
		}
		if err := checkOp(f.Op); err != nil {
			return "", nil, err
		}
		parts = append(parts, fmt.Sprintf("%s %s ?", f.Column, f.Op))
		args = append(args, f.Value)
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

// Insert adds one row
func (s *SQLStore) Insert(ctx context.Context, table string, row Row) error {
	cols := sortedColumns(row)
	if err := checkIdent(append(cols, table)...); err != nil {
		return err
	}
	args := make([]any, len(cols))
	for i, col := range cols {
		args[i] = row[col]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders(len(cols)))
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, classify(err))
	}
	return nil
}

// Select runs q and returns the matching rows
func (s *SQLStore) Select(ctx context.Context, q Query) ([]Row, error) {
	if err := checkIdent(q.Table); err != nil {
		return nil, err
	}
	columns := "*"
	if len(q.Columns) > 0 {
		if err := checkIdent(q.Columns...); err != nil {
			return nil, err
		}
		columns = strings.Join(q.Columns, ", ")
	}
	where, args, err := whereClause(q.Filters)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s", columns, q.Table, where)
	if q.OrderBy != "" {
		if err := checkIdent(q.OrderBy); err != nil {
			return nil, err
		}
		query += " ORDER BY " + q.OrderBy
		if q.Desc {
			query += " DESC"
		}
	}
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", q.Table, err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", q.Table, err)
		}
		result = append(result, Row(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s rows: %w", q.Table, err)
	}
	return result, nil
}

// Update sets columns on every row matching filters and reports how many changed
func (s *SQLStore) Update(ctx context.Context, table string, set Row, filters ...Filter) (int64, error) {
	if len(set) == 0 {
		return 0, fmt.Errorf("update of %s has no columns", table)
	}
	cols := sortedColumns(set)
	if err := checkIdent(append(cols, table)...); err != nil {
		return 0, err
	}
	assignments := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(filters))
	for i, col := range cols {
		assignments[i] = col + " = ?"
		args = append(args, set[col])
	}
	where, whereArgs, err := whereClause(filters)
	if err != nil {
		return 0, err
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s%s", table, strings.Join(assignments, ", "), where)
	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update %s: %w", table, classify(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// Upsert inserts row, or overwrites the non-key columns of the row that
// already holds the same conflict key
func (s *SQLStore) Upsert(ctx context.Context, table string, row Row, conflict ...string) error {
	if len(conflict) == 0 {
		return s.Insert(ctx, table, row)
	}
	cols := sortedColumns(row)
	if err := checkIdent(append(append(cols, conflict...), table)...); err != nil {
		return err
	}
	keys := make(map[string]bool, len(conflict))
	for _, c := range conflict {
		keys[c] = true
	}
	args := make([]any, len(cols))
	var updates []string
	for i, col := range cols {
		args[i] = row[col]
		if !keys[col] {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
		}
	}
	action := "DO NOTHING"
	if len(updates) > 0 {
		action = "DO UPDATE SET " + strings.Join(updates, ", ")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		table, strings.Join(cols, ", "), placeholders(len(cols)), strings.Join(conflict, ", "), action)
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", table, classify(err))
	}
	return nil
}

// classify maps driver-specific unique violations onto ErrDuplicate
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Message)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint &&
		(liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%w: %s", ErrDuplicate, liteErr.Error())
	}
	return err
}
