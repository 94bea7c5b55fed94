package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// defaultUniqueKeys mirrors the unique constraints of InitializeSchema
var defaultUniqueKeys = map[string][][]string{
	"content_sets":     {{"id"}},
	"paragraphs":       {{"id"}},
	"wisdom_sections":  {{"id"}},
	"user_progress":    {{"id"}, {"user_id", "content_id", "content_type"}},
	"word_logs":        {{"id"}},
	"sessions":         {{"id"}},
	"user_daily_stats": {{"id"}, {"user_id", "date"}},
	"daily_totals":     {{"id"}, {"user_id", "date"}},
	"user_stats":       {{"user_id"}},
	"access_codes":     {{"id"}, {"code"}},
}

// serialTables get an auto-incremented id column
var serialTables = map[string]bool{
	"user_progress":    true,
	"word_logs":        true,
	"sessions":         true,
	"user_daily_stats": true,
	"daily_totals":     true,
	"access_codes":     true,
}

// MemoryStore is an in-process Store. Individual tables can be made to
// fail, which is how a missing or renamed remote table is simulated.
type MemoryStore struct {
	mu       sync.Mutex
	tables   map[string][]Row
	failures map[string]error
	nextID   int64
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables:   make(map[string][]Row),
		failures: make(map[string]error),
	}
}

// FailTable makes every operation on table return err. A nil err clears it.
func (m *MemoryStore) FailTable(table string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, table)
		return
	}
	m.failures[table] = err
}

// Rows returns a copy of every row currently stored in table
func (m *MemoryStore) Rows(table string) []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Row, 0, len(m.tables[table]))
	for _, row := range m.tables[table] {
		out = append(out, copyRow(row))
	}
	return out
}

func (m *MemoryStore) fail(table string) error {
	if err, ok := m.failures[table]; ok {
		return fmt.Errorf("table %s: %w", table, err)
	}
	return nil
}

func copyRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

// Insert adds one row
func (m *MemoryStore) Insert(ctx context.Context, table string, row Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(table); err != nil {
		return err
	}
	return m.insertLocked(table, copyRow(row))
}

func (m *MemoryStore) insertLocked(table string, row Row) error {
	if _, ok := row["id"]; !ok && serialTables[table] {
		m.nextID++
		row["id"] = m.nextID
	}
	if idx := m.conflictLocked(table, row, nil); idx >= 0 {
		return fmt.Errorf("failed to insert into %s: %w", table, ErrDuplicate)
	}
	m.tables[table] = append(m.tables[table], row)
	return nil
}

// conflictLocked returns the index of a row sharing a unique key with row.
// When keys is non-nil only that key is checked.
func (m *MemoryStore) conflictLocked(table string, row Row, keys []string) int {
	uniques := defaultUniqueKeys[table]
	if keys != nil {
		uniques = [][]string{keys}
	}
	for i, existing := range m.tables[table] {
		for _, key := range uniques {
			if sameKey(existing, row, key) {
				return i
			}
		}
	}
	return -1
}

func sameKey(a, b Row, key []string) bool {
	for _, col := range key {
		av, aok := a[col]
		bv, bok := b[col]
		if !aok || !bok || compareValues(av, bv) != 0 {
			return false
		}
	}
	return true
}

// Select runs q and returns the matching rows
func (m *MemoryStore) Select(ctx context.Context, q Query) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(q.Table); err != nil {
		return nil, err
	}
	for _, f := range q.Filters {
		if err := checkOp(f.Op); err != nil {
			return nil, err
		}
	}

	var result []Row
	for _, row := range m.tables[q.Table] {
		if matches(row, q.Filters) {
			result = append(result, copyRow(row))
		}
	}
	if q.OrderBy != "" {
		sort.SliceStable(result, func(i, j int) bool {
			c := compareValues(result[i][q.OrderBy], result[j][q.OrderBy])
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	if len(q.Columns) > 0 {
		for i, row := range result {
			projected := make(Row, len(q.Columns))
			for _, col := range q.Columns {
				projected[col] = row[col]
			}
			result[i] = projected
		}
	}
	return result, nil
}

// Update sets columns on every row matching filters
func (m *MemoryStore) Update(ctx context.Context, table string, set Row, filters ...Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(table); err != nil {
		return 0, err
	}
	var n int64
	for _, row := range m.tables[table] {
		if !matches(row, filters) {
			continue
		}
		for k, v := range set {
			row[k] = v
		}
		n++
	}
	return n, nil
}

// Upsert inserts row or merges it into the row holding the same conflict key
func (m *MemoryStore) Upsert(ctx context.Context, table string, row Row, conflict ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(table); err != nil {
		return err
	}
	if len(conflict) > 0 {
		if idx := m.conflictLocked(table, row, conflict); idx >= 0 {
			existing := m.tables[table][idx]
			for k, v := range row {
				existing[k] = v
			}
			return nil
		}
	}
	return m.insertLocked(table, copyRow(row))
}

func matches(row Row, filters []Filter) bool {
	for _, f := range filters {
		v, ok := row[f.Column]
		if !ok {
			return false
		}
		c := compareValues(v, f.Value)
		switch f.Op {
		case OpEq:
			if c != 0 {
				return false
			}
		case OpGt:
			if c <= 0 {
				return false
			}
		case OpGte:
			if c < 0 {
				return false
			}
		case OpLt:
			if c >= 0 {
				return false
			}
		case OpLte:
			if c > 0 {
				return false
			}
		}
	}
	return true
}

// compareValues orders numbers numerically and everything else as text
func compareValues(a, b any) int {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
