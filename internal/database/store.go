package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	// ErrNotFound is returned by repositories when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique key
	ErrDuplicate = errors.New("duplicate key")
)

// Row is a single record keyed by column name
type Row map[string]any

// Op is a comparison operator usable in a filter
type Op string

const (
	OpEq  Op = "="
	OpGt  Op = ">"
	OpGte Op = ">="
	OpLt  Op = "<"
	OpLte Op = "<="
)

// Filter restricts a query to rows where Column Op Value holds
type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(column string, value any) Filter  { return Filter{Column: column, Op: OpEq, Value: value} }
func Gte(column string, value any) Filter { return Filter{Column: column, Op: OpGte, Value: value} }
func Lte(column string, value any) Filter { return Filter{Column: column, Op: OpLte, Value: value} }

// Query describes a select against one table
type Query struct {
	Table   string
	Columns []string // empty selects every column
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Store is the row store the remote gateway talks to. Every operation
// returns its data and an error; callers decide how much of a failure to
// tolerate.
type Store interface {
	Insert(ctx context.Context, table string, row Row) error
	Select(ctx context.Context, q Query) ([]Row, error)
	Update(ctx context.Context, table string, set Row, filters ...Filter) (int64, error)
	Upsert(ctx context.Context, table string, row Row, conflict ...string) error
}

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func checkIdent(names ...string) error {
	for _, name := range names {
		if !identPattern.MatchString(name) {
			return fmt.Errorf("invalid identifier %q", name)
		}
	}
	return nil
}

func checkOp(op Op) error {
	switch op {
	case OpEq, OpGt, OpGte, OpLt, OpLte:
		return nil
	}
	return fmt.Errorf("invalid operator %q", op)
}

// Int reads an integer column, tolerating the representations the
// supported drivers return. Missing or unparsable values read as 0.
func (r Row) Int(column string) int64 {
	switch v := r[column].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case []byte:
		n, _ := strconv.ParseFloat(string(v), 64)
		return int64(n)
	case string:
		n, _ := strconv.ParseFloat(v, 64)
		return int64(n)
	}
	return 0
}

// String reads a text column
func (r Row) String(column string) string {
	switch v := r[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(TimestampLayout)
	default:
		return fmt.Sprint(v)
	}
}

// Bool reads a boolean column stored either natively or as 0/1
func (r Row) Bool(column string) bool {
	switch v := r[column].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	case []byte:
		b, _ := strconv.ParseBool(string(v))
		return b
	}
	return r.Int(column) != 0
}

// Date reads a calendar date column as YYYY-MM-DD
func (r Row) Date(column string) string {
	if t, ok := r[column].(time.Time); ok {
		return t.Format(DateLayout)
	}
	s := r.String(column)
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	return s
}

const (
	// DateLayout is how calendar dates are stored
	DateLayout = "2006-01-02"
	// TimestampLayout is how instants are stored; it sorts lexically
	TimestampLayout = "2006-01-02T15:04:05.000Z"
)

// Timestamp formats t the way created_at columns expect it
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
