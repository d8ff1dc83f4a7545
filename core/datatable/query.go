package datatable

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/spf13/cast"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection case-insensitively parses "asc" or "desc".
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Asc:
		return Asc, true
	case Desc:
		return Desc, true
	}
	return "", false
}

// SQL returns the direction as an SQL keyword.
func (d Direction) SQL() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// Order is a resolved (column, direction) pair. Column is always a server-declared name.
type Order struct {
	Column string
	Dir    Direction
}

// Query is the composable, read-only query builder a dataset's backend exposes to the engine.
//
// Implementations must be immutable: every builder method returns a new Query and leaves
// the receiver untouched, so the engine can count the base query and keep composing on top of it.
type Query interface {
	// Where ANDs the predicate onto the query.
	Where(pred sq.Sqlizer) Query
	OrderBy(column string, dir Direction) Query
	Offset(n uint64) Query
	Limit(n uint64) Query

	// Count returns the number of rows matched by the query, ignoring ordering, offset and limit.
	Count(ctx context.Context) (int, error)
	// Fetch executes the query and returns the rows in order.
	Fetch(ctx context.Context) ([]Row, error)
}

// Row is a fetched record keyed by column name.
type Row map[string]interface{}

func (r Row) String(col string) string {
	return cast.ToString(r[col])
}

func (r Row) Int(col string) int {
	return cast.ToInt(r[col])
}

func (r Row) Int64(col string) int64 {
	return cast.ToInt64(r[col])
}

func (r Row) Bool(col string) bool {
	return cast.ToBool(r[col])
}

func (r Row) Time(col string) time.Time {
	return cast.ToTime(r[col])
}

// IsNull reports whether the column is absent or NULL.
func (r Row) IsNull(col string) bool {
	return r[col] == nil
}
