package tables

import (
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/trezcool/masomo/core/datatable"
)

const dateLayout = "2006-01-02"

// Filter values that do not parse are ignored, the same way "all" is.

func boolFilter(column string) datatable.PredicateFilter {
	return func(q datatable.Query, value string) datatable.Query {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return q
		}
		return q.Where(sq.Eq{column: b})
	}
}

// sinceFilter keeps the rows where column is at or after the given RFC3339 time or date.
func sinceFilter(column string) datatable.PredicateFilter {
	return func(q datatable.Query, value string) datatable.Query {
		t, _, err := parseTime(value)
		if err != nil {
			return q
		}
		return q.Where(sq.GtOrEq{column: t})
	}
}

// untilFilter keeps the rows where column is at or before the given RFC3339 time, or on or before the given date.
func untilFilter(column string) datatable.PredicateFilter {
	return func(q datatable.Query, value string) datatable.Query {
		t, isDate, err := parseTime(value)
		if err != nil {
			return q
		}
		if isDate {
			return q.Where(sq.Lt{column: t.AddDate(0, 0, 1)})
		}
		return q.Where(sq.LtOrEq{column: t})
	}
}

// nullFilter keeps the rows where column is set ("true") or NULL ("false").
func nullFilter(column string) datatable.PredicateFilter {
	return func(q datatable.Query, value string) datatable.Query {
		set, err := strconv.ParseBool(value)
		if err != nil {
			return q
		}
		if set {
			return q.Where(sq.NotEq{column: nil})
		}
		return q.Where(sq.Eq{column: nil})
	}
}

func minFilter(column string) datatable.PredicateFilter {
	return func(q datatable.Query, value string) datatable.Query {
		n, err := strconv.ParseInt(value, 10, 32) // INTEGER column
		if err != nil {
			return q
		}
		return q.Where(sq.GtOrEq{column: int(n)})
	}
}

func parseTime(value string) (t time.Time, isDate bool, err error) {
	if t, err = time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), false, nil
	}
	if t, err = time.Parse(dateLayout, value); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, err
}

// formatTime renders nullable timestamps for the wire.
func formatTime(row datatable.Row, col string) *string {
	if row.IsNull(col) {
		return nil
	}
	s := row.Time(col).UTC().Format(time.RFC3339)
	return &s
}
