package inmemdb

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/trezcool/masomo/core/datatable"
)

type query struct {
	table    *Table
	preds    []sq.Sqlizer
	orders   []datatable.Order
	offset   uint64
	limit    uint64
	hasLimit bool
}

var _ datatable.Query = query{}

// Query returns a query over all the rows of the table.
func (t *Table) Query() datatable.Query {
	return query{table: t}
}

func (q query) Where(pred sq.Sqlizer) datatable.Query {
	preds := make([]sq.Sqlizer, len(q.preds), len(q.preds)+1)
	copy(preds, q.preds)
	q.preds = append(preds, pred)
	return q
}

func (q query) OrderBy(column string, dir datatable.Direction) datatable.Query {
	orders := make([]datatable.Order, len(q.orders), len(q.orders)+1)
	copy(orders, q.orders)
	q.orders = append(orders, datatable.Order{Column: column, Dir: dir})
	return q
}

func (q query) Offset(n uint64) datatable.Query {
	q.offset = n
	return q
}

func (q query) Limit(n uint64) datatable.Query {
	q.limit = n
	q.hasLimit = true
	return q
}

func (q query) Count(ctx context.Context) (int, error) {
	rows, err := q.filter(ctx)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (q query) Fetch(ctx context.Context) ([]datatable.Row, error) {
	rows, err := q.filter(ctx)
	if err != nil {
		return nil, err
	}

	if len(q.orders) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			for _, ord := range q.orders {
				c := compareNullsLast(rows[i][ord.Column], rows[j][ord.Column])
				if c == 0 {
					continue
				}
				if ord.Dir == datatable.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if q.offset >= uint64(len(rows)) {
		return make([]datatable.Row, 0), nil
	}
	rows = rows[q.offset:]
	if q.hasLimit && q.limit < uint64(len(rows)) {
		rows = rows[:q.limit]
	}

	out := make([]datatable.Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, copyRow(row))
	}
	return out, nil
}

func (q query) filter(ctx context.Context) ([]datatable.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matched := make([]datatable.Row, 0)
	for _, row := range q.table.snapshot() {
		ok, err := matchAll(q.preds, row)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, row)
		}
	}
	return matched, nil
}

func matchAll(preds []sq.Sqlizer, row datatable.Row) (bool, error) {
	for _, pred := range preds {
		ok, err := match(pred, row)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// match evaluates the subset of squirrel predicates used by the datasets against row, with SQL NULL semantics.
func match(pred sq.Sqlizer, row datatable.Row) (bool, error) {
	switch p := pred.(type) {
	case datatable.SearchPredicate:
		for _, col := range p.Columns() {
			if v := row[col]; v != nil && likeMatch(p.Pattern(), cast.ToString(v)) {
				return true, nil
			}
		}
		return false, nil
	case sq.Eq:
		return matchEach(p, row, func(v, want interface{}) bool { return isEqual(v, want) })
	case sq.NotEq:
		return matchEach(p, row, func(v, want interface{}) bool {
			if want == nil {
				return v != nil
			}
			return v != nil && !isEqual(v, want)
		})
	case sq.Lt:
		return matchEach(p, row, compareWith(func(c int) bool { return c < 0 }))
	case sq.LtOrEq:
		return matchEach(p, row, compareWith(func(c int) bool { return c <= 0 }))
	case sq.Gt:
		return matchEach(p, row, compareWith(func(c int) bool { return c > 0 }))
	case sq.GtOrEq:
		return matchEach(p, row, compareWith(func(c int) bool { return c >= 0 }))
	case sq.And:
		return matchAll(p, row)
	case sq.Or:
		for _, sub := range p {
			ok, err := match(sub, row)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, errors.Errorf("in-memory query: unsupported predicate %T", pred)
	}
}

func matchEach(exprs map[string]interface{}, row datatable.Row, fn func(v, want interface{}) bool) (bool, error) {
	for col, want := range exprs {
		if !fn(row[col], want) {
			return false, nil
		}
	}
	return true, nil
}

func compareWith(ok func(c int) bool) func(v, want interface{}) bool {
	return func(v, want interface{}) bool {
		if v == nil || want == nil {
			return false
		}
		return ok(compare(v, want))
	}
}

// isEqual handles `col = value`, `col IN (values...)` and `col IS NULL`.
func isEqual(v, want interface{}) bool {
	if want == nil {
		return v == nil
	}
	if v == nil {
		return false
	}
	if rv := reflect.ValueOf(want); rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		for i := 0; i < rv.Len(); i++ {
			if isEqual(v, rv.Index(i).Interface()) {
				return true
			}
		}
		return false
	}
	return compare(v, want) == 0
}

// compare orders a row value against a value of possibly another type (eg. an int column against a string filter).
func compare(a, b interface{}) int {
	switch av := a.(type) {
	case time.Time:
		if bv, err := cast.ToTimeE(b); err == nil {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			}
			return 0
		}
	case bool:
		if bv, err := cast.ToBoolE(b); err == nil {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			}
			return 1
		}
	case string:
		if _, isStr := b.(string); isStr {
			return strings.Compare(av, b.(string))
		}
	}

	af, aErr := cast.ToFloat64E(a)
	bf, bErr := cast.ToFloat64E(b)
	if aErr == nil && bErr == nil {
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

// compareNullsLast sorts NULLs after every value. Descending orders reverse it, so NULLs come first like in Postgres.
func compareNullsLast(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return compare(a, b)
}

// likeMatch reports whether s matches the LIKE pattern case-insensitively (ILIKE),
// using datatable.LikeEscape as escape character.
func likeMatch(pattern, s string) bool {
	return likeRunes([]rune(strings.ToLower(pattern)), []rune(strings.ToLower(s)))
}

func likeRunes(p, s []rune) bool {
	for len(p) > 0 {
		switch p[0] {
		case '%':
			for len(p) > 0 && p[0] == '%' {
				p = p[1:]
			}
			if len(p) == 0 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if likeRunes(p, s[i:]) {
					return true
				}
			}
			return false
		case '_':
			if len(s) == 0 {
				return false
			}
			p, s = p[1:], s[1:]
		case datatable.LikeEscape:
			if len(p) < 2 || len(s) == 0 || s[0] != p[1] {
				return false
			}
			p, s = p[2:], s[1:]
		default:
			if len(s) == 0 || s[0] != p[0] {
				return false
			}
			p, s = p[1:], s[1:]
		}
	}
	return len(s) == 0
}
