package datatable

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/strmangle"
)

// LikeEscape is the escape character used in search patterns.
const LikeEscape = '\\'

var (
	likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

	errNoSearchColumns = errors.New("search predicate has no columns")
)

// EscapeLike escapes the LIKE metacharacters (`\`, `%` and `_`) in s so it only matches literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// SearchPredicate is a case-insensitive "column contains value" predicate OR'ed across columns.
// The value is escaped when the predicate is built; there is no way to build one from a raw pattern.
type SearchPredicate struct {
	columns []string
	pattern string
}

func NewSearchPredicate(columns []string, value string) SearchPredicate {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return SearchPredicate{
		columns: cols,
		pattern: "%" + EscapeLike(value) + "%",
	}
}

func (p SearchPredicate) Columns() []string {
	cols := make([]string, len(p.columns))
	copy(cols, p.columns)
	return cols
}

// Pattern returns the escaped LIKE pattern, using LikeEscape as escape character.
func (p SearchPredicate) Pattern() string {
	return p.pattern
}

// ToSql renders the predicate for Postgres.
func (p SearchPredicate) ToSql() (string, []interface{}, error) {
	if len(p.columns) == 0 {
		return "", nil, errNoSearchColumns
	}
	exprs := make([]string, 0, len(p.columns))
	args := make([]interface{}, 0, len(p.columns))
	for _, col := range p.columns {
		exprs = append(exprs, strmangle.IdentQuote('"', '"', col)+` ILIKE ? ESCAPE '\'`)
		args = append(args, p.pattern)
	}
	return "(" + strings.Join(exprs, " OR ") + ")", args, nil
}

// compile applies the search and filter predicates of req onto q.
func compile(q Query, ds *Dataset, req Request) Query {
	if req.Search != "" && len(ds.Searchable) > 0 {
		q = q.Where(NewSearchPredicate(ds.Searchable, req.Search))
	}
	for _, name := range ds.filterNames() {
		val := req.Filters[name]
		if val == "" || val == FilterAll {
			continue
		}
		q = ds.Filters[name].apply(q, val)
	}
	return q
}

// resolveOrder maps the requested column index to a whitelisted column,
// falling back to the dataset default when the index is unknown.
func resolveOrder(ds *Dataset, req Request) Order {
	if col, ok := ds.Columns[req.OrderColumn]; ok {
		return Order{Column: col, Dir: req.OrderDir}
	}
	return ds.DefaultOrder
}
