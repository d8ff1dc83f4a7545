package datatable

import (
	"sort"

	sq "github.com/Masterminds/squirrel"
)

// FilterAll is the filter value meaning "do not filter".
const FilterAll = "all"

// RowTransformer maps a fetched row to its wire format record.
// It must not have side effects; its output is placed verbatim in the response data.
type RowTransformer func(row Row) (interface{}, error)

// Dataset declares how one logical table is exposed through the engine.
type Dataset struct {
	Name string

	// CachePrefix enables response caching for the dataset when non-empty.
	CachePrefix string

	// Searchable are the columns the free-text search is applied to, OR'ed together.
	Searchable []string

	// Columns maps the client-facing column indices to the columns allowed for ordering.
	Columns map[int]string

	// Filters maps request parameter names to the filter applied with their value.
	Filters map[string]Filter

	// DefaultOrder is applied whenever the requested order column is not in Columns.
	DefaultOrder Order

	// Transform maps the fetched rows; rows are returned as-is when nil.
	Transform RowTransformer
}

func (ds *Dataset) filterNames() []string {
	names := make([]string, 0, len(ds.Filters))
	for name := range ds.Filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Filter is either an EqualityFilter or a PredicateFilter.
type Filter interface {
	apply(q Query, value string) Query
}

var (
	_ Filter = EqualityFilter{}
	_ Filter = PredicateFilter(nil)
)

// EqualityFilter restricts Column to be equal to the filter value.
type EqualityFilter struct {
	Column string
}

func (f EqualityFilter) apply(q Query, value string) Query {
	return q.Where(sq.Eq{f.Column: value})
}

// PredicateFilter applies arbitrary predicates (ranges, sub-queries, existence checks...) for the filter value.
// The value is untrusted: the function must only pass it to the query as a bound argument.
type PredicateFilter func(q Query, value string) Query

func (f PredicateFilter) apply(q Query, value string) Query {
	return f(q, value)
}
