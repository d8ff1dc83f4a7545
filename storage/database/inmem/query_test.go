package inmemdb

import (
	"context"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core/datatable"
)

func TestLikeMatch(t *testing.T) {
	tests := []struct {
		pattern string
		s       string
		want    bool
	}{
		{pattern: "%an%", s: "Hannah", want: true},
		{pattern: "%AN%", s: "diana", want: true},
		{pattern: "%an%", s: "Bob", want: false},
		{pattern: "a_b", s: "axb", want: true},
		{pattern: `a\_b`, s: "axb", want: false},
		{pattern: `a\_b`, s: "a_b", want: true},
		{pattern: `%0\%%`, s: "100% pure", want: true},
		{pattern: `%0\%%`, s: "1000 pure", want: false},
		{pattern: `%\\%`, s: `back\slash`, want: true},
		{pattern: `%\\%`, s: "backslash", want: false},
		{pattern: "%%", s: "", want: true},
		{pattern: "_", s: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"~"+tt.s, func(t *testing.T) {
			assert.Equal(t, tt.want, likeMatch(tt.pattern, tt.s))
		})
	}
}

func testTable() *Table {
	db := Open()
	tbl := db.Table("scores")
	tbl.Insert(
		datatable.Row{"id": 1, "name": "a", "score": 70, "at": time.Unix(30, 0)},
		datatable.Row{"id": 2, "name": "b", "score": nil, "at": time.Unix(10, 0)},
		datatable.Row{"id": 3, "name": "c", "score": 90, "at": time.Unix(20, 0)},
		datatable.Row{"id": 4, "name": "d", "score": 50, "at": nil},
	)
	return tbl
}

func ids(t *testing.T, q datatable.Query) []int {
	rows, err := q.Fetch(context.Background())
	require.NoError(t, err)
	out := make([]int, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Int("id"))
	}
	return out
}

func TestQuery_predicates(t *testing.T) {
	base := testTable().Query()

	tests := []struct {
		name string
		pred sq.Sqlizer
		want []int
	}{
		{name: "eq", pred: sq.Eq{"name": "c"}, want: []int{3}},
		{name: "eq string against int", pred: sq.Eq{"score": "70"}, want: []int{1}},
		{name: "in", pred: sq.Eq{"name": []string{"a", "d"}}, want: []int{1, 4}},
		{name: "is null", pred: sq.Eq{"score": nil}, want: []int{2}},
		{name: "is not null", pred: sq.NotEq{"score": nil}, want: []int{1, 3, 4}},
		{name: "not eq skips nulls", pred: sq.NotEq{"score": 70}, want: []int{3, 4}},
		{name: "gte", pred: sq.GtOrEq{"score": 70}, want: []int{1, 3}},
		{name: "lt", pred: sq.Lt{"score": 70}, want: []int{4}},
		{name: "time range", pred: sq.And{sq.Gt{"at": time.Unix(10, 0)}, sq.LtOrEq{"at": time.Unix(30, 0)}}, want: []int{1, 3}},
		{name: "or", pred: sq.Or{sq.Eq{"name": "a"}, sq.Eq{"score": nil}}, want: []int{1, 2}},
		{name: "search", pred: datatable.NewSearchPredicate([]string{"name"}, "B"), want: []int{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(t, base.Where(tt.pred)))
		})
	}

	_, err := base.Where(sq.Expr("score > ?", 1)).Count(context.Background())
	assert.Error(t, err)
}

func TestQuery_orderAndPage(t *testing.T) {
	base := testTable().Query()

	assert.Equal(t, []int{4, 1, 3, 2}, ids(t, base.OrderBy("score", datatable.Asc)))
	assert.Equal(t, []int{2, 3, 1, 4}, ids(t, base.OrderBy("score", datatable.Desc)), "nulls first when descending")
	assert.Equal(t, []int{2, 3, 1, 4}, ids(t, base.OrderBy("at", datatable.Asc)))
	assert.Equal(t, []int{1, 3}, ids(t, base.OrderBy("score", datatable.Asc).Offset(1).Limit(2)))
	assert.Equal(t, []int{}, ids(t, base.Offset(10)))

	n, err := base.OrderBy("score", datatable.Asc).Offset(1).Limit(1).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n, "count ignores paging")
}

func TestQuery_immutable(t *testing.T) {
	base := testTable().Query()
	filtered := base.Where(sq.Eq{"name": "a"})
	_ = filtered.Where(sq.Eq{"name": "b"})

	assert.Equal(t, []int{1, 2, 3, 4}, ids(t, base))
	assert.Equal(t, []int{1}, ids(t, filtered))
}

func TestQuery_rowsAreCopies(t *testing.T) {
	tbl := testTable()
	rows, err := tbl.Query().Fetch(context.Background())
	require.NoError(t, err)
	rows[0]["name"] = "changed"

	assert.Equal(t, []int{1}, ids(t, tbl.Query().Where(sq.Eq{"name": "a"})))
}

func TestQuery_canceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testTable().Query().Count(ctx)
	assert.Equal(t, context.Canceled, err)
}

func TestTable_UpdateDelete(t *testing.T) {
	tbl := testTable()
	n := tbl.Update(func(row datatable.Row) bool { return row.IsNull("score") }, func(row datatable.Row) { row["score"] = 0 })
	assert.Equal(t, 1, n)
	assert.Equal(t, []int{2}, ids(t, tbl.Query().Where(sq.Eq{"score": 0})))

	n = tbl.Delete(func(row datatable.Row) bool { return row.Int("score") < 60 })
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, tbl.Len())
}
