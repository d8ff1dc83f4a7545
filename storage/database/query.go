package database

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/masomo/core/datatable"
	"github.com/trezcool/masomo/core/tables"
	"github.com/trezcool/masomo/core/user"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// tableColumns are the columns selected per table. Secrets (eg. password hashes) are never selected.
var tableColumns = map[string][]string{
	user.TableName: {"id", "name", "username", "email", "kind", "roles", "is_active", "created_at", "updated_at", "last_login"},
	tables.StudentsTable: {"id", "name", "email", "class_name", "status", "enrolled_at"},
	tables.SubmissionsTable: {
		"id", "student_id", "student_name", "teacher_id", "assignment", "course", "status", "score", "submitted_at",
	},
}

func quote(ident string) string {
	return strmangle.IdentQuote('"', '"', ident)
}

// Source gives access to the Postgres tables; it implements tables.Source.
type Source struct {
	db sqlx.QueryerContext
}

var _ tables.Source = Source{}

func NewSource(db sqlx.QueryerContext) Source {
	return Source{db: db}
}

func (src Source) Query(table string) datatable.Query {
	cols, ok := tableColumns[table]
	if !ok {
		return TableQuery{err: errors.Errorf("unknown table %q", table)}
	}
	return NewTableQuery(src.db, table, cols...)
}

// TableQuery is an immutable squirrel-built query on one table.
type TableQuery struct {
	db       sqlx.QueryerContext
	table    string
	columns  []string
	preds    []sq.Sqlizer
	orders   []datatable.Order
	offset   uint64
	limit    uint64
	hasLimit bool
	err      error
}

var _ datatable.Query = TableQuery{}

func NewTableQuery(db sqlx.QueryerContext, table string, columns ...string) TableQuery {
	return TableQuery{db: db, table: table, columns: columns}
}

func (q TableQuery) Where(pred sq.Sqlizer) datatable.Query {
	preds := make([]sq.Sqlizer, len(q.preds), len(q.preds)+1)
	copy(preds, q.preds)
	q.preds = append(preds, pred)
	return q
}

func (q TableQuery) OrderBy(column string, dir datatable.Direction) datatable.Query {
	orders := make([]datatable.Order, len(q.orders), len(q.orders)+1)
	copy(orders, q.orders)
	q.orders = append(orders, datatable.Order{Column: column, Dir: dir})
	return q
}

func (q TableQuery) Offset(n uint64) datatable.Query {
	q.offset = n
	return q
}

func (q TableQuery) Limit(n uint64) datatable.Query {
	q.limit = n
	q.hasLimit = true
	return q
}

func (q TableQuery) where(b sq.SelectBuilder) sq.SelectBuilder {
	for _, pred := range q.preds {
		b = b.Where(pred)
	}
	return b
}

// CountSQL renders the count statement.
func (q TableQuery) CountSQL() (string, []interface{}, error) {
	return q.where(psql.Select("COUNT(*)").From(quote(q.table))).ToSql()
}

// SelectSQL renders the select statement.
func (q TableQuery) SelectSQL() (string, []interface{}, error) {
	cols := make([]string, 0, len(q.columns))
	for _, col := range q.columns {
		cols = append(cols, quote(col))
	}
	if len(cols) == 0 {
		cols = append(cols, "*")
	}

	b := q.where(psql.Select(cols...).From(quote(q.table)))
	for _, ord := range q.orders {
		b = b.OrderBy(quote(ord.Column) + " " + ord.Dir.SQL())
	}
	if q.offset > 0 {
		b = b.Offset(q.offset)
	}
	if q.hasLimit {
		b = b.Limit(q.limit)
	}
	return b.ToSql()
}

func (q TableQuery) Count(ctx context.Context) (int, error) {
	if q.err != nil {
		return 0, q.err
	}
	query, args, err := q.CountSQL()
	if err != nil {
		return 0, errors.Wrap(err, "building count query")
	}

	var n int
	if err = q.db.QueryRowxContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "counting %s", q.table)
	}
	return n, nil
}

func (q TableQuery) Fetch(ctx context.Context) ([]datatable.Row, error) {
	if q.err != nil {
		return nil, q.err
	}
	query, args, err := q.SelectSQL()
	if err != nil {
		return nil, errors.Wrap(err, "building select query")
	}

	rows, err := q.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "querying %s", q.table)
	}
	defer func() { _ = rows.Close() }()

	result := make([]datatable.Row, 0)
	for rows.Next() {
		row := make(map[string]interface{}, len(q.columns))
		if err = rows.MapScan(row); err != nil {
			return nil, errors.Wrapf(err, "scanning %s", q.table)
		}
		for col, val := range row {
			if b, ok := val.([]byte); ok { // text columns
				row[col] = string(b)
			}
		}
		result = append(result, row)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterating %s", q.table)
	}
	return result, nil
}
