package tables_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trezcool/masomo/core/datatable"
	"github.com/trezcool/masomo/core/tables"
	"github.com/trezcool/masomo/core/user"
	logsvc "github.com/trezcool/masomo/services/logger"
	"github.com/trezcool/masomo/storage/cache"
	inmemdb "github.com/trezcool/masomo/storage/database/inmem"
)

var (
	seededAt = time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	admin    = datatable.Principal{ID: "admin-1", Kind: user.KindAdmin}
)

type fixture struct {
	db       *inmemdb.DB
	engine   *datatable.Engine
	registry *tables.Registry
}

func setup(t *testing.T, store datatable.Store) fixture {
	db := inmemdb.Open()
	inmemdb.Seed(db, seededAt)

	engine, err := datatable.NewEngine(datatable.Options{
		Config: datatable.DefaultConfig(),
		Store:  store,
		Logger: logsvc.NewZapLogger(zap.NewNop()),
	})
	require.NoError(t, err)
	return fixture{db: db, engine: engine, registry: tables.DefaultRegistry()}
}

func (f fixture) serve(t *testing.T, name string, p datatable.Principal, values url.Values) datatable.Envelope {
	tbl, ok := f.registry.Lookup(name)
	require.True(t, ok, name)
	env := f.engine.Process(context.Background(), p, tbl.Dataset, tbl.Base(f.db, p), values)
	require.False(t, env.Failed(), name)
	return env
}

func TestRegistry(t *testing.T) {
	reg := tables.DefaultRegistry()
	assert.Equal(t, []string{tables.StudentsTable, tables.SubmissionsTable, user.TableName}, reg.Names())

	tests := []struct {
		table string
		kind  string
		want  bool
	}{
		{table: user.TableName, kind: user.KindAdmin, want: true},
		{table: user.TableName, kind: user.KindTeacher, want: false},
		{table: tables.StudentsTable, kind: user.KindAdmin, want: true},
		{table: tables.StudentsTable, kind: user.KindStudent, want: false},
		{table: tables.SubmissionsTable, kind: user.KindTeacher, want: true},
		{table: tables.SubmissionsTable, kind: user.KindStudent, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.table+"/"+tt.kind, func(t *testing.T) {
			tbl, ok := reg.Lookup(tt.table)
			require.True(t, ok)
			assert.Equal(t, tt.want, tbl.Allows(tt.kind))
		})
	}

	_, ok := reg.Lookup("grades")
	assert.False(t, ok)
}

func TestUsersTable(t *testing.T) {
	f := setup(t, nil)
	f.db.Table(user.TableName).Insert(inmemdb.UserRow(user.User{
		ID: "student-1", Name: "Stan", Username: "stan", Roles: []string{user.RoleStudent}, IsActive: true, CreatedAt: seededAt,
	}))

	tests := []struct {
		name         string
		values       url.Values
		wantFiltered int
	}{
		{name: "staff only", values: url.Values{}, wantFiltered: 6},
		{name: "kind", values: url.Values{"kind": {user.KindTeacher}}, wantFiltered: 4},
		{name: "kind all", values: url.Values{"kind": {"all"}}, wantFiltered: 6},
		{name: "students are not staff", values: url.Values{"kind": {user.KindStudent}}, wantFiltered: 0},
		{name: "inactive", values: url.Values{"is_active": {"false"}}, wantFiltered: 1},
		{name: "bad bool ignored", values: url.Values{"is_active": {"maybe"}}, wantFiltered: 6},
		{name: "created from", values: url.Values{"created_from": {seededAt.AddDate(0, 0, -27).Format("2006-01-02")}}, wantFiltered: 3},
		{name: "created to", values: url.Values{"created_to": {seededAt.AddDate(0, 0, -29).Format(time.RFC3339)}}, wantFiltered: 2},
		{name: "search", values: url.Values{"search[value]": {"STAFF1@"}}, wantFiltered: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := f.serve(t, user.TableName, admin, tt.values)
			assert.Equal(t, 6, env.RecordsTotal)
			assert.Equal(t, tt.wantFiltered, env.RecordsFiltered)
		})
	}

	env := f.serve(t, user.TableName, admin, url.Values{"order[0][column]": {"1"}, "order[0][dir]": {"asc"}})
	rec := env.Data[0].(tables.UserRecord)
	assert.Equal(t, "staff0", rec.Username)
	assert.Equal(t, user.KindAdmin, rec.Kind)
	require.NotNil(t, rec.CreatedAt)
	assert.Nil(t, rec.LastLogin)
}

func TestStudentsTable(t *testing.T) {
	f := setup(t, nil)

	env := f.serve(t, tables.StudentsTable, admin, url.Values{"class": {"Form 1A"}, "status": {tables.StudentActive}, "length": {"50"}})
	assert.Equal(t, 40, env.RecordsTotal)
	assert.Equal(t, 10, env.RecordsFiltered)
	for _, rec := range env.Data {
		assert.Equal(t, "Form 1A", rec.(tables.StudentRecord).ClassName)
	}

	env = f.serve(t, tables.StudentsTable, admin, url.Values{"enrolled_from": {seededAt.AddDate(0, -2, 0).Format(time.RFC3339)}})
	assert.Equal(t, 3, env.RecordsFiltered)
}

func TestSubmissionsTable(t *testing.T) {
	f := setup(t, nil)
	teachers, err := f.db.Query(user.TableName).Fetch(context.Background())
	require.NoError(t, err)
	var teacher datatable.Principal
	for _, row := range teachers {
		if row.String("kind") == user.KindTeacher {
			teacher = datatable.Principal{ID: row.String("id"), Kind: user.KindTeacher}
			break
		}
	}
	require.NotEmpty(t, teacher.ID)

	all := f.serve(t, tables.SubmissionsTable, admin, url.Values{})
	assert.Equal(t, 60, all.RecordsTotal)

	own := f.serve(t, tables.SubmissionsTable, teacher, url.Values{"length": {"100"}})
	assert.Equal(t, 15, own.RecordsTotal)
	assert.Len(t, own.Data, 15)

	graded := f.serve(t, tables.SubmissionsTable, admin, url.Values{"graded": {"true"}})
	ungraded := f.serve(t, tables.SubmissionsTable, admin, url.Values{"graded": {"false"}, "length": {"25"}})
	assert.Equal(t, 40, graded.RecordsFiltered)
	assert.Equal(t, 20, ungraded.RecordsFiltered)
	for _, rec := range ungraded.Data {
		assert.Nil(t, rec.(tables.SubmissionRecord).Score)
	}

	high := f.serve(t, tables.SubmissionsTable, admin, url.Values{"min_score": {"90"}, "length": {"100"}})
	for _, rec := range high.Data {
		sub := rec.(tables.SubmissionRecord)
		require.NotNil(t, sub.Score)
		assert.GreaterOrEqual(t, *sub.Score, 90)
	}
	assert.Equal(t, len(high.Data), high.RecordsFiltered)

	for _, score := range []string{"ninety", "3000000000", "-3000000000"} {
		env := f.serve(t, tables.SubmissionsTable, admin, url.Values{"min_score": {score}})
		assert.Equal(t, 60, env.RecordsFiltered, "min_score=%s is ignored", score)
	}
}

func TestInvalidator(t *testing.T) {
	bdg, err := cache.OpenBadger("", logsvc.NewZapLogger(zap.NewNop()))
	require.NoError(t, err)
	defer bdg.Close()
	rst, err := cache.NewRistretto(1 << 20)
	require.NoError(t, err)
	defer rst.Close()

	for name, store := range map[string]datatable.Store{"badger": bdg, "ristretto": rst} {
		t.Run(name, func(t *testing.T) {
			f := setup(t, store)
			inv := tables.Invalidator{Engine: f.engine, Registry: f.registry}

			assert.Equal(t, 6, f.serve(t, user.TableName, admin, url.Values{}).RecordsTotal)
			f.db.Table(user.TableName).Insert(inmemdb.UserRow(user.User{
				ID: "new", Name: "New Teacher", Username: "newt", Roles: []string{user.RoleTeacher}, CreatedAt: seededAt,
			}))
			assert.Equal(t, 6, f.serve(t, user.TableName, admin, url.Values{}).RecordsTotal)

			require.NoError(t, inv.Invalidate(context.Background(), user.TableName))
			assert.Equal(t, 7, f.serve(t, user.TableName, admin, url.Values{}).RecordsTotal)

			err := inv.Invalidate(context.Background(), "grades")
			assert.Equal(t, tables.ErrUnknownTable, errors.Cause(err))
		})
	}
}

func TestInvalidator_Flush(t *testing.T) {
	store, err := cache.OpenBadger("", logsvc.NewZapLogger(zap.NewNop()))
	require.NoError(t, err)
	defer store.Close()

	f := setup(t, store)
	inv := tables.Invalidator{Engine: f.engine, Registry: f.registry}

	students := f.serve(t, tables.StudentsTable, admin, url.Values{}).RecordsTotal
	f.db.Table(tables.StudentsTable).Delete(func(datatable.Row) bool { return true })
	assert.Equal(t, students, f.serve(t, tables.StudentsTable, admin, url.Values{}).RecordsTotal)

	require.NoError(t, inv.Flush(context.Background()))
	assert.Equal(t, 0, f.serve(t, tables.StudentsTable, admin, url.Values{}).RecordsTotal)
}
