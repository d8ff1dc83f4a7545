package inmemdb

import (
	"sync"

	"github.com/trezcool/masomo/core/datatable"
)

type (
	// DB is an in-memory database of named tables. It backs the tests and the `inMemory` dev mode.
	DB struct {
		mutex  sync.RWMutex
		tables map[string]*Table
	}

	// Table is a list of rows kept in insertion order.
	Table struct {
		mutex sync.RWMutex
		rows  []datatable.Row
	}
)

func Open() *DB {
	return &DB{tables: make(map[string]*Table)}
}

// Table returns the named table, creating it when needed.
func (db *DB) Table(name string) *Table {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	t, ok := db.tables[name]
	if !ok {
		t = &Table{}
		db.tables[name] = t
	}
	return t
}

// Query returns a query over the named table; it implements tables.Source.
func (db *DB) Query(table string) datatable.Query {
	return db.Table(table).Query()
}

func (t *Table) Insert(rows ...datatable.Row) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	for _, row := range rows {
		t.rows = append(t.rows, copyRow(row))
	}
}

// Update applies fn to a copy of every row matching pred and stores the result. It returns the number of updated rows.
func (t *Table) Update(pred func(datatable.Row) bool, fn func(datatable.Row)) int {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	var n int
	for i, row := range t.rows {
		if pred(row) {
			updated := copyRow(row)
			fn(updated)
			t.rows[i] = updated
			n++
		}
	}
	return n
}

// Delete removes the rows matching pred and returns how many were removed.
func (t *Table) Delete(pred func(datatable.Row) bool) int {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	kept := t.rows[:0]
	for _, row := range t.rows {
		if !pred(row) {
			kept = append(kept, row)
		}
	}
	n := len(t.rows) - len(kept)
	for i := len(kept); i < len(t.rows); i++ {
		t.rows[i] = nil
	}
	t.rows = kept
	return n
}

func (t *Table) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return len(t.rows)
}

func (t *Table) snapshot() []datatable.Row {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	rows := make([]datatable.Row, len(t.rows))
	copy(rows, t.rows)
	return rows
}

func copyRow(row datatable.Row) datatable.Row {
	c := make(datatable.Row, len(row))
	for k, v := range row {
		c[k] = v
	}
	return c
}
