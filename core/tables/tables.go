// Package tables declares the datasets served through the datatable engine and who may query them.
package tables

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core/datatable"
)

// ErrUnknownTable is returned when looking up a dataset that is not registered.
var ErrUnknownTable = errors.New("unknown table")

type (
	// Source gives access to the base query of a named table. It is implemented by every storage backend.
	Source interface {
		Query(table string) datatable.Query
	}

	// Table bundles a dataset declaration with its access rules.
	Table struct {
		Dataset *datatable.Dataset

		// Kinds are the principal kinds allowed to query the table.
		Kinds []string

		// Base returns the unfiltered query of the table as visible by p.
		Base func(src Source, p datatable.Principal) datatable.Query
	}

	Registry struct {
		tables map[string]Table
	}
)

// Allows reports whether principals of the given kind may query the table.
func (t Table) Allows(kind string) bool {
	for _, k := range t.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func NewRegistry(tables ...Table) *Registry {
	reg := &Registry{tables: make(map[string]Table, len(tables))}
	for _, t := range tables {
		reg.tables[t.Dataset.Name] = t
	}
	return reg
}

// DefaultRegistry returns the registry of all the app tables.
func DefaultRegistry() *Registry {
	return NewRegistry(Users(), Students(), Submissions())
}

func (reg *Registry) Lookup(name string) (Table, bool) {
	t, ok := reg.tables[name]
	return t, ok
}

// Names returns the registered table names, sorted.
func (reg *Registry) Names() []string {
	names := make([]string, 0, len(reg.tables))
	for name := range reg.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invalidator drops the cached responses of a registered table. It implements user.Invalidator.
type Invalidator struct {
	Engine   *datatable.Engine
	Registry *Registry
}

// Invalidate drops the cached responses of the named table. Stores that cannot delete
// by prefix are flushed whole.
func (inv Invalidator) Invalidate(ctx context.Context, name string) error {
	t, ok := inv.Registry.Lookup(name)
	if !ok {
		return errors.Wrapf(ErrUnknownTable, "invalidating %q", name)
	}
	err := inv.Engine.InvalidateDataset(ctx, t.Dataset)
	if errors.Cause(err) == datatable.ErrPrefixInvalidationUnsupported {
		return inv.Flush(ctx)
	}
	return err
}

// Flush drops the cached responses of every table.
func (inv Invalidator) Flush(ctx context.Context) error {
	return inv.Engine.InvalidateAll(ctx)
}
