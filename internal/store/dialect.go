package store

import (
	"fmt"
	"sort"
	"sync"
)

// Dialect describes how the store talks to one SQL backend: which
// database/sql driver to open, how to prepare its DSN, and the DDL that
// creates the schema.
type Dialect struct {
	// Name is the value accepted in configuration (store.driver).
	Name string
	// Driver is the database/sql driver name passed to sqlx.Connect.
	Driver string
	// SingleWriter limits the pool to one connection.
	SingleWriter bool
	// ReadOnlyTx reports whether the driver honours sql.TxOptions.ReadOnly.
	ReadOnlyTx bool
	// Schema is applied in order on every open. Statements must be
	// idempotent; "already exists" and "duplicate column" failures are
	// ignored.
	Schema []string
	// UpsertMeta writes one row of the meta table, replacing any existing
	// value. It takes the name and value as positional parameters.
	UpsertMeta string

	prepareDSN        func(dsn, dataDir string) (string, error)
	isUniqueViolation func(err error) bool
}

var (
	dialectsMu sync.RWMutex
	dialects   = make(map[string]*Dialect)
)

// RegisterDialect makes a dialect available by name. Registering the same
// name twice replaces the earlier entry.
func RegisterDialect(d *Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[d.Name] = d
}

// LookupDialect returns the dialect registered under name.
func LookupDialect(name string) (*Dialect, error) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()

	d, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("unsupported store driver: %s (available: %v)", name, availableDialects())
	}
	return d, nil
}

// Dialects returns the names of every registered dialect, sorted.
func Dialects() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	return availableDialects()
}

func availableDialects() []string {
	names := make([]string, 0, len(dialects))
	for n := range dialects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
