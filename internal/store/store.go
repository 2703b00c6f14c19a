package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
)

// Options selects and tunes the backing database.
type Options struct {
	Driver          string // sqlite (default), postgres or mysql
	DSN             string
	DataDir         string // sqlite only; empty with no DSN means in-memory
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store persists the admin credential, portfolio content, contact messages
// and analytics events.
type Store struct {
	db      *sqlx.DB
	dialect *Dialect
}

// Open connects to the database described by opts and applies the schema.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Driver == "" {
		opts.Driver = "sqlite"
	}
	d, err := LookupDialect(opts.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := d.prepareDSN(opts.DSN, opts.DataDir)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", d.Name, err)
	}

	if d.SingleWriter {
		db.SetMaxOpenConns(1)
	} else {
		if opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			db.SetMaxIdleConns(opts.MaxIdleConns)
		}
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	s := &Store{db: db, dialect: d}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s store: %w", d.Name, err)
	}
	return s, nil
}

// NewMemory opens an empty in-memory SQLite store.
func NewMemory() (*Store, error) {
	return Open(context.Background(), Options{Driver: "sqlite"})
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Dialect returns the name of the active dialect.
func (s *Store) Dialect() string {
	return s.dialect.Name
}

func (s *Store) migrate(ctx context.Context) error {
	for _, m := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			msg := err.Error()
			if strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// inTx runs fn inside a transaction, committing when it returns nil.
func (s *Store) inTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) readOnly() *sql.TxOptions {
	return &sql.TxOptions{ReadOnly: s.dialect.ReadOnlyTx}
}

func (s *Store) uniqueViolation(err error) bool {
	return err != nil && s.dialect.isUniqueViolation(err)
}

func rowsAffected(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Instance metadata
// ---------------------------------------------------------------------------

// GetMeta returns a value from the instance metadata table.
func (s *Store) GetMeta(ctx context.Context, name string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, s.db.Rebind("SELECT value FROM meta WHERE name = ?"), name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get meta %s: %w", name, err)
	}
	return value, nil
}

// PutMeta stores a value in the instance metadata table.
func (s *Store) PutMeta(ctx context.Context, name, value string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(s.dialect.UpsertMeta), name, value); err != nil {
		return fmt.Errorf("put meta %s: %w", name, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Column helpers
// ---------------------------------------------------------------------------

// stringList stores an ordered []string as a JSON array in a text column.
type stringList []string

func (l stringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *stringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = stringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("scan string list: unsupported type %T", src)
	}
	out := []string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("scan string list: %w", err)
		}
	}
	*l = out
	return nil
}
