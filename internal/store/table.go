package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/folio-cms/folio/internal/model"
)

// rowMeta holds the bookkeeping columns shared by every content table.
// OldKey is never stored; it binds the WHERE clause of updates so a record
// can be renamed.
type rowMeta struct {
	Position  int64     `db:"position"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	OldKey    string    `db:"old_key"`
}

// Table is an ordered collection of one entity kind. Records keep the order
// in which they were created; updates do not move them.
type Table[T model.Entity] struct {
	s         *Store
	name      string
	keyColumn string
	insertSQL string
	updateSQL string

	toRow      func(v T, meta rowMeta) interface{}
	selectRows func(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) ([]T, error)
	// withID assigns the surrogate id. Nil for kinds keyed by a natural key.
	withID     func(v T, id string) T
}

func newTable[T model.Entity, R any](
	s *Store,
	name, keyColumn string,
	columns []string,
	toRow func(T, rowMeta) R,
	fromRow func(R) T,
	withID func(T, string) T,
) *Table[T] {
	insertCols := append(append([]string{}, columns...), "position", "created_at", "updated_at")
	named := make([]string, len(insertCols))
	for i, c := range insertCols {
		named[i] = ":" + c
	}
	sets := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		sets = append(sets, c+" = :"+c)
	}
	sets = append(sets, "updated_at = :updated_at")

	return &Table[T]{
		s:         s,
		name:      name,
		keyColumn: keyColumn,
		insertSQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			name, strings.Join(insertCols, ", "), strings.Join(named, ", ")),
		updateSQL: fmt.Sprintf("UPDATE %s SET %s WHERE %s = :old_key",
			name, strings.Join(sets, ", "), keyColumn),
		toRow: func(v T, meta rowMeta) interface{} { return toRow(v, meta) },
		selectRows: func(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) ([]T, error) {
			var rows []R
			if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
				return nil, err
			}
			out := make([]T, len(rows))
			for i, r := range rows {
				out[i] = fromRow(r)
			}
			return out, nil
		},
		withID: withID,
	}
}

// Kind returns the entity kind stored in the table.
func (t *Table[T]) Kind() model.Kind {
	var zero T
	return zero.Kind()
}

// List returns every record in creation order.
func (t *Table[T]) List(ctx context.Context) ([]T, error) {
	return t.list(ctx, t.s.db)
}

func (t *Table[T]) list(ctx context.Context, q sqlx.QueryerContext) ([]T, error) {
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY position, %s", t.name, t.keyColumn)
	items, err := t.selectRows(ctx, q, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	return items, nil
}

// Get returns the record identified by key.
func (t *Table[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T
	query := t.s.db.Rebind(fmt.Sprintf("SELECT * FROM %s WHERE %s = ?", t.name, t.keyColumn))
	items, err := t.selectRows(ctx, t.s.db, query, key)
	if err != nil {
		return zero, fmt.Errorf("get %s: %w", t.name, err)
	}
	if len(items) == 0 {
		return zero, ErrNotFound
	}
	return items[0], nil
}

// Create appends a record. Surrogate ids are assigned here; a natural key
// that is already taken fails with ErrConflict.
func (t *Table[T]) Create(ctx context.Context, v T) (T, error) {
	if t.withID != nil {
		v = t.withID(v, uuid.Must(uuid.NewV7()).String())
	}
	err := t.s.inTx(ctx, nil, func(tx *sqlx.Tx) error {
		return t.insert(ctx, tx, v)
	})
	return v, err
}

// Update fully replaces the record identified by key. For natural keys the
// replacement may carry a different key, which renames the record as long as
// the new key is free.
func (t *Table[T]) Update(ctx context.Context, key string, v T) (T, error) {
	if t.withID != nil {
		v = t.withID(v, key)
	}
	err := t.s.inTx(ctx, nil, func(tx *sqlx.Tx) error {
		found, err := t.exists(ctx, tx, key)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
		return t.update(ctx, tx, key, v)
	})
	return v, err
}

// Upsert replaces the record identified by key, or creates it when absent.
// It reports whether a record was created. Renaming requires the original
// key to exist.
func (t *Table[T]) Upsert(ctx context.Context, key string, v T) (T, bool, error) {
	if t.withID != nil {
		v = t.withID(v, key)
	}
	var created bool
	err := t.s.inTx(ctx, nil, func(tx *sqlx.Tx) error {
		found, err := t.exists(ctx, tx, key)
		if err != nil {
			return err
		}
		if found {
			return t.update(ctx, tx, key, v)
		}
		if v.Key() != key {
			return ErrNotFound
		}
		created = true
		return t.insert(ctx, tx, v)
	})
	return v, created, err
}

// Delete removes the record identified by key.
func (t *Table[T]) Delete(ctx context.Context, key string) error {
	query := t.s.db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", t.name, t.keyColumn))
	result, err := t.s.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.name, err)
	}
	return rowsAffected(result, "delete "+t.name)
}

func (t *Table[T]) exists(ctx context.Context, tx *sqlx.Tx, key string) (bool, error) {
	var count int
	query := tx.Rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", t.name, t.keyColumn))
	if err := tx.GetContext(ctx, &count, query, key); err != nil {
		return false, fmt.Errorf("lookup %s: %w", t.name, err)
	}
	return count > 0, nil
}

func (t *Table[T]) insert(ctx context.Context, tx *sqlx.Tx, v T) error {
	found, err := t.exists(ctx, tx, v.Key())
	if err != nil {
		return err
	}
	if found {
		return ErrConflict
	}

	var pos int64
	if err := tx.GetContext(ctx, &pos, "SELECT COALESCE(MAX(position), 0) + 1 FROM "+t.name); err != nil {
		return fmt.Errorf("next %s position: %w", t.name, err)
	}

	now := time.Now().UTC()
	_, err = tx.NamedExecContext(ctx, t.insertSQL, t.toRow(v, rowMeta{Position: pos, CreatedAt: now, UpdatedAt: now}))
	if t.s.uniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert %s: %w", t.name, err)
	}
	return nil
}

func (t *Table[T]) update(ctx context.Context, tx *sqlx.Tx, key string, v T) error {
	if v.Key() != key {
		taken, err := t.exists(ctx, tx, v.Key())
		if err != nil {
			return err
		}
		if taken {
			return ErrConflict
		}
	}

	// Existence was checked in this transaction; MySQL reports zero affected
	// rows for a no-op update, so RowsAffected is not consulted.
	_, err := tx.NamedExecContext(ctx, t.updateSQL, t.toRow(v, rowMeta{UpdatedAt: time.Now().UTC(), OldKey: key}))
	if t.s.uniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", t.name, err)
	}
	return nil
}

// replaceAll swaps the table contents for items, preserving their order.
// Items without a surrogate id get one.
func (t *Table[T]) replaceAll(ctx context.Context, tx *sqlx.Tx, items []T) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+t.name); err != nil {
		return fmt.Errorf("clear %s: %w", t.name, err)
	}
	now := time.Now().UTC()
	for i, v := range items {
		if t.withID != nil && v.Key() == "" {
			v = t.withID(v, uuid.Must(uuid.NewV7()).String())
		}
		meta := rowMeta{Position: int64(i + 1), CreatedAt: now, UpdatedAt: now}
		if _, err := tx.NamedExecContext(ctx, t.insertSQL, t.toRow(v, meta)); err != nil {
			if t.s.uniqueViolation(err) {
				return fmt.Errorf("import %s %q: %w", t.name, v.Key(), ErrConflict)
			}
			return fmt.Errorf("import %s: %w", t.name, err)
		}
	}
	return nil
}

func (t *Table[T]) count(ctx context.Context, q sqlx.QueryerContext) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, "SELECT COUNT(*) FROM "+t.name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("count %s: %w", t.name, err)
	}
	return n, nil
}
