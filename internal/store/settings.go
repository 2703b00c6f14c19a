package store

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"

	"github.com/folio-cms/folio/internal/model"
)

type settingRow struct {
	Name  string `db:"name"`
	Value string `db:"value"`
}

// GetSettings returns the stored settings without defaults applied.
func (s *Store) GetSettings(ctx context.Context) (model.Settings, error) {
	return getSettings(ctx, s.db)
}

func getSettings(ctx context.Context, q sqlx.QueryerContext) (model.Settings, error) {
	var rows []settingRow
	if err := sqlx.SelectContext(ctx, q, &rows, "SELECT name, value FROM site_settings ORDER BY name"); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	out := make(model.Settings, len(rows))
	for _, r := range rows {
		var v interface{}
		if err := json.Unmarshal([]byte(r.Value), &v); err != nil {
			return nil, fmt.Errorf("decode setting %s: %w", r.Name, err)
		}
		out[r.Name] = v
	}
	return out, nil
}

// ReplaceSettings swaps the stored settings map for settings.
func (s *Store) ReplaceSettings(ctx context.Context, settings model.Settings) error {
	return s.inTx(ctx, nil, func(tx *sqlx.Tx) error {
		return replaceSettings(ctx, tx, settings)
	})
}

func replaceSettings(ctx context.Context, tx *sqlx.Tx, settings model.Settings) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM site_settings"); err != nil {
		return fmt.Errorf("clear settings: %w", err)
	}
	insert := tx.Rebind("INSERT INTO site_settings (name, value) VALUES (?, ?)")
	for _, name := range settings.Keys() {
		b, err := json.Marshal(settings[name])
		if err != nil {
			return fmt.Errorf("encode setting %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, insert, name, string(b)); err != nil {
			return fmt.Errorf("insert setting %s: %w", name, err)
		}
	}
	return nil
}
