package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/folio-cms/folio/internal/model"
)

const insertEventSQL = `INSERT INTO analytics_events
	(id, event_type, page, device_type, ip_address, user_agent, browser, os, location, created_at)
	VALUES
	(:id, :event_type, :page, :device_type, :ip_address, :user_agent, :browser, :os, :location, :created_at)`

// InsertEvents appends a batch of analytics events in one transaction.
// Events must already carry their id and timestamp.
func (s *Store) InsertEvents(ctx context.Context, events []model.AnalyticsEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.inTx(ctx, nil, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, insertEventSQL)
		if err != nil {
			return fmt.Errorf("prepare event insert: %w", err)
		}
		defer stmt.Close()

		for i := range events {
			if _, err := stmt.ExecContext(ctx, &events[i]); err != nil {
				return fmt.Errorf("insert analytics event: %w", err)
			}
		}
		return nil
	})
}

// ScanEvents streams every event recorded at or after since, oldest first,
// into fn. A zero since scans all events. Iteration stops at the first
// error fn returns.
func (s *Store) ScanEvents(ctx context.Context, since time.Time, fn func(model.AnalyticsEvent) error) error {
	q := "SELECT * FROM analytics_events"
	var args []interface{}
	if !since.IsZero() {
		q += " WHERE created_at >= ?"
		args = append(args, since.UTC())
	}
	q += " ORDER BY created_at, id"

	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return fmt.Errorf("scan analytics events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ev model.AnalyticsEvent
		if err := rows.StructScan(&ev); err != nil {
			return fmt.Errorf("scan analytics event: %w", err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return rows.Err()
}

// RecentEvents returns up to limit events recorded at or after since,
// newest first.
func (s *Store) RecentEvents(ctx context.Context, since time.Time, limit int) ([]model.AnalyticsEvent, error) {
	q := "SELECT * FROM analytics_events"
	var args []interface{}
	if !since.IsZero() {
		q += " WHERE created_at >= ?"
		args = append(args, since.UTC())
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	events := []model.AnalyticsEvent{}
	if err := s.db.SelectContext(ctx, &events, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("recent analytics events: %w", err)
	}
	return events, nil
}

// CountEvents returns the total number of stored events.
func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM analytics_events"); err != nil {
		return 0, fmt.Errorf("count analytics events: %w", err)
	}
	return n, nil
}
