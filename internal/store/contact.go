package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/folio-cms/folio/internal/model"
)

// CreateContactMessage stores a visitor message. ID and Timestamp are
// assigned here and Read is forced to false.
func (s *Store) CreateContactMessage(ctx context.Context, msg *model.ContactMessage) error {
	msg.ID = uuid.Must(uuid.NewV7()).String()
	msg.Timestamp = time.Now().UTC()
	msg.Read = false

	const q = `INSERT INTO contact_messages
		(id, name, email, message, created_at, is_read, ip_address, user_agent)
		VALUES
		(:id, :name, :email, :message, :created_at, :is_read, :ip_address, :user_agent)`

	if _, err := s.db.NamedExecContext(ctx, q, msg); err != nil {
		return fmt.Errorf("insert contact message: %w", err)
	}
	return nil
}

// GetContactMessage returns a message by id.
func (s *Store) GetContactMessage(ctx context.Context, id string) (*model.ContactMessage, error) {
	var msg model.ContactMessage
	if err := s.db.GetContext(ctx, &msg, s.db.Rebind("SELECT * FROM contact_messages WHERE id = ?"), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get contact message: %w", err)
	}
	return &msg, nil
}

// ListContactMessages returns messages newest first along with the total
// number of messages matching the filter.
func (s *Store) ListContactMessages(ctx context.Context, opts model.ContactListOptions) ([]model.ContactMessage, int, error) {
	where := ""
	if opts.UnreadOnly {
		where = " WHERE is_read = ?"
	}
	args := []interface{}{}
	if opts.UnreadOnly {
		args = append(args, false)
	}

	var total int
	if err := s.db.GetContext(ctx, &total, s.db.Rebind("SELECT COUNT(*) FROM contact_messages"+where), args...); err != nil {
		return nil, 0, fmt.Errorf("count contact messages: %w", err)
	}

	q := "SELECT * FROM contact_messages" + where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	msgs := []model.ContactMessage{}
	if err := s.db.SelectContext(ctx, &msgs, s.db.Rebind(q), append(args, opts.Limit, opts.Skip)...); err != nil {
		return nil, 0, fmt.Errorf("list contact messages: %w", err)
	}
	return msgs, total, nil
}

// MarkContactMessageRead flips a message to read. It reports whether the
// message changed; marking an already read message is not an error.
func (s *Store) MarkContactMessageRead(ctx context.Context, id string) (bool, error) {
	var modified bool
	err := s.inTx(ctx, nil, func(tx *sqlx.Tx) error {
		var read bool
		if err := tx.GetContext(ctx, &read, tx.Rebind("SELECT is_read FROM contact_messages WHERE id = ?"), id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("get contact message: %w", err)
		}
		if read {
			return nil
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE contact_messages SET is_read = ? WHERE id = ?"), true, id); err != nil {
			return fmt.Errorf("mark contact message read: %w", err)
		}
		modified = true
		return nil
	})
	return modified, err
}

// CountUnreadContactMessages returns the number of unread messages.
func (s *Store) CountUnreadContactMessages(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind("SELECT COUNT(*) FROM contact_messages WHERE is_read = ?"), false); err != nil {
		return 0, fmt.Errorf("count unread contact messages: %w", err)
	}
	return n, nil
}
