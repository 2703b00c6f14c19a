package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/folio-cms/folio/internal/model"
)

// The credential table holds at most one row, always with this id.
const credentialID = 1

// GetCredential returns the singleton admin credential.
func (s *Store) GetCredential(ctx context.Context) (*model.AdminCredential, error) {
	var cred model.AdminCredential
	const q = `SELECT username, password_hash, last_login_at, created_at, updated_at
		FROM admin_credential WHERE id = ?`
	if err := s.db.GetContext(ctx, &cred, s.db.Rebind(q), credentialID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return &cred, nil
}

// CreateCredential stores the admin credential. It fails with ErrConflict
// when one already exists. CreatedAt and UpdatedAt are populated.
func (s *Store) CreateCredential(ctx context.Context, cred *model.AdminCredential) error {
	now := time.Now().UTC()
	cred.CreatedAt = now
	cred.UpdatedAt = now

	const q = `INSERT INTO admin_credential (id, username, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, s.db.Rebind(q),
		credentialID, cred.Username, cred.PasswordHash, cred.CreatedAt, cred.UpdatedAt)
	if s.uniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

// UpdatePasswordHash replaces the stored password hash.
func (s *Store) UpdatePasswordHash(ctx context.Context, hash string) error {
	result, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE admin_credential SET password_hash = ?, updated_at = ? WHERE id = ?"),
		hash, time.Now().UTC(), credentialID)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return rowsAffected(result, "update password hash")
}

// TouchLastLogin records a successful login.
func (s *Store) TouchLastLogin(ctx context.Context, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE admin_credential SET last_login_at = ? WHERE id = ?"),
		at.UTC(), credentialID)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return rowsAffected(result, "update last login")
}

// ---------------------------------------------------------------------------
// Token revocation
// ---------------------------------------------------------------------------

// RevokeToken marks a token id as unusable until expiresAt. Revoking the
// same id twice is a no-op.
func (s *Store) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind("INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?)"),
		jti, expiresAt.UTC())
	if s.uniqueViolation(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether the token id has been revoked.
func (s *Store) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count,
		s.db.Rebind("SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?"), jti); err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return count > 0, nil
}

// PurgeRevokedTokens drops revocations whose tokens expired before now.
// Expired tokens fail validation on their own.
func (s *Store) PurgeRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		s.db.Rebind("DELETE FROM revoked_tokens WHERE expires_at < ?"), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens rows affected: %w", err)
	}
	return n, nil
}
