package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/folio-cms/folio/internal/model"
	"github.com/folio-cms/folio/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrWeakPassword       = fmt.Errorf("new password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong    = fmt.Errorf("new password must be at most %d bytes", MaxPasswordLength)
)

// Password length bounds for ChangePassword and ResetPassword. bcrypt only
// accepts inputs up to 72 bytes.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

func checkNewPassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return ErrWeakPassword
	}
	if len(pw) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

const (
	tokenIssuer   = "folio"
	secretMetaKey = "jwt_secret"
)

// Principal is the authenticated admin attached to a request.
type Principal struct {
	Username  string
	TokenID   string
	ExpiresAt time.Time
}

// LoginResult is returned by a successful VerifyLogin.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Username  string
	LastLogin *time.Time
}

// AuthService verifies the admin credential and issues session tokens.
type AuthService struct {
	store  *store.Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	// mu guards the credential: logins read under RLock, password changes
	// write under Lock.
	mu sync.RWMutex
}

func NewAuthService(st *store.Store, secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		store:  st,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// ResolveSecret returns the configured signing secret, or the one persisted
// in the store. When neither exists a random secret is generated and saved
// so tokens survive restarts.
func ResolveSecret(ctx context.Context, st *store.Store, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	secret, err := st.GetMeta(ctx, secretMetaKey)
	if err == nil && secret != "" {
		return secret, nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	secret = hex.EncodeToString(buf)
	if err := st.PutMeta(ctx, secretMetaKey, secret); err != nil {
		return "", err
	}
	return secret, nil
}

// EnsureAdmin creates the admin credential when the store has none. It
// reports whether a credential was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.store.GetCredential(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	err = s.store.CreateCredential(ctx, &model.AdminCredential{Username: username, PasswordHash: hash})
	if errors.Is(err, store.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// VerifyLogin checks username and password against the stored credential
// and issues a session token. Unknown users and wrong passwords both yield
// ErrInvalidCredentials.
func (s *AuthService) VerifyLogin(ctx context.Context, username, password string) (*LoginResult, error) {
	s.mu.RLock()
	cred, err := s.store.GetCredential(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.mu.RUnlock()
		return nil, err
	}
	hash := ""
	if cred != nil && cred.Username == username {
		hash = cred.PasswordHash
	}
	ok := checkPassword(hash, password)
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.issueToken(cred.Username)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.store.TouchLastLogin(ctx, now); err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Username:  cred.Username,
		LastLogin: &now,
	}, nil
}

// ValidateToken verifies a bearer token and returns the admin it belongs to.
func (s *AuthService) ValidateToken(ctx context.Context, tokenStr string) (*Principal, error) {
	claims := &jwtClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	s.mu.RLock()
	cred, err := s.store.GetCredential(ctx)
	s.mu.RUnlock()
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if cred.Username != claims.Subject {
		return nil, ErrInvalidToken
	}

	revoked, err := s.store.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return &Principal{
		Username:  claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// ChangePassword replaces the admin password after checking the current
// one. Tokens issued before the change stay valid until they expire.
func (s *AuthService) ChangePassword(ctx context.Context, p *Principal, current, next string) error {
	if err := checkNewPassword(next); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cred, err := s.store.GetCredential(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if cred.Username != p.Username {
		return ErrInvalidToken
	}
	if !checkPassword(cred.PasswordHash, current) {
		return ErrWrongPassword
	}

	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.store.UpdatePasswordHash(ctx, hash)
}

// ResetPassword sets a new password without checking the old one. It backs
// the operator CLI.
func (s *AuthService) ResetPassword(ctx context.Context, next string) error {
	if err := checkNewPassword(next); err != nil {
		return err
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.UpdatePasswordHash(ctx, hash)
}

// Logout revokes the principal's token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, p *Principal) error {
	if err := s.store.RevokeToken(ctx, p.TokenID, p.ExpiresAt); err != nil {
		return err
	}
	// Opportunistic cleanup; a failure here does not undo the revocation.
	s.store.PurgeRevokedTokens(ctx, s.now())
	return nil
}

func (s *AuthService) issueToken(username string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

type jwtClaims struct {
	jwt.RegisteredClaims
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

var (
	dummyHash     []byte
	dummyHashOnce sync.Once
)

// checkPassword compares password with hash. An empty hash still pays for a
// bcrypt comparison so unknown usernames take as long as wrong passwords.
func checkPassword(hash, password string) bool {
	if hash == "" {
		dummyHashOnce.Do(func() {
			dummyHash, _ = bcrypt.GenerateFromPassword([]byte("folio"), bcrypt.DefaultCost)
		})
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
