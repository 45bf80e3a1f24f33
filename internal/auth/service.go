package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"clave/internal/jwttoken"
	dErrors "clave/pkg/domain-errors"
	"clave/pkg/requestcontext"
)

// DefaultAccessTokenTTL is how long an interactive session token stays valid.
const DefaultAccessTokenTTL = 8 * time.Hour

// Service handles account management and session tokens.
type Service struct {
	users     UserStore
	trl       TokenRevocationList
	tokens    *jwttoken.JWTService
	accessTTL time.Duration
	logger    *slog.Logger
}

// TokenRevocationList is the revocation capability the service consumes; the
// concrete implementations live in the revocation subpackage.
type TokenRevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

func NewService(users UserStore, trl TokenRevocationList, tokens *jwttoken.JWTService, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:     users,
		trl:       trl,
		tokens:    tokens,
		accessTTL: DefaultAccessTokenTTL,
		logger:    logger,
	}
}

// CreateUser registers a new account. Only administrators may create users;
// the first administrator is seeded at startup, not through this path.
func (s *Service) CreateUser(ctx context.Context, username, password string, role Role) (*User, error) {
	if requestcontext.UserRole(ctx) != string(RoleAdministrator) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only administrators may create users")
	}
	return s.createUser(ctx, username, password, role)
}

// SeedUser creates an account without an authenticated caller. Used at
// startup to guarantee an administrator exists.
func (s *Service) SeedUser(ctx context.Context, username, password string, role Role) (*User, error) {
	user, err := s.createUser(ctx, username, password, role)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeConflict) {
			return s.users.FindByUsername(ctx, username)
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) createUser(ctx context.Context, username, password string, role Role) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "username is required")
	}
	if len(password) < 8 {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	if !role.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	user := &User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Authenticate verifies the credentials and mints an access token. Unknown
// usernames and wrong passwords return the same error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (string, *User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	token, err := s.tokens.GenerateAccessToken(user.ID, string(user.Role), s.accessTTL)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint token")
	}
	return token, user, nil
}

// Logout revokes the presented token until its natural expiry.
func (s *Service) Logout(ctx context.Context, claims *jwttoken.Claims) error {
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.trl.RevokeToken(ctx, claims.ID, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	s.logger.InfoContext(ctx, "token revoked", "jti", claims.ID)
	return nil
}

// CurrentUser loads the account behind the authenticated request.
func (s *Service) CurrentUser(ctx context.Context) (*User, error) {
	id := requestcontext.UserID(ctx)
	if id == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return s.users.FindByID(ctx, id)
}

// MintTempReportToken issues a short-lived token pinned to one evaluation's
// report, for embedding in a shareable link.
func (s *Service) MintTempReportToken(ctx context.Context, evaluationID uuid.UUID) (string, time.Duration, error) {
	id := requestcontext.UserID(ctx)
	if id == uuid.Nil {
		return "", 0, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	token, err := s.tokens.GenerateTempReportToken(id, requestcontext.UserRole(ctx), evaluationID)
	if err != nil {
		return "", 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint report token")
	}
	return token, jwttoken.TempReportTokenTTL, nil
}
