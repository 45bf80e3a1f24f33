package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "clave/pkg/domain-errors"
)

// Scope distinguishes full access tokens from the short-lived tokens minted
// for temporary report links.
const (
	ScopeAccess = "access"
	ScopeReport = "report"
)

// TempReportTokenTTL bounds how long a temporary report link stays valid.
const TempReportTokenTTL = 5 * time.Minute

// Claims represents the JWT claims for our tokens. EvaluationID is only set
// on report-scoped tokens and pins them to a single evaluation.
type Claims struct {
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	Scope        string `json:"scope"`
	EvaluationID string `json:"evaluation_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
}

func NewJWTService(signingKey string, issuer string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// GenerateAccessToken mints a full-scope token for an authenticated user.
func (s *JWTService) GenerateAccessToken(userID uuid.UUID, role string, expiresIn time.Duration) (string, error) {
	return s.generate(userID, role, ScopeAccess, "", expiresIn)
}

// GenerateTempReportToken mints a short-lived token that only grants access
// to one evaluation's report. Used for shareable report links.
func (s *JWTService) GenerateTempReportToken(userID uuid.UUID, role string, evaluationID uuid.UUID) (string, error) {
	return s.generate(userID, role, ScopeReport, evaluationID.String(), TempReportTokenTTL)
}

func (s *JWTService) generate(userID uuid.UUID, role, scope, evaluationID string, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:       userID.String(),
		Role:         role,
		Scope:        scope,
		EvaluationID: evaluationID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// ExtractUserID parses the subject user id out of claims minted by this
// service.
func (c *Claims) ExtractUserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.UserID)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	return id, nil
}
