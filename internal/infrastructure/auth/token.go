package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/tutorscheduler/backend/pkg/errors"
)

// Claims represents the authorization claims transmitted via a JWT
type Claims struct {
	jwt.RegisteredClaims
	Role  entities.Role `json:"role"`
	Email string        `json:"email,omitempty"`
}

// JWTManager issues and verifies HS256 session tokens
type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTManager creates a token manager
func NewJWTManager(secret, issuer string, ttl time.Duration) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue generates a signed token for user
func (m *JWTManager) Issue(user *entities.User) (string, error) {
	now := m.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Role:  user.Role,
		Email: user.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", apperrors.NewInternalError("failed to sign token", err)
	}
	return signed, nil
}

// Parse verifies token and returns the principal it carries.
// Any verification failure is reported as Unauthorized.
func (m *JWTManager) Parse(token string) (*entities.Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.NewUnauthorizedError("token expired")
		}
		return nil, &apperrors.AppError{
			Type:    apperrors.ErrorTypeUnauthorized,
			Message: "invalid token",
			Err:     fmt.Errorf("parse token: %w", err),
		}
	}

	if claims.Subject == "" || !claims.Role.Valid() {
		return nil, apperrors.NewUnauthorizedError("invalid token")
	}

	return &entities.Principal{
		UserID: claims.Subject,
		Role:   claims.Role,
		Email:  claims.Email,
	}, nil
}
