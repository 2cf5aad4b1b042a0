package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/tutorscheduler/backend/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.NoError(t, h.Compare(hash, "secret123"))
	assert.Error(t, h.Compare(hash, "secret124"))
}

func TestNewBcryptHasher_InvalidCostFallsBack(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).cost)
}

func TestJWTManager_IssueAndParse(t *testing.T) {
	m := NewJWTManager("test-secret", "tutor-scheduler", time.Hour)
	user := &entities.User{ID: "u-1", Email: "ada@example.com", Role: entities.RoleTutor}

	token, err := m.Issue(user)
	require.NoError(t, err)

	principal, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", principal.UserID)
	assert.Equal(t, entities.RoleTutor, principal.Role)
	assert.Equal(t, "ada@example.com", principal.Email)
}

func TestJWTManager_RejectsBadTokens(t *testing.T) {
	m := NewJWTManager("test-secret", "tutor-scheduler", time.Hour)
	user := &entities.User{ID: "u-1", Role: entities.RoleStudent}

	t.Run("expired", func(t *testing.T) {
		expired := NewJWTManager("test-secret", "tutor-scheduler", time.Hour)
		expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := expired.Issue(user)
		require.NoError(t, err)

		_, err = m.Parse(token)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeUnauthorized, apperrors.TypeOf(err))
		assert.Contains(t, err.Error(), "token expired")
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTManager("other-secret", "tutor-scheduler", time.Hour)
		token, err := other.Issue(user)
		require.NoError(t, err)

		_, err = m.Parse(token)
		assert.Equal(t, apperrors.ErrorTypeUnauthorized, apperrors.TypeOf(err))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTManager("test-secret", "someone-else", time.Hour)
		token, err := other.Issue(user)
		require.NoError(t, err)

		_, err = m.Parse(token)
		assert.Equal(t, apperrors.ErrorTypeUnauthorized, apperrors.TypeOf(err))
	})

	t.Run("unsigned", func(t *testing.T) {
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "tutor-scheduler",
				Subject:   "u-1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Role: entities.RoleTutor,
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = m.Parse(token)
		assert.Equal(t, apperrors.ErrorTypeUnauthorized, apperrors.TypeOf(err))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not-a-token")
		assert.Equal(t, apperrors.ErrorTypeUnauthorized, apperrors.TypeOf(err))
	})
}
