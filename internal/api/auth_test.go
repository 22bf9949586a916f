package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/habii/habii-server/internal/config"
	"github.com/habii/habii-server/internal/database"
	"github.com/habii/habii-server/internal/stats"
	"github.com/habii/habii-server/internal/testutil"
)

// newTestApp creates a HabiiApp for testing purposes.
func newTestApp(t *testing.T, db database.HabiiRepository, su *stats.MockStatsUpdater) *HabiiApp {
	su.On("RegisterMetric", "NumAuthFailures").Once()

	return NewHabiiApp(
		http.NewServeMux(),
		testutil.TestLogger(t),
		nil,
		db,
		su,
		&config.Config{
			SigningKey:     []byte("test-signing-key"),
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	)
}

func TestUserId(t *testing.T) {
	tcases := []struct {
		name     string
		ctx      context.Context
		userId   int
		expected bool
	}{
		{
			name:     "no user ID",
			ctx:      context.Background(),
			expected: false,
		},
		{
			name:     "user ID set",
			ctx:      WithUserId(context.Background(), 42),
			userId:   42,
			expected: true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			userId, ok := UserId(tc.ctx)
			assert.Equal(t, tc.expected, ok, "expected UserId to return %v", tc.expected)
			assert.Equal(t, tc.userId, userId, "expected UserId to return %d", tc.userId)
		})
	}
}

func TestJwtRoundTrip(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	app := newTestApp(t, &database.MockHabiiRepository{}, su)

	token, err := app.createJwtForSession(42, defaultJwtExpiration)
	assert.NoError(t, err, "expected no error creating token")
	assert.NotEmpty(t, token, "expected a signed token")

	userId, err := app.extractUserIdFromToken(token)
	assert.NoError(t, err, "expected no error verifying token")
	assert.Equal(t, 42, userId, "expected the user id from the token claims")
}

func TestExtractUserIdFromToken_Invalid(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	app := newTestApp(t, &database.MockHabiiRepository{}, su)

	t.Run("malformed token", func(t *testing.T) {
		_, err := app.extractUserIdFromToken("not-a-token")
		assert.Error(t, err, "expected an error for a malformed token")
	})

	t.Run("wrong signing key", func(t *testing.T) {
		su2 := &stats.MockStatsUpdater{}
		defer su2.AssertExpectations(t)
		other := newTestApp(t, &database.MockHabiiRepository{}, su2)
		other.signingKey = []byte("a-different-key")

		token, err := other.createJwtForSession(1, defaultJwtExpiration)
		assert.NoError(t, err)

		_, err = app.extractUserIdFromToken(token)
		assert.Error(t, err, "expected an error for a token signed with another key")
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := app.createJwtForSession(1, -defaultJwtExpiration)
		assert.NoError(t, err)

		_, err = app.extractUserIdFromToken(token)
		assert.Error(t, err, "expected an error for an expired token")
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPassword("s3cret")
	assert.NoError(t, err, "expected no error hashing password")
	assert.NotEqual(t, "s3cret", hash, "expected the hash to differ from the password")

	assert.True(t, verifyPassword(hash, "s3cret"), "expected the correct password to verify")
	assert.False(t, verifyPassword(hash, "wrong"), "expected the wrong password to fail")
}
