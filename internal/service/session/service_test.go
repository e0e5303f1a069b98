package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	s := NewService("secret", time.Hour)
	ctx := context.Background()

	token, err := s.Issue(ctx, &IssueParams{Username: "guest"})
	require.NoError(t, err)

	ok, err := s.Validate(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)

	info, err := s.GetSessionInfo(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "guest", info.Username)
	assert.False(t, info.IsLoggedIn)
	assert.Nil(t, info.UserID)
}

func TestLoggedInSession(t *testing.T) {
	s := NewService("secret", time.Hour)
	ctx := context.Background()
	userID := int64(7)

	token, err := s.Issue(ctx, &IssueParams{Username: "member", UserID: &userID})
	require.NoError(t, err)

	info, err := s.GetSessionInfo(ctx, token)
	require.NoError(t, err)
	assert.True(t, info.IsLoggedIn)
	require.NotNil(t, info.UserID)
	assert.Equal(t, userID, *info.UserID)
}

func TestRejectsForeignAndExpiredTokens(t *testing.T) {
	ctx := context.Background()
	s := NewService("secret", time.Minute)

	foreign, err := NewService("other", time.Minute).Issue(ctx, &IssueParams{Username: "x"})
	require.NoError(t, err)

	ok, err := s.Validate(ctx, foreign)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.GetSessionInfo(ctx, foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	ok, _ = s.Validate(ctx, "not a token")
	assert.False(t, ok)

	token, err := s.Issue(ctx, &IssueParams{Username: "x"})
	require.NoError(t, err)
	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	ok, _ = s.Validate(ctx, token)
	assert.False(t, ok)
}

func TestRejectsUnsignedTokens(t *testing.T) {
	s := NewService("secret", time.Minute)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Username: "x", LoggedIn: true}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	ok, err := s.Validate(context.Background(), unsigned)
	require.NoError(t, err)
	assert.False(t, ok)
}
