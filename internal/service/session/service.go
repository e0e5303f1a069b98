package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sharetube/roomsync/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

const DefaultTTL = 24 * time.Hour

type Claims struct {
	Username string `json:"username,omitempty"`
	UserID   *int64 `json:"user_id,omitempty"`
	LoggedIn bool   `json:"logged_in"`
	jwt.RegisteredClaims
}

type service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(secret string, ttl time.Duration) *service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

type IssueParams struct {
	Username string `json:"username" validate:"max=64"`
	UserID   *int64 `json:"user_id,omitempty"`
}

// Issue signs a new session token. Sessions carrying a user id are logged in.
func (s service) Issue(_ context.Context, params *IssueParams) (string, error) {
	now := s.now()
	claims := Claims{
		Username: params.Username,
		UserID:   params.UserID,
		LoggedIn: params.UserID != nil,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

func (s service) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Validate reports whether token is a live session token signed by this service.
func (s service) Validate(_ context.Context, token string) (bool, error) {
	if _, err := s.parse(token); err != nil {
		return false, nil
	}

	return true, nil
}

func (s service) GetSessionInfo(_ context.Context, token string) (domain.SessionInfo, error) {
	claims, err := s.parse(token)
	if err != nil {
		return domain.SessionInfo{}, err
	}

	return domain.SessionInfo{
		Username:   claims.Username,
		UserID:     claims.UserID,
		IsLoggedIn: claims.LoggedIn,
	}, nil
}
