package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/tubedesk/backend/internal/models"
	"github.com/tubedesk/backend/internal/repositories"
)

var (
	// ErrInvalidToken indicates a token that is malformed, badly signed or expired.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired marks an otherwise valid token past its expiry. It wraps ErrInvalidToken.
	ErrTokenExpired = fmt.Errorf("%w: expired", ErrInvalidToken)
	// ErrWrongTokenType indicates a refresh token used as an access token or the reverse.
	ErrWrongTokenType = errors.New("wrong token type")
	// ErrUserNotFound indicates the token subject no longer exists.
	ErrUserNotFound = errors.New("user not found")
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the JWT payload issued by TokenService.
type Claims struct {
	UserID int64     `json:"userId"`
	Type   TokenType `json:"type"`
	jwt.RegisteredClaims
}

// UserLookup resolves the subject of a token.
type UserLookup interface {
	FindByID(ctx context.Context, id int64) (models.User, error)
}

// TokenService issues and verifies the locally signed bearer tokens.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	users      UserLookup
	clock      clockwork.Clock
}

// NewTokenService constructs a TokenService signing with secret. A nil clock uses the wall clock.
func NewTokenService(secret []byte, accessTTL, refreshTTL time.Duration, users UserLookup, clock clockwork.Clock) *TokenService {
	if len(secret) == 0 {
		panic("auth: token secret must not be empty")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenService{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		users:      users,
		clock:      clock,
	}
}

// IssueAccess signs an access token for userID.
func (s *TokenService) IssueAccess(userID int64) (string, error) {
	return s.issue(userID, TokenTypeAccess, s.accessTTL)
}

// IssueRefresh signs a refresh token for userID.
func (s *TokenService) IssueRefresh(userID int64) (string, error) {
	return s.issue(userID, TokenTypeRefresh, s.refreshTTL)
}

// IssuePair signs both tokens for userID.
func (s *TokenService) IssuePair(userID int64) (models.TokenPair, error) {
	access, err := s.IssueAccess(userID)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, err := s.IssueRefresh(userID)
	if err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *TokenService) issue(userID int64, typ TokenType, ttl time.Duration) (string, error) {
	if userID <= 0 {
		return "", errors.New("user id must be provided")
	}
	now := s.clock.Now()
	claims := Claims{
		UserID: userID,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (s *TokenService) parse(token string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return Claims{}, ErrTokenExpired
	}
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID <= 0 {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Verify validates an access token and loads its user. The user is looked up on every call.
func (s *TokenService) Verify(ctx context.Context, token string) (models.User, error) {
	claims, err := s.parse(token)
	if err != nil {
		return models.User{}, err
	}
	if claims.Type != TokenTypeAccess {
		return models.User{}, ErrWrongTokenType
	}
	return s.lookup(ctx, claims.UserID)
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.parse(refreshToken)
	if err != nil {
		return "", err
	}
	if claims.Type != TokenTypeRefresh {
		return "", ErrWrongTokenType
	}
	if _, err := s.lookup(ctx, claims.UserID); err != nil {
		return "", err
	}
	return s.IssueAccess(claims.UserID)
}

func (s *TokenService) lookup(ctx context.Context, userID int64) (models.User, error) {
	if s.users == nil {
		return models.User{}, errors.New("auth: user lookup unavailable")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("load token user: %w", err)
	}
	return user, nil
}
