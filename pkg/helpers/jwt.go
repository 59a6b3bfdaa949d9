package helpers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind tags what a token may be used for. Each kind is signed with its
// own secret so a token of one kind never verifies as another.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
	ResetToken   TokenKind = "reset"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// TokenSettings holds the secret material and lifetime of one kind.
type TokenSettings struct {
	Secret string
	TTL    time.Duration
}

type tokenKey struct {
	secret []byte
	ttl    time.Duration
}

// JWTManager issues and verifies HS256 tokens for every TokenKind.
type JWTManager struct {
	keys map[TokenKind]tokenKey
	now  func() time.Time
}

func NewJWTManager(access, refresh, reset TokenSettings) *JWTManager {
	return &JWTManager{
		keys: map[TokenKind]tokenKey{
			AccessToken:  {secret: []byte(access.Secret), ttl: access.TTL},
			RefreshToken: {secret: []byte(refresh.Secret), ttl: refresh.TTL},
			ResetToken:   {secret: []byte(reset.Secret), ttl: reset.TTL},
		},
		now: time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	m.now = now
	return m
}

// TTL reports the configured lifetime of kind.
func (m *JWTManager) TTL(kind TokenKind) time.Duration {
	return m.keys[kind].ttl
}

type Claims struct {
	Kind TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// Issue signs a token of the given kind for subjectID.
func (m *JWTManager) Issue(kind TokenKind, subjectID int64) (string, time.Time, error) {
	key, ok := m.keys[kind]
	if !ok || len(key.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("no signing key for %s tokens", kind)
	}
	now := m.now()
	exp := now.Add(key.ttl)
	claims := &Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(subjectID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(key.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return s, exp, nil
}

// Verify checks signature, expiry (no leeway) and kind, and returns the subject id.
func (m *JWTManager) Verify(kind TokenKind, tokenStr string) (int64, error) {
	key, ok := m.keys[kind]
	if !ok || tokenStr == "" {
		return 0, ErrInvalidToken
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return key.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrInvalidToken
	}
	if claims.Kind != kind {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
