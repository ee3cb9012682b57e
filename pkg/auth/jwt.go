package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/tripcrew-backend/pkg/config"
)

const defaultLeeway = 30 * time.Second

var (
	ErrMissingSecret = errors.New("jwt secret is required")
	ErrNoCaller      = errors.New("token does not identify a user")
)

// Claims is the payload issued by the identity service. Older tokens carry
// the caller only in sub, newer ones in user_id as well.
type Claims struct {
	UserID uuid.UUID `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// Caller resolves the user a token was issued to.
func (c *Claims) Caller() (uuid.UUID, error) {
	if c.UserID != uuid.Nil {
		return c.UserID, nil
	}
	if sub, err := uuid.Parse(c.Subject); err == nil && sub != uuid.Nil {
		return sub, nil
	}
	return uuid.Nil, ErrNoCaller
}

// Authority verifies HS256 access tokens and, for tests and local tooling,
// mints them with the same settings.
type Authority struct {
	secret []byte
	issuer string
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

type Option func(*Authority)

// WithClock replaces time.Now for both minting and verification.
func WithClock(now func() time.Time) Option {
	return func(a *Authority) { a.now = now }
}

func WithLeeway(d time.Duration) Option {
	return func(a *Authority) { a.leeway = d }
}

func NewAuthority(cfg config.JWTConfig, opts ...Option) *Authority {
	a := &Authority{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    time.Duration(cfg.ExpirationMinutes) * time.Minute,
		leeway: defaultLeeway,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Mint signs a token for userID. An empty jti gets a random one.
func (a *Authority) Mint(userID uuid.UUID, jti string) (string, error) {
	switch {
	case len(a.secret) == 0:
		return "", ErrMissingSecret
	case a.issuer == "":
		return "", errors.New("jwt issuer is required")
	case a.ttl <= 0:
		return "", errors.New("jwt expiration must be positive")
	case userID == uuid.Nil:
		return "", ErrNoCaller
	}
	if jti = strings.TrimSpace(jti); jti == "" {
		jti = uuid.NewString()
	}

	issued := a.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    a.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(a.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry and returns the caller.
// Expired tokens wrap jwt.ErrTokenExpired.
func (a *Authority) Verify(raw string) (uuid.UUID, *Claims, error) {
	if len(a.secret) == 0 {
		return uuid.Nil, nil, ErrMissingSecret
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.leeway),
		jwt.WithTimeFunc(a.now),
	)
	if _, err := parser.ParseWithClaims(raw, claims, a.key); err != nil {
		return uuid.Nil, nil, err
	}

	caller, err := claims.Caller()
	if err != nil {
		return uuid.Nil, nil, err
	}
	return caller, claims, nil
}

func (a *Authority) key(*jwt.Token) (any, error) {
	return a.secret, nil
}
