package token

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/medisupply-security/internal/model"
)

const (
	// MinSecretSize is the shortest accepted HMAC secret.
	MinSecretSize = 32
	// MinTTL is the shortest token lifetime. iat and exp have whole-second
	// precision, so anything shorter would mint an already expired token.
	MinTTL = time.Second
)

// Claims is the JWT payload carried by access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	Roles       []string `json:"roles"`
	TokenType   string   `json:"typ"`
	MFAVerified bool     `json:"mfa_verified"`
}

var _ model.TokenManager = (*JWT)(nil)

// JWT implements TokenManager backed by symmetric HMAC.
type JWT struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Option configures a JWT.
type Option func(*JWT)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(j *JWT) { j.now = now }
}

// WithIssuer sets the iss claim and requires it on verification.
func WithIssuer(issuer string) Option {
	return func(j *JWT) { j.issuer = issuer }
}

// NewJWT creates a new JWT token manager with the provided secret key.
func NewJWT(secret []byte, opts ...Option) (*JWT, error) {
	if len(secret) < MinSecretSize {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", MinSecretSize)
	}

	j := &JWT{
		secret: slices.Clone(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}

	return j, nil
}

// MintAccess creates a short-lived access token.
func (j *JWT) MintAccess(user model.User, ttl time.Duration, mfaVerified bool) (model.Token, error) {
	return j.mint(user, model.TokenKindAccess, ttl, mfaVerified)
}

// MintRefresh creates a long-lived refresh token.
func (j *JWT) MintRefresh(user model.User, ttl time.Duration, mfaVerified bool) (model.Token, error) {
	return j.mint(user, model.TokenKindRefresh, ttl, mfaVerified)
}

func (j *JWT) mint(user model.User, kind model.TokenKind, ttl time.Duration, mfaVerified bool) (model.Token, error) {
	if ttl < MinTTL {
		return model.Token{}, fmt.Errorf("%s token ttl must be at least %s, got %s", kind, MinTTL, ttl)
	}
	if user.Username == "" {
		return model.Token{}, fmt.Errorf("%s token requires a subject", kind)
	}

	now := j.now().Truncate(time.Second)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.Username,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles:       slices.Clone(user.Roles),
		TokenType:   string(kind),
		MFAVerified: mfaVerified,
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return model.Token{}, fmt.Errorf("failed to sign %s token: %w", kind, err)
	}

	return model.Token{Value: tokenString, Claims: toModel(claims)}, nil
}

// Verify checks structure, then signature, then expiry, and returns the claims.
func (j *JWT) Verify(tokenString string) (model.Claims, error) {
	if tokenString == "" {
		return model.Claims{}, model.ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return j.secret, nil
	}, opts...)
	if err != nil {
		return model.Claims{}, mapParseError(err)
	}

	kind := model.TokenKind(claims.TokenType)
	if kind != model.TokenKindAccess && kind != model.TokenKindRefresh {
		return model.Claims{}, fmt.Errorf("%w: unknown token type %q", model.ErrMalformedToken, claims.TokenType)
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return model.Claims{}, fmt.Errorf("%w: missing subject or issue time", model.ErrMalformedToken)
	}

	return toModel(*claims), nil
}

// RequireKind rejects claims minted for a different purpose.
func RequireKind(claims model.Claims, kind model.TokenKind) error {
	if claims.Kind != kind {
		return fmt.Errorf("%w: expected %s, got %s", model.ErrWrongTokenType, kind, claims.Kind)
	}
	return nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenInvalidClaims) && !errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: %v", model.ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: %v", model.ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return model.ErrExpiredToken
	default:
		return fmt.Errorf("%w: %v", model.ErrMalformedToken, err)
	}
}

func toModel(c Claims) model.Claims {
	out := model.Claims{
		ID:          c.ID,
		Subject:     c.Subject,
		Roles:       slices.Clone(c.Roles),
		Kind:        model.TokenKind(c.TokenType),
		MFAVerified: c.MFAVerified,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}
