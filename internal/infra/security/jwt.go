package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Reportify/teleopsold-sub002/internal/infra/config"
)

var (
	// ErrInvalidToken indicates a malformed, unsigned or mis-scoped token.
	ErrInvalidToken = errors.New("jwt: invalid token")
	// ErrExpiredToken indicates the token is past its expiry.
	ErrExpiredToken = errors.New("jwt: token expired")
)

const defaultTokenTTL = 15 * time.Minute

// IdentityClaims identify the caller inside one tenant. Tokens are issued by the upstream
// identity service; this service only verifies them.
type IdentityClaims struct {
	TenantID  string `json:"tid"`
	ProfileID string `json:"pid"`
	UserID    string `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 identity tokens shared with the identity service.
type TokenVerifier struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenVerifier builds a verifier from auth settings.
func NewTokenVerifier(cfg config.AuthSettings) (*TokenVerifier, error) {
	secret := strings.TrimSpace(cfg.JWTSecret)
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt: secret must be at least 32 bytes")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenVerifier{
		secret:   []byte(secret),
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
		leeway:   cfg.Leeway,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// WithClock overrides the time source.
func (v *TokenVerifier) WithClock(clock func() time.Time) *TokenVerifier {
	if clock != nil {
		v.now = clock
	}
	return v
}

// Verify parses raw and returns its identity claims.
func (v *TokenVerifier) Verify(raw string) (*IdentityClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &IdentityClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims.TenantID = strings.TrimSpace(claims.TenantID)
	claims.ProfileID = strings.TrimSpace(claims.ProfileID)
	if claims.TenantID == "" || claims.ProfileID == "" {
		return nil, fmt.Errorf("%w: tenant and profile claims are required", ErrInvalidToken)
	}
	return claims, nil
}

// Sign issues a token for tenantID/profileID. Used by rbacctl and tests; production tokens come
// from the identity service.
func (v *TokenVerifier) Sign(tenantID, profileID, userID string) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	profileID = strings.TrimSpace(profileID)
	if tenantID == "" || profileID == "" {
		return "", fmt.Errorf("jwt: tenant id and profile id are required")
	}

	now := v.now().UTC()
	claims := IdentityClaims{
		TenantID:  tenantID,
		ProfileID: profileID,
		UserID:    strings.TrimSpace(userID),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profileID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
			ID:        uuid.NewString(),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}
