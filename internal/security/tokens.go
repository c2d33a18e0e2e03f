package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, signed with the
	// wrong secret, or carries the wrong claims. Callers must force re-authentication.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for a well-formed, correctly signed token whose
	// exp has passed. Callers should prompt a silent refresh instead of re-login.
	ErrTokenExpired = errors.New("token expired")
)

// refreshKind is the token_kind claim value required on refresh tokens.
const refreshKind = "refresh"

// AccessClaims holds JWT claims for the access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

// RefreshClaims holds JWT claims for the refresh token. TokenKind must be
// "refresh"; access verification rejects it regardless because the secrets differ.
type RefreshClaims struct {
	jwt.RegisteredClaims
	TokenKind string `json:"token_kind"`
}

// TokenProvider issues and verifies HS256 access and refresh tokens. Access
// tokens are signed with accessSecret, refresh tokens with refreshSecret; the
// two must differ so neither kind verifies under the other's key.
// All methods are pure given the two secrets and safe for concurrent use.
type TokenProvider struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	audience      string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenProvider returns a TokenProvider signing with the two given secrets.
// Returns an error if either secret is empty or they are equal.
func NewTokenProvider(accessSecret, refreshSecret []byte, issuer, audience string, accessTTL, refreshTTL time.Duration) (*TokenProvider, error) {
	if len(accessSecret) == 0 || len(refreshSecret) == 0 {
		return nil, errors.New("security: token secrets must not be empty")
	}
	if subtle.ConstantTimeCompare(accessSecret, refreshSecret) == 1 {
		return nil, errors.New("security: access and refresh secrets must differ")
	}
	return &TokenProvider{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		issuer:        issuer,
		audience:      audience,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// IssueAccess issues a short-lived access JWT for the given user.
// Returns the token string and its expiration time.
func (p *TokenProvider) IssueAccess(userID, username, role string) (token string, expiresAt time.Time, err error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Username: username,
		Role:     role,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString(p.accessSecret)
	return token, expiresAt, err
}

// IssueRefresh issues a long-lived refresh JWT bound to the user id only.
func (p *TokenProvider) IssueRefresh(userID string) (token string, expiresAt time.Time, err error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(p.refreshTTL)
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TokenKind: refreshKind,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString(p.refreshSecret)
	return token, expiresAt, err
}

// VerifyAccess parses and validates the access token (signature, exp, iss, aud).
// Returns ErrTokenExpired only when the signature is valid and exp has passed;
// every other failure is ErrInvalidToken so callers can branch on the two.
func (p *TokenProvider) VerifyAccess(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.accessSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if err := p.checkIssuerAudience(claims.Issuer, claims.Audience); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh parses and validates the refresh token. Tokens not of kind
// "refresh", or signed with the access secret, are rejected. Returns the user id.
func (p *TokenProvider) VerifyRefresh(tokenString string) (userID string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.refreshSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.TokenKind != refreshKind {
		return "", ErrInvalidToken
	}
	if err := p.checkIssuerAudience(claims.Issuer, claims.Audience); err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (p *TokenProvider) checkIssuerAudience(issuer string, audience jwt.ClaimStrings) error {
	if issuer != p.issuer {
		return ErrInvalidToken
	}
	for _, a := range audience {
		if a == p.audience {
			return nil
		}
	}
	return ErrInvalidToken
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
