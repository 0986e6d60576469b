package authkit

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tyemirov/storeapi/pkg/tokenvalidator"
)

// IssuedToken is a signed token together with the identifiers needed to revoke it.
type IssuedToken struct {
	Value     string
	TokenID   string
	ExpiresAt time.Time
}

// TokenIssuer mints HS256 access and refresh tokens.
type TokenIssuer struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      Clock
	newTokenID func() string
}

// NewTokenIssuer constructs an issuer from the server configuration.
func NewTokenIssuer(configuration ServerConfig, clock Clock) (*TokenIssuer, error) {
	if len(configuration.JWTSigningKey) == 0 {
		return nil, fmt.Errorf("jwt.issuer.new: signing key must be non-empty")
	}
	if strings.TrimSpace(configuration.JWTIssuer) == "" {
		return nil, fmt.Errorf("jwt.issuer.new: issuer must be non-empty")
	}
	if configuration.AccessTTL <= 0 || configuration.RefreshTTL <= 0 {
		return nil, fmt.Errorf("jwt.issuer.new: token lifetimes must be positive")
	}
	if clock == nil {
		clock = NewSystemClock()
	}
	return &TokenIssuer{
		signingKey: configuration.JWTSigningKey,
		issuer:     configuration.JWTIssuer,
		accessTTL:  configuration.AccessTTL,
		refreshTTL: configuration.RefreshTTL,
		clock:      clock,
		newTokenID: uuid.NewString,
	}, nil
}

// IssueAccess mints an access token; fresh marks tokens minted straight from a password login.
func (issuer *TokenIssuer) IssueAccess(identity string, fresh bool) (IssuedToken, error) {
	return issuer.mint(identity, tokenvalidator.TokenTypeAccess, fresh, issuer.accessTTL)
}

// IssueRefresh mints a refresh token. Refresh tokens are never fresh.
func (issuer *TokenIssuer) IssueRefresh(identity string) (IssuedToken, error) {
	return issuer.mint(identity, tokenvalidator.TokenTypeRefresh, false, issuer.refreshTTL)
}

func (issuer *TokenIssuer) mint(identity string, tokenType string, fresh bool, ttl time.Duration) (IssuedToken, error) {
	if strings.TrimSpace(identity) == "" {
		return IssuedToken{}, fmt.Errorf("jwt.mint.%s: %w", tokenType, ErrEmptyIdentity)
	}
	issuedAt := issuer.clock.Now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)
	tokenID := issuer.newTokenID()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenvalidator.Claims{
		TokenType: tokenType,
		Fresh:     fresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer.issuer,
			Subject:   identity,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(issuer.signingKey)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("jwt.mint.%s: %w", tokenType, err)
	}
	return IssuedToken{Value: signed, TokenID: tokenID, ExpiresAt: expiresAt}, nil
}
