package tokenvalidator

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// Now returns the current UTC timestamp.
func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Config configures the Validator.
type Config struct {
	SigningKey []byte
	Issuer     string
	Clock      Clock
}

const (
	// TokenTypeAccess marks tokens accepted by access-protected routes.
	TokenTypeAccess = "access"
	// TokenTypeRefresh marks tokens that may only be exchanged for a new access token.
	TokenTypeRefresh = "refresh"

	bearerScheme = "bearer"
)

// Sentinel errors exposed by the validator.
var (
	ErrMissingSigningKey       = errors.New("token.validator.missing_signing_key")
	ErrMissingIssuer           = errors.New("token.validator.missing_issuer")
	ErrMissingToken            = errors.New("token.validator.missing_token")
	ErrMissingAuthorization    = errors.New("token.validator.missing_authorization")
	ErrMalformedAuthorization  = errors.New("token.validator.malformed_authorization")
	ErrInvalidToken            = errors.New("token.validator.invalid_token")
	ErrInvalidIssuer           = errors.New("token.validator.invalid_issuer")
	ErrTokenExpired            = errors.New("token.validator.expired")
	ErrUnsupportedTokenType    = errors.New("token.validator.unsupported_type")
	ErrMissingTokenIdentifiers = errors.New("token.validator.missing_identifiers")
)

// Validator validates bearer tokens minted by the store API.
type Validator struct {
	signingKey []byte
	issuer     string
	clock      Clock
}

// Claims represent the payload embedded inside access and refresh tokens.
// Subject carries the user identity and ID carries the jti used for revocation.
type Claims struct {
	TokenType string `json:"type"`
	Fresh     bool   `json:"fresh"`
	jwt.RegisteredClaims
}

// GetIdentity returns the user identity the token was issued for.
func (claims *Claims) GetIdentity() string {
	if claims == nil {
		return ""
	}
	return claims.Subject
}

// GetTokenID returns the jti of the token.
func (claims *Claims) GetTokenID() string {
	if claims == nil {
		return ""
	}
	return claims.ID
}

// IsRefresh reports whether the token is a refresh token.
func (claims *Claims) IsRefresh() bool {
	return claims != nil && claims.TokenType == TokenTypeRefresh
}

// IsFresh reports whether the token came directly from a password login.
func (claims *Claims) IsFresh() bool {
	return claims != nil && claims.TokenType == TokenTypeAccess && claims.Fresh
}

// GetExpiresAt returns the expiry timestamp.
func (claims *Claims) GetExpiresAt() time.Time {
	if claims == nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// New constructs a Validator after validating the supplied configuration.
func New(configuration Config) (*Validator, error) {
	if len(configuration.SigningKey) == 0 {
		return nil, fmt.Errorf("token.validator.new: %w", ErrMissingSigningKey)
	}
	if strings.TrimSpace(configuration.Issuer) == "" {
		return nil, fmt.Errorf("token.validator.new: %w", ErrMissingIssuer)
	}
	clock := configuration.Clock
	if clock == nil {
		clock = systemClock{}
	}
	return &Validator{
		signingKey: configuration.SigningKey,
		issuer:     configuration.Issuer,
		clock:      clock,
	}, nil
}

// ValidateToken validates the provided JWT string and returns the parsed claims.
func (validator *Validator) ValidateToken(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("token.validator.validate_token: %w", ErrMissingToken)
	}
	parsedToken, parseErr := jwt.ParseWithClaims(tokenString, &Claims{}, func(parsed *jwt.Token) (interface{}, error) {
		return validator.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time {
		return validator.clock.Now()
	}))
	if parseErr != nil {
		if errors.Is(parseErr, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token.validator.validate_token: %w", ErrTokenExpired)
		}
		return nil, fmt.Errorf("token.validator.validate_token: %w", ErrInvalidToken)
	}
	if parsedToken == nil || !parsedToken.Valid {
		return nil, fmt.Errorf("token.validator.validate_token: %w", ErrInvalidToken)
	}
	claims, ok := parsedToken.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("token.validator.validate_token: %w", ErrInvalidToken)
	}
	if claims.Issuer != validator.issuer {
		return nil, fmt.Errorf("token.validator.validate_token: %w", ErrInvalidIssuer)
	}
	if claims.TokenType != TokenTypeAccess && claims.TokenType != TokenTypeRefresh {
		return nil, fmt.Errorf("token.validator.validate_token: %w", ErrUnsupportedTokenType)
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.ID) == "" {
		return nil, fmt.Errorf("token.validator.validate_token: %w", ErrMissingTokenIdentifiers)
	}
	current := validator.clock.Now()
	if claims.ExpiresAt != nil && current.After(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("token.validator.validate_token: %w", ErrTokenExpired)
	}
	if claims.NotBefore != nil && current.Before(claims.NotBefore.Time) {
		return nil, fmt.Errorf("token.validator.validate_token: %w", ErrInvalidToken)
	}
	return claims, nil
}

// ValidateRequest reads the bearer token from the Authorization header and validates it.
func (validator *Validator) ValidateRequest(request *http.Request) (*Claims, error) {
	tokenString, err := BearerToken(request)
	if err != nil {
		return nil, fmt.Errorf("token.validator.validate_request: %w", err)
	}
	return validator.ValidateToken(tokenString)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(request *http.Request) (string, error) {
	if request == nil {
		return "", ErrMissingAuthorization
	}
	header := strings.TrimSpace(request.Header.Get("Authorization"))
	if header == "" {
		return "", ErrMissingAuthorization
	}
	scheme, tokenString, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", ErrMalformedAuthorization
	}
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", ErrMalformedAuthorization
	}
	return tokenString, nil
}
