package authkit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tyemirov/storeapi/internal/events"
	"github.com/tyemirov/storeapi/pkg/tokenvalidator"
	"go.uber.org/zap"
)

// TokenPair is returned by a successful login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ServiceDependencies wires an AuthService. Publisher, Metrics and Logger are optional.
type ServiceDependencies struct {
	Users     UserStore
	Hasher    *PasswordHasher
	Issuer    *TokenIssuer
	Registry  RevocationRegistry
	Publisher events.Publisher
	Metrics   MetricsRecorder
	Logger    *zap.Logger
}

// AuthService implements registration, login, refresh and logout.
type AuthService struct {
	users     UserStore
	hasher    *PasswordHasher
	issuer    *TokenIssuer
	registry  RevocationRegistry
	publisher events.Publisher
	metrics   MetricsRecorder
	logger    *zap.Logger
}

// NewAuthService validates dependencies and builds the service.
func NewAuthService(dependencies ServiceDependencies) (*AuthService, error) {
	if dependencies.Users == nil {
		return nil, errors.New("auth.service.new: user store is required")
	}
	if dependencies.Issuer == nil {
		return nil, errors.New("auth.service.new: token issuer is required")
	}
	if dependencies.Registry == nil {
		return nil, errors.New("auth.service.new: revocation registry is required")
	}
	service := &AuthService{
		users:     dependencies.Users,
		hasher:    dependencies.Hasher,
		issuer:    dependencies.Issuer,
		registry:  dependencies.Registry,
		publisher: dependencies.Publisher,
		metrics:   dependencies.Metrics,
		logger:    dependencies.Logger,
	}
	if service.hasher == nil {
		service.hasher = NewPasswordHasher()
	}
	if service.publisher == nil {
		service.publisher = events.NopPublisher{}
	}
	if service.metrics == nil {
		service.metrics = noopMetrics{}
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	return service, nil
}

// Register creates a user with a hashed password.
func (service *AuthService) Register(ctx context.Context, username string, password string) (*User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, fmt.Errorf("auth.register: %w", ErrInvalidRegistration)
	}
	existing, lookupErr := service.users.FindByUsername(ctx, username)
	switch {
	case lookupErr == nil && existing != nil:
		service.metrics.Increment(MetricRegisterConflict)
		return nil, fmt.Errorf("auth.register: %w", ErrUsernameTaken)
	case lookupErr != nil && !errors.Is(lookupErr, ErrUserNotFound):
		return nil, fmt.Errorf("auth.register: %w", lookupErr)
	}

	passwordHash, hashErr := service.hasher.Hash(password)
	if hashErr != nil {
		return nil, fmt.Errorf("auth.register: %w: %w", ErrPersistence, hashErr)
	}
	user, createErr := service.users.CreateUser(ctx, username, passwordHash)
	if createErr != nil {
		if errors.Is(createErr, ErrUsernameTaken) {
			service.metrics.Increment(MetricRegisterConflict)
		}
		return nil, fmt.Errorf("auth.register: %w", createErr)
	}

	service.metrics.Increment(MetricRegisterSuccess)
	service.publish(ctx, events.NewEvent(events.TopicUserEvents, events.TypeUserRegistered, identityOf(user.ID), map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	}))
	return user, nil
}

// Login verifies credentials and issues a fresh access token plus a refresh token.
func (service *AuthService) Login(ctx context.Context, username string, password string) (TokenPair, error) {
	user, lookupErr := service.users.FindByUsername(ctx, username)
	if lookupErr != nil {
		if errors.Is(lookupErr, ErrUserNotFound) {
			service.hasher.VerifyUnknown(password)
			service.metrics.Increment(MetricLoginFailure)
			return TokenPair{}, fmt.Errorf("auth.login: %w", ErrInvalidCredentials)
		}
		return TokenPair{}, fmt.Errorf("auth.login: %w", lookupErr)
	}

	matched, verifyErr := service.hasher.Verify(password, user.PasswordHash)
	if verifyErr != nil {
		service.logger.Warn("stored password hash unreadable",
			zap.String("code", "auth.login.malformed_hash"),
			zap.Uint("user_id", user.ID),
			zap.Error(verifyErr))
	}
	if !matched {
		service.metrics.Increment(MetricLoginFailure)
		return TokenPair{}, fmt.Errorf("auth.login: %w", ErrInvalidCredentials)
	}

	identity := identityOf(user.ID)
	accessToken, accessErr := service.issuer.IssueAccess(identity, true)
	if accessErr != nil {
		return TokenPair{}, fmt.Errorf("auth.login: %w", accessErr)
	}
	refreshToken, refreshErr := service.issuer.IssueRefresh(identity)
	if refreshErr != nil {
		return TokenPair{}, fmt.Errorf("auth.login: %w", refreshErr)
	}
	service.metrics.Increment(MetricLoginSuccess)
	return TokenPair{AccessToken: accessToken.Value, RefreshToken: refreshToken.Value}, nil
}

// Refresh exchanges a refresh token for a non-fresh access token and revokes the presented refresh token.
func (service *AuthService) Refresh(ctx context.Context, claims *tokenvalidator.Claims) (IssuedToken, error) {
	if claims == nil || !claims.IsRefresh() {
		return IssuedToken{}, fmt.Errorf("auth.refresh: %w", ErrRefreshTokenRequired)
	}
	accessToken, issueErr := service.issuer.IssueAccess(claims.GetIdentity(), false)
	if issueErr != nil {
		return IssuedToken{}, fmt.Errorf("auth.refresh: %w", issueErr)
	}
	if err := service.registry.Add(ctx, claims.GetTokenID()); err != nil {
		return IssuedToken{}, fmt.Errorf("auth.refresh: %w", err)
	}
	service.metrics.Increment(MetricRefreshSuccess)
	return accessToken, nil
}

// Logout revokes the presented token.
func (service *AuthService) Logout(ctx context.Context, claims *tokenvalidator.Claims) error {
	if claims == nil {
		return fmt.Errorf("auth.logout: %w", ErrEmptyTokenID)
	}
	if err := service.registry.Add(ctx, claims.GetTokenID()); err != nil {
		return fmt.Errorf("auth.logout: %w", err)
	}
	service.metrics.Increment(MetricLogoutSuccess)
	return nil
}

// GetUser returns the user with the given id.
func (service *AuthService) GetUser(ctx context.Context, userID uint) (*User, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("auth.get_user: %w", err)
	}
	return user, nil
}

// DeleteUser removes the user with the given id.
func (service *AuthService) DeleteUser(ctx context.Context, userID uint) error {
	if err := service.users.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("auth.delete_user: %w", err)
	}
	service.metrics.Increment(MetricUserDeleted)
	service.publish(ctx, events.NewEvent(events.TopicUserEvents, events.TypeUserDeleted, identityOf(userID), map[string]any{
		"user_id": userID,
	}))
	return nil
}

func (service *AuthService) publish(ctx context.Context, event events.Event) {
	if err := service.publisher.Publish(ctx, event); err != nil {
		service.logger.Warn("event publish failed",
			zap.String("code", "auth.events.publish_failed"),
			zap.String("type", event.Type),
			zap.Error(err))
	}
}

func identityOf(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}

// ParseIdentity converts a token subject back into a user id.
func ParseIdentity(identity string) (uint, error) {
	parsed, err := strconv.ParseUint(identity, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("auth.parse_identity: %w", ErrUserNotFound)
	}
	return uint(parsed), nil
}
