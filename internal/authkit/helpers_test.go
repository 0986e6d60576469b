package authkit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/storeapi/internal/events"
	"github.com/tyemirov/storeapi/internal/httperr"
	"github.com/tyemirov/storeapi/internal/storage"
	"github.com/tyemirov/storeapi/pkg/tokenvalidator"
	"go.uber.org/zap/zaptest"
)

func openTestDatabase(t *testing.T) *storage.Database {
	t.Helper()
	database, err := storage.Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "authkit.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

type controllableClock struct {
	mutex   sync.Mutex
	current time.Time
}

func newControllableClock() *controllableClock {
	return &controllableClock{current: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)}
}

func (clock *controllableClock) Now() time.Time {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	return clock.current
}

func (clock *controllableClock) Advance(duration time.Duration) {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	clock.current = clock.current.Add(duration)
}

type failingUserStore struct {
	err error
}

func (store failingUserStore) CreateUser(ctx context.Context, username string, passwordHash string) (*User, error) {
	return nil, store.err
}

func (store failingUserStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	return nil, store.err
}

func (store failingUserStore) FindByID(ctx context.Context, userID uint) (*User, error) {
	return nil, store.err
}

func (store failingUserStore) DeleteUser(ctx context.Context, userID uint) error {
	return store.err
}

type failingRegistry struct{}

func (failingRegistry) Add(ctx context.Context, tokenID string) error {
	return errors.New("registry unavailable")
}

func (failingRegistry) Contains(ctx context.Context, tokenID string) (bool, error) {
	return false, errors.New("registry unavailable")
}

func (failingRegistry) Close() error {
	return nil
}

type authTestEnvironment struct {
	router    *gin.Engine
	service   *AuthService
	users     UserStore
	issuer    *TokenIssuer
	validator *tokenvalidator.Validator
	registry  RevocationRegistry
	publisher *events.MemoryPublisher
	metrics   *CounterMetrics
	clock     *controllableClock
}

type authEnvironmentOption func(*authTestEnvironment)

func withUserStore(users UserStore) authEnvironmentOption {
	return func(environment *authTestEnvironment) {
		environment.users = users
	}
}

func withRegistry(registry RevocationRegistry) authEnvironmentOption {
	return func(environment *authTestEnvironment) {
		environment.registry = registry
	}
}

func newAuthTestEnvironment(t *testing.T, options ...authEnvironmentOption) *authTestEnvironment {
	t.Helper()
	gin.SetMode(gin.TestMode)

	environment := &authTestEnvironment{
		publisher: events.NewMemoryPublisher(),
		metrics:   NewCounterMetrics(),
		clock:     newControllableClock(),
		registry:  NewMemoryRevocationRegistry(),
	}
	for _, option := range options {
		option(environment)
	}
	if environment.users == nil {
		database := openTestDatabase(t)
		users, err := NewDatabaseUserStore(context.Background(), database.DB)
		if err != nil {
			t.Fatalf("user store error: %v", err)
		}
		environment.users = users
	}
	environment.issuer, environment.validator = newTestTokenIssuer(t, environment.clock)

	logger := zaptest.NewLogger(t)
	service, err := NewAuthService(ServiceDependencies{
		Users:     environment.users,
		Issuer:    environment.issuer,
		Registry:  environment.registry,
		Publisher: environment.publisher,
		Metrics:   environment.metrics,
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("service error: %v", err)
	}
	environment.service = service

	router := gin.New()
	gate := NewGate(environment.validator, environment.registry, logger, environment.metrics)
	MountAuthRoutes(router, service, gate, logger)
	router.GET("/protected", gate.RequireAccess(), func(contextGin *gin.Context) {
		claims, _ := ClaimsFromContext(contextGin)
		contextGin.JSON(http.StatusOK, gin.H{"identity": claims.GetIdentity()})
	})
	router.GET("/protected/fresh", gate.RequireFreshAccess(), func(contextGin *gin.Context) {
		contextGin.Status(http.StatusNoContent)
	})
	environment.router = router
	return environment
}

func (environment *authTestEnvironment) perform(method string, path string, payload any, bearer string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	request := httptest.NewRequest(method, path, &body)
	request.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		request.Header.Set("Authorization", "Bearer "+bearer)
	}
	recorder := httptest.NewRecorder()
	environment.router.ServeHTTP(recorder, request)
	return recorder
}

func (environment *authTestEnvironment) login(t *testing.T, username string, password string) TokenPair {
	t.Helper()
	recorder := environment.perform(http.MethodPost, "/login", credentialsRequest{Username: username, Password: password}, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 from login, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var tokens TokenPair
	if err := json.Unmarshal(recorder.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("decode tokens: %v", err)
	}
	return tokens
}

func decodeErrorBody(t *testing.T, recorder *httptest.ResponseRecorder) httperr.Body {
	t.Helper()
	var body httperr.Body
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", recorder.Body.String(), err)
	}
	return body
}

func newRecorder(environment *authTestEnvironment, request *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	environment.router.ServeHTTP(recorder, request)
	return recorder
}
