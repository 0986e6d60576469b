package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tyemirov/storeapi/internal/events"
	"github.com/tyemirov/storeapi/internal/httperr"
	"github.com/tyemirov/storeapi/internal/storage"
	"go.uber.org/zap/zaptest"
)

type catalogTestEnv struct {
	database  *storage.Database
	service   *Service
	publisher *events.MemoryPublisher
	router    *gin.Engine
}

func newCatalogTestEnv(t *testing.T) *catalogTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := storage.Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	repository, err := NewRepository(context.Background(), database.DB)
	require.NoError(t, err)

	publisher := events.NewMemoryPublisher()
	logger := zaptest.NewLogger(t)
	service, err := NewService(repository, publisher, logger)
	require.NoError(t, err)

	router := gin.New()
	MountCatalogRoutes(router, service, requireBearerStub, logger)

	return &catalogTestEnv{database: database, service: service, publisher: publisher, router: router}
}

// requireBearerStub admits any request carrying an Authorization header.
func requireBearerStub(contextGin *gin.Context) {
	if contextGin.GetHeader("Authorization") == "" {
		httperr.Abort(contextGin, http.StatusUnauthorized, "Request does not contain an access token.")
		return
	}
	contextGin.Next()
}

func (env *catalogTestEnv) seedStore(t *testing.T, name string) *Store {
	t.Helper()
	store, err := env.service.CreateStore(context.Background(), name)
	require.NoError(t, err)
	return store
}

func (env *catalogTestEnv) seedItem(t *testing.T, storeID uint, name string) *Item {
	t.Helper()
	item, err := env.service.CreateItem(context.Background(), ItemInput{Name: name, Price: 9.99, StoreID: storeID})
	require.NoError(t, err)
	return item
}

func (env *catalogTestEnv) seedTag(t *testing.T, storeID uint, name string) *Tag {
	t.Helper()
	tag, err := env.service.CreateTag(context.Background(), storeID, name)
	require.NoError(t, err)
	return tag
}

func (env *catalogTestEnv) doJSONRequest(method string, path string, payload any, bearer string) *httptest.ResponseRecorder {
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
	env.router.ServeHTTP(recorder, request)
	return recorder
}

func decodeJSON[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var decoded T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decoded), recorder.Body.String())
	return decoded
}
