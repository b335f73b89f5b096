package api_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aJLaxzzz/foodgram-st/internal/api"
	"github.com/aJLaxzzz/foodgram-st/internal/middleware"
	"github.com/aJLaxzzz/foodgram-st/internal/models"
	"github.com/aJLaxzzz/foodgram-st/internal/service"
	"github.com/aJLaxzzz/foodgram-st/internal/testhelpers"
)

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	auth   *service.AuthService
	store  *testhelpers.MemoryStorage
}

func newTestServer(t *testing.T, recipeLimit int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupSQLite(t)
	_, rdb := testhelpers.SetupRedis(t)
	store := testhelpers.NewMemoryStorage()

	auth := service.NewAuthService(db, "api-test-secret", time.Hour, service.NewRedisRevoker(rdb))
	users := service.NewUserService(db, store)
	links := service.NewShortLinkService(db, rdb)
	svc := api.Services{
		Auth:          auth,
		Users:         users,
		Subscriptions: service.NewSubscriptionService(db, users),
		Recipes:       service.NewRecipeService(db, store, links),
		Shopping:      service.NewShoppingListService(db),
		Links:         links,
		Catalog:       service.NewCatalogService(db),
	}

	var limiter *middleware.RateLimiter
	if recipeLimit > 0 {
		limiter = middleware.NewRecipeCreationRateLimiter(rdb, recipeLimit)
	}

	router := gin.New()
	api.RegisterRoutes(router, svc, api.Pagination{DefaultLimit: 6, MaxLimit: 100}, limiter)
	return &testServer{t: t, db: db, router: router, auth: auth, store: store}
}

// login returns a token for a fixture user.
func (s *testServer) login(user *models.User) string {
	s.t.Helper()
	token, err := s.auth.GenerateToken(user.ID)
	require.NoError(s.t, err)
	return token
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}
