package router

import (
	"strings"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/aJLaxzzz/foodgram-st/internal/api"
	"github.com/aJLaxzzz/foodgram-st/internal/middleware"
	"github.com/aJLaxzzz/foodgram-st/internal/telemetry"
)

// Options configures SetupRouter.
type Options struct {
	DB          *gorm.DB
	Services    api.Services
	Pages       api.Pagination
	Limiter     *middleware.RateLimiter
	CORSOrigins []string

	// MediaRoot and MediaURL serve locally stored media. Leave MediaRoot
	// empty when media lives in S3.
	MediaRoot string
	MediaURL  string

	Sentry  bool
	Tracing bool
}

// SetupRouter configures the application routes
func SetupRouter(opts Options) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery())
	if opts.Sentry {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	if opts.Tracing {
		router.Use(otelgin.Middleware(telemetry.ServiceName))
	}
	router.Use(
		middleware.RequestLogger(),
		middleware.Metrics(),
		middleware.CORS(opts.CORSOrigins),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})),
	)

	router.GET("/health", api.HealthCheck(opts.DB))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if opts.MediaRoot != "" && strings.HasPrefix(opts.MediaURL, "/") {
		router.Static(strings.TrimSuffix(opts.MediaURL, "/"), opts.MediaRoot)
	}

	api.RegisterRoutes(router, opts.Services, opts.Pages, opts.Limiter)
	return router
}
