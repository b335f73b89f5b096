package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aJLaxzzz/foodgram-st/internal/database"
	"github.com/aJLaxzzz/foodgram-st/internal/middleware"
	"github.com/aJLaxzzz/foodgram-st/internal/service"
)

// Services bundles what the handlers depend on.
type Services struct {
	Auth          service.IAuthService
	Users         service.IUserService
	Subscriptions service.ISubscriptionService
	Recipes       service.IRecipeService
	Shopping      service.IShoppingListService
	Links         service.IShortLinkService
	Catalog       service.ICatalogService
}

// RegisterRoutes registers all API routes. limiter may be nil.
func RegisterRoutes(router *gin.Engine, svc Services, pages Pagination, limiter *middleware.RateLimiter) {
	RegisterValidators()

	v := router.Group("/api")
	NewAuthHandler(svc.Auth).RegisterRoutes(v)
	NewUserHandler(svc.Users, svc.Subscriptions, svc.Auth, pages).RegisterRoutes(v)
	NewCatalogHandler(svc.Catalog).RegisterRoutes(v)
	NewRecipeHandler(svc.Recipes, svc.Shopping, svc.Links, svc.Auth, limiter, pages).RegisterRoutes(v)
	NewShortLinkHandler(svc.Links).RegisterRoutes(router)
}

// HealthCheck reports liveness and database reachability.
func HealthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := database.HealthCheck(ctx, db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}
