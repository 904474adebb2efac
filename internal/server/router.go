package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/abduss/imgbed/internal/access"
	"github.com/abduss/imgbed/internal/config"
	"github.com/abduss/imgbed/internal/gallery"
	"github.com/abduss/imgbed/internal/logger"
	"github.com/abduss/imgbed/internal/metrics"
	"github.com/abduss/imgbed/internal/upload"
)

// Dependencies groups the services required by the HTTP router. Backend
// clients are nil when the configuration does not use them.
type Dependencies struct {
	Config         config.Config
	Logger         *zap.Logger
	DB             *pgxpool.Pool
	ObjectStore    *minio.Client
	Redis          redis.UniversalClient
	UploadService  *upload.Service
	GalleryService *gallery.Store
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.MaxMultipartMemory = deps.Config.Server.MaxMultipartMemory
	if err := router.SetTrustedProxies(deps.Config.Access.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	router.Use(logger.Middleware(log))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.FromContext(c, log).Error("panic recovered", zap.Any("panic", recovered), zap.Stack("stack"))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal server error"})
	}))
	router.Use(metrics.Middleware())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Content-Type", logger.CorrelationIDHeader},
		ExposeHeaders:   []string{logger.CorrelationIDHeader},
		MaxAge:          12 * time.Hour,
	}))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "not found"})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"success": false, "message": "method not allowed"})
	})

	registerHealthRoutes(router, deps)
	if path := deps.Config.Metrics.PrometheusPath; path != "" {
		metrics.Register(router, path)
	}

	admission, err := access.Middleware(deps.Config.Access)
	if err != nil {
		return nil, err
	}
	api := router.Group("/api")
	api.Use(admission)

	if deps.UploadService != nil {
		upload.RegisterRoutes(api, deps.UploadService, log)
	}
	if deps.GalleryService != nil {
		gallery.RegisterRoutes(api, deps.GalleryService, log)
	}

	return router, nil
}
