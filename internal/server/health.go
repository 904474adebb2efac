package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 5 * time.Second

type readinessCheck struct {
	component string
	check     func(ctx context.Context) error
}

func registerHealthRoutes(router *gin.Engine, deps Dependencies) {
	checks := readinessChecks(deps)

	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		for _, rc := range checks {
			if err := rc.check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":    "degraded",
					"component": rc.component,
					"error":     err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func readinessChecks(deps Dependencies) []readinessCheck {
	var checks []readinessCheck
	if deps.DB != nil {
		checks = append(checks, readinessCheck{"postgres", deps.DB.Ping})
	}
	if deps.ObjectStore != nil {
		bucket := deps.Config.MinIO.Bucket
		checks = append(checks, readinessCheck{"minio", func(ctx context.Context) error {
			_, err := deps.ObjectStore.BucketExists(ctx, bucket)
			return err
		}})
	}
	if deps.Redis != nil {
		checks = append(checks, readinessCheck{"redis", func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		}})
	}
	if deps.GalleryService != nil {
		checks = append(checks, readinessCheck{"gallery", func(ctx context.Context) error {
			_, err := deps.GalleryService.List(ctx)
			return err
		}})
	}
	return checks
}
