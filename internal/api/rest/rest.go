package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-vesting/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Read endpoints (public)
		v1.GET("/beneficiaries/:address/releasable", handler.GetReleasable)
		v1.GET("/beneficiaries/:address/schedules", handler.ListSchedules)

		// Deposit endpoints (requires authentication)
		v1.POST("/deposits", middleware.Auth(authCfg), handler.CreateDeposit)
		v1.POST("/deposits/batch", middleware.Auth(authCfg), handler.CreateDeposits)

		// Release endpoints (requires authentication)
		v1.POST("/releases", middleware.Auth(authCfg), handler.CreateRelease)
		v1.POST("/releases/batch", middleware.Auth(authCfg), handler.CreateReleases)
	}
}
