package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/specbridge/specbridge-backend/internal/handlers"
)

type RouterConfig struct {
	ServiceName        string
	DocumentHandler    *handlers.DocumentHandler
	DuplicateHandler   *handlers.DuplicateHandler
	RequirementHandler *handlers.RequirementHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "specbridge"
	}
	router.Use(otelgin.Middleware(serviceName))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	project := api.Group("/tenants/:tenant/projects/:project")
	{
		// Documents
		project.PUT("/documents/:slug", cfg.DocumentHandler.Save)
		project.GET("/documents/:slug", cfg.DocumentHandler.Get)
		project.POST("/documents/:slug/validate", cfg.DocumentHandler.Validate)
		// Duplicate refs
		project.GET("/duplicate-refs", cfg.DuplicateHandler.Find)
		project.POST("/duplicate-refs/fix", cfg.DuplicateHandler.Fix)
		// Direct entity creation
		project.POST("/requirements", cfg.RequirementHandler.CreateRequirement)
		project.POST("/infos", cfg.RequirementHandler.CreateInfo)
	}

	return router
}
