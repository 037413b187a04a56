package router

import (
	"github.com/gin-gonic/gin"

	"formos/internal/handler"
	"formos/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	allowedOrigins []string,
	schemaH *handler.SchemaHandler,
	jobH *handler.JobHandler,
	fileH *handler.FileHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Schema routes
	schemas := v1.Group("/schemas")
	schemas.POST("", schemaH.Create)
	schemas.GET("", schemaH.List)
	schemas.GET("/:id", schemaH.GetByID)
	schemas.GET("/:id/plan", schemaH.Plan)
	schemas.GET("/:id/jobs", jobH.ListBySchema)
	schemas.PUT("/:id/fields/:fieldId", schemaH.UpdateField)
	schemas.DELETE("/:id/fields/:fieldId", schemaH.RemoveField)
	schemas.DELETE("/:id", schemaH.Delete)

	// Job routes
	jobs := v1.Group("/jobs")
	jobs.POST("", jobH.Create)
	jobs.GET("/:id", jobH.GetByID)
	jobs.GET("/:id/results", jobH.GetResults)
	jobs.POST("/:id/retry", jobH.Retry)
	jobs.POST("/:id/fields/:fieldId/verify", jobH.VerifyField)
	jobs.DELETE("/:id", jobH.Delete)

	// File routes
	files := v1.Group("/files")
	files.POST("/upload", fileH.Upload)
	files.GET("/:id", fileH.GetByID)
	files.DELETE("/:id", fileH.Delete)

	return r
}
