package api

import (
	"github.com/gin-gonic/gin"

	"github.com/taskspool/taskspool/internal/api/handlers"
	"github.com/taskspool/taskspool/internal/api/middleware"
	"github.com/taskspool/taskspool/internal/core"
)

// NewRouter wires the producer surface. auth may be nil, which leaves the
// API open for a trusted single-producer deployment.
func NewRouter(queue *core.Queue, auth *middleware.AuthMiddleware) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	jobs := handlers.NewJobHandler(queue)

	router.GET("/health", jobs.Health)

	if auth != nil {
		authGroup := router.Group("/api/auth")
		{
			authGroup.POST("/setup", auth.Setup)
			authGroup.POST("/login", auth.Login)
			authGroup.POST("/logout", auth.Logout)
			authGroup.GET("/status", auth.Status)
		}
	}

	apiGroup := router.Group("/api")
	if auth != nil {
		apiGroup.Use(auth.RequireAuth())
	}
	{
		apiGroup.POST("/jobs", jobs.CreateJob)
		apiGroup.POST("/jobs/batch", jobs.CreateJobBatch)
		apiGroup.GET("/jobs", jobs.ListJobs)
		apiGroup.GET("/jobs/:id", jobs.GetJob)
		apiGroup.GET("/queue/stats", jobs.GetStats)
	}

	return router
}
