package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/urmzd/homai-scheduler/pkg/api/handlers"
	"github.com/urmzd/homai-scheduler/pkg/schedule"
	"github.com/urmzd/homai-scheduler/pkg/schedule/schema"
)

// Router holds the Gin engine and dependencies
type Router struct {
	engine    *gin.Engine
	svc       *schedule.Service
	validator *schema.Validator

	mu     sync.Mutex
	server *http.Server
}

// NewRouter creates a new API router
func NewRouter(svc *schedule.Service, validator *schema.Validator) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	SetupMiddleware(engine)

	router := &Router{
		engine:    engine,
		svc:       svc,
		validator: validator,
	}

	router.setupRoutes()

	return router
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	healthHandler := handlers.NewHealthHandler(r.svc)
	r.engine.GET("/health", healthHandler.Health)

	api := r.engine.Group("/api", RequireRuntime(r.svc.Ready))
	{
		schedulesHandler := handlers.NewSchedulesHandler(r.svc, r.validator)
		schedules := api.Group("/schedules")
		{
			schedules.GET("", schedulesHandler.ListSchedules)
			schedules.POST("", schedulesHandler.CreateSchedule)
			schedules.POST("/reconcile", schedulesHandler.Reconcile)
			schedules.GET("/:tagId", schedulesHandler.GetSchedule)
			schedules.PUT("/:tagId", schedulesHandler.UpdateSchedule)
			schedules.DELETE("/:tagId", schedulesHandler.DeleteSchedule)
		}
	}
}

// Handler exposes the engine for tests and embedding.
func (r *Router) Handler() http.Handler {
	return r.engine
}

// Run serves HTTP on addr until Shutdown is called.
func (r *Router) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	r.mu.Lock()
	r.server = srv
	r.mu.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (r *Router) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	srv := r.server
	r.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
