package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/alphacv/matchcore/internal/match"
	"github.com/alphacv/matchcore/internal/queue"
	"github.com/alphacv/matchcore/internal/ratelimit"
	"github.com/alphacv/matchcore/internal/vectorstore"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server is the matching API's HTTP surface: submit_application,
// get_application_status, match, system_metrics, and control, fronted
// by C6 admission control.
type Server struct {
	queue   *queue.Queue
	matcher *match.Engine
	store   *vectorstore.Store
	limiter *ratelimit.Controller
	logger  *zap.Logger
	health  *HealthHandler

	engine *gin.Engine
	http   *http.Server
}

// Config wires the already-constructed components together; Server
// does not own their lifecycles beyond its own HTTP listener.
type Config struct {
	Queue   *queue.Queue
	Matcher *match.Engine
	Store   *vectorstore.Store
	Limiter *ratelimit.Controller
	Health  *HealthHandler
	Logger  *zap.Logger
	Addr    string
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	health := cfg.Health
	if health == nil {
		health = NewHealthHandler()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		queue:   cfg.Queue,
		matcher: cfg.Matcher,
		store:   cfg.Store,
		limiter: cfg.Limiter,
		logger:  logger,
		health:  health,
		engine:  engine,
	}

	s.routes()

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/v1")
	api.Use(AdmissionMiddleware(s.limiter, s.logger))
	{
		api.POST("/applications", s.submitApplication)
		api.GET("/applications/:job_id", s.getApplicationStatus)
		api.POST("/match", s.match)
		api.GET("/admin/metrics", s.systemMetrics)
		api.POST("/admin/control", s.control)
		api.GET("/admin/documents/similar", s.similarDocuments)
	}
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	s.logger.Info("matching api listening", zap.String("addr", s.http.Addr))
	return s.http.ListenAndServe()
}

// Shutdown marks the server not-ready then stops accepting new
// connections, giving in-flight requests up to ctx's deadline to
// finish, mirroring the teacher's mark-not-ready-then-drain staging.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	return s.http.Shutdown(ctx)
}

// SetReady exposes readiness toggling to the owning process, e.g. once
// startup dependencies (store, queue) have been confirmed healthy.
func (s *Server) SetReady(ready bool) { s.health.SetReady(ready) }
