package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/alphacv/matchcore/internal/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OpsServer is the second half of the dual-server shape the teacher's
// cmd/authz-server/main.go uses: health probes and Prometheus scraping
// on a port separate from the matching API, so infra tooling never
// competes with application traffic for C6 admission slots.
type OpsServer struct {
	health *HealthHandler
	http   *http.Server
	logger *zap.Logger
}

func NewOpsServer(addr string, health *HealthHandler, m metrics.Metrics, logger *zap.Logger) *OpsServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNoOpMetrics()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/health/live", health.live)
	engine.GET("/health/ready", health.readiness)
	engine.GET("/metrics", gin.WrapH(m.HTTPHandler()))

	return &OpsServer{
		health: health,
		logger: logger,
		http: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
	}
}

func (o *OpsServer) Start() error {
	o.logger.Info("ops server listening", zap.String("addr", o.http.Addr))
	return o.http.ListenAndServe()
}

func (o *OpsServer) Shutdown(ctx context.Context) error {
	return o.http.Shutdown(ctx)
}
