package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/framewire/internal/logging"
	"github.com/danmuck/framewire/internal/observability"
	"github.com/danmuck/framewire/internal/protocol/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const version = "0.1.0"

// StreamLister reports the streams a receiver is currently serving.
type StreamLister interface {
	Snapshot() []session.StreamState
	Len() int
}

// Admin is the HTTP side channel of a receiver node: health, readiness,
// Prometheus metrics and a view of open streams.
type Admin struct {
	ID       string
	Appeared time.Time

	streams StreamLister
	router  *gin.Engine
}

func New(id string, streams StreamLister, corsOrigins []string) *Admin {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logging.For("server.admin")))
	r.Use(observability.RequestMetricsMiddleware(id))
	if origins := normalizeOrigins(corsOrigins); len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: origins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	a := &Admin{
		ID:       id,
		Appeared: time.Now(),
		streams:  streams,
		router:   r,
	}
	a.registerRoutes()
	return a
}

func (a *Admin) HTTPRouter() *gin.Engine {
	return a.router
}

// Serve runs the admin API on ln until ctx is cancelled.
func (a *Admin) Serve(ctx context.Context, ln net.Listener) error {
	logger := logging.For("server.admin")
	srv := &http.Server{Handler: a.router, ReadHeaderTimeout: 5 * time.Second}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	defer stop()

	logger.Info().Str("addr", ln.Addr().String()).Msg("admin listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
