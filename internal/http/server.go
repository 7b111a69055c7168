// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

// Package http serves the control plane's REST surface, the websocket
// signaling upgrade, and the embedded frontend bundle.
package http

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	ratelimitmw "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/cynayd/connect-core/internal/config"
	kvratelimit "github.com/cynayd/connect-core/internal/http/ratelimit"
	"github.com/cynayd/connect-core/internal/kv"
	"github.com/cynayd/connect-core/internal/pubsub"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ErrReadDir is returned by getAllFilenames when the embedded frontend
// directory can't be walked.
var ErrReadDir = errors.New("error reading directory")

// ErrClosed is returned by Start once the server has shut down cleanly.
var ErrClosed = errors.New("server closed")

// Context keys under which CreateRouter stashes its collaborators, for
// handlers mounted later (signaling, room REST routes) to retrieve via
// gin.Context.MustGet.
const (
	ContextKeyDatabase = "connect-core.database"
	ContextKeyKV       = "connect-core.kv"
	ContextKeyPubSub   = "connect-core.pubsub"
)

const (
	defReadTimeout  = 10 * time.Second
	defWriteTimeout = 60 * time.Second
)

// FS is the embedded frontend bundle served for everything under /.
//
//go:embed frontend/dist/*
var FS embed.FS

// Server wraps an *http.Server with the graceful-shutdown handshake used by
// the rest of the control plane's supervised goroutines.
type Server struct {
	*http.Server
	shutdownChannel chan bool
}

// MakeServer builds the HTTP listener around a router produced by
// CreateRouter. Any mount functions are called with the assembled engine
// before the listener is constructed, letting callers (signaling, health)
// register routes without this package importing them.
func MakeServer(cfg *config.Config, kvClient kv.KV, database *gorm.DB, ps pubsub.PubSub, ready *atomic.Bool, version, commit string, mount ...func(*gin.Engine)) Server {
	if cfg.LogLevel == config.LogLevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := CreateRouter(cfg, kvClient, database, ps, ready, version, commit)
	for _, m := range mount {
		m(r)
	}

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Bind, cfg.HTTP.Port)
	slog.Info("HTTP server listening", "address", addr)

	s := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  defReadTimeout,
		WriteTimeout: defWriteTimeout,
	}
	s.SetKeepAlivesEnabled(false)

	return Server{s, make(chan bool)}
}

// CreateRouter assembles the gin engine: ambient middleware (logging,
// recovery, tracing, CORS, sessions, rate limiting), the REST surface that
// doesn't yet warrant its own package, and the frontend catch-all. database,
// kvClient and ps are stashed on the gin context for handlers mounted by
// other packages (signaling, recording) rather than consumed directly here.
func CreateRouter(cfg *config.Config, kvClient kv.KV, database *gorm.DB, ps pubsub.PubSub, ready *atomic.Bool, version, commit string) *gin.Engine {
	r := gin.New()
	r.Use(gin.LoggerWithWriter(slog.NewLogLogger(slog.Default().Handler(), slog.LevelInfo).Writer()))
	r.Use(gin.Recovery())

	if err := r.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		slog.Error("failed setting trusted proxies", "error", err)
	}

	if cfg.Metrics.OTLPEndpoint != "" {
		r.Use(otelgin.Middleware(cfg.HTTP.ServiceName))
	}

	r.Use(func(c *gin.Context) {
		c.Set(ContextKeyDatabase, database)
		c.Set(ContextKeyKV, kvClient)
		c.Set(ContextKeyPubSub, ps)
		c.Next()
	})

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowCredentials = true
	corsConfig.AllowOrigins = cfg.CORS.Hosts
	r.Use(cors.New(corsConfig))

	sessionStore := cookie.NewStore(cfg.GetDerivedSecret())
	r.Use(sessions.Sessions("sessions", sessionStore))

	if cfg.RateLimit.Enabled && kvClient != nil {
		store := kvratelimit.NewStore(&kvratelimit.Options{
			KV:    kvClient,
			Rate:  time.Second,
			Limit: uint(cfg.RateLimit.RequestsPerSecond),
		})
		r.Use(ratelimitmw.RateLimiter(store, &ratelimitmw.Options{
			ErrorHandler: func(c *gin.Context, info ratelimitmw.Info) {
				c.String(http.StatusTooManyRequests, "too many requests, try again in "+time.Until(info.ResetTime).String())
			},
			KeyFunc: func(c *gin.Context) string {
				return c.ClientIP()
			},
		}))
	}

	registerAPIRoutes(r, cfg, ready, version, commit)
	addFrontendRoutes(r)

	return r
}

func registerAPIRoutes(r *gin.Engine, cfg *config.Config, ready *atomic.Bool, version, commit string) {
	r.GET("/robots.txt", func(c *gin.Context) {
		c.String(http.StatusOK, robotsTXT(cfg))
	})

	v1 := r.Group("/api/v1")
	v1.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, fmt.Sprintf("%d", time.Now().Unix()))
	})
	v1.GET("/version", func(c *gin.Context) {
		c.String(http.StatusOK, fmt.Sprintf("%s-%s", version, commit))
	})
	v1.GET("/network/name", func(c *gin.Context) {
		c.String(http.StatusOK, cfg.HTTP.ServiceName)
	})
	v1.GET("/healthcheck", func(c *gin.Context) {
		if ready.Load() {
			c.JSON(http.StatusOK, gin.H{"status": "healthy"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
	})
}

func robotsTXT(cfg *config.Config) string {
	switch cfg.HTTP.RobotsTXT.Mode {
	case config.RobotsTXTModeDisabled:
		return "User-agent: *\nDisallow: /\n"
	case config.RobotsTXTModeCustom:
		return cfg.HTTP.RobotsTXT.Content
	case config.RobotsTXTModeAllow:
		fallthrough
	default:
		return "User-agent: *\nAllow: /\n"
	}
}

// Stop shuts down the HTTP server, waiting for Start's goroutine to confirm
// the listener has closed.
func (s *Server) Stop() {
	slog.Info("stopping HTTP server")
	const timeout = 5 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down HTTP server", "error", err)
	}
	<-s.shutdownChannel
}

// Start runs the HTTP server until Stop is called or ListenAndServe fails.
func (s *Server) Start() error {
	g := new(errgroup.Group)
	g.Go(func() error {
		err := s.ListenAndServe()
		switch {
		case errors.Is(err, http.ErrServerClosed):
			s.shutdownChannel <- true
			return ErrClosed
		case err != nil:
			return fmt.Errorf("failed to start HTTP server: %w", err)
		default:
			return nil
		}
	})
	return g.Wait() //nolint:wrapcheck
}
