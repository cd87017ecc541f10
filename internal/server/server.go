package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/songsmith/songsmith/internal/config"
	creditdomain "github.com/songsmith/songsmith/internal/credit/domain"
	"github.com/songsmith/songsmith/internal/gate"
	mergedomain "github.com/songsmith/songsmith/internal/merge/domain"
	songdomain "github.com/songsmith/songsmith/internal/song/domain"
	usagedomain "github.com/songsmith/songsmith/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine    *gin.Engine
	cfg       config.Config
	log       *zap.Logger
	gateSvc   *gate.Service
	mergeSvc  mergedomain.Service
	usageSvc  usagedomain.Service
	creditSvc creditdomain.Service
	songSvc   songdomain.Service
}

type Params struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	Log       *zap.Logger
	GateSvc   *gate.Service
	MergeSvc  mergedomain.Service
	UsageSvc  usagedomain.Service
	CreditSvc creditdomain.Service
	SongSvc   songdomain.Service
}

func NewServer(p Params) *Server {
	s := &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		log:       p.Log.Named("server"),
		gateSvc:   p.GateSvc,
		mergeSvc:  p.MergeSvc,
		usageSvc:  p.UsageSvc,
		creditSvc: p.CreditSvc,
		songSvc:   p.SongSvc,
	}

	s.registerAPIRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.CallerIdentity())

	// -------- Creations --------
	api.GET("/creations/status", s.GetCreationStatus)
	api.POST("/creations/authorize", s.AuthorizeCreation)

	// -------- Identity --------
	api.POST("/identity/migrate", s.MigrateIdentity)

	// -------- Payments --------
	api.POST("/payments/webhooks/:provider", s.HandlePaymentWebhook)

	// -------- Generations --------
	api.POST("/generations/complete", s.CompleteGeneration)

	// -------- Songs --------
	api.GET("/songs", s.ListSongs)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)
