package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	activitydomain "github.com/smallbiznis/tiffinbill/internal/activitylog/domain"
	billingdomain "github.com/smallbiznis/tiffinbill/internal/billing/domain"
	"github.com/smallbiznis/tiffinbill/internal/config"
	"github.com/smallbiznis/tiffinbill/internal/ratelimit"
	settingsdomain "github.com/smallbiznis/tiffinbill/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

type EngineParams struct {
	fx.In

	Log      *zap.Logger
	Registry *prometheus.Registry
}

func NewEngine(p EngineParams) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogging(p.Log.Named("http")))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{})))

	return r
}

func registerGin(p EngineParams) *gin.Engine {
	return NewEngine(p)
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	settingsSvc settingsdomain.Service
	billingSvc  billingdomain.Service
	activitySvc activitydomain.Service
	limiter     *ratelimit.SendLimiter
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	SettingsSvc settingsdomain.Service
	BillingSvc  billingdomain.Service
	ActivitySvc activitydomain.Service
	Limiter     *ratelimit.SendLimiter
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("server"),
		settingsSvc: p.SettingsSvc,
		billingSvc:  p.BillingSvc,
		activitySvc: p.ActivitySvc,
		limiter:     p.Limiter,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api", s.APIKeyRequired())

	api.GET("/settings", s.getSettings)
	api.PUT("/settings", s.putSettings)

	billing := api.Group("/billing")
	billing.POST("/send", s.SendRateLimit(), s.sendBatch)
	billing.POST("/send-single", s.SendRateLimit(), s.sendSingle)
	billing.POST("/clear-statuses", s.clearStatuses)
	billing.POST("/payment-edit", s.paymentEdit)
	billing.GET("/verify-credentials", s.verifyCredentials)

	api.GET("/activity", s.recentActivity)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
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

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}
