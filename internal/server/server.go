package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/exporta/internal/calculation"
	calculationdomain "github.com/smallbiznis/exporta/internal/calculation/domain"
	"github.com/smallbiznis/exporta/internal/clock"
	"github.com/smallbiznis/exporta/internal/config"
	"github.com/smallbiznis/exporta/internal/dashboard"
	dashboarddomain "github.com/smallbiznis/exporta/internal/dashboard/domain"
	"github.com/smallbiznis/exporta/internal/observability"
	obsmiddleware "github.com/smallbiznis/exporta/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/exporta/internal/observability/metrics"
	obstracing "github.com/smallbiznis/exporta/internal/observability/tracing"
	"github.com/smallbiznis/exporta/internal/providers"
	"github.com/smallbiznis/exporta/internal/providers/pdf"
	"github.com/smallbiznis/exporta/internal/ratelimit"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	calculation.Module,
	dashboard.Module,
	providers.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
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

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	genID          *snowflake.Node
	clock          clock.Clock
	calculationSvc calculationdomain.Service
	dashboardSvc   dashboarddomain.Service
	pdfProvider    pdf.Provider
	previewLimiter *ratelimit.PreviewLimiter
	obsMetrics     *obsmetrics.Metrics

	resolveDefaultOwner sync.Once
	defaultOwnerID      int64
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	GenID          *snowflake.Node
	Clock          clock.Clock
	CalculationSvc calculationdomain.Service
	DashboardSvc   dashboarddomain.Service
	PDFProvider    pdf.Provider
	PreviewLimiter *ratelimit.PreviewLimiter `optional:"true"`
	ObsMetrics     *obsmetrics.Metrics       `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		genID:          p.GenID,
		clock:          p.Clock,
		calculationSvc: p.CalculationSvc,
		dashboardSvc:   p.DashboardSvc,
		pdfProvider:    p.PDFProvider,
		previewLimiter: p.PreviewLimiter,
		obsMetrics:     p.ObsMetrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// Preview is stateless and open, everything else resolves an owner.
	api.POST("/calculations/preview", s.PreviewRateLimit(), s.PreviewCalculation)

	api.GET("/calculations", s.OwnerContext(), s.ListCalculations)
	api.POST("/calculations", s.OwnerContext(), s.CreateCalculation)
	api.GET("/calculations/export.csv", s.OwnerContext(), s.ExportCalculationsCSV)
	api.GET("/calculations/:id", s.OwnerContext(), s.GetCalculationByID)
	api.PUT("/calculations/:id", s.OwnerContext(), s.UpdateCalculation)
	api.DELETE("/calculations/:id", s.OwnerContext(), s.DeleteCalculation)

	api.GET("/calculations/:id/pdf", s.OwnerContext(), s.ExportCalculationPDF)

	api.GET("/dashboard", s.OwnerContext(), s.GetDashboardSummary)
}
