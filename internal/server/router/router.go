package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/agrimarket/internal/metrics"
	"github.com/mamadbah2/agrimarket/internal/server/handlers"
	"github.com/mamadbah2/agrimarket/internal/server/middleware"
)

// Options configure the engine built by New.
type Options struct {
	GinMode        string
	AllowedOrigins []string
	JWTSecret      string
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Logger         *zap.Logger
}

// New wires the Gin engine with required routes and middlewares.
func New(handler *handlers.MarketplaceHandler, opts Options) *gin.Engine {
	if opts.GinMode != "" {
		gin.SetMode(opts.GinMode)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(opts.Logger))
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	r.Use(opts.Metrics.Middleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api/marketplace", middleware.Auth(opts.JWTSecret))
	{
		api.GET("/buyers", handler.MatchBuyers)
		api.GET("/buyers/:id", handler.GetBuyer)
		api.POST("/buyers", middleware.RequireAdmin(), handler.AddBuyer)
		api.POST("/buyers/seed", middleware.RequireAdmin(), handler.SeedBuyers)

		api.GET("/transactions", handler.ListTransactions)
		api.POST("/transactions", handler.CreateTransaction)
		api.GET("/transactions/:id", handler.GetTransaction)
		api.PATCH("/transactions/:id", handler.UpdateTransaction)
		api.DELETE("/transactions/:id", handler.CancelTransaction)
	}

	if opts.Logger != nil {
		opts.Logger.Info("router initialized")
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
		return cfg
	}

	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
