package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mykana/wellness/internal/auth"
	"github.com/mykana/wellness/internal/middleware"
)

type RouterConfig struct {
	AllowedOrigins    []string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int
}

type Router struct {
	handler        *Handler
	authMiddleware *auth.Middleware
	httpMetrics    *middleware.HTTPMetrics
	gatherer       prometheus.Gatherer
	config         RouterConfig
}

func NewRouter(handler *Handler, httpMetrics *middleware.HTTPMetrics, gatherer prometheus.Gatherer, config RouterConfig) *Router {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Router{
		handler:        handler,
		authMiddleware: auth.NewMiddleware(handler.Auth),
		httpMetrics:    httpMetrics,
		gatherer:       gatherer,
		config:         config,
	}
}

func (r *Router) SetupRouter(logger *zap.Logger) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.RequestIDMiddleware(),
		middleware.SecurityHeadersMiddleware(),
		middleware.RecoveryMiddleware(logger),
		middleware.LoggerMiddleware(logger),
		middleware.CORS(r.config.AllowedOrigins),
	)
	if r.httpMetrics != nil {
		router.Use(r.httpMetrics.Handler())
	}
	if r.config.RequestsPerSecond > 0 {
		router.Use(middleware.RateLimitMiddleware(rate.Limit(r.config.RequestsPerSecond), r.config.Burst))
	}
	if r.config.RequestTimeout > 0 {
		router.Use(middleware.TimeoutMiddleware(r.config.RequestTimeout))
	}

	router.GET("/health", r.handler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", r.handler.Register)
			authRoutes.POST("/login", r.handler.Login)
			authRoutes.PUT("/password", r.authMiddleware.RequirePatient(), r.handler.ChangePassword)
		}

		api.GET("/questionnaire/options", r.handler.QuestionnaireOptions)

		protected := api.Group("")
		protected.Use(r.authMiddleware.RequirePatient())
		{
			profile := protected.Group("/profile")
			{
				profile.POST("", r.handler.CompleteProfile)
				profile.GET("", r.handler.GetProfile)
				profile.DELETE("", r.handler.ClearProfile)
				profile.GET("/greeting", r.handler.Greeting)
				profile.GET("/priorities", r.handler.DashboardPriorities)
				profile.GET("/notification-times", r.handler.NotificationTimes)
			}

			medications := protected.Group("/medications")
			{
				medications.GET("", r.handler.ListMedications)
				medications.POST("", r.handler.CreateMedication)
				medications.GET("/due", r.handler.DueMedications)
				medications.GET("/:id", r.handler.GetMedication)
				medications.PUT("/:id", r.handler.UpdateMedication)
				medications.DELETE("/:id", r.handler.DeleteMedication)
			}

			checkins := protected.Group("/checkins")
			{
				checkins.GET("", r.handler.ListCheckIns)
				checkins.POST("", r.handler.RecordCheckIn)
			}

			doses := protected.Group("/doses")
			{
				doses.GET("", r.handler.ListDoses)
				doses.POST("", r.handler.RecordDose)
				doses.GET("/progress", r.handler.DoseProgress)
			}

			protected.GET("/reports", r.handler.Report)
			protected.GET("/activity", r.handler.Activity)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
