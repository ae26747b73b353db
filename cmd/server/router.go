package main

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/goodiebox/boxsense/docs"
	"github.com/goodiebox/boxsense/internal/adapters"
	"github.com/goodiebox/boxsense/internal/cache"
	"github.com/goodiebox/boxsense/internal/config"
	"github.com/goodiebox/boxsense/internal/errors"
	"github.com/goodiebox/boxsense/internal/insight"
	"github.com/goodiebox/boxsense/internal/monitoring"
	"github.com/goodiebox/boxsense/internal/resilience"
	"github.com/goodiebox/boxsense/internal/security"
	"github.com/goodiebox/boxsense/internal/types"
)

// server bundles the request-scoped dependencies behind the HTTP handlers
type server struct {
	cfg       *config.Config
	adapter   *adapters.XAIAdapter
	estimator *insight.Estimator
	analyst   *insight.Analyst
	metrics   *monitoring.Metrics
	logger    *monitoring.Logger
	health    *resilience.HealthTracker
	cache     *cache.Cache
}

func newServer(cfg *config.Config) *server {
	metrics := monitoring.NewMetrics()
	logger := monitoring.NewLogger()
	health := resilience.NewHealthTracker()

	adapter := adapters.NewXAIAdapter(adapters.XAIConfig{
		APIKey:  cfg.XAI.APIKey,
		APIURL:  cfg.XAI.APIURL,
		Model:   cfg.XAI.Model,
		Timeout: cfg.XAI.Timeout,
	}, health, metrics, logger)

	return &server{
		cfg:       cfg,
		adapter:   adapter,
		estimator: insight.NewEstimator(adapter, logger),
		analyst:   insight.NewAnalyst(adapter),
		metrics:   metrics,
		logger:    logger,
		health:    health,
		cache:     cache.NewCache(cfg.Server.CacheTTL),
	}
}

// setupRouter wires middleware and routes onto a fresh engine
func (s *server) setupRouter() *gin.Engine {
	r := gin.New()

	r.Use(cors.Default())
	r.Use(monitoring.MonitoringMiddleware(s.metrics, s.logger))
	r.Use(errors.RecoveryHandler())

	securityConfig := security.DefaultSecurityConfig()
	securityConfig.MaxRequestsPerMin = s.cfg.Server.RateLimitPerMin
	securityConfig.RequestTimeout = s.cfg.Server.RequestTimeout
	securityMiddleware := security.NewSecurityMiddleware(securityConfig)

	r.Use(securityMiddleware.SecurityHeaders)
	r.Use(securityMiddleware.RequestTimeout)
	r.Use(securityMiddleware.ValidateContentType)
	r.Use(securityMiddleware.RateLimitByIP)

	r.Use(s.cache.Middleware(s.metrics, "/predict_box_score", "/analyze_bi"))

	r.GET("/health", s.handleHealth)
	r.GET("/health/upstream", s.handleUpstreamHealth)
	r.GET("/metrics", s.handleMetrics)
	r.GET("/cache/stats", s.handleCacheStats)
	r.POST("/predict_box_score", s.handlePredictBoxScore)
	r.POST("/analyze_bi", s.handleAnalyzeBI)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// handleHealth reports liveness. It never depends on the upstream credential
// or reachability.
//
//	@Summary	Health check
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Router		/health [get]
func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{Status: "healthy"})
}

// handleUpstreamHealth exposes upstream call statistics for operators
func (s *server) handleUpstreamHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"services": s.health.Snapshot(),
		"pool":     s.adapter.GetPoolStats(),
	})
}

func (s *server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.GetStats())
}

func (s *server) handleCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.cache.Stats())
}

// handlePredictBoxScore simulates a 1-5 satisfaction score for a future box
//
//	@Summary	Predict the satisfaction score of a future box
//	@Accept		json
//	@Produce	json
//	@Param		request	body		types.PredictBoxScoreRequest	true	"Historical data and future box info"
//	@Success	200		{object}	types.PredictBoxScoreResponse
//	@Failure	400		{object}	types.ErrorResponse
//	@Failure	500		{object}	types.ErrorResponse
//	@Router		/predict_box_score [post]
func (s *server) handlePredictBoxScore(c *gin.Context) {
	var req types.PredictBoxScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.FutureBoxInfo) == "" {
		appErr := errors.NewValidationError("Missing future box info")
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	historicalData := req.HistoricalData
	if historicalData == "" {
		historicalData = insight.DefaultHistoricalData
	}

	score, err := s.estimator.EstimateBoxScore(c.Request.Context(), historicalData, req.FutureBoxInfo)
	if err != nil {
		appErr := errors.ToAppError(err)
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	c.JSON(http.StatusOK, types.PredictBoxScoreResponse{PredictedBoxScore: score})
}

// handleAnalyzeBI answers a BI query over the supplied data context
//
//	@Summary	Analyze BI data
//	@Accept		json
//	@Produce	json
//	@Param		request	body		types.AnalyzeBIRequest	true	"Data context and query"
//	@Success	200		{object}	types.AnalyzeBIResponse
//	@Failure	400		{object}	types.ErrorResponse
//	@Failure	500		{object}	types.ErrorResponse
//	@Router		/analyze_bi [post]
func (s *server) handleAnalyzeBI(c *gin.Context) {
	var req types.AnalyzeBIRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		appErr := errors.NewValidationError("Missing query")
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	dataContext := req.DataContext
	if dataContext == "" {
		dataContext = insight.DefaultDataContext
	}

	analysis, err := s.analyst.AnalyzeBI(c.Request.Context(), dataContext, req.Query)
	if err != nil {
		appErr := errors.ToAppError(err)
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	c.JSON(http.StatusOK, types.AnalyzeBIResponse{Analysis: analysis})
}
