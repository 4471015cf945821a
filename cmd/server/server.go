package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/advisor"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/database"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/errors"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/middleware"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/monitoring"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/prediction"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/ratelimit"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/recommend"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/security"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/types"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ZanzyTHEbar/luwero-crop-advisor/docs"
)

// Version is reported by /health.
const Version = "1.0.0"

const (
	msgRunning        = "Luwero Crop Prediction API is running"
	msgCropNotFound   = "Crop not found in recommendations."
	msgCropRequired   = "Query parameter 'crop' is required."
	msgTooManyChats   = "Too many requests. Please wait a few seconds."
	msgHistoryOff     = "Prediction history is disabled on this server."
	msgHistoryMissing = "History entry not found."
	msgHistoryDeleted = "History entry deleted."
)

const chatRequestKey = "chat_request"

// Server holds the request handlers and their dependencies.
type Server struct {
	modelPath   string
	pipeline    *prediction.Pipeline
	recommender *recommend.Service
	advisor     *advisor.Service
	history     *database.HistoryService
	db          *database.DB
	limiter     *ratelimit.RateLimiter
	redis       *ratelimit.RedisClient
	metrics     *monitoring.Metrics
	logger      *monitoring.Logger
	security    *security.SecurityMiddleware
	compression *middleware.CompressionMiddleware
	chatLimit   ratelimit.Limit
	origins     []string
}

// Deps are the collaborators main builds for the server. History, DB and
// Redis may be nil.
type Deps struct {
	ModelPath      string
	Pipeline       *prediction.Pipeline
	Advisor        *advisor.Service
	History        *database.HistoryService
	DB             *database.DB
	Limiter        *ratelimit.RateLimiter
	Redis          *ratelimit.RedisClient
	Metrics        *monitoring.Metrics
	Logger         *monitoring.Logger
	Security       security.SecurityConfig
	ChatLimit      ratelimit.Limit
	AllowedOrigins []string
}

// NewServer builds the handlers around deps.
func NewServer(deps Deps) *Server {
	return &Server{
		modelPath:   deps.ModelPath,
		pipeline:    deps.Pipeline,
		recommender: recommend.NewService(deps.Pipeline, nil),
		advisor:     deps.Advisor,
		history:     deps.History,
		db:          deps.DB,
		limiter:     deps.Limiter,
		redis:       deps.Redis,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		security:    security.NewSecurityMiddleware(deps.Security),
		compression: middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig()),
		chatLimit:   deps.ChatLimit,
		origins:     deps.AllowedOrigins,
	}
}

// Router wires middlewares and routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	if err := s.security.ApplyTrustedProxies(r); err != nil {
		s.logger.Warn("Ignoring trusted proxies", "error", err)
	}

	r.Use(errors.RecoveryHandler())
	r.Use(security.RequestID())
	r.Use(monitoring.MonitoringMiddleware(s.metrics, s.logger))
	r.Use(monitoring.SecurityMonitoringMiddleware(s.logger))
	r.Use(errors.ErrorHandler())
	r.Use(cors.New(s.corsConfig()))
	r.Use(s.compression.Handler())
	r.Use(s.security.SecurityHeaders)
	r.Use(s.security.RequestTimeout)
	r.Use(s.security.LimitBody)
	r.Use(s.security.ValidateContentType)

	r.GET("/", s.root)
	r.GET("/health", s.health)
	r.GET("/stats", s.stats)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.POST("/predict", s.predict)
	r.POST("/predict/search", s.search)

	// Empty messages are rejected before they count against the limit.
	r.POST("/chat",
		s.bindChat,
		s.limiter.Middleware(s.chatLimit, ratelimit.ClientIP, msgTooManyChats),
		s.chat,
	)

	r.GET("/history", s.listHistory)
	r.DELETE("/history/:id", s.deleteHistory)

	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", security.ClientIDHeader, security.RequestIDHeader},
		ExposeHeaders: []string{security.RequestIDHeader, "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:        12 * time.Hour,
	}

	if len(s.origins) == 0 || (len(s.origins) == 1 && s.origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.origins
		cfg.AllowCredentials = true
	}
	return cfg
}

// root godoc
// @Summary Liveness message
// @Tags system
// @Produce json
// @Success 200 {object} types.MessageResponse
// @Router / [get]
func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, types.MessageResponse{Message: msgRunning})
}

// health godoc
// @Summary Service health
// @Tags system
// @Produce json
// @Success 200 {object} types.HealthResponse
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	services := map[string]string{
		"redis":   "disabled",
		"history": "disabled",
		"advisor": "unconfigured",
	}

	if s.redis != nil && s.redis.IsEnabled() {
		services["redis"] = "ok"
		if err := s.redis.HealthCheck(ctx); err != nil {
			services["redis"] = "unhealthy"
		}
	}
	if s.db != nil {
		services["history"] = "ok"
		if err := s.db.HealthCheck(ctx); err != nil {
			services["history"] = "unhealthy"
		}
	}
	if s.advisor != nil && s.advisor.Configured() {
		services["advisor"] = s.advisor.BreakerState().String()
	}

	c.JSON(http.StatusOK, types.HealthResponse{
		Status:    "ok",
		Version:   Version,
		Timestamp: time.Now().UTC(),
		Model: types.ModelHealth{
			Path:    s.modelPath,
			Classes: s.pipeline.Classes(),
		},
		Services: services,
	})
}

func (s *Server) stats(c *gin.Context) {
	stats := s.metrics.GetStats()
	stats["rate_limiter"] = s.limiter.GetStats()
	stats["compression"] = s.compression.GetStats()
	stats["advisor"] = s.advisor.Info()
	if s.db != nil {
		stats["database_pool"] = s.db.GetPoolStats()
	}
	c.JSON(http.StatusOK, stats)
}

func bindPredict(c *gin.Context) (prediction.Input, bool) {
	var req types.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.Respond(c, errors.NewValidationError(
			"Request body must include season, soil_type, temperature and rainfall", err.Error()))
		return prediction.Input{}, false
	}
	return req.Input(), true
}

// predict godoc
// @Summary Top three crop recommendations
// @Tags prediction
// @Accept json
// @Produce json
// @Param request body types.PredictRequest true "Plot conditions"
// @Success 200 {object} types.PredictResponse
// @Failure 400 {object} errors.AppError
// @Router /predict [post]
func (s *Server) predict(c *gin.Context) {
	in, ok := bindPredict(c)
	if !ok {
		return
	}

	start := time.Now()
	recs := s.recommender.TopK(in, recommend.DefaultTopK)
	elapsed := time.Since(start)

	top, confidence := "", 0.0
	if len(recs) > 0 {
		top, confidence = recs[0].Crop, recs[0].Confidence
	}
	s.metrics.RecordPrediction(top)
	s.logger.PredictionLogger(in.Season, in.SoilType, in.Temperature, in.Rainfall, top, confidence, elapsed)

	if s.history != nil {
		s.history.Record(security.ClientID(c), in, recs)
	}

	c.JSON(http.StatusOK, types.PredictResponse{Recommendations: recs, Inputs: in})
}

// search godoc
// @Summary Confidence for one named crop
// @Tags prediction
// @Accept json
// @Produce json
// @Param request body types.PredictRequest true "Plot conditions"
// @Param crop query string true "Crop name or fragment"
// @Success 200 {object} types.SearchResponse
// @Failure 404 {object} errors.AppError
// @Router /predict/search [post]
func (s *Server) search(c *gin.Context) {
	query, present := c.GetQuery("crop")
	if !present {
		errors.Respond(c, errors.NewValidationError(msgCropRequired))
		return
	}

	in, ok := bindPredict(c)
	if !ok {
		return
	}

	start := time.Now()
	result, found := s.recommender.Find(in, query)
	s.metrics.RecordLookup(found)
	s.logger.LookupLogger(query, result.Crop, found, time.Since(start))

	if !found {
		errors.Respond(c, errors.NewNotFoundError(msgCropNotFound))
		return
	}

	c.JSON(http.StatusOK, types.SearchResponse{Result: result, Query: query, Inputs: in})
}

func (s *Server) bindChat(c *gin.Context) {
	var req types.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.Respond(c, errors.NewValidationError("Request body must be a JSON object with a message", err.Error()))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.metrics.RecordChat(advisor.OutcomeRejected)
		errors.Respond(c, errors.NewValidationError(advisor.MsgMessageRequired))
		return
	}

	c.Set(chatRequestKey, req)
	c.Next()
}

// chat godoc
// @Summary Ask the farming advisor
// @Tags advisor
// @Accept json
// @Produce json
// @Param request body types.ChatRequest true "Question"
// @Success 200 {object} types.ChatResponse
// @Failure 400 {object} errors.AppError
// @Failure 429 {object} errors.AppError
// @Router /chat [post]
func (s *Server) chat(c *gin.Context) {
	req := c.MustGet(chatRequestKey).(types.ChatRequest)

	answer, err := s.advisor.Ask(c.Request.Context(), c.ClientIP(), req.Message)
	if err != nil {
		errors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ChatResponse{Answer: answer.Text})
}

// listHistory godoc
// @Summary Saved predictions for the caller
// @Tags history
// @Produce json
// @Param limit query int false "Page size (1-100, default 50)"
// @Success 200 {object} types.HistoryResponse
// @Router /history [get]
func (s *Server) listHistory(c *gin.Context) {
	if s.history == nil {
		errors.Respond(c, errors.NewServiceUnavailableError(msgHistoryOff, nil))
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			errors.Respond(c, errors.NewValidationError("limit must be an integer", raw))
			return
		}
		limit = n
	}

	entries, err := s.history.Repository().ListHistory(c.Request.Context(), security.ClientID(c), limit)
	if err != nil {
		errors.Respond(c, errors.NewInternalError("failed to list history", err))
		return
	}

	c.JSON(http.StatusOK, types.HistoryResponse{Entries: entries, Count: len(entries)})
}

// deleteHistory godoc
// @Summary Delete one saved prediction
// @Tags history
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} types.MessageResponse
// @Failure 404 {object} errors.AppError
// @Router /history/{id} [delete]
func (s *Server) deleteHistory(c *gin.Context) {
	if s.history == nil {
		errors.Respond(c, errors.NewServiceUnavailableError(msgHistoryOff, nil))
		return
	}

	err := s.history.Repository().DeleteHistory(c.Request.Context(), security.ClientID(c), c.Param("id"))
	if stderrors.Is(err, database.ErrNotFound) {
		errors.Respond(c, errors.NewNotFoundError(msgHistoryMissing))
		return
	}
	if err != nil {
		errors.Respond(c, errors.NewInternalError("failed to delete history", err))
		return
	}

	c.JSON(http.StatusOK, types.MessageResponse{Message: msgHistoryDeleted})
}
