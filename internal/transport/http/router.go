package apihttp

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"marketmind/internal/decision"
	"marketmind/internal/portfolio"
	"marketmind/internal/store/signallog"
)

// Router 暴露分析、组合与历史查询接口。
type Router struct {
	Engine    *decision.Engine
	Portfolio *portfolio.Service
	Signals   *signallog.Store
}

// NewRouter 构造 API router。
func NewRouter(engine *decision.Engine, portfolioSvc *portfolio.Service, signals *signallog.Store) *Router {
	return &Router{Engine: engine, Portfolio: portfolioSvc, Signals: signals}
}

// Register 将 API 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/analyze/:symbol", r.handleAnalyze)
	group.POST("/analyze", r.handleAnalyzeBatch)
	group.GET("/agents", r.handleAgents)
	group.GET("/history", r.handleHistory)
	if r.Portfolio != nil {
		group.GET("/portfolio", r.handlePortfolio)
		group.GET("/trades", r.handleTrades)
		group.POST("/trades", r.handleExecuteTrade)
	}
}

func (r *Router) handleAnalyze(c *gin.Context) {
	if r.Engine == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis engine not enabled"})
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	result, err := r.Engine.Analyze(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type analyzeBatchRequest struct {
	Symbols []string `json:"symbols"`
}

func (r *Router) handleAnalyzeBatch(c *gin.Context) {
	if r.Engine == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis engine not enabled"})
		return
	}
	var req analyzeBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols cannot be empty"})
		return
	}
	results, err := r.Engine.AnalyzeAll(c.Request.Context(), req.Symbols)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (r *Router) handleAgents(c *gin.Context) {
	if r.Engine == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis engine not enabled"})
		return
	}
	c.JSON(http.StatusOK, r.Engine.AgentMetrics())
}

func (r *Router) handleHistory(c *gin.Context) {
	if r.Signals == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "signal log not enabled"})
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	limit := parseLimit(c.Query("limit"), 20)
	entries, err := r.Signals.Recent(c.Request.Context(), symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (r *Router) handlePortfolio(c *gin.Context) {
	summary, err := r.Portfolio.Summary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (r *Router) handleTrades(c *gin.Context) {
	limit := parseLimit(c.Query("limit"), 50)
	trades, err := r.Portfolio.TradeHistory(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (r *Router) handleExecuteTrade(c *gin.Context) {
	var req portfolio.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := r.Portfolio.ExecuteTrade(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func parseLimit(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
