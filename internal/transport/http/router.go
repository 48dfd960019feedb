package leaguehttp

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kaiitheguy/stock-fantasy-api/internal/decision"
	"github.com/kaiitheguy/stock-fantasy-api/internal/league"
	"github.com/kaiitheguy/stock-fantasy-api/internal/registry"
	"github.com/kaiitheguy/stock-fantasy-api/internal/report"
	"github.com/kaiitheguy/stock-fantasy-api/internal/scoring"
	"github.com/kaiitheguy/stock-fantasy-api/internal/store"
	"github.com/kaiitheguy/stock-fantasy-api/internal/store/decisionlog"
)

// Router 暴露联赛相关的查询与操作接口。
type Router struct {
	League    *league.Service
	Registry  *registry.Registry
	Logs      *decisionlog.Store
	Snapshots store.SnapshotStore
}

// Register 将 /api 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/agents", r.handleAgents)
	group.POST("/decisions/run", r.handleRunCycle)
	group.GET("/decisions/logs", r.handleDecisionLogs)
	group.POST("/trades/execute", r.handleExecuteTrade)
	group.GET("/standings", r.handleStandings)
	group.GET("/standings/history", r.handleHistory)
	group.GET("/standings/stats", r.handleStats)
	group.GET("/standings/chart", r.handleChart)
}

func (r *Router) handleAgents(c *gin.Context) {
	snap := r.Registry.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"version":   snap.Version,
		"loaded_at": snap.LoadedAt,
		"agents":    snap.Agents,
	})
}

func (r *Router) handleRunCycle(c *gin.Context) {
	res, err := r.League.RunCycle(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

type executeTradeRequest struct {
	AgentID   int    `json:"agent_id" binding:"required"`
	Action    string `json:"action" binding:"required"`
	Ticker    string `json:"ticker"`
	Quantity  int64  `json:"quantity"`
	Reasoning string `json:"reasoning"`
}

func (r *Router) handleExecuteTrade(c *gin.Context) {
	var req executeTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	action := strings.ToLower(strings.TrimSpace(req.Action))
	switch action {
	case decision.ActionBuy, decision.ActionSell, decision.ActionHold:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be buy, sell or hold"})
		return
	}
	if action != decision.ActionHold && req.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
		return
	}
	d := decision.Decision{
		Action:     action,
		Ticker:     strings.ToUpper(strings.TrimSpace(req.Ticker)),
		Quantity:   req.Quantity,
		Confidence: 1,
		Reasoning:  req.Reasoning,
	}
	trade, err := r.League.Execute(c.Request.Context(), req.AgentID, d)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trade)
}

func (r *Router) handleStandings(c *gin.Context) {
	entries, err := r.League.Standings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"standings": entries})
}

func (r *Router) handleHistory(c *gin.Context) {
	limit := intQuery(c, "limit", 52)
	snaps, err := r.Snapshots.ListSnapshots(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snaps})
}

type agentStats struct {
	AgentID     int     `json:"agent_id"`
	Snapshots   int     `json:"snapshots"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// handleStats 基于历史快照的权益曲线计算每个 agent 的年化夏普与最大回撤。
// 快照默认按周落盘，periods_per_year 取 52。
func (r *Router) handleStats(c *gin.Context) {
	limit := intQuery(c, "limit", 52)
	snaps, err := r.Snapshots.ListSnapshots(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	curves := make(map[int][]float64)
	order := make([]int, 0)
	for _, snap := range snaps {
		for _, e := range snap.Entries {
			if _, seen := curves[e.AgentID]; !seen {
				order = append(order, e.AgentID)
			}
			curves[e.AgentID] = append(curves[e.AgentID], e.PortfolioVal.InexactFloat64())
		}
	}
	sort.Ints(order)

	periodsPerYear := floatQuery(c, "periods_per_year", 52)
	stats := make([]agentStats, 0, len(order))
	for _, id := range order {
		curve := curves[id]
		returns := scoring.PeriodReturns(curve)
		stats = append(stats, agentStats{
			AgentID:     id,
			Snapshots:   len(curve),
			SharpeRatio: scoring.SharpeRatio(returns, 0, periodsPerYear),
			MaxDrawdown: scoring.MaxDrawdown(curve),
		})
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (r *Router) handleChart(c *gin.Context) {
	limit := intQuery(c, "limit", 52)
	snaps, err := r.Snapshots.ListSnapshots(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderStandingsChart(c.Writer, snaps); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (r *Router) handleDecisionLogs(c *gin.Context) {
	if r.Logs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "决策日志未启用"})
		return
	}
	q := decisionlog.Query{
		AgentID:  intQuery(c, "agent_id", 0),
		Provider: c.Query("provider"),
		TraceID:  c.Query("trace_id"),
		Limit:    intQuery(c, "limit", 50),
		Offset:   intQuery(c, "offset", 0),
	}
	records, err := r.Logs.Recent(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func floatQuery(c *gin.Context, key string, fallback float64) float64 {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
