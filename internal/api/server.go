// Package api exposes the scanner and the stored history over HTTP.
package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"SwingFilter/internal/collector"
	"SwingFilter/internal/model"
	"SwingFilter/internal/recorder"
	"SwingFilter/internal/scanner"
	"SwingFilter/internal/strategy"
)

// Server serves the /api/v1 routes.
type Server struct {
	scanner      *scanner.Scanner
	recorder     recorder.Recorder
	watchlistDir string
	watchlist    string
	marketTicker string
	logger       *zap.Logger
}

// Options locate the watchlists and the market index.
type Options struct {
	WatchlistDir     string
	DefaultWatchlist string
	MarketTicker     string
}

// NewServer creates a Server.
func NewServer(sc *scanner.Scanner, rec recorder.Recorder, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		scanner:      sc,
		recorder:     rec,
		watchlistDir: opts.WatchlistDir,
		watchlist:    opts.DefaultWatchlist,
		marketTicker: opts.MarketTicker,
		logger:       logger,
	}
}

// Handler builds the gin engine.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	s.setupRoutes(r)
	return r
}

func (s *Server) setupRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/regime", s.handleRegime)
		api.GET("/analyze/:ticker", s.handleAnalyze)
		api.POST("/scan", s.handleScan)
		api.GET("/scans/latest", s.handleLatestScan)
		api.GET("/watchlists", s.handleWatchlists)
		api.GET("/runs", s.handleRuns)
		api.GET("/runs/:run_id/trades", s.handleRunTrades)
	}
}

// num replaces undefined values so they encode as JSON.
func num(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

type signalView struct {
	Ticker         string   `json:"ticker"`
	Date           string   `json:"date"`
	Raw            string   `json:"raw_signal"`
	Final          string   `json:"final_signal"`
	IsSetup        bool     `json:"is_setup"`
	Price          float64  `json:"price"`
	RSI            float64  `json:"rsi"`
	MACDHist       float64  `json:"macd_hist"`
	VolRatio       float64  `json:"vol_ratio"`
	StopLoss       float64  `json:"stop_loss"`
	TakeProfitMin  float64  `json:"take_profit_min"`
	TakeProfitMax  float64  `json:"take_profit_max"`
	Support        float64  `json:"nearest_support"`
	Resistance     float64  `json:"nearest_resistance"`
	LevelLabel     string   `json:"level_label"`
	RangePosition  float64  `json:"range_position"`
	Patterns       []string `json:"patterns"`
	WeeklyTrend    string   `json:"weekly_trend"`
	MarketRegime   string   `json:"market_regime"`
	ContextScore   int      `json:"context_score"`
	ContextReasons []string `json:"context_reasons"`
	Score          int      `json:"score"`
	Strategy       string   `json:"strategy"`
}

func viewSignal(sig model.Signal) signalView {
	return signalView{
		Ticker:         sig.Ticker,
		Date:           sig.Date.Format("2006-01-02"),
		Raw:            sig.Raw,
		Final:          sig.Final,
		IsSetup:        sig.IsSetup,
		Price:          num(sig.Price),
		RSI:            num(sig.RSI),
		MACDHist:       num(sig.MACDHist),
		VolRatio:       num(sig.VolRatio),
		StopLoss:       num(sig.Risk.StopLoss),
		TakeProfitMin:  num(sig.Risk.TakeProfitMin),
		TakeProfitMax:  num(sig.Risk.TakeProfitMax),
		Support:        num(sig.Levels.NearestSupport),
		Resistance:     num(sig.Levels.NearestResistance),
		LevelLabel:     sig.Levels.Label,
		RangePosition:  num(sig.Levels.RangePosition),
		Patterns:       sig.Patterns,
		WeeklyTrend:    string(sig.Weekly.Trend),
		MarketRegime:   string(sig.Market.Regime),
		ContextScore:   sig.ContextScore,
		ContextReasons: sig.ContextReasons,
		Score:          sig.Score,
		Strategy:       string(sig.Strategy),
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleRegime(c *gin.Context) {
	m := s.scanner.Regime(c.Request.Context(), s.marketTicker)
	c.JSON(http.StatusOK, gin.H{
		"ticker":  s.marketTicker,
		"regime":  m.Regime,
		"risk_on": m.RiskOn,
	})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	ctx := c.Request.Context()
	ticker := collector.NormalizeTicker(c.Param("ticker"))
	market := s.scanner.Regime(ctx, s.marketTicker)
	sig, err := s.scanner.Analyze(ctx, ticker, market)
	switch {
	case errors.Is(err, collector.ErrNoData):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, strategy.ErrInsufficientData):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.logger.Error("analyze failed", zap.String("ticker", ticker), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, viewSignal(sig))
}

type scanRequest struct {
	Tickers   []string `json:"tickers"`
	Watchlist string   `json:"watchlist"`
	ShowAll   bool     `json:"show_all"`
}

func (s *Server) handleScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tickers := make([]string, 0, len(req.Tickers))
	for _, t := range req.Tickers {
		tickers = append(tickers, collector.NormalizeTicker(t))
	}
	if len(tickers) == 0 {
		name := req.Watchlist
		if name == "" {
			name = s.watchlist
		}
		wl, err := collector.LoadNamedWatchlist(s.watchlistDir, name)
		if err != nil {
			s.logger.Warn("scan watchlist rejected", zap.String("watchlist", name), zap.Error(err))
			msg := "unknown watchlist " + strconv.Quote(name)
			if errors.Is(err, collector.ErrInvalidWatchlist) {
				msg = "invalid watchlist name " + strconv.Quote(name)
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": msg})
			return
		}
		tickers = wl
	}

	res, err := s.scanner.Scan(c.Request.Context(), tickers, scanner.Options{MarketTicker: s.marketTicker, ShowAll: req.ShowAll})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	id, err := s.recorder.RecordScan(res)
	if err != nil {
		s.logger.Error("record scan", zap.Error(err))
	}

	signals := make([]signalView, 0, len(res.Signals))
	for _, sig := range res.Signals {
		signals = append(signals, viewSignal(sig))
	}
	c.JSON(http.StatusOK, gin.H{
		"scan_id":       id,
		"scanned_at":    res.ScannedAt.Unix(),
		"market_regime": res.Market.Regime,
		"scanned":       res.Scanned,
		"setups":        len(res.Setups()),
		"signals":       signals,
		"failures":      res.Failures,
	})
}

func (s *Server) handleLatestScan(c *gin.Context) {
	scan, signals, err := s.recorder.LastScan()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if scan == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no scan recorded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scan": scan, "signals": signals})
}

func (s *Server) handleWatchlists(c *gin.Context) {
	names, err := collector.ListWatchlists(s.watchlistDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"default": s.watchlist, "watchlists": names})
}

func (s *Server) handleRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	runs, err := s.recorder.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRunTrades(c *gin.Context) {
	trades, err := s.recorder.RunTrades(c.Param("run_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": c.Param("run_id"), "trades": trades})
}
