package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	models "tradescout/database/models_pkg"
	"tradescout/database/types"
)

// OpportunityService scans for and manages trades
type OpportunityService interface {
	ScanAndAlert(ctx context.Context) ([]types.OpportunitySignal, error)
	AnalyzeSymbol(ctx context.Context, symbol string) (*types.OpportunitySignal, *types.TradeSetup, error)
	OpenTrade(ctx context.Context, req types.OpenTradeRequest) (*models.Trade, error)
	CloseTrade(ctx context.Context, id int64, exitPrice decimal.Decimal, reason models.ExitReason, lessons string) (*models.Trade, error)
	CancelTrade(ctx context.Context, id int64) (*models.Trade, error)
	ListTrades(ctx context.Context, status models.TradeStatus, limit int) ([]models.Trade, error)
}

// PerformanceService reports on closed trades
type PerformanceService interface {
	Snapshot(ctx context.Context) (*types.PerformanceSnapshot, error)
	GenerateQuarterlyReport(ctx context.Context) (*types.PeriodReport, error)
	History(ctx context.Context, periodType models.PeriodType, limit int) ([]models.PerformanceMetrics, error)
}

// RiskService exposes the risk gate
type RiskService interface {
	Status(ctx context.Context) (types.RiskStatus, error)
}

// MaintenanceService loads and refreshes market data
type MaintenanceService interface {
	LoadInitialData(ctx context.Context) (*types.InitialLoadResult, error)
	RunDailyMaintenance(ctx context.Context) (*types.MaintenanceResult, error)
	StocksTracked(ctx context.Context) (int64, error)
}

// Streamer serves live events
type Streamer interface {
	http.Handler
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// Server handles HTTP API requests
type Server struct {
	opportunities OpportunityService
	performance   PerformanceService
	risk          RiskService
	maintenance   MaintenanceService
	streamer      Streamer
	loc           *time.Location
	httpServer    *http.Server
	logger        zerolog.Logger
}

// NewServer creates a new API server instance. streamer may be nil.
func NewServer(opportunities OpportunityService, performance PerformanceService, risk RiskService, maintenance MaintenanceService, streamer Streamer, loc *time.Location) *Server {
	if loc == nil {
		loc = time.UTC
	}
	return &Server{
		opportunities: opportunities,
		performance:   performance,
		risk:          risk,
		maintenance:   maintenance,
		streamer:      streamer,
		loc:           loc,
		logger:        log.With().Str("component", "api").Logger(),
	}
}

// Handler builds the routed handler with middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	// Opportunities
	mux.HandleFunc("GET /api/opportunities", s.handleScan)
	mux.HandleFunc("POST /api/opportunities/scan", s.handleScan)
	mux.HandleFunc("GET /api/opportunities/{symbol}", s.handleAnalyzeSymbol)

	// Performance
	mux.HandleFunc("GET /api/performance/current", s.handleCurrentPerformance)
	mux.HandleFunc("GET /api/performance/quarterly", s.handleQuarterlyReport)
	mux.HandleFunc("GET /api/performance/history", s.handlePerformanceHistory)

	mux.HandleFunc("GET /api/risk", s.handleRiskStatus)

	// Trade journal
	mux.HandleFunc("GET /api/trades", s.handleListTrades)
	mux.HandleFunc("POST /api/trades", s.handleOpenTrade)
	mux.HandleFunc("POST /api/trades/{id}/close", s.handleCloseTrade)
	mux.HandleFunc("POST /api/trades/{id}/cancel", s.handleCancelTrade)

	// Maintenance
	mux.HandleFunc("POST /api/maintenance/initialize", s.handleInitialize)
	mux.HandleFunc("POST /api/maintenance/update", s.handleUpdate)

	if s.streamer != nil {
		mux.Handle("GET /api/events", s.streamer) // SSE Endpoint
		mux.HandleFunc("GET /api/ws", s.streamer.ServeWS)
	}

	return s.corsMiddleware(s.loggingMiddleware(mux))
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port int) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("🚀 API Server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// Handlers are distributed across multiple files:
// - handlers_opportunities.go: scans and single-symbol analysis
// - handlers_trades.go: trade journal
// - handlers_performance.go: snapshot, reports, risk
// - handlers_maintenance.go: health, data load and refresh
