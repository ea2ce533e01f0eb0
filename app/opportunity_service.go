package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"tradescout/database"
	models "tradescout/database/models_pkg"
	"tradescout/database/types"
	"tradescout/helpers"
)

// EventOpportunity is the realtime event name for an admitted opportunity
const EventOpportunity = "opportunity"

// SizingRules turn a signal into a trade setup
type SizingRules struct {
	PositionSize         decimal.Decimal // dollars per trade
	TargetProfitPerTrade decimal.Decimal
	StopLossPerTrade     decimal.Decimal
}

// EntryRules are the calendar and alerting switches applied to every scan
type EntryRules struct {
	NoFridayEntries      bool
	NotificationsEnabled bool
	Location             *time.Location
}

// Scanner runs a detection pass over a watchlist
type Scanner interface {
	ScanForOpportunities(ctx context.Context, watchlist []string) []types.OpportunitySignal
	AnalyzeSymbol(ctx context.Context, symbol string) (*types.OpportunitySignal, error)
}

// RiskGate admits or denies new trades
type RiskGate interface {
	Evaluate(ctx context.Context) (RiskDecision, error)
}

// OpportunityService filters detector output through the calendar, the risk
// gate and the alert cooldown, and alerts on what remains.
type OpportunityService struct {
	scanner   Scanner
	risk      RiskGate
	cooldown  *CooldownTracker
	trades    TradeStore
	notifier  Notifier
	events    EventSink
	publisher OpportunityPublisher
	watchlist []string
	sizing    SizingRules
	rules     EntryRules
	now       Clock
	logger    zerolog.Logger
}

// NewOpportunityService wires the orchestrator. notifier, events and
// publisher may be nil.
func NewOpportunityService(scanner Scanner, risk RiskGate, cooldown *CooldownTracker, trades TradeStore, watchlist []string, sizing SizingRules, rules EntryRules, now Clock) *OpportunityService {
	if now == nil {
		now = time.Now
	}
	if rules.Location == nil {
		rules.Location = time.UTC
	}
	return &OpportunityService{
		scanner:   scanner,
		risk:      risk,
		cooldown:  cooldown,
		trades:    trades,
		watchlist: watchlist,
		sizing:    sizing,
		rules:     rules,
		now:       now,
		logger:    log.With().Str("component", "opportunities").Logger(),
	}
}

// SetNotifier sets the alert channel
func (s *OpportunityService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetEventSink sets the realtime broadcaster
func (s *OpportunityService) SetEventSink(e EventSink) {
	s.events = e
}

// SetPublisher sets the cross-process publisher
func (s *OpportunityService) SetPublisher(p OpportunityPublisher) {
	s.publisher = p
}

// Watchlist returns the symbols scanned
func (s *OpportunityService) Watchlist() []string {
	return s.watchlist
}

// ScanAndAlert runs a full scan and returns the admitted signals. A failing
// alert is logged and does not remove its signal from the result.
func (s *OpportunityService) ScanAndAlert(ctx context.Context) ([]types.OpportunitySignal, error) {
	admitted := make([]types.OpportunitySignal, 0)

	signals := s.scanner.ScanForOpportunities(ctx, s.watchlist)
	if len(signals) == 0 {
		return admitted, nil
	}

	if s.rules.NoFridayEntries && helpers.IsFriday(s.now().In(s.rules.Location)) {
		s.logger.Info().Int("signals", len(signals)).Msg("📅 Friday - no new entries")
		return admitted, nil
	}

	decision, err := s.risk.Evaluate(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("❌ Risk check failed, admitting nothing")
		return admitted, nil
	}
	if !decision.Allowed {
		s.logger.Info().Strs("reasons", decision.Reasons).Int("signals", len(signals)).Msg("🛑 Risk limits reached, skipping signals")
		return admitted, nil
	}

	for _, signal := range signals {
		setup, ok := s.GenerateTradeSetup(signal)
		if !ok {
			s.logger.Warn().
				Str("symbol", signal.Symbol).
				Float64("price", signal.CurrentPrice).
				Str("budget", s.sizing.PositionSize.String()).
				Msg("⚠️ Price exceeds position budget, skipping")
			continue
		}

		if !s.admitAndAlert(ctx, signal, setup) {
			continue
		}
		admitted = append(admitted, signal)

		opp := types.Opportunity{Signal: signal, Setup: setup}
		if s.events != nil {
			s.events.Broadcast(EventOpportunity, opp)
		}
		if s.publisher != nil {
			if err := s.publisher.PublishOpportunity(ctx, opp); err != nil {
				s.logger.Debug().Err(err).Str("symbol", signal.Symbol).Msg("opportunity publish failed")
			}
		}
	}

	s.logger.Info().Int("detected", len(signals)).Int("admitted", len(admitted)).Msg("✅ Opportunity scan finished")
	return admitted, nil
}

// admitAndAlert applies the cooldown and sends the alert. With notifications
// off the cooldown is only consulted, never recorded.
func (s *OpportunityService) admitAndAlert(ctx context.Context, signal types.OpportunitySignal, setup types.TradeSetup) bool {
	if !s.rules.NotificationsEnabled || s.notifier == nil {
		if !s.cooldown.Allowed(signal.Symbol) {
			s.logger.Debug().Str("symbol", signal.Symbol).Msg("in alert cooldown")
			return false
		}
		return true
	}

	release, ok := s.cooldown.TryAcquire(signal.Symbol)
	if !ok {
		s.logger.Debug().Str("symbol", signal.Symbol).Msg("in alert cooldown")
		return false
	}

	if err := s.notifier.SendOpportunityAlert(ctx, types.Opportunity{Signal: signal, Setup: setup}); err != nil {
		release()
		s.logger.Error().Err(err).Str("symbol", signal.Symbol).Msg("❌ Failed to send opportunity alert")
		return true
	}

	s.logger.Info().Str("symbol", signal.Symbol).Float64("confidence", signal.Confidence).Msg("📧 Opportunity alert sent")
	return true
}

// GenerateTradeSetup sizes a trade for signal. ok is false when the entry
// price exceeds the position budget.
func (s *OpportunityService) GenerateTradeSetup(signal types.OpportunitySignal) (types.TradeSetup, bool) {
	entry := decimal.NewFromFloat(signal.CurrentPrice)
	if !entry.IsPositive() {
		return types.TradeSetup{}, false
	}

	size := s.sizing.PositionSize.Div(entry).Floor().IntPart()
	if size <= 0 {
		return types.TradeSetup{}, false
	}
	shares := decimal.NewFromInt(size)

	targetGain := s.sizing.TargetProfitPerTrade.DivRound(shares, 2)
	stopLoss := s.sizing.StopLossPerTrade.DivRound(shares, 2)

	return types.TradeSetup{
		Symbol:       signal.Symbol,
		EntryPrice:   entry,
		TargetPrice:  entry.Add(targetGain),
		StopPrice:    entry.Sub(stopLoss),
		PositionSize: int(size),
		RiskAmount:   s.sizing.StopLossPerTrade,
		ProfitTarget: s.sizing.TargetProfitPerTrade,
		Confidence:   signal.Confidence,
		Reasoning:    setupReasoning(signal),
	}, true
}

// ZScorePercentile approximates the share of days at or below a negative z-score
func ZScorePercentile(z float64) float64 {
	switch {
	case z < -3:
		return 0.1
	case z < -2.5:
		return 0.6
	case z < -2:
		return 2.5
	case z < -1.5:
		return 7.0
	default:
		return 16.0
	}
}

func setupReasoning(signal types.OpportunitySignal) string {
	h := signal.HistoricalContext
	return fmt.Sprintf(`Anomaly detected with %.0f%% confidence

Analysis:
- Price dropped %.2f%% from open
- Z-Score: %.2fσ (bottom %.1f%% of days)
- Volume: %d (%.2fσ below average)

Historical Context:
- Typical drop: %.2f%% ± %.2f%%
- Average volume: %d

This appears to be an overreaction on thin trading volume.
Manual review required before executing trade.
`,
		signal.Confidence,
		signal.CurrentDropPct,
		signal.PriceZScore,
		ZScorePercentile(signal.PriceZScore),
		signal.CurrentVolume,
		signal.VolumeZScore,
		h.AvgMaxDropPct,
		h.StddevMaxDropPct,
		h.AvgVolume,
	)
}

// AnalyzeSymbol scores one symbol without alerting. A nil signal means no
// quote or no metrics.
func (s *OpportunityService) AnalyzeSymbol(ctx context.Context, symbol string) (*types.OpportunitySignal, *types.TradeSetup, error) {
	signal, err := s.scanner.AnalyzeSymbol(ctx, symbol)
	if err != nil || signal == nil {
		return signal, nil, err
	}
	setup, ok := s.GenerateTradeSetup(*signal)
	if !ok {
		return signal, nil, nil
	}
	return signal, &setup, nil
}

// OpenTrade records a new OPEN trade after the risk gate admits it
func (s *OpportunityService) OpenTrade(ctx context.Context, req types.OpenTradeRequest) (*models.Trade, error) {
	decision, err := s.risk.Evaluate(ctx)
	if err != nil {
		return nil, fmt.Errorf("risk check: %w", err)
	}
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %v", models.ErrRiskLimitReached, decision.Reasons)
	}

	entryDate := s.now().In(s.rules.Location)
	if req.EntryDate != nil {
		entryDate = *req.EntryDate
	}

	trade, err := models.NewTrade(req.Symbol, entryDate, req.EntryPrice, req.TargetPrice, req.StopPrice, req.PositionSize)
	if err != nil {
		return nil, err
	}
	trade.EntryReasoning = req.Reasoning
	trade.ConfidenceScore = req.Confidence

	if err := s.trades.Create(ctx, trade); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("trade_id", trade.ID).
		Str("symbol", trade.Symbol).
		Str("entry", trade.EntryPrice.String()).
		Int("shares", trade.PositionSize).
		Msg("📈 Trade opened")
	return trade, nil
}

// CloseTrade exits an OPEN trade at exitPrice
func (s *OpportunityService) CloseTrade(ctx context.Context, id int64, exitPrice decimal.Decimal, reason models.ExitReason, lessons string) (*models.Trade, error) {
	trade, err := s.loadTrade(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := trade.Close(exitPrice, reason, s.now().In(s.rules.Location)); err != nil {
		return nil, err
	}
	if lessons != "" {
		trade.LessonsLearned = lessons
	}
	if err := s.trades.UpdateIfOpen(ctx, trade); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("trade_id", trade.ID).
		Str("symbol", trade.Symbol).
		Str("reason", string(reason)).
		Str("pnl", helpers.FormatUSD(trade.PnlOrZero())).
		Msg("📉 Trade closed")
	return trade, nil
}

// CancelTrade abandons an OPEN trade
func (s *OpportunityService) CancelTrade(ctx context.Context, id int64) (*models.Trade, error) {
	trade, err := s.loadTrade(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := trade.Cancel(); err != nil {
		return nil, err
	}
	if err := s.trades.UpdateIfOpen(ctx, trade); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("trade_id", trade.ID).Str("symbol", trade.Symbol).Msg("Trade cancelled")
	return trade, nil
}

// ListTrades returns trades newest entry first
func (s *OpportunityService) ListTrades(ctx context.Context, status models.TradeStatus, limit int) ([]models.Trade, error) {
	return s.trades.List(ctx, status, limit)
}

func (s *OpportunityService) loadTrade(ctx context.Context, id int64) (*models.Trade, error) {
	trade, err := s.trades.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, database.NewNotFoundErrorWithID("trade", id)
	}
	return trade, nil
}
