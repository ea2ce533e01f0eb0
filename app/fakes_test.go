package app

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	models "tradescout/database/models_pkg"
	"tradescout/database/types"
	"tradescout/marketdata"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// memTrades is an in-memory TradeStore
type memTrades struct {
	mu     sync.Mutex
	trades []models.Trade
	nextID int64
	err    error
}

func (m *memTrades) add(t models.Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	m.trades = append(m.trades, t)
}

// addClosed appends a CLOSED trade with the given pnl and dates
func (m *memTrades) addClosed(entry, exit time.Time, pnl string) {
	p := dec(pnl)
	m.add(models.Trade{
		Symbol:    "ACME",
		EntryDate: entry,
		Status:    models.TradeStatusClosed,
		ExitDate:  &exit,
		Pnl:       &p,
	})
}

func (m *memTrades) addOpen(entry time.Time) {
	m.add(models.Trade{Symbol: "ACME", EntryDate: entry, Status: models.TradeStatusOpen})
}

func (m *memTrades) Create(ctx context.Context, t *models.Trade) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	m.trades = append(m.trades, *t)
	return nil
}

func (m *memTrades) UpdateIfOpen(ctx context.Context, t *models.Trade) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.trades {
		if m.trades[i].ID == t.ID {
			if m.trades[i].Status != models.TradeStatusOpen {
				return models.ErrTradeNotOpen
			}
			m.trades[i] = *t
			return nil
		}
	}
	return errors.New("no such trade")
}

func (m *memTrades) GetByID(ctx context.Context, id int64) (*models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.trades {
		if m.trades[i].ID == id {
			t := m.trades[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (m *memTrades) List(ctx context.Context, status models.TradeStatus, limit int) ([]models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Trade
	for _, t := range m.trades {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EntryDate.Equal(out[j].EntryDate) {
			return out[i].EntryDate.After(out[j].EntryDate)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memTrades) CountEnteredBetween(ctx context.Context, start, end time.Time) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.trades {
		if inRange(t.EntryDate, start, end) {
			n++
		}
	}
	return n, nil
}

func (m *memTrades) CountOpen(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.trades {
		if t.Status == models.TradeStatusOpen {
			n++
		}
	}
	return n, nil
}

func (m *memTrades) closedSorted() []models.Trade {
	var out []models.Trade
	for _, t := range m.trades {
		if t.Status == models.TradeStatusClosed && t.ExitDate != nil {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ExitDate.Equal(*out[j].ExitDate) {
			return out[i].ExitDate.After(*out[j].ExitDate)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *memTrades) ClosedBetween(ctx context.Context, start, end time.Time) ([]models.Trade, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Trade
	for _, t := range m.closedSorted() {
		if inRange(*t.ExitDate, start, end) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTrades) RecentClosed(ctx context.Context, limit int) ([]models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.closedSorted()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memTrades) AllClosed(ctx context.Context) ([]models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closedSorted(), nil
}

// memBars is an in-memory BarStore
type memBars struct {
	mu      sync.Mutex
	bars    []models.DailyBar
	deleted time.Time
}

func (m *memBars) UpsertBar(ctx context.Context, bar *models.DailyBar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.bars {
		if m.bars[i].Symbol == bar.Symbol && m.bars[i].TradeDate.Equal(bar.TradeDate) {
			m.bars[i] = *bar
			return nil
		}
	}
	m.bars = append(m.bars, *bar)
	return nil
}

func (m *memBars) InsertMissing(ctx context.Context, bars []models.DailyBar) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inserted := 0
outer:
	for _, b := range bars {
		for _, have := range m.bars {
			if have.Symbol == b.Symbol && have.TradeDate.Equal(b.TradeDate) {
				continue outer
			}
		}
		m.bars = append(m.bars, b)
		inserted++
	}
	return inserted, nil
}

func (m *memBars) FindRecent(ctx context.Context, symbol string, since time.Time) ([]models.DailyBar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DailyBar
	for _, b := range m.bars {
		if b.Symbol == symbol && !b.TradeDate.Before(since) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TradeDate.Before(out[j].TradeDate) })
	return out, nil
}

func (m *memBars) CountTracked(ctx context.Context, symbols []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	for _, b := range m.bars {
		for _, s := range symbols {
			if b.Symbol == s {
				seen[s] = true
			}
		}
	}
	return int64(len(seen)), nil
}

func (m *memBars) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = cutoff
	kept := m.bars[:0]
	var n int64
	for _, b := range m.bars {
		if b.TradeDate.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, b)
	}
	m.bars = kept
	return n, nil
}

// memMetrics is an in-memory MetricsStore keyed by symbol
type memMetrics struct {
	mu      sync.Mutex
	rows    map[string]*models.VolatilityMetrics
	reads   int
	deleted time.Time
	err     error
}

func newMemMetrics() *memMetrics {
	return &memMetrics{rows: map[string]*models.VolatilityMetrics{}}
}

func (m *memMetrics) Upsert(ctx context.Context, v *models.VolatilityMetrics) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.rows[v.Symbol] = &cp
	return nil
}

func (m *memMetrics) Latest(ctx context.Context, symbol string) (*models.VolatilityMetrics, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	v, ok := m.rows[symbol]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (m *memMetrics) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = cutoff
	return 0, nil
}

// memPerformance is an in-memory PerformanceStore
type memPerformance struct {
	mu   sync.Mutex
	rows []models.PerformanceMetrics
}

func (m *memPerformance) Save(ctx context.Context, p *models.PerformanceMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].PeriodType == p.PeriodType && m.rows[i].PeriodEnd.Equal(p.PeriodEnd) {
			m.rows[i] = *p
			return nil
		}
	}
	m.rows = append(m.rows, *p)
	return nil
}

func (m *memPerformance) ListByType(ctx context.Context, periodType models.PeriodType, limit int) ([]models.PerformanceMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PerformanceMetrics
	for _, r := range m.rows {
		if r.PeriodType == periodType {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodEnd.After(out[j].PeriodEnd) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeProvider serves canned quotes and history
type fakeProvider struct {
	mu       sync.Mutex
	quotes   map[string]*marketdata.Quote
	history  map[string][]models.DailyBar
	errs     map[string]error
	block    map[string]bool // block until ctx is done
	requests []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		quotes:  map[string]*marketdata.Quote{},
		history: map[string][]models.DailyBar{},
		errs:    map[string]error{},
		block:   map[string]bool{},
	}
}

func (f *fakeProvider) FetchQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	f.mu.Lock()
	f.requests = append(f.requests, symbol)
	q, ok := f.quotes[symbol]
	err := f.errs[symbol]
	block := f.block[symbol]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, marketdata.ErrNoQuote
	}
	cp := *q
	return &cp, nil
}

func (f *fakeProvider) FetchHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	return f.history[symbol], nil
}

// fakeNotifier records alerts; err makes every send fail
type fakeNotifier struct {
	mu      sync.Mutex
	alerts  []types.Opportunity
	reports []types.PeriodReport
	err     error
}

func (n *fakeNotifier) SendOpportunityAlert(ctx context.Context, opp types.Opportunity) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.alerts = append(n.alerts, opp)
	return nil
}

func (n *fakeNotifier) SendPeriodReport(ctx context.Context, report types.PeriodReport) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.reports = append(n.reports, report)
	return nil
}

func (n *fakeNotifier) alertCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

// fakeSink records broadcasts and publishes
type fakeSink struct {
	mu        sync.Mutex
	events    []string
	published int
}

func (s *fakeSink) Broadcast(event string, payload interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *fakeSink) PublishOpportunity(ctx context.Context, payload interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published++
	return nil
}

// fakeCache is a map-backed MetricsCache
type fakeCache struct {
	mu          sync.Mutex
	rows        map[string]*models.VolatilityMetrics
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{rows: map[string]*models.VolatilityMetrics{}}
}

func (c *fakeCache) GetMetrics(ctx context.Context, symbol string) (*models.VolatilityMetrics, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.rows[symbol]
	return m, ok
}

func (c *fakeCache) SetMetrics(ctx context.Context, m *models.VolatilityMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows[m.Symbol] = m
}

func (c *fakeCache) InvalidateMetrics(ctx context.Context, symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rows, symbol)
	c.invalidated = append(c.invalidated, symbol)
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}
