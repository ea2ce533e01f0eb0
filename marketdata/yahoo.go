// Package marketdata fetches quotes and daily history from the Yahoo Finance
// chart API.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	models "tradescout/database/models_pkg"
)

// ErrNoQuote means the provider returned no usable price or open for a symbol
var ErrNoQuote = errors.New("no quote available")

// Quote is the current trading-day snapshot for a symbol
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Volume    int64     `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// HTTPStatusError represents a non-200 response
type HTTPStatusError struct {
	StatusCode int
}

// Error implements the error interface
func (e *HTTPStatusError) Error() string {
	return "non-200 status code: " + http.StatusText(e.StatusCode)
}

// Options configures a Client
type Options struct {
	BaseURL         string
	RequestInterval time.Duration
	Timeout         time.Duration
	MaxRetryTime    time.Duration
}

// Client talks to the chart endpoint. Every request, including retries,
// waits on a shared limiter so upstream sees at most one call per interval.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetry   time.Duration
	logger     zerolog.Logger
}

// NewClient creates a Yahoo chart client
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://query1.finance.yahoo.com"
	}
	if opts.RequestInterval <= 0 {
		opts.RequestInterval = 250 * time.Millisecond
	}
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxRetryTime == 0 {
		opts.MaxRetryTime = 30 * time.Second
	}

	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Every(opts.RequestInterval), 1),
		maxRetry:   opts.MaxRetryTime,
		logger:     log.With().Str("component", "marketdata").Logger(),
	}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol               string   `json:"symbol"`
		RegularMarketPrice   *float64 `json:"regularMarketPrice"`
		RegularMarketDayHigh *float64 `json:"regularMarketDayHigh"`
		RegularMarketDayLow  *float64 `json:"regularMarketDayLow"`
		RegularMarketVolume  *int64   `json:"regularMarketVolume"`
		RegularMarketTime    int64    `json:"regularMarketTime"`
		ExchangeTimezoneName string   `json:"exchangeTimezoneName"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (r *chartResult) location() *time.Location {
	if r.Meta.ExchangeTimezoneName != "" {
		if loc, err := time.LoadLocation(r.Meta.ExchangeTimezoneName); err == nil {
			return loc
		}
	}
	return time.UTC
}

// bars converts the parallel indicator arrays to DailyBars, oldest first.
// Entries with a missing OHLC value are skipped.
func (r *chartResult) bars(symbol string) []models.DailyBar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]
	loc := r.location()

	var out []models.DailyBar
	for i, ts := range r.Timestamp {
		if i >= len(q.Open) || i >= len(q.High) || i >= len(q.Low) || i >= len(q.Close) {
			break
		}
		if q.Open[i] == nil || q.High[i] == nil || q.Low[i] == nil || q.Close[i] == nil {
			continue
		}
		var volume int64
		if i < len(q.Volume) && q.Volume[i] != nil {
			volume = *q.Volume[i]
		}
		y, m, d := time.Unix(ts, 0).In(loc).Date()
		out = append(out, models.DailyBar{
			Symbol:    symbol,
			TradeDate: time.Date(y, m, d, 0, 0, 0, 0, loc),
			Open:      *q.Open[i],
			High:      *q.High[i],
			Low:       *q.Low[i],
			Close:     *q.Close[i],
			Volume:    volume,
		})
	}
	return out
}

// FetchQuote returns today's price, open, range and volume for symbol.
// ErrNoQuote is returned when the price or open is missing or zero.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "5d")

	result, err := c.chart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}

	meta := result.Meta
	if meta.RegularMarketPrice == nil || *meta.RegularMarketPrice == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoQuote)
	}

	bars := result.bars(symbol)
	if len(bars) == 0 || bars[len(bars)-1].Open == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoQuote)
	}
	today := bars[len(bars)-1]

	quote := &Quote{
		Symbol:    symbol,
		Price:     *meta.RegularMarketPrice,
		Open:      today.Open,
		High:      today.High,
		Low:       today.Low,
		Volume:    today.Volume,
		Timestamp: time.Unix(meta.RegularMarketTime, 0),
	}
	if meta.RegularMarketDayHigh != nil {
		quote.High = *meta.RegularMarketDayHigh
	}
	if meta.RegularMarketDayLow != nil {
		quote.Low = *meta.RegularMarketDayLow
	}
	if meta.RegularMarketVolume != nil {
		quote.Volume = *meta.RegularMarketVolume
	}
	return quote, nil
}

// FetchHistory returns daily bars between from and to (inclusive), oldest first
func (c *Client) FetchHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("period1", strconv.FormatInt(from.Unix(), 10))
	params.Set("period2", strconv.FormatInt(to.AddDate(0, 0, 1).Unix(), 10))

	result, err := c.chart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}
	return result.bars(symbol), nil
}

func (c *Client) chart(ctx context.Context, symbol string, params url.Values) (*chartResult, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	var body chartResponse
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; tradescout/1.0)")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			statusErr := &HTTPStatusError{StatusCode: resp.StatusCode}
			// 4xx other than rate limiting will not succeed on retry
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(statusErr)
			}
			return statusErr
		}

		body = chartResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return backoff.Permanent(fmt.Errorf("decode chart response: %w", err))
		}
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = c.maxRetry

	notify := func(err error, wait time.Duration) {
		c.logger.Debug().Err(err).Str("symbol", symbol).Dur("retry_in", wait).Msg("chart request failed, retrying")
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(strategy, ctx), notify); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}

	if body.Chart.Error != nil {
		return nil, fmt.Errorf("fetch %s: %s: %w", symbol, body.Chart.Error.Description, ErrNoQuote)
	}
	if len(body.Chart.Result) == 0 {
		return nil, fmt.Errorf("fetch %s: %w", symbol, ErrNoQuote)
	}
	return &body.Chart.Result[0], nil
}
