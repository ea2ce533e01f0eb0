package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tradescout/database/types"
)

// WebhookManager posts JSON alerts to a fixed list of URLs
type WebhookManager struct {
	urls       []string
	authHeader string
	authValue  string
	retryCount int
	retryDelay time.Duration
	client     *http.Client
	logger     zerolog.Logger
}

// WebhookPayload represents the JSON payload sent to webhooks
type WebhookPayload struct {
	Event       string                 `json:"event"`
	SentAt      time.Time              `json:"sent_at"`
	Symbol      string                 `json:"symbol,omitempty"`
	Confidence  float64                `json:"confidence,omitempty"`
	Message     string                 `json:"message"`
	Opportunity *types.Opportunity     `json:"opportunity,omitempty"`
	Report      *types.PeriodReport    `json:"report,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NewWebhookManager creates a new webhook manager
func NewWebhookManager(urls []string, authHeader, authValue string, retryCount int, retryDelay time.Duration) *WebhookManager {
	if retryCount <= 0 {
		retryCount = 1
	}
	return &WebhookManager{
		urls:       urls,
		authHeader: authHeader,
		authValue:  authValue,
		retryCount: retryCount,
		retryDelay: retryDelay,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: log.With().Str("component", "webhook").Logger(),
	}
}

// Name implements Channel
func (wm *WebhookManager) Name() string {
	return "webhook"
}

// SendOpportunityAlert implements Channel
func (wm *WebhookManager) SendOpportunityAlert(ctx context.Context, opp types.Opportunity) error {
	payload := WebhookPayload{
		Event:       "opportunity",
		SentAt:      time.Now(),
		Symbol:      opp.Signal.Symbol,
		Confidence:  opp.Signal.Confidence,
		Message:     OpportunitySubject(opp),
		Opportunity: &opp,
		Metadata: map[string]interface{}{
			"price_z_score":  opp.Signal.PriceZScore,
			"volume_z_score": opp.Signal.VolumeZScore,
			"drop_pct":       opp.Signal.CurrentDropPct,
		},
	}
	return wm.broadcast(ctx, payload)
}

// SendPeriodReport implements Channel
func (wm *WebhookManager) SendPeriodReport(ctx context.Context, report types.PeriodReport) error {
	payload := WebhookPayload{
		Event:   "period_report",
		SentAt:  time.Now(),
		Message: ReportSubject(report),
		Report:  &report,
	}
	return wm.broadcast(ctx, payload)
}

func (wm *WebhookManager) broadcast(ctx context.Context, payload WebhookPayload) error {
	if len(wm.urls) == 0 {
		return nil
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var errs []error
	for _, url := range wm.urls {
		if err := wm.deliverWebhook(ctx, url, payloadBytes); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (wm *WebhookManager) deliverWebhook(ctx context.Context, url string, payload []byte) error {
	var lastErr error

	for attempt := 1; attempt <= wm.retryCount; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "TradeScout-Alert/1.0")
		if wm.authHeader != "" {
			req.Header.Set(wm.authHeader, wm.authValue)
		}

		wm.logger.Debug().Str("url", url).Int("attempt", attempt).Int("max_attempts", wm.retryCount).Msg("🔹 Sending webhook")

		resp, err := wm.client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
			lastErr = fmt.Errorf("webhook %s returned %d", url, resp.StatusCode)
		} else {
			lastErr = err
		}

		// Wait before retry
		if attempt < wm.retryCount {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wm.retryDelay):
			}
		}
	}

	return fmt.Errorf("webhook %s failed after %d attempts: %w", url, wm.retryCount, lastErr)
}
