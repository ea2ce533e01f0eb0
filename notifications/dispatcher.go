package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tradescout/database/types"
)

// Channel is one alert transport
type Channel interface {
	Name() string
	SendOpportunityAlert(ctx context.Context, opp types.Opportunity) error
	SendPeriodReport(ctx context.Context, report types.PeriodReport) error
}

// Dispatcher fans a notification out to every configured channel.
// A failing channel does not stop the others; the failures are joined.
type Dispatcher struct {
	channels []Channel
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher over channels
func NewDispatcher(channels ...Channel) *Dispatcher {
	return &Dispatcher{
		channels: channels,
		logger:   log.With().Str("component", "notifications").Logger(),
	}
}

// Channels returns the configured channel names
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for _, c := range d.channels {
		names = append(names, c.Name())
	}
	return names
}

// SendOpportunityAlert delivers an opportunity to every channel
func (d *Dispatcher) SendOpportunityAlert(ctx context.Context, opp types.Opportunity) error {
	var errs []error
	for _, c := range d.channels {
		if err := c.SendOpportunityAlert(ctx, opp); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
			continue
		}
		d.logger.Debug().Str("channel", c.Name()).Str("symbol", opp.Signal.Symbol).Msg("opportunity alert delivered")
	}
	return errors.Join(errs...)
}

// SendPeriodReport delivers a performance report to every channel
func (d *Dispatcher) SendPeriodReport(ctx context.Context, report types.PeriodReport) error {
	var errs []error
	for _, c := range d.channels {
		if err := c.SendPeriodReport(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
		}
	}
	return errors.Join(errs...)
}
