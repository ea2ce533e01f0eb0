package notifications

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tradescout/database/types"
)

// telegramSender is the subset of *tgbotapi.BotAPI used here
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts plain-text alerts to one chat
type TelegramNotifier struct {
	bot    telegramSender
	chatID int64
}

// NewTelegramNotifier authenticates the bot token
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

// Name implements Channel
func (t *TelegramNotifier) Name() string {
	return "telegram"
}

// SendOpportunityAlert implements Channel
func (t *TelegramNotifier) SendOpportunityAlert(ctx context.Context, opp types.Opportunity) error {
	return t.send(ctx, OpportunityText(opp))
}

// SendPeriodReport implements Channel
func (t *TelegramNotifier) SendPeriodReport(ctx context.Context, report types.PeriodReport) error {
	return t.send(ctx, ReportText(report))
}

func (t *TelegramNotifier) send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
