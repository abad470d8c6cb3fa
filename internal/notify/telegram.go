// Package notify pushes booking events to the staff Telegram chat.
package notify

import (
	"encoding/json"
	"fmt"

	"vinylbook/internal/config"
	"vinylbook/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramNotifier mirrors booking lifecycle events into one staff chat.
// Notifications are best effort: a send failure is logged, never surfaced to
// the API caller.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    zerolog.Logger
}

func NewTelegramNotifier(cfg config.TelegramConfig, logger *zerolog.Logger) (*TelegramNotifier, error) {
	if cfg.BotToken == "" || cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram bot_token and chat_id are required")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	n := &TelegramNotifier{api: api, chatID: cfg.ChatID}
	if logger != nil {
		n.log = logger.With().Str("component", "notify").Logger()
	} else {
		n.log = zerolog.Nop()
	}
	n.log.Info().Str("bot", api.Self.UserName).Msg("telegram notifier ready")
	return n, nil
}

// Bind subscribes the notifier to booking events on the bus.
func (n *TelegramNotifier) Bind(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, n.onEvent("🆕 งานใหม่"))
	bus.Subscribe(events.EventBookingCancelled, n.onEvent("❌ ยกเลิกงาน"))
	bus.Subscribe(events.EventBookingStatusChanged, n.onEvent("🔄 อัปเดตสถานะ"))
	bus.Subscribe(events.EventBookingDeleted, n.onEvent("🗑 ลบงาน"))
}

func (n *TelegramNotifier) onEvent(title string) events.EventHandler {
	return func(event *events.Event) error {
		var p events.BookingEventPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			n.log.Error().Err(err).Str("event", event.Type).Msg("decode event payload")
			return err
		}

		text := fmt.Sprintf("%s #%d\n%s (%s)\n%s\n%s | %s",
			title, p.BookingID,
			p.CustomerName, p.Phone,
			p.ServiceType,
			p.BookingDate.Format("02.01.2006 15:04"), p.Status)

		msg := tgbotapi.NewMessage(n.chatID, text)
		if _, err := n.api.Send(msg); err != nil {
			n.log.Error().Err(err).Int64("booking_id", p.BookingID).Msg("send telegram notification")
			return err
		}
		return nil
	}
}
