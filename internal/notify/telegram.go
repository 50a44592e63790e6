package notify

import (
	"context"
	"fmt"

	"staybook/internal/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramNotifier pushes operator alerts to one or more chats. It only
// sends; no update polling.
type TelegramNotifier struct {
	bot     *tgbotapi.BotAPI
	chatIDs []int64
	logger  *zerolog.Logger
}

func NewTelegramNotifier(cfg config.TelegramConfig, logger *zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	logger.Info().Str("bot", bot.Self.UserName).Int("chats", len(cfg.AlertChatIDs)).Msg("telegram notifier ready")
	return &TelegramNotifier{
		bot:     bot,
		chatIDs: cfg.AlertChatIDs,
		logger:  logger,
	}, nil
}

func (n *TelegramNotifier) Alert(ctx context.Context, text string) error {
	var lastErr error
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.bot.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send alert")
			lastErr = err
		}
	}
	return lastErr
}
