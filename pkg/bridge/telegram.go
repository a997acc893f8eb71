package bridge

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/zhufengning/qtbridge/pkg/bus"
	"github.com/zhufengning/qtbridge/pkg/logger"
	"github.com/zhufengning/qtbridge/pkg/utils"
)

// telegramSender is the subset of tgbotapi.BotAPI the forwarder needs;
// tests substitute a recorder.
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Forwarder drains the bus and delivers formatted messages to the fixed
// destination Telegram chat.
type Forwarder struct {
	bot    telegramSender
	chatID int64
	bus    *bus.MessageBus
}

func NewForwarder(bot *tgbotapi.BotAPI, chatID int64, messageBus *bus.MessageBus) *Forwarder {
	return &Forwarder{bot: bot, chatID: chatID, bus: messageBus}
}

// Run consumes until ctx is cancelled. Delivery failures are logged and
// the message dropped; they never stop the loop.
func (f *Forwarder) Run(ctx context.Context) {
	logger.InfoCF("telegram", "Forwarder started", map[string]interface{}{
		"chat_id": f.chatID,
	})

	for {
		msg, ok := f.bus.ConsumeInbound(ctx)
		if !ok {
			if ctx.Err() != nil {
				logger.InfoC("telegram", "Forwarder stopped")
				return
			}
			continue
		}
		f.deliver(msg)
	}
}

func (f *Forwarder) deliver(msg bus.InboundMessage) {
	out := tgbotapi.NewMessage(f.chatID, msg.Content)
	out.ParseMode = tgbotapi.ModeMarkdown

	if _, err := f.bot.Send(out); err != nil {
		// Markdown parse failures are common with raw chat text; retry
		// the same content as plain text before giving up.
		logger.WarnCF("telegram", "Markdown send failed, retrying as plain text", map[string]interface{}{
			"backend": msg.Backend,
			"error":   err.Error(),
		})

		plain := tgbotapi.NewMessage(f.chatID, msg.Content)
		if _, err := f.bot.Send(plain); err != nil {
			logger.ErrorCF("telegram", "Failed to deliver message", map[string]interface{}{
				"backend": msg.Backend,
				"error":   err.Error(),
				"content": utils.Truncate(msg.Content, 100),
			})
			return
		}
	}

	logger.InfoCF("telegram", "Message delivered", map[string]interface{}{
		"backend": msg.Backend,
		"kind":    msg.Kind,
	})
}
