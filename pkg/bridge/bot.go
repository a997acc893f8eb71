package bridge

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/zhufengning/qtbridge/pkg/logger"
	"github.com/zhufengning/qtbridge/pkg/utils"
)

// CommandBot long-polls Telegram for operator commands and feeds them to
// the dispatcher. Only updates from the configured chat are accepted.
type CommandBot struct {
	bot        *tgbotapi.BotAPI
	chatID     int64
	dispatcher *Dispatcher
}

func NewCommandBot(bot *tgbotapi.BotAPI, chatID int64, dispatcher *Dispatcher) *CommandBot {
	return &CommandBot{bot: bot, chatID: chatID, dispatcher: dispatcher}
}

// Run polls until ctx is cancelled.
func (b *CommandBot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.bot.GetUpdatesChan(u)

	logger.InfoCF("bot", "Command bot started", map[string]interface{}{
		"username": b.bot.Self.UserName,
		"chat_id":  b.chatID,
	})

	go func() {
		<-ctx.Done()
		b.bot.StopReceivingUpdates()
	}()

	for update := range updates {
		if ctx.Err() != nil {
			break
		}
		if update.Message == nil {
			continue
		}
		if update.Message.Chat.ID != b.chatID {
			logger.DebugCF("bot", "Ignoring message from foreign chat", map[string]interface{}{
				"chat_id": update.Message.Chat.ID,
			})
			continue
		}
		b.handleMessage(ctx, update.Message)
	}

	logger.InfoC("bot", "Command bot stopped")
}

func (b *CommandBot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	line := strings.TrimSpace(utils.FirstNonEmpty(msg.Text, msg.Caption))
	if line == "" && len(msg.Photo) == 0 {
		return
	}

	// An attached photo becomes an image segment appended to the
	// outgoing text, so "/send backend user_1 look" plus a photo sends
	// text and picture together.
	if len(msg.Photo) > 0 {
		// Photo sizes are ordered smallest first; forward the largest.
		largest := msg.Photo[len(msg.Photo)-1]
		url, err := b.bot.GetFileDirectURL(largest.FileID)
		if err != nil {
			logger.WarnCF("bot", "Failed to resolve photo URL", map[string]interface{}{
				"file_id": largest.FileID,
				"error":   err.Error(),
			})
			b.reply(msg, "无法获取图片文件，已放弃本次发送。")
			return
		}
		line += fmt.Sprintf("[CQ:image,file=%s]", url)
	}

	if !strings.HasPrefix(line, "/") {
		b.reply(msg, "请以 / 开头输入命令，发送 /start 查看用法。")
		return
	}

	b.reply(msg, b.dispatcher.Execute(ctx, line))
}

func (b *CommandBot) reply(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID

	if _, err := b.bot.Send(out); err != nil {
		logger.ErrorCF("bot", "Failed to send reply", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
