package bridge

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhufengning/qtbridge/pkg/bus"
)

type fakeSender struct {
	sent     []tgbotapi.MessageConfig
	failures int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable type")
	}
	f.sent = append(f.sent, msg)
	if f.failures > 0 {
		f.failures--
		return tgbotapi.Message{}, errors.New("bad request: can't parse entities")
	}
	return tgbotapi.Message{}, nil
}

func TestDeliver_SendsMarkdown(t *testing.T) {
	sender := &fakeSender{}
	f := &Forwarder{bot: sender, chatID: 42}

	f.deliver(bus.InboundMessage{Backend: "backend1", Kind: "message", Content: "**hello**"})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(42), sender.sent[0].ChatID)
	assert.Equal(t, "**hello**", sender.sent[0].Text)
	assert.Equal(t, tgbotapi.ModeMarkdown, sender.sent[0].ParseMode)
}

func TestDeliver_RetriesAsPlainTextOnMarkdownFailure(t *testing.T) {
	sender := &fakeSender{failures: 1}
	f := &Forwarder{bot: sender, chatID: 42}

	f.deliver(bus.InboundMessage{Backend: "backend1", Kind: "message", Content: "broken _markdown"})

	require.Len(t, sender.sent, 2)
	assert.Equal(t, tgbotapi.ModeMarkdown, sender.sent[0].ParseMode)
	assert.Empty(t, sender.sent[1].ParseMode)
	assert.Equal(t, "broken _markdown", sender.sent[1].Text)
}

func TestDeliver_DropsMessageWhenBothAttemptsFail(t *testing.T) {
	sender := &fakeSender{failures: 2}
	f := &Forwarder{bot: sender, chatID: 42}

	// Must not panic or retry beyond the plain-text fallback.
	f.deliver(bus.InboundMessage{Backend: "backend1", Kind: "message", Content: "x"})

	assert.Len(t, sender.sent, 2)
}
