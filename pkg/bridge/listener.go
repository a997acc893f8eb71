package bridge

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhufengning/qtbridge/pkg/bus"
	"github.com/zhufengning/qtbridge/pkg/config"
	"github.com/zhufengning/qtbridge/pkg/logger"
	"github.com/zhufengning/qtbridge/pkg/onebot"
	"github.com/zhufengning/qtbridge/pkg/utils"
)

// Listener owns the persistent connection to one OneBot backend: it
// reconnects forever with a fixed delay, decodes each frame, drops
// housekeeping events, and publishes formatted text to the bus. Frames
// from one connection are handled strictly in receipt order.
type Listener struct {
	backend   config.BackendConfig
	formatter *onebot.Formatter
	ignore    onebot.IgnoreSet
	bus       *bus.MessageBus
	interval  time.Duration
	dialer    *websocket.Dialer
}

func NewListener(
	backend config.BackendConfig,
	formatter *onebot.Formatter,
	ignore onebot.IgnoreSet,
	messageBus *bus.MessageBus,
	reconnectInterval time.Duration,
) *Listener {
	if reconnectInterval <= 0 {
		reconnectInterval = 5 * time.Second
	}

	return &Listener{
		backend:   backend,
		formatter: formatter,
		ignore:    ignore,
		bus:       messageBus,
		interval:  reconnectInterval,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Run connects and streams until ctx is cancelled. Connection errors
// are never fatal: the listener logs, waits the fixed interval, and
// dials again.
func (l *Listener) Run(ctx context.Context) {
	logger.InfoCF("listener", "Starting backend listener", map[string]interface{}{
		"backend": l.backend.Name,
		"ws_url":  l.backend.WSUrl,
	})

	for {
		if err := l.connectAndStream(ctx); err != nil {
			logger.ErrorCF("listener", "Connection lost", map[string]interface{}{
				"backend": l.backend.Name,
				"error":   err.Error(),
			})
		}

		select {
		case <-ctx.Done():
			logger.InfoCF("listener", "Listener stopped", map[string]interface{}{
				"backend": l.backend.Name,
			})
			return
		case <-time.After(l.interval):
		}
	}
}

func (l *Listener) connectAndStream(ctx context.Context) error {
	header := http.Header{}
	if l.backend.AccessToken != "" {
		header.Set("Authorization", "Bearer "+l.backend.AccessToken)
	}

	conn, _, err := l.dialer.DialContext(ctx, l.backend.WSUrl, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.InfoCF("listener", "WebSocket connected", map[string]interface{}{
		"backend": l.backend.Name,
	})

	// Unblock the blocking read when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		// A malformed frame must not tear the connection down; handle
		// inline (not in a goroutine) to preserve receipt order.
		l.handleFrame(ctx, frame)
	}
}

func (l *Listener) handleFrame(ctx context.Context, frame []byte) {
	evt, err := onebot.DecodeEvent(frame)
	if err != nil {
		logger.WarnCF("listener", "Dropping malformed frame", map[string]interface{}{
			"backend": l.backend.Name,
			"error":   err.Error(),
			"payload": utils.Truncate(string(frame), 200),
		})
		return
	}

	// Stray responses to api calls made elsewhere carry an echo and no
	// post_type; they are not chat events.
	if evt.Echo != "" && evt.PostType == "" {
		logger.DebugCF("listener", "Skipping response frame", map[string]interface{}{
			"backend": l.backend.Name,
			"echo":    evt.Echo,
		})
		return
	}

	if onebot.ShouldIgnore(evt, l.ignore) {
		logger.DebugCF("listener", "Ignoring meta event", map[string]interface{}{
			"backend":         l.backend.Name,
			"meta_event_type": evt.MetaEventType,
		})
		return
	}

	content := l.formatter.FormatEvent(evt)

	kind := "raw"
	switch onebot.Classify(evt) {
	case onebot.KindPrivateMessage, onebot.KindGroupMessage:
		kind = "message"
	case onebot.KindNotice:
		kind = "notice"
	}

	msg := bus.InboundMessage{
		Backend: l.backend.Name,
		Kind:    kind,
		Content: content,
		Time:    onebot.Int64Field(evt.Time),
	}

	if err := l.bus.PublishInbound(ctx, msg); err != nil {
		logger.WarnCF("listener", "Failed to publish inbound message", map[string]interface{}{
			"backend": l.backend.Name,
			"error":   err.Error(),
		})
		return
	}

	logger.InfoCF("listener", "Forwarded event", map[string]interface{}{
		"backend": l.backend.Name,
		"kind":    kind,
		"content": utils.Truncate(content, 100),
	})
}
