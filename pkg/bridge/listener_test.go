package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhufengning/qtbridge/pkg/bus"
	"github.com/zhufengning/qtbridge/pkg/config"
	"github.com/zhufengning/qtbridge/pkg/onebot"
)

func newTestListener(messageBus *bus.MessageBus) *Listener {
	return NewListener(
		config.BackendConfig{Name: "backend1", WSUrl: "ws://127.0.0.1:1"},
		onebot.NewFormatter(onebot.NewTables(nil, map[string]string{"1": "Bot1"}), false),
		onebot.NewIgnoreSet([]string{"heartbeat", "lifecycle"}),
		messageBus,
		time.Second,
	)
}

func tryConsume(t *testing.T, messageBus *bus.MessageBus) (bus.InboundMessage, bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	return messageBus.ConsumeInbound(ctx)
}

func TestHandleFrame_PublishesFormattedMessage(t *testing.T) {
	messageBus := bus.NewMessageBus()
	l := newTestListener(messageBus)

	l.handleFrame(context.Background(), []byte(`{
		"post_type": "message",
		"message_type": "private",
		"self_id": 1,
		"sender": {"user_id": 9, "nickname": "A"},
		"raw_message": "hi",
		"message": [{"type":"text","data":{"text":"hi"}}]
	}`))

	msg, ok := tryConsume(t, messageBus)
	require.True(t, ok, "expected a published message")
	assert.Equal(t, "backend1", msg.Backend)
	assert.Equal(t, "message", msg.Kind)
	assert.Contains(t, msg.Content, "Bot1 收到来自 A（用户 ID: 9）的私聊消息")
	assert.True(t, strings.HasSuffix(msg.Content, "hi"))
}

func TestHandleFrame_DropsHousekeepingAndMalformedFrames(t *testing.T) {
	messageBus := bus.NewMessageBus()
	l := newTestListener(messageBus)
	ctx := context.Background()

	l.handleFrame(ctx, []byte(`{"post_type":"meta_event","meta_event_type":"heartbeat"}`))
	l.handleFrame(ctx, []byte(`{"post_type":"meta_event","meta_event_type":"lifecycle","sub_type":"connect"}`))
	l.handleFrame(ctx, []byte(`{not json at all`))
	l.handleFrame(ctx, []byte(`{"status":"ok","retcode":0,"echo":"orphan-response"}`))

	if msg, ok := tryConsume(t, messageBus); ok {
		t.Fatalf("expected nothing on the bus, got %+v", msg)
	}
}

func TestHandleFrame_NoticePublishedAsNotice(t *testing.T) {
	messageBus := bus.NewMessageBus()
	l := newTestListener(messageBus)

	l.handleFrame(context.Background(), []byte(`{
		"post_type": "notice",
		"notice_type": "friend_add",
		"self_id": 1,
		"user_id": 9
	}`))

	msg, ok := tryConsume(t, messageBus)
	require.True(t, ok)
	assert.Equal(t, "notice", msg.Kind)
	assert.Contains(t, msg.Content, "用户 9 已成为好友")
}

func TestRun_StreamsFromBackendAndSurvivesBadFrames(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		frames := []string{
			`{"post_type":"meta_event","meta_event_type":"heartbeat"}`,
			`garbage`,
			`{"post_type":"message","message_type":"private","self_id":1,"sender":{"user_id":9,"nickname":"A"},"raw_message":"still alive","message":"still alive"}`,
		}
		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	messageBus := bus.NewMessageBus()
	l := NewListener(
		config.BackendConfig{Name: "backend1", WSUrl: "ws" + strings.TrimPrefix(srv.URL, "http")},
		onebot.NewFormatter(onebot.NewTables(nil, nil), false),
		onebot.NewIgnoreSet([]string{"heartbeat"}),
		messageBus,
		time.Second,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()

	consumeCtx, consumeCancel := context.WithTimeout(ctx, 2*time.Second)
	defer consumeCancel()
	msg, ok := messageBus.ConsumeInbound(consumeCtx)
	require.True(t, ok, "expected the message after the bad frame to arrive")
	assert.True(t, strings.HasSuffix(msg.Content, "still alive"))

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after context cancellation")
	}
}
