package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhufengning/qtbridge/pkg/config"
)

func testDispatcherConfig(wsURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.OneBot.Backends = []config.BackendConfig{
		{Name: "backend1", WSUrl: wsURL},
	}
	cfg.OneBot.SendRetryAttempts = 1
	return cfg
}

func TestExecute_HelpAndUnknownCommand(t *testing.T) {
	d := NewDispatcher(testDispatcherConfig("ws://127.0.0.1:1"))
	ctx := context.Background()

	help := d.Execute(ctx, "/start")
	assert.Contains(t, help, "可用命令")
	assert.Contains(t, help, "backend1")

	// Telegram group chats suffix commands with the bot username.
	assert.Equal(t, help, d.Execute(ctx, "/start@qtbridge_bot"))

	assert.Contains(t, d.Execute(ctx, "/frobnicate"), "未知命令")
	assert.Contains(t, d.Execute(ctx, ""), "可用命令")
}

func TestExecute_ValidationNeverDispatches(t *testing.T) {
	// The URL is unroutable on purpose: if validation leaks through to a
	// dial, the test fails on the error text instead of the usage text.
	d := NewDispatcher(testDispatcherConfig("ws://127.0.0.1:1"))
	ctx := context.Background()

	assert.Contains(t, d.Execute(ctx, "/send nosuch user_1 hi"), "无效的后端选择")
	assert.Contains(t, d.Execute(ctx, "/send backend1 12345 hi"), "user_ 或 group_")
	assert.Contains(t, d.Execute(ctx, "/send backend1 user_1"), "请使用格式 /send")
	assert.Contains(t, d.Execute(ctx, "/delete backend1 user_1"), "请使用格式")
	assert.Contains(t, d.Execute(ctx, "/get backend1 notatarget 42"), "user_ 或 group_")
	assert.Contains(t, d.Execute(ctx, "/get_stranger_info backend1"), "请使用格式 /get_stranger_info")
	assert.Contains(t, d.Execute(ctx, "/get_group_member_info nosuch 1 2"), "无效的后端选择")
}

func TestExecute_SendKeepsMessageSpacing(t *testing.T) {
	type captured struct {
		Action string                 `json:"action"`
		Params map[string]interface{} `json:"params"`
		Echo   string                 `json:"echo"`
	}
	got := make(chan captured, 1)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req captured
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		got <- req
		conn.WriteJSON(map[string]interface{}{"status": "ok", "retcode": 0, "echo": req.Echo})
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	d := NewDispatcher(testDispatcherConfig(wsURL))

	reply := d.Execute(context.Background(), "/send backend1 user_9 hello onebot world")
	assert.Contains(t, reply, "消息已发送到 user_9")

	req := <-got
	require.Equal(t, "send_private_msg", req.Action)
	assert.Equal(t, "hello onebot world", req.Params["message"])
	assert.Equal(t, float64(9), req.Params["user_id"])
}

func TestExecute_InfoCommandRendersData(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req struct {
			Action string          `json:"action"`
			Params json.RawMessage `json:"params"`
			Echo   string          `json:"echo"`
		}
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		conn.WriteJSON(map[string]interface{}{
			"status":  "ok",
			"retcode": 0,
			"data":    map[string]interface{}{"user_id": 1, "nickname": "bot"},
			"echo":    req.Echo,
		})
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	d := NewDispatcher(testDispatcherConfig(wsURL))

	reply := d.Execute(context.Background(), "/get_login_info backend1")
	assert.Contains(t, reply, "执行成功")
	assert.Contains(t, reply, `"nickname": "bot"`)
}
