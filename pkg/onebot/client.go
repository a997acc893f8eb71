package onebot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhufengning/qtbridge/pkg/config"
	"github.com/zhufengning/qtbridge/pkg/logger"
)

// ErrResponseTimeout marks a dispatch that connected and sent its
// request but never saw a matching response frame within the deadline.
// It is distinct from connection failures so callers can tell a dead
// backend from a slow one.
var ErrResponseTimeout = errors.New("timed out waiting for response")

type APIRequest struct {
	Action string      `json:"action"`
	Params interface{} `json:"params"`
	Echo   string      `json:"echo,omitempty"`
}

type APIResponse struct {
	Status  string          `json:"status"`
	RetCode json.RawMessage `json:"retcode"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Wording string          `json:"wording"`
	Echo    string          `json:"echo"`
}

// Err converts a failed backend status into an error.
func (r *APIResponse) Err() error {
	if r.Status == "" || r.Status == "ok" || r.Status == "async" {
		return nil
	}
	detail := r.Message
	if r.Wording != "" {
		detail = r.Wording
	}
	return fmt.Errorf("backend returned status %q retcode %s: %s", r.Status, string(r.RetCode), detail)
}

// Client dispatches action requests to one OneBot backend. Every Call
// opens its own WebSocket connection, so concurrent calls never share a
// socket and cannot steal each other's responses.
type Client struct {
	Name          string
	URL           string
	AccessToken   string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration

	dialer  *websocket.Dialer
	sleep   func(time.Duration)
	newEcho func() string
}

func NewClient(backend config.BackendConfig, cfg config.OneBotConfig) *Client {
	timeout := time.Duration(cfg.APITimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	attempts := cfg.SendRetryAttempts
	if attempts <= 0 {
		attempts = 3
	}

	delay := time.Duration(cfg.SendRetryDelaySeconds) * time.Second
	if delay <= 0 {
		delay = 2 * time.Second
	}

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		Name:          backend.Name,
		URL:           backend.WSUrl,
		AccessToken:   backend.AccessToken,
		Timeout:       timeout,
		RetryAttempts: attempts,
		RetryDelay:    delay,
		dialer:        dialer,
		sleep:         time.Sleep,
		newEcho:       uuid.NewString,
	}
}

// Call performs one request/response round trip. Asynchronous event
// frames (anything carrying a post_type) and responses whose echo does
// not match are discarded; the first frame with the matching echo is the
// response.
func (c *Client) Call(ctx context.Context, action string, params interface{}) (*APIResponse, error) {
	header := http.Header{}
	if c.AccessToken != "" {
		header.Set("Authorization", "Bearer "+c.AccessToken)
	}

	conn, _, err := c.dialer.DialContext(ctx, c.URL, header)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", c.URL, err)
	}
	defer conn.Close()

	echo := c.newEcho()
	payload, err := json.Marshal(APIRequest{Action: action, Params: params, Echo: echo})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	logger.DebugCF("onebot", "Dispatching action", map[string]interface{}{
		"backend": c.Name,
		"action":  action,
		"echo":    echo,
	})

	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	deadline := time.Now().Add(c.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := conn.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("set read deadline: %w", err)
		}

		_, frame, err := conn.ReadMessage()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return nil, fmt.Errorf("%w: action=%s backend=%s", ErrResponseTimeout, action, c.Name)
			}
			return nil, fmt.Errorf("read response: %w", err)
		}

		var probe struct {
			PostType string `json:"post_type"`
			Echo     string `json:"echo"`
		}
		if err := json.Unmarshal(frame, &probe); err != nil {
			logger.WarnCF("onebot", "Dropping undecodable frame while waiting for response", map[string]interface{}{
				"backend": c.Name,
				"error":   err.Error(),
			})
			continue
		}

		// Lifecycle/heartbeat and other event frames interleave freely
		// with responses on the same socket.
		if probe.PostType != "" {
			logger.DebugCF("onebot", "Skipping event frame while waiting for response", map[string]interface{}{
				"backend":   c.Name,
				"post_type": probe.PostType,
			})
			continue
		}

		if probe.Echo != echo {
			logger.DebugCF("onebot", "Skipping response with foreign echo", map[string]interface{}{
				"backend": c.Name,
				"echo":    probe.Echo,
			})
			continue
		}

		var resp APIResponse
		if err := json.Unmarshal(frame, &resp); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return &resp, nil
	}
}

// CallWithRetry wraps Call with the bounded fixed-delay retry policy
// used for the primary send path. After the final attempt the last
// error propagates unchanged.
func (c *Client) CallWithRetry(ctx context.Context, action string, params interface{}) (*APIResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= c.RetryAttempts; attempt++ {
		resp, err := c.Call(ctx, action, params)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		logger.WarnCF("onebot", "Action attempt failed", map[string]interface{}{
			"backend": c.Name,
			"action":  action,
			"attempt": attempt,
			"error":   err.Error(),
		})

		if attempt < c.RetryAttempts {
			c.sleep(c.RetryDelay)
		}
	}

	return nil, fmt.Errorf("action %s failed after %d attempts: %w", action, c.RetryAttempts, lastErr)
}
