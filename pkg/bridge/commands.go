package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/zhufengning/qtbridge/pkg/config"
	"github.com/zhufengning/qtbridge/pkg/logger"
	"github.com/zhufengning/qtbridge/pkg/onebot"
)

// Dispatcher turns operator command lines into OneBot actions and
// renders the backend's reply for the operator. It is shared by the
// Telegram command bot and the local console.
type Dispatcher struct {
	cfg     *config.Config
	clients map[string]*onebot.Client
}

func NewDispatcher(cfg *config.Config) *Dispatcher {
	clients := make(map[string]*onebot.Client, len(cfg.OneBot.Backends))
	for _, backend := range cfg.OneBot.Backends {
		clients[backend.Name] = onebot.NewClient(backend, cfg.OneBot)
	}
	return &Dispatcher{cfg: cfg, clients: clients}
}

// infoCommands maps the parameterless-or-positional "get info" family
// onto its OneBot actions. Positional arguments are converted to
// numbers when they parse as such.
var infoCommands = map[string]struct {
	action string
	params []string
}{
	"get_login_info":        {action: onebot.ActionGetLoginInfo},
	"get_stranger_info":     {action: onebot.ActionGetStrangerInfo, params: []string{"user_id"}},
	"get_friend_list":       {action: onebot.ActionGetFriendList},
	"get_group_info":        {action: onebot.ActionGetGroupInfo, params: []string{"group_id"}},
	"get_group_list":        {action: onebot.ActionGetGroupList},
	"get_group_member_info": {action: onebot.ActionGetGroupMemberInfo, params: []string{"group_id", "user_id"}},
	"get_group_member_list": {action: onebot.ActionGetGroupMemberList, params: []string{"group_id"}},
	"get_record":            {action: onebot.ActionGetRecord, params: []string{"file", "out_format"}},
	"get_image":             {action: onebot.ActionGetImage, params: []string{"file"}},
	"can_send_image":        {action: onebot.ActionCanSendImage},
	"can_send_record":       {action: onebot.ActionCanSendRecord},
	"get_status":            {action: onebot.ActionGetStatus},
	"get_version_info":      {action: onebot.ActionGetVersionInfo},
}

// HelpText is the /start reply and console banner.
func (d *Dispatcher) HelpText() string {
	var b strings.Builder
	b.WriteString("可用命令:\n")
	b.WriteString("  /send <backend> <user_id|group_id> <消息内容>\n")
	b.WriteString("  /delete <backend> <user_id|group_id> <message_id>\n")
	b.WriteString("  /get <backend> <user_id|group_id> <message_id>\n")
	b.WriteString("  /forward <backend> <user_id|group_id> <message_id>\n")
	b.WriteString("  /get_login_info <backend> 等信息查询命令\n")
	b.WriteString("目标 ID 以 user_ 或 group_ 开头，例如 user_12345。\n")
	b.WriteString("可用后端: " + strings.Join(d.cfg.BackendNames(), ", "))
	return b.String()
}

// Execute runs one command line and returns the operator-facing reply.
// Validation errors are reported as text and never reach a backend.
func (d *Dispatcher) Execute(ctx context.Context, line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return d.HelpText()
	}

	fields := strings.Fields(line)
	name := strings.TrimPrefix(fields[0], "/")
	// Telegram appends "@botname" to commands in groups.
	if idx := strings.Index(name, "@"); idx > 0 {
		name = name[:idx]
	}
	args := fields[1:]

	logger.InfoCF("commands", "Executing command", map[string]interface{}{
		"command": name,
		"args":    len(args),
	})

	switch name {
	case "start", "help":
		return d.HelpText()
	case "send":
		return d.execSend(ctx, line)
	case "delete":
		return d.execMessageOp(ctx, args, onebot.DeleteMessageRequest, "删除")
	case "get":
		return d.execMessageOp(ctx, args, onebot.GetMessageRequest, "获取")
	case "forward":
		return d.execMessageOp(ctx, args, onebot.ForwardMessageRequest, "转发")
	}

	if info, ok := infoCommands[name]; ok {
		return d.execInfo(ctx, info.action, info.params, args)
	}

	return "未知命令。发送 /start 查看用法。"
}

func (d *Dispatcher) execSend(ctx context.Context, line string) string {
	// Split off exactly three tokens so the message body keeps its
	// internal spacing.
	parts := strings.SplitN(line, " ", 4)
	if len(parts) < 4 || strings.TrimSpace(parts[3]) == "" {
		return "请使用格式 /send <backend> <user_id|group_id> <消息内容>。"
	}

	client, errText := d.backend(strings.TrimSpace(parts[1]))
	if errText != "" {
		return errText
	}

	target, err := onebot.ParseTarget(strings.TrimSpace(parts[2]))
	if err != nil {
		return "目标 ID 必须以 user_ 或 group_ 开头。"
	}

	message := parts[3]
	action, params := onebot.SendMessageRequest(target, message)

	resp, err := client.CallWithRetry(ctx, action, params)
	if err != nil {
		return fmt.Sprintf("发送消息失败: %v", err)
	}
	if err := resp.Err(); err != nil {
		return fmt.Sprintf("后端拒绝了消息: %v", err)
	}

	return fmt.Sprintf("消息已发送到 %s。", target)
}

type messageRequestFunc func(t onebot.Target, messageID string) (string, map[string]interface{})

func (d *Dispatcher) execMessageOp(ctx context.Context, args []string, build messageRequestFunc, verb string) string {
	if len(args) != 3 {
		return fmt.Sprintf("请使用格式 /<命令> <backend> <user_id|group_id> <message_id> 来%s消息。", verb)
	}

	client, errText := d.backend(args[0])
	if errText != "" {
		return errText
	}

	target, err := onebot.ParseTarget(args[1])
	if err != nil {
		return "目标 ID 必须以 user_ 或 group_ 开头。"
	}

	action, params := build(target, args[2])

	// Only the primary send path retries; message ops are single-shot.
	resp, err := client.Call(ctx, action, params)
	if err != nil {
		return fmt.Sprintf("%s消息失败: %v", verb, err)
	}
	return renderResponse(resp)
}

func (d *Dispatcher) execInfo(ctx context.Context, action string, paramNames, args []string) string {
	if len(args) < 1+len(paramNames) {
		return fmt.Sprintf("请使用格式 /%s <backend>%s。", action, usageSuffix(paramNames))
	}

	client, errText := d.backend(args[0])
	if errText != "" {
		return errText
	}

	params := make(map[string]interface{}, len(paramNames))
	for i, pname := range paramNames {
		value := args[1+i]
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			params[pname] = n
		} else {
			params[pname] = value
		}
	}

	resp, err := client.Call(ctx, action, params)
	if err != nil {
		return fmt.Sprintf("查询失败: %v", err)
	}
	return renderResponse(resp)
}

func usageSuffix(paramNames []string) string {
	if len(paramNames) == 0 {
		return ""
	}
	return " <" + strings.Join(paramNames, "> <") + ">"
}

func (d *Dispatcher) backend(name string) (*onebot.Client, string) {
	client, ok := d.clients[name]
	if !ok {
		return nil, "无效的后端选择。可用后端: " + strings.Join(d.cfg.BackendNames(), ", ")
	}
	return client, ""
}

func renderResponse(resp *onebot.APIResponse) string {
	if err := resp.Err(); err != nil {
		return fmt.Sprintf("后端返回错误: %v", err)
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return "执行成功。"
	}

	var generic interface{}
	if err := json.Unmarshal(resp.Data, &generic); err == nil {
		if pretty, err := json.MarshalIndent(generic, "", "  "); err == nil {
			return "执行成功:\n" + string(pretty)
		}
	}
	return "执行成功:\n" + string(resp.Data)
}
