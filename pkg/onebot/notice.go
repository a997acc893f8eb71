package onebot

import (
	"fmt"
	"strconv"
	"strings"
)

// formatNotice renders notice events. Every (notice_type, sub_type)
// combination degrades to a literal "unhandled" line rather than
// failing, matching the graceful-degradation policy of the rest of the
// formatter.
func (f *Formatter) formatNotice(evt *RawEvent) string {
	bot := f.Tables.BotName(Int64Field(evt.SelfID))
	return fmt.Sprintf("**%s 通知**\n%s", bot, f.noticeBody(evt))
}

func (f *Formatter) noticeBody(evt *RawEvent) string {
	userID := StringField(evt.UserID)
	groupID := StringField(evt.GroupID)

	switch evt.NoticeType {
	case "group_upload":
		name := ""
		if evt.File != nil {
			name = evt.File.Name
		}
		return fmt.Sprintf("群 %s 的用户 %s 上传了文件: %s", groupID, userID, name)

	case "group_admin":
		switch evt.SubType {
		case "set":
			return fmt.Sprintf("群 %s 的用户 %s 被设为管理员", groupID, userID)
		case "unset":
			return fmt.Sprintf("群 %s 的用户 %s 被取消管理员", groupID, userID)
		}

	case "group_increase":
		switch evt.SubType {
		case "invite":
			return fmt.Sprintf("用户 %s 被邀请加入了群 %s", userID, groupID)
		default:
			return fmt.Sprintf("用户 %s 加入了群 %s", userID, groupID)
		}

	case "group_decrease":
		switch evt.SubType {
		case "leave":
			return fmt.Sprintf("用户 %s 退出了群 %s", userID, groupID)
		case "kick":
			return fmt.Sprintf("用户 %s 被移出了群 %s（操作者 %s）", userID, groupID, StringField(evt.OperatorID))
		case "kick_me":
			return fmt.Sprintf("机器人被移出了群 %s（操作者 %s）", groupID, StringField(evt.OperatorID))
		}

	case "group_ban":
		switch evt.SubType {
		case "ban":
			return fmt.Sprintf("群 %s 的用户 %s 被禁言 %s 秒", groupID, userID, StringField(evt.Duration))
		case "lift_ban":
			return fmt.Sprintf("群 %s 的用户 %s 被解除禁言", groupID, userID)
		}

	case "friend_add":
		return fmt.Sprintf("用户 %s 已成为好友", userID)

	case "group_recall":
		return fmt.Sprintf("群 %s 的用户 %s 撤回了消息 %s", groupID, userID, StringField(evt.MessageID))

	case "friend_recall":
		return fmt.Sprintf("好友 %s 撤回了消息 %s", userID, StringField(evt.MessageID))

	case "notify":
		return f.notifyBody(evt)
	}

	return fmt.Sprintf("[未处理的通知类型: %s]", evt.NoticeType)
}

func (f *Formatter) notifyBody(evt *RawEvent) string {
	userID := StringField(evt.UserID)
	groupID := StringField(evt.GroupID)
	targetID := StringField(evt.TargetID)

	switch evt.SubType {
	case "poke":
		return fmt.Sprintf("用户 %s 戳了戳 %s", userID, targetID)
	case "input_status":
		return fmt.Sprintf("用户 %s 正在输入: %s", userID, decodeEscapedText(evt.StatusText))
	case "lucky_king":
		return fmt.Sprintf("群 %s 的红包运气王: %s", groupID, targetID)
	case "honor":
		return fmt.Sprintf("群 %s 的用户 %s 获得了「%s」头衔", groupID, userID, honorName(evt.HonorType))
	}

	return fmt.Sprintf("[未处理的通知类型: notify/%s]", evt.SubType)
}

// decodeEscapedText unescapes backend status strings that arrive with
// literal \uXXXX sequences. Anything that does not unquote cleanly is
// shown as-is.
func decodeEscapedText(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	quoted := `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	if decoded, err := strconv.Unquote(quoted); err == nil {
		return decoded
	}
	return s
}
