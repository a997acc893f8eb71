package onebot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Action names from the OneBot v11 catalog the bridge uses.
const (
	ActionSendPrivateMsg    = "send_private_msg"
	ActionSendGroupMsg      = "send_group_msg"
	ActionDeletePrivateMsg  = "delete_private_msg"
	ActionDeleteGroupMsg    = "delete_group_msg"
	ActionGetPrivateMsg     = "get_private_msg"
	ActionGetGroupMsg       = "get_group_msg"
	ActionForwardPrivateMsg = "forward_private_msg"
	ActionForwardGroupMsg   = "forward_group_msg"

	ActionGetLoginInfo       = "get_login_info"
	ActionGetStrangerInfo    = "get_stranger_info"
	ActionGetFriendList      = "get_friend_list"
	ActionGetGroupInfo       = "get_group_info"
	ActionGetGroupList       = "get_group_list"
	ActionGetGroupMemberInfo = "get_group_member_info"
	ActionGetGroupMemberList = "get_group_member_list"
	ActionGetRecord          = "get_record"
	ActionGetImage           = "get_image"
	ActionCanSendImage       = "can_send_image"
	ActionCanSendRecord      = "can_send_record"
	ActionGetStatus          = "get_status"
	ActionGetVersionInfo     = "get_version_info"
)

// ErrInvalidTarget marks a target identifier without a user_/group_
// prefix. It is surfaced to the operator and never dispatched.
var ErrInvalidTarget = errors.New("target must start with user_ or group_")

type TargetKind int

const (
	TargetUser TargetKind = iota
	TargetGroup
)

// Target is a parsed message destination.
type Target struct {
	Kind TargetKind
	ID   int64
}

// ParseTarget decodes the operator-facing target convention: "user_123"
// addresses a private chat, "group_456" a group.
func ParseTarget(s string) (Target, error) {
	var kind TargetKind
	var rest string

	switch {
	case strings.HasPrefix(s, "user_"):
		kind = TargetUser
		rest = strings.TrimPrefix(s, "user_")
	case strings.HasPrefix(s, "group_"):
		kind = TargetGroup
		rest = strings.TrimPrefix(s, "group_")
	default:
		return Target{}, fmt.Errorf("%w: %q", ErrInvalidTarget, s)
	}

	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return Target{}, fmt.Errorf("invalid numeric id in target %q: %w", s, err)
	}

	return Target{Kind: kind, ID: id}, nil
}

func (t Target) String() string {
	if t.Kind == TargetGroup {
		return "group_" + strconv.FormatInt(t.ID, 10)
	}
	return "user_" + strconv.FormatInt(t.ID, 10)
}

// params returns the id parameter every target-addressed action carries.
func (t Target) params() map[string]interface{} {
	if t.Kind == TargetGroup {
		return map[string]interface{}{"group_id": t.ID}
	}
	return map[string]interface{}{"user_id": t.ID}
}

func (t Target) pick(private, group string) string {
	if t.Kind == TargetGroup {
		return group
	}
	return private
}

// SendMessageRequest builds the action and params for sending message
// text to a target.
func SendMessageRequest(t Target, message string) (string, map[string]interface{}) {
	params := t.params()
	params["message"] = message
	return t.pick(ActionSendPrivateMsg, ActionSendGroupMsg), params
}

// DeleteMessageRequest builds the recall request for a message id in the
// target chat.
func DeleteMessageRequest(t Target, messageID string) (string, map[string]interface{}) {
	params := t.params()
	params["message_id"] = messageParam(messageID)
	return t.pick(ActionDeletePrivateMsg, ActionDeleteGroupMsg), params
}

// GetMessageRequest builds the message lookup request.
func GetMessageRequest(t Target, messageID string) (string, map[string]interface{}) {
	params := t.params()
	params["message_id"] = messageParam(messageID)
	return t.pick(ActionGetPrivateMsg, ActionGetGroupMsg), params
}

// ForwardMessageRequest builds the forward request for an existing
// message id into the target chat.
func ForwardMessageRequest(t Target, messageID string) (string, map[string]interface{}) {
	params := t.params()
	params["message_id"] = messageParam(messageID)
	return t.pick(ActionForwardPrivateMsg, ActionForwardGroupMsg), params
}

// messageParam keeps numeric message ids numeric on the wire; some
// backends reject string ids.
func messageParam(id string) interface{} {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}
