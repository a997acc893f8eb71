package onebot

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zhufengning/qtbridge/pkg/utils"
)

// Formatter renders inbound events into the display text forwarded to
// Telegram. It holds only immutable lookup tables and never mutates its
// input, so one instance is safe to share across listeners.
type Formatter struct {
	Tables Tables

	// Debug prepends a dump of the raw segment list before the rendered
	// body, matching the bridge's historical diagnostic output.
	Debug bool
}

func NewFormatter(tables Tables, debug bool) *Formatter {
	return &Formatter{Tables: tables, Debug: debug}
}

// FormatEvent renders any non-ignored event. It is total: an event shape
// it does not recognize falls through to the raw dump.
func (f *Formatter) FormatEvent(evt *RawEvent) string {
	switch Classify(evt) {
	case KindPrivateMessage:
		return f.formatPrivateMessage(evt)
	case KindGroupMessage:
		return f.formatGroupMessage(evt)
	case KindNotice:
		return f.formatNotice(evt)
	default:
		return f.formatFallback(evt)
	}
}

func (f *Formatter) formatPrivateMessage(evt *RawEvent) string {
	bot := f.Tables.BotName(Int64Field(evt.SelfID))
	nickname, userID := senderIdentity(evt)

	var b strings.Builder
	fmt.Fprintf(&b, "**%s 收到来自 %s（用户 ID: %s）的私聊消息：**\n", bot, nickname, userID)
	b.WriteString(f.FormatMessageContent(evt.RawMessage, evt.Segments()))
	return b.String()
}

func (f *Formatter) formatGroupMessage(evt *RawEvent) string {
	bot := f.Tables.BotName(Int64Field(evt.SelfID))
	nickname, userID := senderIdentity(evt)
	groupID := StringField(evt.GroupID)

	var b strings.Builder
	fmt.Fprintf(&b, "**%s 收到群组 %s 的消息**\n", bot, groupID)
	fmt.Fprintf(&b, "来自 %s（用户 ID: %s）：\n", nickname, userID)
	b.WriteString(f.FormatMessageContent(evt.RawMessage, evt.Segments()))
	return b.String()
}

// formatFallback pretty-prints the whole frame. It is the catch-all for
// unrecognized event shapes and must never fail.
func (f *Formatter) formatFallback(evt *RawEvent) string {
	var generic map[string]interface{}
	if err := json.Unmarshal(evt.Frame, &generic); err == nil {
		if pretty, err := json.MarshalIndent(generic, "", "  "); err == nil {
			return "收到来自 OneBot 的消息: " + string(pretty)
		}
	}
	return "收到来自 OneBot 的消息: " + string(evt.Frame)
}

func senderIdentity(evt *RawEvent) (nickname, userID string) {
	nickname = "未知"
	userID = "未知"
	if evt.Sender != nil {
		nickname = utils.FirstNonEmpty(evt.Sender.Card, evt.Sender.Nickname, nickname)
		if id := StringField(evt.Sender.UserID); id != "" {
			userID = id
		}
	}
	if userID == "未知" {
		if id := StringField(evt.UserID); id != "" {
			userID = id
		}
	}
	return nickname, userID
}

// FormatMessageContent renders an ordered segment list into one display
// string. It is deterministic and total: unknown segment types are
// skipped, known types with missing fields degrade to placeholders, and
// nothing here can fail a message.
func (f *Formatter) FormatMessageContent(rawText string, segments []Segment) string {
	if len(segments) == 0 {
		return rawText
	}

	var b strings.Builder
	if f.Debug {
		fmt.Fprintf(&b, "%+v\n", segments)
	}
	for _, seg := range segments {
		b.WriteString(f.renderSegment(seg))
	}
	return b.String()
}

func (f *Formatter) renderSegment(seg Segment) string {
	switch seg.Type {
	case "text":
		// Text runs are appended verbatim; trimming would merge words
		// across segment boundaries.
		if s, ok := seg.Data["text"].(string); ok {
			return s
		}
		return seg.Str("text")
	case "face":
		id := seg.Str("id")
		return fmt.Sprintf("[表情 %s: %s]", id, f.Tables.FaceName(id))
	case "image":
		name := imageDisplayName(seg.Str("file"))
		link := utils.FirstNonEmpty(seg.Str("url"), seg.Str("file"))
		return fmt.Sprintf("[图片:%s](%s)", name, link)
	case "record":
		return fmt.Sprintf("[语音: %s]", utils.FirstNonEmpty(seg.Str("url"), seg.Str("file")))
	case "video":
		return fmt.Sprintf("[视频: %s]", utils.FirstNonEmpty(seg.Str("url"), seg.Str("file")))
	case "at":
		if qq := seg.Str("qq"); qq == "all" {
			return "@全体成员 "
		} else {
			return "@" + qq + " "
		}
	case "rps":
		return "[猜拳]"
	case "dice":
		return "[掷骰子]"
	case "shake":
		return "[窗口抖动]"
	case "anonymous":
		return "[匿名消息]"
	case "poke":
		return fmt.Sprintf("[戳一戳: type=%s, id=%s]", seg.Str("type"), seg.Str("id"))
	case "share":
		return renderShare(seg)
	case "contact":
		return fmt.Sprintf("[推荐%s: %s]", seg.Str("type"), seg.Str("id"))
	case "location":
		return renderLocation(seg)
	case "music":
		return renderMusic(seg)
	case "reply":
		return fmt.Sprintf("[回复消息%s: ]", seg.Str("id"))
	case "forward":
		return fmt.Sprintf("[合并转发: %s]", seg.Str("id"))
	case "node":
		return f.renderNode(seg)
	case "xml":
		return fmt.Sprintf("[XML消息: %s]", seg.Str("data"))
	case "json":
		return fmt.Sprintf("[JSON消息: %s]", seg.Str("data"))
	default:
		// Unknown segment types are silently skipped.
		return ""
	}
}

// imageDisplayName strips go-cqhttp's 3-part cache prefix from uploaded
// filenames ("<hash>_<hash>_<hash>_realname.jpg"), keeping the original
// name when no such prefix exists.
func imageDisplayName(file string) string {
	parts := strings.Split(file, "_")
	if len(parts) >= 4 {
		return strings.Join(parts[3:], "_")
	}
	return file
}

func renderShare(seg Segment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[分享: %s](%s)", seg.Str("title"), seg.Str("url"))
	if content := seg.Str("content"); content != "" {
		b.WriteString(" - " + content)
	}
	if image := seg.Str("image"); image != "" {
		b.WriteString("\n![分享图片](" + image + ")")
	}
	return b.String()
}

func renderLocation(seg Segment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[位置: %s (%s, %s)]", seg.Str("title"), seg.Str("lat"), seg.Str("lon"))
	if content := seg.Str("content"); content != "" {
		b.WriteString(" - " + content)
	}
	return b.String()
}

func renderMusic(seg Segment) string {
	if seg.Str("type") != "custom" {
		return fmt.Sprintf("[音乐: %s (%s)]", seg.Str("title"), seg.Str("type"))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[音乐: %s](%s)", seg.Str("title"), seg.Str("url"))
	if audio := seg.Str("audio"); audio != "" {
		b.WriteString("\n[播放链接](" + audio + ")")
	}
	if content := seg.Str("content"); content != "" {
		b.WriteString("\n" + content)
	}
	if image := seg.Str("image"); image != "" {
		b.WriteString("\n![音乐封面](" + image + ")")
	}
	return b.String()
}

// renderNode renders one forwarded-message node: a header naming the
// original sender, then the node's text and face sub-segments. Nesting
// deeper than one level is deliberately not followed.
func (f *Formatter) renderNode(seg Segment) string {
	nickname := utils.FirstNonEmpty(seg.Str("nickname"), seg.Str("name"), "未知")
	userID := utils.FirstNonEmpty(seg.Str("user_id"), seg.Str("uin"))

	var b strings.Builder
	fmt.Fprintf(&b, "[转发节点 %s(%s)]:\n", nickname, userID)

	content, ok := seg.Data["content"].([]interface{})
	if !ok {
		return b.String()
	}
	for _, item := range content {
		sub, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		subType, _ := sub["type"].(string)
		data, _ := sub["data"].(map[string]interface{})
		inner := Segment{Type: subType, Data: data}
		switch subType {
		case "text":
			b.WriteString(inner.Str("text"))
		case "face":
			id := inner.Str("id")
			fmt.Fprintf(&b, "[表情 %s: %s]", id, f.Tables.FaceName(id))
		}
	}
	b.WriteString("\n")
	return b.String()
}
