package onebot

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// RawEvent is one frame pushed by a OneBot backend. Numeric ids arrive as
// numbers from some implementations and as strings from others, so they
// are kept as json.RawMessage and parsed tolerantly.
type RawEvent struct {
	PostType      string          `json:"post_type"`
	MessageType   string          `json:"message_type"`
	SubType       string          `json:"sub_type"`
	NoticeType    string          `json:"notice_type"`
	MetaEventType string          `json:"meta_event_type"`
	MessageID     json.RawMessage `json:"message_id"`
	UserID        json.RawMessage `json:"user_id"`
	OperatorID    json.RawMessage `json:"operator_id"`
	TargetID      json.RawMessage `json:"target_id"`
	GroupID       json.RawMessage `json:"group_id"`
	SelfID        json.RawMessage `json:"self_id"`
	Duration      json.RawMessage `json:"duration"`
	File          *FileInfo       `json:"file"`
	HonorType     string          `json:"honor_type"`
	StatusText    string          `json:"status_text"`
	RawMessage    string          `json:"raw_message"`
	Message       json.RawMessage `json:"message"`
	Sender        *Sender         `json:"sender"`
	Time          json.RawMessage `json:"time"`
	Echo          string          `json:"echo"`

	// Frame keeps the undecoded payload for the fallback dump formatter.
	Frame []byte `json:"-"`
}

type Sender struct {
	UserID   json.RawMessage `json:"user_id"`
	Nickname string          `json:"nickname"`
	Card     string          `json:"card"`
}

// FileInfo is the file payload attached to group upload notices.
type FileInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Segment is one typed unit of a message body. Data holds the type-
// specific fields exactly as the backend sent them.
type Segment struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// Str reads a data field as a string, converting numbers without a
// trailing ".0". Missing fields yield "".
func (s Segment) Str(key string) string {
	if s.Data == nil {
		return ""
	}
	return dataString(s.Data[key])
}

func dataString(v interface{}) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// DecodeEvent parses one WebSocket frame into a RawEvent, keeping the
// original payload for the fallback formatter.
func DecodeEvent(frame []byte) (*RawEvent, error) {
	var evt RawEvent
	if err := json.Unmarshal(frame, &evt); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	evt.Frame = frame
	return &evt, nil
}

// Segments returns the ordered message body. Backends send either a
// segment array or a CQ-code string; both normalize to []Segment.
func (e *RawEvent) Segments() []Segment {
	return ParseSegments(e.Message)
}

func ParseSegments(raw json.RawMessage) []Segment {
	if len(raw) == 0 {
		return nil
	}

	var segs []Segment
	if err := json.Unmarshal(raw, &segs); err == nil {
		return segs
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseCQSegments(s)
	}

	return nil
}

var cqPattern = regexp.MustCompile(`\[CQ:([a-zA-Z0-9_]+)(?:,([^\]]*))?\]`)

// parseCQSegments splits a CQ-code string into segments, turning plain
// runs into text segments and each [CQ:...] code into a typed segment.
func parseCQSegments(content string) []Segment {
	matches := cqPattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		if content == "" {
			return nil
		}
		return []Segment{{Type: "text", Data: map[string]interface{}{"text": content}}}
	}

	segments := make([]Segment, 0, len(matches)+1)
	cursor := 0

	for _, m := range matches {
		if m[0] > cursor {
			segments = append(segments, Segment{
				Type: "text",
				Data: map[string]interface{}{"text": content[cursor:m[0]]},
			})
		}

		segType := content[m[2]:m[3]]
		paramsRaw := ""
		if m[4] >= 0 && m[5] >= 0 {
			paramsRaw = content[m[4]:m[5]]
		}

		data := make(map[string]interface{})
		for _, item := range strings.Split(paramsRaw, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			parts := strings.SplitN(item, "=", 2)
			if len(parts) != 2 || parts[0] == "" {
				continue
			}
			data[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}

		segments = append(segments, Segment{Type: segType, Data: data})
		cursor = m[1]
	}

	if cursor < len(content) {
		segments = append(segments, Segment{
			Type: "text",
			Data: map[string]interface{}{"text": content[cursor:]},
		})
	}

	return segments
}

func parseJSONInt64(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, nil
	}

	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseInt(s, 10, 64)
	}
	return 0, fmt.Errorf("cannot parse as int64: %s", string(raw))
}

func parseJSONString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Int64Field parses a flexible-typed numeric field, returning 0 when it
// is absent or malformed.
func Int64Field(raw json.RawMessage) int64 {
	n, _ := parseJSONInt64(raw)
	return n
}

// StringField renders a flexible-typed field as display text.
func StringField(raw json.RawMessage) string {
	return parseJSONString(raw)
}
