package bus

// InboundMessage is one formatted chat event produced by a backend
// listener, on its way to the Telegram forwarder. Messages from a single
// backend are published in receipt order.
type InboundMessage struct {
	Backend string `json:"backend"`
	Kind    string `json:"kind"` // "message" | "notice" | "raw"
	Content string `json:"content"`
	Time    int64  `json:"time,omitempty"`
}
