package onebot

// EventKind selects which formatter variant applies to an event.
type EventKind int

const (
	KindPrivateMessage EventKind = iota
	KindGroupMessage
	KindNotice
	KindFallback
)

// IgnoreSet holds the meta_event_type values that are dropped without
// formatting (heartbeat and lifecycle noise by default).
type IgnoreSet map[string]struct{}

func NewIgnoreSet(types []string) IgnoreSet {
	set := make(IgnoreSet, len(types))
	for _, t := range types {
		if t == "" {
			continue
		}
		set[t] = struct{}{}
	}
	return set
}

// ShouldIgnore reports whether an inbound event is connection
// housekeeping that must not be forwarded. Only meta events with a
// listed subtype are suppressed; everything else passes through.
func ShouldIgnore(evt *RawEvent, ignore IgnoreSet) bool {
	if evt.PostType != "meta_event" {
		return false
	}
	_, listed := ignore[evt.MetaEventType]
	return listed
}

// Classify picks the formatter variant for an event. Anything that is
// not a private message, group message or notice falls through to the
// raw-dump formatter.
func Classify(evt *RawEvent) EventKind {
	switch evt.PostType {
	case "message":
		switch evt.MessageType {
		case "private":
			return KindPrivateMessage
		case "group":
			return KindGroupMessage
		}
	case "notice":
		return KindNotice
	}
	return KindFallback
}
