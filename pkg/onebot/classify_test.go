package onebot

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name  string
		frame string
		want  EventKind
	}{
		{"private message", `{"post_type":"message","message_type":"private"}`, KindPrivateMessage},
		{"group message", `{"post_type":"message","message_type":"group"}`, KindGroupMessage},
		{"notice", `{"post_type":"notice","notice_type":"group_recall"}`, KindNotice},
		{"request", `{"post_type":"request"}`, KindFallback},
		{"unknown message type", `{"post_type":"message","message_type":"guild"}`, KindFallback},
		{"meta event", `{"post_type":"meta_event","meta_event_type":"heartbeat"}`, KindFallback},
	}

	for _, tc := range cases {
		evt, err := DecodeEvent([]byte(tc.frame))
		if err != nil {
			t.Fatalf("%s: DecodeEvent error: %v", tc.name, err)
		}
		if got := Classify(evt); got != tc.want {
			t.Errorf("%s: Classify = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestShouldIgnore_OnlyListedMetaEvents(t *testing.T) {
	ignore := NewIgnoreSet([]string{"heartbeat", "lifecycle"})

	heartbeat, _ := DecodeEvent([]byte(`{"post_type":"meta_event","meta_event_type":"heartbeat"}`))
	if !ShouldIgnore(heartbeat, ignore) {
		t.Fatal("heartbeat meta event should be ignored")
	}

	other, _ := DecodeEvent([]byte(`{"post_type":"meta_event","meta_event_type":"something_else"}`))
	if ShouldIgnore(other, ignore) {
		t.Fatal("unlisted meta event must pass through")
	}

	// A chat message whose fields happen to collide with an ignored name
	// is never dropped.
	msg, _ := DecodeEvent([]byte(`{"post_type":"message","message_type":"private","meta_event_type":"heartbeat"}`))
	if ShouldIgnore(msg, ignore) {
		t.Fatal("non-meta events must never be ignored")
	}
}
