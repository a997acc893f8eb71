package utils

import "testing"

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("Truncate = %q, want unchanged", got)
	}
	if got := Truncate("abcdefghij", 5); got != "ab..." {
		t.Fatalf("Truncate = %q, want %q", got, "ab...")
	}
	// Multi-byte runes count as one character each.
	if got := Truncate("你好世界你好世界", 7); got != "你好世界..." {
		t.Fatalf("Truncate = %q, want %q", got, "你好世界...")
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "", "third"); got != "third" {
		t.Fatalf("FirstNonEmpty = %q, want %q", got, "third")
	}
	if got := FirstNonEmpty(); got != "" {
		t.Fatalf("FirstNonEmpty = %q, want empty", got)
	}
}
