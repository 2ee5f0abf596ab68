package notify

import (
	"strings"
	"testing"
)

func TestParseChatID(t *testing.T) {
	if id, err := parseChatID(" 12345 "); err != nil || id != 12345 {
		t.Fatalf("parseChatID: id=%d err=%v", id, err)
	}
	if id, err := parseChatID("-100987654321"); err != nil || id != -100987654321 {
		t.Fatalf("group chat id: id=%d err=%v", id, err)
	}
	if _, err := parseChatID("@channelname"); err == nil {
		t.Fatalf("non-numeric chat id must fail")
	}
}

func TestSplitMessageShortPassthrough(t *testing.T) {
	chunks := splitMessage("hello", 4096)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Fatalf("chunks: %v", chunks)
	}
}

func TestSplitMessagePrefersNewlineBreak(t *testing.T) {
	content := strings.Repeat("a", 80) + "\n" + strings.Repeat("b", 60)
	chunks := splitMessage(content, 100)
	if len(chunks) != 2 {
		t.Fatalf("want 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "\n") {
		t.Errorf("first chunk should break at the newline: %q", chunks[0])
	}
	if reassembled := strings.Join(chunks, ""); reassembled != content {
		t.Errorf("chunks must reassemble to the original")
	}
}

func TestSplitMessageHardBreakWithoutNewline(t *testing.T) {
	content := strings.Repeat("x", 250)
	chunks := splitMessage(content, 100)
	if len(chunks) != 3 {
		t.Fatalf("want 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 100 {
			t.Errorf("chunk %d over limit: %d", i, len(c))
		}
	}
}
