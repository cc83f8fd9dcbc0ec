package chat

import "testing"

func TestSanitizeAssistantContent_StripsThinkingTags(t *testing.T) {
	got := SanitizeAssistantContent("<think>let me reason about this</think>The answer is 4.")
	if got != "The answer is 4." {
		t.Fatalf("expected thinking block stripped, got %q", got)
	}
}

func TestSanitizeAssistantContent_StripsEchoedSystemMessage(t *testing.T) {
	input := "[System Message]\nsome injected context\n\nHere is your summary."
	got := SanitizeAssistantContent(input)
	if got != "Here is your summary." {
		t.Fatalf("expected echoed system block stripped, got %q", got)
	}
}

func TestSanitizeAssistantContent_CollapsesDuplicateParagraphs(t *testing.T) {
	input := "Done.\n\nDone.\n\nNext step is X."
	got := SanitizeAssistantContent(input)
	if got != "Done.\n\nNext step is X." {
		t.Fatalf("expected consecutive duplicate paragraph collapsed, got %q", got)
	}
}

func TestSanitizeAssistantContent_StripsMediaPathLines(t *testing.T) {
	input := "Here's the file.\nMEDIA:/tmp/out.png\nLet me know if you need more."
	got := SanitizeAssistantContent(input)
	if got != "Here's the file.\nLet me know if you need more." {
		t.Fatalf("expected MEDIA: line stripped, got %q", got)
	}
}

func TestSanitizeAssistantContent_EmptyInput(t *testing.T) {
	if got := SanitizeAssistantContent(""); got != "" {
		t.Fatalf("expected empty input to stay empty, got %q", got)
	}
}

func TestSanitizeAssistantContent_PlainTextUnchanged(t *testing.T) {
	input := "Just a normal reply with no special markers."
	if got := SanitizeAssistantContent(input); got != input {
		t.Fatalf("expected plain text to pass through unchanged, got %q", got)
	}
}

func TestIsSilentReply_ExactToken(t *testing.T) {
	if !IsSilentReply("NO_REPLY") {
		t.Fatalf("expected exact NO_REPLY token to be silent")
	}
}

func TestIsSilentReply_TokenWithSurroundingWhitespace(t *testing.T) {
	if !IsSilentReply("  NO_REPLY  \n") {
		t.Fatalf("expected whitespace-padded NO_REPLY to be silent")
	}
}

func TestIsSilentReply_TokenAsWordPrefixIsNotSilent(t *testing.T) {
	if IsSilentReply("NO_REPLYING to this one") {
		t.Fatalf("expected NO_REPLY embedded in a longer word to not count as silent")
	}
}

func TestIsSilentReply_OrdinaryTextIsNotSilent(t *testing.T) {
	if IsSilentReply("Sure, here's the answer.") {
		t.Fatalf("expected ordinary text to not be treated as silent")
	}
}

func TestIsSilentReply_EmptyIsNotSilent(t *testing.T) {
	if IsSilentReply("") {
		t.Fatalf("expected empty text to not be treated as silent")
	}
}
