package chat_test

import (
	"testing"

	"pdfchat/chat"
	"pdfchat/llm"
)

func TestMemoryMessages(t *testing.T) {
	memory := chat.NewMemory()
	memory.Add("first question", "first answer")
	memory.Add("second question", "second answer")

	if memory.Len() != 2 {
		t.Fatalf("Len = %d, want 2", memory.Len())
	}

	messages := memory.Messages()
	want := []llm.Message{
		{Role: llm.RoleUser, Content: "first question"},
		{Role: llm.RoleAssistant, Content: "first answer"},
		{Role: llm.RoleUser, Content: "second question"},
		{Role: llm.RoleAssistant, Content: "second answer"},
	}
	if len(messages) != len(want) {
		t.Fatalf("got %d messages, want %d", len(messages), len(want))
	}
	for i := range want {
		if messages[i] != want[i] {
			t.Fatalf("message %d = %+v, want %+v", i, messages[i], want[i])
		}
	}
}

func TestMemoryClear(t *testing.T) {
	memory := chat.NewMemory()
	memory.Add("q", "a")
	memory.Clear()

	if memory.Len() != 0 {
		t.Fatalf("Len after Clear = %d, want 0", memory.Len())
	}
	if got := memory.Messages(); len(got) != 0 {
		t.Fatalf("Messages after Clear has %d entries", len(got))
	}
}

func TestMemoryTurnsIsCopy(t *testing.T) {
	memory := chat.NewMemory()
	memory.Add("q", "a")

	turns := memory.Turns()
	turns[0].Answer = "mutated"

	if got := memory.Turns()[0].Answer; got != "a" {
		t.Fatalf("internal turn mutated through copy: %q", got)
	}
}
