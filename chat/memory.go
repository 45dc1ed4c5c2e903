package chat

import "pdfchat/llm"

// Turn is one completed question/answer exchange.
type Turn struct {
	Question string
	Answer   string
}

// Memory holds the conversation history of one session, in order. It grows
// only when synthesis succeeds and is cleared when the session ends.
type Memory struct {
	turns []Turn
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Add(question, answer string) {
	m.turns = append(m.turns, Turn{Question: question, Answer: answer})
}

func (m *Memory) Len() int {
	return len(m.turns)
}

func (m *Memory) Clear() {
	m.turns = nil
}

func (m *Memory) Turns() []Turn {
	return append([]Turn(nil), m.turns...)
}

// Messages renders the history as alternating user/assistant messages, oldest
// first.
func (m *Memory) Messages() []llm.Message {
	messages := make([]llm.Message, 0, len(m.turns)*2)
	for _, turn := range m.turns {
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: turn.Question},
			llm.Message{Role: llm.RoleAssistant, Content: turn.Answer},
		)
	}
	return messages
}
