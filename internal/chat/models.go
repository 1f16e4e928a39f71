package chat

import (
	"strings"

	"github.com/suPer8Hu/chat-relay/internal/i18n"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleSystem marks notices produced by the relay itself. They are shown
	// to the client but never replayed to a generation backend.
	RoleSystem Role = "system"
)

// Model selects a generation backend. The zero value means none has been
// chosen yet.
type Model string

const (
	ModelChatGPT Model = "ChatGPT"
	ModelGemini  Model = "Gemini"

	PrimaryModel = ModelChatGPT
)

var knownModels = []Model{ModelChatGPT, ModelGemini}

// ParseModel matches s case-insensitively. Empty or unknown selectors
// resolve to the primary provider.
func ParseModel(s string) Model {
	s = strings.TrimSpace(s)
	for _, m := range knownModels {
		if strings.EqualFold(s, string(m)) {
			return m
		}
	}
	return PrimaryModel
}

func (m Model) DisplayName() string {
	switch m {
	case ModelGemini:
		return "Gemini 1.5 Pro"
	default:
		return "GPT-3.5 Turbo"
	}
}

// ActivationKey is the translation key announcing m as the active model.
func (m Model) ActivationKey() string {
	if m == ModelGemini {
		return i18n.KeyActivatedGemini
	}
	return i18n.KeyActivatedChatGPT
}

type Message struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Display renders the message the way the chat UI shows it.
func (m Message) Display() string {
	switch m.Role {
	case RoleUser:
		return "You: " + m.Text
	case RoleAssistant:
		return "AI: " + m.Text
	default:
		return m.Text
	}
}

// Conversation is the durable per-device transcript.
type Conversation struct {
	ID           string    `json:"id"`
	Messages     []Message `json:"messages"`
	CurrentModel Model     `json:"current_model,omitempty"`
}
