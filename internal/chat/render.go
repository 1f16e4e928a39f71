package chat

import "github.com/suPer8Hu/chat-relay/internal/ai"

const DefaultSystemPrompt = "You are a helpful assistant."

// RenderHistory projects c onto the role vocabulary of model. ChatGPT gets
// systemPrompt as a leading instruction (when non-empty) and
// user/assistant roles; Gemini gets user/model roles and no instruction.
// System notices are dropped.
func RenderHistory(c *Conversation, model Model, systemPrompt string) []ai.Message {
	out := make([]ai.Message, 0, len(c.Messages)+1)
	assistantRole := "assistant"
	if model == ModelGemini {
		assistantRole = "model"
	} else if systemPrompt != "" {
		out = append(out, ai.Message{Role: "system", Content: systemPrompt})
	}

	for _, m := range c.Messages {
		switch m.Role {
		case RoleUser:
			out = append(out, ai.Message{Role: "user", Content: m.Text})
		case RoleAssistant:
			out = append(out, ai.Message{Role: assistantRole, Content: m.Text})
		}
	}
	return out
}
