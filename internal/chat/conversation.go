package chat

import "github.com/google/uuid"

var newID = uuid.NewString

// NewConversation starts a transcript whose only entry is greeting. No
// model is selected.
func NewConversation(greeting string) *Conversation {
	c := &Conversation{ID: newID()}
	c.AppendNotice(greeting)
	return c
}

// Reset is NewConversation that keeps previous's model selection.
func Reset(previous *Conversation, greeting string) *Conversation {
	c := NewConversation(greeting)
	if previous != nil {
		c.CurrentModel = previous.CurrentModel
	}
	return c
}

func (c *Conversation) AppendUser(text string) Message      { return c.append(RoleUser, text) }
func (c *Conversation) AppendAssistant(text string) Message { return c.append(RoleAssistant, text) }
func (c *Conversation) AppendNotice(text string) Message    { return c.append(RoleSystem, text) }

func (c *Conversation) append(role Role, text string) Message {
	m := Message{ID: newID(), Role: role, Text: text}
	c.Messages = append(c.Messages, m)
	return m
}

// SetCurrentModel reports whether the selection changed.
func (c *Conversation) SetCurrentModel(m Model) bool {
	if c.CurrentModel == m {
		return false
	}
	c.CurrentModel = m
	return true
}

func (c *Conversation) HasModel() bool { return c.CurrentModel != "" }

func (c *Conversation) ModelOrDefault() Model {
	if c.HasModel() {
		return c.CurrentModel
	}
	return PrimaryModel
}

// IsFresh reports whether nothing beyond the greeting has happened yet.
func (c *Conversation) IsFresh() bool { return len(c.Messages) == 1 }
