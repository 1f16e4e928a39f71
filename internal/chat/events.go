package chat

import "strings"

type Action string

const (
	ActionSendMessage     Action = "send_message"
	ActionSwitchModel     Action = "switch_model"
	ActionNewContext      Action = "new_context"
	ActionSetCurrentModel Action = "set_current_model"
	ActionCurrentModel    Action = "current_model"
)

// ParseAction treats anything unrecognised as send_message.
func ParseAction(s string) Action {
	switch a := Action(strings.TrimSpace(s)); a {
	case ActionSwitchModel, ActionNewContext, ActionSetCurrentModel, ActionCurrentModel:
		return a
	default:
		return ActionSendMessage
	}
}

// Request is one inbound client frame.
type Request struct {
	Action string `json:"action"`
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type EventType string

const (
	EventSystemMessage EventType = "system_message"
	EventAIMessage     EventType = "ai_message"
	EventClientMessage EventType = "client_message"
	EventSwitchModel   EventType = "switch_model"
	EventContext       EventType = "context"
	EventCurrentModel  EventType = "current_model"
)

// Event is one outbound frame.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

type MessageData struct {
	ID     string `json:"id"`
	Role   Role   `json:"role"`
	Text   string `json:"text"`
	Prompt string `json:"prompt"`
}

type ContextData struct {
	Messages []MessageData `json:"messages"`
}

type ModelData struct {
	Model Model `json:"model"`
}

func messageData(m Message) MessageData {
	return MessageData{ID: m.ID, Role: m.Role, Text: m.Text, Prompt: m.Display()}
}

func messageEvent(t EventType, m Message) Event {
	return Event{Type: t, Data: messageData(m)}
}

func contextEvent(c *Conversation) Event {
	msgs := make([]MessageData, 0, len(c.Messages))
	for _, m := range c.Messages {
		msgs = append(msgs, messageData(m))
	}
	return Event{Type: EventContext, Data: ContextData{Messages: msgs}}
}
