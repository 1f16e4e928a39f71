package ai

import "context"

// Message is one turn in the role vocabulary of the target backend.
type Message struct {
	Role    string
	Content string
}

// Provider produces a single reply for an ordered history.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}
