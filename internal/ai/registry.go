package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var ErrUnknownProvider = errors.New("unknown ai provider")

type ProviderFactory func(ctx context.Context, model string) (Provider, error)

// Registry routes a provider selector (e.g. "ChatGPT", "Gemini") to the
// factory that builds its client. Names are matched case-insensitively.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

func (r *Registry) Register(name string, f ProviderFactory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(ctx context.Context, name string, model string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return f(ctx, model)
}

// Generate resolves provider with its configured default model and asks it
// for a reply to history.
func (r *Registry) Generate(ctx context.Context, provider string, history []Message) (string, error) {
	p, err := r.Get(ctx, provider, "")
	if err != nil {
		return "", err
	}
	return p.Chat(ctx, history)
}
