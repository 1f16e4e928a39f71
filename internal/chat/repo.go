package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/suPer8Hu/chat-relay/internal/store/redisstore"
)

// DefaultTTL is how long an untouched conversation survives.
const DefaultTTL = 24 * time.Hour

var ErrConversationNotFound = errors.New("conversation not found")

// KV is the byte store behind Repo. Get returns redisstore.ErrNotFound on
// a miss; Set must restart the key's expiry.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Repo stores one JSON-encoded Conversation per client identity.
type Repo struct {
	kv  KV
	ttl time.Duration
}

func NewRepo(kv KV, ttl time.Duration) *Repo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Repo{kv: kv, ttl: ttl}
}

func contextKey(identity string) string {
	return "context:" + identity
}

func (r *Repo) Load(ctx context.Context, identity string) (*Conversation, error) {
	b, err := r.kv.Get(ctx, contextKey(identity))
	if err != nil {
		if errors.Is(err, redisstore.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	var c Conversation
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return &c, nil
}

// Save overwrites the stored conversation and refreshes its TTL.
func (r *Repo) Save(ctx context.Context, identity string, c *Conversation) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := r.kv.Set(ctx, contextKey(identity), b, r.ttl); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, identity string) error {
	return r.kv.Delete(ctx, contextKey(identity))
}
