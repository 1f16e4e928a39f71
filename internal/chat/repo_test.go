package chat

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/chat-relay/internal/store/redisstore"
)

func newRedisRepo(t *testing.T) (*Repo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	kv := redisstore.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = kv.Close() })
	return NewRepo(kv, 0), mr
}

func TestRepo_RoundTrip(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()

	c := NewConversation("hello")
	c.AppendUser("You: tricky prefix")
	c.AppendAssistant("answer")
	c.SetCurrentModel(ModelGemini)
	require.NoError(t, repo.Save(ctx, "D1", c))

	got, err := repo.Load(ctx, "D1")
	require.NoError(t, err)
	assert.Equal(t, c, got)

	fresh := NewConversation("hello")
	require.NoError(t, repo.Save(ctx, "D2", fresh))
	got, err = repo.Load(ctx, "D2")
	require.NoError(t, err)
	assert.Equal(t, fresh, got)
	assert.False(t, got.HasModel())
}

func TestRepo_KeyAndTTL(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "D1", NewConversation("hello")))
	assert.True(t, mr.Exists("context:D1"))
	assert.Equal(t, DefaultTTL, mr.TTL("context:D1"))

	mr.FastForward(DefaultTTL + time.Second)
	_, err := repo.Load(ctx, "D1")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestRepo_LoadMissingAndDelete(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()

	_, err := repo.Load(ctx, "nobody")
	require.ErrorIs(t, err, ErrConversationNotFound)

	require.NoError(t, repo.Save(ctx, "D1", NewConversation("hello")))
	require.NoError(t, repo.Delete(ctx, "D1"))
	_, err = repo.Load(ctx, "D1")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestRepo_LoadCorrupt(t *testing.T) {
	repo, mr := newRedisRepo(t)
	require.NoError(t, mr.Set("context:D1", "{not json"))

	_, err := repo.Load(context.Background(), "D1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConversationNotFound)
}
