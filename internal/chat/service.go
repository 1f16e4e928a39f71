package chat

import (
	"context"
	"errors"

	"github.com/suPer8Hu/chat-relay/internal/ai"
	"github.com/suPer8Hu/chat-relay/internal/archive"
)

// ErrRateLimited is returned by Serve when the connection was closed for
// exceeding the action rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// Gateway produces a reply from one of the generation backends.
type Gateway interface {
	Generate(ctx context.Context, provider string, history []ai.Message) (string, error)
}

type Translator interface {
	T(locale, key string) string
}

type Limiter interface {
	Admit(identity string) bool
}

// Archiver receives every message appended to a conversation. Failures are
// logged and otherwise ignored.
type Archiver interface {
	Archive(ctx context.Context, e archive.Event) error
}

type Deps struct {
	Repo       *Repo
	Limiter    Limiter
	Gateway    Gateway
	Translator Translator
	Hub        *Hub
	// Archiver is optional.
	Archiver Archiver
	// SystemPrompt leads every ChatGPT history.
	SystemPrompt string
}

type Service struct {
	repo         *Repo
	limiter      Limiter
	gateway      Gateway
	tr           Translator
	hub          *Hub
	archiver     Archiver
	systemPrompt string
}

func NewService(d Deps) *Service {
	hub := d.Hub
	if hub == nil {
		hub = NewHub()
	}
	return &Service{
		repo:         d.Repo,
		limiter:      d.Limiter,
		gateway:      d.Gateway,
		tr:           d.Translator,
		hub:          hub,
		archiver:     d.Archiver,
		systemPrompt: d.SystemPrompt,
	}
}

func (s *Service) Hub() *Hub { return s.hub }

// Serve runs the session protocol on conn until the client disconnects,
// ctx is cancelled, or the connection is closed by the relay. A client
// disconnect returns nil.
func (s *Service) Serve(ctx context.Context, conn Conn, locale, identity string) error {
	return s.NewSession(conn, locale, identity).Run(ctx)
}

func (s *Service) NewSession(conn Conn, locale, identity string) *Session {
	return &Session{svc: s, conn: conn, locale: locale, identity: identity}
}
