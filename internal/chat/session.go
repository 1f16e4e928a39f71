package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/suPer8Hu/chat-relay/internal/archive"
	"github.com/suPer8Hu/chat-relay/internal/common"
	"github.com/suPer8Hu/chat-relay/internal/i18n"
	"github.com/suPer8Hu/chat-relay/internal/logging"
	"github.com/suPer8Hu/chat-relay/internal/metrics"
)

type State int32

const (
	StateConnecting State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

var errClientGone = errors.New("client gone")

// Session is the state machine of one client connection. Actions are
// handled strictly one at a time: the next frame is not read until every
// event of the current action has been written.
//
// Each action re-reads the conversation from the store and writes it back.
// Two sessions for the same identity can therefore overwrite each other;
// one live connection per device is assumed.
type Session struct {
	svc      *Service
	conn     Conn
	locale   string
	identity string
	state    atomic.Int32
	log      zerolog.Logger
}

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) Run(ctx context.Context) error {
	s.log = logging.Logger.With().Str("identity", s.identity).Str("locale", s.locale).Logger()
	if prev := s.svc.hub.Register(s.identity, s.conn); prev != nil {
		s.log.Warn().Msg("identity already connected, newest connection takes over")
	}
	s.log.Info().Msg("connected")

	defer func() {
		s.svc.hub.Unregister(s.identity, s.conn)
		s.state.Store(int32(StateClosed))
		_ = s.conn.Close()
		s.log.Info().Msg("disconnected")
	}()

	// unblock ReadMessage on shutdown
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	if err := s.open(ctx); err != nil {
		return s.finish(ctx, err)
	}
	s.state.Store(int32(StateActive))

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			return nil
		}

		if !s.svc.limiter.Admit(s.identity) {
			return s.finish(ctx, s.rejectRateLimited(ctx))
		}

		var req Request
		if err := json.Unmarshal(frame, &req); err != nil {
			s.log.Warn().Err(err).Int("bytes", len(frame)).Msg("ignoring undecodable frame")
			continue
		}
		action := ParseAction(req.Action)
		metrics.Actions.WithLabelValues(string(action)).Inc()

		start := time.Now()
		if err := s.handle(ctx, action, req); err != nil {
			return s.finish(ctx, err)
		}
		s.log.Debug().Str("action", string(action)).Dur("cost", time.Since(start)).Msg("action handled")
	}
}

func (s *Session) finish(ctx context.Context, err error) error {
	if errors.Is(err, errClientGone) || ctx.Err() != nil {
		return nil
	}
	if errors.Is(err, ErrRateLimited) {
		s.log.Info().Msg("rate limit exceeded, closing")
		return err
	}
	s.log.Error().Err(err).Msg("closing connection")
	return err
}

// open resolves the conversation and sends the initial context snapshot.
// A stored conversation that never got past its greeting is restarted.
func (s *Session) open(ctx context.Context) error {
	conv, err := s.svc.repo.Load(ctx, s.identity)
	switch {
	case errors.Is(err, ErrConversationNotFound):
		conv = NewConversation(s.t(i18n.KeyGreeting))
	case err != nil:
		return err
	case conv.IsFresh():
		conv = Reset(conv, s.t(i18n.KeyGreeting))
	default:
		s.log.Info().Int("messages", len(conv.Messages)).Msg("resumed conversation")
		return s.emit(contextEvent(conv))
	}

	if err := s.save(ctx, conv); err != nil {
		return err
	}
	s.archive(ctx, conv, conv.Messages[0])
	return s.emit(contextEvent(conv))
}

func (s *Session) handle(ctx context.Context, action Action, req Request) error {
	switch action {
	case ActionSwitchModel:
		return s.switchModel(ctx, ParseModel(req.Model))
	case ActionNewContext:
		return s.newContext(ctx)
	case ActionSetCurrentModel:
		return s.setCurrentModel(ctx, ParseModel(req.Model))
	case ActionCurrentModel:
		return s.currentModel(ctx)
	default:
		return s.sendMessage(ctx, strings.TrimSpace(req.Prompt))
	}
}

// sendMessage echoes the prompt, then replies. A failed generation call is
// answered with the localized unavailable notice; the prompt stays in the
// history either way.
func (s *Session) sendMessage(ctx context.Context, prompt string) error {
	conv, err := s.load(ctx)
	if err != nil {
		return err
	}

	userMsg := conv.AppendUser(prompt)
	if err := s.save(ctx, conv); err != nil {
		return err
	}
	s.archive(ctx, conv, userMsg)
	if err := s.emit(messageEvent(EventClientMessage, userMsg)); err != nil {
		return err
	}

	model := conv.ModelOrDefault()
	history := RenderHistory(conv, model, s.svc.systemPrompt)

	start := time.Now()
	reply, err := s.svc.gateway.Generate(ctx, string(model), history)
	metrics.GatewayLatency.WithLabelValues(string(model)).Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		metrics.GatewayFailures.WithLabelValues(string(model)).Inc()
		s.log.Warn().Err(err).Str("model", string(model)).Dur("cost", time.Since(start)).Msg("generation failed")
		reply = s.t(i18n.KeyUnavailableModel)
	}

	aiMsg := conv.AppendAssistant(reply)
	if err := s.save(ctx, conv); err != nil {
		return err
	}
	s.archive(ctx, conv, aiMsg)
	return s.emit(messageEvent(EventAIMessage, aiMsg))
}

// switchModel announces model, then selects it. The notice and the
// selection are persisted separately.
func (s *Session) switchModel(ctx context.Context, model Model) error {
	conv, err := s.load(ctx)
	if err != nil {
		return err
	}

	notice := conv.AppendNotice(s.t(model.ActivationKey()))
	if err := s.save(ctx, conv); err != nil {
		return err
	}
	s.archive(ctx, conv, notice)
	if err := s.emit(messageEvent(EventSwitchModel, notice)); err != nil {
		return err
	}

	if conv.SetCurrentModel(model) {
		return s.save(ctx, conv)
	}
	return nil
}

// newContext replaces the stored conversation with a fresh one that keeps
// the previous model selection.
func (s *Session) newContext(ctx context.Context) error {
	prev, err := s.svc.repo.Load(ctx, s.identity)
	if err != nil && !errors.Is(err, ErrConversationNotFound) {
		return err
	}

	conv := Reset(prev, s.t(i18n.KeyGreeting))
	if err := s.save(ctx, conv); err != nil {
		return err
	}
	s.archive(ctx, conv, conv.Messages[0])
	return s.emit(contextEvent(conv))
}

func (s *Session) setCurrentModel(ctx context.Context, model Model) error {
	conv, err := s.load(ctx)
	if err != nil {
		return err
	}
	if conv.SetCurrentModel(model) {
		return s.save(ctx, conv)
	}
	return nil
}

// currentModel reports the selection, persisting the primary provider as
// the selection when none was made yet.
func (s *Session) currentModel(ctx context.Context) error {
	conv, err := s.load(ctx)
	if err != nil {
		return err
	}
	if conv.SetCurrentModel(conv.ModelOrDefault()) {
		if err := s.save(ctx, conv); err != nil {
			return err
		}
	}
	return s.emit(Event{Type: EventCurrentModel, Data: ModelData{Model: conv.CurrentModel}})
}

func (s *Session) rejectRateLimited(ctx context.Context) error {
	metrics.RateLimited.Inc()

	conv, err := s.load(ctx)
	if err != nil {
		return err
	}
	notice := conv.AppendNotice(s.t(i18n.KeyRateLimit))
	if err := s.save(ctx, conv); err != nil {
		return err
	}
	s.archive(ctx, conv, notice)
	if err := s.emit(messageEvent(EventSystemMessage, notice)); err != nil {
		return err
	}
	return ErrRateLimited
}

// load reads the stored conversation. One that expired while the
// connection stayed open is replaced by a fresh, persisted conversation.
func (s *Session) load(ctx context.Context) (*Conversation, error) {
	conv, err := s.svc.repo.Load(ctx, s.identity)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, ErrConversationNotFound) {
		return nil, err
	}

	s.log.Info().Msg("conversation expired, starting a new one")
	conv = NewConversation(s.t(i18n.KeyGreeting))
	if err := s.save(ctx, conv); err != nil {
		return nil, err
	}
	s.archive(ctx, conv, conv.Messages[0])
	return conv, nil
}

// save never starts a write once ctx is done.
func (s *Session) save(ctx context.Context, conv *Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.svc.repo.Save(ctx, s.identity, conv); err != nil {
		metrics.PersistFailures.Inc()
		return err
	}
	return nil
}

func (s *Session) emit(ev Event) error {
	if err := s.conn.WriteJSON(ev); err != nil {
		return fmt.Errorf("%w: %v", errClientGone, err)
	}
	return nil
}

func (s *Session) archive(ctx context.Context, conv *Conversation, m Message) {
	if s.svc.archiver == nil {
		return
	}
	eventID, err := common.NewULID()
	if err != nil {
		s.log.Warn().Err(err).Msg("archive event id")
		return
	}
	e := archive.Event{
		EventID:        eventID,
		Identity:       s.identity,
		ConversationID: conv.ID,
		MessageID:      m.ID,
		Role:           string(m.Role),
		Text:           m.Text,
		Model:          string(conv.CurrentModel),
		OccurredAt:     time.Now().UTC(),
	}
	if err := s.svc.archiver.Archive(ctx, e); err != nil {
		metrics.ArchiveFailures.Inc()
		s.log.Warn().Err(err).Str("message_id", m.ID).Msg("archive publish failed")
	}
}

func (s *Session) t(key string) string {
	return s.svc.tr.T(s.locale, key)
}
