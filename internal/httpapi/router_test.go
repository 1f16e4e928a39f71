package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/chat-relay/internal/ai"
	"github.com/suPer8Hu/chat-relay/internal/chat"
	"github.com/suPer8Hu/chat-relay/internal/config"
	"github.com/suPer8Hu/chat-relay/internal/httpapi/handlers"
	"github.com/suPer8Hu/chat-relay/internal/i18n"
	"github.com/suPer8Hu/chat-relay/internal/ratelimit"
	"github.com/suPer8Hu/chat-relay/internal/store/redisstore"
)

type echoGateway struct{}

func (echoGateway) Generate(_ context.Context, provider string, history []ai.Message) (string, error) {
	return provider + ": " + history[len(history)-1].Content, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type wsEvent struct {
	Type chat.EventType  `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T, cfg config.Config) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rds := redisstore.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = rds.Close() })

	cat, err := i18n.Load("en")
	require.NoError(t, err)

	svc := chat.NewService(chat.Deps{
		Repo:       chat.NewRepo(rds, time.Hour),
		Limiter:    ratelimit.NewWindow(5, 10*time.Second),
		Gateway:    echoGateway{},
		Translator: cat,
	})
	return NewRouter(cfg, handlers.NewHandler(cfg, rds, svc)), mr
}

func TestRouter_Ping(t *testing.T) {
	r, _ := newTestRouter(t, config.Config{DefaultLocale: "en"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, 0, env.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_PingRedisDown(t *testing.T) {
	r, mr := newTestRouter(t, config.Config{DefaultLocale: "en"})
	mr.Close()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_NotFoundEnvelope(t *testing.T) {
	r, _ := newTestRouter(t, config.Config{DefaultLocale: "en"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	req.Header.Set("X-Request-ID", "req-1")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, 40400, env.Code)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
}

func TestRouter_WebSocketRejectsForeignOrigin(t *testing.T) {
	cfg := config.Config{DefaultLocale: "en", AllowedOrigins: []string{"https://app.example"}}
	r, _ := newTestRouter(t, cfg)
	srv := httptest.NewServer(r)
	defer srv.Close()

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/api/ws/en/dev-1"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRouter_WebSocketSession(t *testing.T) {
	r, mr := newTestRouter(t, config.Config{DefaultLocale: "en"})
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/api/ws/en/dev-1"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	first := readEvent(t, conn)
	assert.Equal(t, chat.EventContext, first.Type)

	require.NoError(t, conn.WriteJSON(chat.Request{Action: "send_message", Prompt: "hello"}))

	echo := readEvent(t, conn)
	assert.Equal(t, chat.EventClientMessage, echo.Type)
	var user chat.MessageData
	require.NoError(t, json.Unmarshal(echo.Data, &user))
	assert.Equal(t, "You: hello", user.Prompt)

	reply := readEvent(t, conn)
	assert.Equal(t, chat.EventAIMessage, reply.Type)
	var aiMsg chat.MessageData
	require.NoError(t, json.Unmarshal(reply.Data, &aiMsg))
	assert.Equal(t, "ChatGPT: hello", aiMsg.Text)

	assert.True(t, mr.Exists("context:dev-1"))
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func readEvent(t *testing.T, conn *websocket.Conn) wsEvent {
	t.Helper()
	var ev wsEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}
