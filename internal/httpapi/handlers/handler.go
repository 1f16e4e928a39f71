package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/suPer8Hu/chat-relay/internal/chat"
	"github.com/suPer8Hu/chat-relay/internal/config"
	"github.com/suPer8Hu/chat-relay/internal/store/redisstore"
)

type Handler struct {
	Cfg      config.Config
	Redis    *redisstore.Store
	ChatSvc  *chat.Service
	upgrader websocket.Upgrader
}

func NewHandler(cfg config.Config, rds *redisstore.Store, svc *chat.Service) *Handler {
	return &Handler{
		Cfg:     cfg,
		Redis:   rds,
		ChatSvc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
}

// originChecker allows every origin when none are configured.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
