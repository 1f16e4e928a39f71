package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/chat-relay/internal/chat"
	"github.com/suPer8Hu/chat-relay/internal/common"
	"github.com/suPer8Hu/chat-relay/internal/logging"
)

const maxFrameBytes = 64 * 1024

// ChatSocket upgrades GET /api/ws/:locale/:device_id and runs the chat
// session on it until the client goes away.
func (h *Handler) ChatSocket(c *gin.Context) {
	locale := strings.TrimSpace(c.Param("locale"))
	deviceID := strings.TrimSpace(c.Param("device_id"))
	if locale == "" {
		locale = h.Cfg.DefaultLocale
	}
	if deviceID == "" {
		common.Fail(c, http.StatusBadRequest, 10001, "device_id required")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		logging.Warn().Err(err).Str("identity", deviceID).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	err = h.ChatSvc.Serve(c.Request.Context(), conn, locale, deviceID)
	if err != nil && !errors.Is(err, chat.ErrRateLimited) {
		logging.Error().Err(err).Str("identity", deviceID).Msg("chat session ended with error")
	}
}
