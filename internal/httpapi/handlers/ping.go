package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/chat-relay/internal/common"
)

func (h *Handler) Ping(c *gin.Context) {
	redisStatus := "ok"
	if h.Redis != nil {
		if err := h.Redis.Ping(c.Request.Context()); err != nil {
			common.Fail(c, http.StatusServiceUnavailable, 50300, "redis unavailable")
			return
		}
	} else {
		redisStatus = "disabled"
	}
	common.OK(c, gin.H{
		"pong":        true,
		"redis":       redisStatus,
		"connections": h.ChatSvc.Hub().Len(),
	})
}
