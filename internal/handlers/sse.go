package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/dayplan-backend/internal/logger"
	"github.com/yungbote/dayplan-backend/internal/requestdata"
	"github.com/yungbote/dayplan-backend/internal/sse"
)

type SSEHandler struct {
	log *logger.Logger
	hub *sse.SSEHub

	mu sync.RWMutex
	// key: access token, one stream per login session
	clients map[string]*sse.SSEClient
}

func NewSSEHandler(log *logger.Logger, hub *sse.SSEHub) *SSEHandler {
	return &SSEHandler{
		log:     log.With("Handler", "SSEHandler"),
		hub:     hub,
		clients: make(map[string]*sse.SSEClient),
	}
}

func (sh *SSEHandler) SSEStream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil || rd.TokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	sh.mu.Lock()
	if existing, ok := sh.clients[rd.TokenString]; ok {
		sh.hub.CloseClient(existing)
		delete(sh.clients, rd.TokenString)
	}
	client := sh.hub.NewSSEClient(rd.UserID)
	sh.clients[rd.TokenString] = client
	sh.mu.Unlock()

	sh.hub.AddChannel(client, sse.UserChannel(rd.UserID))
	sh.hub.ServeHTTP(c.Writer, c.Request, client)

	sh.mu.Lock()
	delete(sh.clients, rd.TokenString)
	sh.mu.Unlock()
	sh.hub.CloseClient(client)
}

func (sh *SSEHandler) SSESubscribe(c *gin.Context) {
	client, rd, ok := sh.clientFor(c)
	if !ok {
		return
	}
	channel, ok := channelFromBody(c)
	if !ok {
		return
	}
	// The only channels are per-user plan channels; a stream may only
	// follow its owner's.
	if channel != sse.UserChannel(rd.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "channel not permitted"})
		return
	}
	sh.hub.AddChannel(client, channel)
	RespondOK(c, gin.H{"subscribed": channel})
}

func (sh *SSEHandler) SSEUnsubscribe(c *gin.Context) {
	client, rd, ok := sh.clientFor(c)
	if !ok {
		return
	}
	channel, ok := channelFromBody(c)
	if !ok {
		return
	}
	if channel != sse.UserChannel(rd.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "channel not permitted"})
		return
	}
	sh.hub.RemoveChannel(client, channel)
	RespondOK(c, gin.H{"unsubscribed": channel})
}

func (sh *SSEHandler) clientFor(c *gin.Context) (*sse.SSEClient, *requestdata.RequestData, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil || rd.TokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return nil, nil, false
	}
	sh.mu.RLock()
	client, exists := sh.clients[rd.TokenString]
	sh.mu.RUnlock()
	if !exists {
		c.JSON(http.StatusConflict, gin.H{"error": "no active SSE connection for this session"})
		return nil, nil, false
	}
	return client, rd, true
}

func channelFromBody(c *gin.Context) (string, bool) {
	var req struct {
		Channel string `json:"channel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel"})
		return "", false
	}
	return req.Channel, true
}
