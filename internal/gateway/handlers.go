package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/HaiFongPan/fmbot/internal/chat"
)

// ConversationPrefix namespaces gateway conversations so they never collide
// with console or SSH conversations
const ConversationPrefix = "http:"

// Handler processes conversation events; *bot.Bot implements it
type Handler interface {
	Handle(ctx context.Context, ev chat.Event) error
}

// Sessions is the part of the session store the gateway uses
type Sessions interface {
	Len() int
	Remove(id chat.ConversationID)
}

// Uploads reports running upload jobs
type Uploads interface {
	Active() int
}

// conversationURI binds the :conversation path segment
type conversationURI struct {
	Conversation string `uri:"conversation" binding:"required,max=128,printascii"`
}

// EventRequest is the body of POST .../events
type EventRequest struct {
	Kind      string `json:"kind" binding:"required,oneof=command action text"`
	Text      string `json:"text" binding:"required_unless=Kind action"`
	Action    string `json:"action" binding:"required_if=Kind action"`
	MessageID string `json:"message_id" binding:"required_if=Kind action"`
}

// toEvent converts the request into a conversation event
func (r EventRequest) toEvent(conv chat.ConversationID) (chat.Event, bool) {
	switch r.Kind {
	case "command":
		ev := chat.ParseInput(conv, r.Text)
		return ev, ev.Kind == chat.EventCommand
	case "action":
		return chat.ActionEvent(conv, chat.MessageID(r.MessageID), r.Action), true
	default:
		return chat.Event{Conversation: conv, Kind: chat.EventText, Text: r.Text}, true
	}
}

// ConversationHandler serves the conversation endpoints
type ConversationHandler struct {
	handler  Handler
	outbox   *Outbox
	sessions Sessions
}

// NewConversationHandler creates the conversation endpoints
func NewConversationHandler(handler Handler, outbox *Outbox, sessions Sessions) *ConversationHandler {
	return &ConversationHandler{
		handler:  handler,
		outbox:   outbox,
		sessions: sessions,
	}
}

func bindConversation(c *gin.Context) (chat.ConversationID, bool) {
	var uri conversationURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid conversation id",
			"details": err.Error(),
		})
		return "", false
	}
	return chat.ConversationID(ConversationPrefix + uri.Conversation), true
}

// PostEvent handles one user event synchronously. Replies are queued in the
// outbox; the response reports how many are waiting.
func (h *ConversationHandler) PostEvent(c *gin.Context) {
	conv, ok := bindConversation(c)
	if !ok {
		return
	}

	var request EventRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		logrus.WithFields(logrus.Fields{
			"conversation": conv,
			"error":        err.Error(),
		}).Debug("Rejected gateway event")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	ev, ok := request.toEvent(conv)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Command text must start with '/'",
		})
		return
	}

	if err := h.handler.Handle(c.Request.Context(), ev); err != nil {
		logrus.WithFields(logrus.Fields{
			"conversation": conv,
			"kind":         ev.Kind.String(),
			"error":        err.Error(),
		}).Error("Failed to handle gateway event")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to handle event",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"pending": h.outbox.Pending(conv),
	})
}

// GetUpdates drains the conversation's queued sends and edits
func (h *ConversationHandler) GetUpdates(c *gin.Context) {
	conv, ok := bindConversation(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"updates": h.outbox.Drain(conv),
	})
}

// DeleteConversation forgets the conversation's navigation state and
// queued output
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	conv, ok := bindConversation(c)
	if !ok {
		return
	}
	if h.sessions != nil {
		h.sessions.Remove(conv)
	}
	h.outbox.Forget(conv)
	c.Status(http.StatusNoContent)
}

// AuthMiddleware requires "Authorization: Bearer <token>" on every route
// except /health
func AuthMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		if parts[1] != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Next()
	}
}

// requestLogger logs each request through logrus
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logrus.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}).Debug("Gateway request")
	}
}
