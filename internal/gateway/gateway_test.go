package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HaiFongPan/fmbot/internal/chat"
	"github.com/HaiFongPan/fmbot/internal/config"
)

// echoHandler replies to every event through the outbox
type echoHandler struct {
	outbox *Outbox
	events []chat.Event
	err    error
}

func (h *echoHandler) Handle(ctx context.Context, ev chat.Event) error {
	h.events = append(h.events, ev)
	if h.err != nil {
		return h.err
	}
	id, err := h.outbox.Send(ctx, ev.Conversation, chat.Message{Text: "got " + ev.Kind.String()})
	if err != nil {
		return err
	}
	return h.outbox.Edit(ctx, ev.Conversation, id, chat.Message{Text: "edited"})
}

type fakeSessions struct {
	removed []chat.ConversationID
}

func (s *fakeSessions) Len() int { return 3 }

func (s *fakeSessions) Remove(id chat.ConversationID) {
	s.removed = append(s.removed, id)
}

type fakeUploads struct{}

func (fakeUploads) Active() int { return 1 }

type testGateway struct {
	server   *Server
	handler  *echoHandler
	outbox   *Outbox
	sessions *fakeSessions
}

func newTestGateway(t *testing.T, token string) *testGateway {
	t.Helper()
	outbox := NewOutbox()
	h := &echoHandler{outbox: outbox}
	sessions := &fakeSessions{}
	cfg := config.GatewayConfig{Addr: ":0", Token: token, Mode: gin.TestMode}
	return &testGateway{
		server:   NewServer(cfg, h, outbox, sessions, fakeUploads{}),
		handler:  h,
		outbox:   outbox,
		sessions: sessions,
	}
}

func (g *testGateway) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	g.server.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	g := newTestGateway(t, "secret")

	w := g.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(3), body["conversations"])
	assert.Equal(t, float64(1), body["uploads"])
}

func TestAuthMiddleware(t *testing.T) {
	g := newTestGateway(t, "secret")
	path := "/api/v1/conversations/c1/updates"

	testCases := []struct {
		name   string
		header string
		code   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer secret", http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			g.server.Handler().ServeHTTP(w, req)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestPostEvent_CommandThenDrain(t *testing.T) {
	g := newTestGateway(t, "")

	w := g.do(t, http.MethodPost, "/api/v1/conversations/c1/events",
		EventRequest{Kind: "command", Text: "/create Movies"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pending":2`)

	require.Len(t, g.handler.events, 1)
	ev := g.handler.events[0]
	assert.Equal(t, chat.ConversationID("http:c1"), ev.Conversation)
	assert.Equal(t, chat.EventCommand, ev.Kind)
	assert.Equal(t, "create", ev.Command)
	assert.Equal(t, "Movies", ev.Args)

	w = g.do(t, http.MethodGet, "/api/v1/conversations/c1/updates", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Updates []Update `json:"updates"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Updates, 2)
	assert.Equal(t, UpdateSend, body.Updates[0].Type)
	assert.Equal(t, "got command", body.Updates[0].Message.Text)
	assert.Equal(t, UpdateEdit, body.Updates[1].Type)
	assert.Equal(t, body.Updates[0].MessageID, body.Updates[1].MessageID)

	// 已取走的更新不会再次返回
	w = g.do(t, http.MethodGet, "/api/v1/conversations/c1/updates", nil, "")
	assert.JSONEq(t, `{"updates":[]}`, w.Body.String())
}

func TestPostEvent_ActionAndText(t *testing.T) {
	g := newTestGateway(t, "")

	w := g.do(t, http.MethodPost, "/api/v1/conversations/c1/events",
		EventRequest{Kind: "action", Action: "all_folders", MessageID: "m1"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = g.do(t, http.MethodPost, "/api/v1/conversations/c1/events",
		EventRequest{Kind: "text", Text: "New Name"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, g.handler.events, 2)
	assert.Equal(t, chat.ActionEvent("http:c1", "m1", "all_folders"), g.handler.events[0])
	assert.Equal(t, chat.EventText, g.handler.events[1].Kind)
	assert.Equal(t, "New Name", g.handler.events[1].Text)
}

func TestPostEvent_Validation(t *testing.T) {
	g := newTestGateway(t, "")

	testCases := []struct {
		name string
		body EventRequest
	}{
		{"unknown kind", EventRequest{Kind: "photo", Text: "x"}},
		{"action without message id", EventRequest{Kind: "action", Action: "all_folders"}},
		{"text without text", EventRequest{Kind: "text"}},
		{"command without slash", EventRequest{Kind: "command", Text: "start"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := g.do(t, http.MethodPost, "/api/v1/conversations/c1/events", tc.body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Empty(t, g.handler.events)
}

func TestPostEvent_HandlerError(t *testing.T) {
	g := newTestGateway(t, "")
	g.handler.err = errors.New("messenger down")

	w := g.do(t, http.MethodPost, "/api/v1/conversations/c1/events",
		EventRequest{Kind: "command", Text: "/start"}, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDeleteConversation(t *testing.T) {
	g := newTestGateway(t, "")
	_, err := g.outbox.Send(context.Background(), "http:c1", chat.Message{Text: "hi"})
	require.NoError(t, err)

	w := g.do(t, http.MethodDelete, "/api/v1/conversations/c1", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []chat.ConversationID{"http:c1"}, g.sessions.removed)
	assert.Equal(t, 0, g.outbox.Pending("http:c1"))
}

func TestOutbox_DropsOldest(t *testing.T) {
	o := NewOutbox()
	o.limit = 3
	o.now = func() time.Time { return time.Unix(0, 0) }

	for _, text := range []string{"a", "b", "c", "d"} {
		_, err := o.Send(context.Background(), "c1", chat.Message{Text: text})
		require.NoError(t, err)
	}

	updates := o.Drain("c1")
	require.Len(t, updates, 3)
	assert.Equal(t, "b", updates[0].Message.Text)
	assert.Equal(t, "d", updates[2].Message.Text)
	assert.Empty(t, o.Drain("c1"))
}

func TestOutbox_SweepDropsStaleQueues(t *testing.T) {
	o := NewOutbox()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return now }

	_, err := o.Send(context.Background(), "stale", chat.Message{Text: "old"})
	require.NoError(t, err)
	now = now.Add(45 * time.Minute)
	_, err = o.Send(context.Background(), "fresh", chat.Message{Text: "new"})
	require.NoError(t, err)
	now = now.Add(20 * time.Minute)

	assert.Equal(t, 1, o.Sweep(time.Hour))
	assert.Equal(t, 0, o.Pending("stale"))
	assert.Equal(t, 1, o.Pending("fresh"))

	// an edit keeps a queue alive
	_, err = o.Send(context.Background(), "fresh", chat.Message{Text: "again"})
	require.NoError(t, err)
	now = now.Add(50 * time.Minute)
	assert.Equal(t, 0, o.Sweep(time.Hour))
	assert.Equal(t, 2, o.Pending("fresh"))
}
