package sshconsole

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"

	"github.com/HaiFongPan/fmbot/internal/chat"
	"github.com/HaiFongPan/fmbot/internal/config"
	"github.com/HaiFongPan/fmbot/internal/tui"
)

type nopHandler struct{}

func (nopHandler) Handle(ctx context.Context, ev chat.Event) error { return nil }

type recordingSessions struct {
	removed []chat.ConversationID
}

func (s *recordingSessions) Remove(id chat.ConversationID) {
	s.removed = append(s.removed, id)
}

func TestNewServer_RequiresHandler(t *testing.T) {
	_, err := NewServer(config.SSHConfig{Addr: ":0"}, Options{})
	assert.Error(t, err)
}

func TestNewServer_MissingHostKey(t *testing.T) {
	_, err := NewServer(config.SSHConfig{Addr: ":0", HostKeyPath: "/nonexistent/host_key"}, Options{
		Handler:   nopHandler{},
		Messenger: tui.NewMessenger(),
	})
	assert.Error(t, err)
}

// TestSession_RequiresPTY 测试没有 PTY 的会话被拒绝
func TestSession_RequiresPTY(t *testing.T) {
	sessions := &recordingSessions{}
	srv, err := NewServer(config.SSHConfig{Addr: "127.0.0.1:0"}, Options{
		Handler:   nopHandler{},
		Messenger: tui.NewMessenger(),
		Sessions:  sessions,
	})
	require.NoError(t, err)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(l)
	defer srv.Close()

	client, err := gossh.Dial("tcp", l.Addr().String(), &gossh.ClientConfig{
		User:            "tester",
		HostKeyCallback: gossh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
	require.NoError(t, err)
	defer client.Close()

	sess, err := client.NewSession()
	require.NoError(t, err)
	defer sess.Close()

	out, err := sess.Output("")
	var exitErr *gossh.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, exitErr.ExitStatus())
	assert.Contains(t, string(out), "interactive terminal")
	assert.Empty(t, sessions.removed)
}
