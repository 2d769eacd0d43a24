// Package sshconsole serves the bot console over SSH. Every interactive
// session is its own conversation.
package sshconsole

import (
	"context"
	"errors"
	"fmt"
	"net"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gliderlabs/ssh"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/HaiFongPan/fmbot/internal/chat"
	"github.com/HaiFongPan/fmbot/internal/config"
	"github.com/HaiFongPan/fmbot/internal/tui"
)

// ConversationPrefix namespaces SSH conversations; route it to the
// console messenger
const ConversationPrefix = "ssh:"

// Sessions is the part of the session store the SSH console uses
type Sessions interface {
	Remove(id chat.ConversationID)
}

// Options wires the console to the bot
type Options struct {
	Handler      tui.Handler
	Messenger    *tui.Messenger
	Sessions     Sessions
	BannerLoader tui.BannerLoader
	// Context bounds event handling for every session
	Context context.Context
}

// Server is an SSH server running one console program per session
type Server struct {
	cfg   config.SSHConfig
	opts  Options
	inner *ssh.Server
}

// NewServer creates the SSH server. Without a host key path an ephemeral
// key is generated at startup.
func NewServer(cfg config.SSHConfig, opts Options) (*Server, error) {
	if opts.Handler == nil || opts.Messenger == nil {
		return nil, errors.New("ssh console requires a handler and a messenger")
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}

	s := &Server{cfg: cfg, opts: opts}
	s.inner = &ssh.Server{
		Addr:    cfg.Addr,
		Handler: s.handle,
	}

	if cfg.HostKeyPath != "" {
		if err := s.inner.SetOption(ssh.HostKeyFile(cfg.HostKeyPath)); err != nil {
			return nil, fmt.Errorf("failed to load host key %s: %w", cfg.HostKeyPath, err)
		}
	} else {
		logrus.Warn("SSH host key path not set, using an ephemeral host key")
	}

	return s, nil
}

// ListenAndServe listens on the configured address
func (s *Server) ListenAndServe() error {
	logrus.Infof("SSH console ready - connect via: ssh -t -p <port> %s", s.cfg.Addr)
	return s.serveErr(s.inner.ListenAndServe())
}

// Serve accepts connections on l
func (s *Server) Serve(l net.Listener) error {
	return s.serveErr(s.inner.Serve(l))
}

func (s *Server) serveErr(err error) error {
	if errors.Is(err, ssh.ErrServerClosed) {
		return nil
	}
	return err
}

// Close stops the server and drops open sessions
func (s *Server) Close() error {
	return s.inner.Close()
}

func (s *Server) handle(sess ssh.Session) {
	pty, winCh, isPty := sess.Pty()
	if !isPty {
		fmt.Fprint(sess, "fmbot needs an interactive terminal, reconnect with ssh -t\r\n")
		sess.Exit(1)
		return
	}

	conv := chat.ConversationID(ConversationPrefix + uuid.NewString())
	log := logrus.WithFields(logrus.Fields{
		"conversation": conv,
		"user":         sess.User(),
		"remote":       sess.RemoteAddr().String(),
	})
	log.Info("SSH console session started")

	defer func() {
		if s.opts.Sessions != nil {
			s.opts.Sessions.Remove(conv)
		}
		log.Info("SSH console session ended")
	}()

	resize := make(chan tea.WindowSizeMsg, 4)
	resize <- tea.WindowSizeMsg{Width: pty.Window.Width, Height: pty.Window.Height}
	go forwardWindows(sess.Context(), winCh, resize)

	ctx, cancel := context.WithCancel(s.opts.Context)
	defer cancel()
	go func() {
		// SSH disconnects cancel in-flight handling for this session
		select {
		case <-sess.Context().Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	err := tui.Run(tui.ConsoleOptions{
		Conversation: conv,
		Handler:      s.opts.Handler,
		BannerLoader: s.opts.BannerLoader,
		Context:      ctx,
		Title:        fmt.Sprintf("🌙 fmbot console (%s)", sess.User()),
		Resize:       resize,
	}, s.opts.Messenger,
		tea.WithInput(sess),
		tea.WithOutput(sess),
		tea.WithAltScreen(),
		tea.WithContext(sess.Context()),
	)
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		log.WithError(err).Warn("SSH console exited with error")
	}
}

// forwardWindows converts SSH window-change requests into bubbletea
// window size messages until the session ends
func forwardWindows(ctx context.Context, in <-chan ssh.Window, out chan<- tea.WindowSizeMsg) {
	for {
		select {
		case w, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- tea.WindowSizeMsg{Width: w.Width, Height: w.Height}:
			default:
				// resize is best-effort
			}
		case <-ctx.Done():
			return
		}
	}
}
