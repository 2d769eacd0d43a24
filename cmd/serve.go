package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/HaiFongPan/fmbot/internal/gateway"
	"github.com/HaiFongPan/fmbot/internal/session"
	"github.com/HaiFongPan/fmbot/internal/sshconsole"
)

var (
	serveAddr    string
	serveSSH     bool
	serveSSHAddr string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway and, optionally, the SSH console",
	Long: `Serve the bot over HTTP and SSH until interrupted.

HTTP clients post events to /api/v1/conversations/<id>/events and poll
/api/v1/conversations/<id>/updates for the bot's messages. When ssh.enabled
is set every interactive SSH session gets its own console conversation.
Idle conversations are swept on session.sweep_schedule.

Examples:
  fmbot serve
  fmbot serve --addr :9090
  fmbot serve --ssh --ssh-addr :2222`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "gateway listen address (overrides config)")
	serveCmd.Flags().BoolVar(&serveSSH, "ssh", false, "enable the SSH console (overrides config)")
	serveCmd.Flags().StringVar(&serveSSHAddr, "ssh-addr", "", "SSH listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := *GetConfig()
	if serveAddr != "" {
		cfg.Gateway.Addr = serveAddr
	}
	if cmd.Flags().Changed("ssh") {
		cfg.SSH.Enabled = serveSSH
	}
	if serveSSHAddr != "" {
		cfg.SSH.Addr = serveSSHAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(&cfg, ctx)
	if err != nil {
		return err
	}

	janitor, err := session.NewJanitor(a.sessions, cfg.Session, a.outbox)
	if err != nil {
		return err
	}
	janitor.Start()
	defer janitor.Stop()

	errCh := make(chan error, 2)
	running := 1

	gw := gateway.NewServer(cfg.Gateway, a.bot, a.outbox, a.sessions, a.monitor)
	go func() {
		errCh <- gw.Run(ctx)
	}()

	if cfg.SSH.Enabled {
		srv, err := sshconsole.NewServer(cfg.SSH, sshconsole.Options{
			Handler:      a.bot,
			Messenger:    a.console,
			Sessions:     a.sessions,
			BannerLoader: a.bannerLoader(),
			Context:      ctx,
		})
		if err != nil {
			stop()
			<-errCh
			return fmt.Errorf("failed to create SSH console: %w", err)
		}
		running++
		go func() {
			errCh <- srv.ListenAndServe()
		}()
		go func() {
			<-ctx.Done()
			srv.Close()
		}()
	}

	var firstErr error
	for i := 0; i < running; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
			// one server failing takes the others down
			stop()
		}
	}

	logrus.Info("Waiting for upload monitors to stop")
	a.monitor.Wait()
	return firstErr
}
