package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/HaiFongPan/fmbot/internal/chat"
	"github.com/HaiFongPan/fmbot/internal/tui"
)

var consoleNoAltScreen bool

// consoleCmd represents the console command
var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Chat with the bot in an interactive terminal console",
	Long: `Start an interactive console conversation with the bot. The console
sends /start on launch; type commands or press the inline buttons with
tab and enter. Logs are written to /tmp/fmbot/app.log.

Examples:
  fmbot console
  fmbot console --no-alt-screen`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)

	consoleCmd.Flags().BoolVar(&consoleNoAltScreen, "no-alt-screen", false, "keep the transcript in the terminal scrollback")
}

func runConsole(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobCtx, cancelJobs := context.WithCancel(ctx)
	a, err := newApp(GetConfig(), jobCtx)
	if err != nil {
		cancelJobs()
		return err
	}
	defer func() {
		// uploads still polling stop with the console
		if n := a.monitor.Active(); n > 0 {
			logrus.Infof("Stopping %d upload monitor(s)", n)
		}
		cancelJobs()
		a.monitor.Wait()
	}()

	var programOpts []tea.ProgramOption
	if !consoleNoAltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	programOpts = append(programOpts, tea.WithContext(ctx))

	conv := chat.ConversationID(consolePrefix + uuid.NewString())
	return tui.Run(tui.ConsoleOptions{
		Conversation: conv,
		Handler:      a.bot,
		BannerLoader: a.bannerLoader(),
		Context:      ctx,
	}, a.console, programOpts...)
}
