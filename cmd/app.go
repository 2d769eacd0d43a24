package cmd

import (
	"context"
	"fmt"

	"github.com/HaiFongPan/fmbot/internal/bot"
	"github.com/HaiFongPan/fmbot/internal/chat"
	"github.com/HaiFongPan/fmbot/internal/config"
	"github.com/HaiFongPan/fmbot/internal/directory"
	"github.com/HaiFongPan/fmbot/internal/filemoon"
	"github.com/HaiFongPan/fmbot/internal/gateway"
	"github.com/HaiFongPan/fmbot/internal/session"
	"github.com/HaiFongPan/fmbot/internal/sshconsole"
	"github.com/HaiFongPan/fmbot/internal/tui"
	tuiconfig "github.com/HaiFongPan/fmbot/internal/tui/config"
	"github.com/HaiFongPan/fmbot/internal/upload"
	"github.com/HaiFongPan/fmbot/internal/utils"
)

// consolePrefix namespaces the local console conversation
const consolePrefix = "console:"

// app holds the bot and everything it is wired to
type app struct {
	cfg      *config.Config
	client   *filemoon.Client
	dir      *directory.Directory
	monitor  *upload.Monitor
	sessions *session.Store
	console  *tui.Messenger
	outbox   *gateway.Outbox
	bot      *bot.Bot
}

func newAPIClient(cfg *config.Config) (*filemoon.Client, error) {
	client, err := filemoon.NewClient(&cfg.API)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return client, nil
}

// newApp builds the bot. jobCtx bounds upload poll loops.
func newApp(cfg *config.Config, jobCtx context.Context) (*app, error) {
	client, err := newAPIClient(cfg)
	if err != nil {
		return nil, err
	}

	links := utils.NewLinkRewriter(cfg.Bot.CanonicalLinkHost, cfg.Bot.DisplayLinkHost)
	a := &app{
		cfg:      cfg,
		client:   client,
		dir:      directory.New(client, cfg.Bot.PageSize, links),
		monitor:  upload.NewMonitor(client, cfg.Bot.PollInterval),
		sessions: session.NewStore(),
		console:  tui.NewMessenger(),
		outbox:   gateway.NewOutbox(),
	}

	router := chat.NewRouter(nil)
	router.Route(consolePrefix, a.console)
	router.Route(sshconsole.ConversationPrefix, a.console)
	router.Route(gateway.ConversationPrefix, a.outbox)

	a.bot = bot.New(client, a.dir, a.monitor, a.sessions, router, bot.Options{
		WelcomeImageURL: cfg.Bot.WelcomeImageURL,
		JobContext:      jobCtx,
	})
	return a, nil
}

func (a *app) bannerLoader() tui.BannerLoader {
	return tui.NewHTTPBannerLoader(nil, tuiconfig.BannerCols, tuiconfig.BannerRows)
}
