package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/HaiFongPan/fmbot/internal/chat"
	"github.com/HaiFongPan/fmbot/internal/tui/config"
	"github.com/HaiFongPan/fmbot/internal/tui/messaging"
	"github.com/HaiFongPan/fmbot/internal/tui/theme"
	"github.com/HaiFongPan/fmbot/internal/utils"
)

const statusTTL = 5 * time.Second

// Handler processes conversation events; *bot.Bot implements it
type Handler interface {
	Handle(ctx context.Context, ev chat.Event) error
}

// KeyMap defines keybindings for the console
type KeyMap struct {
	NextButton key.Binding
	PrevButton key.Binding
	Submit     key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Help       key.Binding
	Cancel     key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextButton: key.NewBinding(
			key.WithKeys("tab", "down", "ctrl+n"),
			key.WithHelp("tab", "next button"),
		),
		PrevButton: key.NewBinding(
			key.WithKeys("shift+tab", "up", "ctrl+p"),
			key.WithHelp("shift+tab", "previous button"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send text / press button"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", "help"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear input / close help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextButton, k.Submit, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextButton, k.PrevButton, k.Submit},
		{k.ScrollUp, k.ScrollDown},
		{k.Help, k.Cancel, k.Quit},
	}
}

// ConsoleOptions configures a console model
type ConsoleOptions struct {
	Conversation chat.ConversationID
	Handler      Handler
	// BannerLoader renders photo messages; nil shows the photo URL instead
	BannerLoader BannerLoader
	// Context bounds event handling; defaults to context.Background()
	Context context.Context
	// Title is shown in the header
	Title string
	// Resize feeds window sizes to programs whose output is not a local
	// terminal, such as SSH sessions
	Resize <-chan tea.WindowSizeMsg
}

type entry struct {
	id       chat.MessageID
	fromUser bool
	msg      chat.Message
}

// ConsoleModel is an interactive chat client for the bot
type ConsoleModel struct {
	ctx        context.Context
	conv       chat.ConversationID
	handler    Handler
	loadBanner BannerLoader
	copyLink   func(string) error
	title      string

	entries []entry
	index   map[chat.MessageID]int
	banners map[string]string

	activeID chat.MessageID
	keyboard chat.Keyboard
	selected int

	input      textinput.Model
	transcript viewport.Model
	spinner    spinner.Model
	help       help.Model
	keyMap     KeyMap
	status     messaging.StatusManager

	pending      int
	showHelp     bool
	windowWidth  int
	windowHeight int
}

type eventDoneMsg struct {
	err error
}

type bannerLoadedMsg struct {
	url string
	art string
	err error
}

type linkCopiedMsg struct {
	url string
	err error
}

// NewConsoleModel creates a new console model
func NewConsoleModel(opts ConsoleOptions) *ConsoleModel {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	title := opts.Title
	if title == "" {
		title = "🌙 fmbot console"
	}

	ti := textinput.New()
	ti.Placeholder = "Type /start, a command, or a reply…"
	ti.Prompt = "› "
	ti.CharLimit = 2048
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = theme.CreateLoadingStyle()

	h := help.New()
	h.ShowAll = false

	m := &ConsoleModel{
		ctx:          ctx,
		conv:         opts.Conversation,
		handler:      opts.Handler,
		loadBanner:   opts.BannerLoader,
		copyLink:     utils.CopyToClipboard,
		title:        title,
		index:        make(map[chat.MessageID]int),
		banners:      make(map[string]string),
		input:        ti,
		transcript:   viewport.New(config.DefaultWindowWidth, config.DefaultWindowHeight),
		spinner:      s,
		help:         h,
		keyMap:       DefaultKeyMap(),
		status:       messaging.NewStatusManager(),
		windowWidth:  config.DefaultWindowWidth,
		windowHeight: config.DefaultWindowHeight,
	}
	m.layout()
	return m
}

// Init implements the bubbletea.Model interface
func (m *ConsoleModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.dispatch(chat.ParseInput(m.conv, "/start")),
	)
}

// Update implements the bubbletea.Model interface
func (m *ConsoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.status.ExpireOlderThan(statusTTL, time.Now())
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.layout()
		m.refreshTranscript()
		return m, nil

	case botSentMsg:
		m.appendEntry(entry{id: msg.id, msg: msg.msg})
		if len(msg.msg.Keyboard) > 0 {
			m.activate(msg.id, msg.msg.Keyboard)
		}
		m.refreshTranscript()
		return m, m.bannerCmd(msg.msg.PhotoURL)

	case botEditedMsg:
		i, ok := m.index[msg.id]
		if !ok {
			// edits of trimmed entries show up as new messages
			m.appendEntry(entry{id: msg.id, msg: msg.msg})
		} else {
			m.entries[i].msg = msg.msg
		}
		switch {
		case len(msg.msg.Keyboard) > 0:
			m.activate(msg.id, msg.msg.Keyboard)
		case msg.id == m.activeID:
			m.activate("", nil)
		}
		m.refreshTranscript()
		return m, nil

	case eventDoneMsg:
		if m.pending > 0 {
			m.pending--
		}
		if msg.err != nil {
			m.status.SetMessage(fmt.Sprintf("Failed to deliver reply: %v", msg.err), messaging.MessageError)
		}
		return m, nil

	case bannerLoadedMsg:
		if msg.err != nil {
			logrus.WithError(msg.err).Warn("Failed to load welcome image")
			m.status.SetMessage("Welcome image unavailable", messaging.MessageWarning)
			m.banners[msg.url] = ""
		} else {
			m.banners[msg.url] = msg.art
		}
		m.refreshTranscript()
		return m, nil

	case linkCopiedMsg:
		if msg.err != nil {
			m.status.SetMessage(fmt.Sprintf("Link: %s (%v)", msg.url, msg.err), messaging.MessageWarning)
		} else {
			m.status.SetMessage("Link copied to clipboard", messaging.MessageSuccess)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKey handles keyboard input
func (m *ConsoleModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keyMap.Cancel):
		if m.showHelp {
			m.showHelp = false
		} else {
			m.input.Reset()
		}
		return m, nil

	case key.Matches(msg, m.keyMap.NextButton):
		m.moveSelection(1)
		return m, nil

	case key.Matches(msg, m.keyMap.PrevButton):
		m.moveSelection(-1)
		return m, nil

	case key.Matches(msg, m.keyMap.ScrollUp), key.Matches(msg, m.keyMap.ScrollDown):
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keyMap.Submit):
		return m, m.submit()
	}

	if m.showHelp {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends typed text, or presses the selected button when the input
// is empty
func (m *ConsoleModel) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text != "" {
		m.input.Reset()
		m.appendEntry(entry{fromUser: true, msg: chat.Message{Text: text}})
		m.refreshTranscript()
		return m.dispatch(chat.ParseInput(m.conv, text))
	}

	buttons := m.keyboard.Buttons()
	if len(buttons) == 0 {
		return nil
	}
	return m.press(buttons[m.selected])
}

func (m *ConsoleModel) press(b chat.Button) tea.Cmd {
	if b.IsLink() {
		url := b.URL
		copyLink := m.copyLink
		return func() tea.Msg {
			return linkCopiedMsg{url: url, err: copyLink(url)}
		}
	}

	m.appendEntry(entry{fromUser: true, msg: chat.Message{Text: "[" + b.Label + "]"}})
	m.refreshTranscript()
	return m.dispatch(chat.ActionEvent(m.conv, m.activeID, b.Action))
}

// dispatch runs the handler off the UI goroutine; its output comes back
// through the Messenger
func (m *ConsoleModel) dispatch(ev chat.Event) tea.Cmd {
	if m.handler == nil {
		return nil
	}
	m.pending++
	ctx, handler := m.ctx, m.handler
	return func() tea.Msg {
		return eventDoneMsg{err: handler.Handle(ctx, ev)}
	}
}

func (m *ConsoleModel) bannerCmd(url string) tea.Cmd {
	if url == "" || m.loadBanner == nil {
		return nil
	}
	if _, ok := m.banners[url]; ok {
		return nil
	}
	ctx, load := m.ctx, m.loadBanner
	return func() tea.Msg {
		art, err := load(ctx, url)
		return bannerLoadedMsg{url: url, art: art, err: err}
	}
}

func (m *ConsoleModel) activate(id chat.MessageID, kb chat.Keyboard) {
	m.activeID = id
	m.keyboard = kb
	m.selected = 0
	m.layout()
}

func (m *ConsoleModel) moveSelection(delta int) {
	n := len(m.keyboard.Buttons())
	if n == 0 {
		return
	}
	m.selected = ((m.selected+delta)%n + n) % n
}

func (m *ConsoleModel) appendEntry(e entry) {
	m.entries = append(m.entries, e)
	if len(m.entries) > config.MaxTranscriptEntries {
		m.entries = m.entries[len(m.entries)-config.MaxTranscriptEntries:]
	}

	m.index = make(map[chat.MessageID]int, len(m.entries))
	for i, e := range m.entries {
		if e.id != "" {
			m.index[e.id] = i
		}
	}
}

func (m *ConsoleModel) keyboardRows() int {
	return min(len(m.keyboard), config.MaxKeyboardRows)
}

func (m *ConsoleModel) layout() {
	width := max(m.windowWidth-4, 20)
	height := m.windowHeight - config.FixedChromeRows - config.TranscriptChromeRows - m.keyboardRows()
	m.transcript.Width = width
	m.transcript.Height = max(height, 3)
	m.input.Width = max(m.windowWidth-6, 10)
}

func (m *ConsoleModel) refreshTranscript() {
	m.transcript.SetContent(m.renderTranscript(m.transcript.Width))
	m.transcript.GotoBottom()
}

func (m *ConsoleModel) renderTranscript(width int) string {
	botStyle := theme.CreateBotTextStyle().Width(width)
	userStyle := theme.CreateUserTextStyle()
	hintStyle := theme.CreateSecondaryTextStyle()

	blocks := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		if e.fromUser {
			blocks = append(blocks, userStyle.Render("› "+e.msg.Text))
			continue
		}

		var b strings.Builder
		if url := e.msg.PhotoURL; url != "" {
			if art := m.banners[url]; art != "" {
				b.WriteString(art)
			} else {
				b.WriteString(hintStyle.Render("🖼 " + url))
			}
			b.WriteString("\n")
		}
		b.WriteString(botStyle.Render(e.msg.Text))
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

func (m *ConsoleModel) renderKeyboard() string {
	if len(m.keyboard) == 0 {
		return ""
	}

	// flattened index of each row's first button
	starts := make([]int, len(m.keyboard))
	selectedRow, n := 0, 0
	for i, row := range m.keyboard {
		starts[i] = n
		if m.selected >= n && m.selected < n+len(row) {
			selectedRow = i
		}
		n += len(row)
	}

	visible := m.keyboardRows()
	first := 0
	if selectedRow >= visible {
		first = selectedRow - visible + 1
	}

	lines := make([]string, 0, visible)
	for r := first; r < first+visible && r < len(m.keyboard); r++ {
		cells := make([]string, 0, len(m.keyboard[r]))
		for c, button := range m.keyboard[r] {
			label := button.Label
			if button.IsLink() {
				label = "🔗 " + label
			}
			selected := starts[r]+c == m.selected
			cells = append(cells, theme.CreateButtonStyle(selected, button.IsLink()).Render(label))
		}
		lines = append(lines, " "+lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return strings.Join(lines, "\n")
}

// View implements the bubbletea.Model interface
func (m *ConsoleModel) View() string {
	if m.showHelp {
		return lipgloss.Place(
			m.windowWidth,
			m.windowHeight,
			lipgloss.Center,
			lipgloss.Center,
			m.renderHelpDialog(),
		)
	}

	var b strings.Builder

	header := m.title
	if m.pending > 0 {
		header += " " + m.spinner.View()
	}
	b.WriteString(theme.CreateHeaderStyle().Render(header))
	b.WriteString("\n")

	b.WriteString(theme.CreateTranscriptStyle().Render(m.transcript.View()))
	b.WriteString("\n")

	if kb := m.renderKeyboard(); kb != "" {
		b.WriteString(kb)
		b.WriteString("\n")
	}

	b.WriteString(" " + m.status.RenderMessage())
	b.WriteString("\n")
	b.WriteString(" " + m.input.View())
	b.WriteString("\n")
	b.WriteString(theme.CreateFooterStyle().Render(m.help.ShortHelpView(m.keyMap.ShortHelp())))

	return b.String()
}

// renderHelpDialog renders the help dialog using bubbles components
func (m *ConsoleModel) renderHelpDialog() string {
	title := theme.CreateHeaderStyle().Render("🚀 fmbot console - Help")
	body := m.help.FullHelpView(m.keyMap.FullHelp())

	usage := theme.CreateSecondaryTextStyle().Render(
		"Commands: /start /allfld /account_info /create <name> /status\n" +
			"Link buttons copy their URL to the clipboard.")

	content := lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", usage)
	return theme.CreateDialogStyle(min(config.HelpDialogWidth, m.windowWidth-4), "").Render(content)
}

// Run starts a console program for opts.Conversation and blocks until it
// exits. Bot output for the conversation is routed through messenger.
func Run(opts ConsoleOptions, messenger *Messenger, programOpts ...tea.ProgramOption) error {
	model := NewConsoleModel(opts)
	program := tea.NewProgram(model, programOpts...)

	messenger.Attach(opts.Conversation, program)
	defer messenger.Detach(opts.Conversation)

	if opts.Resize != nil {
		done := make(chan struct{})
		defer close(done)
		go func() {
			for {
				select {
				case size, ok := <-opts.Resize:
					if !ok {
						return
					}
					program.Send(size)
				case <-done:
					return
				}
			}
		}()
	}

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("console exited with error: %w", err)
	}
	return nil
}
