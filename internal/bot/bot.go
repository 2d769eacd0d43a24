// Package bot implements the conversation state machine: it turns chat
// events into API calls and rendered messages.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/HaiFongPan/fmbot/internal/chat"
	"github.com/HaiFongPan/fmbot/internal/directory"
	"github.com/HaiFongPan/fmbot/internal/filemoon"
	"github.com/HaiFongPan/fmbot/internal/session"
	"github.com/HaiFongPan/fmbot/internal/upload"
)

var (
	// ErrFolderNotFound is returned when a folder id is absent from the
	// latest listing
	ErrFolderNotFound = errors.New("folder not found")
	// ErrValidation is returned for missing or malformed user input
	ErrValidation = errors.New("invalid input")
)

var validate = validator.New()

// API is the subset of the filemoon client the bot calls directly
type API interface {
	GetAccountInfo(ctx context.Context) (*filemoon.AccountInfo, error)
	CreateFolder(ctx context.Context, name string) (string, error)
	RenameFolder(ctx context.Context, folderID int64, name string) error
	DeleteFolder(ctx context.Context, folderID int64) error
}

// Uploader submits remote uploads and watches them in the background
type Uploader interface {
	Submit(ctx context.Context, sourceURL string, folderID int64) (*upload.Job, error)
	Start(ctx context.Context, job *upload.Job, render upload.RenderFunc)
}

// Options holds optional Bot settings
type Options struct {
	WelcomeImageURL string
	// JobContext bounds upload poll loops; it outlives single events
	JobContext context.Context
}

// Bot dispatches chat events for any number of conversations
type Bot struct {
	api       API
	dir       *directory.Directory
	uploads   Uploader
	sessions  *session.Store
	messenger chat.Messenger

	welcomeImageURL string
	jobCtx          context.Context
	now             func() time.Time
}

// New creates a Bot
func New(api API, dir *directory.Directory, uploads Uploader, sessions *session.Store, messenger chat.Messenger, opts Options) *Bot {
	jobCtx := opts.JobContext
	if jobCtx == nil {
		jobCtx = context.Background()
	}
	return &Bot{
		api:             api,
		dir:             dir,
		uploads:         uploads,
		sessions:        sessions,
		messenger:       messenger,
		welcomeImageURL: opts.WelcomeImageURL,
		jobCtx:          jobCtx,
		now:             time.Now,
	}
}

// Handle processes one event. Events of the same conversation are handled
// one at a time. User-facing failures are rendered into the conversation;
// the returned error only reports messages that could not be delivered.
func (b *Bot) Handle(ctx context.Context, ev chat.Event) error {
	nav, release := b.sessions.Acquire(ev.Conversation)
	defer release()

	log := logrus.WithFields(logrus.Fields{
		"conversation": ev.Conversation,
		"kind":         ev.Kind,
	})

	var err error
	switch ev.Kind {
	case chat.EventCommand:
		log.WithField("command", ev.Command).Debug("Handling command")
		err = b.handleCommand(ctx, nav, ev)
	case chat.EventAction:
		log.WithField("action", ev.Action).Debug("Handling action")
		err = b.handleAction(ctx, nav, ev)
	case chat.EventText:
		err = b.handleText(ctx, nav, ev)
	default:
		log.Warn("Ignoring event of unknown kind")
	}

	if err != nil {
		log.WithError(err).Error("Failed to deliver reply")
	}
	return err
}

func (b *Bot) handleCommand(ctx context.Context, nav *session.NavigationContext, ev chat.Event) error {
	switch ev.Command {
	case "start":
		return b.start(ctx, nav, ev)
	case "account_info":
		return b.accountInfo(ctx, nav, ev)
	case "allfld":
		return b.showFolders(ctx, nav, ev, 1, "")
	case "create":
		return b.createFolder(ctx, ev)
	case "status":
		return b.status(ctx, ev)
	default:
		_, err := b.send(ctx, ev, chat.Message{Text: fmt.Sprintf(unknownCommandFmt, ev.Command)})
		return err
	}
}

func (b *Bot) handleAction(ctx context.Context, nav *session.NavigationContext, ev chat.Event) error {
	action, err := ParseAction(ev.Action)
	if err != nil {
		logrus.WithFields(logrus.Fields{"action": ev.Action, "error": err}).Warn("Ignoring unknown action")
		return nil
	}

	switch action.Kind {
	case ActionMainMenu:
		return b.start(ctx, nav, ev)
	case ActionTutorial:
		nav.Screen = session.ScreenTutorial
		return b.reply(ctx, ev, chat.Message{Text: tutorialText, Keyboard: backToMenuKeyboard()})
	case ActionAccountInfo:
		return b.accountInfo(ctx, nav, ev)
	case ActionAllFolders:
		return b.showFolders(ctx, nav, ev, 1, "")
	case ActionPage:
		return b.showFolders(ctx, nav, ev, action.Page, "")
	case ActionBackToFolders:
		nav.TakePending()
		nav.ClearActiveFolder()
		return b.showFolders(ctx, nav, ev, 1, "")
	case ActionPageInfo, ActionTotalFolders:
		return nil
	case ActionFolder:
		return b.selectFolder(ctx, nav, ev, action.FolderID)
	case ActionViewFiles:
		return b.viewFiles(ctx, nav, ev, action.FolderID)
	case ActionEditName:
		if _, ok, err := b.requireFolder(ctx, nav, ev, action.FolderID); !ok {
			return err
		}
		nav.SetActiveFolder(action.FolderID)
		nav.SetPending(session.PendingRenameText, action.FolderID)
		nav.Screen = session.ScreenAwaitingRenameInput
		_, err := b.send(ctx, ev, chat.Message{Text: renamePromptText})
		return err
	case ActionDelete:
		return b.deleteFolder(ctx, nav, ev, action.FolderID)
	case ActionRemoteUpload:
		if _, ok, err := b.requireFolder(ctx, nav, ev, action.FolderID); !ok {
			return err
		}
		nav.SetActiveFolder(action.FolderID)
		nav.SetPending(session.PendingUploadURL, action.FolderID)
		nav.Screen = session.ScreenAwaitingUploadURL
		_, err := b.send(ctx, ev, chat.Message{Text: uploadPromptText})
		return err
	case ActionSendLinks:
		return b.sendAllLinks(ctx, nav, ev, action.FolderID)
	default:
		return nil
	}
}

func (b *Bot) handleText(ctx context.Context, nav *session.NavigationContext, ev chat.Event) error {
	pending := nav.TakePending()

	switch pending.Kind {
	case session.PendingRenameText:
		return b.submitRename(ctx, nav, ev, pending.FolderID)
	case session.PendingUploadURL:
		return b.submitUpload(ctx, nav, ev, pending.FolderID)
	default:
		logrus.WithField("conversation", ev.Conversation).Debug("Ignoring text with no pending request")
		return nil
	}
}

func (b *Bot) start(ctx context.Context, nav *session.NavigationContext, ev chat.Event) error {
	nav.TakePending()
	nav.ClearActiveFolder()
	nav.Screen = session.ScreenMainMenu
	nav.CurrentPage = 1

	msg := chat.Message{Text: welcomeText, Keyboard: mainMenuKeyboard()}
	if b.welcomeImageURL != "" {
		photo := msg
		photo.PhotoURL = b.welcomeImageURL
		_, err := b.messenger.Send(ctx, ev.Conversation, photo)
		if err == nil {
			return nil
		}
		logrus.WithError(err).Error("Error sending welcome photo")
	}

	_, err := b.messenger.Send(ctx, ev.Conversation, msg)
	return err
}

func (b *Bot) accountInfo(ctx context.Context, nav *session.NavigationContext, ev chat.Event) error {
	nav.Screen = session.ScreenAccountInfo

	info, err := b.api.GetAccountInfo(ctx)
	if err != nil {
		_, sendErr := b.send(ctx, ev, chat.Message{Text: "❌ Failed to fetch account info: " + err.Error()})
		return sendErr
	}

	_, err = b.send(ctx, ev, chat.Message{Text: accountText(info)})
	return err
}

// showFolders renders page n of the folder list. status, when set, is shown
// above the list.
func (b *Bot) showFolders(ctx context.Context, nav *session.NavigationContext, ev chat.Event, n int, status string) error {
	page := b.dir.FetchFolderPage(ctx, n)
	nav.ShowFolderList(page.Number)

	text := selectFolderText
	var kb chat.Keyboard
	if len(page.Folders) == 0 {
		text = noFoldersText
		kb = backToMenuKeyboard()
	} else {
		kb = folderListKeyboard(page)
	}
	if status != "" {
		text = status + "\n\n" + text
	}

	return b.reply(ctx, ev, chat.Message{Text: text, Keyboard: kb})
}

func (b *Bot) selectFolder(ctx context.Context, nav *session.NavigationContext, ev chat.Event, folderID int64) error {
	folder, ok, err := b.requireFolder(ctx, nav, ev, folderID)
	if !ok {
		return err
	}

	nav.SetActiveFolder(folder.ID)
	nav.Screen = session.ScreenFolderActions
	return b.reply(ctx, ev, chat.Message{Text: folderActionsText(folder), Keyboard: folderActionsKeyboard(folder.ID)})
}

func (b *Bot) lookupFolder(ctx context.Context, folderID int64) (filemoon.Folder, error) {
	folder, ok := b.dir.FindFolder(ctx, folderID)
	if !ok {
		return filemoon.Folder{}, fmt.Errorf("%w: %d", ErrFolderNotFound, folderID)
	}
	return folder, nil
}

// requireFolder reports whether folderID is in a fresh listing. When it is
// not, the active folder and pending slot are cleared and "Folder not found."
// is shown; the returned error is the render error, if any.
func (b *Bot) requireFolder(ctx context.Context, nav *session.NavigationContext, ev chat.Event, folderID int64) (filemoon.Folder, bool, error) {
	folder, err := b.lookupFolder(ctx, folderID)
	if err == nil {
		return folder, true, nil
	}

	logrus.WithFields(logrus.Fields{"conversation": ev.Conversation, "folder_id": folderID}).Warn("Folder not in listing")
	nav.TakePending()
	nav.ClearActiveFolder()
	return filemoon.Folder{}, false, b.reply(ctx, ev, chat.Message{Text: folderNotFound, Keyboard: folderNotFoundKeyboard()})
}

func (b *Bot) viewFiles(ctx context.Context, nav *session.NavigationContext, ev chat.Event, folderID int64) error {
	if _, ok, err := b.requireFolder(ctx, nav, ev, folderID); !ok {
		return err
	}
	nav.SetActiveFolder(folderID)

	files := b.dir.FetchFiles(ctx, folderID)
	if len(files) == 0 {
		nav.Screen = session.ScreenFolderActions
		return b.reply(ctx, ev, chat.Message{Text: noFilesText, Keyboard: backToFolderKeyboard(folderID)})
	}

	nav.Screen = session.ScreenFileList
	return b.reply(ctx, ev, chat.Message{Text: filesText(folderID), Keyboard: fileListKeyboard(folderID, files)})
}

func (b *Bot) sendAllLinks(ctx context.Context, nav *session.NavigationContext, ev chat.Event, folderID int64) error {
	if _, ok, err := b.requireFolder(ctx, nav, ev, folderID); !ok {
		return err
	}

	files := b.dir.FetchFiles(ctx, folderID)
	if len(files) == 0 {
		return b.reply(ctx, ev, chat.Message{Text: noFilesText, Keyboard: backToFolderKeyboard(folderID)})
	}

	nav.Screen = session.ScreenSendAllLinks
	if _, err := b.messenger.Send(ctx, ev.Conversation, chat.Message{Text: linksText(folderID, files)}); err != nil {
		return err
	}
	return b.reply(ctx, ev, chat.Message{Text: linksSentText, Keyboard: backToFolderKeyboard(folderID)})
}

func (b *Bot) submitRename(ctx context.Context, nav *session.NavigationContext, ev chat.Event, folderID int64) error {
	if _, ok, err := b.requireFolder(ctx, nav, ev, folderID); !ok {
		return err
	}
	nav.SetActiveFolder(folderID)
	nav.Screen = session.ScreenFolderActions
	kb := folderActionsKeyboard(folderID)

	name, err := validateFolderName(ev.Text)
	if err != nil {
		_, sendErr := b.messenger.Send(ctx, ev.Conversation, chat.Message{Text: emptyNameText, Keyboard: kb})
		return sendErr
	}

	if err := b.api.RenameFolder(ctx, folderID, name); err != nil {
		_, sendErr := b.messenger.Send(ctx, ev.Conversation, chat.Message{
			Text:     "Failed to rename folder. " + err.Error(),
			Keyboard: kb,
		})
		return sendErr
	}

	_, err = b.messenger.Send(ctx, ev.Conversation, chat.Message{
		Text:     fmt.Sprintf("Folder renamed to '%s' successfully!", name),
		Keyboard: kb,
	})
	return err
}

func (b *Bot) deleteFolder(ctx context.Context, nav *session.NavigationContext, ev chat.Event, folderID int64) error {
	if nav.Pending.FolderID == folderID {
		nav.TakePending()
	}

	var status string
	if err := b.api.DeleteFolder(ctx, folderID); err != nil {
		status = "Failed to delete folder. " + err.Error()
	} else {
		status = fmt.Sprintf("Folder (ID: %d) deleted successfully.", folderID)
		if nav.ActiveFolderID == folderID {
			nav.ClearActiveFolder()
		}
	}

	return b.showFolders(ctx, nav, ev, 1, status)
}

func (b *Bot) submitUpload(ctx context.Context, nav *session.NavigationContext, ev chat.Event, folderID int64) error {
	if _, ok, err := b.requireFolder(ctx, nav, ev, folderID); !ok {
		return err
	}
	nav.SetActiveFolder(folderID)
	nav.Screen = session.ScreenFolderActions
	kb := folderActionsKeyboard(folderID)

	sourceURL, err := validateUploadURL(ev.Text)
	if err != nil {
		_, sendErr := b.messenger.Send(ctx, ev.Conversation, chat.Message{Text: invalidURLText, Keyboard: kb})
		return sendErr
	}

	job, err := b.uploads.Submit(ctx, sourceURL, folderID)
	if err != nil {
		_, sendErr := b.messenger.Send(ctx, ev.Conversation, chat.Message{
			Text:     "Failed to start remote upload. " + err.Error(),
			Keyboard: kb,
		})
		return sendErr
	}

	conv := ev.Conversation
	msgID, err := b.messenger.Send(ctx, conv, chat.Message{Text: job.QueuedText()})
	if err != nil {
		return err
	}

	b.uploads.Start(b.jobCtx, job, func(ctx context.Context, text string) error {
		return b.messenger.Edit(ctx, conv, msgID, chat.Message{Text: text})
	})
	return nil
}

func (b *Bot) createFolder(ctx context.Context, ev chat.Event) error {
	name, err := validateFolderName(ev.Args)
	if err != nil {
		_, sendErr := b.send(ctx, ev, chat.Message{Text: createUsageText})
		return sendErr
	}

	if _, err := b.api.CreateFolder(ctx, name); err != nil {
		_, sendErr := b.send(ctx, ev, chat.Message{Text: "Failed to create folder. " + err.Error()})
		return sendErr
	}

	_, err = b.send(ctx, ev, chat.Message{Text: fmt.Sprintf("Folder '%s' created successfully!", name)})
	return err
}

// status answers a liveness probe with the round trip of one send
func (b *Bot) status(ctx context.Context, ev chat.Event) error {
	started := b.now()
	id, err := b.send(ctx, ev, chat.Message{Text: pingingText})
	if err != nil {
		return err
	}

	latency := float64(b.now().Sub(started).Microseconds()) / 1000
	return b.messenger.Edit(ctx, ev.Conversation, id, chat.Message{
		Text: fmt.Sprintf("📡 Ping: %.2f ms\nBot is online and operational.", latency),
	})
}

// reply edits the message whose button triggered ev, or sends a new one
func (b *Bot) reply(ctx context.Context, ev chat.Event, msg chat.Message) error {
	if ev.Kind == chat.EventAction && ev.MessageID != "" {
		return b.messenger.Edit(ctx, ev.Conversation, ev.MessageID, msg)
	}
	_, err := b.messenger.Send(ctx, ev.Conversation, msg)
	return err
}

func (b *Bot) send(ctx context.Context, ev chat.Event, msg chat.Message) (chat.MessageID, error) {
	return b.messenger.Send(ctx, ev.Conversation, msg)
}

func validateFolderName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: folder name is empty", ErrValidation)
	}
	return name, nil
}

func validateUploadURL(raw string) (string, error) {
	sourceURL := strings.TrimSpace(raw)
	if err := validate.Var(sourceURL, "required,url"); err != nil {
		return "", fmt.Errorf("%w: %q is not a URL", ErrValidation, sourceURL)
	}
	return sourceURL, nil
}
