package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"git.skobk.in/skobkin/telegram-conversation-saver/archive"
	"git.skobk.in/skobkin/telegram-conversation-saver/storage"
)

var (
	ErrGetMe          = errors.New("cannot retrieve api user")
	ErrUpdatesChannel = errors.New("cannot get updates channel")
	ErrHandlerInit    = errors.New("cannot initialize handler")
)

type Bot struct {
	api      *telego.Bot
	storage  *storage.Storage
	archiver *archive.Archiver
	cache    *messageCache
	siteURL  string
}

// New creates the bot. siteURL is the public base address of the web
// viewer, used to link saved conversations in replies.
func New(token string, store *storage.Storage, archiver *archive.Archiver, siteURL string) (*Bot, error) {
	api, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}

	return &Bot{
		api:      api,
		storage:  store,
		archiver: archiver,
		cache:    newMessageCache(archive.MaxWindowSize),
		siteURL:  siteURL,
	}, nil
}

// Start runs the update loop. Blocks until the handler stops.
func (b *Bot) Start() error {
	botUser, err := b.api.GetMe()
	if err != nil {
		slog.Error("bot: Cannot retrieve api user", "error", err)
		return ErrGetMe
	}

	slog.Info("bot: Running as", "id", botUser.ID, "username", botUser.Username)

	updates, err := b.api.UpdatesViaLongPolling(nil)
	if err != nil {
		slog.Error("bot: Cannot get update channel", "error", err)
		return ErrUpdatesChannel
	}

	bh, err := th.NewBotHandler(b.api, updates)
	if err != nil {
		slog.Error("bot: Cannot initialize bot handler", "error", err)
		return ErrHandlerInit
	}

	defer bh.Stop()
	defer b.api.StopLongPolling()

	bh.Use(b.registerMiddleware)

	bh.Handle(b.startHandler, th.CommandEqual("start"))
	bh.Handle(b.helpHandler, th.CommandEqual("help"))
	bh.Handle(b.grabHandler, th.CommandEqual("grab"))
	bh.Handle(b.consentCallbackHandler, th.AnyCallbackQuery())
	// Registered last so that command messages never enter the cache.
	bh.Handle(b.recordHandler, th.AnyMessage())

	bh.Start()

	return nil
}

// recordHandler feeds group messages into the recent-message cache.
// Telegram bots cannot fetch channel history, so /grab archives from here.
func (b *Bot) recordHandler(bot *telego.Bot, update telego.Update) {
	message := update.Message
	if message == nil || message.From == nil || !isGroupChat(message.Chat) {
		return
	}
	if message.Text == "" {
		return
	}

	b.cache.Add(message.Chat.ID, archive.Message{
		ID:          int64(message.MessageID),
		AuthorID:    message.From.ID,
		AuthorName:  displayName(message.From),
		AuthorIsBot: message.From.IsBot,
		Content:     message.Text,
		Timestamp:   message.Date * 1000,
	})
}

// grabHandler saves the last N cached messages of the chat as a
// conversation. Usage: /grab N [tag ...]
func (b *Bot) grabHandler(bot *telego.Bot, update telego.Update) {
	slog.Info("/grab")

	message := update.Message
	if message == nil || !isGroupChat(message.Chat) {
		return
	}
	chatID := message.Chat.ID

	args := strings.Fields(message.Text)
	if len(args) < 2 {
		b.sendMessage(chatID, "Usage: /grab %number% [tag1 tag2 ...]")
		return
	}

	count, err := strconv.Atoi(args[1])
	if err != nil || count < 1 || count > archive.MaxWindowSize {
		b.sendMessage(chatID, fmt.Sprintf(
			"Invalid argument: expected positive number under %d", archive.MaxWindowSize+1))
		return
	}

	window := b.cache.Newest(chatID, count)
	if len(window) < count {
		b.sendMessage(chatID, fmt.Sprintf(
			"I have seen less than %d messages in this chat!", count))
		return
	}

	if err := b.storage.RegisterServer(chatID, message.Chat.Title, nil); err != nil {
		b.sendMessage(chatID, "Error: Database error. Try again later.")
		return
	}

	conversationID, err := b.archiver.Archive(chatID, window, tagsToStorage(args[2:]))
	if err != nil {
		switch {
		case errors.Is(err, archive.ErrConsentDenied):
			b.sendMessage(chatID, "Failed to gather messages: at least one user in this conversation has opted out.")
		case errors.Is(err, archive.ErrInvalidWindow):
			b.sendMessage(chatID, "Usage: /grab %number% [tag1 tag2 ...]")
		default:
			b.sendMessage(chatID, "Failed to gather messages.")
		}
		return
	}

	reply := fmt.Sprintf("Saved the last %d messages!", count)
	if b.siteURL != "" {
		reply = fmt.Sprintf("%s %s/convo/%d", reply, b.siteURL, conversationID)
	}
	b.sendMessage(chatID, reply)
}

func (b *Bot) startHandler(bot *telego.Bot, update telego.Update) {
	slog.Info("/start")

	if update.Message == nil {
		return
	}

	b.sendMessage(update.Message.Chat.ID,
		"Hi! Add me to a group and I will archive conversations on request. See /help.")
}

func (b *Bot) helpHandler(bot *telego.Bot, update telego.Update) {
	slog.Info("/help")

	if update.Message == nil {
		return
	}

	b.sendMessage(update.Message.Chat.ID,
		"Instructions:\r\n"+
			"- Some users have a conversation.\r\n"+
			"- Someone decides it is worth keeping and saves it with /grab N.\r\n"+
			"- The saved messages get published on the conversation site.\r\n"+
			"Everyone is asked for consent first; opted-out users block saving.")
}

func isGroupChat(chat telego.Chat) bool {
	return chat.Type == telego.ChatTypeGroup || chat.Type == telego.ChatTypeSupergroup
}

func displayName(user *telego.User) string {
	if user.LastName != "" {
		return user.FirstName + " " + user.LastName
	}

	return user.FirstName
}
