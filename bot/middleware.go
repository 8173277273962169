package bot

import (
	"log/slog"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegohandler"
)

// registerMiddleware makes sure every observed author and group chat has a
// registry record before any handler runs. A freshly created user gets the
// consent prompt; everybody else is left alone.
func (b *Bot) registerMiddleware(bot *telego.Bot, update telego.Update, next telegohandler.Handler) {
	if update.Message != nil && update.Message.From != nil {
		from := update.Message.From

		created, err := b.storage.RegisterUser(from.ID, from.IsBot)
		if err != nil {
			slog.Error("bot: Cannot register user", "error", err, "user_id", from.ID)

			next(bot, update)
			return
		}

		if created && !from.IsBot && isGroupChat(update.Message.Chat) {
			b.sendConsentPrompt(from.ID, update.Message.Chat.Title)
		}

		if isGroupChat(update.Message.Chat) {
			err = b.storage.RegisterServer(update.Message.Chat.ID, update.Message.Chat.Title, nil)
			if err != nil {
				slog.Error("bot: Cannot register chat", "error", err,
					"chat_id", update.Message.Chat.ID)
			}
		}
	}

	next(bot, update)
}
