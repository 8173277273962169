package bot

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"git.skobk.in/skobkin/telegram-conversation-saver/storage"
)

const (
	callbackOptIn     = "consent_opt_in"
	callbackOptOut    = "consent_opt_out"
	callbackAnonymous = "consent_anonymous"
)

// sendConsentPrompt DMs a first-seen user asking whether their messages may
// be archived and published. Fails quietly when the user has not started a
// private chat with the bot yet.
func (b *Bot) sendConsentPrompt(userID int64, chatTitle string) {
	text := fmt.Sprintf(
		"This is a message to let you know that the chat you are in, %s, archives conversations. "+
			"It works as follows: "+
			"1) Some users have a conversation. "+
			"2) Someone decides that the conversation is important/helpful/funny, so they save it using /grab. "+
			"3) These messages get uploaded and shared publicly.\n"+
			"If this is cool with you, opt in below. If it isn't, opt out. "+
			"If you're cool with them using your messages, but not your name, pick the last option.",
		chatTitle)

	message := tu.Message(tu.ID(userID), text)
	message.ReplyMarkup = tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("\U0001F44D Opt in").WithCallbackData(callbackOptIn),
			tu.InlineKeyboardButton("\U0001F44E Opt out").WithCallbackData(callbackOptOut),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("\U0001F92B Use my messages, not my name").WithCallbackData(callbackAnonymous),
		),
	)

	_, err := b.api.SendMessage(message)
	if err != nil {
		slog.Warn("bot: Cannot send consent prompt", "error", err, "user_id", userID)
	}
}

// consentChoice is the consent change one prompt button asks for.
type consentChoice struct {
	state     storage.ConsentState
	anonymous bool
	answer    string
}

// consentChoiceFor maps a callback payload to the choice it encodes.
func consentChoiceFor(data string) (consentChoice, bool) {
	switch data {
	case callbackOptIn:
		return consentChoice{
			state:  storage.ConsentOptedIn,
			answer: "You opted in. Thanks!",
		}, true
	case callbackOptOut:
		return consentChoice{
			state:  storage.ConsentOptedOut,
			answer: "You opted out. Your messages will never be saved.",
		}, true
	case callbackAnonymous:
		return consentChoice{
			state:     storage.ConsentOptedIn,
			anonymous: true,
			answer:    "Got it. Your messages may be saved without your name.",
		}, true
	}

	return consentChoice{}, false
}

func (b *Bot) applyConsentChoice(userID int64, choice consentChoice) error {
	if err := b.storage.SetConsent(userID, choice.state); err != nil {
		return err
	}
	if choice.anonymous {
		return b.storage.SetAnonymous(userID, true)
	}

	return nil
}

// consentCallbackHandler records the user's answer to the consent prompt.
func (b *Bot) consentCallbackHandler(bot *telego.Bot, update telego.Update) {
	query := update.CallbackQuery
	if query == nil || !strings.HasPrefix(query.Data, "consent_") {
		return
	}

	userID := query.From.ID

	choice, ok := consentChoiceFor(query.Data)
	if !ok {
		slog.Warn("bot: Unknown consent callback", "data", query.Data, "user_id", userID)
		return
	}

	answer := choice.answer
	err := b.applyConsentChoice(userID, choice)
	if err != nil {
		slog.Error("bot: Cannot record consent", "error", err, "user_id", userID)
		answer = "Something went wrong, please try again."
	} else {
		slog.Info("bot: Consent recorded", "user_id", userID, "choice", query.Data)
	}

	err = bot.AnswerCallbackQuery(&telego.AnswerCallbackQueryParams{
		CallbackQueryID: query.ID,
		Text:            answer,
	})
	if err != nil {
		slog.Error("bot: Cannot answer callback query", "error", err, "user_id", userID)
	}
}
