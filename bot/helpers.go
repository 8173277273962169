package bot

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	tu "github.com/mymmrac/telego/telegoutil"
)

// tagsToStorage converts the space-separated tag arguments of /grab into
// the comma-delimited form conversations are stored with. Empty input
// stays empty, which the archiver stores as no tags.
func tagsToStorage(tagArgs []string) string {
	return strings.Join(tagArgs, ",")
}

func (b *Bot) sendMessage(chatID int64, text string) {
	message := tu.Message(tu.ID(chatID), text)

	_, err := b.api.SendMessage(message)
	if err != nil {
		// On 429 the api reports the wait as "... retry after: N";
		// honor it once before giving up.
		if strings.Contains(err.Error(), "Too Many Requests") {
			parts := strings.Split(err.Error(), "retry after: ")
			if len(parts) == 2 {
				var retryAfter int
				if _, _ = fmt.Sscanf(parts[1], "%d", &retryAfter); retryAfter > 0 {
					slog.Info("bot: Rate limit hit, waiting", "seconds", retryAfter)
					time.Sleep(time.Duration(retryAfter) * time.Second)
					_, err = b.api.SendMessage(message)
				}
			}
		}
		if err != nil {
			slog.Error("bot: Failed to send message", "error", err, "chat_id", chatID, "text_length", len(text))
		}
	}
}
