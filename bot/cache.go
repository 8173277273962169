package bot

import (
	"sync"

	"git.skobk.in/skobkin/telegram-conversation-saver/archive"
)

// messageCache keeps the most recent messages per chat so that /grab has a
// window to archive from. Bounded per chat; the oldest entries fall off.
type messageCache struct {
	mu       sync.Mutex
	limit    int
	messages map[int64][]archive.Message
}

func newMessageCache(limit int) *messageCache {
	return &messageCache{
		limit:    limit,
		messages: make(map[int64][]archive.Message),
	}
}

func (c *messageCache) Add(chatID int64, msg archive.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached := append(c.messages[chatID], msg)
	if len(cached) > c.limit {
		cached = cached[len(cached)-c.limit:]
	}
	c.messages[chatID] = cached
}

// Newest returns up to n cached messages of a chat, newest first, matching
// the order chat platforms return history in.
func (c *messageCache) Newest(chatID int64, n int) []archive.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached := c.messages[chatID]
	if n > len(cached) {
		n = len(cached)
	}

	window := make([]archive.Message, 0, n)
	for i := len(cached) - 1; i >= len(cached)-n; i-- {
		window = append(window, cached[i])
	}

	return window
}
