// Package render reconstructs an archived conversation for presentation,
// anonymizing users who asked for it and assigning each named author a
// stable presentation color.
package render

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"git.skobk.in/skobkin/telegram-conversation-saver/storage"
)

var ErrNotFound = errors.New("conversation not found")

// Message is one rendered chat message.
type Message struct {
	Name      string `json:"name"`
	Bot       bool   `json:"bot"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	Color     string `json:"color"`
	HueShift  uint8  `json:"hue_shift"`
}

// Conversation is the rendered view of an archived conversation.
type Conversation struct {
	ServerName string    `json:"server_name"`
	Messages   []Message `json:"messages"`
	Tags       []string  `json:"tags"`
}

type Renderer struct {
	store *storage.Storage
}

func New(store *storage.Storage) *Renderer {
	return &Renderer{store: store}
}

// Render reconstructs a conversation in chronological (oldest-first) order.
// Messages stored without an author name get a sequential placeholder label;
// the numbering restarts at 1 for every call. A conversation referencing a
// message that no longer exists is an internal inconsistency and is reported
// as a plain error rather than ErrNotFound.
func (r *Renderer) Render(conversationID uint) (*Conversation, error) {
	conversation, err := r.store.GetConversation(conversationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	server, err := r.store.GetServer(conversation.ServerID)
	if err != nil {
		slog.Error("render: Conversation references unknown server",
			"conversation_id", conversationID, "server_id", conversation.ServerID)
		return nil, fmt.Errorf("conversation %d references unknown server %d",
			conversationID, conversation.ServerID)
	}

	messageIDs, err := parseReferenceList(conversation.MessageIDs)
	if err != nil {
		return nil, fmt.Errorf("conversation %d has a corrupt message list: %w", conversationID, err)
	}

	anonCount := 0
	messages := make([]Message, 0, len(messageIDs))
	for _, messageID := range messageIDs {
		stored, err := r.store.GetMessage(messageID, conversation.ServerID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				slog.Error("render: Conversation references missing message",
					"conversation_id", conversationID, "message_id", messageID)
				return nil, fmt.Errorf("conversation %d references missing message %d",
					conversationID, messageID)
			}
			return nil, err
		}

		rendered := Message{
			Bot:       stored.AuthorIsBot,
			Content:   stored.Content,
			Timestamp: stored.Timestamp,
		}
		if stored.AuthorName == nil {
			anonCount++
			rendered.Name = fmt.Sprintf("Anonymous User #%d", anonCount)
		} else {
			rendered.Name = *stored.AuthorName
		}
		// The placeholder label is hashed like any other name, so
		// anonymous authors get colors too.
		rendered.Color, rendered.HueShift = nameColor(rendered.Name)

		messages = append(messages, rendered)
	}

	serverTags, err := r.store.GetServerTags(conversation.ServerID)
	if err != nil {
		return nil, err
	}

	return &Conversation{
		ServerName: server.Name,
		Messages:   messages,
		Tags:       mergeTags(conversation.Tags, serverTags),
	}, nil
}

// nameColor derives a presentation color and hue shift from an author name.
// Same name, same color on every render.
func nameColor(name string) (string, uint8) {
	h := xxhash.Sum64String(name)
	color := fmt.Sprintf("%06x", h&0xffffff)
	hueShift := uint8(h>>32) ^ uint8(h>>56)

	return color, hueShift
}

// parseReferenceList splits the stored comma-delimited id list, tolerating
// a trailing separator.
func parseReferenceList(encoded string) ([]int64, error) {
	var ids []int64
	for _, token := range strings.Split(encoded, ",") {
		if token == "" {
			continue
		}
		id, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad message id %q: %w", token, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// mergeTags combines conversation tags with server tags, conversation tags
// first. Duplicates across the two sources are kept as-is.
func mergeTags(conversationTags *string, serverTags []string) []string {
	var tags []string
	if conversationTags != nil && *conversationTags != "" {
		tags = strings.Split(*conversationTags, ",")
	}

	return append(tags, serverTags...)
}
