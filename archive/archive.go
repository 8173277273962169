// Package archive implements the consent-gated archival of message windows.
// A whole window is committed or rejected as a unit: if any author in the
// window has opted out, no message and no conversation row is persisted.
package archive

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"git.skobk.in/skobkin/telegram-conversation-saver/storage"
)

var (
	ErrInvalidWindow = errors.New("invalid message window")
	ErrConsentDenied = errors.New("at least one user in this conversation has opted out")
)

// MaxWindowSize bounds how many messages one grab may capture.
const MaxWindowSize = 255

// Message is one captured chat message as supplied by the platform adapter.
type Message struct {
	ID          int64
	AuthorID    int64
	AuthorName  string
	AuthorIsBot bool
	Content     string
	Timestamp   int64
}

type Archiver struct {
	store *storage.Storage
}

func New(store *storage.Storage) *Archiver {
	return &Archiver{store: store}
}

// Archive saves a window of messages as a new conversation. The window is
// expected newest-first, as chat platforms return history; the stored
// reference list is oldest-first. Tags is a comma-delimited list, empty
// meaning none.
//
// Every distinct author is registered first so that unknown authors end up
// pending and can be prompted for consent out of band. Staging and consent
// validation then run inside one transaction: the first opted-out author
// encountered in window order aborts the whole operation and rolls back
// every staged row.
func (a *Archiver) Archive(serverID int64, window []Message, tags string) (uint, error) {
	if len(window) == 0 || len(window) > MaxWindowSize {
		return 0, ErrInvalidWindow
	}

	authors, err := a.registerAuthors(window)
	if err != nil {
		return 0, err
	}

	var conversationID uint
	err = a.store.Transaction(func(tx *storage.Storage) error {
		for _, msg := range window {
			record := &storage.Message{
				MessageID:   msg.ID,
				ServerID:    serverID,
				Content:     msg.Content,
				Timestamp:   msg.Timestamp,
				AuthorIsBot: msg.AuthorIsBot,
			}
			if !authors[msg.AuthorID].Anonymous {
				name := msg.AuthorName
				record.AuthorName = &name
			}

			if err := tx.StageMessage(record); err != nil {
				return err
			}
		}

		for _, msg := range window {
			consent, err := tx.GetConsent(msg.AuthorID)
			if err != nil {
				return err
			}
			if consent == storage.ConsentOptedOut {
				return fmt.Errorf("%w: user %d", ErrConsentDenied, msg.AuthorID)
			}
		}

		id, err := tx.CreateConversation(serverID, referenceList(window), tagsOrNil(tags))
		if err != nil {
			return err
		}
		conversationID = id

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConsentDenied) {
			slog.Info("archive: Window rejected", "server_id", serverID, "reason", err)
		} else {
			slog.Error("archive: Failed to archive window", "error", err, "server_id", serverID)
		}
		return 0, err
	}

	slog.Info("archive: Conversation saved", "conversation_id", conversationID,
		"server_id", serverID, "messages", len(window))

	return conversationID, nil
}

// registerAuthors upserts every distinct author of the window and returns
// their current records. Registration survives a later rollback on purpose:
// a rejected grab must still leave first-seen users pending so they get
// prompted.
func (a *Archiver) registerAuthors(window []Message) (map[int64]*storage.User, error) {
	authors := make(map[int64]*storage.User)
	for _, msg := range window {
		if _, seen := authors[msg.AuthorID]; seen {
			continue
		}

		if _, err := a.store.RegisterUser(msg.AuthorID, msg.AuthorIsBot); err != nil {
			return nil, err
		}
		user, err := a.store.GetUser(msg.AuthorID)
		if err != nil {
			return nil, err
		}
		authors[msg.AuthorID] = user
	}

	return authors, nil
}

// referenceList encodes the window as a comma-delimited id list, oldest
// first. The window arrives newest-first, so it is walked backwards.
func referenceList(window []Message) string {
	var b strings.Builder
	for i := len(window) - 1; i >= 0; i-- {
		b.WriteString(strconv.FormatInt(window[i].ID, 10))
		b.WriteByte(',')
	}

	return b.String()
}

func tagsOrNil(tags string) *string {
	if tags == "" {
		return nil
	}

	return &tags
}
