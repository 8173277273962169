package storage

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StageMessage inserts a message, ignoring it silently when the same
// (message id, server id) pair was stored before. Overlapping grabs may
// capture the same window twice; re-staging must not be a conflict.
func (s *Storage) StageMessage(msg *Message) error {
	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(msg)
	if result.Error != nil {
		slog.Error("storage: Failed to stage message", "error", result.Error,
			"message_id", msg.MessageID, "server_id", msg.ServerID)
		return fmt.Errorf("failed to stage message: %w", result.Error)
	}

	return nil
}

// GetMessage returns a stored message scoped to its server.
func (s *Storage) GetMessage(messageID, serverID int64) (*Message, error) {
	var msg Message
	result := s.db.Where("message_id = ? AND server_id = ?", messageID, serverID).First(&msg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		slog.Error("storage: Failed to get message", "error", result.Error,
			"message_id", messageID, "server_id", serverID)
		return nil, fmt.Errorf("failed to get message: %w", result.Error)
	}

	return &msg, nil
}

// CountMessages returns the number of stored messages for a server.
func (s *Storage) CountMessages(serverID int64) (int64, error) {
	var count int64
	result := s.db.Model(&Message{}).Where("server_id = ?", serverID).Count(&count)
	if result.Error != nil {
		slog.Error("storage: Failed to count messages", "error", result.Error, "server_id", serverID)
		return 0, fmt.Errorf("failed to count messages: %w", result.Error)
	}

	return count, nil
}

// CreateConversation inserts a conversation row referencing already staged
// messages and returns its assigned id. A nil tags value means no tags.
func (s *Storage) CreateConversation(serverID int64, messageIDs string, tags *string) (uint, error) {
	conversation := Conversation{
		MessageIDs: messageIDs,
		ServerID:   serverID,
		Tags:       tags,
	}

	result := s.db.Create(&conversation)
	if result.Error != nil {
		slog.Error("storage: Failed to create conversation", "error", result.Error, "server_id", serverID)
		return 0, fmt.Errorf("failed to create conversation: %w", result.Error)
	}

	return conversation.ConversationID, nil
}

// GetConversation returns a stored conversation by id.
func (s *Storage) GetConversation(conversationID uint) (*Conversation, error) {
	var conversation Conversation
	result := s.db.First(&conversation, conversationID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		slog.Error("storage: Failed to get conversation", "error", result.Error,
			"conversation_id", conversationID)
		return nil, fmt.Errorf("failed to get conversation: %w", result.Error)
	}

	return &conversation, nil
}

// CountConversations returns the number of stored conversations for a server.
func (s *Storage) CountConversations(serverID int64) (int64, error) {
	var count int64
	result := s.db.Model(&Conversation{}).Where("server_id = ?", serverID).Count(&count)
	if result.Error != nil {
		slog.Error("storage: Failed to count conversations", "error", result.Error, "server_id", serverID)
		return 0, fmt.Errorf("failed to count conversations: %w", result.Error)
	}

	return count, nil
}
