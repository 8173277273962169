package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RegisterServer records a server on first observation. Insert-or-ignore:
// a name or link seen later never overwrites the stored one.
func (s *Storage) RegisterServer(serverID int64, name string, link *string) error {
	server := Server{
		ServerID: serverID,
		Name:     name,
		Link:     link,
	}

	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&server)
	if result.Error != nil {
		slog.Error("storage: Failed to register server", "error", result.Error,
			"server_id", serverID, "name", name)
		return fmt.Errorf("failed to register server: %w", result.Error)
	}

	return nil
}

// GetServer returns the stored server record.
func (s *Storage) GetServer(serverID int64) (*Server, error) {
	var server Server
	result := s.db.First(&server, serverID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		slog.Error("storage: Failed to get server", "error", result.Error, "server_id", serverID)
		return nil, fmt.Errorf("failed to get server: %w", result.Error)
	}

	return &server, nil
}

// GetServerTags returns the administrator-assigned tags of a server,
// empty if none were set.
func (s *Storage) GetServerTags(serverID int64) ([]string, error) {
	server, err := s.GetServer(serverID)
	if err != nil {
		return nil, err
	}
	if server.Tags == nil || *server.Tags == "" {
		return nil, nil
	}

	return strings.Split(*server.Tags, ","), nil
}

// SetServerTags sets the administrator-assigned tag list of a server.
// Not exposed through the bot; meant for operator tooling.
func (s *Storage) SetServerTags(serverID int64, tags []string) error {
	var value *string
	if len(tags) > 0 {
		joined := strings.Join(tags, ",")
		value = &joined
	}

	result := s.db.Model(&Server{}).Where("server_id = ?", serverID).Update("tags", value)
	if result.Error != nil {
		slog.Error("storage: Failed to set server tags", "error", result.Error, "server_id", serverID)
		return fmt.Errorf("failed to set server tags: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
