package repository

import (
	"context"
	"errors"
	"fmt"

	"gosocialmsg/internal/common"
	"gosocialmsg/internal/dbmysql"

	"gorm.io/gorm"
)

// MessageTypeRepository reads the message_type lookup table in both directions
type MessageTypeRepository interface {
	// IDByName returns common.ErrUnknownMessageType when name has no row.
	IDByName(ctx context.Context, name string) (uint64, error)
	NameByID(ctx context.Context, id uint64) (string, error)
}

type messageTypeRepository struct {
	db *gorm.DB
}

func NewMessageTypeRepository(db *gorm.DB) MessageTypeRepository {
	return &messageTypeRepository{db: db}
}

func (r *messageTypeRepository) IDByName(ctx context.Context, name string) (uint64, error) {
	var messageType dbmysql.MessageType
	err := r.db.WithContext(ctx).Where("type_name = ?", name).Take(&messageType).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: %q", common.ErrUnknownMessageType, name)
		}
		return 0, fmt.Errorf("failed to get message type: %w", err)
	}
	return messageType.ID, nil
}

func (r *messageTypeRepository) NameByID(ctx context.Context, id uint64) (string, error) {
	var messageType dbmysql.MessageType
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&messageType).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: id %d", common.ErrUnknownMessageType, id)
		}
		return "", fmt.Errorf("failed to get message type: %w", err)
	}
	return messageType.TypeName, nil
}
