package dao

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"serenity/serenity/sources/psql/models"
)

var ErrSessionNotFound = errors.New("session not found or forbidden")

type ChatDAO struct {
	DB *gorm.DB
}

func NewChatDAO(db *gorm.DB) *ChatDAO {
	return &ChatDAO{DB: db}
}

// CreateSession provisions a new chat session for the user.
func (dao *ChatDAO) CreateSession(ctx context.Context, userID uuid.UUID) (*models.ChatSession, error) {
	session := models.ChatSession{UserID: userID}
	if err := dao.DB.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession fetches one session, scoped to its owner.
func (dao *ChatDAO) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.ChatSession, error) {
	var session models.ChatSession
	err := dao.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", sessionID, userID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// ListSessions returns the user's sessions, most recently active first.
func (dao *ChatDAO) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	err := dao.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteSession removes a session with its messages and memory.
func (dao *ChatDAO) DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	if _, err := dao.GetSession(ctx, userID, sessionID); err != nil {
		return err
	}
	return dao.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.SessionMemory{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND user_id = ?", sessionID, userID).Delete(&models.ChatSession{}).Error
	})
}

// SaveMessage appends a message to the session history and bumps the
// session's updated_at.
func (dao *ChatDAO) SaveMessage(ctx context.Context, sessionID uuid.UUID, role, content, metadata string) (*models.ChatMessage, error) {
	msg := models.ChatMessage{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
	}
	err := dao.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.ChatSession{}).
			Where("id = ?", sessionID).
			Update("updated_at", msg.Timestamp).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetHistory returns the session's messages in chronological order.
func (dao *ChatDAO) GetHistory(ctx context.Context, sessionID uuid.UUID) ([]models.ChatMessage, error) {
	var history []models.ChatMessage
	err := dao.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp ASC").
		Find(&history).Error
	if err != nil {
		return nil, err
	}
	return history, nil
}
