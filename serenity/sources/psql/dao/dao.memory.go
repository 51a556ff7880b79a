package dao

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"serenity/serenity/sources/psql/models"
)

type MemoryDAO struct {
	DB *gorm.DB
}

func NewMemoryDAO(db *gorm.DB) *MemoryDAO {
	return &MemoryDAO{DB: db}
}

// LoadMemory returns the stored memory JSON for a session, or "" when the
// session has none yet.
func (dao *MemoryDAO) LoadMemory(ctx context.Context, sessionID uuid.UUID) (string, error) {
	var mem models.SessionMemory
	err := dao.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&mem).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return mem.Memory, nil
}

// SaveMemory upserts the memory JSON for a session.
func (dao *MemoryDAO) SaveMemory(ctx context.Context, sessionID, userID uuid.UUID, memoryJSON string) error {
	var mem models.SessionMemory
	err := dao.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&mem).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			newMem := models.SessionMemory{
				SessionID: sessionID,
				UserID:    userID,
				Memory:    memoryJSON,
			}
			return dao.DB.WithContext(ctx).Create(&newMem).Error
		}
		return err
	}
	mem.Memory = memoryJSON
	return dao.DB.WithContext(ctx).Save(&mem).Error
}
