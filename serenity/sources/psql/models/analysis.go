package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionAnalysis stores the output of a full-session analysis run as JSON.
type SessionAnalysis struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID uuid.UUID `json:"session_id" gorm:"type:uuid;not null;unique"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Analysis  string    `json:"analysis" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (SessionAnalysis) TableName() string {
	return "session_analyses"
}

func (s *SessionAnalysis) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Recommendation stores one generated activity recommendation.
type Recommendation struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Payload   string    `json:"payload" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Recommendation) TableName() string {
	return "recommendations"
}

func (r *Recommendation) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
