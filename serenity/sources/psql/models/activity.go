package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Activity types accepted by the activity log.
var ActivityTypes = []string{
	"meditation",
	"exercise",
	"walking",
	"reading",
	"journaling",
	"therapy",
	"game",
	"mood",
}

type Activity struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index:idx_activities_user_time"`
	Type        string    `json:"type" gorm:"type:varchar(50);not null"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	Duration    int       `json:"duration,omitempty"`
	MoodScore   *int      `json:"moodScore,omitempty"`
	MoodNote    string    `json:"moodNote,omitempty" gorm:"type:text"`
	Completed   bool      `json:"completed" gorm:"default:true"`
	Timestamp   time.Time `json:"timestamp" gorm:"not null;index:idx_activities_user_time,sort:desc"`
}

func (Activity) TableName() string {
	return "activities"
}

func (a *Activity) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	return nil
}

// ValidActivityType reports whether t is one of the accepted types.
func ValidActivityType(t string) bool {
	for _, known := range ActivityTypes {
		if t == known {
			return true
		}
	}
	return false
}
