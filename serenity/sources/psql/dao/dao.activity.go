package dao

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"serenity/serenity/sources/psql/models"
)

// duplicateWindow is the debounce interval: a same-typed, same-named
// activity logged again inside it returns the existing row instead of
// creating a duplicate.
const duplicateWindow = 5 * time.Second

type ActivityDAO struct {
	DB *gorm.DB
}

func NewActivityDAO(db *gorm.DB) *ActivityDAO {
	return &ActivityDAO{DB: db}
}

// LogActivity records an activity, debouncing duplicates within the last
// five seconds. The bool result reports whether a new row was created.
func (dao *ActivityDAO) LogActivity(ctx context.Context, activity models.Activity) (*models.Activity, bool, error) {
	var existing models.Activity
	cutoff := time.Now().Add(-duplicateWindow)
	err := dao.DB.WithContext(ctx).
		Where("user_id = ? AND type = ? AND name = ? AND timestamp >= ?",
			activity.UserID, activity.Type, activity.Name, cutoff).
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, false, err
	}

	if err := dao.DB.WithContext(ctx).Create(&activity).Error; err != nil {
		return nil, false, err
	}
	return &activity, true, nil
}

// TodayActivities returns the user's activities since local midnight,
// newest first.
func (dao *ActivityDAO) TodayActivities(ctx context.Context, userID uuid.UUID) ([]models.Activity, error) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var activities []models.Activity
	err := dao.DB.WithContext(ctx).
		Where("user_id = ? AND timestamp >= ?", userID, start).
		Order("timestamp DESC").
		Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}

// History returns all of the user's activities, newest first.
func (dao *ActivityDAO) History(ctx context.Context, userID uuid.UUID) ([]models.Activity, error) {
	var activities []models.Activity
	err := dao.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}

// RecentMoodScores returns up to limit most recent mood scores, newest
// first. Used to build the context for recommendation runs.
func (dao *ActivityDAO) RecentMoodScores(ctx context.Context, userID uuid.UUID, limit int) ([]int, error) {
	var activities []models.Activity
	err := dao.DB.WithContext(ctx).
		Where("user_id = ? AND mood_score IS NOT NULL", userID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&activities).Error
	if err != nil {
		return nil, err
	}
	scores := make([]int, 0, len(activities))
	for _, a := range activities {
		if a.MoodScore != nil {
			scores = append(scores, *a.MoodScore)
		}
	}
	return scores, nil
}

// RecentCompleted returns the names of up to limit recently completed
// non-mood activities, newest first.
func (dao *ActivityDAO) RecentCompleted(ctx context.Context, userID uuid.UUID, limit int) ([]string, error) {
	var activities []models.Activity
	err := dao.DB.WithContext(ctx).
		Where("user_id = ? AND completed = ? AND type <> ?", userID, true, "mood").
		Order("timestamp DESC").
		Limit(limit).
		Find(&activities).Error
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(activities))
	for _, a := range activities {
		names = append(names, a.Name)
	}
	return names, nil
}
