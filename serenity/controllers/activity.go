// serenity/controllers/activity.go
package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"serenity/serenity/events"
	"serenity/serenity/pipeline"
	"serenity/serenity/sources/psql/dao"
	"serenity/serenity/sources/psql/models"
	"serenity/serenity/utils/types"
)

var ErrInvalidActivityType = errors.New("invalid activity type")

// moodHistoryLimit bounds how much history goes into a recommendation run.
const moodHistoryLimit = 10

type ActivityController struct {
	activityDAO *dao.ActivityDAO
	analysisDAO *dao.AnalysisDAO
	dispatcher  *events.Dispatcher
}

func NewActivityController(activityDAO *dao.ActivityDAO, analysisDAO *dao.AnalysisDAO, dispatcher *events.Dispatcher) *ActivityController {
	return &ActivityController{
		activityDAO: activityDAO,
		analysisDAO: analysisDAO,
		dispatcher:  dispatcher,
	}
}

// LogActivity records one completed activity. Rapid duplicate submissions
// are collapsed onto the existing row. An activity carrying a mood score
// also queues a recommendation run.
func (c *ActivityController) LogActivity(ctx context.Context, userID uuid.UUID, req types.ActivityRequest) (*models.Activity, bool, error) {
	if !models.ValidActivityType(req.Type) {
		return nil, false, fmt.Errorf("%w: %s", ErrInvalidActivityType, req.Type)
	}
	if req.MoodScore != nil && (*req.MoodScore < 0 || *req.MoodScore > 100) {
		return nil, false, fmt.Errorf("mood score %d out of range 0-100", *req.MoodScore)
	}
	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}
	activity := models.Activity{
		UserID:      userID,
		Type:        req.Type,
		Name:        req.Name,
		Description: req.Description,
		Duration:    req.Duration,
		MoodScore:   req.MoodScore,
		MoodNote:    req.MoodNote,
		Completed:   completed,
	}
	logged, created, err := c.activityDAO.LogActivity(ctx, activity)
	if err != nil {
		return nil, false, err
	}
	if created && req.MoodScore != nil {
		if err := c.queueRecommendations(ctx, userID); err != nil {
			return nil, false, err
		}
	}
	return logged, created, nil
}

func (c *ActivityController) TodayActivities(ctx context.Context, userID uuid.UUID) ([]models.Activity, error) {
	return c.activityDAO.TodayActivities(ctx, userID)
}

func (c *ActivityController) History(ctx context.Context, userID uuid.UUID) ([]models.Activity, error) {
	return c.activityDAO.History(ctx, userID)
}

// LogMood records a mood check-in as a "mood" activity and queues an
// activity-recommendation run built from the user's recent history.
func (c *ActivityController) LogMood(ctx context.Context, userID uuid.UUID, req types.MoodRequest) (*models.Activity, error) {
	if req.Score < 0 || req.Score > 100 {
		return nil, fmt.Errorf("mood score %d out of range 0-100", req.Score)
	}
	score := req.Score
	activity := models.Activity{
		UserID:    userID,
		Type:      "mood",
		Name:      "mood check-in",
		MoodScore: &score,
		MoodNote:  req.Note,
	}
	logged, created, err := c.activityDAO.LogActivity(ctx, activity)
	if err != nil {
		return nil, err
	}
	if created {
		if err := c.queueRecommendations(ctx, userID); err != nil {
			return nil, err
		}
	}
	return logged, nil
}

func (c *ActivityController) queueRecommendations(ctx context.Context, userID uuid.UUID) error {
	moods, err := c.activityDAO.RecentMoodScores(ctx, userID, moodHistoryLimit)
	if err != nil {
		return err
	}
	completed, err := c.activityDAO.RecentCompleted(ctx, userID, moodHistoryLimit)
	if err != nil {
		return err
	}
	c.dispatcher.Dispatch(pipeline.EventMoodUpdated, pipeline.MoodEvent{
		UserID:              userID.String(),
		RecentMoods:         moods,
		CompletedActivities: completed,
	})
	return nil
}

// LatestRecommendations returns the newest stored recommendation batch.
func (c *ActivityController) LatestRecommendations(ctx context.Context, userID uuid.UUID) ([]pipeline.ActivityRecommendation, error) {
	rec, err := c.analysisDAO.LatestRecommendations(ctx, userID)
	if err != nil {
		return nil, err
	}
	var recs []pipeline.ActivityRecommendation
	if err := json.Unmarshal([]byte(rec.Payload), &recs); err != nil {
		return nil, err
	}
	return recs, nil
}
