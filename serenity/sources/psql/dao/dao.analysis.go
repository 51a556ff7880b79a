package dao

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"serenity/serenity/sources/psql/models"
)

type AnalysisDAO struct {
	DB *gorm.DB
}

func NewAnalysisDAO(db *gorm.DB) *AnalysisDAO {
	return &AnalysisDAO{DB: db}
}

// UpsertSessionAnalysis creates or replaces the stored analysis for a
// session. Redelivered analysis runs overwrite rather than duplicate.
func (dao *AnalysisDAO) UpsertSessionAnalysis(ctx context.Context, sessionID, userID uuid.UUID, analysisJSON string) (*models.SessionAnalysis, error) {
	var sa models.SessionAnalysis
	err := dao.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&sa).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			newSA := models.SessionAnalysis{
				SessionID: sessionID,
				UserID:    userID,
				Analysis:  analysisJSON,
			}
			if err := dao.DB.WithContext(ctx).Create(&newSA).Error; err != nil {
				return nil, err
			}
			return &newSA, nil
		}
		return nil, err
	}
	sa.Analysis = analysisJSON
	if err := dao.DB.WithContext(ctx).Save(&sa).Error; err != nil {
		return nil, err
	}
	return &sa, nil
}

// GetSessionAnalysis fetches the stored analysis for a session.
func (dao *AnalysisDAO) GetSessionAnalysis(ctx context.Context, sessionID uuid.UUID) (*models.SessionAnalysis, error) {
	var sa models.SessionAnalysis
	err := dao.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&sa).Error
	if err != nil {
		return nil, err
	}
	return &sa, nil
}

// SaveRecommendations stores one batch of generated recommendations.
func (dao *AnalysisDAO) SaveRecommendations(ctx context.Context, userID uuid.UUID, payloadJSON string) (*models.Recommendation, error) {
	rec := models.Recommendation{
		UserID:  userID,
		Payload: payloadJSON,
	}
	if err := dao.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// LatestRecommendations returns the newest recommendation batch for a
// user, or gorm.ErrRecordNotFound when none exist.
func (dao *AnalysisDAO) LatestRecommendations(ctx context.Context, userID uuid.UUID) (*models.Recommendation, error) {
	var rec models.Recommendation
	err := dao.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
