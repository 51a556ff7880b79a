// serenity/controllers/stores.go
package controllers

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"serenity/serenity/pipeline"
	"serenity/serenity/sources/psql/dao"
	"serenity/serenity/sources/storage"
	"serenity/serenity/utils/logging"
)

// AnalysisRecorder persists session analyses to the database and, when an
// archive is configured, mirrors each report to object storage.
type AnalysisRecorder struct {
	analysisDAO *dao.AnalysisDAO
	archive     *storage.ReportArchive
}

func NewAnalysisRecorder(analysisDAO *dao.AnalysisDAO, archive *storage.ReportArchive) *AnalysisRecorder {
	return &AnalysisRecorder{analysisDAO: analysisDAO, archive: archive}
}

func (s *AnalysisRecorder) SaveSessionAnalysis(ctx context.Context, sessionID, userID string, analysis pipeline.SessionAnalysis) error {
	sid, err := uuid.Parse(sessionID)
	if err != nil {
		return err
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(analysis)
	if err != nil {
		return err
	}
	if _, err := s.analysisDAO.UpsertSessionAnalysis(ctx, sid, uid, string(payload)); err != nil {
		return err
	}
	if s.archive != nil {
		// Archive failures do not fail the run; the database row is the
		// source of truth.
		if _, err := s.archive.ArchiveReport(ctx, sessionID, userID, string(payload)); err != nil {
			logging.AppLogger.Error("failed to archive session report",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// RecommendationRecorder persists generated activity recommendations.
type RecommendationRecorder struct {
	analysisDAO *dao.AnalysisDAO
}

func NewRecommendationRecorder(analysisDAO *dao.AnalysisDAO) *RecommendationRecorder {
	return &RecommendationRecorder{analysisDAO: analysisDAO}
}

func (s *RecommendationRecorder) SaveRecommendations(ctx context.Context, userID string, recs []pipeline.ActivityRecommendation) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	_, err = s.analysisDAO.SaveRecommendations(ctx, uid, string(payload))
	return err
}
