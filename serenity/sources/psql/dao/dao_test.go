package dao

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"serenity/serenity/sources/psql"
	"serenity/serenity/sources/psql/models"
	"serenity/serenity/utils/logging"
)

func TestMain(m *testing.M) {
	logging.InitTestLogger()
	os.Exit(m.Run())
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to open sqlite")
	require.NoError(t, psql.Migrate(context.Background(), db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	user := models.User{Name: "test user", Email: uuid.NewString() + "@example.com"}
	require.NoError(t, db.Create(&user).Error)
	return user.ID
}

func TestChatSessionLifecycle(t *testing.T) {
	db := setupTestDB(t)
	chatDAO := NewChatDAO(db)
	ctx := context.Background()
	userID := createTestUser(t, db)

	session, err := chatDAO.CreateSession(ctx, userID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, session.ID)

	_, err = chatDAO.SaveMessage(ctx, session.ID, "user", "I feel anxious", "")
	require.NoError(t, err)
	_, err = chatDAO.SaveMessage(ctx, session.ID, "assistant", "Tell me more.", `{"riskLevel":2}`)
	require.NoError(t, err)

	history, err := chatDAO.GetHistory(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Equal(t, `{"riskLevel":2}`, history[1].Metadata)

	sessions, err := chatDAO.ListSessions(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	require.NoError(t, chatDAO.DeleteSession(ctx, userID, session.ID))
	_, err = chatDAO.GetSession(ctx, userID, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	history, err = chatDAO.GetHistory(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, history, "deleting a session removes its messages")
}

func TestChatSessionOwnerScoping(t *testing.T) {
	db := setupTestDB(t)
	chatDAO := NewChatDAO(db)
	ctx := context.Background()

	owner := createTestUser(t, db)
	stranger := createTestUser(t, db)

	session, err := chatDAO.CreateSession(ctx, owner)
	require.NoError(t, err)

	_, err = chatDAO.GetSession(ctx, stranger, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, chatDAO.DeleteSession(ctx, stranger, session.ID), ErrSessionNotFound)
}

func TestMemoryUpsert(t *testing.T) {
	db := setupTestDB(t)
	memoryDAO := NewMemoryDAO(db)
	ctx := context.Background()
	userID := createTestUser(t, db)
	sessionID := uuid.New()

	got, err := memoryDAO.LoadMemory(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "", got, "missing memory is empty, not an error")

	require.NoError(t, memoryDAO.SaveMemory(ctx, sessionID, userID, `{"v":1}`))
	require.NoError(t, memoryDAO.SaveMemory(ctx, sessionID, userID, `{"v":2}`))

	got, err = memoryDAO.LoadMemory(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, got)

	var count int64
	require.NoError(t, db.Model(&models.SessionMemory{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "save must upsert, not duplicate")
}

func TestActivityDebounce(t *testing.T) {
	db := setupTestDB(t)
	activityDAO := NewActivityDAO(db)
	ctx := context.Background()
	userID := createTestUser(t, db)

	first, created, err := activityDAO.LogActivity(ctx, models.Activity{
		UserID: userID, Type: "meditation", Name: "breathing",
	})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := activityDAO.LogActivity(ctx, models.Activity{
		UserID: userID, Type: "meditation", Name: "breathing",
	})
	require.NoError(t, err)
	assert.False(t, created, "duplicate inside the window returns the existing row")
	assert.Equal(t, first.ID, second.ID)

	_, created, err = activityDAO.LogActivity(ctx, models.Activity{
		UserID: userID, Type: "walking", Name: "evening walk",
	})
	require.NoError(t, err)
	assert.True(t, created, "different activity is not debounced")
}

func TestActivityQueries(t *testing.T) {
	db := setupTestDB(t)
	activityDAO := NewActivityDAO(db)
	ctx := context.Background()
	userID := createTestUser(t, db)

	score := 40
	old := models.Activity{
		UserID: userID, Type: "mood", Name: "mood check-in",
		MoodScore: &score, Timestamp: time.Now().Add(-48 * time.Hour),
	}
	require.NoError(t, db.Create(&old).Error)

	_, _, err := activityDAO.LogActivity(ctx, models.Activity{
		UserID: userID, Type: "journaling", Name: "gratitude journal",
	})
	require.NoError(t, err)

	today, err := activityDAO.TodayActivities(ctx, userID)
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, "gratitude journal", today[0].Name)

	all, err := activityDAO.History(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	moods, err := activityDAO.RecentMoodScores(ctx, userID, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{40}, moods)

	completed, err := activityDAO.RecentCompleted(ctx, userID, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"gratitude journal"}, completed)
}

func TestSessionAnalysisUpsert(t *testing.T) {
	db := setupTestDB(t)
	analysisDAO := NewAnalysisDAO(db)
	ctx := context.Background()
	userID := createTestUser(t, db)
	sessionID := uuid.New()

	_, err := analysisDAO.UpsertSessionAnalysis(ctx, sessionID, userID, `{"keyThemes":["a"]}`)
	require.NoError(t, err)
	_, err = analysisDAO.UpsertSessionAnalysis(ctx, sessionID, userID, `{"keyThemes":["b"]}`)
	require.NoError(t, err)

	sa, err := analysisDAO.GetSessionAnalysis(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, `{"keyThemes":["b"]}`, sa.Analysis)

	var count int64
	require.NoError(t, db.Model(&models.SessionAnalysis{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecommendationsRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	analysisDAO := NewAnalysisDAO(db)
	ctx := context.Background()
	userID := createTestUser(t, db)

	_, err := analysisDAO.SaveRecommendations(ctx, userID, `[{"activity":"walk"}]`)
	require.NoError(t, err)

	rec, err := analysisDAO.LatestRecommendations(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, `[{"activity":"walk"}]`, rec.Payload)
}
