// serenity/controllers/chat.go
package controllers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"serenity/serenity/events"
	"serenity/serenity/pipeline"
	"serenity/serenity/sources/psql/dao"
	"serenity/serenity/sources/psql/models"
	"serenity/serenity/utils/logging"
	"serenity/serenity/utils/types"
)

// historyWindow caps how many prior messages are handed to the pipeline.
const historyWindow = 10

type ChatController struct {
	chatDAO      *dao.ChatDAO
	memoryDAO    *dao.MemoryDAO
	pipe         *pipeline.Pipeline
	dispatcher   *events.Dispatcher
	systemPrompt string
}

func NewChatController(chatDAO *dao.ChatDAO, memoryDAO *dao.MemoryDAO, pipe *pipeline.Pipeline, dispatcher *events.Dispatcher, systemPrompt string) *ChatController {
	return &ChatController{
		chatDAO:      chatDAO,
		memoryDAO:    memoryDAO,
		pipe:         pipe,
		dispatcher:   dispatcher,
		systemPrompt: systemPrompt,
	}
}

func (c *ChatController) CreateSession(ctx context.Context, userID uuid.UUID) (*models.ChatSession, error) {
	return c.chatDAO.CreateSession(ctx, userID)
}

func (c *ChatController) ListSessions(ctx context.Context, userID uuid.UUID) ([]types.ChatSessionSummary, error) {
	sessions, err := c.chatDAO.ListSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	summaries := make([]types.ChatSessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summary := types.ChatSessionSummary{
			SessionID:    s.ID.String(),
			LastActivity: s.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		history, err := c.chatDAO.GetHistory(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		if len(history) > 0 {
			last := history[len(history)-1]
			summary.LastMessage = last.Content
			summary.LastMessageRole = last.Role
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (c *ChatController) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.ChatSession, error) {
	return c.chatDAO.GetSession(ctx, userID, sessionID)
}

func (c *ChatController) DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	return c.chatDAO.DeleteSession(ctx, userID, sessionID)
}

func (c *ChatController) GetMessages(ctx context.Context, userID, sessionID uuid.UUID) ([]models.ChatMessage, error) {
	if _, err := c.chatDAO.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return c.chatDAO.GetHistory(ctx, sessionID)
}

// SendMessage runs one full chat turn: persist the user message, feed the
// conversation through the analysis/response pipeline, persist the
// assistant reply with its analysis attached, and save the updated memory.
func (c *ChatController) SendMessage(ctx context.Context, userID, sessionID uuid.UUID, req types.ChatRequest) (*types.ChatResponse, error) {
	return c.SendMessageObserved(ctx, userID, sessionID, req, nil)
}

// SendMessageObserved is SendMessage with a per-step observer, used by the
// websocket surface to stream step progress.
func (c *ChatController) SendMessageObserved(ctx context.Context, userID, sessionID uuid.UUID, req types.ChatRequest, observer func(pipeline.StepUpdate)) (*types.ChatResponse, error) {
	defer logging.LogDuration(ctx, "chat.SendMessage")()

	if _, err := c.chatDAO.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	if _, err := c.chatDAO.SaveMessage(ctx, sessionID, "user", req.Content, ""); err != nil {
		return nil, err
	}

	history, err := c.chatDAO.GetHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	memory, err := c.loadMemory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	event := pipeline.MessageEvent{
		Message:      req.Content,
		History:      toPipelineHistory(history),
		Memory:       memory,
		SystemPrompt: c.systemPrompt,
		SessionID:    sessionID.String(),
	}

	result := c.pipe.ProcessChatMessageObserved(ctx, event, observer)

	analysisJSON, err := json.Marshal(result.Analysis)
	if err != nil {
		return nil, err
	}
	msg, err := c.chatDAO.SaveMessage(ctx, sessionID, "assistant", result.Response, string(analysisJSON))
	if err != nil {
		return nil, err
	}

	memoryJSON, err := json.Marshal(result.UpdatedMemory)
	if err != nil {
		return nil, err
	}
	if err := c.memoryDAO.SaveMemory(ctx, sessionID, userID, string(memoryJSON)); err != nil {
		logging.AppLogger.Error("failed to save session memory",
			zap.String("session_id", sessionID.String()),
			zap.Error(err),
		)
	}

	return &types.ChatResponse{
		SessionID: sessionID.String(),
		MessageID: msg.ID.String(),
		Response:  result.Response,
		Analysis:  result.Analysis,
	}, nil
}

// RequestAnalysis queues a full-session analysis run for a completed
// session. The dispatcher retries on failure, so this returns as soon as
// the event is enqueued.
func (c *ChatController) RequestAnalysis(ctx context.Context, userID, sessionID uuid.UUID) (string, error) {
	if _, err := c.chatDAO.GetSession(ctx, userID, sessionID); err != nil {
		return "", err
	}
	history, err := c.chatDAO.GetHistory(ctx, sessionID)
	if err != nil {
		return "", err
	}

	eventID := c.dispatcher.Dispatch(pipeline.EventSessionCreated, pipeline.SessionEvent{
		SessionID:  sessionID.String(),
		UserID:     userID.String(),
		Transcript: buildTranscript(history),
	})
	return eventID, nil
}

func (c *ChatController) loadMemory(ctx context.Context, sessionID uuid.UUID) (*pipeline.Memory, error) {
	raw, err := c.memoryDAO.LoadMemory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var memory pipeline.Memory
	if err := json.Unmarshal([]byte(raw), &memory); err != nil {
		// Corrupt stored memory degrades to a fresh one rather than
		// blocking the conversation.
		logging.AppLogger.Error("failed to decode stored memory, starting fresh",
			zap.String("session_id", sessionID.String()),
			zap.Error(err),
		)
		return nil, nil
	}
	return &memory, nil
}

func toPipelineHistory(messages []models.ChatMessage) []pipeline.ChatMessage {
	start := 0
	if len(messages) > historyWindow {
		start = len(messages) - historyWindow
	}
	history := make([]pipeline.ChatMessage, 0, len(messages)-start)
	for _, m := range messages[start:] {
		history = append(history, pipeline.ChatMessage{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return history
}

func buildTranscript(messages []models.ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
