package pipeline

import "time"

// Event names used with the dispatcher.
const (
	EventSessionMessage = "therapy/session.message"
	EventSessionCreated = "therapy/session.created"
	EventMoodUpdated    = "mood/updated"
)

// ChatMessage is one turn of a persisted conversation as seen by the
// pipeline. Ordering by timestamp within a session is significant.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageEvent is the immutable input to one process-chat-message run.
//
// Precondition on the caller: messages for a single session must be
// submitted in the order the user sent them. Memory accumulates
// sequentially and out-of-order processing corrupts theme and
// emotional-state history; the pipeline does not enforce this itself.
type MessageEvent struct {
	Message      string        `json:"message"`
	History      []ChatMessage `json:"history,omitempty"`
	Memory       *Memory       `json:"memory,omitempty"`
	Goals        []string      `json:"goals,omitempty"`
	SystemPrompt string        `json:"systemPrompt,omitempty"`
	SessionID    string        `json:"sessionId,omitempty"`
}

// MessageResult is the composite output of one process-chat-message run.
// It is always well-formed; failures degrade to fixed fallbacks instead of
// surfacing as errors.
type MessageResult struct {
	Response      string         `json:"response"`
	Analysis      AnalysisResult `json:"analysis"`
	UpdatedMemory Memory         `json:"updatedMemory"`
}

// SessionEvent triggers a full-session analysis run.
type SessionEvent struct {
	SessionID  string `json:"sessionId"`
	UserID     string `json:"userId"`
	Notes      string `json:"notes,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// MoodEvent triggers an activity-recommendation run.
type MoodEvent struct {
	UserID              string            `json:"userId"`
	RecentMoods         []int             `json:"recentMoods,omitempty"`
	CompletedActivities []string          `json:"completedActivities,omitempty"`
	Preferences         map[string]string `json:"preferences,omitempty"`
}
