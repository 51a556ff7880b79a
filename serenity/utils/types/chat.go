// serenity/utils/types/chat.go
package types

type ChatRequest struct {
	Content string `json:"content"`
}

type ChatResponse struct {
	SessionID string      `json:"session_id"`
	MessageID string      `json:"message_id"`
	Response  string      `json:"response"`
	Analysis  interface{} `json:"analysis"`
}

// For session summaries in a threads panel.
// LastActivity: RFC3339 string
type ChatSessionSummary struct {
	SessionID       string `json:"session_id"`
	LastMessage     string `json:"last_message"`
	LastMessageRole string `json:"last_message_role"`
	LastActivity    string `json:"last_activity"`
}

type ActivityRequest struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Duration    int    `json:"duration,omitempty"`
	MoodScore   *int   `json:"moodScore,omitempty"`
	MoodNote    string `json:"moodNote,omitempty"`
	Completed   *bool  `json:"completed,omitempty"` // nil means "use default"
}

type MoodRequest struct {
	Score int    `json:"score"`
	Note  string `json:"note,omitempty"`
}
