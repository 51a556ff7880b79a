package pipeline

// Memory is the per-session conversational state threaded through pipeline
// runs. It is passed by value: steps return a new Memory instead of mutating
// the input, so the fold in UpdateMemory is testable in isolation.
type Memory struct {
	UserProfile    UserProfile    `json:"userProfile"`
	SessionContext SessionContext `json:"sessionContext"`
}

type UserProfile struct {
	EmotionalState []string          `json:"emotionalState"`
	RiskLevel      float64           `json:"riskLevel"`
	Preferences    map[string]string `json:"preferences"`
}

type SessionContext struct {
	ConversationThemes []string `json:"conversationThemes"`
	CurrentTechnique   *string  `json:"currentTechnique"`
}

// DefaultMemory is the state a session starts from when the caller supplies
// none.
func DefaultMemory() Memory {
	return Memory{
		UserProfile: UserProfile{
			EmotionalState: []string{},
			RiskLevel:      0,
			Preferences:    map[string]string{},
		},
		SessionContext: SessionContext{
			ConversationThemes: []string{},
			CurrentTechnique:   nil,
		},
	}
}

// AnalysisResult is the structured classification of one message's
// emotional and risk content.
type AnalysisResult struct {
	EmotionalState      string   `json:"emotionalState"`
	Themes              []string `json:"themes"`
	RiskLevel           float64  `json:"riskLevel"`
	RecommendedApproach string   `json:"recommendedApproach"`
	ProgressIndicators  []string `json:"progressIndicators"`
}

// NeutralAnalysis is the fixed safe fallback used whenever analysis fails.
// An analysis failure must never abort the user-facing reply.
func NeutralAnalysis() AnalysisResult {
	return AnalysisResult{
		EmotionalState:      "neutral",
		Themes:              []string{},
		RiskLevel:           0,
		RecommendedApproach: "supportive",
		ProgressIndicators:  []string{},
	}
}

// UpdateMemory folds one analysis into the session memory. Emotional-state
// and theme sequences only grow; riskLevel is overwritten with the latest
// assessed value. No failure path: inputs are already-validated in-process
// data.
func UpdateMemory(mem Memory, analysis AnalysisResult) Memory {
	updated := cloneMemory(mem)

	if analysis.EmotionalState != "" {
		updated.UserProfile.EmotionalState = append(updated.UserProfile.EmotionalState, analysis.EmotionalState)
	}
	if len(analysis.Themes) > 0 {
		updated.SessionContext.ConversationThemes = append(updated.SessionContext.ConversationThemes, analysis.Themes...)
	}
	updated.UserProfile.RiskLevel = analysis.RiskLevel

	return updated
}

func cloneMemory(mem Memory) Memory {
	out := mem

	out.UserProfile.EmotionalState = make([]string, len(mem.UserProfile.EmotionalState))
	copy(out.UserProfile.EmotionalState, mem.UserProfile.EmotionalState)

	out.SessionContext.ConversationThemes = make([]string, len(mem.SessionContext.ConversationThemes))
	copy(out.SessionContext.ConversationThemes, mem.SessionContext.ConversationThemes)

	out.UserProfile.Preferences = make(map[string]string, len(mem.UserProfile.Preferences))
	for k, v := range mem.UserProfile.Preferences {
		out.UserProfile.Preferences[k] = v
	}

	return out
}

// normalizeAnalysis replaces nil slices with empty ones so the outbound
// JSON contract always carries arrays.
func normalizeAnalysis(a AnalysisResult) AnalysisResult {
	if a.Themes == nil {
		a.Themes = []string{}
	}
	if a.ProgressIndicators == nil {
		a.ProgressIndicators = []string{}
	}
	return a
}
