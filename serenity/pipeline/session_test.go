package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"serenity/serenity/services/llm"
)

type staticGenerator struct {
	result *llm.Result
	err    error
}

func (g *staticGenerator) GenerateContent(context.Context, string) (*llm.Result, error) {
	return g.result, g.err
}

type capturingAnalysisStore struct {
	sessionID string
	userID    string
	analysis  SessionAnalysis
	err       error
}

func (s *capturingAnalysisStore) SaveSessionAnalysis(_ context.Context, sessionID, userID string, analysis SessionAnalysis) error {
	s.sessionID = sessionID
	s.userID = userID
	s.analysis = analysis
	return s.err
}

const validSessionJSON = `{
  "keyThemes": ["isolation"],
  "emotionalState": "withdrawn",
  "areasOfConcern": ["self-harm ideation"],
  "recommendations": ["schedule follow-up"],
  "progressIndicators": ["attended full session"]
}`

func TestAnalyzeSessionStoresAndAlerts(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := &capturingAnalysisStore{}
	p := New(&staticGenerator{result: llm.TextResult(validSessionJSON)}, zap.New(core),
		WithAnalysisStore(store))

	analysis, err := p.AnalyzeSession(context.Background(), SessionEvent{
		SessionID:  "s-42",
		UserID:     "u-1",
		Transcript: "full session transcript",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"isolation"}, analysis.KeyThemes)
	assert.Equal(t, "s-42", store.sessionID)
	assert.Equal(t, "u-1", store.userID)
	assert.Equal(t, analysis, store.analysis)

	entries := logs.FilterMessage("Concerning indicators detected in session analysis").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "s-42", entries[0].ContextMap()["session_id"])
}

func TestAnalyzeSessionNoConcernsNoAlert(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := New(&staticGenerator{result: llm.TextResult(`{"keyThemes":[],"emotionalState":"stable","areasOfConcern":[],"recommendations":[],"progressIndicators":[]}`)},
		zap.New(core), WithAnalysisStore(&capturingAnalysisStore{}))

	_, err := p.AnalyzeSession(context.Background(), SessionEvent{SessionID: "s-1", Notes: "calm session"})
	require.NoError(t, err)
	assert.Equal(t, 0, logs.Len())
}

func TestAnalyzeSessionPrefersNotesOverTranscript(t *testing.T) {
	gen := &scriptedGenerator{
		analysis:   func() (*llm.Result, error) { return nil, errors.New("unused") },
		generation: func() (*llm.Result, error) { return llm.TextResult(validSessionJSON), nil },
	}
	p := New(gen, zap.NewNop())

	_, err := p.AnalyzeSession(context.Background(), SessionEvent{
		SessionID:  "s-1",
		Notes:      "therapist notes",
		Transcript: "raw transcript",
	})
	require.NoError(t, err)
	require.NotEmpty(t, gen.prompts)
	assert.Contains(t, gen.prompts[0], "therapist notes")
	assert.NotContains(t, gen.prompts[0], "raw transcript")
}

func TestAnalyzeSessionErrorsPropagate(t *testing.T) {
	p := New(&staticGenerator{err: errors.New("model down")}, zap.NewNop())

	_, err := p.AnalyzeSession(context.Background(), SessionEvent{SessionID: "s-1", Notes: "n"})
	assert.Error(t, err, "session analysis relies on dispatcher redelivery, not fallbacks")

	p = New(&staticGenerator{result: llm.TextResult("not json")}, zap.NewNop())
	_, err = p.AnalyzeSession(context.Background(), SessionEvent{SessionID: "s-1", Notes: "n"})
	assert.Error(t, err)

	p = New(&staticGenerator{result: llm.TextResult(validSessionJSON)}, zap.NewNop())
	_, err = p.AnalyzeSession(context.Background(), SessionEvent{SessionID: "s-1"})
	assert.Error(t, err, "missing notes and transcript is an error")
}

func TestAnalyzeSessionStoreFailurePropagates(t *testing.T) {
	store := &capturingAnalysisStore{err: errors.New("db down")}
	p := New(&staticGenerator{result: llm.TextResult(validSessionJSON)}, zap.NewNop(),
		WithAnalysisStore(store))

	_, err := p.AnalyzeSession(context.Background(), SessionEvent{SessionID: "s-1", Notes: "n"})
	assert.Error(t, err)
}
