package analyze

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/candorlabs/candor/internal/capsule"
	"github.com/candorlabs/candor/internal/llm"
)

// routingClient answers each dimension prompt with a canned response
// keyed by a marker phrase from the prompt, and errors otherwise.
type routingClient struct {
	responses map[string]string
}

func (r *routingClient) Complete(ctx context.Context, prompt string) (string, error) {
	return r.CompleteStructured(ctx, prompt)
}

func (r *routingClient) CompleteStructured(_ context.Context, prompt string) (string, error) {
	for marker, resp := range r.responses {
		if strings.Contains(prompt, marker) {
			return resp, nil
		}
	}
	return "", errors.New("backend unavailable")
}

func (r *routingClient) Available() bool { return true }

func TestModelEngine_ParsesDimensions(t *testing.T) {
	client := &routingClient{responses: map[string]string{
		"never received a substantive answer": `[{"question": "What is the ETA?", "asked_by": 1, "message_id": 2, "times_asked": 2}]`,
		"moments of friction": "```json\n" +
			`[{"type": "frustration", "message_id": 3, "participant_id": 1, "excerpt": "still waiting", "severity": "high"}]` +
			"\n```",
		"misunderstand or disagree": `[{"type": "confusion", "message_id": 4, "participant_id": 2, "description": "unclear scope", "severity": "low", "resolution": "restate the scope"}]`,
		"decisions that were made":  `[{"message_id": 5, "participant_id": 2, "description": "ship on Friday"}]`,
		"requested or committed":    `[{"message_id": 6, "participant_id": 1, "description": "send the logs", "priority": "high"}]`,
		"Score the health":          `{"score": 0.55, "responsiveness": 0.6, "clarity": 0.7, "alignment": 0.8, "risk_level": "medium", "issues": ["slow replies"], "strengths": [], "recommendations": ["reply faster"]}`,
	}}
	e := NewModelEngine(client, zap.NewNop())

	c := convo(
		entry{1, "What is the ETA?"},
		entry{2, "Checking with the team now."},
	)
	a, err := e.Analyze(context.Background(), c, AllDimensions())
	require.NoError(t, err)

	require.Len(t, a.UnansweredQuestions, 1)
	assert.Equal(t, "What is the ETA?", a.UnansweredQuestions[0].Question)
	assert.Equal(t, 2, a.UnansweredQuestions[0].TimesAsked)

	require.Len(t, a.TensionPoints, 1)
	assert.Equal(t, capsule.TensionFrustration, a.TensionPoints[0].Type)
	assert.Equal(t, capsule.SeverityHigh, a.TensionPoints[0].Severity)

	require.Len(t, a.Misalignments, 1)
	assert.Equal(t, capsule.MisalignmentConfusion, a.Misalignments[0].Type)
	assert.Equal(t, "restate the scope", a.Misalignments[0].Resolution)

	require.Len(t, a.Decisions, 1)
	require.Len(t, a.ActionItems, 1)
	assert.Equal(t, capsule.UrgencyHigh, a.ActionItems[0].Priority)

	require.NotNil(t, a.Health)
	assert.Equal(t, 0.55, a.Health.Score)
	assert.Equal(t, capsule.RiskMedium, a.Health.RiskLevel)

	// Suggested actions derive from the parsed findings.
	assert.NotEmpty(t, a.SuggestedActions)
}

func TestModelEngine_DimensionFailureDegradesToEmpty(t *testing.T) {
	client := &routingClient{responses: map[string]string{
		"moments of friction": `[{"type": "urgency", "message_id": 1, "participant_id": 1, "excerpt": "asap", "severity": "medium"}]`,
	}}
	e := NewModelEngine(client, zap.NewNop())

	c := convo(entry{1, "Need this asap."})
	a, err := e.Analyze(context.Background(), c, AllDimensions())
	require.NoError(t, err)

	require.Len(t, a.TensionPoints, 1)
	assert.NotNil(t, a.UnansweredQuestions)
	assert.Empty(t, a.UnansweredQuestions)
	assert.Empty(t, a.Misalignments)
	assert.Empty(t, a.Decisions)
	assert.Empty(t, a.ActionItems)
	assert.Nil(t, a.Health, "failed health call leaves health unset")
}

func TestModelEngine_UnparseableResponseDegradesToEmpty(t *testing.T) {
	client := &routingClient{responses: map[string]string{
		"never received a substantive answer": "I could not find any questions, sorry!",
	}}
	e := NewModelEngine(client, zap.NewNop())

	c := convo(entry{1, "When can we meet?"})
	a, err := e.Analyze(context.Background(), c, Options{UnansweredQuestions: true})
	require.NoError(t, err)

	assert.NotNil(t, a.UnansweredQuestions)
	assert.Empty(t, a.UnansweredQuestions)
}

func TestModelEngine_UnavailableBackend(t *testing.T) {
	e := NewModelEngine(&llm.NoOpClient{}, zap.NewNop())

	c := convo(entry{1, "Hello."})
	_, err := e.Analyze(context.Background(), c, AllDimensions())
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
}
