package insight

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/candorlabs/candor/internal/capsule"
	"github.com/candorlabs/candor/internal/taxonomy"
)

func analyzedCapsule() *capsule.Capsule {
	c := capsule.New("raw text that must never leave", capsule.SourceEmail)
	c.CreatedAt = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	c.Participants = []capsule.Participant{
		{ID: 1, Name: "Dana Client", Email: "dana@acme.com"},
		{ID: 2, Name: "Sam", Email: "sam@support.vendor.com"},
	}
	c.Analysis = capsule.Empty()
	return c
}

func TestTransform_SingleUnansweredQuestion(t *testing.T) {
	c := analyzedCapsule()
	c.Analysis.UnansweredQuestions = []capsule.UnansweredQuestion{
		{Question: "Can we meet tomorrow?", AskedBy: 1, MessageID: 1, TimesAsked: 1},
	}

	tr := NewTransformer(taxonomy.SystemDefault(), zap.NewNop())
	in := tr.Transform(c, "org-1", "")

	require.Len(t, in.Entries, 1)
	e := in.Entries[0]
	assert.Equal(t, CategoryQuestionStatus, e.Category)
	assert.Equal(t, "unanswered", e.Value)
	assert.Equal(t, "low", e.Severity)
	assert.Equal(t, "general", e.Topic)
}

func TestTransform_QuestionSeverityHeuristic(t *testing.T) {
	tests := []struct {
		name     string
		q        capsule.UnansweredQuestion
		value    string
		severity string
	}{
		{"fresh single ask", capsule.UnansweredQuestion{TimesAsked: 1}, "unanswered", "low"},
		{"one day stale", capsule.UnansweredQuestion{TimesAsked: 1, DaysUnanswered: 1}, "unanswered", "medium"},
		{"asked twice", capsule.UnansweredQuestion{TimesAsked: 2}, "repeated_unanswered", "medium"},
		{"asked three times", capsule.UnansweredQuestion{TimesAsked: 3}, "repeated_unanswered", "high"},
		{"three days stale", capsule.UnansweredQuestion{TimesAsked: 1, DaysUnanswered: 3}, "unanswered", "high"},
	}
	tr := NewTransformer(taxonomy.SystemDefault(), zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := analyzedCapsule()
			c.Analysis.UnansweredQuestions = []capsule.UnansweredQuestion{tt.q}
			in := tr.Transform(c, "org-1", "")
			require.Len(t, in.Entries, 1)
			assert.Equal(t, tt.value, in.Entries[0].Value)
			assert.Equal(t, tt.severity, in.Entries[0].Severity)
		})
	}
}

func TestTransform_SeverityRuleOverridesHeuristic(t *testing.T) {
	tax := taxonomy.SystemDefault()
	tax.SeverityRules = []taxonomy.SeverityRule{
		{Category: CategoryQuestionStatus, Value: "unanswered", Condition: "topic == 'billing'", Severity: "high"},
	}
	tr := NewTransformer(tax, zap.NewNop())

	c := analyzedCapsule()
	c.Analysis.UnansweredQuestions = []capsule.UnansweredQuestion{
		{Question: "When will the invoice be corrected?", AskedBy: 1, TimesAsked: 1},
	}
	in := tr.Transform(c, "org-1", "")

	require.Len(t, in.Entries, 1)
	assert.Equal(t, "billing", in.Entries[0].Topic)
	assert.Equal(t, "high", in.Entries[0].Severity, "rule beats the low heuristic")
}

func TestTransform_InvalidRuleIsDroppedNotWildcard(t *testing.T) {
	tax := taxonomy.SystemDefault()
	tax.SeverityRules = []taxonomy.SeverityRule{
		{Category: CategoryQuestionStatus, Value: "unanswered", Condition: "topic LIKE 'bill%'", Severity: "high"},
	}
	tr := NewTransformer(tax, zap.NewNop())

	c := analyzedCapsule()
	c.Analysis.UnansweredQuestions = []capsule.UnansweredQuestion{
		{Question: "When will the invoice be corrected?", AskedBy: 1, TimesAsked: 1},
	}
	in := tr.Transform(c, "org-1", "")

	require.Len(t, in.Entries, 1)
	assert.Equal(t, "low", in.Entries[0].Severity)
}

func TestTransform_RoleInference(t *testing.T) {
	tr := NewTransformer(taxonomy.SystemDefault(), zap.NewNop())

	tests := []struct {
		name string
		p    capsule.Participant
		want string
	}{
		{"name keyword", capsule.Participant{ID: 1, Name: "Dana Client"}, "customer"},
		{"email domain glob", capsule.Participant{ID: 1, Name: "Sam", Email: "sam@support.vendor.com"}, "support"},
		{"no signal", capsule.Participant{ID: 1, Name: "Alex", Email: "alex@example.com"}, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := analyzedCapsule()
			c.Participants = []capsule.Participant{tt.p}
			c.Analysis.TensionPoints = []capsule.TensionPoint{
				{Type: capsule.TensionFrustration, MessageID: 1, ParticipantID: 1, Excerpt: "so slow", Severity: capsule.SeverityMedium},
			}
			in := tr.Transform(c, "org-1", "")
			require.Len(t, in.Entries, 1)
			assert.Equal(t, tt.want, in.Entries[0].Role)
		})
	}
}

func TestTransform_HealthFindingsAndAggregates(t *testing.T) {
	tr := NewTransformer(taxonomy.SystemDefault(), zap.NewNop())

	c := analyzedCapsule()
	c.Analysis.Health = &capsule.ConversationHealth{
		Score:          0.42,
		Responsiveness: 0.3,
		Clarity:        0.9,
		Alignment:      0.4,
		RiskLevel:      capsule.RiskMedium,
	}
	in := tr.Transform(c, "org-1", "user-7")

	assert.Equal(t, "org-1", in.OrgID)
	assert.Equal(t, "user-7", in.UserID)
	assert.Equal(t, capsule.SourceEmail, in.SourceType)
	assert.Equal(t, 2, in.ParticipantCount)
	assert.Equal(t, capsule.RiskMedium, in.OverallRisk)
	assert.Equal(t, 0.42, in.HealthScore)

	require.Len(t, in.Entries, 2)
	assert.Equal(t, "low_responsiveness", in.Entries[0].Value)
	assert.Equal(t, "low_alignment", in.Entries[1].Value)
}

func TestTransform_ActionItemAndDecisionValues(t *testing.T) {
	tr := NewTransformer(taxonomy.SystemDefault(), zap.NewNop())

	c := analyzedCapsule()
	c.Analysis.Decisions = []capsule.DecisionPoint{
		{MessageID: 1, ParticipantID: 2, Description: "ship the launch on Friday"},
	}
	c.Analysis.ActionItems = []capsule.ActionItem{
		{MessageID: 2, ParticipantID: 2, Description: "send the contract", Priority: capsule.UrgencyHigh},
		{MessageID: 3, ParticipantID: 2, Description: "update the doc", Priority: capsule.UrgencyMedium},
	}
	in := tr.Transform(c, "org-1", "")

	require.Len(t, in.Entries, 3)
	assert.Equal(t, CategoryDecision, in.Entries[0].Category)
	assert.Equal(t, "made", in.Entries[0].Value)
	assert.Equal(t, "delivery", in.Entries[0].Topic, "launch keyword maps to delivery")
	assert.Equal(t, "high_priority", in.Entries[1].Value)
	assert.Equal(t, "open", in.Entries[2].Value)
}

func TestTransform_NeverLeaksConversationText(t *testing.T) {
	tr := NewTransformer(taxonomy.SystemDefault(), zap.NewNop())

	c := analyzedCapsule()
	c.Analysis.UnansweredQuestions = []capsule.UnansweredQuestion{
		{Question: "secret project phoenix timeline?", AskedBy: 1, TimesAsked: 1},
	}
	c.Analysis.TensionPoints = []capsule.TensionPoint{
		{Type: capsule.TensionUrgency, MessageID: 1, ParticipantID: 1, Excerpt: "secret project phoenix", Severity: capsule.SeverityHigh},
	}
	in := tr.Transform(c, "org-1", "")

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "phoenix"), "insight payload must not carry message text")
	assert.False(t, strings.Contains(string(raw), "Dana"), "insight payload must not carry participant names")
}

func TestTransform_NoAnalysisYieldsCountsOnly(t *testing.T) {
	tr := NewTransformer(taxonomy.SystemDefault(), zap.NewNop())

	c := analyzedCapsule()
	c.Analysis = nil
	c.Messages = []capsule.Message{{ID: 1, ParticipantID: 1, Content: "hello"}}
	in := tr.Transform(c, "org-1", "")

	assert.Equal(t, 1, in.MessageCount)
	assert.Empty(t, in.Entries)
	assert.NotNil(t, in.Entries)
}
