// Package capsule defines the data model for one parsed conversation:
// participants, messages, per-message linguistic features, and the
// analysis produced over them. A Capsule is created once per parse
// request and populated in place as pipeline stages run.
package capsule

import (
	"time"

	"github.com/google/uuid"
)

// SourceType identifies the format of the raw conversation text.
type SourceType string

const (
	SourceEmail      SourceType = "email"
	SourceChat       SourceType = "chat"
	SourceTranscript SourceType = "transcript"
	SourceGeneric    SourceType = "generic"
)

// Mode selects the extraction/analysis strategy.
type Mode string

const (
	// ModeBasic uses the free, deterministic pattern matcher.
	ModeBasic Mode = "basic"
	// ModeAdvanced uses the paid model backend.
	ModeAdvanced Mode = "advanced"
	// ModeAuto resolves to basic or advanced from a complexity estimate.
	ModeAuto Mode = "auto"
)

// Sentiment is the categorical sentiment of a message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Urgency is the categorical urgency of a message.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// Severity grades a finding.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Risk is the overall risk level of a conversation.
type Risk string

const (
	RiskHigh   Risk = "high"
	RiskMedium Risk = "medium"
	RiskLow    Risk = "low"
)

// Role is the inferred organizational role of a participant.
type Role string

// RoleUnknown is the default role before inference.
const RoleUnknown Role = "unknown"

// Participant is one sender in a conversation. The ID is assigned
// sequentially at extraction time; messages reference it after a
// linking pass resolves raw sender tokens by name or email.
type Participant struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
}

// Message is one utterance in a conversation. IDs are unique within a
// capsule. Timestamps are best-effort chronological; callers that
// depend on sequence re-sort by timestamp first.
type Message struct {
	ID            int                 `json:"id"`
	ParticipantID int                 `json:"participant_id"`
	Timestamp     time.Time           `json:"timestamp"`
	Content       string              `json:"content"`
	ParentID      *int                `json:"parent_id,omitempty"`
	Sentiment     Sentiment           `json:"sentiment,omitempty"`
	Features      *LinguisticFeatures `json:"features,omitempty"`
	Metadata      map[string]string   `json:"metadata,omitempty"`
}

// LinguisticFeatures holds per-message extracted features.
type LinguisticFeatures struct {
	Questions        []string  `json:"questions,omitempty"`
	ContainsQuestion bool      `json:"contains_question"`
	WordCount        int       `json:"word_count"`
	SentenceCount    int       `json:"sentence_count"`
	Sentiment        Sentiment `json:"sentiment"`
	Urgency          Urgency   `json:"urgency"`
	// Politeness is a score in [0,1].
	Politeness float64 `json:"politeness"`
}

// Capsule is the structured container for one parsed conversation.
type Capsule struct {
	ID           string            `json:"id"`
	CreatedAt    time.Time         `json:"created_at"`
	SourceType   SourceType        `json:"source_type"`
	RawText      string            `json:"raw_text"`
	Participants []Participant     `json:"participants"`
	Messages     []Message         `json:"messages"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Analysis     *Analysis         `json:"analysis,omitempty"`
	Summary      string            `json:"summary,omitempty"`
	KeyPoints    []string          `json:"key_points,omitempty"`
}

// New creates an empty capsule for the given raw text.
func New(raw string, source SourceType) *Capsule {
	return &Capsule{
		ID:         uuid.New().String(),
		CreatedAt:  time.Now(),
		SourceType: source,
		RawText:    raw,
		Metadata:   make(map[string]string),
	}
}

// ParticipantByID returns the participant with the given id, or nil.
func (c *Capsule) ParticipantByID(id int) *Participant {
	for i := range c.Participants {
		if c.Participants[i].ID == id {
			return &c.Participants[i]
		}
	}
	return nil
}

// UnansweredQuestion is a question that never received a substantive
// reply from a different participant.
type UnansweredQuestion struct {
	Question       string    `json:"question"`
	AskedBy        int       `json:"asked_by"`
	MessageID      int       `json:"message_id"`
	AskedAt        time.Time `json:"asked_at"`
	TimesAsked     int       `json:"times_asked"`
	DaysUnanswered int       `json:"days_unanswered"`
}

// TensionType classifies a tension point.
type TensionType string

const (
	TensionFrustration  TensionType = "frustration"
	TensionUrgency      TensionType = "urgency"
	TensionRepetition   TensionType = "repetition"
	TensionEscalation   TensionType = "escalation"
	TensionDismissive   TensionType = "dismissiveness"
	TensionNegativeTone TensionType = "negative_tone"
)

// TensionPoint is a detected friction signal in a single message.
type TensionPoint struct {
	Type          TensionType `json:"type"`
	MessageID     int         `json:"message_id"`
	ParticipantID int         `json:"participant_id"`
	Excerpt       string      `json:"excerpt"`
	Severity      Severity    `json:"severity"`
}

// MisalignmentType classifies a misalignment.
type MisalignmentType string

const (
	MisalignmentDisagreement MisalignmentType = "disagreement"
	MisalignmentConfusion    MisalignmentType = "confusion"
	MisalignmentAssumption   MisalignmentType = "assumption"
)

// Misalignment is a detected difference in expectation or
// understanding between participants.
type Misalignment struct {
	Type          MisalignmentType `json:"type"`
	MessageID     int              `json:"message_id"`
	ParticipantID int              `json:"participant_id"`
	Description   string           `json:"description"`
	Severity      Severity         `json:"severity"`
	Resolution    string           `json:"resolution,omitempty"`
}

// ConversationHealth scores the overall state of a conversation.
// All scores are in [0,1].
type ConversationHealth struct {
	Score           float64  `json:"score"`
	Responsiveness  float64  `json:"responsiveness"`
	Clarity         float64  `json:"clarity"`
	Alignment       float64  `json:"alignment"`
	RiskLevel       Risk     `json:"risk_level"`
	Issues          []string `json:"issues,omitempty"`
	Strengths       []string `json:"strengths,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// DecisionPoint is a decision detected in a message.
type DecisionPoint struct {
	MessageID     int    `json:"message_id"`
	ParticipantID int    `json:"participant_id"`
	Description   string `json:"description"`
}

// ActionItem is a requested or committed action detected in a message.
type ActionItem struct {
	MessageID     int     `json:"message_id"`
	ParticipantID int     `json:"participant_id"`
	Description   string  `json:"description"`
	Priority      Urgency `json:"priority"`
}

// SuggestedAction is a recommended next step derived from findings.
type SuggestedAction struct {
	Action    string  `json:"action"`
	Priority  Urgency `json:"priority"`
	Reasoning string  `json:"reasoning"`
}

// Analysis is the full output of one analysis run. It replaces any
// prior analysis on the capsule. Disabled dimensions are present and
// empty rather than omitted, so the shape is stable across requests.
type Analysis struct {
	UnansweredQuestions []UnansweredQuestion `json:"unanswered_questions"`
	TensionPoints       []TensionPoint       `json:"tension_points"`
	Misalignments       []Misalignment       `json:"misalignments"`
	Health              *ConversationHealth  `json:"health,omitempty"`
	Decisions           []DecisionPoint      `json:"decisions"`
	ActionItems         []ActionItem         `json:"action_items"`
	SuggestedActions    []SuggestedAction    `json:"suggested_actions"`
}

// Empty returns an analysis with all dimensions initialized to empty
// slices, the shape returned when every dimension is disabled.
func Empty() *Analysis {
	return &Analysis{
		UnansweredQuestions: []UnansweredQuestion{},
		TensionPoints:       []TensionPoint{},
		Misalignments:       []Misalignment{},
		Decisions:           []DecisionPoint{},
		ActionItems:         []ActionItem{},
		SuggestedActions:    []SuggestedAction{},
	}
}
