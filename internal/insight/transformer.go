// Package insight flattens an analyzed capsule into taxonomy-coded
// entries suitable for aggregation. The raw conversation never leaves
// this boundary: entries carry category, value, role, topic, and
// severity keys only, so the downstream store holds trends without
// content.
package insight

import (
	"context"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/candorlabs/candor/internal/capsule"
	"github.com/candorlabs/candor/internal/taxonomy"
)

// Category keys used by the system taxonomy.
const (
	CategoryQuestionStatus = "QUESTION_STATUS"
	CategoryTension        = "TENSION"
	CategoryMisalignment   = "MISALIGNMENT"
	CategoryDecision       = "DECISION"
	CategoryActionItem     = "ACTION_ITEM"
	CategoryHealth         = "HEALTH"
)

// lowSubScore is the threshold under which a health sub-score emits
// its own finding.
const lowSubScore = 0.5

// Entry is one classified finding. Every field is a taxonomy key.
type Entry struct {
	Category string `json:"category"`
	Value    string `json:"value"`
	Role     string `json:"role"`
	Topic    string `json:"topic"`
	Severity string `json:"severity"`
}

// StorableInsight is the anonymized aggregate persisted for an
// organization. It carries counts and keys, never message text.
type StorableInsight struct {
	OrgID            string             `json:"org_id"`
	UserID           string             `json:"user_id,omitempty"`
	Timestamp        time.Time          `json:"timestamp"`
	SourceType       capsule.SourceType `json:"source_type"`
	ParticipantCount int                `json:"participant_count"`
	MessageCount     int                `json:"message_count"`
	OverallRisk      capsule.Risk       `json:"overall_risk"`
	HealthScore      float64            `json:"health_score"`
	Entries          []Entry            `json:"entries"`
}

// Store persists insights. It is an external collaborator; the
// reference implementation wraps the organization's SQL store.
type Store interface {
	SaveInsight(ctx context.Context, in *StorableInsight) error
}

// compiledRule is a severity rule with its condition parsed once.
type compiledRule struct {
	category string
	value    string
	cond     taxonomy.Condition
	severity string
}

// Transformer maps analysis findings onto an effective taxonomy.
type Transformer struct {
	tax    *taxonomy.Data
	rules  []compiledRule
	logger *zap.Logger
}

// NewTransformer compiles the taxonomy's severity rules. Rules with
// unparseable conditions are dropped with a warning rather than
// matching everything.
func NewTransformer(tax *taxonomy.Data, logger *zap.Logger) *Transformer {
	if logger == nil {
		logger = zap.NewNop()
	}
	rules := make([]compiledRule, 0, len(tax.SeverityRules))
	for _, r := range tax.SeverityRules {
		cond, err := taxonomy.ParseCondition(r.Condition)
		if err != nil {
			logger.Warn("dropping severity rule",
				zap.String("category", r.Category),
				zap.String("value", r.Value),
				zap.Error(err))
			continue
		}
		rules = append(rules, compiledRule{
			category: r.Category,
			value:    r.Value,
			cond:     cond,
			severity: r.Severity,
		})
	}
	return &Transformer{tax: tax, rules: rules, logger: logger}
}

// Transform flattens the capsule's analysis into one StorableInsight.
// A capsule without an analysis yields counts only.
func (t *Transformer) Transform(c *capsule.Capsule, orgID, userID string) *StorableInsight {
	in := &StorableInsight{
		OrgID:            orgID,
		UserID:           userID,
		Timestamp:        c.CreatedAt,
		SourceType:       c.SourceType,
		ParticipantCount: len(c.Participants),
		MessageCount:     len(c.Messages),
		Entries:          []Entry{},
	}
	a := c.Analysis
	if a == nil {
		return in
	}
	if a.Health != nil {
		in.OverallRisk = a.Health.RiskLevel
		in.HealthScore = a.Health.Score
	}

	for _, q := range a.UnansweredQuestions {
		value := "unanswered"
		if q.TimesAsked > 1 {
			value = "repeated_unanswered"
		}
		topic := t.inferTopic(q.Question)
		in.Entries = append(in.Entries, Entry{
			Category: CategoryQuestionStatus,
			Value:    value,
			Role:     t.inferRole(c.ParticipantByID(q.AskedBy)),
			Topic:    topic,
			Severity: t.severity(CategoryQuestionStatus, value, taxonomy.FindingFacts{
				Topic:          topic,
				DaysUnanswered: q.DaysUnanswered,
				TimesAsked:     q.TimesAsked,
			}, questionSeverity(q)),
		})
	}

	for _, tp := range a.TensionPoints {
		topic := t.inferTopic(tp.Excerpt)
		in.Entries = append(in.Entries, Entry{
			Category: CategoryTension,
			Value:    string(tp.Type),
			Role:     t.inferRole(c.ParticipantByID(tp.ParticipantID)),
			Topic:    topic,
			Severity: t.severity(CategoryTension, string(tp.Type),
				taxonomy.FindingFacts{Topic: topic}, string(tp.Severity)),
		})
	}

	for _, m := range a.Misalignments {
		topic := t.inferTopic(m.Description)
		in.Entries = append(in.Entries, Entry{
			Category: CategoryMisalignment,
			Value:    string(m.Type),
			Role:     t.inferRole(c.ParticipantByID(m.ParticipantID)),
			Topic:    topic,
			Severity: t.severity(CategoryMisalignment, string(m.Type),
				taxonomy.FindingFacts{Topic: topic}, string(m.Severity)),
		})
	}

	for _, d := range a.Decisions {
		topic := t.inferTopic(d.Description)
		in.Entries = append(in.Entries, Entry{
			Category: CategoryDecision,
			Value:    "made",
			Role:     t.inferRole(c.ParticipantByID(d.ParticipantID)),
			Topic:    topic,
			Severity: t.severity(CategoryDecision, "made",
				taxonomy.FindingFacts{Topic: topic}, "low"),
		})
	}

	for _, ai := range a.ActionItems {
		value := "open"
		if ai.Priority == capsule.UrgencyHigh {
			value = "high_priority"
		}
		topic := t.inferTopic(ai.Description)
		in.Entries = append(in.Entries, Entry{
			Category: CategoryActionItem,
			Value:    value,
			Role:     t.inferRole(c.ParticipantByID(ai.ParticipantID)),
			Topic:    topic,
			Severity: t.severity(CategoryActionItem, value,
				taxonomy.FindingFacts{Topic: topic}, string(ai.Priority)),
		})
	}

	if a.Health != nil {
		subScores := []struct {
			value string
			score float64
		}{
			{"low_responsiveness", a.Health.Responsiveness},
			{"low_clarity", a.Health.Clarity},
			{"low_alignment", a.Health.Alignment},
		}
		for _, s := range subScores {
			value, score := s.value, s.score
			if score >= lowSubScore {
				continue
			}
			in.Entries = append(in.Entries, Entry{
				Category: CategoryHealth,
				Value:    value,
				Role:     "unknown",
				Topic:    "general",
				Severity: t.severity(CategoryHealth, value,
					taxonomy.FindingFacts{Topic: "general"}, "medium"),
			})
		}
	}

	return in
}

// severity applies the first matching severity rule, falling back to
// the per-category default. Override rules are merged ahead of base
// rules, so first match honors the scope layering.
func (t *Transformer) severity(category, value string, facts taxonomy.FindingFacts, fallback string) string {
	for _, r := range t.rules {
		if r.category == category && r.value == value && r.cond.Eval(facts) {
			return r.severity
		}
	}
	return fallback
}

// questionSeverity is the built-in heuristic for unanswered
// questions when no severity rule claims them.
func questionSeverity(q capsule.UnansweredQuestion) string {
	switch {
	case q.TimesAsked > 2 || q.DaysUnanswered > 2:
		return "high"
	case q.TimesAsked > 1 || q.DaysUnanswered > 0:
		return "medium"
	default:
		return "low"
	}
}

// inferRole classifies a participant by name keywords first, then by
// email-domain glob. The first matching taxonomy role wins.
func (t *Transformer) inferRole(p *capsule.Participant) string {
	if p == nil {
		return "unknown"
	}
	name := strings.ToLower(p.Name)
	email := strings.ToLower(p.Email)
	for _, role := range t.tax.Roles {
		for _, kw := range role.Keywords {
			if kw != "" && strings.Contains(name, kw) {
				return role.Key
			}
		}
		if email == "" {
			continue
		}
		for _, pattern := range role.EmailDomainPatterns {
			if ok, err := path.Match(pattern, email); err == nil && ok {
				return role.Key
			}
		}
	}
	return "unknown"
}

// inferTopic classifies finding text by keyword; the first taxonomy
// topic with a hit wins, and "general" is the catch-all.
func (t *Transformer) inferTopic(text string) string {
	low := strings.ToLower(text)
	for _, topic := range t.tax.Topics {
		for _, kw := range topic.Keywords {
			if kw != "" && strings.Contains(low, kw) {
				return topic.Key
			}
		}
	}
	return "general"
}
