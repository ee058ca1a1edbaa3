package analyze

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/candorlabs/candor/internal/capsule"
	"github.com/candorlabs/candor/internal/linguistic"
	"github.com/candorlabs/candor/internal/patterns"
)

const (
	// answerMinChars is the minimum reply length counted as a
	// substantive answer rather than an acknowledgement.
	answerMinChars = 10

	// excerptMaxChars bounds tension and misalignment excerpts.
	excerptMaxChars = 120

	// maxSuggestions caps the suggested-action list.
	maxSuggestions = 5
)

var doubleExclaimRe = regexp.MustCompile(`!{2,}`)

// PatternEngine is the free analysis strategy. It derives every
// dimension from catalog triggers and lightweight linguistic
// heuristics, with no external calls. Results are deterministic for
// a given capsule and catalog state.
type PatternEngine struct {
	catalog  *patterns.Catalog
	analyzer *linguistic.Analyzer
	logger   *zap.Logger
}

var _ Engine = (*PatternEngine)(nil)

func NewPatternEngine(catalog *patterns.Catalog, logger *zap.Logger) *PatternEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatternEngine{
		catalog:  catalog,
		analyzer: linguistic.NewAnalyzer(catalog),
		logger:   logger,
	}
}

// Analyze runs the enabled dimensions over the capsule. It never
// returns an error; the error slot exists to satisfy Engine.
func (e *PatternEngine) Analyze(_ context.Context, c *capsule.Capsule, opts Options) (*capsule.Analysis, error) {
	a := capsule.Empty()
	msgs := sortedByTime(c.Messages)

	if opts.UnansweredQuestions {
		a.UnansweredQuestions = e.unansweredQuestions(c, msgs)
	}
	if opts.TensionPoints {
		a.TensionPoints = e.tensionPoints(msgs)
	}
	if opts.Misalignments {
		a.Misalignments = e.misalignments(msgs)
	}
	if opts.Health {
		a.Health = e.health(msgs, a.UnansweredQuestions, a.TensionPoints, a.Misalignments)
	}
	if opts.Decisions {
		a.Decisions = e.decisions(msgs)
	}
	if opts.ActionItems {
		a.ActionItems = e.actionItems(msgs)
	}
	if opts.SuggestedActions {
		a.SuggestedActions = suggestActions(a.UnansweredQuestions, a.TensionPoints, a.Misalignments)
	}

	e.logger.Debug("pattern analysis complete",
		zap.String("capsule_id", c.ID),
		zap.Int("unanswered", len(a.UnansweredQuestions)),
		zap.Int("tensions", len(a.TensionPoints)))
	return a, nil
}

// unansweredQuestions walks the conversation in order. For every
// question a participant asks, the first subsequent message from a
// different participant decides its fate: a substantive reply marks
// it answered, a bare counter-question or trivial acknowledgement
// does not. Repeats of the same normalized question fold into a
// single entry; TimesAsked counts occurrences by the original asker.
func (e *PatternEngine) unansweredQuestions(c *capsule.Capsule, msgs []capsule.Message) []capsule.UnansweredQuestion {
	open := make(map[string]*capsule.UnansweredQuestion)
	var order []string

	lastAt := c.CreatedAt
	if len(msgs) > 0 {
		lastAt = msgs[len(msgs)-1].Timestamp
	}

	for i, m := range msgs {
		for _, q := range e.analyzer.ExtractQuestions(m.Content) {
			if answeredAfter(msgs, i, m.ParticipantID) {
				continue
			}
			key := linguistic.NormalizeQuestion(q)
			if key == "" {
				continue
			}
			if entry, ok := open[key]; ok {
				// Only repeats by the original asker raise the count;
				// another participant echoing the question does not.
				if entry.AskedBy == m.ParticipantID {
					entry.TimesAsked++
				}
				continue
			}
			days := int(lastAt.Sub(m.Timestamp).Hours() / 24)
			if days < 0 {
				days = 0
			}
			open[key] = &capsule.UnansweredQuestion{
				Question:       q,
				AskedBy:        m.ParticipantID,
				MessageID:      m.ID,
				AskedAt:        m.Timestamp,
				TimesAsked:     1,
				DaysUnanswered: days,
			}
			order = append(order, key)
		}
	}

	out := make([]capsule.UnansweredQuestion, 0, len(order))
	for _, key := range order {
		out = append(out, *open[key])
	}
	return out
}

// answeredAfter reports whether the first later message from another
// participant substantively answers a question asked at index i.
func answeredAfter(msgs []capsule.Message, i, askerID int) bool {
	for j := i + 1; j < len(msgs); j++ {
		if msgs[j].ParticipantID == askerID {
			continue
		}
		reply := strings.TrimSpace(msgs[j].Content)
		return !isBareQuestion(reply) && len(reply) >= answerMinChars
	}
	return false
}

// isBareQuestion reports whether text is nothing but a question:
// every sentence in it ends with "?".
func isBareQuestion(text string) bool {
	if !strings.HasSuffix(strings.TrimSpace(text), "?") {
		return false
	}
	for _, s := range linguistic.SplitSentences(text) {
		if !strings.HasSuffix(strings.TrimSpace(s), "?") {
			return false
		}
	}
	return true
}

// tensionSpec maps a catalog category to a tension type and its
// default severity.
type tensionSpec struct {
	category string
	ttype    capsule.TensionType
	severity capsule.Severity
}

var tensionSpecs = []tensionSpec{
	{patterns.CategoryFrustration, capsule.TensionFrustration, capsule.SeverityMedium},
	{patterns.CategoryUrgency, capsule.TensionUrgency, capsule.SeverityMedium},
	{patterns.CategoryRepetition, capsule.TensionRepetition, capsule.SeverityMedium},
	{patterns.CategoryEscalation, capsule.TensionEscalation, capsule.SeverityHigh},
	{patterns.CategoryDismissive, capsule.TensionDismissive, capsule.SeverityMedium},
	{patterns.CategoryNegativeTone, capsule.TensionNegativeTone, capsule.SeverityLow},
}

// tensionPoints flags at most one tension per (message, type) pair.
// Escalation is always high severity. Frustration escalates to high
// when exclamation marks accompany it, urgency only when the message
// uses the strong urgency vocabulary. Negative tone is suppressed
// when positive language appears in the same message, which filters
// out "not bad at all, thanks!" style replies.
func (e *PatternEngine) tensionPoints(msgs []capsule.Message) []capsule.TensionPoint {
	var out []capsule.TensionPoint
	for _, m := range msgs {
		for _, spec := range tensionSpecs {
			hit := e.catalog.Contains(spec.category, m.Content)
			if spec.ttype == capsule.TensionFrustration && !hit {
				hit = doubleExclaimRe.MatchString(m.Content)
			}
			if !hit {
				continue
			}
			if spec.ttype == capsule.TensionNegativeTone &&
				e.catalog.Contains(patterns.CategoryPositivity, m.Content) {
				continue
			}
			severity := spec.severity
			switch spec.ttype {
			case capsule.TensionFrustration:
				if strings.Contains(m.Content, "!") {
					severity = capsule.SeverityHigh
				}
			case capsule.TensionUrgency:
				if e.analyzer.Urgency(m.Content) == capsule.UrgencyHigh {
					severity = capsule.SeverityHigh
				}
			}
			out = append(out, capsule.TensionPoint{
				Type:          spec.ttype,
				MessageID:     m.ID,
				ParticipantID: m.ParticipantID,
				Excerpt:       excerpt(m.Content),
				Severity:      severity,
			})
		}
	}
	return out
}

type misalignmentSpec struct {
	category   string
	mtype      capsule.MisalignmentType
	severity   capsule.Severity
	resolution string
}

var misalignmentSpecs = []misalignmentSpec{
	{patterns.CategoryDisagreement, capsule.MisalignmentDisagreement, capsule.SeverityMedium,
		"Schedule a direct discussion to reconcile the conflicting positions."},
	{patterns.CategoryConfusion, capsule.MisalignmentConfusion, capsule.SeverityLow,
		"Restate the point in plain terms and confirm shared understanding."},
	{patterns.CategoryAssumption, capsule.MisalignmentAssumption, capsule.SeverityMedium,
		"Make the assumption explicit and have both sides confirm it."},
}

func (e *PatternEngine) misalignments(msgs []capsule.Message) []capsule.Misalignment {
	var out []capsule.Misalignment
	for _, m := range msgs {
		for _, spec := range misalignmentSpecs {
			if !e.catalog.Contains(spec.category, m.Content) {
				continue
			}
			out = append(out, capsule.Misalignment{
				Type:          spec.mtype,
				MessageID:     m.ID,
				ParticipantID: m.ParticipantID,
				Description:   excerpt(m.Content),
				Severity:      spec.severity,
				Resolution:    spec.resolution,
			})
		}
	}
	return out
}

// health computes the weighted composite score:
//
//	0.35*responsiveness + 0.25*clarity + 0.25*alignment + 0.15*positivity
//	minus 0.05 per tension point, floored at zero.
func (e *PatternEngine) health(msgs []capsule.Message, unanswered []capsule.UnansweredQuestion, tensions []capsule.TensionPoint, misalignments []capsule.Misalignment) *capsule.ConversationHealth {
	total := len(msgs)

	asked := 0
	for _, m := range msgs {
		asked += len(e.analyzer.ExtractQuestions(m.Content))
	}
	responsiveness := 1.0
	if asked > 0 {
		responsiveness = clamp01(1.0 - float64(countAsks(unanswered))/float64(asked))
	}

	confused := 0
	positive, negative := 0, 0
	for _, m := range msgs {
		if e.catalog.Contains(patterns.CategoryConfusion, m.Content) {
			confused++
		}
		switch e.analyzer.Sentiment(m.Content) {
		case capsule.SentimentPositive:
			positive++
		case capsule.SentimentNegative:
			negative++
		}
	}
	clarity := 1.0
	alignment := 1.0
	if total > 0 {
		clarity = clamp01(1.0 - 2.0*float64(confused)/float64(total))
		alignment = clamp01(1.0 - 2.0*float64(len(misalignments))/float64(total))
	}

	// Positivity is a discrete bonus, not a ratio: full credit when
	// positive messages outnumber negative ones, half when balanced.
	positivity := 0.5
	switch {
	case positive > negative:
		positivity = 1.0
	case negative > positive:
		positivity = 0.0
	}

	score := 0.35*responsiveness + 0.25*clarity + 0.25*alignment + 0.15*positivity
	score -= 0.05 * float64(len(tensions))
	if score < 0 {
		score = 0
	}

	risk := capsule.RiskLow
	switch {
	case score < 0.4 || len(tensions) >= 3:
		risk = capsule.RiskHigh
	case score < 0.7 || len(tensions) >= 1:
		risk = capsule.RiskMedium
	}

	h := &capsule.ConversationHealth{
		Score:          score,
		Responsiveness: responsiveness,
		Clarity:        clarity,
		Alignment:      alignment,
		RiskLevel:      risk,
	}
	h.Issues, h.Strengths, h.Recommendations = healthNarrative(h, unanswered, tensions, misalignments)
	return h
}

// countAsks sums the ask counts across deduplicated questions, so a
// question asked twice still weighs twice against responsiveness.
func countAsks(unanswered []capsule.UnansweredQuestion) int {
	n := 0
	for _, q := range unanswered {
		n += q.TimesAsked
	}
	return n
}

func healthNarrative(h *capsule.ConversationHealth, unanswered []capsule.UnansweredQuestion, tensions []capsule.TensionPoint, misalignments []capsule.Misalignment) (issues, strengths, recommendations []string) {
	issues = []string{}
	strengths = []string{}
	recommendations = []string{}

	if len(unanswered) > 0 {
		issues = append(issues, fmt.Sprintf("%d question(s) remain unanswered", len(unanswered)))
		recommendations = append(recommendations, "Respond to the open questions before the thread goes stale.")
	} else {
		strengths = append(strengths, "Every question received a response.")
	}
	if len(tensions) > 0 {
		issues = append(issues, fmt.Sprintf("%d tension signal(s) detected", len(tensions)))
		recommendations = append(recommendations, "Address the flagged tension points directly, highest severity first.")
	} else {
		strengths = append(strengths, "No tension signals detected.")
	}
	if len(misalignments) > 0 {
		issues = append(issues, fmt.Sprintf("%d potential misalignment(s) detected", len(misalignments)))
		recommendations = append(recommendations, "Confirm shared understanding on the flagged points.")
	}
	if h.Responsiveness >= 0.8 {
		strengths = append(strengths, "Participants respond to each other's questions.")
	}
	if h.Clarity < 0.5 {
		issues = append(issues, "Repeated confusion suggests key points are not landing.")
	}
	return issues, strengths, recommendations
}

// decisions surfaces messages that contain decision language, using
// the sentence around the trigger as the decision text.
func (e *PatternEngine) decisions(msgs []capsule.Message) []capsule.DecisionPoint {
	var out []capsule.DecisionPoint
	for _, m := range msgs {
		hits := e.catalog.Matches(patterns.CategoryDecision, m.Content, 1)
		if len(hits) == 0 {
			continue
		}
		out = append(out, capsule.DecisionPoint{
			MessageID:     m.ID,
			ParticipantID: m.ParticipantID,
			Description:   sentenceAround(m.Content, hits[0]),
		})
	}
	return out
}

// actionItems surfaces explicit requests and commitments. Items in
// messages that also carry urgency language are raised to high
// priority.
func (e *PatternEngine) actionItems(msgs []capsule.Message) []capsule.ActionItem {
	var out []capsule.ActionItem
	for _, m := range msgs {
		hits := e.catalog.Matches(patterns.CategoryActionRequest, m.Content, 1)
		if len(hits) == 0 {
			hits = e.catalog.Matches(patterns.CategoryCommitment, m.Content, 1)
		}
		if len(hits) == 0 {
			continue
		}
		priority := capsule.UrgencyMedium
		if e.catalog.Contains(patterns.CategoryUrgency, m.Content) ||
			e.analyzer.Urgency(m.Content) == capsule.UrgencyHigh {
			priority = capsule.UrgencyHigh
		}
		out = append(out, capsule.ActionItem{
			MessageID:     m.ID,
			ParticipantID: m.ParticipantID,
			Description:   sentenceAround(m.Content, hits[0]),
			Priority:      priority,
		})
	}
	return out
}

// suggestActions composes the follow-up list: up to three unanswered
// questions, then up to two high-severity tensions, then up to two
// misalignments, capped at five entries overall.
func suggestActions(unanswered []capsule.UnansweredQuestion, tensions []capsule.TensionPoint, misalignments []capsule.Misalignment) []capsule.SuggestedAction {
	out := []capsule.SuggestedAction{}

	for i, q := range unanswered {
		if i == 3 || len(out) == maxSuggestions {
			break
		}
		priority := capsule.UrgencyMedium
		if q.TimesAsked > 1 {
			priority = capsule.UrgencyHigh
		}
		out = append(out, capsule.SuggestedAction{
			Action:    fmt.Sprintf("Answer the open question: %q", q.Question),
			Priority:  priority,
			Reasoning: fmt.Sprintf("Asked %d time(s) without a substantive reply.", q.TimesAsked),
		})
	}

	added := 0
	for _, t := range tensions {
		if t.Severity != capsule.SeverityHigh {
			continue
		}
		if added == 2 || len(out) == maxSuggestions {
			break
		}
		out = append(out, capsule.SuggestedAction{
			Action:    fmt.Sprintf("Defuse the %s signal: %q", t.Type, t.Excerpt),
			Priority:  capsule.UrgencyHigh,
			Reasoning: "High-severity tension left unaddressed tends to escalate.",
		})
		added++
	}

	for i, m := range misalignments {
		if i == 2 || len(out) == maxSuggestions {
			break
		}
		out = append(out, capsule.SuggestedAction{
			Action:    m.Resolution,
			Priority:  capsule.UrgencyMedium,
			Reasoning: fmt.Sprintf("Possible %s: %q", m.Type, m.Description),
		})
	}
	return out
}

func excerpt(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= excerptMaxChars {
		return content
	}
	return content[:excerptMaxChars] + "…"
}

// sentenceAround returns the sentence of content that contains the
// trigger phrase, or an excerpt of the whole message if no single
// sentence does.
func sentenceAround(content, trigger string) string {
	lowTrigger := strings.ToLower(trigger)
	for _, s := range linguistic.SplitSentences(content) {
		if strings.Contains(strings.ToLower(s), lowTrigger) {
			return strings.TrimSpace(s)
		}
	}
	return excerpt(content)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
