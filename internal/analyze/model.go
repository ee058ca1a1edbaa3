package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/candorlabs/candor/internal/capsule"
	"github.com/candorlabs/candor/internal/llm"
)

// dimensionTimeout bounds each per-dimension model call.
const dimensionTimeout = 60 * time.Second

// ModelEngine is the paid analysis strategy. Each enabled dimension
// becomes one structured prompt; all prompts run concurrently and
// every dimension degrades independently to an empty result when its
// call or parse fails.
type ModelEngine struct {
	client llm.Client
	logger *zap.Logger
}

var _ Engine = (*ModelEngine)(nil)

func NewModelEngine(client llm.Client, logger *zap.Logger) *ModelEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelEngine{client: client, logger: logger}
}

// Analyze fans out one model call per enabled dimension and joins
// them all. Per-dimension failures are logged and produce empty
// results; Analyze itself only fails when the backend is entirely
// unavailable or the context ends.
func (e *ModelEngine) Analyze(ctx context.Context, c *capsule.Capsule, opts Options) (*capsule.Analysis, error) {
	if !e.client.Available() {
		return nil, llm.ErrNotConfigured
	}

	transcript := renderTranscript(c)
	a := capsule.Empty()

	g, gctx := errgroup.WithContext(ctx)
	if opts.UnansweredQuestions {
		g.Go(func() error {
			a.UnansweredQuestions = modelDimension(gctx, e, "unanswered questions", unansweredPrompt(transcript), parseUnanswered(c))
			return nil
		})
	}
	if opts.TensionPoints {
		g.Go(func() error {
			a.TensionPoints = modelDimension(gctx, e, "tension points", tensionPrompt(transcript), parseTensions)
			return nil
		})
	}
	if opts.Misalignments {
		g.Go(func() error {
			a.Misalignments = modelDimension(gctx, e, "misalignments", misalignmentPrompt(transcript), parseMisalignments)
			return nil
		})
	}
	if opts.Decisions {
		g.Go(func() error {
			a.Decisions = modelDimension(gctx, e, "decisions", decisionPrompt(transcript), parseDecisions)
			return nil
		})
	}
	if opts.ActionItems {
		g.Go(func() error {
			a.ActionItems = modelDimension(gctx, e, "action items", actionItemPrompt(transcript), parseActionItems)
			return nil
		})
	}
	if opts.Health {
		g.Go(func() error {
			h, err := e.healthDimension(gctx, transcript)
			if err != nil {
				e.logger.Warn("model health analysis degraded", zap.Error(err))
				return nil
			}
			a.Health = h
			return nil
		})
	}
	// Dimension goroutines never return errors, so Wait only fails
	// on context cancellation propagated through gctx.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.SuggestedActions {
		a.SuggestedActions = suggestActions(a.UnansweredQuestions, a.TensionPoints, a.Misalignments)
	}
	return a, nil
}

// modelDimension runs one prompt with the per-dimension timeout and
// parses the JSON reply. Any failure degrades to an empty slice.
func modelDimension[T any](ctx context.Context, e *ModelEngine, name, prompt string, parse func([]byte) ([]T, error)) []T {
	callCtx, cancel := context.WithTimeout(ctx, dimensionTimeout)
	defer cancel()

	raw, err := e.client.CompleteStructured(callCtx, prompt)
	if err != nil {
		e.logger.Warn("model analysis degraded", zap.String("dimension", name), zap.Error(err))
		return []T{}
	}
	out, err := parse([]byte(llm.StripFences(raw)))
	if err != nil {
		e.logger.Warn("unparseable model analysis", zap.String("dimension", name), zap.Error(err))
		return []T{}
	}
	if out == nil {
		out = []T{}
	}
	return out
}

func (e *ModelEngine) healthDimension(ctx context.Context, transcript string) (*capsule.ConversationHealth, error) {
	callCtx, cancel := context.WithTimeout(ctx, dimensionTimeout)
	defer cancel()

	raw, err := e.client.CompleteStructured(callCtx, healthPrompt(transcript))
	if err != nil {
		return nil, err
	}
	var h struct {
		Score           float64  `json:"score"`
		Responsiveness  float64  `json:"responsiveness"`
		Clarity         float64  `json:"clarity"`
		Alignment       float64  `json:"alignment"`
		RiskLevel       string   `json:"risk_level"`
		Issues          []string `json:"issues"`
		Strengths       []string `json:"strengths"`
		Recommendations []string `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &h); err != nil {
		return nil, err
	}
	return &capsule.ConversationHealth{
		Score:           clamp01(h.Score),
		Responsiveness:  clamp01(h.Responsiveness),
		Clarity:         clamp01(h.Clarity),
		Alignment:       clamp01(h.Alignment),
		RiskLevel:       parseRisk(h.RiskLevel),
		Issues:          h.Issues,
		Strengths:       h.Strengths,
		Recommendations: h.Recommendations,
	}, nil
}

// renderTranscript flattens a capsule into the numbered form the
// prompts reference message IDs against.
func renderTranscript(c *capsule.Capsule) string {
	var b strings.Builder
	for _, m := range c.Messages {
		name := "unknown"
		if p := c.ParticipantByID(m.ParticipantID); p != nil {
			name = p.Name
		}
		fmt.Fprintf(&b, "[%d] %s (participant %d): %s\n", m.ID, name, m.ParticipantID, m.Content)
	}
	return b.String()
}

const promptPreamble = "You are analyzing a workplace conversation. " +
	"Messages are numbered [id] and attributed to participants.\n\nConversation:\n"

func unansweredPrompt(transcript string) string {
	return promptPreamble + transcript + `
List every question that never received a substantive answer from another participant. Respond with a JSON array of objects:
[{"question": "...", "asked_by": <participant id>, "message_id": <id>, "times_asked": <count>}]`
}

func tensionPrompt(transcript string) string {
	return promptPreamble + transcript + `
List moments of friction: frustration, urgency, repetition, escalation, dismissiveness, negative_tone. Respond with a JSON array:
[{"type": "frustration", "message_id": <id>, "participant_id": <id>, "excerpt": "...", "severity": "low|medium|high"}]`
}

func misalignmentPrompt(transcript string) string {
	return promptPreamble + transcript + `
List points where participants misunderstand or disagree with each other: disagreement, confusion, assumption. Respond with a JSON array:
[{"type": "confusion", "message_id": <id>, "participant_id": <id>, "description": "...", "severity": "low|medium|high", "resolution": "..."}]`
}

func decisionPrompt(transcript string) string {
	return promptPreamble + transcript + `
List decisions that were made in the conversation. Respond with a JSON array:
[{"message_id": <id>, "participant_id": <id>, "description": "..."}]`
}

func actionItemPrompt(transcript string) string {
	return promptPreamble + transcript + `
List requested or committed actions. Respond with a JSON array:
[{"message_id": <id>, "participant_id": <id>, "description": "...", "priority": "low|medium|high"}]`
}

func healthPrompt(transcript string) string {
	return promptPreamble + transcript + `
Score the health of this conversation. All scores are between 0 and 1. Respond with a JSON object:
{"score": 0.0, "responsiveness": 0.0, "clarity": 0.0, "alignment": 0.0, "risk_level": "low|medium|high", "issues": [], "strengths": [], "recommendations": []}`
}

func parseUnanswered(c *capsule.Capsule) func([]byte) ([]capsule.UnansweredQuestion, error) {
	return func(data []byte) ([]capsule.UnansweredQuestion, error) {
		var raw []struct {
			Question   string `json:"question"`
			AskedBy    int    `json:"asked_by"`
			MessageID  int    `json:"message_id"`
			TimesAsked int    `json:"times_asked"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		out := make([]capsule.UnansweredQuestion, 0, len(raw))
		for _, r := range raw {
			times := r.TimesAsked
			if times < 1 {
				times = 1
			}
			askedAt := c.CreatedAt
			for _, m := range c.Messages {
				if m.ID == r.MessageID {
					askedAt = m.Timestamp
					break
				}
			}
			out = append(out, capsule.UnansweredQuestion{
				Question:   r.Question,
				AskedBy:    r.AskedBy,
				MessageID:  r.MessageID,
				AskedAt:    askedAt,
				TimesAsked: times,
			})
		}
		return out, nil
	}
}

func parseTensions(data []byte) ([]capsule.TensionPoint, error) {
	var raw []struct {
		Type          string `json:"type"`
		MessageID     int    `json:"message_id"`
		ParticipantID int    `json:"participant_id"`
		Excerpt       string `json:"excerpt"`
		Severity      string `json:"severity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]capsule.TensionPoint, 0, len(raw))
	for _, r := range raw {
		out = append(out, capsule.TensionPoint{
			Type:          capsule.TensionType(r.Type),
			MessageID:     r.MessageID,
			ParticipantID: r.ParticipantID,
			Excerpt:       r.Excerpt,
			Severity:      parseSeverity(r.Severity),
		})
	}
	return out, nil
}

func parseMisalignments(data []byte) ([]capsule.Misalignment, error) {
	var raw []struct {
		Type          string `json:"type"`
		MessageID     int    `json:"message_id"`
		ParticipantID int    `json:"participant_id"`
		Description   string `json:"description"`
		Severity      string `json:"severity"`
		Resolution    string `json:"resolution"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]capsule.Misalignment, 0, len(raw))
	for _, r := range raw {
		out = append(out, capsule.Misalignment{
			Type:          capsule.MisalignmentType(r.Type),
			MessageID:     r.MessageID,
			ParticipantID: r.ParticipantID,
			Description:   r.Description,
			Severity:      parseSeverity(r.Severity),
			Resolution:    r.Resolution,
		})
	}
	return out, nil
}

func parseDecisions(data []byte) ([]capsule.DecisionPoint, error) {
	var raw []struct {
		MessageID     int    `json:"message_id"`
		ParticipantID int    `json:"participant_id"`
		Description   string `json:"description"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]capsule.DecisionPoint, 0, len(raw))
	for _, r := range raw {
		out = append(out, capsule.DecisionPoint{
			MessageID:     r.MessageID,
			ParticipantID: r.ParticipantID,
			Description:   r.Description,
		})
	}
	return out, nil
}

func parseActionItems(data []byte) ([]capsule.ActionItem, error) {
	var raw []struct {
		MessageID     int    `json:"message_id"`
		ParticipantID int    `json:"participant_id"`
		Description   string `json:"description"`
		Priority      string `json:"priority"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]capsule.ActionItem, 0, len(raw))
	for _, r := range raw {
		priority := capsule.UrgencyMedium
		switch strings.ToLower(r.Priority) {
		case "high":
			priority = capsule.UrgencyHigh
		case "low":
			priority = capsule.UrgencyLow
		}
		out = append(out, capsule.ActionItem{
			MessageID:     r.MessageID,
			ParticipantID: r.ParticipantID,
			Description:   r.Description,
			Priority:      priority,
		})
	}
	return out, nil
}

func parseSeverity(s string) capsule.Severity {
	switch strings.ToLower(s) {
	case "high":
		return capsule.SeverityHigh
	case "low":
		return capsule.SeverityLow
	default:
		return capsule.SeverityMedium
	}
}

func parseRisk(s string) capsule.Risk {
	switch strings.ToLower(s) {
	case "high":
		return capsule.RiskHigh
	case "low":
		return capsule.RiskLow
	default:
		return capsule.RiskMedium
	}
}
