package linguistic

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/candorlabs/candor/internal/capsule"
	"github.com/candorlabs/candor/internal/llm"
)

// featuresPrompt requests the feature shape for one message.
const featuresPrompt = `Analyze this single message from a conversation.

Return JSON with this exact shape:
{
  "questions": ["each question asked in the message"],
  "sentiment": "positive" | "negative" | "neutral",
  "urgency": "high" | "medium" | "low",
  "politeness": 0.0
}

politeness is a score from 0 (rude) to 1 (very polite).

Message:
%s`

// ModelAnalyzer computes features by prompting the model backend,
// one call per message. Backend failures and unparseable responses
// degrade to the pattern-based analyzer.
type ModelAnalyzer struct {
	client   llm.Client
	fallback *Analyzer
	logger   *zap.Logger
}

// NewModelAnalyzer creates a model-based analyzer with a pattern
// fallback.
func NewModelAnalyzer(client llm.Client, fallback *Analyzer, logger *zap.Logger) *ModelAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelAnalyzer{client: client, fallback: fallback, logger: logger}
}

type modelFeatures struct {
	Questions  []string `json:"questions"`
	Sentiment  string   `json:"sentiment"`
	Urgency    string   `json:"urgency"`
	Politeness float64  `json:"politeness"`
}

// Analyze extracts features for one message's content.
func (m *ModelAnalyzer) Analyze(ctx context.Context, content string) *capsule.LinguisticFeatures {
	raw, err := m.client.CompleteStructured(ctx, fmt.Sprintf(featuresPrompt, content))
	if err != nil {
		m.logger.Warn("model feature extraction failed, using pattern analyzer", zap.Error(err))
		return m.fallback.Analyze(content)
	}

	var parsed modelFeatures
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &parsed); err != nil {
		m.logger.Warn("model feature response did not parse, using pattern analyzer", zap.Error(err))
		return m.fallback.Analyze(content)
	}

	politeness := parsed.Politeness
	if politeness < 0 {
		politeness = 0
	}
	if politeness > 1 {
		politeness = 1
	}

	sentences := SplitSentences(content)
	return &capsule.LinguisticFeatures{
		Questions:        parsed.Questions,
		ContainsQuestion: len(parsed.Questions) > 0,
		WordCount:        wordCount(content),
		SentenceCount:    len(sentences),
		Sentiment:        parseSentiment(parsed.Sentiment),
		Urgency:          parseUrgency(parsed.Urgency),
		Politeness:       politeness,
	}
}

func parseSentiment(s string) capsule.Sentiment {
	switch s {
	case "positive":
		return capsule.SentimentPositive
	case "negative":
		return capsule.SentimentNegative
	default:
		return capsule.SentimentNeutral
	}
}

func parseUrgency(s string) capsule.Urgency {
	switch s {
	case "high":
		return capsule.UrgencyHigh
	case "medium":
		return capsule.UrgencyMedium
	default:
		return capsule.UrgencyLow
	}
}
