// Package linguistic extracts per-message features: the questions a
// message contains, word and sentence counts, categorical sentiment
// and urgency, and a politeness score. A pattern-based analyzer works
// from the trigger catalog; a model-based analyzer issues one prompt
// per message and falls back to patterns when the backend misbehaves.
package linguistic

import (
	"strings"

	"github.com/candorlabs/candor/internal/capsule"
	"github.com/candorlabs/candor/internal/patterns"
)

// highUrgencyWords force Urgency to High regardless of other signals.
var highUrgencyWords = []string{"urgent", "asap", "immediately", "emergency", "critical"}

// politeMarkers raise the politeness score.
var politeMarkers = []string{
	"please", "thank you", "thanks", "would you", "could you",
	"appreciate", "kindly", "when you get a chance", "no rush",
}

// impoliteMarkers lower the politeness score.
var impoliteMarkers = []string{
	"now!", "right now", "do it", "obviously", "just do",
}

// Analyzer computes features from the trigger catalog.
type Analyzer struct {
	catalog *patterns.Catalog
}

// NewAnalyzer creates a pattern-based analyzer.
func NewAnalyzer(catalog *patterns.Catalog) *Analyzer {
	return &Analyzer{catalog: catalog}
}

// Analyze extracts features from one message's content.
func (a *Analyzer) Analyze(content string) *capsule.LinguisticFeatures {
	sentences := SplitSentences(content)

	questions := a.ExtractQuestions(content)

	return &capsule.LinguisticFeatures{
		Questions:        questions,
		ContainsQuestion: len(questions) > 0,
		WordCount:        wordCount(content),
		SentenceCount:    len(sentences),
		Sentiment:        a.Sentiment(content),
		Urgency:          a.Urgency(content),
		Politeness:       a.Politeness(content),
	}
}

// ExtractQuestions returns the question sentences in content: those
// ending with a question mark or opening with a question word.
func (a *Analyzer) ExtractQuestions(content string) []string {
	var questions []string
	for _, s := range SplitSentences(content) {
		if strings.HasSuffix(s, "?") || a.catalog.StartsWithQuestionWord(s) {
			questions = append(questions, s)
		}
	}
	return questions
}

// Sentiment classifies content by comparing positive and negative
// trigger counts.
func (a *Analyzer) Sentiment(content string) capsule.Sentiment {
	positive := len(a.catalog.Matches(patterns.CategoryPositivity, content, 0))
	negative := len(a.catalog.Matches(patterns.CategoryNegativeTone, content, 0))

	switch {
	case positive > negative:
		return capsule.SentimentPositive
	case negative > positive:
		return capsule.SentimentNegative
	default:
		return capsule.SentimentNeutral
	}
}

// Urgency classifies content: High when a high-urgency word appears,
// Medium on any other urgency trigger, else Low.
func (a *Analyzer) Urgency(content string) capsule.Urgency {
	lower := strings.ToLower(content)
	for _, w := range highUrgencyWords {
		if strings.Contains(lower, w) {
			return capsule.UrgencyHigh
		}
	}
	if a.catalog.Contains(patterns.CategoryUrgency, content) {
		return capsule.UrgencyMedium
	}
	return capsule.UrgencyLow
}

// Politeness scores content in [0,1], starting neutral at 0.5.
func (a *Analyzer) Politeness(content string) float64 {
	lower := strings.ToLower(content)
	score := 0.5

	for _, m := range politeMarkers {
		if strings.Contains(lower, m) {
			score += 0.1
		}
	}
	for _, m := range impoliteMarkers {
		if strings.Contains(lower, m) {
			score -= 0.1
		}
	}
	if a.catalog.Contains(patterns.CategoryDismissive, content) {
		score -= 0.2
	}
	if strings.Contains(content, "!!") {
		score -= 0.1
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// SplitSentences splits text into trimmed sentences on terminal
// punctuation, keeping the terminator attached.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(current.String())
			if s != "" && s != "." && s != "!" && s != "?" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// NormalizeQuestion canonicalizes a question for dedup and repeat
// counting: lowercased with punctuation stripped, so "What time?" and
// "what time" normalize identically. Applying it twice is a no-op.
func NormalizeQuestion(q string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(q) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune(' ')
		case r > 127:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
