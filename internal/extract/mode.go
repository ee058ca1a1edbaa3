// Package extract turns raw conversational text into a capsule of
// participants and messages. Two engines exist: a regex engine with
// per-source grammars and a model engine that prompts the backend for
// structured output. The mode selector resolves a requested mode into
// a concrete engine, using a complexity estimate for Auto requests.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/candorlabs/candor/internal/capsule"
)

// Complexity score weights. The score starts at zero and is clamped
// to [0,1]; anything above advancedThreshold resolves Auto to the
// model engine when a backend is available.
const (
	weightMissingHeaders = 0.3
	weightUnclearText    = 0.2
	weightMixedFormat    = 0.3
	weightNonASCII       = 0.2
	weightShortText      = -0.2

	shortTextChars    = 200
	advancedThreshold = 0.6
)

var (
	// emailHeaderRe recognizes an email header block line.
	emailHeaderRe = regexp.MustCompile(`(?m)^(From|To|Cc|Subject|Date):\s`)

	// chatLineRe recognizes a "name [HH:MM]: text" chat line.
	chatLineRe = regexp.MustCompile(`(?m)^[^\s\[][^\[\n]*\[\d{1,2}:\d{2}\]:`)
)

// Selector resolves extraction mode requests.
type Selector struct {
	backendAvailable bool
}

// NewSelector creates a selector. backendAvailable reports whether a
// model backend is configured; Advanced cannot be honored without one.
func NewSelector(backendAvailable bool) *Selector {
	return &Selector{backendAvailable: backendAvailable}
}

// Complexity computes the complexity score for raw text of the given
// source type. The result is in [0,1] and is a pure function of its
// inputs: identical text and source type always score identically.
func Complexity(text string, source capsule.SourceType) float64 {
	score := 0.0

	hasEmailHeaders := emailHeaderRe.MatchString(text)
	hasChatLines := chatLineRe.MatchString(text)

	if source == capsule.SourceEmail && !hasEmailHeaders {
		score += weightMissingHeaders
	}
	if strings.Contains(text, "...") || strings.Contains(text, "…") || strings.Contains(text, "[unclear]") {
		score += weightUnclearText
	}
	if hasEmailHeaders && hasChatLines {
		score += weightMixedFormat
	}
	if hasNonASCII(text) {
		score += weightNonASCII
	}
	if len(text) < shortTextChars {
		score += weightShortText
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Resolve turns a requested mode into the concrete mode to run.
// Explicit Basic and Advanced requests are honored directly, except
// that Advanced without a configured backend is a configuration
// error. Auto resolves from the complexity score.
func (s *Selector) Resolve(text string, source capsule.SourceType, requested capsule.Mode) (capsule.Mode, error) {
	switch requested {
	case capsule.ModeBasic:
		return capsule.ModeBasic, nil
	case capsule.ModeAdvanced:
		if !s.backendAvailable {
			return "", fmt.Errorf("advanced mode requested but no model backend configured")
		}
		return capsule.ModeAdvanced, nil
	case capsule.ModeAuto, "":
		if Complexity(text, source) > advancedThreshold && s.backendAvailable {
			return capsule.ModeAdvanced, nil
		}
		return capsule.ModeBasic, nil
	default:
		return "", fmt.Errorf("unknown mode %q", requested)
	}
}

func hasNonASCII(text string) bool {
	for _, r := range text {
		if r > 127 {
			return true
		}
	}
	return false
}
