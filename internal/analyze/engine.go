// Package analyze produces the seven-dimension conversation analysis:
// unanswered questions, tension points, misalignments, health score,
// decisions, action items, and suggested actions. Two interchangeable
// strategies implement the same contract: a free pattern-based engine
// over the trigger catalog and a paid model-backed engine that fans
// out one prompt per dimension.
package analyze

import (
	"context"
	"sort"

	"github.com/candorlabs/candor/internal/capsule"
)

// Options enables or disables individual analysis dimensions.
// Disabled dimensions come back empty rather than omitted, so the
// Analysis shape is stable for every request.
type Options struct {
	UnansweredQuestions bool
	TensionPoints       bool
	Misalignments       bool
	Health              bool
	Decisions           bool
	ActionItems         bool
	SuggestedActions    bool
}

// AllDimensions returns options with every dimension enabled.
func AllDimensions() Options {
	return Options{
		UnansweredQuestions: true,
		TensionPoints:       true,
		Misalignments:       true,
		Health:              true,
		Decisions:           true,
		ActionItems:         true,
		SuggestedActions:    true,
	}
}

// Engine runs one analysis over a capsule. The result replaces any
// prior analysis; there is no incremental update.
type Engine interface {
	Analyze(ctx context.Context, c *capsule.Capsule, opts Options) (*capsule.Analysis, error)
}

// sortedByTime returns the capsule's messages ordered by timestamp.
// Downstream heuristics that depend on sequence (unanswered-question
// scanning in particular) assume chronological order, which the
// extraction engines only guarantee best-effort.
func sortedByTime(msgs []capsule.Message) []capsule.Message {
	sorted := make([]capsule.Message, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}
