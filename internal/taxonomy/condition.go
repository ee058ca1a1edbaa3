package taxonomy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FindingFacts are the inputs a severity condition can reference.
type FindingFacts struct {
	Topic          string
	DaysUnanswered int
	TimesAsked     int
}

// Condition is a parsed severity-rule condition. The external JSON
// syntax is parsed once at the boundary into one of a closed set of
// typed predicates.
type Condition interface {
	Eval(f FindingFacts) bool
}

// AlwaysTrue matches every finding; it is the parse of an empty
// condition string.
type AlwaysTrue struct{}

func (AlwaysTrue) Eval(FindingFacts) bool { return true }

// TopicEquals matches findings classified under a specific topic.
type TopicEquals struct{ Topic string }

func (c TopicEquals) Eval(f FindingFacts) bool { return f.Topic == c.Topic }

// DaysGreaterThan matches questions unanswered for more than N days.
type DaysGreaterThan struct{ N int }

func (c DaysGreaterThan) Eval(f FindingFacts) bool { return f.DaysUnanswered > c.N }

// TimesGreaterThan matches questions asked more than N times.
type TimesGreaterThan struct{ N int }

func (c TimesGreaterThan) Eval(f FindingFacts) bool { return f.TimesAsked > c.N }

var (
	topicCondRe = regexp.MustCompile(`^topic\s*==\s*'([^']*)'$`)
	daysCondRe  = regexp.MustCompile(`^daysUnanswered\s*>\s*(\d+)$`)
	timesCondRe = regexp.MustCompile(`^timesAsked\s*>\s*(\d+)$`)
)

// ParseCondition parses the external condition syntax into a typed
// predicate. Unrecognized expressions are an error so misconfigured
// rules are surfaced rather than silently matching everything.
func ParseCondition(expr string) (Condition, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return AlwaysTrue{}, nil
	}
	if m := topicCondRe.FindStringSubmatch(expr); m != nil {
		return TopicEquals{Topic: m[1]}, nil
	}
	if m := daysCondRe.FindStringSubmatch(expr); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("invalid threshold in %q: %w", expr, err)
		}
		return DaysGreaterThan{N: n}, nil
	}
	if m := timesCondRe.FindStringSubmatch(expr); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("invalid threshold in %q: %w", expr, err)
		}
		return TimesGreaterThan{N: n}, nil
	}
	return nil, fmt.Errorf("unsupported condition expression: %q", expr)
}
