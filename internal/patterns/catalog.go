// Package patterns provides the trigger-word catalog used by the
// pattern-based analysis strategy. Categories of trigger words and
// phrases are loaded from a YAML resource, cached with a TTL, and
// swapped in atomically on reload. A built-in default catalog is used
// when the resource is missing or malformed.
package patterns

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// DefaultTTL is how long a loaded catalog is served before the source
// is consulted again.
const DefaultTTL = 5 * time.Minute

// Category names recognized by the analysis engine.
const (
	CategoryQuestion      = "question_indicators"
	CategoryFrustration   = "frustration"
	CategoryUrgency       = "urgency"
	CategoryRepetition    = "repetition"
	CategoryEscalation    = "escalation"
	CategoryDismissive    = "dismissiveness"
	CategoryNegativeTone  = "negative_tone"
	CategoryActionRequest = "action_request"
	CategoryCommitment    = "commitment"
	CategoryDecision      = "decision"
	CategoryDisagreement  = "disagreement"
	CategoryConfusion     = "confusion"
	CategoryPositivity    = "positivity"
	CategoryAssumption    = "assumption"
)

// Source loads the raw catalog document. Implementations may read a
// file, an HTTP resource, or a database row.
type Source interface {
	Load() ([]byte, error)
}

// FileSource loads the catalog from a file on disk.
type FileSource struct {
	Path string
}

// Load reads the catalog file.
func (f FileSource) Load() ([]byte, error) {
	return os.ReadFile(f.Path)
}

// catalogData is one immutable loaded catalog generation. Readers see
// either the old or the fully-built new data, never a partial load.
type catalogData struct {
	// categories maps category name to lowercased trigger phrases in
	// document order.
	categories map[string][]string
	loadedAt   time.Time
}

// Catalog holds trigger-word categories with TTL-based reload.
type Catalog struct {
	source Source
	ttl    time.Duration
	logger *zap.Logger

	mu   sync.RWMutex
	data *catalogData
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithTTL overrides the reload interval.
func WithTTL(ttl time.Duration) Option {
	return func(c *Catalog) { c.ttl = ttl }
}

// NewCatalog creates a catalog backed by source. A nil source serves
// the built-in defaults forever. The initial load happens eagerly so
// the first request never pays reload latency.
func NewCatalog(source Source, logger *zap.Logger, opts ...Option) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Catalog{
		source: source,
		ttl:    DefaultTTL,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.data = c.load()
	return c
}

// load builds a fresh catalogData from the source, falling back to
// defaults on any failure.
func (c *Catalog) load() *catalogData {
	if c.source == nil {
		return &catalogData{categories: defaultCategories(), loadedAt: time.Now()}
	}

	raw, err := c.source.Load()
	if err != nil {
		c.logger.Warn("pattern catalog load failed, using defaults", zap.Error(err))
		return &catalogData{categories: defaultCategories(), loadedAt: time.Now()}
	}

	categories, err := parseCatalog(raw)
	if err != nil {
		c.logger.Warn("pattern catalog parse failed, using defaults", zap.Error(err))
		return &catalogData{categories: defaultCategories(), loadedAt: time.Now()}
	}

	return &catalogData{categories: categories, loadedAt: time.Now()}
}

// parseCatalog parses the YAML catalog document: each top-level key is
// a category holding a list of trigger phrases.
func parseCatalog(raw []byte) (map[string][]string, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(raw), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	var doc map[string][]string
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling catalog: %w", err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("catalog has no categories")
	}

	categories := make(map[string][]string, len(doc))
	for name, phrases := range doc {
		cleaned := make([]string, 0, len(phrases))
		for _, p := range phrases {
			p = strings.ToLower(strings.TrimSpace(p))
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		categories[name] = cleaned
	}
	return categories, nil
}

// current returns the active generation, reloading first if the TTL
// has elapsed. Only one goroutine reloads; the rest keep serving the
// old generation until the swap.
func (c *Catalog) current() *catalogData {
	c.mu.RLock()
	data := c.data
	c.mu.RUnlock()

	if time.Since(data.loadedAt) < c.ttl {
		return data
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(c.data.loadedAt) < c.ttl {
		return c.data
	}
	c.data = c.load()
	return c.data
}

// Reload forces an immediate reload, bypassing the TTL.
func (c *Catalog) Reload() {
	fresh := c.load()
	c.mu.Lock()
	c.data = fresh
	c.mu.Unlock()
}

// PatternsFor returns the trigger phrases for a category. The slice is
// shared; callers must not mutate it.
func (c *Catalog) PatternsFor(category string) []string {
	return c.current().categories[category]
}

// Contains reports whether any trigger phrase of the category occurs
// in text (case-insensitive, word-boundary-aware).
func (c *Catalog) Contains(category, text string) bool {
	lower := strings.ToLower(text)
	for _, p := range c.current().categories[category] {
		if containsWord(lower, p) {
			return true
		}
	}
	return false
}

// Matches returns the trigger phrases of the category found in text,
// in catalog order. A limit of 0 means unlimited.
func (c *Catalog) Matches(category, text string, limit int) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, p := range c.current().categories[category] {
		if containsWord(lower, p) {
			found = append(found, p)
			if limit > 0 && len(found) >= limit {
				break
			}
		}
	}
	return found
}

// StartsWithQuestionWord reports whether the sentence opens with one
// of the question indicator words.
func (c *Catalog) StartsWithQuestionWord(sentence string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(sentence))
	for _, p := range c.current().categories[CategoryQuestion] {
		if strings.HasPrefix(trimmed, p) {
			// The indicator must be a whole leading word.
			rest := trimmed[len(p):]
			if rest == "" || !isWordChar(rune(rest[0])) {
				return true
			}
		}
	}
	return false
}

// containsWord reports whether phrase occurs in lower at a word
// boundary: the characters immediately before and after the match must
// not be alphanumeric, so "frustrated" does not match inside
// "unfrustrated".
func containsWord(lower, phrase string) bool {
	if phrase == "" {
		return false
	}
	for start := 0; ; {
		idx := strings.Index(lower[start:], phrase)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(phrase)
		beforeOK := idx == 0 || !isWordChar(rune(lower[idx-1]))
		afterOK := end == len(lower) || !isWordChar(rune(lower[end]))
		if beforeOK && afterOK {
			return true
		}
		start = idx + 1
		if start >= len(lower) {
			return false
		}
	}
}

func isWordChar(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}
