package taxonomy

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Merger resolves the effective taxonomy for an organization.
type Merger struct {
	repo   Repository
	logger *zap.Logger
}

// NewMerger creates a merger backed by repo. A nil repo always yields
// the generic system default.
func NewMerger(repo Repository, logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Merger{repo: repo, logger: logger}
}

// Effective returns the layered taxonomy for an organization: system
// default, overlaid by the industry template (when the industry is
// recognized), overlaid by the organization override (when present).
// Lookup failures degrade to the next-less-specific layer with a
// warning; the result is never nil.
func (m *Merger) Effective(ctx context.Context, orgID, industry string) *Data {
	effective := SystemDefault()

	if m.repo == nil {
		return effective
	}

	tmpl, err := m.repo.IndustryTemplate(ctx, industry)
	if err != nil {
		m.logger.Warn("industry template lookup failed, using system default",
			zap.String("industry", industry), zap.Error(err))
	} else if tmpl != nil {
		effective = Merge(effective, tmpl)
	}

	override, err := m.repo.OrganizationOverride(ctx, orgID)
	if err != nil {
		m.logger.Warn("organization taxonomy lookup failed, using template",
			zap.String("org_id", orgID), zap.Error(err))
	} else if override != nil {
		effective = Merge(effective, override)
	}

	return effective
}

// Merge overlays override onto base and returns a new Data. Topics and
// roles merge by key with override entries replacing same-key base
// entries; override severity rules are prepended so they evaluate
// before base rules; category values merge per category key.
func Merge(base, override *Data) *Data {
	if override == nil {
		return base
	}
	if base == nil {
		return override
	}

	merged := &Data{
		Categories:    mergeCategories(base.Categories, override.Categories),
		Topics:        mergeByKey(base.Topics, override.Topics, func(t Topic) string { return t.Key }),
		Roles:         mergeByKey(base.Roles, override.Roles, func(r Role) string { return r.Key }),
		SeverityRules: append(append([]SeverityRule{}, override.SeverityRules...), base.SeverityRules...),
	}
	return merged
}

// mergeByKey replaces same-key base entries with override entries and
// appends new override entries, preserving base order.
func mergeByKey[T any](base, override []T, key func(T) string) []T {
	overrideIdx := make(map[string]int, len(override))
	for i, item := range override {
		overrideIdx[key(item)] = i
	}

	merged := make([]T, 0, len(base)+len(override))
	seen := make(map[string]bool, len(base))
	for _, item := range base {
		k := key(item)
		seen[k] = true
		if i, ok := overrideIdx[k]; ok {
			merged = append(merged, override[i])
		} else {
			merged = append(merged, item)
		}
	}
	for _, item := range override {
		if !seen[key(item)] {
			merged = append(merged, item)
		}
	}
	return merged
}

// mergeCategories merges categories by key; within a shared category,
// values merge by value key with override values winning.
func mergeCategories(base, override []Category) []Category {
	overrideIdx := make(map[string]int, len(override))
	for i, c := range override {
		overrideIdx[c.Key] = i
	}

	merged := make([]Category, 0, len(base)+len(override))
	seen := make(map[string]bool, len(base))
	for _, c := range base {
		seen[c.Key] = true
		if i, ok := overrideIdx[c.Key]; ok {
			o := override[i]
			display := o.DisplayName
			if display == "" {
				display = c.DisplayName
			}
			merged = append(merged, Category{
				Key:         c.Key,
				DisplayName: display,
				Values:      mergeByKey(c.Values, o.Values, func(v Value) string { return v.Key }),
			})
		} else {
			merged = append(merged, c)
		}
	}
	for _, c := range override {
		if !seen[c.Key] {
			merged = append(merged, c)
		}
	}
	return merged
}

// validateKeys is a debug helper asserting key uniqueness after merge.
func validateKeys(d *Data) error {
	seen := make(map[string]bool)
	for _, t := range d.Topics {
		if seen["t:"+t.Key] {
			return fmt.Errorf("duplicate topic key %q", t.Key)
		}
		seen["t:"+t.Key] = true
	}
	for _, r := range d.Roles {
		if seen["r:"+r.Key] {
			return fmt.Errorf("duplicate role key %q", r.Key)
		}
		seen["r:"+r.Key] = true
	}
	return nil
}
