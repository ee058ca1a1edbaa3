// Package service orchestrates the conversation pipeline: extraction
// of structure from raw text, linguistic annotation, multi-dimension
// analysis, and transformation into storable insights.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/candorlabs/candor/internal/analyze"
	"github.com/candorlabs/candor/internal/capsule"
	"github.com/candorlabs/candor/internal/extract"
	"github.com/candorlabs/candor/internal/insight"
	"github.com/candorlabs/candor/internal/linguistic"
	"github.com/candorlabs/candor/internal/llm"
	"github.com/candorlabs/candor/internal/metrics"
	"github.com/candorlabs/candor/internal/patterns"
	"github.com/candorlabs/candor/internal/taxonomy"
)

// ErrEmptyInput is returned when a request carries no conversation
// text.
var ErrEmptyInput = errors.New("conversation text is empty")

// ErrInvalidMode is returned when a requested mode is unknown or
// cannot be served, such as an explicit advanced request without a
// configured backend.
var ErrInvalidMode = errors.New("invalid mode")

// Capsule metadata keys recorded by the pipeline.
const (
	MetaExtractionMode   = "extraction_mode"
	MetaAnalysisStrategy = "analysis_strategy"
)

// Service runs the conversation pipeline. All collaborators are
// injected; the model backend may be a NoOpClient, in which case
// every request runs on the pattern path.
type Service struct {
	selector     *extract.Selector
	regexEngine  *extract.RegexEngine
	modelExtract *extract.ModelEngine

	patternAnalyzer *linguistic.Analyzer
	modelAnalyzer   *linguistic.ModelAnalyzer

	patternEngine *analyze.PatternEngine
	modelEngine   *analyze.ModelEngine

	merger  *taxonomy.Merger
	store   insight.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewService wires the pipeline. store may be nil, in which case
// Process skips persistence and returns the insight to the caller
// only.
func NewService(client llm.Client, catalog *patterns.Catalog, repo taxonomy.Repository, store insight.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	patternAnalyzer := linguistic.NewAnalyzer(catalog)
	return &Service{
		selector:        extract.NewSelector(client.Available()),
		regexEngine:     extract.NewRegexEngine(logger),
		modelExtract:    extract.NewModelEngine(client, logger),
		patternAnalyzer: patternAnalyzer,
		modelAnalyzer:   linguistic.NewModelAnalyzer(client, patternAnalyzer, logger),
		patternEngine:   analyze.NewPatternEngine(catalog, logger),
		modelEngine:     analyze.NewModelEngine(client, logger),
		merger:          taxonomy.NewMerger(repo, logger),
		store:           store,
		metrics:         metrics.NewMetrics(),
		logger:          logger,
	}
}

// ParseRequest asks for raw text to be structured into a capsule.
type ParseRequest struct {
	Text   string
	Source capsule.SourceType
	Mode   capsule.Mode
}

// Parse structures raw conversation text into a capsule with
// participants, messages, and per-message linguistic features. An
// explicitly requested advanced mode fails hard when the backend
// cannot serve it; auto-resolved advanced extraction falls back to
// the pattern path instead.
func (s *Service) Parse(ctx context.Context, req ParseRequest) (*capsule.Capsule, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyInput
	}
	source := req.Source
	if source == "" {
		source = capsule.SourceGeneric
	}

	mode, err := s.selector.Resolve(req.Text, source, req.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMode, err)
	}

	c := capsule.New(req.Text, source)
	if mode == capsule.ModeAdvanced {
		if err := s.modelExtract.Extract(ctx, c); err != nil {
			s.metrics.RecordExtractionError(string(mode))
			if req.Mode == capsule.ModeAdvanced {
				return nil, fmt.Errorf("model extraction: %w", err)
			}
			s.logger.Warn("model extraction failed, falling back to pattern extraction",
				zap.String("capsule_id", c.ID), zap.Error(err))
			s.metrics.RecordModeFallback()
			mode = capsule.ModeBasic
		} else if len(c.Messages) == 0 && req.Mode != capsule.ModeAdvanced {
			// Unusable model output degrades the same way a
			// transport failure does.
			s.metrics.RecordModeFallback()
			mode = capsule.ModeBasic
		}
	}
	if mode == capsule.ModeBasic {
		s.regexEngine.Extract(c)
	}
	c.Metadata[MetaExtractionMode] = string(mode)

	s.annotate(ctx, c, mode)
	s.metrics.RecordExtraction(string(mode), len(c.Messages))
	return c, nil
}

// annotate attaches linguistic features to every message. Advanced
// mode uses the model analyzer, which itself degrades to the pattern
// analyzer per message.
func (s *Service) annotate(ctx context.Context, c *capsule.Capsule, mode capsule.Mode) {
	for i := range c.Messages {
		m := &c.Messages[i]
		if mode == capsule.ModeAdvanced {
			m.Features = s.modelAnalyzer.Analyze(ctx, m.Content)
		} else {
			m.Features = s.patternAnalyzer.Analyze(m.Content)
		}
		m.Sentiment = m.Features.Sentiment
	}
}

// Analyze runs the analysis dimensions over an extracted capsule and
// attaches the result. The strategy resolves from the requested mode
// the same way extraction does, with the same degrade policy.
func (s *Service) Analyze(ctx context.Context, c *capsule.Capsule, mode capsule.Mode, opts analyze.Options) (*capsule.Analysis, error) {
	resolved, err := s.selector.Resolve(c.RawText, c.SourceType, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMode, err)
	}

	start := time.Now()
	var a *capsule.Analysis
	if resolved == capsule.ModeAdvanced {
		a, err = s.modelEngine.Analyze(ctx, c, opts)
		if err != nil {
			if mode == capsule.ModeAdvanced {
				return nil, fmt.Errorf("model analysis: %w", err)
			}
			s.logger.Warn("model analysis failed, falling back to pattern analysis",
				zap.String("capsule_id", c.ID), zap.Error(err))
			resolved = capsule.ModeBasic
		}
	}
	if resolved == capsule.ModeBasic {
		a, err = s.patternEngine.Analyze(ctx, c, opts)
		if err != nil {
			return nil, err
		}
	}

	c.Analysis = a
	if c.Metadata == nil {
		c.Metadata = make(map[string]string)
	}
	c.Metadata[MetaAnalysisStrategy] = string(resolved)

	s.metrics.RecordAnalysis(string(resolved), time.Since(start).Seconds())
	s.metrics.RecordFindings("unanswered_questions", len(a.UnansweredQuestions))
	s.metrics.RecordFindings("tension_points", len(a.TensionPoints))
	s.metrics.RecordFindings("misalignments", len(a.Misalignments))
	s.metrics.RecordFindings("decisions", len(a.Decisions))
	s.metrics.RecordFindings("action_items", len(a.ActionItems))
	return a, nil
}

// ProcessRequest runs the full pipeline for one conversation.
type ProcessRequest struct {
	Text     string
	Source   capsule.SourceType
	Mode     capsule.Mode
	OrgID    string
	UserID   string
	Industry string
	Options  *analyze.Options
}

// Result is the full-pipeline output: the analyzed capsule stays
// with the caller, the anonymized insight is what got persisted.
type Result struct {
	Capsule *capsule.Capsule
	Insight *insight.StorableInsight
}

// Process extracts, analyzes, and transforms one conversation, then
// persists the resulting insight when a store is configured.
func (s *Service) Process(ctx context.Context, req ProcessRequest) (*Result, error) {
	c, err := s.Parse(ctx, ParseRequest{Text: req.Text, Source: req.Source, Mode: req.Mode})
	if err != nil {
		return nil, err
	}

	opts := analyze.AllDimensions()
	if req.Options != nil {
		opts = *req.Options
	}
	if _, err := s.Analyze(ctx, c, req.Mode, opts); err != nil {
		return nil, err
	}

	tax := s.merger.Effective(ctx, req.OrgID, req.Industry)
	in := insight.NewTransformer(tax, s.logger).Transform(c, req.OrgID, req.UserID)

	if s.store != nil {
		if err := s.store.SaveInsight(ctx, in); err != nil {
			s.metrics.RecordInsightStoreError()
			return nil, fmt.Errorf("save insight: %w", err)
		}
		s.metrics.RecordInsightStored()
	}

	return &Result{Capsule: c, Insight: in}, nil
}
