package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/candorlabs/candor/internal/analyze"
	"github.com/candorlabs/candor/internal/capsule"
	"github.com/candorlabs/candor/internal/insight"
	"github.com/candorlabs/candor/internal/llm"
	"github.com/candorlabs/candor/internal/patterns"
	"github.com/candorlabs/candor/internal/taxonomy"
)

// failingClient reports itself available but errors on every call,
// simulating a configured backend that is down.
type failingClient struct{}

func (failingClient) Complete(context.Context, string) (string, error) {
	return "", errors.New("backend down")
}

func (failingClient) CompleteStructured(context.Context, string) (string, error) {
	return "", errors.New("backend down")
}

func (failingClient) Available() bool { return true }

type mockStore struct{ mock.Mock }

func (m *mockStore) SaveInsight(ctx context.Context, in *insight.StorableInsight) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

const chatFixture = `ana [09:00]: The invoice from last month still looks wrong.
ben [09:05]: Let me pull it up and check the line items.
ana [09:10]: When can I expect the corrected version?
ben [09:12]: I'll send the corrected invoice by tomorrow.`

// complexFixture scores above the auto-escalation threshold: an email
// source without headers, trailing ellipses, and non-ASCII text.
var complexFixture = strings.Repeat("fragmented reply from café thread... ", 8)

func newTestService(client llm.Client, store insight.Store) *Service {
	catalog := patterns.NewCatalog(nil, zap.NewNop())
	return NewService(client, catalog, taxonomy.NewStaticRepository(), store, zap.NewNop())
}

func TestParse_EmptyInput(t *testing.T) {
	s := newTestService(&llm.NoOpClient{}, nil)

	_, err := s.Parse(context.Background(), ParseRequest{Text: "   \n\t "})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestParse_BasicChat(t *testing.T) {
	s := newTestService(&llm.NoOpClient{}, nil)

	c, err := s.Parse(context.Background(), ParseRequest{
		Text:   chatFixture,
		Source: capsule.SourceChat,
	})
	require.NoError(t, err)

	assert.Equal(t, "basic", c.Metadata[MetaExtractionMode])
	require.Len(t, c.Messages, 4)
	assert.Len(t, c.Participants, 2)
	for _, m := range c.Messages {
		require.NotNil(t, m.Features, "every message gets linguistic features")
		assert.Equal(t, m.Features.Sentiment, m.Sentiment)
	}
	assert.True(t, c.Messages[2].Features.ContainsQuestion)
}

func TestParse_ExplicitAdvancedWithoutBackend(t *testing.T) {
	s := newTestService(&llm.NoOpClient{}, nil)

	_, err := s.Parse(context.Background(), ParseRequest{
		Text: chatFixture,
		Mode: capsule.ModeAdvanced,
	})
	require.Error(t, err)
}

func TestParse_ExplicitAdvancedBackendFailure(t *testing.T) {
	s := newTestService(failingClient{}, nil)

	_, err := s.Parse(context.Background(), ParseRequest{
		Text: chatFixture,
		Mode: capsule.ModeAdvanced,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model extraction")
}

func TestParse_AutoFallsBackWhenBackendFails(t *testing.T) {
	s := newTestService(failingClient{}, nil)

	text := complexFixture +
		"\nAna: Still waiting on the corrected invoice." +
		"\nBen: I will send it over tomorrow."
	c, err := s.Parse(context.Background(), ParseRequest{
		Text:   text,
		Source: capsule.SourceEmail,
		Mode:   capsule.ModeAuto,
	})
	require.NoError(t, err)
	assert.Equal(t, "basic", c.Metadata[MetaExtractionMode])
	assert.NotEmpty(t, c.Messages, "pattern extraction still produced messages")
}

func TestAnalyze_AttachesAnalysis(t *testing.T) {
	s := newTestService(&llm.NoOpClient{}, nil)

	c, err := s.Parse(context.Background(), ParseRequest{Text: chatFixture, Source: capsule.SourceChat})
	require.NoError(t, err)

	a, err := s.Analyze(context.Background(), c, capsule.ModeBasic, analyze.AllDimensions())
	require.NoError(t, err)

	assert.Same(t, a, c.Analysis)
	assert.Equal(t, "basic", c.Metadata[MetaAnalysisStrategy])
	require.NotNil(t, a.Health)
}

func TestProcess_EndToEnd(t *testing.T) {
	store := &mockStore{}
	store.On("SaveInsight", mock.Anything, mock.MatchedBy(func(in *insight.StorableInsight) bool {
		return in.OrgID == "org-1" && in.MessageCount == 4
	})).Return(nil).Once()

	s := newTestService(&llm.NoOpClient{}, store)

	res, err := s.Process(context.Background(), ProcessRequest{
		Text:     chatFixture,
		Source:   capsule.SourceChat,
		OrgID:    "org-1",
		UserID:   "user-9",
		Industry: "saas",
	})
	require.NoError(t, err)

	require.NotNil(t, res.Capsule.Analysis)
	assert.Equal(t, "org-1", res.Insight.OrgID)
	assert.Equal(t, "user-9", res.Insight.UserID)
	assert.Equal(t, 4, res.Insight.MessageCount)
	store.AssertExpectations(t)
}

func TestProcess_StoreFailureSurfaces(t *testing.T) {
	store := &mockStore{}
	store.On("SaveInsight", mock.Anything, mock.Anything).Return(errors.New("db down"))

	s := newTestService(&llm.NoOpClient{}, store)

	_, err := s.Process(context.Background(), ProcessRequest{
		Text:   chatFixture,
		Source: capsule.SourceChat,
		OrgID:  "org-1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save insight")
}

func TestProcess_NilStoreSkipsPersistence(t *testing.T) {
	s := newTestService(&llm.NoOpClient{}, nil)

	res, err := s.Process(context.Background(), ProcessRequest{
		Text:   chatFixture,
		Source: capsule.SourceChat,
		OrgID:  "org-1",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Insight)
}

func TestProcess_DisabledDimensions(t *testing.T) {
	s := newTestService(&llm.NoOpClient{}, nil)

	opts := analyze.Options{Health: true}
	res, err := s.Process(context.Background(), ProcessRequest{
		Text:    chatFixture,
		Source:  capsule.SourceChat,
		OrgID:   "org-1",
		Options: &opts,
	})
	require.NoError(t, err)

	a := res.Capsule.Analysis
	require.NotNil(t, a)
	assert.Empty(t, a.UnansweredQuestions)
	assert.NotNil(t, a.Health)
}
