package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/candorlabs/candor/internal/capsule"
	"github.com/candorlabs/candor/internal/llm"
)

// extractionPrompt instructs the backend to return the participant
// and message arrays in one structured response.
const extractionPrompt = `Extract the participants and messages from the following conversation.

Return JSON with this exact shape:
{
  "participants": [{"name": "string", "email": "string or empty"}],
  "messages": [{"participantIdentifier": "name or email of the sender", "timestamp": "ISO 8601 or empty", "content": "string"}]
}

Preserve message order. Do not invent participants or messages.

Conversation:
%s`

// ModelEngine extracts participants and messages by prompting the
// model backend for structured output.
type ModelEngine struct {
	client llm.Client
	logger *zap.Logger
}

// NewModelEngine creates a model extraction engine.
func NewModelEngine(client llm.Client, logger *zap.Logger) *ModelEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelEngine{client: client, logger: logger}
}

// modelExtraction is the JSON shape requested from the backend.
type modelExtraction struct {
	Participants []struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"participants"`
	Messages []struct {
		ParticipantIdentifier string `json:"participantIdentifier"`
		Timestamp             string `json:"timestamp"`
		Content               string `json:"content"`
	} `json:"messages"`
}

// Extract populates c.Participants and c.Messages from c.RawText.
// A backend transport failure is returned to the caller; a response
// that fails to parse yields empty lists instead.
func (e *ModelEngine) Extract(ctx context.Context, c *capsule.Capsule) error {
	prompt := fmt.Sprintf(extractionPrompt, c.RawText)

	raw, err := e.client.CompleteStructured(ctx, prompt)
	if err != nil {
		return fmt.Errorf("model extraction call: %w", err)
	}

	var parsed modelExtraction
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &parsed); err != nil {
		e.logger.Warn("model extraction response did not parse, returning empty result",
			zap.Error(err))
		c.Participants = []capsule.Participant{}
		c.Messages = []capsule.Message{}
		return nil
	}

	b := newBuilder()
	for _, p := range parsed.Participants {
		if p.Name != "" || p.Email != "" {
			b.addParticipant(p.Name, p.Email)
		}
	}
	for _, m := range parsed.Messages {
		if m.Content == "" {
			continue
		}
		var ts *time.Time
		if m.Timestamp != "" {
			if parsedTS, err := time.Parse(time.RFC3339, m.Timestamp); err == nil {
				ts = &parsedTS
			}
		}
		b.addMessage(m.ParticipantIdentifier, ts, m.Content)
	}
	b.link()

	c.Participants = b.participants
	c.Messages = b.messages
	return nil
}
