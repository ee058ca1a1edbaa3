package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/candorlabs/candor/internal/capsule"
)

// syntheticBase anchors synthetic timestamps. Messages without an
// explicit time get incrementing offsets from it so ordering survives
// a sort; the absolute values carry no meaning.
var syntheticBase = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// senderMetaKey holds the raw sender token on a message until the
// linking pass resolves it to a participant id.
const senderMetaKey = "raw_sender"

// RegexEngine extracts participants and messages with
// source-type-specific grammars. It never fails on malformed input:
// a grammar that yields nothing falls back to the generic line
// grammar, and the worst case is an empty result.
type RegexEngine struct {
	logger *zap.Logger
}

// NewRegexEngine creates a regex extraction engine.
func NewRegexEngine(logger *zap.Logger) *RegexEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegexEngine{logger: logger}
}

// Extract populates c.Participants and c.Messages from c.RawText.
func (e *RegexEngine) Extract(c *capsule.Capsule) {
	b := newBuilder()

	switch c.SourceType {
	case capsule.SourceEmail:
		e.extractEmail(c.RawText, b)
	case capsule.SourceChat:
		e.extractChat(c.RawText, b)
	default:
		e.extractGeneric(c.RawText, b)
	}

	// A format-specific grammar that found nothing usually means the
	// declared source type was wrong. Try the generic grammar before
	// giving up.
	if len(b.messages) == 0 && c.SourceType != capsule.SourceGeneric {
		e.logger.Debug("grammar yielded no messages, falling back to generic",
			zap.String("source_type", string(c.SourceType)))
		b = newBuilder()
		e.extractGeneric(c.RawText, b)
	}

	b.link()
	c.Participants = b.participants
	c.Messages = b.messages
}

// builder accumulates extraction output and performs the linking pass.
type builder struct {
	participants []capsule.Participant
	byName       map[string]int
	byEmail      map[string]int
	messages     []capsule.Message
	nextPartID   int
	nextMsgID    int
}

func newBuilder() *builder {
	return &builder{
		byName:  make(map[string]int),
		byEmail: make(map[string]int),
	}
}

// addParticipant registers a participant, deduplicating by lowercased
// name and email, and returns its id.
func (b *builder) addParticipant(name, email string) int {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	nameKey := strings.ToLower(name)

	if email != "" {
		if id, ok := b.byEmail[email]; ok {
			// Backfill a name learned later.
			if name != "" && b.participants[id].Name == "" {
				b.participants[id].Name = name
			}
			return id
		}
	}
	if nameKey != "" {
		if id, ok := b.byName[nameKey]; ok {
			if email != "" && b.participants[id].Email == "" {
				b.participants[id].Email = email
				b.byEmail[email] = id
			}
			return id
		}
	}

	id := b.nextPartID
	b.nextPartID++
	b.participants = append(b.participants, capsule.Participant{
		ID:    id,
		Name:  name,
		Email: email,
		Role:  capsule.RoleUnknown,
	})
	if nameKey != "" {
		b.byName[nameKey] = id
	}
	if email != "" {
		b.byEmail[email] = id
	}
	return id
}

// addMessage appends a message carrying the raw sender token. A nil
// timestamp gets the next synthetic offset.
func (b *builder) addMessage(sender string, ts *time.Time, content string) *capsule.Message {
	id := b.nextMsgID
	b.nextMsgID++

	when := syntheticBase.Add(time.Duration(id) * time.Minute)
	if ts != nil {
		when = *ts
	}

	b.messages = append(b.messages, capsule.Message{
		ID:        id,
		Timestamp: when,
		Content:   strings.TrimSpace(content),
		Metadata:  map[string]string{senderMetaKey: strings.TrimSpace(sender)},
	})
	return &b.messages[len(b.messages)-1]
}

// link resolves each message's raw sender token to a participant id
// by name or email match, creating participants for unseen senders.
func (b *builder) link() {
	for i := range b.messages {
		token := b.messages[i].Metadata[senderMetaKey]
		name, email := splitNameEmail(token)
		b.messages[i].ParticipantID = b.addParticipant(name, email)
	}
}

// nameEmailRe matches "Display Name <user@host>".
var nameEmailRe = regexp.MustCompile(`^\s*"?([^"<]*?)"?\s*<([^>]+)>\s*$`)

// emailOnlyRe matches a bare address.
var emailOnlyRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// splitNameEmail separates a sender token into display name and email.
func splitNameEmail(token string) (name, email string) {
	token = strings.TrimSpace(token)
	if m := nameEmailRe.FindStringSubmatch(token); m != nil {
		return strings.TrimSpace(m[1]), m[2]
	}
	if emailOnlyRe.MatchString(token) {
		return "", token
	}
	return token, ""
}

// Email grammar.

var emailDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05",
	"2 Jan 2006 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

// extractEmail splits the text into messages at "From:" lines, parses
// the header block of each, strips quoted lines, and truncates
// trailing signatures.
func (e *RegexEngine) extractEmail(text string, b *builder) {
	lines := strings.Split(text, "\n")

	var blocks [][]string
	var current []string
	for _, line := range lines {
		if strings.HasPrefix(line, "From:") && len(current) > 0 {
			blocks = append(blocks, current)
			current = nil
		}
		if strings.HasPrefix(line, "From:") || len(current) > 0 {
			current = append(current, line)
		}
		// Lines before the first From: are preamble and dropped.
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}

	for _, block := range blocks {
		e.emailBlockToMessage(block, b)
	}
}

// emailBlockToMessage parses one message block: header lines up to
// the first blank line, then the body.
func (e *RegexEngine) emailBlockToMessage(block []string, b *builder) {
	headers := map[string]string{}
	bodyStart := len(block)

	for i, line := range block {
		if strings.TrimSpace(line) == "" {
			bodyStart = i + 1
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if ok {
			switch key {
			case "From", "To", "Cc", "Subject", "Date":
				headers[key] = strings.TrimSpace(value)
				continue
			}
		}
		// Not a recognized header; body begins here.
		bodyStart = i
		break
	}

	if bodyStart > len(block) {
		bodyStart = len(block)
	}
	var bodyLines []string
	inSignature := false
	for _, line := range block[bodyStart:] {
		trimmed := strings.TrimRight(line, " \t")
		// A standalone "--" starts the signature block.
		if trimmed == "--" {
			inSignature = true
		}
		if inSignature {
			continue
		}
		// Quoted reply content is dropped.
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			continue
		}
		bodyLines = append(bodyLines, line)
	}

	content := strings.TrimSpace(strings.Join(bodyLines, "\n"))
	if content == "" && headers["Subject"] != "" {
		content = headers["Subject"]
	}
	if headers["From"] == "" && content == "" {
		return
	}

	var ts *time.Time
	if dateStr := headers["Date"]; dateStr != "" {
		for _, layout := range emailDateLayouts {
			if parsed, err := time.Parse(layout, dateStr); err == nil {
				ts = &parsed
				break
			}
		}
	}

	// Recipients become participants even when they never reply.
	for _, field := range []string{"To", "Cc"} {
		for _, addr := range strings.Split(headers[field], ",") {
			if strings.TrimSpace(addr) == "" {
				continue
			}
			name, email := splitNameEmail(addr)
			if name != "" || email != "" {
				b.addParticipant(name, email)
			}
		}
	}

	msg := b.addMessage(headers["From"], ts, content)
	if subject := headers["Subject"]; subject != "" {
		msg.Metadata["subject"] = subject
	}
}

// Chat grammar: "name [HH:MM]: text".

var chatMsgRe = regexp.MustCompile(`^(\S[^\[\n]*?)\s*\[(\d{1,2}):(\d{2})\]:\s*(.*)$`)

func (e *RegexEngine) extractChat(text string, b *builder) {
	var last *capsule.Message
	for _, line := range strings.Split(text, "\n") {
		m := chatMsgRe.FindStringSubmatch(line)
		if m == nil {
			// Continuation of the previous message.
			if last != nil && strings.TrimSpace(line) != "" {
				last.Content += "\n" + strings.TrimSpace(line)
			}
			continue
		}

		hour, _ := strconv.Atoi(m[2])
		minute, _ := strconv.Atoi(m[3])
		if hour > 23 || minute > 59 {
			continue
		}
		ts := syntheticBase.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
		last = b.addMessage(m[1], &ts, m[4])
	}
}

// Generic grammar: "name: text".

var genericMsgRe = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9 .'_-]{0,40}):\s+(.+)$`)

func (e *RegexEngine) extractGeneric(text string, b *builder) {
	var last *capsule.Message
	for _, line := range strings.Split(text, "\n") {
		m := genericMsgRe.FindStringSubmatch(line)
		if m == nil {
			if last != nil && strings.TrimSpace(line) != "" {
				last.Content += "\n" + strings.TrimSpace(line)
			}
			continue
		}
		last = b.addMessage(m[1], nil, m[2])
	}
}
