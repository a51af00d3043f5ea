package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pathakanu/waremind/internal/model"
	"github.com/pathakanu/waremind/internal/oracle"
	"github.com/pathakanu/waremind/internal/timeofday"
)

// ErrResolution is returned whenever a message could not be turned into an Intent.
var ErrResolution = errors.New("could not resolve reminder intent")

// Intent is the structured request extracted from a user message.
type Intent struct {
	Action model.Action
	Text   string
	Time   string
	Repeat model.Repeat
}

type rawIntent struct {
	Action string `json:"action"`
	Text   string `json:"text"`
	Time   string `json:"time"`
	Repeat string `json:"repeat"`
}

// Resolver extracts intents through a language model.
type Resolver struct {
	completer oracle.Completer
}

// NewResolver returns a Resolver backed by completer.
func NewResolver(completer oracle.Completer) *Resolver {
	return &Resolver{completer: completer}
}

// Resolve asks the model to extract an intent from message. Model failures and
// unreadable replies are both reported as ErrResolution.
func (r *Resolver) Resolve(ctx context.Context, message string) (Intent, error) {
	if strings.TrimSpace(message) == "" {
		return Intent{}, fmt.Errorf("%w: empty message", ErrResolution)
	}
	if r == nil || r.completer == nil {
		return Intent{}, fmt.Errorf("%w: no extractor configured", ErrResolution)
	}

	reply, err := r.completer.Complete(ctx, extractionPrompt(message), 0)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrResolution, err)
	}
	return Parse(reply)
}

// Parse decodes a model reply. Markdown fences and any chatter around the
// JSON object are ignored.
func Parse(reply string) (Intent, error) {
	body := stripFences(reply)
	if start, end := strings.Index(body, "{"), strings.LastIndex(body, "}"); start >= 0 && end > start {
		body = body[start : end+1]
	}

	var raw rawIntent
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrResolution, err)
	}

	action, err := model.ParseAction(raw.Action)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrResolution, err)
	}
	repeat, err := model.ParseRepeat(raw.Repeat)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrResolution, err)
	}

	in := Intent{
		Action: action,
		Text:   strings.TrimSpace(raw.Text),
		Repeat: repeat,
	}
	if t := strings.TrimSpace(raw.Time); t != "" {
		in.Time = timeofday.Normalize(t)
	}
	return in, nil
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func extractionPrompt(message string) string {
	return fmt.Sprintf(`You are a helpful assistant managing WhatsApp reminders.

Return ONLY JSON. No explanation.

{
  "action": "create" or "delete",
  "text": "reminder content",
  "time": "HH:mm",
  "repeat": "once" or "daily"
}

Examples:
User: Remind me to pray Fajr at 5:00 AM
→ {"action": "create", "text": "pray Fajr", "time": "05:00", "repeat": "daily"}

User: Delete my Fajr reminder
→ {"action": "delete", "text": "pray Fajr"}

Now extract data for:
%q`, message)
}
