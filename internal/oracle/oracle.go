// Package oracle holds the prompt-driven checks run against a language model:
// the appropriateness gate consulted before a reminder is created and the
// motivation enricher consulted when one is delivered.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Completer sends a single prompt to a language model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
}

var (
	// ErrGateUnavailable is returned when the classifier could not be reached.
	ErrGateUnavailable = errors.New("appropriateness gate unavailable")
	// ErrEnrichmentUnavailable is returned when no motivation could be produced.
	ErrEnrichmentUnavailable = errors.New("motivation enrichment unavailable")
)

// Verdict is the appropriateness label assigned to a reminder.
type Verdict string

const (
	VerdictEncouraged  Verdict = "encouraged"
	VerdictPermissible Verdict = "permissible"
	VerdictDiscouraged Verdict = "discouraged"
)

// ParseVerdict maps a model reply onto a Verdict. Anything unrecognised is permissible.
func ParseVerdict(reply string) Verdict {
	label := strings.ToLower(strings.TrimSpace(reply))
	label = strings.Trim(label, ".!\"'*")
	switch Verdict(label) {
	case VerdictEncouraged:
		return VerdictEncouraged
	case VerdictDiscouraged:
		return VerdictDiscouraged
	default:
		return VerdictPermissible
	}
}

// Gate classifies reminder text before it is stored.
type Gate struct {
	completer Completer
}

// NewGate returns a Gate backed by completer.
func NewGate(completer Completer) *Gate {
	return &Gate{completer: completer}
}

// Classify returns the verdict for text. On error the verdict is
// VerdictPermissible and the error wraps ErrGateUnavailable; callers decide
// whether to honour it.
func (g *Gate) Classify(ctx context.Context, text string) (Verdict, error) {
	if g == nil || g.completer == nil {
		return VerdictPermissible, ErrGateUnavailable
	}
	reply, err := g.completer.Complete(ctx, gatePrompt(text), 0.2)
	if err != nil {
		return VerdictPermissible, fmt.Errorf("%w: %v", ErrGateUnavailable, err)
	}
	return ParseVerdict(reply), nil
}

// Enricher produces a short motivational note for a reminder being delivered.
type Enricher struct {
	completer Completer
}

// NewEnricher returns an Enricher backed by completer.
func NewEnricher(completer Completer) *Enricher {
	return &Enricher{completer: completer}
}

// Motivate returns the note for text, or ErrEnrichmentUnavailable when the
// model failed or said nothing.
func (e *Enricher) Motivate(ctx context.Context, text string) (string, error) {
	if e == nil || e.completer == nil {
		return "", ErrEnrichmentUnavailable
	}
	reply, err := e.completer.Complete(ctx, motivationPrompt(text), 0.7)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEnrichmentUnavailable, err)
	}
	message := strings.TrimSpace(reply)
	if message == "" {
		return "", ErrEnrichmentUnavailable
	}
	return message, nil
}

func gatePrompt(text string) string {
	return fmt.Sprintf(`Evaluate the following activity based on Islamic principles. Categorize it into one of these:
- Encouraged (e.g., prayer, charity, seeking knowledge)
- Permissible (e.g., eating, working, resting)
- Discouraged (e.g., wasting time, watching movies for entertainment, backbiting)

Activity: %q

Reply with one word only: Encouraged, Permissible, or Discouraged.`, text)
}

func motivationPrompt(text string) string {
	return fmt.Sprintf(`You are a helpful Islamic assistant.

Your task is to check if the user's reminder involves something:
1. Islamic (e.g., namaz, prayer, Quran, zakat, fasting): respond with a short Quran/Hadith-based motivational message.
2. Halal (e.g., study, work, helping mom): respond with a general motivational message.
3. Haram (e.g., alcohol, drugs, gambling, stealing): warn the user firmly but politely with an Islamic reminder that this is not allowed and advise repentance.
Only return the message. Include the reference number if you quote an ayah, hadith or any Islamic book, and never invent one. No explanation or JSON.

Reminder: %q`, text)
}
