package bot

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/pathakanu/waremind/internal/intent"
	"github.com/pathakanu/waremind/internal/model"
	"github.com/pathakanu/waremind/internal/oracle"
	"github.com/pathakanu/waremind/internal/store"
	"github.com/pathakanu/waremind/internal/twilio"
)

var (
	// ErrIncompleteCreate is returned for a create request without text or time.
	ErrIncompleteCreate = errors.New("create request needs text and time")
	// ErrAmbiguousDelete is returned for a delete request that names no reminder.
	ErrAmbiguousDelete = errors.New("delete request does not name a reminder")
)

// IntentResolver turns a chat message into a structured request.
type IntentResolver interface {
	Resolve(ctx context.Context, message string) (intent.Intent, error)
}

// Gate vetoes reminders that should not be created.
type Gate interface {
	Classify(ctx context.Context, text string) (oracle.Verdict, error)
}

const (
	replyNotUnderstood = "⚠️ Could not understand the reminder. Try again."
	replyIncomplete    = "⚠️ I need both what to remind you about and when, e.g. \"Remind me to call mom at 6:30 PM\"."
	replyAmbiguous     = "⚠️ Could not find a reminder to delete. Please specify the reminder text or say \"delete all reminders\"."
	replyDiscouraged   = "⚠️ This activity may not be encouraged in Islam.\n\n" +
		"Consider using your time for something beneficial like reading, reflecting, or dhikr.\n\n" +
		"🕊️ \"Indeed, the best of people are those who are most beneficial to others.\" (Hadith)"
	replyDeletedAll = "🗑️ All your reminders have been deleted."
	replyStoreError = "Hmm, I couldn't save that change. Please try again later."
)

// Bot turns inbound chat messages into reminder store mutations.
type Bot struct {
	store    *store.Store
	resolver IntentResolver
	gate     Gate
	logger   *log.Logger

	// onFatal is called when the store could not be persisted.
	onFatal func(error)
}

// New creates a Bot.
func New(st *store.Store, resolver IntentResolver, gate Gate, logger *log.Logger) *Bot {
	b := &Bot{
		store:    st,
		resolver: resolver,
		gate:     gate,
		logger:   logger,
	}
	b.onFatal = func(err error) {
		b.logger.Fatalf("bot: %v", err)
	}
	return b
}

// Handler returns the HTTP handler for incoming Twilio messages.
func (b *Bot) Handler() http.HandlerFunc {
	return b.handleIncomingMessage
}

// handleIncomingMessage processes Twilio webhook POST requests.
func (b *Bot) handleIncomingMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		b.logger.Printf("webhook: parse error: %v", err)
		b.writeTwilioResponse(w, "Sorry, I couldn't understand that request.")
		return
	}

	from := r.FormValue("From")
	body := strings.TrimSpace(r.FormValue("Body"))
	if from == "" || body == "" {
		b.writeTwilioResponse(w, "I need a message to work with. Please try again.")
		return
	}

	reply, err := b.HandleMessage(r.Context(), twilio.SenderID(from), body)
	if err != nil {
		b.writeTwilioResponse(w, replyStoreError)
		b.onFatal(err)
		return
	}
	b.writeTwilioResponse(w, reply)
}

// HandleMessage resolves one message from owner and returns the reply to send back.
// The error is non-nil only when the store failed to persist.
func (b *Bot) HandleMessage(ctx context.Context, owner, body string) (string, error) {
	b.logger.Printf("received %q from %s", body, owner)
	lowerBody := strings.ToLower(strings.TrimSpace(body))

	switch {
	case isHelpRequest(lowerBody):
		return helpResponse(), nil
	case isListRequest(lowerBody):
		return b.listReminders(owner), nil
	case isClearAllRequest(lowerBody):
		return b.deleteReminder(owner, "all")
	}

	in, err := b.resolver.Resolve(ctx, body)
	if err != nil {
		b.logger.Printf("intent: %v", err)
		return replyNotUnderstood, nil
	}

	switch in.Action {
	case model.ActionCreate:
		return b.createReminder(ctx, owner, in)
	case model.ActionDelete:
		return b.deleteReminder(owner, in.Text)
	default:
		return replyNotUnderstood, nil
	}
}

func (b *Bot) createReminder(ctx context.Context, owner string, in intent.Intent) (string, error) {
	if err := validateCreate(in); err != nil {
		b.logger.Printf("create: %v", err)
		return replyIncomplete, nil
	}

	verdict, err := b.gate.Classify(ctx, in.Text)
	if err != nil {
		// The gate fails open: an unreachable classifier never blocks a reminder.
		b.logger.Printf("gate: %v, allowing %q", err, in.Text)
	}
	if verdict == oracle.VerdictDiscouraged {
		b.logger.Printf("rejected reminder (discouraged): %q", in.Text)
		return replyDiscouraged, nil
	}

	repeat := in.Repeat
	if repeat == "" {
		repeat = model.RepeatOnce
	}
	if _, err := b.store.Create(owner, in.Text, in.Time, repeat); err != nil {
		return "", err
	}
	b.logger.Printf("reminder added for %s: %q at %s (%s)", owner, in.Text, in.Time, repeat)
	return fmt.Sprintf("✅ Reminder set for \"%s\" at %s (%s)", in.Text, in.Time, repeat), nil
}

// deleteReminder routes a delete request. Text mentioning "all" clears every
// reminder of the owner, other text removes exact matches.
func (b *Bot) deleteReminder(owner, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		b.logger.Printf("delete: %v", ErrAmbiguousDelete)
		return replyAmbiguous, nil
	}

	if strings.Contains(strings.ToLower(text), "all") {
		removed, err := b.store.DeleteAll(owner)
		if err != nil {
			return "", err
		}
		b.logger.Printf("deleted all reminders for %s: %d removed", owner, removed)
		return replyDeletedAll, nil
	}

	removed, err := b.store.DeleteByText(owner, text)
	if err != nil {
		return "", err
	}
	b.logger.Printf("deleted reminder %q for %s: %d removed", text, owner, removed)
	if removed == 0 {
		return fmt.Sprintf("I couldn't find a reminder called \"%s\".", text), nil
	}
	return fmt.Sprintf("🗑️ Reminder \"%s\" deleted.", text), nil
}

// listReminders returns a human-readable list of reminders for a user.
func (b *Bot) listReminders(owner string) string {
	reminders := b.store.List(owner)
	if len(reminders) == 0 {
		return "You have no reminders yet. Send me one to get started!"
	}

	var sb strings.Builder
	sb.WriteString("Here are your reminders:\n")
	for i, r := range reminders {
		sb.WriteString(fmt.Sprintf("%d. %s at %s (%s)\n", i+1, r.Text, r.Time, r.Repeat))
	}
	return sb.String()
}

func validateCreate(in intent.Intent) error {
	if strings.TrimSpace(in.Text) == "" || strings.TrimSpace(in.Time) == "" {
		return ErrIncompleteCreate
	}
	return nil
}

func (b *Bot) writeTwilioResponse(w http.ResponseWriter, message string) {
	twiml := struct {
		XMLName xml.Name `xml:"Response"`
		Message string   `xml:"Message"`
	}{
		Message: message,
	}

	w.Header().Set("Content-Type", "application/xml")
	if err := xml.NewEncoder(w).Encode(twiml); err != nil {
		b.logger.Printf("twilio response encode: %v", err)
	}
}

func isListRequest(body string) bool {
	return body == "show my reminders" ||
		body == "list my reminders" ||
		body == "show reminders" ||
		body == "list reminders"
}

func isClearAllRequest(body string) bool {
	return body == "clear all reminders" ||
		body == "clear reminders" ||
		body == "delete all reminders"
}

func isHelpRequest(body string) bool {
	return body == "help" || body == "/help"
}

func helpResponse() string {
	return "You can say things like:\n- \"Remind me to pray Fajr at 5:00 AM every day\"\n- \"Remind me to call mom at 6:30 PM\"\n- \"List reminders\" to see everything saved\n- \"Delete my Fajr reminder\" to remove one\n- \"Delete all reminders\" to wipe everything"
}
