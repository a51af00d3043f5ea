package model

import (
	"fmt"
	"strings"
	"time"
)

// Repeat controls what happens to a reminder after it has been delivered.
type Repeat string

const (
	// RepeatOnce reminders are retired after their first delivery attempt.
	RepeatOnce Repeat = "once"
	// RepeatDaily reminders are re-armed after a cooldown and fire again the next day.
	RepeatDaily Repeat = "daily"
)

// ParseRepeat maps a free-form value onto a Repeat. Empty input defaults to RepeatOnce.
func ParseRepeat(value string) (Repeat, error) {
	switch Repeat(strings.ToLower(strings.TrimSpace(value))) {
	case "", RepeatOnce:
		return RepeatOnce, nil
	case RepeatDaily:
		return RepeatDaily, nil
	default:
		return "", fmt.Errorf("unknown repeat %q", value)
	}
}

// Action is the operation a user asked for.
type Action string

const (
	ActionCreate Action = "create"
	ActionDelete Action = "delete"
)

// ParseAction maps a free-form value onto an Action.
func ParseAction(value string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(value))) {
	case ActionCreate:
		return ActionCreate, nil
	case ActionDelete:
		return ActionDelete, nil
	default:
		return "", fmt.Errorf("unknown action %q", value)
	}
}

// Reminder represents a saved reminder for a WhatsApp user.
type Reminder struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Owner     string    `gorm:"index;not null" json:"owner"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Time      string    `gorm:"index;not null" json:"time"`
	Repeat    Repeat    `gorm:"size:8;not null" json:"repeat"`
	Sent      bool      `gorm:"not null" json:"sent"`
	CreatedAt time.Time `json:"created_at"`
}
