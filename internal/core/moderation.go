package core

import (
	"context"
	"strings"
)

// Moderator approves broadcast text before it is shown to members.
type Moderator interface {
	Moderate(ctx context.Context, text string) (Verdict, error)
}

// Verdict is a moderation outcome.
type Verdict struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// KeywordModerator rejects text containing any blocked word. It is the offline
// fallback when no moderation service is reachable.
type KeywordModerator struct {
	Blocked []string
}

// DefaultBlockedWords is the KeywordModerator list used when none is given.
var DefaultBlockedWords = []string{"hate", "kill", "stupid", "idiot", "damn", "hell"}

// NewKeywordModerator returns a moderator over DefaultBlockedWords.
func NewKeywordModerator() KeywordModerator {
	return KeywordModerator{Blocked: DefaultBlockedWords}
}

// Moderate implements Moderator.
func (m KeywordModerator) Moderate(_ context.Context, text string) (Verdict, error) {
	lower := strings.ToLower(text)
	for _, w := range m.Blocked {
		if w != "" && strings.Contains(lower, w) {
			return Verdict{Approved: false, Reason: "Content contains prohibited language."}, nil
		}
	}
	return Verdict{Approved: true}, nil
}
