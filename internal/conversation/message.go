// Package conversation runs the ordering conversation: one turn per inbound
// message, driven by the session state machine.
package conversation

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxButtons is the most reply buttons a channel will render.
	MaxButtons = 3
	// MaxButtonLabel is the longest button label in runes.
	MaxButtonLabel = 20
)

// ErrEmptyUserID is returned for messages whose sender cannot be normalized.
var ErrEmptyUserID = errors.New("conversation: empty user id")

// Inbound is a message received from a gateway.
type Inbound struct {
	UserID    string `json:"userId"`
	Text      string `json:"text"`
	MessageID string `json:"messageId,omitempty"`
	Channel   string `json:"channel,omitempty"`
}

// Button is a quick reply offered with a message.
type Button struct {
	ID    string `json:"id"`
	Label string `json:"title"`
}

// Reply is what the customer sees after a turn. No buttons means plain text.
type Reply struct {
	Text    string   `json:"text"`
	Buttons []Button `json:"buttons"`
}

// HasButtons reports whether the reply should be sent as an interactive message.
func (r Reply) HasButtons() bool { return len(r.Buttons) > 0 }

// Normalized enforces channel limits: at most MaxButtons buttons with labels cut
// to MaxButtonLabel runes.
func (r Reply) Normalized() Reply {
	out := Reply{Text: r.Text, Buttons: []Button{}}
	for _, b := range r.Buttons {
		if len(out.Buttons) == MaxButtons {
			break
		}
		out.Buttons = append(out.Buttons, Button{ID: b.ID, Label: truncateRunes(b.Label, MaxButtonLabel)})
	}
	return out
}

func newReply(text string, buttons ...Button) Reply {
	return Reply{Text: text, Buttons: buttons}.Normalized()
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// NormalizeUserID reduces a channel address to its digits, dropping any
// "whatsapp:" prefix first.
func NormalizeUserID(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= len("whatsapp:") && strings.EqualFold(raw[:len("whatsapp:")], "whatsapp:") {
		raw = raw[len("whatsapp:"):]
	}
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var affirmativeTokens = map[string]struct{}{
	"yes": {}, "y": {}, "yeah": {}, "yep": {}, "yup": {},
	"confirm": {}, "confirmed": {}, "ok": {}, "okay": {}, "sure": {},
}

// IsAffirmative reports whether text contains a confirmation word.
func IsAffirmative(text string) bool {
	for _, word := range words(text) {
		if _, ok := affirmativeTokens[word]; ok {
			return true
		}
	}
	return false
}

var historyKeywords = []string{
	"my orders",
	"my_orders",
	"order history",
	"past orders",
	"previous orders",
	"history",
}

// MentionsHistory reports whether text asks about past orders.
func MentionsHistory(text string) bool {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	for _, kw := range historyKeywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
