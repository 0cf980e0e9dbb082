// Package session models the per-user conversation state and persists it.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Step names the position of a user within the ordering conversation.
type Step string

const (
	StepNeedsProfileCheck    Step = "check_user"
	StepAwaitingName         Step = "awaiting_name"
	StepAwaitingGender       Step = "awaiting_gender"
	StepAwaitingAge          Step = "awaiting_age"
	StepMainMenu             Step = "main_menu"
	StepAwaitingQuantity     Step = "awaiting_quantity"
	StepAwaitingConfirmation Step = "awaiting_confirmation"
)

// Steps lists every step a session may be persisted in.
var Steps = []Step{
	StepNeedsProfileCheck,
	StepAwaitingName,
	StepAwaitingGender,
	StepAwaitingAge,
	StepMainMenu,
	StepAwaitingQuantity,
	StepAwaitingConfirmation,
}

// Valid reports whether s is one of the known steps.
func (s Step) Valid() bool {
	for _, known := range Steps {
		if s == known {
			return true
		}
	}
	return false
}

// ErrCorruptRecord indicates a stored record could not be mapped back onto a state.
var ErrCorruptRecord = errors.New("session: corrupt record")

// State is the data carried by a session. Each step has exactly one variant and
// each variant holds only the fields that step needs.
type State interface {
	Step() Step
	sealed()
}

type NeedsProfileCheck struct{}

type AwaitingName struct{}

type AwaitingGender struct {
	Name string `json:"name"`
}

type AwaitingAge struct {
	Name   string `json:"name"`
	Gender string `json:"gender"`
}

type MainMenu struct{}

// AwaitingQuantity remembers what the user asked for while we wait for an amount.
type AwaitingQuantity struct {
	Medicine     string `json:"medicine"`
	Dosage       string `json:"dosage_frequency,omitempty"`
	Prescription string `json:"prescription_required,omitempty"`
	Language     string `json:"lang,omitempty"`
}

// PendingOrder is the order summary shown to the user before they confirm.
// Prices are whole rupees.
type PendingOrder struct {
	OrderID      string `json:"order_id"`
	Medicine     string `json:"medicine"`
	Quantity     int    `json:"quantity"`
	Unit         string `json:"unit"`
	UnitPrice    int64  `json:"unit_price"`
	Total        int64  `json:"total"`
	Dosage       string `json:"dosage_frequency,omitempty"`
	Prescription string `json:"prescription_required,omitempty"`
	Language     string `json:"lang,omitempty"`
}

type AwaitingConfirmation struct {
	PendingOrder
}

func (NeedsProfileCheck) Step() Step    { return StepNeedsProfileCheck }
func (AwaitingName) Step() Step         { return StepAwaitingName }
func (AwaitingGender) Step() Step       { return StepAwaitingGender }
func (AwaitingAge) Step() Step          { return StepAwaitingAge }
func (MainMenu) Step() Step             { return StepMainMenu }
func (AwaitingQuantity) Step() Step     { return StepAwaitingQuantity }
func (AwaitingConfirmation) Step() Step { return StepAwaitingConfirmation }

func (NeedsProfileCheck) sealed()    {}
func (AwaitingName) sealed()         {}
func (AwaitingGender) sealed()       {}
func (AwaitingAge) sealed()          {}
func (MainMenu) sealed()             {}
func (AwaitingQuantity) sealed()     {}
func (AwaitingConfirmation) sealed() {}

// Session is the conversation state of a single user.
type Session struct {
	UserID    string
	State     State
	UpdatedAt time.Time
}

// New returns the session a user starts with before their first message.
func New(userID string) Session {
	return Session{UserID: userID, State: NeedsProfileCheck{}}
}

// Step returns the current step, treating a missing state as the initial one.
func (s Session) Step() Step {
	if s.State == nil {
		return StepNeedsProfileCheck
	}
	return s.State.Step()
}

// Record is the storage shape of a session.
type Record struct {
	UserID    string         `json:"userId" dynamodbav:"userId"`
	Step      Step           `json:"step" dynamodbav:"step"`
	Data      map[string]any `json:"data" dynamodbav:"data"`
	UpdatedAt string         `json:"updatedAt,omitempty" dynamodbav:"updatedAt,omitempty"`
	ExpiresAt int64          `json:"-" dynamodbav:"expiresAt,omitempty"`
}

// ToRecord flattens a session for storage. The data bag is rebuilt from the
// variant on every call so keys from earlier steps never survive a transition.
func ToRecord(s Session) (Record, error) {
	if s.UserID == "" {
		return Record{}, errors.New("session: user id required")
	}
	state := s.State
	if state == nil {
		state = NeedsProfileCheck{}
	}
	if !state.Step().Valid() {
		return Record{}, fmt.Errorf("session: unknown step %q", state.Step())
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return Record{}, fmt.Errorf("session: failed to encode state: %w", err)
	}
	data := map[string]any{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return Record{}, fmt.Errorf("session: failed to encode state: %w", err)
	}

	rec := Record{
		UserID: s.UserID,
		Step:   state.Step(),
		Data:   data,
	}
	if !s.UpdatedAt.IsZero() {
		rec.UpdatedAt = s.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return rec, nil
}

// FromRecord rebuilds a session from its stored shape. Keys that do not belong
// to the record's step are ignored.
func FromRecord(rec Record) (Session, error) {
	sess := Session{UserID: rec.UserID}
	if rec.UpdatedAt != "" {
		if ts, err := time.Parse(time.RFC3339Nano, rec.UpdatedAt); err == nil {
			sess.UpdatedAt = ts
		}
	}

	raw, err := json.Marshal(rec.Data)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if rec.Data == nil {
		raw = []byte("{}")
	}

	switch rec.Step {
	case "", StepNeedsProfileCheck:
		sess.State = NeedsProfileCheck{}
	case StepAwaitingName:
		sess.State = AwaitingName{}
	case StepMainMenu:
		sess.State = MainMenu{}
	case StepAwaitingGender:
		var st AwaitingGender
		if err := json.Unmarshal(raw, &st); err != nil {
			return Session{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
		sess.State = st
	case StepAwaitingAge:
		var st AwaitingAge
		if err := json.Unmarshal(raw, &st); err != nil {
			return Session{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
		sess.State = st
	case StepAwaitingQuantity:
		var st AwaitingQuantity
		if err := json.Unmarshal(raw, &st); err != nil {
			return Session{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
		if st.Medicine == "" {
			return Session{}, fmt.Errorf("%w: awaiting_quantity without medicine", ErrCorruptRecord)
		}
		sess.State = st
	case StepAwaitingConfirmation:
		var st AwaitingConfirmation
		if err := json.Unmarshal(raw, &st); err != nil {
			return Session{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
		if st.OrderID == "" || st.Medicine == "" || st.Quantity <= 0 {
			return Session{}, fmt.Errorf("%w: incomplete pending order", ErrCorruptRecord)
		}
		sess.State = st
	default:
		return Session{}, fmt.Errorf("%w: unknown step %q", ErrCorruptRecord, rec.Step)
	}
	return sess, nil
}
