package customers

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrProfileExists is returned when a profile is created twice for one user.
	ErrProfileExists = errors.New("customers: profile already exists")

	// ErrProfileNotFound is returned by updates that target an unknown user.
	ErrProfileNotFound = errors.New("customers: profile not found")

	ErrInvalidProfile = errors.New("customers: invalid profile")
)

// Profile is a registered customer.
type Profile struct {
	UserID            string                     `json:"user_id"`
	Name              string                     `json:"name"`
	Age               int                        `json:"age"`
	Gender            string                     `json:"gender"`
	PreferredLanguage string                     `json:"preferred_language"`
	MedicationHistory map[string]MedicationEntry `json:"medication_history"`
	RegisteredAt      time.Time                  `json:"registered_at"`
}

// MedicationEntry tracks how often a customer has ordered one medicine.
type MedicationEntry struct {
	Count         int       `json:"count"`
	LastOrderedAt time.Time `json:"last_ordered_at"`
	LastDosage    string    `json:"last_dosage,omitempty"`
}

// Validate checks the fields that must be present on creation.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return errors.Join(ErrInvalidProfile, errors.New("user id is required"))
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.Join(ErrInvalidProfile, errors.New("name is required"))
	}
	if p.Age <= 0 {
		return errors.Join(ErrInvalidProfile, errors.New("age must be positive"))
	}
	return nil
}

// SanitizeKey turns a medicine name into a stable history key: dots and dollar
// signs are removed, whitespace is collapsed and the result is lower-cased.
func SanitizeKey(medicine string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '.', '$':
			return -1
		}
		return r
	}, medicine)
	return strings.ToLower(strings.Join(strings.Fields(cleaned), " "))
}

func cloneHistory(in map[string]MedicationEntry) map[string]MedicationEntry {
	out := make(map[string]MedicationEntry, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
