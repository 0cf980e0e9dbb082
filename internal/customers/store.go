package customers

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Store persists customer profiles.
type Store interface {
	// Find returns nil, nil when the user has no profile.
	Find(ctx context.Context, userID string) (*Profile, error)
	Create(ctx context.Context, profile Profile) error
	IncrementHistory(ctx context.Context, userID, medicineKey, dosage string, at time.Time) error
	UpdateLanguage(ctx context.Context, userID, language string) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile)}
}

func (m *MemoryStore) Find(ctx context.Context, userID string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	p.MedicationHistory = cloneHistory(p.MedicationHistory)
	return &p, nil
}

func (m *MemoryStore) Create(ctx context.Context, profile Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	if profile.RegisteredAt.IsZero() {
		profile.RegisteredAt = time.Now().UTC()
	}
	profile.MedicationHistory = cloneHistory(profile.MedicationHistory)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.profiles[profile.UserID]; exists {
		return ErrProfileExists
	}
	m.profiles[profile.UserID] = profile
	return nil
}

func (m *MemoryStore) IncrementHistory(ctx context.Context, userID, medicineKey, dosage string, at time.Time) error {
	key := SanitizeKey(medicineKey)
	if key == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return ErrProfileNotFound
	}
	history := cloneHistory(p.MedicationHistory)
	entry := history[key]
	entry.Count++
	entry.LastOrderedAt = at.UTC()
	entry.LastDosage = dosage
	history[key] = entry
	p.MedicationHistory = history
	m.profiles[userID] = p
	return nil
}

func (m *MemoryStore) UpdateLanguage(ctx context.Context, userID, language string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return ErrProfileNotFound
	}
	p.PreferredLanguage = strings.ToLower(strings.TrimSpace(language))
	m.profiles[userID] = p
	return nil
}
