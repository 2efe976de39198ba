package usecases

import (
	"context"
	"fmt"
	"regexp"

	"github.com/samirrijal/plaza/internal/core/domain"
	"github.com/samirrijal/plaza/internal/core/ports"
)

const maxPreferenceValue = 1024

var preferenceKeyRe = regexp.MustCompile(`^[a-z0-9_.-]{1,64}$`)

// PreferenceService validates and stores per-user preferences.
type PreferenceService struct {
	store ports.PreferenceStore
}

// NewPreferenceService creates a new PreferenceService.
func NewPreferenceService(store ports.PreferenceStore) *PreferenceService {
	return &PreferenceService{store: store}
}

// All returns every preference of userID.
func (s *PreferenceService) All(ctx context.Context, userID string) (map[string]string, error) {
	prefs, err := s.store.All(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		prefs = map[string]string{}
	}
	return prefs, nil
}

// Get returns one preference.
func (s *PreferenceService) Get(ctx context.Context, userID, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return s.store.Get(ctx, userID, key)
}

// Set stores one preference.
func (s *PreferenceService) Set(ctx context.Context, userID, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if len(value) > maxPreferenceValue {
		return fmt.Errorf("%w: value exceeds %d bytes", domain.ErrInvalidInput, maxPreferenceValue)
	}
	return s.store.Set(ctx, userID, key, value)
}

// Delete removes one preference.
func (s *PreferenceService) Delete(ctx context.Context, userID, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return s.store.Delete(ctx, userID, key)
}

func validateKey(key string) error {
	if !preferenceKeyRe.MatchString(key) {
		return fmt.Errorf("%w: invalid preference key %q", domain.ErrInvalidInput, key)
	}
	return nil
}
