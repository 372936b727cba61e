package params

import (
	"fmt"

	"dustchain/config"
)

// StoreState captures the subset of state manager capabilities required by the
// parameter helpers.
type StoreState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Store provides typed accessors for runtime-controlled parameters.
type Store struct {
	state StoreState
}

// NewStore constructs a parameter store wrapper using the supplied state
// backend.
func NewStore(state StoreState) *Store {
	return &Store{state: state}
}

func (s *Store) withState() (StoreState, error) {
	if s == nil || s.state == nil {
		return nil, fmt.Errorf("params: state not configured")
	}
	return s.state, nil
}

// SetPauses persists the supplied pause configuration.
func (s *Store) SetPauses(pauses config.Pauses) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if err := state.KVPut(pausesKey, pauses); err != nil {
		return fmt.Errorf("params: encode pauses: %w", err)
	}
	return nil
}

// Pauses loads the persisted pause configuration. When unset, a zero-value
// configuration is returned.
func (s *Store) Pauses() (config.Pauses, error) {
	state, err := s.withState()
	if err != nil {
		return config.Pauses{}, err
	}
	var pauses config.Pauses
	if _, err := state.KVGet(pausesKey, &pauses); err != nil {
		return config.Pauses{}, fmt.Errorf("params: decode pauses: %w", err)
	}
	return pauses, nil
}

// SetPaused flips a single module toggle.
func (s *Store) SetPaused(module string, paused bool) error {
	pauses, err := s.Pauses()
	if err != nil {
		return err
	}
	if !pauses.Set(module, paused) {
		return fmt.Errorf("params: unknown module %q", module)
	}
	return s.SetPauses(pauses)
}

// IsPaused implements common.PauseView against the stored toggles. Read
// failures are treated as paused.
func (s *Store) IsPaused(module string) bool {
	pauses, err := s.Pauses()
	if err != nil {
		return true
	}
	return pauses.IsPaused(module)
}
