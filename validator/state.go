package validator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	tmos "github.com/lattica/lattica/libs/os"
)

// State is the validator's durable snapshot: the round counter, the peer
// identities at the last directory sync, and the score vector. Scores and
// Hotkeys are index-aligned and equal in length at all times.
type State struct {
	Round   uint64   `json:"round"`
	Hotkeys []string `json:"hotkeys"`
	Scores  []uint16 `json:"scores"`
}

// DefaultState returns the state of a fresh validator: round 1 and a zeroed
// score vector derived from the directory.
func DefaultState(hotkeys []string) State {
	return State{
		Round:   1,
		Hotkeys: append([]string(nil), hotkeys...),
		Scores:  make([]uint16, len(hotkeys)),
	}
}

// Resize replaces the peer identities after a directory sync. Existing score
// entries are preserved by index; entries for new peers start at zero.
func (s *State) Resize(hotkeys []string) {
	if len(hotkeys) != len(s.Hotkeys) {
		scores := make([]uint16, len(hotkeys))
		copy(scores, s.Scores)
		s.Scores = scores
	}
	s.Hotkeys = append([]string(nil), hotkeys...)
}

// LoadState reads the snapshot at path. A missing file is not an error: ok
// is false and the caller keeps its in-memory defaults. A file that exists
// but fails to parse is a startup-fatal condition.
func LoadState(path string) (state State, ok bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("failed to read state snapshot %q: %w", path, err)
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, false, fmt.Errorf("failed to parse state snapshot %q: %w", path, err)
	}
	if len(state.Scores) != len(state.Hotkeys) {
		return State{}, false, fmt.Errorf("corrupt state snapshot %q: %d scores for %d hotkeys",
			path, len(state.Scores), len(state.Hotkeys))
	}

	return state, true, nil
}

// SaveState overwrites the snapshot at path atomically, creating parent
// directories as needed.
func SaveState(path string, state State) error {
	if err := tmos.EnsureDir(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state snapshot: %w", err)
	}

	if err := tmos.WriteFileAtomic(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state snapshot %q: %w", path, err)
	}
	return nil
}
