package lifecycle

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Marker records the outcome of the most recent attempt at a phase.
type Marker struct {
	Digest  string `json:"digest"`
	Success bool   `json:"success"`
}

// MarkerStore persists one marker file per phase under a workspace-specific
// directory, surviving container restarts.
type MarkerStore struct {
	dir string
}

func NewMarkerStore(dir string) *MarkerStore {
	return &MarkerStore{dir: dir}
}

func (s *MarkerStore) path(p Phase) string {
	return filepath.Join(s.dir, string(p)+".json")
}

// Read returns the marker for phase p. A missing or corrupted marker is
// reported as (Marker{}, false, nil): corruption is never a hard error,
// since the only correct response is to treat the phase as not completed.
func (s *MarkerStore) Read(p Phase) (Marker, bool, error) {
	data, err := os.ReadFile(s.path(p))
	if err != nil {
		if os.IsNotExist(err) {
			return Marker{}, false, nil
		}
		return Marker{}, false, nil
	}
	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return Marker{}, false, nil
	}
	return m, true, nil
}

// Write persists the outcome of a phase attempt.
func (s *MarkerStore) Write(p Phase, m Marker) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(p), data, 0o644)
}

// Reset deletes the marker for phase p, forcing it to re-run.
func (s *MarkerStore) Reset(p Phase) error {
	err := os.Remove(s.path(p))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// EarliestIncomplete returns the first phase in Order without a successful
// marker whose digest matches digests[phase], i.e. the phase find_up would
// resume from. Returns ok=false if every phase already has a matching
// successful marker.
func (s *MarkerStore) EarliestIncomplete(digests map[Phase]string) (phase Phase, ok bool) {
	for _, p := range Order {
		marker, exists, _ := s.Read(p)
		if !exists || !marker.Success || marker.Digest != digests[p] {
			return p, true
		}
	}
	return "", false
}
