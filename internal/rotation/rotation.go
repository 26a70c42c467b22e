// Package rotation tracks which favorite recipes have been served in the
// current rotation cycle. A cycle ends once every favorite has appeared.
package rotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrCorruptState is returned when a persisted rotation state cannot be decoded.
var ErrCorruptState = errors.New("rotation state is corrupt")

// State is the rotation bookkeeping for one user. The zero value is a valid
// state at cycle 0 with nothing used. Copy with Clone before mutating a
// state that is shared.
type State struct {
	CycleNumber int
	used        map[string]struct{}
}

// NewState returns a fresh state at cycle 1.
func NewState() State {
	return State{CycleNumber: 1}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	c := State{CycleNumber: s.CycleNumber}
	if len(s.used) > 0 {
		c.used = make(map[string]struct{}, len(s.used))
		for id := range s.used {
			c.used[id] = struct{}{}
		}
	}
	return c
}

// MarkUsed records a recipe as used in the current cycle. Marking twice is a no-op.
func (s *State) MarkUsed(recipeID string) {
	if s.used == nil {
		s.used = make(map[string]struct{})
	}
	s.used[recipeID] = struct{}{}
}

// IsUsed reports whether the recipe was used in the current cycle.
func (s State) IsUsed(recipeID string) bool {
	_, ok := s.used[recipeID]
	return ok
}

// UsedCount is the number of distinct recipes used in the current cycle.
func (s State) UsedCount() int {
	return len(s.used)
}

// UsedIDs returns the used recipe ids in sorted order.
func (s State) UsedIDs() []string {
	ids := make([]string, 0, len(s.used))
	for id := range s.used {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResetCycle clears the used set and starts the next cycle.
func (s *State) ResetCycle() {
	s.used = nil
	s.CycleNumber++
}

// Retain forgets used ids that are not in keep, e.g. recipes that were
// unfavorited since the state was saved.
func (s *State) Retain(keep []string) {
	if len(s.used) == 0 {
		return
	}
	allowed := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		allowed[id] = struct{}{}
	}
	for id := range s.used {
		if _, ok := allowed[id]; !ok {
			delete(s.used, id)
		}
	}
}

// Equal reports whether two states have the same cycle and used set.
func (s State) Equal(other State) bool {
	if s.CycleNumber != other.CycleNumber || len(s.used) != len(other.used) {
		return false
	}
	for id := range s.used {
		if _, ok := other.used[id]; !ok {
			return false
		}
	}
	return true
}

// FilterAvailable returns the favorites not yet used in the current cycle,
// preserving input order.
func FilterAvailable(allFavoriteIDs []string, s State) []string {
	available := make([]string, 0, len(allFavoriteIDs))
	for _, id := range allFavoriteIDs {
		if !s.IsUsed(id) {
			available = append(available, id)
		}
	}
	return available
}

// ShouldReset reports whether every favorite has been used this cycle.
func ShouldReset(totalFavoriteCount int, s State) bool {
	return s.UsedCount() >= totalFavoriteCount
}

// UpdateAfterGeneration marks every assigned id as used and resets the cycle
// when the threshold is met. The input state is not modified.
func UpdateAfterGeneration(assignedIDs []string, totalFavoriteCount int, s State) State {
	next := s.Clone()
	for _, id := range assignedIDs {
		next.MarkUsed(id)
	}
	if ShouldReset(totalFavoriteCount, next) {
		next.ResetCycle()
	}
	return next
}

type stateJSON struct {
	CycleNumber   int      `json:"cycle_number"`
	UsedRecipeIDs []string `json:"used_recipe_ids"`
}

// MarshalJSON encodes the state with used ids sorted so equal states encode
// identically.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{
		CycleNumber:   s.CycleNumber,
		UsedRecipeIDs: s.UsedIDs(),
	})
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw stateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.CycleNumber < 0 {
		return fmt.Errorf("negative cycle number %d", raw.CycleNumber)
	}
	*s = State{CycleNumber: raw.CycleNumber}
	for _, id := range raw.UsedRecipeIDs {
		s.MarkUsed(id)
	}
	return nil
}

// ToJSON serializes the state.
func ToJSON(s State) ([]byte, error) {
	return json.Marshal(s)
}

// FromJSON restores a state serialized by ToJSON. Failures wrap ErrCorruptState.
func FromJSON(data []byte) (State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return s, nil
}
