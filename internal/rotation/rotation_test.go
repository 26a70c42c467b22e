package rotation

import (
	"errors"
	"reflect"
	"testing"
)

func stateWith(cycle int, ids ...string) State {
	s := State{CycleNumber: cycle}
	for _, id := range ids {
		s.MarkUsed(id)
	}
	return s
}

func TestMarkUsed(t *testing.T) {
	s := NewState()
	s.MarkUsed("a")
	s.MarkUsed("a")
	s.MarkUsed("b")

	if s.UsedCount() != 2 {
		t.Errorf("Expected 2 used ids, got %d", s.UsedCount())
	}
	if !s.IsUsed("a") || s.IsUsed("c") {
		t.Errorf("IsUsed mismatch: a=%v c=%v", s.IsUsed("a"), s.IsUsed("c"))
	}
}

func TestResetCycle(t *testing.T) {
	s := stateWith(4, "a", "b", "c")
	s.ResetCycle()

	if s.UsedCount() != 0 {
		t.Errorf("Expected empty used set after reset, got %d", s.UsedCount())
	}
	if s.CycleNumber != 5 {
		t.Errorf("Expected cycle 5, got %d", s.CycleNumber)
	}
}

func TestFilterAvailable(t *testing.T) {
	s := stateWith(1, "b")
	got := FilterAvailable([]string{"c", "b", "a"}, s)
	if !reflect.DeepEqual(got, []string{"c", "a"}) {
		t.Errorf("FilterAvailable() = %v", got)
	}
}

func TestShouldReset(t *testing.T) {
	s := stateWith(1, "a", "b")
	if ShouldReset(3, s) {
		t.Error("Expected no reset with 2 of 3 used")
	}
	if !ShouldReset(2, s) {
		t.Error("Expected reset with 2 of 2 used")
	}
}

func TestUpdateAfterGeneration(t *testing.T) {
	favorites := []string{"a", "b", "c"}

	t.Run("FullCoverageResetsOnce", func(t *testing.T) {
		start := NewState()
		next := UpdateAfterGeneration(favorites, len(favorites), start)
		if next.CycleNumber != start.CycleNumber+1 {
			t.Errorf("Expected exactly one reset, cycle went %d -> %d", start.CycleNumber, next.CycleNumber)
		}
		if next.UsedCount() != 0 {
			t.Errorf("Expected empty used set, got %v", next.UsedIDs())
		}
	})

	t.Run("SubsetDoesNotReset", func(t *testing.T) {
		start := NewState()
		next := UpdateAfterGeneration([]string{"a", "b"}, len(favorites), start)
		if next.CycleNumber != start.CycleNumber {
			t.Errorf("Expected no reset, cycle went %d -> %d", start.CycleNumber, next.CycleNumber)
		}
		if !reflect.DeepEqual(next.UsedIDs(), []string{"a", "b"}) {
			t.Errorf("UsedIDs() = %v", next.UsedIDs())
		}
	})

	t.Run("InputNotModified", func(t *testing.T) {
		start := stateWith(2, "a")
		_ = UpdateAfterGeneration([]string{"b", "c"}, len(favorites), start)
		if !start.Equal(stateWith(2, "a")) {
			t.Errorf("Input state was mutated: %v", start.UsedIDs())
		}
	})
}

func TestRetain(t *testing.T) {
	s := stateWith(1, "a", "gone", "b")
	s.Retain([]string{"a", "b", "c"})
	if !reflect.DeepEqual(s.UsedIDs(), []string{"a", "b"}) {
		t.Errorf("UsedIDs() after Retain = %v", s.UsedIDs())
	}
}

func TestJSONRoundTrip(t *testing.T) {
	states := []State{
		{},
		NewState(),
		stateWith(7, "z", "a", "m"),
		stateWith(123456789, "recipe with spaces", "ünïcode"),
	}

	for _, s := range states {
		data, err := ToJSON(s)
		if err != nil {
			t.Fatalf("ToJSON failed: %v", err)
		}
		back, err := FromJSON(data)
		if err != nil {
			t.Fatalf("FromJSON(%s) failed: %v", data, err)
		}
		if !back.Equal(s) {
			t.Errorf("Round trip of %s lost data: got cycle %d ids %v", data, back.CycleNumber, back.UsedIDs())
		}
	}

	t.Run("StableEncoding", func(t *testing.T) {
		data, _ := ToJSON(stateWith(3, "b", "a"))
		want := `{"cycle_number":3,"used_recipe_ids":["a","b"]}`
		if string(data) != want {
			t.Errorf("ToJSON() = %s, want %s", data, want)
		}
	})
}

func TestFromJSONCorrupt(t *testing.T) {
	for _, input := range []string{"", "not json", `{"cycle_number":"x"}`, `{"cycle_number":-1}`} {
		_, err := FromJSON([]byte(input))
		if !errors.Is(err, ErrCorruptState) {
			t.Errorf("FromJSON(%q) error = %v, want ErrCorruptState", input, err)
		}
	}
}
