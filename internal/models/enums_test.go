package models

import "testing"

// TestEnumCounts verifies the catalogue enumerations have the documented sizes.
func TestEnumCounts(t *testing.T) {
	tests := []struct {
		name string
		got  int
		want int
	}{
		{"muscle groups", len(MuscleGroups), 13},
		{"equipment", len(EquipmentTypes), 10},
		{"structures", len(Structures), 3},
		{"special sets", len(SpecialSetTypes), 6},
		{"split focus", len(SplitFocuses), 8},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

// TestValid verifies membership checks on the string enums.
func TestValid(t *testing.T) {
	if !Lats.Valid() {
		t.Error("lats should be valid")
	}
	if MuscleGroup("neck").Valid() {
		t.Error("neck should not be valid")
	}
	if !SmithMachine.Valid() || Equipment("rope").Valid() {
		t.Error("equipment validity mismatch")
	}
	if !Superset.Valid() || Structure("giant-set").Valid() {
		t.Error("structure validity mismatch")
	}
}

// TestSetVolume verifies volume is weight times reps.
func TestSetVolume(t *testing.T) {
	s := WorkoutSet{Weight: 62.5, Reps: 8}
	if got := s.Volume(); got != 500 {
		t.Errorf("Volume() = %v, want 500", got)
	}
}
