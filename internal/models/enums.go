package models

// MuscleGroup is one of the 13 muscle groups an exercise can target.
type MuscleGroup string

const (
	Chest      MuscleGroup = "chest"
	Back       MuscleGroup = "back"
	Shoulders  MuscleGroup = "shoulders"
	Biceps     MuscleGroup = "biceps"
	Triceps    MuscleGroup = "triceps"
	Forearms   MuscleGroup = "forearms"
	Quads      MuscleGroup = "quads"
	Hamstrings MuscleGroup = "hamstrings"
	Glutes     MuscleGroup = "glutes"
	Calves     MuscleGroup = "calves"
	Abs        MuscleGroup = "abs"
	Traps      MuscleGroup = "traps"
	Lats       MuscleGroup = "lats"
)

// MuscleGroups lists every muscle group in display order.
var MuscleGroups = []MuscleGroup{
	Chest, Back, Shoulders, Biceps, Triceps, Forearms, Quads,
	Hamstrings, Glutes, Calves, Abs, Traps, Lats,
}

// Valid reports whether g is a known muscle group.
func (g MuscleGroup) Valid() bool {
	for _, v := range MuscleGroups {
		if v == g {
			return true
		}
	}
	return false
}

// Equipment is the equipment category of an exercise.
type Equipment string

const (
	Barbell      Equipment = "barbell"
	Dumbbell     Equipment = "dumbbell"
	Cable        Equipment = "cable"
	Machine      Equipment = "machine"
	Bodyweight   Equipment = "bodyweight"
	SmithMachine Equipment = "smith-machine"
	EZBar        Equipment = "ez-bar"
	Kettlebell   Equipment = "kettlebell"
	Band         Equipment = "band"
	OtherEquip   Equipment = "other"
)

var EquipmentTypes = []Equipment{
	Barbell, Dumbbell, Cable, Machine, Bodyweight,
	SmithMachine, EZBar, Kettlebell, Band, OtherEquip,
}

func (e Equipment) Valid() bool {
	for _, v := range EquipmentTypes {
		if v == e {
			return true
		}
	}
	return false
}

// Structure is how the exercises of a template part are performed.
type Structure string

const (
	StraightSets Structure = "straight-sets"
	Circuit      Structure = "circuit"
	Superset     Structure = "superset"
)

var Structures = []Structure{StraightSets, Circuit, Superset}

func (s Structure) Valid() bool {
	for _, v := range Structures {
		if v == s {
			return true
		}
	}
	return false
}

// SpecialSetType hints at an intensity technique for a template exercise.
type SpecialSetType string

const (
	NormalSet  SpecialSetType = "normal"
	DropSet    SpecialSetType = "drop-set"
	ForcedReps SpecialSetType = "forced-reps"
	Partials   SpecialSetType = "partials"
	PausedReps SpecialSetType = "paused-reps"
	RestPause  SpecialSetType = "rest-pause"
)

var SpecialSetTypes = []SpecialSetType{NormalSet, DropSet, ForcedReps, Partials, PausedReps, RestPause}

// SplitFocus labels a day of a training split.
type SplitFocus string

const (
	FullBody      SplitFocus = "full-body"
	Upper         SplitFocus = "upper"
	Lower         SplitFocus = "lower"
	Push          SplitFocus = "push"
	Pull          SplitFocus = "pull"
	Legs          SplitFocus = "legs"
	ChestBack     SplitFocus = "chest-back"
	ShouldersArms SplitFocus = "shoulders-arms"
)

var SplitFocuses = []SplitFocus{FullBody, Upper, Lower, Push, Pull, Legs, ChestBack, ShouldersArms}

type WeightUnit string

const (
	Kilograms WeightUnit = "kg"
	Pounds    WeightUnit = "lbs"
)

func (u WeightUnit) Valid() bool {
	return u == Kilograms || u == Pounds
}

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeSystem
}

// DefaultRestSeconds is the rest period given to newly added template exercises.
const DefaultRestSeconds = 90
