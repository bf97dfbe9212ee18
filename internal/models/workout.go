package models

import "time"

// Exercise is a catalogue entry. Exercises referenced by history are never deleted.
type Exercise struct {
	ID               int64         `json:"id"`
	Name             string        `json:"name"`
	MuscleGroup      MuscleGroup   `json:"muscleGroup"`
	SecondaryMuscles []MuscleGroup `json:"secondaryMuscles,omitempty"`
	Equipment        Equipment     `json:"equipment"`
	IsCustom         bool          `json:"isCustom"`
}

// WorkoutTemplate is a training plan made of parts spread over split days.
type WorkoutTemplate struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	Frequency       int          `json:"frequency"`
	Focus           string       `json:"focus"`
	DurationMinutes int          `json:"durationMinutes"`
	SplitDays       []SplitFocus `json:"splitDays"`
	Description     *string      `json:"description,omitempty"`
}

// TemplatePart is one block of a template day.
type TemplatePart struct {
	ID         int64     `json:"id"`
	TemplateID int64     `json:"templateId"`
	DayIndex   int       `json:"dayIndex"`
	PartOrder  int       `json:"partOrder"`
	Name       string    `json:"name"`
	Structure  Structure `json:"structure,omitempty"`
}

// TemplateExercise is a slot in a part: a concrete exercise or a muscle group
// choice resolved at workout time.
type TemplateExercise struct {
	ID                  int64           `json:"id"`
	PartID              int64           `json:"partId"`
	ExerciseID          *int64          `json:"exerciseId,omitempty"`
	IsChoice            bool            `json:"isChoice"`
	ChoiceMuscleGroup   *MuscleGroup    `json:"choiceMuscleGroup,omitempty"`
	TargetSets          int             `json:"targetSets"`
	TargetReps          string          `json:"targetReps"`
	RestSeconds         int             `json:"restSeconds"`
	WeightDescriptor    *string         `json:"weightDescriptor,omitempty"`
	IntensityDescriptor *string         `json:"intensityDescriptor,omitempty"`
	SpecialSetType      *SpecialSetType `json:"specialSetType,omitempty"`
	Notes               *string         `json:"notes,omitempty"`
	Order               int             `json:"order"`
}

// WorkoutSession is one workout attempt. A nil CompletedAt marks it active.
type WorkoutSession struct {
	ID          int64      `json:"id"`
	TemplateID  int64      `json:"templateId"`
	DayIndex    int        `json:"dayIndex"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Mood        *int       `json:"mood,omitempty"`
	Energy      *int       `json:"energy,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// Active reports whether the session has not been completed.
func (s WorkoutSession) Active() bool {
	return s.CompletedAt == nil
}

// WorkoutSet is a single logged set.
type WorkoutSet struct {
	ID                 int64     `json:"id"`
	SessionID          int64     `json:"sessionId"`
	ExerciseID         int64     `json:"exerciseId"`
	TemplateExerciseID *int64    `json:"templateExerciseId,omitempty"`
	SetNumber          int       `json:"setNumber"`
	Weight             float64   `json:"weight"`
	Reps               int       `json:"reps"`
	RPE                *float64  `json:"rpe,omitempty"`
	PartialsCount      *int      `json:"partialsCount,omitempty"`
	DropSetWeight      *float64  `json:"dropSetWeight,omitempty"`
	DropSetReps        *int      `json:"dropSetReps,omitempty"`
	ForcedRepsCount    *int      `json:"forcedRepsCount,omitempty"`
	IsPausedReps       *bool     `json:"isPausedReps,omitempty"`
	CompletedAt        time.Time `json:"completedAt"`
}

// Volume is weight × reps.
func (s WorkoutSet) Volume() float64 {
	return s.Weight * float64(s.Reps)
}

// PreferencesID is the id of the singleton preferences row.
const PreferencesID int64 = 1

// UserPreferences is the singleton settings row.
type UserPreferences struct {
	ID               int64      `json:"id"`
	WeightUnit       WeightUnit `json:"weightUnit"`
	ActiveTemplateID *int64     `json:"activeTemplateId,omitempty"`
	Theme            Theme      `json:"theme"`
	RestTimerEnabled bool       `json:"restTimerEnabled"`
	ShowRPEPrompt    bool       `json:"showRpePrompt"`
	ShowMoodPrompt   bool       `json:"showMoodPrompt"`
	DefaultIncrement float64    `json:"defaultIncrement"`
	SeedVersion      *int       `json:"seedVersion,omitempty"`
}

// DefaultPreferences returns the preferences written on first run.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		ID:               PreferencesID,
		WeightUnit:       Kilograms,
		Theme:            ThemeSystem,
		RestTimerEnabled: true,
		ShowRPEPrompt:    true,
		ShowMoodPrompt:   true,
		DefaultIncrement: 2.5,
	}
}
