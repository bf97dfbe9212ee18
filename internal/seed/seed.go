// Package seed installs the built-in exercise catalogue and plan templates.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/storage"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog is the built-in data set.
type Catalog struct {
	Version   int            `yaml:"version"`
	Exercises []ExerciseSeed `yaml:"exercises"`
	Templates []TemplateSeed `yaml:"templates"`
}

type ExerciseSeed struct {
	Name        string               `yaml:"name"`
	MuscleGroup models.MuscleGroup   `yaml:"muscle_group"`
	Secondary   []models.MuscleGroup `yaml:"secondary"`
	Equipment   models.Equipment     `yaml:"equipment"`
}

type TemplateSeed struct {
	Name            string              `yaml:"name"`
	Frequency       int                 `yaml:"frequency"`
	Focus           string              `yaml:"focus"`
	DurationMinutes int                 `yaml:"duration_minutes"`
	SplitDays       []models.SplitFocus `yaml:"split_days"`
	Description     string              `yaml:"description"`
	Days            []DaySeed           `yaml:"days"`
}

type DaySeed struct {
	DayIndex int        `yaml:"day_index"`
	Parts    []PartSeed `yaml:"parts"`
}

type PartSeed struct {
	Name      string           `yaml:"name"`
	Structure models.Structure `yaml:"structure"`
	Exercises []SlotSeed       `yaml:"exercises"`
}

// SlotSeed names either a concrete exercise or a muscle group choice.
type SlotSeed struct {
	Exercise  string                `yaml:"exercise"`
	Choice    models.MuscleGroup    `yaml:"choice"`
	Sets      int                   `yaml:"sets"`
	Reps      string                `yaml:"reps"`
	Rest      int                   `yaml:"rest"`
	Weight    string                `yaml:"weight"`
	Intensity string                `yaml:"intensity"`
	Special   models.SpecialSetType `yaml:"special"`
	Notes     string                `yaml:"notes"`
	Order     int                   `yaml:"order"`
}

// LoadCatalog parses the embedded catalogue.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog parses and validates a catalogue document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if cat.Version <= 0 {
		return nil, fmt.Errorf("catalog version must be positive, got %d", cat.Version)
	}
	for _, e := range cat.Exercises {
		if !e.MuscleGroup.Valid() {
			return nil, fmt.Errorf("exercise %q: unknown muscle group %q", e.Name, e.MuscleGroup)
		}
		if !e.Equipment.Valid() {
			return nil, fmt.Errorf("exercise %q: unknown equipment %q", e.Name, e.Equipment)
		}
	}
	for _, t := range cat.Templates {
		for _, d := range t.Days {
			for _, p := range d.Parts {
				if p.Structure != "" && !p.Structure.Valid() {
					return nil, fmt.Errorf("template %q part %q: unknown structure %q", t.Name, p.Name, p.Structure)
				}
				for _, s := range p.Exercises {
					if (s.Exercise == "") == (s.Choice == "") {
						return nil, fmt.Errorf("template %q part %q: slot %d needs exactly one of exercise or choice", t.Name, p.Name, s.Order)
					}
				}
			}
		}
	}
	return &cat, nil
}

// Result reports what a seed run changed.
type Result struct {
	ExercisesSeeded  int  `json:"exercises_seeded"`
	TemplatesSeeded  int  `json:"templates_seeded"`
	TemplatesUpdated int  `json:"templates_updated"`
	UpToDate         bool `json:"up_to_date"`
}

// Seed installs the catalogue in one transaction. Exercises and default
// preferences are written on first run. When the stored seed version differs,
// templates are rebuilt if no session exists yet; otherwise template metadata
// is updated in place (keeping ids referenced by history) and only templates
// with new names are added.
func Seed(ctx context.Context, db *storage.DB, cat *Catalog, log *slog.Logger) (*Result, error) {
	res := &Result{}
	err := db.WithTx(ctx, func(tx *storage.Tx) error {
		nameToID, err := seedExercises(ctx, tx, cat, res)
		if err != nil {
			return err
		}

		prefs, err := tx.GetPreferences(ctx)
		if err != nil {
			return err
		}
		stored := 0
		if prefs != nil && prefs.SeedVersion != nil {
			stored = *prefs.SeedVersion
		}
		if stored == cat.Version {
			res.UpToDate = true
			return nil
		}

		sessions, err := tx.Count(ctx, storage.TableWorkoutSessions)
		if err != nil {
			return err
		}
		if sessions == 0 {
			log.Info("seed version changed, re-seeding templates", "from", stored, "to", cat.Version)
			if err := tx.ClearTemplates(ctx); err != nil {
				return err
			}
			for _, t := range cat.Templates {
				if err := seedTemplate(ctx, tx, t, nameToID); err != nil {
					return err
				}
				res.TemplatesSeeded++
			}
		} else {
			log.Info("seed version changed, updating template metadata", "from", stored, "to", cat.Version, "sessions", sessions)
			if err := refreshTemplates(ctx, tx, cat, nameToID, res); err != nil {
				return err
			}
		}

		return stampVersion(ctx, tx, prefs, cat.Version)
	})
	if err != nil {
		return nil, fmt.Errorf("seeding database: %w", err)
	}
	return res, nil
}

func seedExercises(ctx context.Context, tx *storage.Tx, cat *Catalog, res *Result) (map[string]int64, error) {
	nameToID := make(map[string]int64)
	existing, err := tx.ListExercises(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		for _, e := range existing {
			nameToID[strings.ToLower(e.Name)] = e.ID
		}
		return nameToID, nil
	}

	for _, s := range cat.Exercises {
		e := models.Exercise{
			Name:             s.Name,
			MuscleGroup:      s.MuscleGroup,
			SecondaryMuscles: s.Secondary,
			Equipment:        s.Equipment,
		}
		if err := tx.InsertExercise(ctx, &e); err != nil {
			return nil, err
		}
		nameToID[strings.ToLower(e.Name)] = e.ID
		res.ExercisesSeeded++
	}

	prefs, err := tx.GetPreferences(ctx)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		// seedVersion stays unset until templates are in place.
		p := models.DefaultPreferences()
		if err := tx.SavePreferences(ctx, &p); err != nil {
			return nil, err
		}
	}
	return nameToID, nil
}

func refreshTemplates(ctx context.Context, tx *storage.Tx, cat *Catalog, nameToID map[string]int64, res *Result) error {
	existing, err := tx.ListTemplates(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]models.WorkoutTemplate, len(existing))
	for _, t := range existing {
		byName[t.Name] = t
	}
	for _, t := range cat.Templates {
		cur, ok := byName[t.Name]
		if !ok {
			if err := seedTemplate(ctx, tx, t, nameToID); err != nil {
				return err
			}
			res.TemplatesSeeded++
			continue
		}
		meta := templateRow(t)
		meta.ID = cur.ID
		if err := tx.UpdateTemplate(ctx, meta); err != nil {
			return err
		}
		res.TemplatesUpdated++
	}
	return nil
}

func templateRow(t TemplateSeed) models.WorkoutTemplate {
	row := models.WorkoutTemplate{
		Name:            t.Name,
		Frequency:       t.Frequency,
		Focus:           t.Focus,
		DurationMinutes: t.DurationMinutes,
		SplitDays:       t.SplitDays,
	}
	if t.Description != "" {
		row.Description = &t.Description
	}
	return row
}

func seedTemplate(ctx context.Context, tx *storage.Tx, t TemplateSeed, nameToID map[string]int64) error {
	tpl := templateRow(t)
	if err := tx.InsertTemplate(ctx, &tpl); err != nil {
		return err
	}
	for _, day := range t.Days {
		for partOrder, p := range day.Parts {
			part := models.TemplatePart{
				TemplateID: tpl.ID,
				DayIndex:   day.DayIndex,
				PartOrder:  partOrder,
				Name:       p.Name,
				Structure:  p.Structure,
			}
			if err := tx.InsertPart(ctx, &part); err != nil {
				return err
			}
			for _, slot := range p.Exercises {
				te, err := slotRow(slot, part.ID, nameToID)
				if err != nil {
					return fmt.Errorf("template %q: %w", t.Name, err)
				}
				if err := tx.InsertTemplateExercise(ctx, &te); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func slotRow(s SlotSeed, partID int64, nameToID map[string]int64) (models.TemplateExercise, error) {
	te := models.TemplateExercise{
		PartID:      partID,
		TargetSets:  s.Sets,
		TargetReps:  s.Reps,
		RestSeconds: s.Rest,
		Order:       s.Order,
	}
	if te.RestSeconds == 0 {
		te.RestSeconds = models.DefaultRestSeconds
	}
	if s.Exercise != "" {
		id, ok := nameToID[strings.ToLower(s.Exercise)]
		if !ok {
			return te, fmt.Errorf("exercise not found during seed: %q", s.Exercise)
		}
		te.ExerciseID = &id
	} else {
		mg := s.Choice
		te.IsChoice = true
		te.ChoiceMuscleGroup = &mg
	}
	te.WeightDescriptor = optional(s.Weight)
	te.IntensityDescriptor = optional(s.Intensity)
	te.Notes = optional(s.Notes)
	if s.Special != "" {
		special := s.Special
		te.SpecialSetType = &special
	}
	return te, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stampVersion(ctx context.Context, tx *storage.Tx, prefs *models.UserPreferences, version int) error {
	p := models.DefaultPreferences()
	if prefs != nil {
		p = *prefs
	}
	p.SeedVersion = &version
	return tx.SavePreferences(ctx, &p)
}
