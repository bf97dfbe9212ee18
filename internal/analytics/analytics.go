// Package analytics derives progress statistics from logged workouts.
//
// The functions in this file are pure: they take a Dataset and an explicit
// clock and location, and never fail on sparse data.
package analytics

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/meltforce/liftlog/internal/models"
)

// Dataset is the raw material for every statistic.
type Dataset struct {
	Sessions  []models.WorkoutSession
	Sets      []models.WorkoutSet
	Exercises []models.Exercise
}

// setsBySession groups set rows by their session.
func (ds *Dataset) setsBySession() map[int64][]models.WorkoutSet {
	out := make(map[int64][]models.WorkoutSet)
	for _, s := range ds.Sets {
		out[s.SessionID] = append(out[s.SessionID], s)
	}
	return out
}

// completed returns completed sessions, most recent first.
func (ds *Dataset) completed() []models.WorkoutSession {
	var out []models.WorkoutSession
	for _, s := range ds.Sessions {
		if !s.Active() {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b models.WorkoutSession) int {
		return cmp.Or(b.StartedAt.Compare(a.StartedAt), cmp.Compare(b.ID, a.ID))
	})
	return out
}

func volume(sets []models.WorkoutSet) float64 {
	var v float64
	for _, s := range sets {
		v += s.Volume()
	}
	return v
}

// SessionSummary aggregates one completed session.
type SessionSummary struct {
	Session         models.WorkoutSession `json:"session"`
	TotalVolume     float64               `json:"totalVolume"`
	TotalSets       int                   `json:"totalSets"`
	DurationMinutes int                   `json:"durationMinutes"`
}

// SessionSummaries summarises completed sessions, most recent first.
func SessionSummaries(ds *Dataset) []SessionSummary {
	bySession := ds.setsBySession()
	sessions := ds.completed()
	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		sets := bySession[s.ID]
		out = append(out, SessionSummary{
			Session:         s,
			TotalVolume:     volume(sets),
			TotalSets:       len(sets),
			DurationMinutes: int(math.Round(s.CompletedAt.Sub(s.StartedAt).Minutes())),
		})
	}
	return out
}

// Range is a look-back window.
type Range string

const (
	Range7d   Range = "7d"
	Range30d  Range = "30d"
	Range90d  Range = "90d"
	Range180d Range = "180d"
	Range1y   Range = "1y"
	RangeAll  Range = "all"
)

var rangeDays = map[Range]int{
	Range7d:   7,
	Range30d:  30,
	Range90d:  90,
	Range180d: 180,
	Range1y:   365,
}

// ErrUnknownRange is returned by ParseRange for unsupported windows.
var ErrUnknownRange = errors.New("unknown time range")

// ParseRange parses a range name. The empty string means all.
func ParseRange(s string) (Range, error) {
	r := Range(s)
	if s == "" || r == RangeAll {
		return RangeAll, nil
	}
	if _, ok := rangeDays[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRange, s)
	}
	return r, nil
}

// Cutoff returns the earliest start time inside the range. ok is false for all.
func (r Range) Cutoff(now time.Time) (cutoff time.Time, ok bool) {
	days, ok := rangeDays[r]
	if !ok {
		return time.Time{}, false
	}
	return now.Add(-time.Duration(days) * 24 * time.Hour), true
}

// contains reports whether a session started at t falls inside the range.
func (r Range) contains(t, now time.Time) bool {
	cutoff, ok := r.Cutoff(now)
	return !ok || !t.Before(cutoff)
}

// FilterByRange keeps summaries whose session started inside the range.
func FilterByRange(summaries []SessionSummary, r Range, now time.Time) []SessionSummary {
	out := make([]SessionSummary, 0, len(summaries))
	for _, s := range summaries {
		if r.contains(s.Session.StartedAt, now) {
			out = append(out, s)
		}
	}
	return out
}

// AverageVolume is the rounded mean session volume, 0 when there are no sessions.
func AverageVolume(summaries []SessionSummary) float64 {
	if len(summaries) == 0 {
		return 0
	}
	var total float64
	for _, s := range summaries {
		total += s.TotalVolume
	}
	return math.Round(total / float64(len(summaries)))
}

// TrendPoint is one session on the volume chart.
type TrendPoint struct {
	Date   string  `json:"date"`
	Volume float64 `json:"volume"`
	Label  string  `json:"label"`
}

func dateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}

func dateLabel(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("Jan 2")
}

// TrendSeries turns most-recent-first summaries into an oldest-first series.
func TrendSeries(summaries []SessionSummary, loc *time.Location) []TrendPoint {
	out := make([]TrendPoint, 0, len(summaries))
	for i := len(summaries) - 1; i >= 0; i-- {
		s := summaries[i]
		out = append(out, TrendPoint{
			Date:   dateKey(s.Session.StartedAt, loc),
			Volume: math.Round(s.TotalVolume),
			Label:  dateLabel(s.Session.StartedAt, loc),
		})
	}
	return out
}

// StrengthPoint is an exercise's best effort in one session.
type StrengthPoint struct {
	Date          string  `json:"date"`
	Label         string  `json:"label"`
	MaxWeight     float64 `json:"maxWeight"`
	BestSetVolume float64 `json:"bestSetVolume"`
}

// StrengthCurve returns one point per completed session that logged the
// exercise, oldest first. MaxWeight and BestSetVolume may come from different sets.
func StrengthCurve(ds *Dataset, exerciseID int64, r Range, now time.Time, loc *time.Location) []StrengthPoint {
	bySession := make(map[int64][]models.WorkoutSet)
	for _, s := range ds.Sets {
		if s.ExerciseID == exerciseID {
			bySession[s.SessionID] = append(bySession[s.SessionID], s)
		}
	}
	sessions := ds.completed()
	slices.Reverse(sessions)

	var out []StrengthPoint
	for _, sess := range sessions {
		sets, ok := bySession[sess.ID]
		if !ok || !r.contains(sess.StartedAt, now) {
			continue
		}
		p := StrengthPoint{
			Date:          dateKey(sess.StartedAt, loc),
			Label:         dateLabel(sess.StartedAt, loc),
			MaxWeight:     math.Inf(-1),
			BestSetVolume: math.Inf(-1),
		}
		for _, s := range sets {
			p.MaxWeight = max(p.MaxWeight, s.Weight)
			p.BestSetVolume = max(p.BestSetVolume, s.Volume())
		}
		out = append(out, p)
	}
	return out
}

// MoodEnergyInsight is the mean volume of sessions rated with one mood and energy pair.
type MoodEnergyInsight struct {
	Mood         int     `json:"mood"`
	Energy       int     `json:"energy"`
	AvgVolume    float64 `json:"avgVolume"`
	SessionCount int     `json:"sessionCount"`
}

// MoodEnergyInsights groups rated completed sessions by (mood, energy),
// sorted by mood then energy.
func MoodEnergyInsights(ds *Dataset) []MoodEnergyInsight {
	type key struct{ mood, energy int }
	type acc struct {
		total float64
		count int
	}
	bySession := ds.setsBySession()
	groups := make(map[key]*acc)
	for _, s := range ds.Sessions {
		if s.Active() || s.Mood == nil || s.Energy == nil {
			continue
		}
		k := key{*s.Mood, *s.Energy}
		g, ok := groups[k]
		if !ok {
			g = &acc{}
			groups[k] = g
		}
		g.total += volume(bySession[s.ID])
		g.count++
	}

	out := make([]MoodEnergyInsight, 0, len(groups))
	for k, g := range groups {
		out = append(out, MoodEnergyInsight{
			Mood:         k.mood,
			Energy:       k.energy,
			AvgVolume:    math.Round(g.total / float64(g.count)),
			SessionCount: g.count,
		})
	}
	slices.SortFunc(out, func(a, b MoodEnergyInsight) int {
		return cmp.Or(cmp.Compare(a.Mood, b.Mood), cmp.Compare(a.Energy, b.Energy))
	})
	return out
}

// BestMoodEnergy picks the pairing with the highest average volume. Ties go
// to more sessions, then lower mood, then lower energy. Nil when empty.
func BestMoodEnergy(insights []MoodEnergyInsight) *MoodEnergyInsight {
	if len(insights) == 0 {
		return nil
	}
	best := slices.MinFunc(insights, func(a, b MoodEnergyInsight) int {
		return cmp.Or(
			cmp.Compare(b.AvgVolume, a.AvgVolume),
			cmp.Compare(b.SessionCount, a.SessionCount),
			cmp.Compare(a.Mood, b.Mood),
			cmp.Compare(a.Energy, b.Energy),
		)
	})
	return &best
}

// StreakData describes weekly training consistency.
type StreakData struct {
	CurrentStreak int      `json:"currentStreak"`
	LongestStreak int      `json:"longestStreak"`
	WorkoutDates  []string `json:"workoutDates"`
}

// weekStart returns midnight of the Monday on or before t in loc.
func weekStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, loc)
}

// Streaks counts consecutive Monday-anchored weeks with at least one
// completed session. The current streak stays alive through a week without
// training as long as the previous week had one.
func Streaks(ds *Dataset, now time.Time, loc *time.Location) StreakData {
	dates := make(map[string]struct{})
	weeks := make(map[string]time.Time)
	for _, s := range ds.Sessions {
		if s.Active() {
			continue
		}
		dates[dateKey(s.StartedAt, loc)] = struct{}{}
		w := weekStart(s.StartedAt, loc)
		weeks[w.Format(time.DateOnly)] = w
	}

	out := StreakData{WorkoutDates: make([]string, 0, len(dates))}
	for d := range dates {
		out.WorkoutDates = append(out.WorkoutDates, d)
	}
	slices.Sort(out.WorkoutDates)
	if len(weeks) == 0 {
		return out
	}

	keys := make([]string, 0, len(weeks))
	for k := range weeks {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	streak := 1
	out.LongestStreak = 1
	for i := 1; i < len(keys); i++ {
		prev := weeks[keys[i-1]]
		if weeks[keys[i]].Equal(prev.AddDate(0, 0, 7)) {
			streak++
		} else {
			streak = 1
		}
		out.LongestStreak = max(out.LongestStreak, streak)
	}

	has := func(t time.Time) bool {
		_, ok := weeks[t.Format(time.DateOnly)]
		return ok
	}
	week := weekStart(now, loc)
	if !has(week) {
		week = week.AddDate(0, 0, -7)
		if !has(week) {
			return out
		}
	}
	for has(week) {
		out.CurrentStreak++
		week = week.AddDate(0, 0, -7)
	}
	return out
}

// DefaultPlateauThreshold is the number of stalled sessions that raises an alert.
const DefaultPlateauThreshold = 3

// PlateauAlert flags an exercise whose top weight has stopped climbing.
type PlateauAlert struct {
	ExerciseID      int64   `json:"exerciseId"`
	ExerciseName    string  `json:"exerciseName"`
	StalledSessions int     `json:"stalledSessions"`
	LastWeight      float64 `json:"lastWeight"`
	LastReps        int     `json:"lastReps"`
}

// topSet returns the heaviest weight and the most reps done at that weight.
func topSet(sets []models.WorkoutSet) (weight float64, reps int) {
	weight = math.Inf(-1)
	for _, s := range sets {
		weight = max(weight, s.Weight)
	}
	for _, s := range sets {
		if s.Weight == weight {
			reps = max(reps, s.Reps)
		}
	}
	return weight, reps
}

// DetectPlateaus walks each exercise's completed sessions from the most
// recent back, at most minStalled+1 of them. The most recent session sets the
// reference top weight and reps. An older session with a heavier top weight,
// or the same weight for more reps, ends the walk; anything else counts as
// stalled. Exercises with at least minStalled stalled sessions are reported,
// sorted by exercise id. A minStalled below 1 uses the default.
func DetectPlateaus(ds *Dataset, minStalled int) []PlateauAlert {
	if minStalled < 1 {
		minStalled = DefaultPlateauThreshold
	}
	names := make(map[int64]string, len(ds.Exercises))
	for _, e := range ds.Exercises {
		names[e.ID] = e.Name
	}

	// Sessions most recent first; per exercise keep that order.
	sessions := ds.completed()
	byExercise := make(map[int64]map[int64][]models.WorkoutSet)
	for _, s := range ds.Sets {
		m, ok := byExercise[s.ExerciseID]
		if !ok {
			m = make(map[int64][]models.WorkoutSet)
			byExercise[s.ExerciseID] = m
		}
		m[s.SessionID] = append(m[s.SessionID], s)
	}

	var alerts []PlateauAlert
	for exerciseID, bySession := range byExercise {
		name, ok := names[exerciseID]
		if !ok {
			continue
		}
		var ordered [][]models.WorkoutSet
		for _, sess := range sessions {
			if sets, ok := bySession[sess.ID]; ok {
				ordered = append(ordered, sets)
			}
		}
		if len(ordered) < minStalled {
			continue
		}

		var refWeight float64
		var refReps, stalled int
		for i := 0; i < len(ordered) && i < minStalled+1; i++ {
			w, r := topSet(ordered[i])
			if i == 0 {
				refWeight, refReps, stalled = w, r, 1
				continue
			}
			if w > refWeight || (w == refWeight && r > refReps) {
				break
			}
			stalled++
		}
		if stalled >= minStalled {
			alerts = append(alerts, PlateauAlert{
				ExerciseID:      exerciseID,
				ExerciseName:    name,
				StalledSessions: stalled,
				LastWeight:      refWeight,
				LastReps:        refReps,
			})
		}
	}
	slices.SortFunc(alerts, func(a, b PlateauAlert) int { return cmp.Compare(a.ExerciseID, b.ExerciseID) })
	return alerts
}
