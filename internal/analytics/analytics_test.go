package analytics

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/meltforce/liftlog/internal/models"
)

// monday is the start of a training week.
var monday = time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)

type builder struct {
	ds     Dataset
	nextID int64
}

func ptr[T any](v T) *T { return &v }

// session adds a completed session starting at start and lasting minutes.
func (b *builder) session(start time.Time, minutes float64) int64 {
	b.nextID++
	end := start.Add(time.Duration(minutes * float64(time.Minute)))
	b.ds.Sessions = append(b.ds.Sessions, models.WorkoutSession{ID: b.nextID, StartedAt: start, CompletedAt: &end})
	return b.nextID
}

func (b *builder) active(start time.Time) int64 {
	b.nextID++
	b.ds.Sessions = append(b.ds.Sessions, models.WorkoutSession{ID: b.nextID, StartedAt: start})
	return b.nextID
}

func (b *builder) rate(sessionID int64, mood, energy int) {
	for i := range b.ds.Sessions {
		if b.ds.Sessions[i].ID == sessionID {
			b.ds.Sessions[i].Mood = ptr(mood)
			b.ds.Sessions[i].Energy = ptr(energy)
		}
	}
}

func (b *builder) set(sessionID, exerciseID int64, weight float64, reps int) {
	b.ds.Sets = append(b.ds.Sets, models.WorkoutSet{
		ID:         int64(len(b.ds.Sets) + 1),
		SessionID:  sessionID,
		ExerciseID: exerciseID,
		Weight:     weight,
		Reps:       reps,
	})
}

func (b *builder) exercise(id int64, name string) {
	b.ds.Exercises = append(b.ds.Exercises, models.Exercise{ID: id, Name: name})
}

// TestSessionSummaries verifies totals, rounding and ordering of completed sessions.
func TestSessionSummaries(t *testing.T) {
	var b builder
	first := b.session(monday.Add(9*time.Hour), 44.5)
	second := b.session(monday.Add(33*time.Hour), 60)
	b.active(monday.Add(50 * time.Hour))
	b.set(first, 1, 100, 5)
	b.set(first, 1, 100, 5)
	b.set(second, 2, 20, 10)
	b.set(second, 2, 0, 10)

	got := SessionSummaries(&b.ds)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Session.ID != second || got[1].Session.ID != first {
		t.Errorf("order = [%d %d], want [%d %d]", got[0].Session.ID, got[1].Session.ID, second, first)
	}
	if got[1].TotalVolume != 1000 || got[1].TotalSets != 2 {
		t.Errorf("first session = %v volume %d sets, want 1000 volume 2 sets", got[1].TotalVolume, got[1].TotalSets)
	}
	if got[1].DurationMinutes != 45 {
		t.Errorf("duration = %d, want 45", got[1].DurationMinutes)
	}
	if got[0].TotalVolume != 200 || got[0].TotalSets != 2 {
		t.Errorf("second session = %v volume %d sets, want 200 volume 2 sets", got[0].TotalVolume, got[0].TotalSets)
	}
	if got := AverageVolume(got); got != 600 {
		t.Errorf("AverageVolume = %v, want 600", got)
	}
}

// TestEmptyDataset verifies every statistic tolerates no data.
func TestEmptyDataset(t *testing.T) {
	ds := &Dataset{}
	if got := SessionSummaries(ds); len(got) != 0 {
		t.Errorf("SessionSummaries = %v, want empty", got)
	}
	if got := AverageVolume(nil); got != 0 {
		t.Errorf("AverageVolume = %v, want 0", got)
	}
	if got := TrendSeries(nil, time.UTC); len(got) != 0 {
		t.Errorf("TrendSeries = %v, want empty", got)
	}
	if got := StrengthCurve(ds, 1, RangeAll, monday, time.UTC); len(got) != 0 {
		t.Errorf("StrengthCurve = %v, want empty", got)
	}
	if got := MoodEnergyInsights(ds); len(got) != 0 {
		t.Errorf("MoodEnergyInsights = %v, want empty", got)
	}
	if got := BestMoodEnergy(nil); got != nil {
		t.Errorf("BestMoodEnergy = %v, want nil", got)
	}
	want := StreakData{WorkoutDates: []string{}}
	if diff := cmp.Diff(want, Streaks(ds, monday, time.UTC)); diff != "" {
		t.Errorf("Streaks (-want +got):\n%s", diff)
	}
	if got := DetectPlateaus(ds, 3); len(got) != 0 {
		t.Errorf("DetectPlateaus = %v, want empty", got)
	}
}

// TestParseRange verifies known ranges parse and unknown ones fail.
func TestParseRange(t *testing.T) {
	for _, s := range []string{"7d", "30d", "90d", "180d", "1y", "all", ""} {
		if _, err := ParseRange(s); err != nil {
			t.Errorf("ParseRange(%q): %v", s, err)
		}
	}
	for _, s := range []string{"2w", "1d", "ALL"} {
		if _, err := ParseRange(s); !errors.Is(err, ErrUnknownRange) {
			t.Errorf("ParseRange(%q) error = %v, want ErrUnknownRange", s, err)
		}
	}
}

// TestFilterByRangeMonotonic verifies wider ranges never drop sessions.
func TestFilterByRangeMonotonic(t *testing.T) {
	now := monday.AddDate(0, 0, 2)
	var b builder
	for _, daysAgo := range []int{1, 6, 8, 29, 31, 89, 91, 179, 200, 364, 366, 800} {
		b.session(now.AddDate(0, 0, -daysAgo), 30)
	}
	summaries := SessionSummaries(&b.ds)

	ranges := []Range{Range7d, Range30d, Range90d, Range180d, Range1y, RangeAll}
	want := []int{2, 4, 6, 8, 10, 12}
	prev := 0
	for i, r := range ranges {
		got := len(FilterByRange(summaries, r, now))
		if got != want[i] {
			t.Errorf("%s: %d sessions, want %d", r, got, want[i])
		}
		if got < prev {
			t.Errorf("%s: %d sessions, fewer than narrower range %d", r, got, prev)
		}
		prev = got
	}
}

// TestTrendSeries verifies oldest-first order, dates and labels.
func TestTrendSeries(t *testing.T) {
	var b builder
	a := b.session(monday.Add(10*time.Hour), 30)
	c := b.session(monday.AddDate(0, 0, 2).Add(10*time.Hour), 30)
	b.set(a, 1, 10.4, 10)
	b.set(c, 1, 10.06, 10)

	got := TrendSeries(SessionSummaries(&b.ds), time.UTC)
	want := []TrendPoint{
		{Date: "2026-05-04", Volume: 104, Label: "May 4"},
		{Date: "2026-05-06", Volume: 101, Label: "May 6"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TrendSeries (-want +got):\n%s", diff)
	}
}

// TestStrengthCurve verifies independent maxima, ordering and range filtering.
func TestStrengthCurve(t *testing.T) {
	now := monday.AddDate(0, 0, 60)
	var b builder
	old := b.session(now.AddDate(0, 0, -40), 30)
	recent := b.session(now.AddDate(0, 0, -3), 30)
	skipped := b.session(now.AddDate(0, 0, -2), 30)
	open := b.active(now.AddDate(0, 0, -1))
	b.set(old, 1, 100, 3)
	b.set(old, 1, 80, 10)
	b.set(recent, 1, 110, 2)
	b.set(skipped, 2, 200, 5)
	b.set(open, 1, 150, 5)

	got := StrengthCurve(&b.ds, 1, RangeAll, now, time.UTC)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].MaxWeight != 100 || got[0].BestSetVolume != 800 {
		t.Errorf("old point = %v/%v, want 100/800", got[0].MaxWeight, got[0].BestSetVolume)
	}
	if got[1].MaxWeight != 110 || got[1].BestSetVolume != 220 {
		t.Errorf("recent point = %v/%v, want 110/220", got[1].MaxWeight, got[1].BestSetVolume)
	}

	got = StrengthCurve(&b.ds, 1, Range30d, now, time.UTC)
	if len(got) != 1 || got[0].MaxWeight != 110 {
		t.Errorf("30d curve = %+v, want only the recent session", got)
	}
}

// TestMoodEnergyInsights verifies grouping, rounding and ordering.
func TestMoodEnergyInsights(t *testing.T) {
	var b builder
	add := func(mood, energy int, vol float64) {
		id := b.session(monday, 30)
		b.rate(id, mood, energy)
		b.set(id, 1, vol, 1)
	}
	add(7, 8, 100)
	add(7, 8, 101)
	add(3, 4, 500)
	add(7, 2, 50)
	unrated := b.session(monday, 30)
	b.set(unrated, 1, 1000, 1)

	got := MoodEnergyInsights(&b.ds)
	want := []MoodEnergyInsight{
		{Mood: 3, Energy: 4, AvgVolume: 500, SessionCount: 1},
		{Mood: 7, Energy: 2, AvgVolume: 50, SessionCount: 1},
		{Mood: 7, Energy: 8, AvgVolume: 101, SessionCount: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MoodEnergyInsights (-want +got):\n%s", diff)
	}
}

// TestBestMoodEnergyTieBreak verifies ties go to more sessions, then lower mood and energy.
func TestBestMoodEnergyTieBreak(t *testing.T) {
	tests := []struct {
		name     string
		insights []MoodEnergyInsight
		want     MoodEnergyInsight
	}{
		{
			name: "highest volume",
			insights: []MoodEnergyInsight{
				{Mood: 5, Energy: 5, AvgVolume: 100, SessionCount: 9},
				{Mood: 9, Energy: 9, AvgVolume: 200, SessionCount: 1},
			},
			want: MoodEnergyInsight{Mood: 9, Energy: 9, AvgVolume: 200, SessionCount: 1},
		},
		{
			name: "more sessions",
			insights: []MoodEnergyInsight{
				{Mood: 2, Energy: 2, AvgVolume: 200, SessionCount: 1},
				{Mood: 9, Energy: 9, AvgVolume: 200, SessionCount: 3},
			},
			want: MoodEnergyInsight{Mood: 9, Energy: 9, AvgVolume: 200, SessionCount: 3},
		},
		{
			name: "lower mood then energy",
			insights: []MoodEnergyInsight{
				{Mood: 6, Energy: 1, AvgVolume: 200, SessionCount: 2},
				{Mood: 4, Energy: 9, AvgVolume: 200, SessionCount: 2},
				{Mood: 4, Energy: 3, AvgVolume: 200, SessionCount: 2},
			},
			want: MoodEnergyInsight{Mood: 4, Energy: 3, AvgVolume: 200, SessionCount: 2},
		},
	}
	for _, tt := range tests {
		got := BestMoodEnergy(tt.insights)
		if got == nil || *got != tt.want {
			t.Errorf("%s: BestMoodEnergy = %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

// TestStreaks verifies current and longest streaks with a gap week.
func TestStreaks(t *testing.T) {
	var b builder
	b.session(monday.Add(18*time.Hour), 60)                    // W
	b.session(monday.AddDate(0, 0, 2).Add(18*time.Hour), 60)   // W again
	b.session(monday.AddDate(0, 0, -1).Add(10*time.Hour), 60)  // Sunday of W-1
	b.session(monday.AddDate(0, 0, -21).Add(10*time.Hour), 60) // W-3
	b.active(monday.AddDate(0, 0, -14))                        // W-2, still open

	tests := []struct {
		name        string
		now         time.Time
		wantCurrent int
	}{
		{"this week", monday.AddDate(0, 0, 3), 2},
		{"next week without training", monday.AddDate(0, 0, 9), 2},
		{"two weeks later", monday.AddDate(0, 0, 14), 0},
	}
	for _, tt := range tests {
		got := Streaks(&b.ds, tt.now, time.UTC)
		if got.CurrentStreak != tt.wantCurrent {
			t.Errorf("%s: current = %d, want %d", tt.name, got.CurrentStreak, tt.wantCurrent)
		}
		if got.LongestStreak != 2 {
			t.Errorf("%s: longest = %d, want 2", tt.name, got.LongestStreak)
		}
		if got.CurrentStreak > got.LongestStreak {
			t.Errorf("%s: current %d exceeds longest %d", tt.name, got.CurrentStreak, got.LongestStreak)
		}
	}

	got := Streaks(&b.ds, monday, time.UTC)
	want := []string{"2026-04-13", "2026-05-03", "2026-05-04", "2026-05-06"}
	if diff := cmp.Diff(want, got.WorkoutDates); diff != "" {
		t.Errorf("workout dates (-want +got):\n%s", diff)
	}
}

// TestStreaksLocation verifies week boundaries follow the configured zone.
func TestStreaksLocation(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("no tzdata: %v", err)
	}
	var b builder
	// Sunday 23:30 UTC is already Monday in Berlin.
	b.session(monday.Add(-30*time.Minute), 30)
	b.session(monday.AddDate(0, 0, 7).Add(10*time.Hour), 30)

	if got := Streaks(&b.ds, monday.AddDate(0, 0, 8), time.UTC); got.LongestStreak != 1 {
		t.Errorf("UTC longest = %d, want 1", got.LongestStreak)
	}
	if got := Streaks(&b.ds, monday.AddDate(0, 0, 8), berlin); got.LongestStreak != 2 {
		t.Errorf("Berlin longest = %d, want 2", got.LongestStreak)
	}
}

// TestDetectPlateaus verifies the stall walk.
func TestDetectPlateaus(t *testing.T) {
	type top struct {
		weight float64
		reps   int
	}
	tests := []struct {
		name        string
		tops        []top // most recent first
		wantStalled int   // 0 means no alert
	}{
		{"flat weight", []top{{100, 5}, {100, 5}, {100, 5}, {100, 5}}, 4},
		{"heavier most recent", []top{{105, 5}, {100, 5}, {100, 5}, {100, 5}}, 4},
		{"older heavier", []top{{100, 5}, {105, 5}, {100, 5}, {100, 5}}, 0},
		{"older more reps", []top{{100, 5}, {100, 6}, {100, 5}}, 0},
		{"stall then progress", []top{{100, 5}, {100, 5}, {100, 5}, {110, 1}}, 3},
		{"too few sessions", []top{{100, 5}, {100, 5}}, 0},
		{"walk capped", []top{{100, 5}, {90, 5}, {90, 5}, {90, 5}, {90, 5}, {90, 5}}, 4},
	}
	for _, tt := range tests {
		var b builder
		b.exercise(1, "Squat")
		for i, tp := range tt.tops {
			id := b.session(monday.AddDate(0, 0, -7*i), 30)
			b.set(id, 1, tp.weight-10, tp.reps+3)
			b.set(id, 1, tp.weight, tp.reps)
		}

		got := DetectPlateaus(&b.ds, 3)
		if tt.wantStalled == 0 {
			if len(got) != 0 {
				t.Errorf("%s: alerts = %+v, want none", tt.name, got)
			}
			continue
		}
		if len(got) != 1 {
			t.Fatalf("%s: alerts = %d, want 1", tt.name, len(got))
		}
		want := PlateauAlert{
			ExerciseID:      1,
			ExerciseName:    "Squat",
			StalledSessions: tt.wantStalled,
			LastWeight:      tt.tops[0].weight,
			LastReps:        tt.tops[0].reps,
		}
		if diff := cmp.Diff(want, got[0]); diff != "" {
			t.Errorf("%s: alert (-want +got):\n%s", tt.name, diff)
		}
	}
}

// TestDetectPlateausSkips verifies open sessions and unknown exercises are ignored.
func TestDetectPlateausSkips(t *testing.T) {
	var b builder
	b.exercise(2, "Bench")
	for i := 0; i < 3; i++ {
		id := b.session(monday.AddDate(0, 0, -7*i), 30)
		b.set(id, 1, 100, 5) // not in the catalogue
		b.set(id, 2, 80, 5)
	}
	open := b.active(monday.AddDate(0, 0, 1))
	b.set(open, 2, 120, 5)

	got := DetectPlateaus(&b.ds, 0)
	if len(got) != 1 || got[0].ExerciseID != 2 || got[0].LastWeight != 80 {
		t.Errorf("alerts = %+v, want one for exercise 2 at 80", got)
	}
}
