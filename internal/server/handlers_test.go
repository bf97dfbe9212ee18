package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/meltforce/liftlog/internal/analytics"
	"github.com/meltforce/liftlog/internal/backup"
	"github.com/meltforce/liftlog/internal/ingest"
	"github.com/meltforce/liftlog/internal/ingest/alpha"
	"github.com/meltforce/liftlog/internal/journal"
	"github.com/meltforce/liftlog/internal/live"
	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/planedit"
	"github.com/meltforce/liftlog/internal/seed"
	"github.com/meltforce/liftlog/internal/storage"
	"github.com/meltforce/liftlog/internal/storage/storagetest"
	"github.com/meltforce/liftlog/internal/telemetry"
)

type fixture struct {
	db      *storage.DB
	journal *journal.Journal
	srv     *Server
	ts      *httptest.Server
}

// newFixture seeds a database and serves the full API over httptest.
func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	ctx := context.Background()
	log := storagetest.Logger()

	db := storagetest.New(t)
	hub := live.NewHub()
	db.SetNotifier(hub)

	cat, err := seed.LoadCatalog()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := seed.Seed(ctx, db, cat, log); err != nil {
		t.Fatal(err)
	}

	slot, err := backup.OpenSlot(filepath.Join(t.TempDir(), "slot.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = slot.Close() })

	m, reg := telemetry.NewTestMetrics()
	bk := backup.New(db, slot, log, backup.WithMetrics(m))
	j := journal.New(db, bk, log, journal.WithMetrics(m))
	t.Cleanup(j.Wait)

	srv := New(Deps{
		DB:        db,
		Journal:   j,
		Editor:    planedit.New(db, log, planedit.WithMetrics(m)),
		Analytics: analytics.NewEngine(db, log),
		Backup:    bk,
		Alpha:     alpha.NewProvider(db, time.UTC, log),
		Hub:       hub,
		Metrics:   m,
		Registry:  reg,
	}, opts, log)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return &fixture{db: db, journal: j, srv: srv, ts: ts}
}

// do sends a request with an optional JSON body and returns the response
// with its body read.
func (f *fixture) do(t *testing.T, method, path string, body any, header ...string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.ts.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := f.ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func (f *fixture) mustStatus(t *testing.T, method, path string, body any, want int) []byte {
	t.Helper()
	resp, data := f.do(t, method, path, body)
	if resp.StatusCode != want {
		t.Fatalf("%s %s: status = %d, want %d (%s)", method, path, resp.StatusCode, want, data)
	}
	return data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decoding %s: %v", data, err)
	}
	return v
}

func (f *fixture) exerciseID(t *testing.T, name string) int64 {
	t.Helper()
	exs := decode[[]models.Exercise](t, f.mustStatus(t, http.MethodGet, "/api/v1/exercises", nil, http.StatusOK))
	for _, e := range exs {
		if e.Name == name {
			return e.ID
		}
	}
	t.Fatalf("exercise %q not in catalogue", name)
	return 0
}

// TestSessionLifecycle drives a workout from start to rating over HTTP.
func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t, Options{})
	squat := f.exerciseID(t, "Barbell Squat")

	active := decode[map[string]*models.WorkoutSession](t, f.mustStatus(t, http.MethodGet, "/api/v1/sessions/active", nil, http.StatusOK))
	if active["session"] != nil {
		t.Fatalf("active session = %+v, want none", active["session"])
	}

	sid := decode[map[string]int64](t, f.mustStatus(t, http.MethodPost, "/api/v1/sessions",
		startSessionRequest{TemplateID: 1, DayIndex: 0}, http.StatusCreated))["id"]

	// Only one open session.
	f.mustStatus(t, http.MethodPost, "/api/v1/sessions", startSessionRequest{TemplateID: 1, DayIndex: 1}, http.StatusConflict)

	path := "/api/v1/sessions/" + itoa(sid) + "/sets"
	f.mustStatus(t, http.MethodPost, path, map[string]any{"exerciseId": squat, "weight": 100, "reps": 5}, http.StatusCreated)
	setID := decode[map[string]int64](t, f.mustStatus(t, http.MethodPost, path,
		map[string]any{"exerciseId": squat, "weight": 100, "reps": 4, "rpe": 8.5}, http.StatusCreated))["id"]
	f.mustStatus(t, http.MethodPost, path, map[string]any{"exerciseId": squat, "weight": 100, "reps": 4, "rpe": 11}, http.StatusBadRequest)

	f.mustStatus(t, http.MethodPatch, "/api/v1/sets/"+itoa(setID), map[string]any{"reps": 5}, http.StatusNoContent)

	sets := decode[[]models.WorkoutSet](t, f.mustStatus(t, http.MethodGet, path, nil, http.StatusOK))
	if got := []int{sets[0].SetNumber, sets[1].SetNumber}; !cmp.Equal(got, []int{1, 2}) {
		t.Errorf("set numbers = %v, want [1 2]", got)
	}
	if sets[1].Reps != 5 {
		t.Errorf("edited reps = %d, want 5", sets[1].Reps)
	}

	f.mustStatus(t, http.MethodPost, "/api/v1/sessions/"+itoa(sid)+"/complete", nil, http.StatusNoContent)
	f.mustStatus(t, http.MethodPost, "/api/v1/sessions/"+itoa(sid)+"/mood", rateSessionRequest{Mood: 11, Energy: 5}, http.StatusBadRequest)
	f.mustStatus(t, http.MethodPost, "/api/v1/sessions/"+itoa(sid)+"/mood", rateSessionRequest{Mood: 8, Energy: 7, Notes: "solid"}, http.StatusNoContent)

	summaries := decode[[]analytics.SessionSummary](t, f.mustStatus(t, http.MethodGet, "/api/v1/analytics/summaries?range=7d", nil, http.StatusOK))
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}
	if summaries[0].TotalVolume != 1000 || summaries[0].TotalSets != 2 {
		t.Errorf("summary = %+v, want volume 1000 over 2 sets", summaries[0])
	}

	prev := decode[[]models.WorkoutSet](t, f.mustStatus(t, http.MethodGet, "/api/v1/templates/1/days/0/previous", nil, http.StatusOK))
	if len(prev) != 2 {
		t.Errorf("previous sets = %d, want 2", len(prev))
	}

	f.journal.Wait()
	meta := decode[backup.SnapshotMeta](t, f.mustStatus(t, http.MethodGet, "/api/v1/backup/snapshot", nil, http.StatusOK))
	if meta.SessionCount != 1 || meta.SetCount != 2 {
		t.Errorf("snapshot meta = %+v, want 1 session and 2 sets", meta)
	}
}

// TestStartSessionValidation verifies unknown templates and days are rejected.
func TestStartSessionValidation(t *testing.T) {
	f := newFixture(t, Options{})
	f.mustStatus(t, http.MethodPost, "/api/v1/sessions", startSessionRequest{TemplateID: 999}, http.StatusNotFound)
	f.mustStatus(t, http.MethodPost, "/api/v1/sessions", startSessionRequest{TemplateID: 1, DayIndex: 7}, http.StatusBadRequest)
	f.mustStatus(t, http.MethodPost, "/api/v1/sessions", map[string]any{"templateId": 1, "bogus": true}, http.StatusBadRequest)
	f.mustStatus(t, http.MethodPost, "/api/v1/sessions/abc/complete", nil, http.StatusBadRequest)
	f.mustStatus(t, http.MethodPost, "/api/v1/sessions/42/complete", nil, http.StatusNotFound)
}

// TestWritesRequireAPIKey verifies the key guards writes but not reads.
func TestWritesRequireAPIKey(t *testing.T) {
	f := newFixture(t, Options{APIKey: "secret"})

	f.mustStatus(t, http.MethodGet, "/api/v1/templates", nil, http.StatusOK)
	f.mustStatus(t, http.MethodPost, "/api/v1/sessions", startSessionRequest{TemplateID: 1}, http.StatusUnauthorized)

	resp, body := f.do(t, http.MethodPost, "/api/v1/sessions", startSessionRequest{TemplateID: 1}, "X-API-Key", "secret")
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201 (%s)", resp.StatusCode, body)
	}
}

// TestPlanEdits splits a part, merges it back and removes a part over HTTP.
func TestPlanEdits(t *testing.T) {
	f := newFixture(t, Options{})

	parts := decode[[]planedit.PartView](t, f.mustStatus(t, http.MethodGet, "/api/v1/templates/1/parts", nil, http.StatusOK))
	var main planedit.PartView
	for _, p := range parts {
		if p.DayIndex == 0 && p.Name == "Main Lifts" {
			main = p
		}
	}
	if len(main.Exercises) != 3 {
		t.Fatalf("Main Lifts has %d exercises, want 3", len(main.Exercises))
	}

	split := decode[map[string][]int64](t, f.mustStatus(t, http.MethodPost, "/api/v1/parts/"+itoa(main.ID)+"/split", nil, http.StatusOK))["partIds"]
	if len(split) != 2 {
		t.Fatalf("split produced %d parts, want 2", len(split))
	}

	merged := decode[map[string]int64](t, f.mustStatus(t, http.MethodPost, "/api/v1/parts/merge",
		map[string]any{"partIds": split}, http.StatusOK))["partId"]
	if merged == 0 {
		t.Fatal("merge was a no-op")
	}

	// A single part cannot be merged.
	noop := decode[map[string]int64](t, f.mustStatus(t, http.MethodPost, "/api/v1/parts/merge",
		map[string]any{"partIds": []int64{merged}}, http.StatusOK))["partId"]
	if noop != 0 {
		t.Errorf("single-part merge = %d, want 0", noop)
	}

	f.mustStatus(t, http.MethodPatch, "/api/v1/parts/"+itoa(merged), map[string]any{"structure": "pyramid"}, http.StatusBadRequest)
	f.mustStatus(t, http.MethodPatch, "/api/v1/parts/"+itoa(merged), map[string]any{"name": "Renamed", "structure": "bogus"}, http.StatusBadRequest)
	for _, p := range decode[[]planedit.PartView](t, f.mustStatus(t, http.MethodGet, "/api/v1/templates/1/parts", nil, http.StatusOK)) {
		if p.Name == "Renamed" {
			t.Errorf("part %d renamed by a rejected update", p.ID)
		}
	}
	f.mustStatus(t, http.MethodPatch, "/api/v1/parts/"+itoa(merged), map[string]any{"name": "Compounds", "structure": "circuit"}, http.StatusNoContent)

	rounds := decode[map[string][]int64](t, f.mustStatus(t, http.MethodPost, "/api/v1/parts/"+itoa(merged)+"/rounds", nil, http.StatusOK))["partIds"]
	if len(rounds) != 3 {
		t.Errorf("rounds = %d, want 3", len(rounds))
	}

	f.mustStatus(t, http.MethodDelete, "/api/v1/parts/"+itoa(rounds[0]), nil, http.StatusNoContent)
	after := decode[[]planedit.PartView](t, f.mustStatus(t, http.MethodGet, "/api/v1/templates/1/parts", nil, http.StatusOK))
	if len(after) != len(parts)+1 {
		t.Errorf("parts after edits = %d, want %d", len(after), len(parts)+1)
	}
}

// TestAddPartAndExercise verifies the hand-built part endpoints.
func TestAddPartAndExercise(t *testing.T) {
	f := newFixture(t, Options{})
	partID := decode[map[string]int64](t, f.mustStatus(t, http.MethodPost, "/api/v1/templates/1/days/0/parts",
		map[string]string{"name": ""}, http.StatusCreated))["id"]

	f.mustStatus(t, http.MethodPost, "/api/v1/parts/"+itoa(partID)+"/exercises", map[string]any{}, http.StatusBadRequest)
	teID := decode[map[string]int64](t, f.mustStatus(t, http.MethodPost, "/api/v1/parts/"+itoa(partID)+"/exercises",
		map[string]any{"choiceMuscleGroup": "abs"}, http.StatusCreated))["id"]

	f.mustStatus(t, http.MethodDelete, "/api/v1/template-exercises/"+itoa(teID), nil, http.StatusNoContent)
}

// TestCustomExercise verifies creation, validation and in-use deletion.
func TestCustomExercise(t *testing.T) {
	f := newFixture(t, Options{})
	f.mustStatus(t, http.MethodPost, "/api/v1/exercises", map[string]any{"name": "Sled Push", "muscleGroup": "legs", "equipment": "machine"}, http.StatusBadRequest)
	id := decode[map[string]int64](t, f.mustStatus(t, http.MethodPost, "/api/v1/exercises",
		map[string]any{"name": " Sled Push ", "muscleGroup": "quads", "equipment": "machine"}, http.StatusCreated))["id"]

	hist := decode[journal.History](t, f.mustStatus(t, http.MethodGet, "/api/v1/exercises/"+itoa(id)+"/history", nil, http.StatusOK))
	if len(hist.Sets) != 0 || hist.BestSet != nil {
		t.Errorf("history = %+v, want empty", hist)
	}
	f.mustStatus(t, http.MethodDelete, "/api/v1/exercises/"+itoa(id), nil, http.StatusNoContent)

	squat := f.exerciseID(t, "Barbell Squat")
	f.mustStatus(t, http.MethodDelete, "/api/v1/exercises/"+itoa(squat), nil, http.StatusConflict)
}

// TestAnalyticsQueryValidation verifies bad query parameters are 400s.
func TestAnalyticsQueryValidation(t *testing.T) {
	f := newFixture(t, Options{})
	f.mustStatus(t, http.MethodGet, "/api/v1/analytics/summaries?range=2w", nil, http.StatusBadRequest)
	f.mustStatus(t, http.MethodGet, "/api/v1/analytics/plateaus?min=0", nil, http.StatusBadRequest)

	body := f.mustStatus(t, http.MethodGet, "/api/v1/analytics/plateaus", nil, http.StatusOK)
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("plateaus body = %s, want []", body)
	}

	d := decode[analytics.Dashboard](t, f.mustStatus(t, http.MethodGet, "/api/v1/analytics/dashboard?range=30d", nil, http.StatusOK))
	if d.Range != analytics.Range30d {
		t.Errorf("dashboard range = %q, want 30d", d.Range)
	}
}

// TestBackupRoundTrip exports over HTTP and imports the same document back.
func TestBackupRoundTrip(t *testing.T) {
	f := newFixture(t, Options{})
	sid := decode[map[string]int64](t, f.mustStatus(t, http.MethodPost, "/api/v1/sessions",
		startSessionRequest{TemplateID: 1}, http.StatusCreated))["id"]

	resp, exported := f.do(t, http.MethodGet, "/api/v1/backup/export", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "workout-backup-") {
		t.Errorf("Content-Disposition = %q, want backup file name", cd)
	}

	f.mustStatus(t, http.MethodDelete, "/api/v1/sessions/"+itoa(sid), nil, http.StatusNoContent)

	req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/api/v1/backup/import", bytes.NewReader(exported))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err = f.ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	res := decode[backup.Result](t, readAll(t, resp))
	if resp.StatusCode != http.StatusOK || !res.Success {
		t.Fatalf("import = %d %+v, want success", resp.StatusCode, res)
	}

	if _, err := f.db.GetSession(context.Background(), sid); err != nil {
		t.Errorf("session %d not restored: %v", sid, err)
	}
}

// TestAlphaIngest verifies an Alpha Progression export becomes completed sessions and that bad input is a 400.
func TestAlphaIngest(t *testing.T) {
	f := newFixture(t, Options{APIKey: "k"})
	const csv = `"Push";"2026-02-17 17:04 h";"45 min"
"1. Barbell Bench Press · Barbell · 6 reps";"WU1 · 47,5 kg · 8 reps"
#;KG;REPS;RIR
1;102,5;6;0
2;100;6;1
`
	post := func(body string) (*http.Response, []byte) {
		req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/api/v1/ingest/alpha", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Content-Type", "text/csv")
		req.Header.Set("X-API-Key", "k")
		resp, err := f.ts.Client().Do(req)
		if err != nil {
			t.Fatal(err)
		}
		return resp, readAll(t, resp)
	}

	resp, body := post(csv)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	res := decode[ingest.Result](t, body)
	if res.SessionsInserted != 1 || res.SetsInserted != 2 || res.WarmupsSkipped != 1 || len(res.ExercisesCreated) != 0 {
		t.Errorf("result = %+v, want 1 session, 2 sets, 1 warm-up, catalogue bench press", res)
	}

	summaries := decode[[]analytics.SessionSummary](t, f.mustStatus(t, http.MethodGet, "/api/v1/analytics/summaries", nil, http.StatusOK))
	if len(summaries) != 1 || summaries[0].TotalVolume != 1215 {
		t.Errorf("summaries = %+v, want one session with volume 1215", summaries)
	}

	if resp, _ := post("1;100;5;1"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed status = %d, want 400", resp.StatusCode)
	}
}

// TestImportRejectsBadVersion verifies the failure result shape.
func TestImportRejectsBadVersion(t *testing.T) {
	f := newFixture(t, Options{})
	body := f.mustStatus(t, http.MethodPost, "/api/v1/backup/import", map[string]any{"version": 2}, http.StatusUnprocessableEntity)
	res := decode[backup.Result](t, body)
	if res.Success || res.Error != "Unsupported backup version" {
		t.Errorf("result = %+v, want unsupported version failure", res)
	}

	f.mustStatus(t, http.MethodGet, "/api/v1/backup/snapshot", nil, http.StatusNotFound)
	res = decode[backup.Result](t, f.mustStatus(t, http.MethodPost, "/api/v1/backup/snapshot/restore", nil, http.StatusUnprocessableEntity))
	if res.Error != "No local backup found" {
		t.Errorf("restore error = %q, want %q", res.Error, "No local backup found")
	}
}

// TestImportReadFailures verifies oversized and truncated uploads keep the
// import result shape.
func TestImportReadFailures(t *testing.T) {
	f := newFixture(t, Options{})
	defer func(n int64) { maxImportBytes = n }(maxImportBytes)
	maxImportBytes = 128

	tests := []struct {
		name        string
		contentType string
		body        string
		want        int
		wantErr     string
	}{
		{"oversized", "application/json", `{"version":1,"exercises":[` + strings.Repeat(" ", 256) + `]}`, http.StatusRequestEntityTooLarge, "upload too large"},
		{"truncated form", "multipart/form-data; boundary=x", "--x\r\nContent-Disposition: form-data; name=\"file\"\r\n\r\n{", http.StatusBadRequest, "bad request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/api/v1/backup/import", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			req.Header.Set("Content-Type", tt.contentType)
			resp, err := f.ts.Client().Do(req)
			if err != nil {
				t.Fatal(err)
			}
			body := readAll(t, resp)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (%s)", resp.StatusCode, tt.want, body)
			}
			res := decode[backup.Result](t, body)
			if res.Success || !strings.Contains(res.Error, tt.wantErr) {
				t.Errorf("result = %+v, want failure mentioning %q", res, tt.wantErr)
			}
		})
	}
}

// TestPreferences verifies defaults, validation and that the seed version survives saves.
func TestPreferences(t *testing.T) {
	f := newFixture(t, Options{})
	prefs := decode[models.UserPreferences](t, f.mustStatus(t, http.MethodGet, "/api/v1/preferences", nil, http.StatusOK))
	if prefs.SeedVersion == nil {
		t.Fatal("seeded preferences have no seed version")
	}
	seedVersion := *prefs.SeedVersion

	prefs.WeightUnit = "stone"
	f.mustStatus(t, http.MethodPut, "/api/v1/preferences", prefs, http.StatusBadRequest)

	prefs.WeightUnit = models.Pounds
	prefs.SeedVersion = nil
	f.mustStatus(t, http.MethodPut, "/api/v1/preferences", prefs, http.StatusOK)

	got := decode[models.UserPreferences](t, f.mustStatus(t, http.MethodGet, "/api/v1/preferences", nil, http.StatusOK))
	if got.WeightUnit != models.Pounds {
		t.Errorf("weight unit = %q, want lbs", got.WeightUnit)
	}
	if got.SeedVersion == nil || *got.SeedVersion != seedVersion {
		t.Errorf("seed version = %v, want %d", got.SeedVersion, seedVersion)
	}
}

// TestLiveWebsocket verifies a committed write reaches a websocket subscriber.
func TestLiveWebsocket(t *testing.T) {
	f := newFixture(t, Options{})
	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/api/v1/live?tables=workout_sessions"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	f.mustStatus(t, http.MethodPost, "/api/v1/sessions", startSessionRequest{TemplateID: 1}, http.StatusCreated)

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var change live.Change
	if err := conn.ReadJSON(&change); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{storage.TableWorkoutSessions}, change.Tables); diff != "" {
		t.Errorf("tables mismatch (-want +got):\n%s", diff)
	}
}

// TestCrossSiteWritesRejected verifies a page on another site cannot reach
// the write routes with a preflight-free request, and that no wildcard CORS
// header is sent without configured origins.
func TestCrossSiteWritesRejected(t *testing.T) {
	f := newFixture(t, Options{})
	countExercises := func() int {
		return len(decode[[]models.Exercise](t, f.mustStatus(t, http.MethodGet, "/api/v1/exercises", nil, http.StatusOK)))
	}
	before := countExercises()
	if before == 0 {
		t.Fatal("fixture has no exercises")
	}

	const doc = `{"version":1,"exportedAt":"2026-01-01T00:00:00Z"}`
	tests := []struct {
		name        string
		path        string
		origin      string
		contentType string
		body        string
		want        int
	}{
		{"cross-site text/plain import", "/api/v1/backup/import", "https://evil.example", "text/plain", doc, http.StatusForbidden},
		{"cross-site json import", "/api/v1/backup/import", "https://evil.example", "application/json", doc, http.StatusForbidden},
		{"cross-site restore", "/api/v1/backup/snapshot/restore", "https://evil.example", "", "", http.StatusForbidden},
		{"text/plain import", "/api/v1/backup/import", "", "text/plain", doc, http.StatusUnsupportedMediaType},
		{"form import", "/api/v1/backup/import", "", "application/x-www-form-urlencoded", doc, http.StatusUnsupportedMediaType},
		{"untyped import", "/api/v1/backup/import", "", "", doc, http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, f.ts.URL+tt.path, strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			resp, err := f.ts.Client().Do(req)
			if err != nil {
				t.Fatal(err)
			}
			body := readAll(t, resp)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (%s)", resp.StatusCode, tt.want, body)
			}
			if acao := resp.Header.Get("Access-Control-Allow-Origin"); acao != "" {
				t.Errorf("Access-Control-Allow-Origin = %q, want none", acao)
			}
		})
	}

	if after := countExercises(); after != before {
		t.Errorf("exercises = %d after rejected writes, want %d", after, before)
	}

	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/api/v1/live"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	if err == nil {
		t.Fatal("cross-site websocket accepted")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("websocket response = %v, want 403", resp)
	}
}

// TestAllowedOrigin verifies a configured origin may write and gets CORS headers.
func TestAllowedOrigin(t *testing.T) {
	f := newFixture(t, Options{CORSOrigins: []string{"https://app.example"}})
	resp, body := f.do(t, http.MethodPost, "/api/v1/sessions", startSessionRequest{TemplateID: 1}, "Origin", "https://app.example")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", resp.StatusCode, body)
	}
	if acao := resp.Header.Get("Access-Control-Allow-Origin"); acao != "https://app.example" {
		t.Errorf("Access-Control-Allow-Origin = %q, want https://app.example", acao)
	}

	resp, _ = f.do(t, http.MethodPost, "/api/v1/sessions", startSessionRequest{TemplateID: 1}, "Origin", "https://other.example")
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("other origin status = %d, want 403", resp.StatusCode)
	}
}

// TestMetricsEndpoint verifies the registry is served.
func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, Options{})
	f.mustStatus(t, http.MethodPost, "/api/v1/sessions", startSessionRequest{TemplateID: 1}, http.StatusCreated)
	body := f.mustStatus(t, http.MethodGet, "/metrics", nil, http.StatusOK)
	if !strings.Contains(string(body), "liftlog_sessions_started_total 1") {
		t.Errorf("metrics output missing session counter:\n%s", body)
	}
}

// TestStatusFor verifies the error to status mapping.
func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{storage.ErrNotFound, http.StatusNotFound},
		{backup.ErrNoSnapshot, http.StatusNotFound},
		{journal.ErrSessionActive, http.StatusConflict},
		{storage.ErrExerciseInUse, http.StatusConflict},
		{journal.ErrInvalidRPE, http.StatusBadRequest},
		{analytics.ErrUnknownRange, http.StatusBadRequest},
		{badRequest("x"), http.StatusBadRequest},
		{fmt.Errorf("%w: limit is 1 MB", errTooLarge), http.StatusRequestEntityTooLarge},
		{fmt.Errorf("%w: line 3", alpha.ErrMalformed), http.StatusBadRequest},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func readAll(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
