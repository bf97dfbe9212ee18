package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meltforce/liftlog/internal/backup"
)

// newConfig writes a config file pointing every path into a temp dir.
func newConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	yaml := fmt.Sprintf(`database:
  driver: sqlite
  path: %s
backup:
  snapshot_path: %s
  dir: %s
log:
  level: error
`, filepath.Join(dir, "liftlog.db"), filepath.Join(dir, "snapshot.db"), filepath.Join(dir, "backups"))
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	exportOut, exportDir, importIn, alphaIn = "", "", "", ""
	reportRange, reportJSON = "30d", false
	pushServer, pushAPIKey, pushStateDir, pushDryRun, pushForce = "", "", "", false, false

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// TestRootHelp verifies the command tree renders.
func TestRootHelp(t *testing.T) {
	out, err := run(t, "--help")
	if err != nil {
		t.Fatalf("execute root help: %v", err)
	}
	for _, sub := range []string{"export", "import", "import-alpha", "restore-snapshot", "snapshot-info", "report", "push", "mcp"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing %q", sub)
		}
	}
}

// TestExportImport verifies an exported file imports back.
func TestExportImport(t *testing.T) {
	cfg := newConfig(t)
	file := filepath.Join(t.TempDir(), "out.json")

	out, err := run(t, "--config", cfg, "export", "--out", file)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "Exported 0 sessions") {
		t.Errorf("export output = %q", out)
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	var doc backup.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Version != backup.Version || len(doc.Exercises) == 0 {
		t.Errorf("document version %d with %d exercises, want seeded catalogue", doc.Version, len(doc.Exercises))
	}

	if out, err := run(t, "--config", cfg, "import", "--file", file); err != nil || !strings.Contains(out, "Imported backup") {
		t.Errorf("import = %q, %v", out, err)
	}
}

// TestExportToDir verifies the conventional file name is used.
func TestExportToDir(t *testing.T) {
	cfg := newConfig(t)
	dir := t.TempDir()
	if _, err := run(t, "--config", cfg, "export", "--dir", dir); err != nil {
		t.Fatal(err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "workout-backup-*.json"))
	if len(matches) != 1 {
		t.Errorf("backup files = %v, want one", matches)
	}
}

// TestImportRejectsBadVersion verifies a failed import surfaces as an error.
func TestImportRejectsBadVersion(t *testing.T) {
	cfg := newConfig(t)
	file := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(file, []byte(`{"version":2}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := run(t, "--config", cfg, "import", "--file", file)
	if err == nil || err.Error() != "Unsupported backup version" {
		t.Errorf("err = %v, want Unsupported backup version", err)
	}
}

// TestSnapshotCommands verifies restore fails and info reports nothing before any snapshot.
func TestSnapshotCommands(t *testing.T) {
	cfg := newConfig(t)
	out, err := run(t, "--config", cfg, "snapshot-info")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No snapshot saved yet") {
		t.Errorf("snapshot-info = %q", out)
	}
	if _, err := run(t, "--config", cfg, "restore-snapshot"); err == nil || err.Error() != "No local backup found" {
		t.Errorf("restore-snapshot err = %v, want No local backup found", err)
	}
}

// TestReport verifies the text and JSON report on an empty journal.
func TestReport(t *testing.T) {
	cfg := newConfig(t)
	out, err := run(t, "--config", cfg, "report", "--range", "7d")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Range: 7d") || !strings.Contains(out, "Sessions: 0") {
		t.Errorf("report = %q", out)
	}

	out, err = run(t, "--config", cfg, "report", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var d struct {
		Range string `json:"range"`
	}
	if err := json.Unmarshal([]byte(out), &d); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if d.Range != "30d" {
		t.Errorf("range = %q, want 30d", d.Range)
	}

	if _, err := run(t, "--config", cfg, "report", "--range", "2w"); err == nil {
		t.Error("expected error for unknown range")
	}
}

// TestPushDryRun verifies a dry run needs no server.
func TestPushDryRun(t *testing.T) {
	cfg := newConfig(t)
	out, err := run(t, "--config", cfg, "push", "--dry-run", "--state-dir", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Would push 0 sessions") {
		t.Errorf("push output = %q", out)
	}

	if _, err := run(t, "--config", cfg, "push"); err == nil {
		t.Error("expected error without --server")
	}
}

// TestImportAlpha verifies an export on stdin is added to the journal.
func TestImportAlpha(t *testing.T) {
	cfg := newConfig(t)
	csv := `"Pull";"2026-02-18 18:00 h";"0:50 hr"
"1. Lat Pulldown Machine · Machine · 10 reps"
#;KG;REPS;RIR
1;60;10;2
2;60;9;1
`
	rootCmd.SetIn(strings.NewReader(csv))
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"--config", cfg, "import-alpha"})
	alphaIn = ""
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Imported 1 sessions (0 replaced), 2 sets") {
		t.Errorf("output = %q", buf.String())
	}
}
