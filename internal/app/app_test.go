package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/meltforce/liftlog/internal/config"
	"github.com/meltforce/liftlog/internal/storage"
	"github.com/meltforce/liftlog/internal/storage/storagetest"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(dir, "liftlog.db")
	cfg.Backup.SnapshotPath = filepath.Join(dir, "snap", "slot.db")
	cfg.Backup.Dir = filepath.Join(dir, "backups")
	return cfg
}

// TestOpenSeedsAndWires verifies a fresh store is seeded and writes reach the hub.
func TestOpenSeedsAndWires(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, testConfig(t), storagetest.Logger())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	n, err := a.DB.Count(ctx, storage.TableExercises)
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Error("exercises = 0, want seeded catalogue")
	}

	sub := a.Hub.Subscribe(storage.TableWorkoutSessions)
	defer a.Hub.Unsubscribe(sub.ID)
	if _, err := a.Journal.Start(ctx, 1, 0); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-sub.C:
		if len(c.Tables) != 1 || c.Tables[0] != storage.TableWorkoutSessions {
			t.Errorf("change tables = %v", c.Tables)
		}
	default:
		t.Error("no change published for session start")
	}
}

// TestOpenTwice verifies reopening an existing store leaves the seed alone.
func TestOpenTwice(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	for i := range 2 {
		a, err := Open(ctx, cfg, storagetest.Logger())
		if err != nil {
			t.Fatalf("open %d: %v", i+1, err)
		}
		if err := a.Close(); err != nil {
			t.Fatalf("close %d: %v", i+1, err)
		}
	}
}

// TestOpenBadTimezone verifies configuration errors stop startup before the store is touched.
func TestOpenBadTimezone(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analytics.Timezone = "Mars/Olympus"
	if _, err := Open(context.Background(), cfg, storagetest.Logger()); err == nil {
		t.Error("expected error")
	}
}
