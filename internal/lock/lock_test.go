package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	l := New(path)
	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected lock file removed after release")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	l := New(path)
	if err := l.Acquire(); err != nil {
		t.Fatal(err)
	}
	if err := l.Release(); err != nil {
		t.Fatal(err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("second Release should be a no-op, got %v", err)
	}
}

func TestStaleLockFromDeadProcessIsReclaimed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	// a PID vanishingly unlikely to be alive, with a fresh timestamp, so
	// only the liveness check (not the horizon) causes reclaim.
	content := fmt.Sprintf("%d\n%d", 999999, time.Now().Unix())
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	l := New(path)
	if err := l.Acquire(); err != nil {
		t.Fatalf("expected stale lock from a dead pid to be reclaimed, got %v", err)
	}
	l.Release()
}

func TestOldTimestampIsReclaimed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	old := time.Now().Add(-2 * StaleHorizon).Unix()
	content := fmt.Sprintf("%d\n%d", os.Getpid(), old)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	l := New(path)
	if err := l.Acquire(); err != nil {
		t.Fatalf("expected horizon-expired lock to be reclaimed, got %v", err)
	}
	l.Release()
}
