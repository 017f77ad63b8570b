package scripts

import (
	"context"
	"testing"
	"time"

	"pax/internal/pkgerrors"
)

func TestRunSuccess(t *testing.T) {
	if err := Run(context.Background(), "exit 0", time.Second, nil); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	err := Run(context.Background(), "exit 7", time.Second, nil)
	if err == nil {
		t.Fatal("expected an error for a non-zero exit")
	}
	if pkgerrors.Of(err) != pkgerrors.Script {
		t.Fatalf("expected ScriptError, got %v", pkgerrors.Of(err))
	}
}

func TestRunEmptyScriptIsNoop(t *testing.T) {
	if err := Run(context.Background(), "", time.Second, nil); err != nil {
		t.Fatalf("expected empty script to be a no-op, got %v", err)
	}
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, "sleep 5", 500*time.Millisecond, nil)
	if err == nil {
		t.Fatal("expected an error for a cancelled script")
	}
	if pkgerrors.Of(err) != pkgerrors.Script {
		t.Fatalf("expected ScriptError, got %v", pkgerrors.Of(err))
	}
}
