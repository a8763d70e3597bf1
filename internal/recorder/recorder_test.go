package recorder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentci/recorder/internal/event"
	"github.com/agentci/recorder/internal/trace"
)

func TestStartRequiresRunDir(t *testing.T) {
	t.Setenv(EnvRunDir, "")

	if _, err := Start(Options{}); err == nil {
		t.Fatal("Expected Start without a run directory to fail")
	}
}

func TestStartDefaultsFromEnvironment(t *testing.T) {
	workspace := t.TempDir()
	runDir := filepath.Join(workspace, "runs", "env-run")
	if err := os.MkdirAll(runDir, 0755); err != nil {
		t.Fatalf("Failed to create run dir: %v", err)
	}

	t.Setenv(EnvRunDir, runDir)
	t.Setenv(EnvRunID, "")
	t.Setenv(EnvWorkspaceRoot, workspace)

	ctx, err := Start(Options{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer Stop(ctx)

	if ctx.RunID != "env-run" {
		t.Errorf("Expected run ID defaulted to directory basename, got %q", ctx.RunID)
	}
	if ctx.WorkspaceRoot != workspace {
		t.Errorf("Expected workspace from environment, got %q", ctx.WorkspaceRoot)
	}
}

func TestStopIdempotent(t *testing.T) {
	runDir := filepath.Join(t.TempDir(), "run")
	ctx, err := Start(Options{RunDir: runDir, RunID: "r", WorkspaceRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	Stop(ctx)
	Stop(ctx)

	events, err := trace.ReadFile(filepath.Join(runDir, TraceFileName))
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}

	stops := 0
	for _, ev := range events {
		if ev.Type == event.TypeLifecycle {
			if stage, _ := ev.Data["stage"].(string); stage == "stop" {
				stops++
			}
		}
	}
	if stops != 1 {
		t.Errorf("Expected exactly one stop event, got %d", stops)
	}
}

func TestLifecycleEvents(t *testing.T) {
	runDir := filepath.Join(t.TempDir(), "run")
	workspace := t.TempDir()

	ctx, err := Start(Options{RunDir: runDir, RunID: "lifecycle-run", WorkspaceRoot: workspace})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ctx.Emit(event.EffectEventData{
		Category: event.CategoryFsWrite,
		Kind:     event.KindObserved,
		Fs:       &event.FsEffectData{PathRequested: "a", PathResolved: "/w/a", IsWorkspaceLocal: true},
	})

	Stop(ctx)

	events, err := trace.ReadFile(filepath.Join(runDir, TraceFileName))
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}

	first, last := events[0], events[len(events)-1]
	if first.Type != event.TypeLifecycle {
		t.Errorf("Expected lifecycle event first, got %s", first.Type)
	}
	if stage, _ := first.Data["stage"].(string); stage != "start" {
		t.Errorf("Expected start stage first, got %v", first.Data["stage"])
	}
	if first.Metadata == nil || first.Metadata["platform"] == "" {
		t.Error("Expected platform metadata on start event")
	}

	if stage, _ := last.Data["stage"].(string); stage != "stop" {
		t.Errorf("Expected stop stage last, got %v", last.Data["stage"])
	}
	duration, ok := last.Data["duration_ms"].(float64)
	if !ok || duration < 0 {
		t.Errorf("Expected non-negative duration_ms, got %v", last.Data["duration_ms"])
	}

	for _, ev := range events {
		if ev.RunID != "lifecycle-run" {
			t.Errorf("Expected run_id on every event, got %q", ev.RunID)
		}
		if ev.ID == "" {
			t.Error("Expected unique id on every event")
		}
	}
}

func TestTimestampsNonDecreasing(t *testing.T) {
	runDir := filepath.Join(t.TempDir(), "run")
	ctx, err := Start(Options{RunDir: runDir, RunID: "ts-run", WorkspaceRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 20; i++ {
		ctx.Emit(event.EffectEventData{
			Category: event.CategoryFsRead,
			Kind:     event.KindObserved,
			Fs:       &event.FsEffectData{PathRequested: "a", PathResolved: "/w/a", IsWorkspaceLocal: true},
		})
	}
	Stop(ctx)

	events, err := trace.ReadFile(filepath.Join(runDir, TraceFileName))
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp < events[i-1].Timestamp {
			t.Fatalf("Timestamp decreased at event %d: %d < %d", i, events[i].Timestamp, events[i-1].Timestamp)
		}
	}
}

func TestSuppressRestoresState(t *testing.T) {
	runDir := filepath.Join(t.TempDir(), "run")
	ctx, err := Start(Options{RunDir: runDir, RunID: "s-run", WorkspaceRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer Stop(ctx)

	if ctx.Suppressed() {
		t.Fatal("Expected recording active at start")
	}
	ctx.Suppress(func() {
		if !ctx.Suppressed() {
			t.Error("Expected suppression inside Suppress")
		}
		// Nested suppression must not clear the outer state early
		ctx.Suppress(func() {})
		if !ctx.Suppressed() {
			t.Error("Expected suppression to survive nesting")
		}
	})
	if ctx.Suppressed() {
		t.Error("Expected suppression lifted after Suppress returns")
	}
}

func TestIsRecorderPath(t *testing.T) {
	workspace, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to resolve temp dir: %v", err)
	}
	runDir := filepath.Join(workspace, ".agentci", "runs", "r1")
	ctx, err := Start(Options{RunDir: runDir, RunID: "r1", WorkspaceRoot: workspace})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer Stop(ctx)

	if !ctx.IsRecorderPath(filepath.Join(runDir, "trace.jsonl")) {
		t.Error("Expected run-dir path to be a recorder path")
	}
	if !ctx.IsRecorderPath(filepath.Join(workspace, ".agentci", "config.yaml")) {
		t.Error("Expected workspace .agentci path to be a recorder path")
	}
	if ctx.IsRecorderPath(filepath.Join(workspace, "src", "main.go")) {
		t.Error("Expected ordinary workspace path to not be a recorder path")
	}
}

func TestIsRecorderPathThroughSymlinkedParent(t *testing.T) {
	base := t.TempDir()
	realWorkspace := filepath.Join(base, "real")
	runDir := filepath.Join(realWorkspace, ".agentci", "runs", "r1")
	if err := os.MkdirAll(runDir, 0755); err != nil {
		t.Fatalf("Failed to create run dir: %v", err)
	}
	link := filepath.Join(base, "link")
	if err := os.Symlink(realWorkspace, link); err != nil {
		t.Skipf("Symlinks unavailable: %v", err)
	}

	// Session started through the symlinked parent; interceptors compare
	// symlink-resolved paths, so the exclusion roots must resolve too
	ctx, err := Start(Options{
		RunDir:        filepath.Join(link, ".agentci", "runs", "r1"),
		RunID:         "r1",
		WorkspaceRoot: link,
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer Stop(ctx)

	resolvedRun, err := filepath.EvalSymlinks(runDir)
	if err != nil {
		t.Fatalf("Failed to resolve run dir: %v", err)
	}
	if !ctx.IsRecorderPath(filepath.Join(resolvedRun, "trace.jsonl")) {
		t.Error("Expected resolved run-dir path to be excluded")
	}
	if !ctx.IsRecorderPath(filepath.Join(filepath.Dir(filepath.Dir(resolvedRun)), "config.yaml")) {
		t.Error("Expected resolved .agentci path to be excluded")
	}
}
