package intercept

import (
	"errors"
	"os/exec"
	"testing"
)

type fakeSpawner struct {
	ran     []*exec.Cmd
	started []*exec.Cmd
	err     error
}

func (f *fakeSpawner) Run(cmd *exec.Cmd) error {
	f.ran = append(f.ran, cmd)
	return f.err
}

func (f *fakeSpawner) Start(cmd *exec.Cmd) error {
	f.started = append(f.started, cmd)
	return f.err
}

func TestRecordingSpawnerRun(t *testing.T) {
	ctx, collect := newTestSession(t, "")
	inner := &fakeSpawner{}
	spawner := NewRecordingSpawner(ctx, inner)

	cmd := exec.Command("/usr/bin/git", "status")
	if err := spawner.Run(cmd); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(inner.ran) != 1 {
		t.Fatal("Expected the real spawner to be invoked")
	}

	evs := effects(collect())
	if len(evs) != 1 || category(evs[0]) != "exec" {
		t.Fatalf("Expected one exec effect, got %v", evs)
	}

	execData, _ := evs[0].Data["exec"].(map[string]any)
	if execData["command_raw"] != "/usr/bin/git" {
		t.Errorf("Expected raw command preserved, got %v", execData["command_raw"])
	}
	argv, _ := execData["argv_normalized"].([]any)
	if len(argv) != 2 || argv[0] != "git" || argv[1] != "status" {
		t.Errorf("Expected normalized argv [git status], got %v", argv)
	}
}

func TestRecordingSpawnerRecordsBeforeFailure(t *testing.T) {
	ctx, collect := newTestSession(t, "")
	inner := &fakeSpawner{err: errors.New("no such executable")}
	spawner := NewRecordingSpawner(ctx, inner)

	cmd := exec.Command("/nope/missing-binary")
	if err := spawner.Start(cmd); err == nil {
		t.Fatal("Expected the real spawn error to propagate")
	}

	evs := effects(collect())
	if len(evs) != 1 || category(evs[0]) != "exec" {
		t.Fatalf("Expected the attempted spawn recorded despite failure, got %v", evs)
	}
}

func TestRecordingSpawnerNormalizesTempArgs(t *testing.T) {
	ctx, collect := newTestSession(t, "")
	inner := &fakeSpawner{}
	spawner := NewRecordingSpawner(ctx, inner)

	cmd := exec.Command("cp", "/tmp/scratch/input.txt", "out.txt")
	if err := spawner.Run(cmd); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	evs := effects(collect())
	execData, _ := evs[0].Data["exec"].(map[string]any)
	argv, _ := execData["argv_normalized"].([]any)
	if len(argv) != 3 || argv[1] != "<temp>" || argv[2] != "out.txt" {
		t.Errorf("Expected temp path replaced with placeholder, got %v", argv)
	}
}

func TestOSSpawnerRuns(t *testing.T) {
	ctx, collect := newTestSession(t, "")
	spawner := NewRecordingSpawner(ctx, nil)

	cmd := exec.Command("true")
	if err := spawner.Run(cmd); err != nil {
		t.Skipf("true not available: %v", err)
	}

	evs := effects(collect())
	if len(evs) != 1 || category(evs[0]) != "exec" {
		t.Fatalf("Expected one exec effect, got %v", evs)
	}
}
