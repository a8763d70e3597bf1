package intercept

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentci/recorder/internal/event"
	"github.com/agentci/recorder/internal/recorder"
	"github.com/agentci/recorder/internal/trace"
)

// newTestSession starts a recording session in a temp workspace and returns
// the context plus a collect func that stops the session and parses the
// trace back.
func newTestSession(t *testing.T, configYAML string) (*recorder.Context, func() []event.TraceEvent) {
	t.Helper()

	workspace := t.TempDir()
	runDir := filepath.Join(workspace, ".agentci", "runs", "test-run")
	if err := os.MkdirAll(runDir, 0755); err != nil {
		t.Fatalf("Failed to create run dir: %v", err)
	}

	configPath := ""
	if configYAML != "" {
		configPath = filepath.Join(workspace, "config.yaml")
		if err := os.WriteFile(configPath, []byte(configYAML), 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}
	}

	ctx, err := recorder.Start(recorder.Options{
		RunDir:        runDir,
		RunID:         "test-run",
		WorkspaceRoot: workspace,
		ConfigPath:    configPath,
	})
	if err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}

	collect := func() []event.TraceEvent {
		recorder.Stop(ctx)
		events, err := trace.ReadFile(filepath.Join(runDir, recorder.TraceFileName))
		if err != nil {
			t.Fatalf("Failed to read trace: %v", err)
		}
		return events
	}
	return ctx, collect
}

// effects filters a trace down to effect events.
func effects(events []event.TraceEvent) []event.TraceEvent {
	var out []event.TraceEvent
	for _, ev := range events {
		if ev.Type == event.TypeEffect {
			out = append(out, ev)
		}
	}
	return out
}

func category(ev event.TraceEvent) string {
	c, _ := ev.Data["category"].(string)
	return c
}

func fsPayload(t *testing.T, ev event.TraceEvent) map[string]any {
	t.Helper()
	fs, ok := ev.Data["fs"].(map[string]any)
	if !ok {
		t.Fatalf("Expected fs payload in event %v", ev.Data)
	}
	return fs
}
