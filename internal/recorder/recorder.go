package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/agentci/recorder/internal/config"
	"github.com/agentci/recorder/internal/event"
	"github.com/agentci/recorder/internal/logger"
	"github.com/agentci/recorder/internal/policy"
	"github.com/agentci/recorder/internal/trace"
)

// Environment contract consumed from the launcher.
const (
	EnvRunDir        = "AGENTCI_RUN_DIR"
	EnvRunID         = "AGENTCI_RUN_ID"
	EnvWorkspaceRoot = "AGENTCI_WORKSPACE_ROOT"
)

// TraceFileName is the trace file created inside the run directory.
const TraceFileName = "trace.jsonl"

// Options configures a recording session. Zero values fall back to the
// process environment contract.
type Options struct {
	RunDir        string
	RunID         string
	WorkspaceRoot string
	ConfigPath    string
}

// Start begins a recording session: it opens the trace writer, loads
// sensitive-data policy, and emits the lifecycle start event. The run
// directory is the only hard requirement; its absence is fatal so no
// half-initialized session ever exists.
func Start(opts Options) (*Context, error) {
	runDir := opts.RunDir
	if runDir == "" {
		runDir = os.Getenv(EnvRunDir)
	}
	if runDir == "" {
		return nil, fmt.Errorf("run directory is required (set %s)", EnvRunDir)
	}

	runID := opts.RunID
	if runID == "" {
		runID = os.Getenv(EnvRunID)
	}
	if runID == "" {
		runID = filepath.Base(runDir)
	}

	workspaceRoot := opts.WorkspaceRoot
	if workspaceRoot == "" {
		workspaceRoot = os.Getenv(EnvWorkspaceRoot)
	}
	if workspaceRoot == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine workspace root: %w", err)
		}
		workspaceRoot = cwd
	}

	writer, err := trace.NewWriter(filepath.Join(runDir, TraceFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open trace writer: %w", err)
	}

	cfg := config.Load(opts.ConfigPath)

	blocked := make(map[string]struct{}, len(cfg.Policy.Sensitive.BlockEnv))
	for _, name := range cfg.Policy.Sensitive.BlockEnv {
		blocked[name] = struct{}{}
	}

	ctx := &Context{
		RunID:         runID,
		RunDir:        runDir,
		WorkspaceRoot: workspaceRoot,
		Writer:        writer,
		BlockedEnv:    blocked,
		FileGlobs:     policy.NewMatcher(cfg.Policy.Sensitive.BlockFileGlobs),
		recorderRoots: recorderRoots(runDir, workspaceRoot),
		startedAt:     time.Now(),
	}

	writer.Write(event.New(runID, event.TypeLifecycle,
		map[string]any{"stage": "start"},
		map[string]any{
			"go_version": runtime.Version(),
			"platform":   runtime.GOOS + "-" + runtime.GOARCH,
			"recorder":   "go",
		},
	))

	logger.Debug().
		Str("run_id", runID).
		Str("trace", writer.Path()).
		Int("blocked_env", len(blocked)).
		Msg("Recording started")

	return ctx, nil
}

// Stop emits the lifecycle stop event and closes the writer, flushing all
// buffered events. Idempotent; safe to register as an exit hook.
func Stop(ctx *Context) {
	if ctx == nil || ctx.stopped.Swap(true) {
		return
	}

	duration := time.Since(ctx.startedAt).Milliseconds()
	ctx.Writer.Write(event.New(ctx.RunID, event.TypeLifecycle,
		map[string]any{"stage": "stop", "duration_ms": duration},
		nil,
	))

	if err := ctx.Writer.Close(); err != nil {
		logger.Debug().Err(err).Msg("Failed to close trace writer")
	}
	logger.Debug().Str("run_id", ctx.RunID).Msg("Recording stopped")
}

// recorderRoots computes the directory prefixes excluded from filesystem
// recording: the run directory itself and the workspace-local .agentci tree.
// Roots are symlink-resolved so the exclusion compares against the same
// resolved form the interceptors produce.
func recorderRoots(runDir, workspaceRoot string) []string {
	roots := make([]string, 0, 2)
	if abs, err := filepath.Abs(runDir); err == nil {
		roots = append(roots, resolveRoot(abs))
	}
	if abs, err := filepath.Abs(workspaceRoot); err == nil {
		roots = append(roots, filepath.Join(resolveRoot(abs), ".agentci"))
	}
	return roots
}

func resolveRoot(abs string) string {
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs
	}
	return resolved
}
