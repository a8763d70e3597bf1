package cli

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentci/recorder/internal/intercept"
	"github.com/agentci/recorder/internal/logger"
	"github.com/agentci/recorder/internal/recorder"
)

var recordLaunch bool

var runCmd = &cobra.Command{
	Use:   "run -- <command...>",
	Short: "Launch a command under a fresh recording run",
	Long: `Launch a command with the recorder environment contract in place.

A run directory is created under .agentci/runs/<run-id> and the command is
executed with AGENTCI_RUN_DIR, AGENTCI_RUN_ID, and AGENTCI_WORKSPACE_ROOT
exported. A .agentci/config.yaml in the workspace is picked up automatically.

The target's exit code is propagated.

Example:
  agentci-record run -- ./my-agent --task build
  agentci-record run --record-launch -- git status`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&recordLaunch, "record-launch", false, "Record the launch itself as an exec effect in the run's trace")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if verbose {
		_ = logger.Init("debug", "")
	} else {
		logger.InitFromEnv()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	runID := newRunID()
	runDir := filepath.Join(cwd, ".agentci", "runs", runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	env := append(os.Environ(),
		recorder.EnvRunDir+"="+runDir,
		recorder.EnvRunID+"="+runID,
		recorder.EnvWorkspaceRoot+"="+cwd,
	)

	configPath := configFile
	if configPath == "" {
		candidate := filepath.Join(cwd, ".agentci", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			configPath = candidate
		}
	}
	if configPath != "" {
		env = append(env, "AGENTCI_CONFIG_PATH="+configPath)
	}

	child := exec.Command(args[0], args[1:]...)
	child.Env = env
	child.Stdin = os.Stdin
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr

	logger.Debug().Str("run_id", runID).Str("run_dir", runDir).Msg("Launching target")

	runErr := launch(child, runDir, runID, cwd, configPath)

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		return fmt.Errorf("failed to run command: %w", runErr)
	}
	return nil
}

// launch runs the child, optionally through a recording session of its own
// so the spawn shows up in the run's trace.
func launch(child *exec.Cmd, runDir, runID, workspaceRoot, configPath string) error {
	if !recordLaunch {
		return child.Run()
	}

	ctx, err := recorder.Start(recorder.Options{
		RunDir:        runDir,
		RunID:         runID,
		WorkspaceRoot: workspaceRoot,
		ConfigPath:    configPath,
	})
	if err != nil {
		logger.Debug().Err(err).Msg("Failed to start launch recording, running unrecorded")
		return child.Run()
	}
	defer recorder.Stop(ctx)

	spawner := intercept.NewRecordingSpawner(ctx, nil)
	return spawner.Run(child)
}

// newRunID builds a run identifier of the form <ms>-<hex>, unique enough to
// name a run directory.
func newRunID() string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixMilli())
	}
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), hex.EncodeToString(b))
}
