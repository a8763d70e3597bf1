package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentci/recorder/internal/event"
	"github.com/agentci/recorder/internal/logger"
	"github.com/agentci/recorder/internal/recorder"
	"github.com/agentci/recorder/internal/trace"
)

var (
	traceLimit int
	traceJSON  bool
	indexPath  string
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect recorded traces",
	Long: `Inspect recorded run traces.

Each run writes an append-only trace.jsonl into its run directory. Traces can
be viewed directly or ingested into a local SQLite index for querying across
runs.

Example:
  agentci-record trace show .agentci/runs/<run-id>
  agentci-record trace index .agentci/runs/<run-id>
  agentci-record trace list`,
}

var traceShowCmd = &cobra.Command{
	Use:   "show <run-dir>",
	Short: "Show the events of a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runTraceShow,
}

var traceIndexCmd = &cobra.Command{
	Use:   "index <run-dir>",
	Short: "Ingest a run's trace into the SQLite index",
	Args:  cobra.ExactArgs(1),
	RunE:  runTraceIndex,
}

var traceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed runs",
	RunE:  runTraceList,
}

func init() {
	traceShowCmd.Flags().IntVarP(&traceLimit, "limit", "n", 0, "Maximum number of events to show (0 = all)")
	traceShowCmd.Flags().BoolVar(&traceJSON, "json", false, "Print raw JSON lines")
	traceCmd.PersistentFlags().StringVar(&indexPath, "index", "", "Override index database path")

	traceCmd.AddCommand(traceShowCmd)
	traceCmd.AddCommand(traceIndexCmd)
	traceCmd.AddCommand(traceListCmd)
	rootCmd.AddCommand(traceCmd)
}

func initCLILogger() {
	if verbose {
		_ = logger.Init("debug", "")
	} else {
		logger.InitQuiet()
	}
}

// loadRunTrace reads the trace file for a run directory and derives the run
// ID from the directory name.
func loadRunTrace(runDir string) (string, []event.TraceEvent, error) {
	tracePath := filepath.Join(runDir, recorder.TraceFileName)
	events, err := trace.ReadFile(tracePath)
	if err != nil {
		return "", nil, err
	}

	runID := filepath.Base(filepath.Clean(runDir))
	if len(events) > 0 && events[0].RunID != "" {
		runID = events[0].RunID
	}
	return runID, events, nil
}

func runTraceShow(cmd *cobra.Command, args []string) error {
	initCLILogger()

	runID, events, err := loadRunTrace(args[0])
	if err != nil {
		return err
	}

	if traceLimit > 0 && len(events) > traceLimit {
		events = events[:traceLimit]
	}

	if traceJSON {
		for _, ev := range events {
			line, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Println(string(line))
		}
		return nil
	}

	fmt.Printf("Run: %s (%d events)\n", runID, len(events))
	fmt.Println(strings.Repeat("-", 80))

	for _, ev := range events {
		ts := time.UnixMilli(ev.Timestamp).Format("15:04:05.000")
		fmt.Printf("[%s] %s%s\n", ts, ev.Type, summarizeEvent(ev))
	}

	counts := map[string]int{}
	for _, ev := range events {
		if ev.Type != event.TypeEffect {
			continue
		}
		if category, ok := ev.Data["category"].(string); ok {
			counts[category]++
		}
	}
	if len(counts) > 0 {
		fmt.Println()
		fmt.Println("Effects by category:")
		categories := make([]string, 0, len(counts))
		for c := range counts {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			fmt.Printf("  %-17s %d\n", c, counts[c])
		}
	}

	return nil
}

// summarizeEvent renders the interesting part of an event's payload for the
// human-readable listing.
func summarizeEvent(ev event.TraceEvent) string {
	switch ev.Type {
	case event.TypeLifecycle:
		stage, _ := ev.Data["stage"].(string)
		if d, ok := ev.Data["duration_ms"].(float64); ok {
			return fmt.Sprintf("/%s (%.0f ms)", stage, d)
		}
		return "/" + stage
	case event.TypeEffect:
		category, _ := ev.Data["category"].(string)
		detail := ""
		if fs, ok := ev.Data["fs"].(map[string]any); ok {
			path, _ := fs["path_resolved"].(string)
			detail = path
			if local, ok := fs["is_workspace_local"].(bool); ok && !local {
				detail += " (external)"
			}
		}
		if net, ok := ev.Data["net"].(map[string]any); ok {
			method, _ := net["method"].(string)
			host, _ := net["host_raw"].(string)
			detail = method + " " + host
		}
		if execData, ok := ev.Data["exec"].(map[string]any); ok {
			if argv, ok := execData["argv_normalized"].([]any); ok {
				parts := make([]string, 0, len(argv))
				for _, a := range argv {
					if s, ok := a.(string); ok {
						parts = append(parts, s)
					}
				}
				detail = strings.Join(parts, " ")
			}
		}
		if sensitive, ok := ev.Data["sensitive"].(map[string]any); ok {
			kind, _ := sensitive["type"].(string)
			key, _ := sensitive["key_name"].(string)
			detail = kind + " " + key
		}
		return fmt.Sprintf("/%s: %s", category, detail)
	default:
		return ""
	}
}

func runTraceIndex(cmd *cobra.Command, args []string) error {
	initCLILogger()

	runDir := args[0]
	runID, events, err := loadRunTrace(runDir)
	if err != nil {
		return err
	}

	store, err := trace.NewSQLiteStore(indexPath)
	if err != nil {
		return fmt.Errorf("failed to open run index: %w", err)
	}
	defer func() { _ = store.Close() }()

	absDir, err := filepath.Abs(runDir)
	if err != nil {
		absDir = runDir
	}
	if err := store.IndexRun(runID, absDir, events); err != nil {
		return fmt.Errorf("failed to index run: %w", err)
	}

	fmt.Printf("Indexed run %s (%d events)\n", runID, len(events))
	return nil
}

func runTraceList(cmd *cobra.Command, args []string) error {
	initCLILogger()

	store, err := trace.NewSQLiteStore(indexPath)
	if err != nil {
		return fmt.Errorf("failed to open run index: %w", err)
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No indexed runs. Use 'trace index <run-dir>' first.")
		return nil
	}

	fmt.Printf("%-24s  %-20s  %8s  %7s  %s\n", "RUN ID", "STARTED", "DURATION", "EVENTS", "RUN DIR")
	fmt.Println(strings.Repeat("-", 100))
	for _, run := range runs {
		started := "-"
		if !run.StartedAt.IsZero() && run.StartedAt.Unix() > 0 {
			started = run.StartedAt.Format("2006-01-02 15:04:05")
		}
		runDir := run.RunDir
		if len(runDir) > 34 {
			runDir = "..." + runDir[len(runDir)-31:]
		}
		fmt.Printf("%-24s  %-20s  %6dms  %7d  %s\n",
			run.RunID, started, run.DurationMs, run.EventCount, runDir)
	}

	if _, err := os.Stat(filepath.Join(".agentci", "runs")); err == nil && verbose {
		logger.Debug().Msg("Local runs directory present; unindexed runs are not listed")
	}

	return nil
}
