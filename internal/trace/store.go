package trace

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentci/recorder/internal/event"
	"github.com/agentci/recorder/internal/logger"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// RunStore is a queryable index of recorded runs, built by ingesting trace
// files. It exists for post-hoc inspection; the recording path itself only
// ever touches the JSONL writer.
type RunStore interface {
	IndexRun(runID, runDir string, events []event.TraceEvent) error
	GetRun(runID string) (*IndexedRun, error)
	ListRuns() ([]*IndexedRun, error)
	GetRunEvents(runID string, limit int) ([]event.TraceEvent, error)
	CountByCategory(runID string) (map[string]int, error)
	DeleteRun(runID string) error
	Close() error
}

// IndexedRun is a run summary row in the index.
type IndexedRun struct {
	RunID      string
	RunDir     string
	IndexedAt  time.Time
	StartedAt  time.Time
	DurationMs int64
	EventCount int
}

// SQLiteStore implements RunStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite-backed run index.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(homeDir, ".agentci", "index", "runs.db")
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Debug().
		Str("path", dbPath).
		Msg("Opened run index")

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		run_dir TEXT,
		indexed_at INTEGER NOT NULL,
		started_at INTEGER,
		duration_ms INTEGER,
		event_count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		type TEXT NOT NULL,
		category TEXT,
		data TEXT,
		metadata TEXT,
		FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, seq);
	CREATE INDEX IF NOT EXISTS idx_events_category ON events(run_id, category);
	`

	_, err := s.db.Exec(schema)
	return err
}

// IndexRun replaces the index entry for a run with the given events.
func (s *SQLiteStore) IndexRun(runID, runDir string, events []event.TraceEvent) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Re-indexing a run replaces its previous rows
	if _, err := tx.Exec("DELETE FROM events WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to clear old events: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM runs WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to clear old run: %w", err)
	}

	var startedAt, durationMs int64
	for _, ev := range events {
		if ev.Type != event.TypeLifecycle {
			continue
		}
		stage, _ := ev.Data["stage"].(string)
		switch stage {
		case "start":
			startedAt = ev.Timestamp
		case "stop":
			if d, ok := ev.Data["duration_ms"].(float64); ok {
				durationMs = int64(d)
			}
		}
	}

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, run_dir, indexed_at, started_at, duration_ms, event_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, runDir, time.Now().Unix(), startedAt, durationMs, len(events),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for seq, ev := range events {
		dataJSON, err := json.Marshal(ev.Data)
		if err != nil {
			logger.Debug().Err(err).Str("event_id", ev.ID).Msg("Failed to marshal event data")
			continue
		}
		var metadataJSON []byte
		if ev.Metadata != nil {
			metadataJSON, err = json.Marshal(ev.Metadata)
			if err != nil {
				metadataJSON = nil
			}
		}

		var category string
		if ev.Type == event.TypeEffect {
			category, _ = ev.Data["category"].(string)
		}

		_, err = tx.Exec(
			`INSERT INTO events (id, run_id, seq, timestamp, type, category, data, metadata)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, runID, seq, ev.Timestamp, string(ev.Type), category, string(dataJSON), string(metadataJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run summary by ID.
func (s *SQLiteStore) GetRun(runID string) (*IndexedRun, error) {
	var run IndexedRun
	var indexedAt, startedAt int64

	err := s.db.QueryRow(
		`SELECT run_id, run_dir, indexed_at, started_at, duration_ms, event_count
		 FROM runs WHERE run_id = ?`,
		runID,
	).Scan(&run.RunID, &run.RunDir, &indexedAt, &startedAt, &run.DurationMs, &run.EventCount)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.IndexedAt = time.Unix(indexedAt, 0)
	run.StartedAt = time.UnixMilli(startedAt)
	return &run, nil
}

// ListRuns returns all indexed runs, most recently indexed first.
func (s *SQLiteStore) ListRuns() ([]*IndexedRun, error) {
	rows, err := s.db.Query(
		`SELECT run_id, run_dir, indexed_at, started_at, duration_ms, event_count
		 FROM runs ORDER BY indexed_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*IndexedRun
	for rows.Next() {
		var run IndexedRun
		var indexedAt, startedAt int64

		if err := rows.Scan(&run.RunID, &run.RunDir, &indexedAt, &startedAt, &run.DurationMs, &run.EventCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.IndexedAt = time.Unix(indexedAt, 0)
		run.StartedAt = time.UnixMilli(startedAt)
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// GetRunEvents retrieves up to limit events for a run in trace order.
func (s *SQLiteStore) GetRunEvents(runID string, limit int) ([]event.TraceEvent, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, timestamp, type, data, metadata
		 FROM events
		 WHERE run_id = ?
		 ORDER BY seq ASC
		 LIMIT ?`,
		runID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []event.TraceEvent
	for rows.Next() {
		var ev event.TraceEvent
		var evType string
		var dataJSON, metadataJSON sql.NullString

		if err := rows.Scan(&ev.ID, &ev.RunID, &ev.Timestamp, &evType, &dataJSON, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		ev.Type = event.Type(evType)
		if dataJSON.Valid && dataJSON.String != "" {
			if err := json.Unmarshal([]byte(dataJSON.String), &ev.Data); err != nil {
				logger.Debug().Err(err).Msg("Failed to unmarshal event data")
			}
		}
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &ev.Metadata); err != nil {
				logger.Debug().Err(err).Msg("Failed to unmarshal event metadata")
			}
		}

		events = append(events, ev)
	}

	return events, rows.Err()
}

// CountByCategory returns effect event counts per category for a run.
func (s *SQLiteStore) CountByCategory(runID string) (map[string]int, error) {
	rows, err := s.db.Query(
		`SELECT category, COUNT(*) FROM events
		 WHERE run_id = ? AND category != ''
		 GROUP BY category`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count effects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[category] = count
	}

	return counts, rows.Err()
}

// DeleteRun removes a run and its events from the index.
func (s *SQLiteStore) DeleteRun(runID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM events WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to delete events: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM runs WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
