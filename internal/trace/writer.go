// Package trace persists trace events: a buffered append-only JSONL writer
// plus a SQLite index for querying recorded runs.
package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentci/recorder/internal/event"
	"github.com/agentci/recorder/internal/logger"
)

const (
	// DefaultBufferSize is the number of buffered events that triggers an
	// inline flush.
	DefaultBufferSize = 64
	// DefaultFlushInterval is how often the background flusher drains the
	// buffer regardless of fill level.
	DefaultFlushInterval = 250 * time.Millisecond
)

// Writer is a buffered, append-only trace sink. Events are serialized to one
// JSON line each and buffered in memory; the buffer is drained to disk when
// it reaches the size threshold or on a periodic timer, whichever comes
// first. Writes after Close are silently dropped.
type Writer struct {
	tracePath     string
	bufferSize    int
	flushInterval time.Duration

	mu     sync.Mutex // guards buffer
	buffer [][]byte

	fileMu sync.Mutex // guards file during flush and close
	file   *os.File

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewWriter opens (or creates) a trace file for appending with default
// buffering.
func NewWriter(tracePath string) (*Writer, error) {
	return NewBufferedWriter(tracePath, DefaultBufferSize, DefaultFlushInterval)
}

// NewBufferedWriter opens a trace file with explicit buffer size and flush
// interval. The file is opened in append mode so a prior session's records
// are never overwritten.
func NewBufferedWriter(tracePath string, bufferSize int, flushInterval time.Duration) (*Writer, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}

	if err := os.MkdirAll(filepath.Dir(tracePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}

	file, err := os.OpenFile(tracePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	w := &Writer{
		tracePath:     tracePath,
		bufferSize:    bufferSize,
		flushInterval: flushInterval,
		file:          file,
		done:          make(chan struct{}),
	}

	go w.flushLoop()

	logger.Debug().Str("path", tracePath).Msg("Opened trace writer")
	return w, nil
}

// Path returns the trace file path.
func (w *Writer) Path() string {
	return w.tracePath
}

// Write serializes an event and appends it to the buffer. Serialization
// failures drop the event and are logged, never surfaced. No-op after Close.
func (w *Writer) Write(ev event.TraceEvent) {
	if w.closed.Load() {
		return
	}

	line, err := json.Marshal(ev)
	if err != nil {
		logger.Debug().Err(err).Str("event_id", ev.ID).Msg("Failed to serialize event")
		return
	}

	w.mu.Lock()
	w.buffer = append(w.buffer, line)
	full := len(w.buffer) >= w.bufferSize
	w.mu.Unlock()

	if full {
		w.flush()
	}
}

// flush drains the buffer and appends it to disk. The buffer lock is held
// only for the swap, so producers never wait on disk I/O; fileMu is taken
// first so concurrent flushes append in swap order.
func (w *Writer) flush() {
	w.fileMu.Lock()
	defer w.fileMu.Unlock()

	w.mu.Lock()
	if len(w.buffer) == 0 {
		w.mu.Unlock()
		return
	}
	pending := w.buffer
	w.buffer = nil
	w.mu.Unlock()

	if w.file == nil {
		return
	}
	var out []byte
	for _, line := range pending {
		out = append(out, line...)
		out = append(out, '\n')
	}
	if _, err := w.file.Write(out); err != nil {
		logger.Debug().Err(err).Int("events", len(pending)).Msg("Failed to flush trace buffer")
	}
}

func (w *Writer) flushLoop() {
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flush()
		case <-w.done:
			return
		}
	}
}

// Close stops the background flusher, performs a final flush, and closes the
// trace file. Idempotent; later writes are dropped.
func (w *Writer) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		close(w.done)
		w.flush()

		w.fileMu.Lock()
		defer w.fileMu.Unlock()
		err = w.file.Close()
		w.file = nil
	})
	return err
}
