package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/agentci/recorder/internal/event"
	"github.com/agentci/recorder/internal/logger"
)

// ReadFile parses a trace.jsonl file into events, preserving file order.
// Malformed lines are skipped and logged rather than failing the read, since
// a crashed run may leave a torn final line.
func ReadFile(path string) ([]event.TraceEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []event.TraceEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev event.TraceEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			logger.Debug().Int("line", lineNo).Err(err).Msg("Skipping malformed trace line")
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("failed to scan trace file: %w", err)
	}

	return events, nil
}
