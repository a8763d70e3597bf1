// Package recorder owns the recording session: the run context shared by
// every interceptor, plus session start/stop lifecycle.
package recorder

import (
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/agentci/recorder/internal/event"
	"github.com/agentci/recorder/internal/logger"
	"github.com/agentci/recorder/internal/policy"
	"github.com/agentci/recorder/internal/trace"
)

// Context is the shared state of one recording session. Policy fields are
// read-only after Start; the suppression flag is the only mutable field and
// is scoped to this context, so concurrent sessions cannot race on it.
type Context struct {
	RunID         string
	RunDir        string
	WorkspaceRoot string
	Writer        *trace.Writer

	// BlockedEnv is the set of environment variable names whose reads are
	// recorded as sensitive_access.
	BlockedEnv map[string]struct{}
	// FileGlobs matches resolved read paths against blocked patterns.
	FileGlobs *policy.Matcher

	// recorderRoots are directory prefixes excluded from filesystem
	// recording to keep the trace from observing its own writes.
	recorderRoots []string

	bypass    atomic.Bool
	startedAt time.Time
	stopped   atomic.Bool
}

// Suppressed reports whether recording is currently suppressed for this
// context.
func (c *Context) Suppressed() bool {
	return c.bypass.Load()
}

// Suppress runs fn with recording suppressed, restoring the previous state
// afterwards. Used around the recorder's own internal I/O only.
func (c *Context) Suppress(fn func()) {
	prev := c.bypass.Swap(true)
	defer c.bypass.Store(prev)
	fn()
}

// Emit builds an observed effect event and hands it to the writer. It is a
// no-op while suppressed, and any panic inside the recording path is
// swallowed and logged so the instrumented program never sees it.
func (c *Context) Emit(data event.EffectEventData) {
	if c.Suppressed() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Debug().Interface("panic", r).Msg("Recovered from recording failure")
		}
	}()
	c.Writer.Write(event.NewEffect(c.RunID, data))
}

// IsRecorderPath reports whether a resolved absolute path lies inside the
// recorder's own run-data directories.
func (c *Context) IsRecorderPath(resolvedAbs string) bool {
	for _, root := range c.recorderRoots {
		if resolvedAbs == root || strings.HasPrefix(resolvedAbs, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// EnvBlocked reports whether reads of the named environment variable are
// recorded as sensitive.
func (c *Context) EnvBlocked(name string) bool {
	_, ok := c.BlockedEnv[name]
	return ok
}
