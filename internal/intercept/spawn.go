package intercept

import (
	"os/exec"

	"github.com/agentci/recorder/internal/canonical"
	"github.com/agentci/recorder/internal/event"
	"github.com/agentci/recorder/internal/recorder"
)

// Spawner is the process-spawn capability surface: a run-and-wait style and
// a spawn-object style.
type Spawner interface {
	Run(cmd *exec.Cmd) error
	Start(cmd *exec.Cmd) error
}

// OSSpawner is the pass-through implementation.
type OSSpawner struct{}

func (OSSpawner) Run(cmd *exec.Cmd) error { return cmd.Run() }

func (OSSpawner) Start(cmd *exec.Cmd) error { return cmd.Start() }

// RecordingSpawner decorates a Spawner, emitting one exec effect before the
// real spawn. Recording happens at call time deliberately: the trace captures
// attempted executions, so a spawn that subsequently fails still appears.
type RecordingSpawner struct {
	inner Spawner
	ctx   *recorder.Context
}

// NewRecordingSpawner wraps a Spawner with effect recording.
func NewRecordingSpawner(ctx *recorder.Context, inner Spawner) *RecordingSpawner {
	if inner == nil {
		inner = OSSpawner{}
	}
	return &RecordingSpawner{inner: inner, ctx: ctx}
}

func (s *RecordingSpawner) Run(cmd *exec.Cmd) error {
	s.record(cmd)
	return s.inner.Run(cmd)
}

func (s *RecordingSpawner) Start(cmd *exec.Cmd) error {
	s.record(cmd)
	return s.inner.Start(cmd)
}

func (s *RecordingSpawner) record(cmd *exec.Cmd) {
	if cmd == nil {
		return
	}

	command, args := splitCommand(cmd)
	_, argv := canonical.NormalizeCommand(command, args)

	s.ctx.Emit(event.EffectEventData{
		Category: event.CategoryExec,
		Kind:     event.KindObserved,
		Exec: &event.ExecEffectData{
			CommandRaw:     command,
			ArgvNormalized: argv,
		},
	})
}

// splitCommand extracts the raw command and its arguments from a prepared
// exec.Cmd. Args[0] carries the command as the caller wrote it; Path is the
// fallback when Args was set empty.
func splitCommand(cmd *exec.Cmd) (string, []string) {
	if len(cmd.Args) > 0 {
		return cmd.Args[0], cmd.Args[1:]
	}
	return cmd.Path, nil
}
