package intercept

import (
	"os"
	"strings"

	"github.com/agentci/recorder/internal/event"
	"github.com/agentci/recorder/internal/recorder"
)

// Env is the key/value environment store capability surface.
type Env interface {
	Get(key string) string
	Lookup(key string) (string, bool)
	Has(key string) bool
	Set(key, value string) error
	Unset(key string) error
	Keys() []string
}

// OSEnv is the pass-through implementation over the process environment.
type OSEnv struct{}

func (OSEnv) Get(key string) string { return os.Getenv(key) }

func (OSEnv) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

func (OSEnv) Has(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func (OSEnv) Set(key, value string) error { return os.Setenv(key, value) }

func (OSEnv) Unset(key string) error { return os.Unsetenv(key) }

func (OSEnv) Keys() []string {
	environ := os.Environ()
	keys := make([]string, 0, len(environ))
	for _, kv := range environ {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			keys = append(keys, kv[:i])
		}
	}
	return keys
}

// RecordingEnv decorates an Env. Reads of a blocked key emit a
// sensitive_access effect before returning the real value unchanged; every
// other operation is fully pass-through. Containment checks and iteration do
// not count as reads.
type RecordingEnv struct {
	inner Env
	ctx   *recorder.Context
}

// NewRecordingEnv wraps an Env with sensitive-access recording.
func NewRecordingEnv(ctx *recorder.Context, inner Env) *RecordingEnv {
	if inner == nil {
		inner = OSEnv{}
	}
	return &RecordingEnv{inner: inner, ctx: ctx}
}

func (e *RecordingEnv) recordAccess(key string) {
	e.ctx.Emit(event.EffectEventData{
		Category: event.CategorySensitiveAccess,
		Kind:     event.KindObserved,
		Sensitive: &event.SensitiveEffectData{
			Type:    event.SensitiveEnvVar,
			KeyName: key,
		},
	})
}

func (e *RecordingEnv) Get(key string) string {
	if e.ctx.EnvBlocked(key) {
		e.recordAccess(key)
	}
	return e.inner.Get(key)
}

func (e *RecordingEnv) Lookup(key string) (string, bool) {
	if e.ctx.EnvBlocked(key) {
		e.recordAccess(key)
	}
	return e.inner.Lookup(key)
}

func (e *RecordingEnv) Has(key string) bool { return e.inner.Has(key) }

func (e *RecordingEnv) Set(key, value string) error { return e.inner.Set(key, value) }

func (e *RecordingEnv) Unset(key string) error { return e.inner.Unset(key) }

func (e *RecordingEnv) Keys() []string { return e.inner.Keys() }
