// Package intercept provides recording decorators over capability
// interfaces: filesystem operations, HTTP transport, process spawning, and
// the environment store. Each decorator observes and records the operation
// but never alters its behavior, result, or error. Operations issued below
// these interfaces (direct syscalls) are not observed; that is an accepted
// limitation, not a gap to close here.
package intercept

import (
	"os"

	"github.com/agentci/recorder/internal/canonical"
	"github.com/agentci/recorder/internal/event"
	"github.com/agentci/recorder/internal/recorder"
)

// FS is the filesystem capability surface the recorder can observe.
type FS interface {
	Open(name string) (*os.File, error)
	Create(name string) (*os.File, error)
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	Remove(name string) error
	RemoveAll(path string) error
	Rename(oldpath, newpath string) error
	Mkdir(name string, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
}

// OSFS is the pass-through implementation over the real filesystem.
type OSFS struct{}

func (OSFS) Open(name string) (*os.File, error) { return os.Open(name) }

func (OSFS) Create(name string) (*os.File, error) { return os.Create(name) }

func (OSFS) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

func (OSFS) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

func (OSFS) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (OSFS) Remove(name string) error { return os.Remove(name) }

func (OSFS) RemoveAll(path string) error { return os.RemoveAll(path) }

func (OSFS) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }

func (OSFS) Mkdir(name string, perm os.FileMode) error { return os.Mkdir(name, perm) }

func (OSFS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// RecordingFS decorates an FS, emitting one effect event per observed
// operation. Open-style operations record the attempt before the real call;
// destructive operations record after the real call succeeds, mirroring the
// rule that a failed delete left nothing behind to observe.
type RecordingFS struct {
	inner FS
	ctx   *recorder.Context
}

// NewRecordingFS wraps an FS with effect recording.
func NewRecordingFS(ctx *recorder.Context, inner FS) *RecordingFS {
	if inner == nil {
		inner = OSFS{}
	}
	return &RecordingFS{inner: inner, ctx: ctx}
}

// recordFs canonicalizes the requested path, applies the run-data exclusion,
// and emits the effect. Reads additionally run the sensitive glob check.
func (f *RecordingFS) recordFs(category event.Category, requestedPath string) {
	resolved := canonical.ResolvePath(requestedPath, f.ctx.WorkspaceRoot)
	if f.ctx.IsRecorderPath(resolved.ResolvedAbs) {
		return
	}

	f.ctx.Emit(event.EffectEventData{
		Category: category,
		Kind:     event.KindObserved,
		Fs: &event.FsEffectData{
			PathRequested:    requestedPath,
			PathResolved:     resolved.ResolvedAbs,
			IsWorkspaceLocal: resolved.IsWorkspaceLocal,
		},
	})

	if category == event.CategoryFsRead && f.ctx.FileGlobs.Match(resolved.ResolvedAbs) {
		f.ctx.Emit(event.EffectEventData{
			Category: event.CategorySensitiveAccess,
			Kind:     event.KindObserved,
			Sensitive: &event.SensitiveEffectData{
				Type:    event.SensitiveFileRead,
				KeyName: resolved.ResolvedAbs,
			},
		})
	}
}

func (f *RecordingFS) Open(name string) (*os.File, error) {
	f.recordFs(event.CategoryFsRead, name)
	return f.inner.Open(name)
}

func (f *RecordingFS) Create(name string) (*os.File, error) {
	f.recordFs(event.CategoryFsWrite, name)
	return f.inner.Create(name)
}

func (f *RecordingFS) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	f.recordFs(openCategory(flag), name)
	return f.inner.OpenFile(name, flag, perm)
}

func (f *RecordingFS) ReadFile(name string) ([]byte, error) {
	f.recordFs(event.CategoryFsRead, name)
	return f.inner.ReadFile(name)
}

func (f *RecordingFS) WriteFile(name string, data []byte, perm os.FileMode) error {
	f.recordFs(event.CategoryFsWrite, name)
	return f.inner.WriteFile(name, data, perm)
}

func (f *RecordingFS) Remove(name string) error {
	err := f.inner.Remove(name)
	if err == nil {
		f.recordFs(event.CategoryFsDelete, name)
	}
	return err
}

// RemoveAll records before the real call: a recursive delete may partially
// complete, and the attempt is the effect of interest.
func (f *RecordingFS) RemoveAll(path string) error {
	f.recordFs(event.CategoryFsDelete, path)
	return f.inner.RemoveAll(path)
}

// Rename emits fs_delete for the source followed by fs_write for the
// destination, source first.
func (f *RecordingFS) Rename(oldpath, newpath string) error {
	err := f.inner.Rename(oldpath, newpath)
	if err == nil {
		f.recordFs(event.CategoryFsDelete, oldpath)
		f.recordFs(event.CategoryFsWrite, newpath)
	}
	return err
}

func (f *RecordingFS) Mkdir(name string, perm os.FileMode) error {
	err := f.inner.Mkdir(name, perm)
	if err == nil {
		f.recordFs(event.CategoryFsWrite, name)
	}
	return err
}

func (f *RecordingFS) MkdirAll(path string, perm os.FileMode) error {
	err := f.inner.MkdirAll(path, perm)
	if err == nil {
		f.recordFs(event.CategoryFsWrite, path)
	}
	return err
}

// openCategory classifies an OpenFile flag set: any write-capable flag makes
// the open an fs_write, plain reads are fs_read.
func openCategory(flag int) event.Category {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC|os.O_EXCL) != 0 {
		return event.CategoryFsWrite
	}
	return event.CategoryFsRead
}
