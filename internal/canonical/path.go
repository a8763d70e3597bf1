// Package canonical normalizes paths, hostnames, and command lines into
// policy-comparable forms. Functions here never fail: resolution errors
// degrade to the unresolved absolute path.
package canonical

import (
	"path/filepath"
	"strings"
)

// ResolvedPath is the result of resolving a requested path against a
// workspace root.
type ResolvedPath struct {
	RequestedAbs     string
	ResolvedAbs      string
	IsWorkspaceLocal bool
	// IsSymlinkEscape is true when the requested path sits inside the
	// workspace by absolute-path containment but its symlink-resolved
	// target lies outside it.
	IsSymlinkEscape bool
}

func safeRealpath(p string) (string, bool) {
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return "", false
	}
	return resolved, true
}

func safeAbs(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}

// isSubpath reports whether target is root itself or lies beneath it.
func isSubpath(target, root string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}

// ResolvePath computes the absolute and best-effort symlink-resolved forms of
// a requested path and evaluates workspace containment. Containment is
// checked four ways (requested/resolved path against resolved/unresolved
// root) and holds if any combination does, since either side may or may not
// have been symlink-resolved by the caller.
func ResolvePath(requestedPath, workspaceRoot string) ResolvedPath {
	workspaceOriginal := safeAbs(workspaceRoot)
	workspaceResolved, ok := safeRealpath(workspaceRoot)
	if !ok {
		workspaceResolved = workspaceOriginal
	}

	requestedAbs := safeAbs(requestedPath)
	resolvedAbs, ok := safeRealpath(requestedAbs)
	if !ok {
		resolvedAbs = requestedAbs
	}

	requestedInside := isSubpath(requestedAbs, workspaceResolved) || isSubpath(requestedAbs, workspaceOriginal)
	resolvedInside := isSubpath(resolvedAbs, workspaceResolved) || isSubpath(resolvedAbs, workspaceOriginal)

	return ResolvedPath{
		RequestedAbs:     requestedAbs,
		ResolvedAbs:      resolvedAbs,
		IsWorkspaceLocal: resolvedInside || requestedInside,
		IsSymlinkEscape:  requestedInside && !resolvedInside,
	}
}

// ToWorkspacePath converts a resolved absolute path to a workspace-relative
// one when containment holds (resolved root checked first, then the
// unresolved root). Paths outside the workspace are returned unchanged with
// isExternal true.
func ToWorkspacePath(resolvedAbs, workspaceRoot string) (string, bool) {
	workspaceOriginal := safeAbs(workspaceRoot)
	workspaceResolved, ok := safeRealpath(workspaceRoot)
	if !ok {
		workspaceResolved = workspaceOriginal
	}

	if isSubpath(resolvedAbs, workspaceResolved) {
		if rel, err := filepath.Rel(workspaceResolved, resolvedAbs); err == nil {
			return rel, false
		}
	}
	if isSubpath(resolvedAbs, workspaceOriginal) {
		if rel, err := filepath.Rel(workspaceOriginal, resolvedAbs); err == nil {
			return rel, false
		}
	}
	return resolvedAbs, true
}
