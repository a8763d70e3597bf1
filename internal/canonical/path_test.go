package canonical

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestResolvePathInsideWorkspace(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "file.txt")

	result := ResolvePath(inside, root)

	if !result.IsWorkspaceLocal {
		t.Error("Expected path inside workspace to be workspace-local")
	}
	if result.IsSymlinkEscape {
		t.Error("Expected no symlink escape for a plain inside path")
	}
	if !filepath.IsAbs(result.RequestedAbs) {
		t.Errorf("Expected absolute requested path, got %s", result.RequestedAbs)
	}
}

func TestResolvePathOutsideWorkspace(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(t.TempDir(), "other.txt")

	result := ResolvePath(outside, root)

	if result.IsWorkspaceLocal {
		t.Error("Expected path outside workspace to not be workspace-local")
	}
	if result.IsSymlinkEscape {
		t.Error("Path never appeared inside workspace, no escape expected")
	}
}

func TestResolvePathRelative(t *testing.T) {
	root, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}

	result := ResolvePath("subdir/file.txt", root)

	if !result.IsWorkspaceLocal {
		t.Error("Expected relative path under cwd workspace to be workspace-local")
	}
}

func TestResolvePathNonexistentDegrades(t *testing.T) {
	root := t.TempDir()
	missing := filepath.Join(root, "no", "such", "file.txt")

	result := ResolvePath(missing, root)

	if result.ResolvedAbs != result.RequestedAbs {
		t.Errorf("Expected resolution failure to fall back to requested path, got %s", result.ResolvedAbs)
	}
	if !result.IsWorkspaceLocal {
		t.Error("Expected unresolvable inside path to still be workspace-local")
	}
}

func TestResolvePathSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}

	root := t.TempDir()
	outsideDir := t.TempDir()

	target := filepath.Join(outsideDir, "secret.txt")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create target: %v", err)
	}

	link := filepath.Join(root, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	result := ResolvePath(link, root)

	if !result.IsSymlinkEscape {
		t.Error("Expected symlink pointing outside workspace to be flagged as escape")
	}
	if !result.IsWorkspaceLocal {
		t.Error("Requested path is inside workspace, should still count as workspace-local")
	}
}

func TestResolvePathSymlinkedWorkspaceRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}

	realRoot := t.TempDir()
	linkParent := t.TempDir()
	linkRoot := filepath.Join(linkParent, "workspace")
	if err := os.Symlink(realRoot, linkRoot); err != nil {
		t.Fatalf("Failed to create symlinked root: %v", err)
	}

	inside := filepath.Join(realRoot, "file.txt")
	if err := os.WriteFile(inside, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	// Caller refers to the file by its resolved location, workspace by link
	result := ResolvePath(inside, linkRoot)

	if !result.IsWorkspaceLocal {
		t.Error("Expected containment to hold against the resolved workspace root")
	}
	if result.IsSymlinkEscape {
		t.Error("File is inside the workspace, no escape expected")
	}
}

func TestToWorkspacePath(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "sub", "file.txt")

	rel, external := ToWorkspacePath(inside, root)
	if external {
		t.Error("Expected inside path to not be external")
	}
	if rel != filepath.Join("sub", "file.txt") {
		t.Errorf("Expected workspace-relative path, got %s", rel)
	}

	outside := filepath.Join(t.TempDir(), "file.txt")
	abs, external := ToWorkspacePath(outside, root)
	if !external {
		t.Error("Expected outside path to be external")
	}
	if abs != outside {
		t.Errorf("Expected absolute path returned unchanged, got %s", abs)
	}
}
