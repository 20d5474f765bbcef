package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

// Visitor receives callbacks from walk.
type Visitor interface {
	// PreVisitDirectory is called with the entries of dir before its
	// subdirectories are visited. Returning false skips the subtree.
	PreVisitDirectory(dir string, entries []fs.DirEntry) bool

	// VisitFailed is called when path cannot be read. The walk continues.
	VisitFailed(path string, err error)
}

// reservedTrees lists OS-managed trees that are never descended into.
var reservedTrees = map[string][]string{
	"linux":   {"/proc", "/sys", "/dev", "/run"},
	"darwin":  {"/dev", "/System/Volumes", "/private/var/vm", "/Volumes"},
	"freebsd": {"/dev", "/proc"},
	"windows": {`C:\$Recycle.Bin`, `C:\System Volume Information`},
}

// isReserved reports whether dir is, or lies under, a reserved tree.
func isReserved(dir string) bool {
	for _, tree := range reservedTrees[runtime.GOOS] {
		if isWithinPath(tree, dir) {
			return true
		}
	}
	return false
}

// walk visits root and every directory below it, depth first with an
// explicit stack. Symbolic links are never followed and reserved trees are
// skipped. It stops early only when ctx is done.
func walk(ctx context.Context, root string, v Visitor) error {
	info, err := os.Stat(root)
	if err != nil {
		v.VisitFailed(root, err)
		return nil
	}
	if !info.IsDir() {
		v.VisitFailed(root, ErrNotDirectory)
		return nil
	}

	stack := []string{root}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			v.VisitFailed(dir, err)
			continue
		}
		if !v.PreVisitDirectory(dir, entries) {
			continue
		}

		children := childDirs(dir, entries)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return nil
}

// childDirs returns the subdirectories of dir worth descending into, in
// directory order.
func childDirs(dir string, entries []fs.DirEntry) []string {
	var dirs []string
	for _, entry := range entries {
		if entry.Type()&fs.ModeSymlink != 0 || !entry.IsDir() {
			continue
		}
		child := filepath.Join(dir, entry.Name())
		if isReserved(child) {
			continue
		}
		dirs = append(dirs, child)
	}
	return dirs
}
