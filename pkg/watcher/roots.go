package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// watchedRoot is one user-requested root with its extension filter.
//
// exts and wildcard are multisets: every AddDir adds one reference and
// every RemoveDir takes one away, so overlapping callers do not clobber
// each other's filters. wildcard only counts "*" references for removal;
// the filter itself is exts.
type watchedRoot struct {
	dir string

	mu        sync.Mutex
	count     int
	recursive int
	wildcard  int
	exts      map[string]int
	dead      bool
}

// matches reports whether files with ext pass the root's filter. An
// empty filter passes everything; wildcard references never widen a
// non-empty one.
func (r *watchedRoot) matches(ext string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.exts) == 0 {
		return true
	}
	return r.exts[ext] > 0
}

// isRecursive reports whether subdirectories are watched.
func (r *watchedRoot) isRecursive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recursive > 0
}

// rootRefs is a root's reference counts captured when a session starts.
type rootRefs struct {
	root      *watchedRoot
	count     int
	recursive int
}

// refs captures r's counts. Every reference holds the root directory;
// recursive references also hold every directory below it.
func (r *watchedRoot) refs() rootRefs {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rootRefs{root: r, count: r.count, recursive: r.recursive}
}

func (r *watchedRoot) info() RootInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := RootInfo{
		Dir:       r.dir,
		MatchAll:  len(r.exts) == 0,
		Recursive: r.recursive > 0,
		RefCount:  r.count,
	}
	for ext := range r.exts {
		info.Extensions = append(info.Extensions, ext)
	}
	sort.Strings(info.Extensions)
	return info
}

// rootTable maps root directories to their watchedRoot.
//
// Entries are created and retired under their own lock; an entry marked
// dead has already been deleted from the map and callers retry.
type rootTable struct {
	entries sync.Map // string -> *watchedRoot
	size    atomic.Int64
}

// add records one reference for (ext, dir, recursive).
// Returns the root and whether it was created by this call.
func (t *rootTable) add(ext, dir string, recursive bool) (*watchedRoot, bool) {
	for {
		fresh := &watchedRoot{dir: dir, exts: make(map[string]int)}
		fresh.mu.Lock()

		actual, loaded := t.entries.LoadOrStore(dir, fresh)
		root := actual.(*watchedRoot)
		if !loaded {
			fresh.reference(ext, recursive)
			fresh.mu.Unlock()
			t.size.Add(1)
			return fresh, true
		}
		fresh.mu.Unlock()

		root.mu.Lock()
		if root.dead {
			root.mu.Unlock()
			continue
		}
		root.reference(ext, recursive)
		root.mu.Unlock()
		return root, false
	}
}

// reference must be called with r.mu held.
func (r *watchedRoot) reference(ext string, recursive bool) {
	r.count++
	if recursive {
		r.recursive++
	}
	if ext == Wildcard {
		r.wildcard++
	} else {
		r.exts[ext]++
	}
}

// remove drops one reference for (ext, dir, recursive).
// Returns the root and whether it was retired by this call.
func (t *rootTable) remove(ext, dir string, recursive bool) (*watchedRoot, bool, error) {
	value, ok := t.entries.Load(dir)
	if !ok {
		return nil, false, ErrNotWatched
	}
	root := value.(*watchedRoot)

	root.mu.Lock()
	defer root.mu.Unlock()

	if root.dead {
		return nil, false, ErrNotWatched
	}

	if ext == Wildcard {
		if root.wildcard == 0 && len(root.exts) > 0 {
			return nil, false, ErrExtensionNotWatched
		}
		if root.wildcard > 0 {
			root.wildcard--
		}
	} else if len(root.exts) > 0 {
		if root.exts[ext] == 0 {
			return nil, false, ErrExtensionNotWatched
		}
		root.exts[ext]--
		if root.exts[ext] == 0 {
			delete(root.exts, ext)
		}
	}

	if recursive && root.recursive > 0 {
		root.recursive--
	}

	root.count--
	if root.count > 0 {
		return root, false, nil
	}

	root.dead = true
	t.entries.CompareAndDelete(dir, root)
	t.size.Add(-1)
	return root, true, nil
}

// resolve returns the root owning path: the longest watched directory that
// contains path. Returns nil when no root does.
func (t *rootTable) resolve(path string) *watchedRoot {
	var best *watchedRoot
	t.entries.Range(func(key, value any) bool {
		dir := key.(string)
		if !isWithinPath(dir, path) {
			return true
		}
		if best == nil || len(dir) > len(best.dir) {
			best = value.(*watchedRoot)
		}
		return true
	})
	return best
}

// snapshot returns the live roots sorted by directory.
func (t *rootTable) snapshot() []*watchedRoot {
	var roots []*watchedRoot
	t.entries.Range(func(_, value any) bool {
		roots = append(roots, value.(*watchedRoot))
		return true
	})
	sort.Slice(roots, func(i, j int) bool { return roots[i].dir < roots[j].dir })
	return roots
}

func (t *rootTable) len() int {
	return int(t.size.Load())
}

// normalizeExtension validates ext and gives it a leading dot.
func normalizeExtension(ext string) (string, error) {
	ext = strings.TrimSpace(ext)
	switch ext {
	case "", ".":
		return "", fmt.Errorf("%w: empty extension", ErrInvalidArgument)
	case Wildcard:
		return Wildcard, nil
	}
	if strings.ContainsRune(ext, filepath.Separator) {
		return "", fmt.Errorf("%w: extension %q contains a path separator", ErrInvalidArgument, ext)
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext, nil
}

// normalizeDir makes dir absolute and clean.
func normalizeDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("%w: empty directory", ErrInvalidArgument)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return abs, nil
}

// requireDir fails unless dir exists and is a directory.
func requireDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s: %v", ErrInvalidArgument, dir, ErrNotDirectory)
	}
	return nil
}

// isWithinPath reports whether path equals root or lies under it.
// Both paths must be clean and absolute.
func isWithinPath(root, path string) bool {
	if path == root {
		return true
	}
	if !strings.HasPrefix(path, root) {
		return false
	}
	if strings.HasSuffix(root, string(filepath.Separator)) {
		return true
	}
	return path[len(root)] == filepath.Separator
}
