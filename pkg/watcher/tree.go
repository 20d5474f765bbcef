package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/0xmhha/dirwatch/pkg/fsevent"
	"github.com/0xmhha/dirwatch/pkg/logger"
)

// treeOps registers and unregisters directories and whole subtrees.
type treeOps struct {
	registry   *registrationTable
	dispatcher *dispatcher
	logger     logger.Logger
}

// registerTree registers dir and every directory below it.
//
// With live set, the tree appeared during the session: regular files
// already inside each directory are reported as CREATE events for root
// before the directory is registered, so files written between the
// directory's creation and its subscription are not lost.
//
// Returns the number of directories registered by this call.
func (o *treeOps) registerTree(ctx context.Context, dir string, root *watchedRoot, live bool) int {
	return o.registerTreeRefs(ctx, dir, root, live, 1)
}

// registerTreeRefs is registerTree entering every directory refs times.
func (o *treeOps) registerTreeRefs(ctx context.Context, dir string, root *watchedRoot, live bool, refs int) int {
	v := &registerVisitor{ops: o, root: root, live: live, refs: refs}
	if err := walk(ctx, dir, v); err != nil {
		o.logger.Debug("registration walk interrupted", "dir", dir, "error", err)
	}
	return int(v.dirs.Load())
}

// registerSingle registers dir alone.
func (o *treeOps) registerSingle(dir string) error {
	if _, err := o.registry.enter(dir); err != nil {
		return fmt.Errorf("failed to register %s: %w", dir, err)
	}
	return nil
}

// unregisterTree drops one reference from dir and every directory below
// it. When dir no longer exists the registry is scanned for entries under
// it instead. Returns the number of directories released.
func (o *treeOps) unregisterTree(ctx context.Context, dir string) int {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		released := 0
		for _, registered := range o.registry.under(dir) {
			if o.registry.exit(registered) {
				released++
			}
		}
		return released
	}

	v := &unregisterVisitor{ops: o}
	if err := walk(ctx, dir, v); err != nil {
		o.logger.Debug("unregistration walk interrupted", "dir", dir, "error", err)
	}
	return v.released
}

// unregisterSingle drops one reference from dir.
func (o *treeOps) unregisterSingle(dir string) bool {
	return o.registry.exit(dir)
}

// registerRoot performs the session-start registration of a root. The
// root directory is entered once per reference and each directory below
// it once per recursive reference, matching what the same AddDir calls
// register during a session. The root's immediate subtrees are walked in
// parallel, at most workers at a time.
func (o *treeOps) registerRoot(ctx context.Context, refs rootRefs, workers int) (int, error) {
	root := refs.root

	var entries []fs.DirEntry
	if refs.recursive > 0 {
		var err error
		entries, err = os.ReadDir(root.dir)
		if err != nil {
			return 0, fmt.Errorf("failed to read root %s: %w", root.dir, err)
		}
	}

	for i := 0; i < refs.count; i++ {
		if err := o.registerSingle(root.dir); err != nil {
			return 0, err
		}
	}
	if refs.recursive == 0 {
		return 1, nil
	}

	var dirs atomic.Int64
	dirs.Add(1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, child := range childDirs(root.dir, entries) {
		g.Go(func() error {
			dirs.Add(int64(o.registerTreeRefs(gctx, child, root, false, refs.recursive)))
			return nil
		})
	}
	err := g.Wait()
	return int(dirs.Load()), err
}

// registerVisitor registers every visited directory.
type registerVisitor struct {
	ops  *treeOps
	root *watchedRoot
	live bool
	refs int
	dirs atomic.Int64
}

func (v *registerVisitor) PreVisitDirectory(dir string, entries []fs.DirEntry) bool {
	if v.live {
		for _, entry := range entries {
			if entry.Type().IsRegular() {
				v.ops.dispatcher.dispatch(fsevent.KindCreate, entry.Name(), dir, v.root)
			}
		}
	}

	for i := 0; i < v.refs; i++ {
		if err := v.ops.registerSingle(dir); err != nil {
			v.ops.logger.Warn("skipping directory", "dir", dir, "error", err)
			return false
		}
	}
	v.dirs.Add(1)
	return true
}

func (v *registerVisitor) VisitFailed(path string, err error) {
	v.ops.logger.Warn("cannot read directory, skipping", "dir", path, "error", err)
}

// unregisterVisitor releases every visited directory that is registered.
type unregisterVisitor struct {
	ops      *treeOps
	released int
}

func (v *unregisterVisitor) PreVisitDirectory(dir string, _ []fs.DirEntry) bool {
	if v.ops.registry.exit(dir) {
		v.released++
	}
	return true
}

func (v *unregisterVisitor) VisitFailed(path string, err error) {
	v.ops.logger.Debug("cannot read directory while unregistering", "dir", path, "error", err)
}
