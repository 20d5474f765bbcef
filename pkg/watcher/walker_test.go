package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingVisitor struct {
	visited []string
	failed  []string
	skip    map[string]bool
}

func (v *recordingVisitor) PreVisitDirectory(dir string, _ []fs.DirEntry) bool {
	v.visited = append(v.visited, dir)
	return !v.skip[dir]
}

func (v *recordingVisitor) VisitFailed(path string, _ error) {
	v.failed = append(v.failed, path)
}

// makeTree creates dirs and empty files below root.
func makeTree(t *testing.T, root string, dirs []string, files []string) {
	t.Helper()
	for _, dir := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}
	for _, file := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, file), nil, 0o600))
	}
}

func TestWalkVisitsDepthFirst(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, []string{"a/b", "a/c", "d"}, []string{"a/f.txt"})

	v := &recordingVisitor{}
	require.NoError(t, walk(context.Background(), root, v))

	assert.Equal(t, []string{
		root,
		filepath.Join(root, "a"),
		filepath.Join(root, "a", "b"),
		filepath.Join(root, "a", "c"),
		filepath.Join(root, "d"),
	}, v.visited)
	assert.Empty(t, v.failed)
}

func TestWalkSkipsSubtree(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, []string{"a/b", "d"}, nil)

	v := &recordingVisitor{skip: map[string]bool{filepath.Join(root, "a"): true}}
	require.NoError(t, walk(context.Background(), root, v))

	assert.NotContains(t, v.visited, filepath.Join(root, "a", "b"))
	assert.Contains(t, v.visited, filepath.Join(root, "d"))
}

func TestWalkDoesNotFollowSymlinks(t *testing.T) {
	root := t.TempDir()
	target := t.TempDir()
	makeTree(t, target, []string{"inside"}, nil)

	link := filepath.Join(root, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	// A loop back to the root must not recurse either.
	require.NoError(t, os.Symlink(root, filepath.Join(root, "loop")))

	v := &recordingVisitor{}
	require.NoError(t, walk(context.Background(), root, v))

	assert.Equal(t, []string{root}, v.visited)
}

func TestWalkReportsFailures(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "f.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	v := &recordingVisitor{}
	require.NoError(t, walk(context.Background(), filepath.Join(root, "missing"), v))
	require.NoError(t, walk(context.Background(), file, v))

	assert.Empty(t, v.visited)
	assert.Equal(t, []string{filepath.Join(root, "missing"), file}, v.failed)
}

func TestWalkStopsOnCancel(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, []string{"a", "b"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := &recordingVisitor{}
	assert.ErrorIs(t, walk(ctx, root, v), context.Canceled)
	assert.Empty(t, v.visited)
}
