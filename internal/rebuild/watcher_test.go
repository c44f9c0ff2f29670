package rebuild

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) onChange(_ context.Context, changed []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, changed)
	return nil
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

func (r *recorder) seen(path string) bool {
	for _, call := range r.snapshot() {
		if slices.Contains(call, path) {
			return true
		}
	}
	return false
}

func start(t *testing.T, cfg Config) {
	t.Helper()
	w, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
}

func TestWatcher_DebouncesEvents(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	start(t, Config{Root: root, Debounce: 150 * time.Millisecond, OnChange: rec.onChange})

	for _, name := range []string{"a.js", "b.js", "c.js"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return rec.seen("c.js") }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(300 * time.Millisecond)

	calls := rec.snapshot()
	require.Len(t, calls, 1)
	assert.Subset(t, calls[0], []string{"a.js", "b.js", "c.js"})
	assert.True(t, slices.IsSorted(calls[0]))
}

func TestWatcher_FollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	start(t, Config{Root: root, Debounce: 50 * time.Millisecond, OnChange: rec.onChange})

	require.NoError(t, os.Mkdir(filepath.Join(root, "blog"), 0o755))
	assert.Eventually(t, func() bool { return rec.seen("blog") }, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Mkdir(filepath.Join(root, "blog", "index"), 0o755))
	assert.Eventually(t, func() bool { return rec.seen("blog/index") }, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "blog", "index", "index.js"), nil, 0o644))
	assert.Eventually(t, func() bool { return rec.seen("blog/index/index.js") }, 5*time.Second, 20*time.Millisecond)
}

func TestWatcher_IgnoresNoise(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "pkg"), 0o755))
	rec := &recorder{}
	start(t, Config{Root: root, Debounce: 50 * time.Millisecond, Ignore: []string{"**/*.tmp"}, OnChange: rec.onChange})

	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "pkg", "index.js"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".DS_Store"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "draft.tmp"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "page.art"), nil, 0o644))

	assert.Eventually(t, func() bool { return rec.seen("page.art") }, 5*time.Second, 20*time.Millisecond)
	for _, call := range rec.snapshot() {
		assert.NotContains(t, call, ".DS_Store")
		assert.NotContains(t, call, "draft.tmp")
		assert.NotContains(t, call, "node_modules/pkg/index.js")
	}
}

func TestWatcher_IgnoreFileEditsTriggerRebuild(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	start(t, Config{Root: root, Debounce: 20 * time.Millisecond, OnChange: rec.onChange})

	require.NoError(t, os.WriteFile(filepath.Join(root, ".pagegraphignore"), []byte("drafts/\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.bak\n"), 0o644))

	assert.Eventually(t, func() bool {
		return rec.seen(".pagegraphignore") && rec.seen(".gitignore")
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcher_HonorsIgnoreFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "drafts", "post"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("drafts/\n*.bak\n"), 0o644))
	rec := &recorder{}
	start(t, Config{Root: root, Debounce: 30 * time.Millisecond, IgnoreFiles: true, OnChange: rec.onChange})

	require.NoError(t, os.WriteFile(filepath.Join(root, "drafts", "post", "index.art"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "page.bak"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "page.art"), nil, 0o644))

	assert.Eventually(t, func() bool { return rec.seen("page.art") }, 5*time.Second, 20*time.Millisecond)
	assert.False(t, rec.seen("drafts/post/index.art"))
	assert.False(t, rec.seen("page.bak"))

	// un-ignoring a directory starts watching it
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), nil, 0o644))
	assert.Eventually(t, func() bool { return rec.seen(".gitignore") }, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "drafts", "post", "index.js"), nil, 0o644))
	assert.Eventually(t, func() bool { return rec.seen("drafts/post/index.js") }, 5*time.Second, 20*time.Millisecond)
}

func TestWatcher_WatchesExtraFiles(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	unitManifest := filepath.Join(outside, "units.yaml")
	require.NoError(t, os.WriteFile(unitManifest, []byte("units: []\n"), 0o644))

	rec := &recorder{}
	start(t, Config{Root: root, Debounce: 30 * time.Millisecond, Files: []string{unitManifest}, OnChange: rec.onChange})

	require.NoError(t, os.WriteFile(filepath.Join(outside, "unrelated.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(unitManifest, []byte("units:\n  - name: a/b\n"), 0o644))

	key := filepath.ToSlash(unitManifest)
	assert.Eventually(t, func() bool { return rec.seen(key) }, 5*time.Second, 20*time.Millisecond)
	assert.False(t, rec.seen(filepath.ToSlash(filepath.Join(outside, "unrelated.txt"))))
}

func TestWatcher_InitialBuild(t *testing.T) {
	rec := &recorder{}
	start(t, Config{Root: t.TempDir(), InitialBuild: true, OnChange: rec.onChange})

	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 5*time.Second, 20*time.Millisecond)
	assert.Nil(t, rec.snapshot()[0])
}

func TestWatcher_RunOnce(t *testing.T) {
	w, err := New(Config{Root: t.TempDir()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))
	assert.Error(t, w.Run(ctx))
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Root: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(Config{Root: file})
	assert.Error(t, err)

	_, err = New(Config{Root: t.TempDir(), Ignore: []string{"[unclosed"}})
	assert.Error(t, err)

	_, err = New(Config{Root: t.TempDir(), Files: []string{filepath.Join(t.TempDir(), "missing", "units.yaml")}})
	assert.Error(t, err)
}
