// Package rebuild reruns a build whenever the view tree changes.
//
// Every directory under the root is watched, including ones created later.
// Events are debounced and coalesced; the callback then receives the set of
// changed paths and is expected to rebuild from scratch. Callbacks never run
// concurrently with each other. Edits to .gitignore and .pagegraphignore
// always count as changes because they alter what a scan returns.
package rebuild

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/fulmenhq/pagegraph/pkg/ignore"
	"github.com/fulmenhq/pagegraph/pkg/logger"
	"github.com/fulmenhq/pagegraph/pkg/pathfinder"
	"golang.org/x/sync/errgroup"
)

// DefaultDebounce is the quiet period used when Config.Debounce is not set.
const DefaultDebounce = 300 * time.Millisecond

var log = logger.Named("rebuild")

// ignoreFiles are hidden but still trigger a rebuild.
var ignoreFiles = map[string]bool{".gitignore": true, ignore.FileName: true}

var defaultIgnores = []string{
	"**/.*",
	"**/.*/**",
	"**/node_modules",
	"**/node_modules/**",
	"**/*~",
	"**/*.swp",
}

// Config holds the parameters of a Watcher.
type Config struct {
	Root     string
	Debounce time.Duration
	// Ignore holds extra doublestar patterns, relative to Root, that never
	// trigger a rebuild.
	Ignore []string
	// IgnoreFiles prunes paths matched by .gitignore and .pagegraphignore
	// files under Root, reloading them whenever one changes.
	IgnoreFiles bool
	// Files are extra files watched wherever they live, such as a unit
	// manifest. Changes are reported relative to Root when inside it and as
	// absolute slash paths otherwise.
	Files []string
	// InitialBuild runs OnChange once with no changed paths before any event.
	InitialBuild bool
	// OnChange receives the changed paths relative to Root, slash separated
	// and sorted. Errors are logged and do not stop the watcher.
	OnChange func(ctx context.Context, changed []string) error
}

// Watcher watches a directory tree. Run must be called exactly once.
type Watcher struct {
	cfg      Config
	root     string
	debounce time.Duration
	ignores  []string
	files    map[string]bool
	pf       pathfinder.PathFinder
	fsw      *fsnotify.Watcher
	started  atomic.Bool

	// matcher is only touched by New and the watch goroutine.
	matcher *ignore.Matcher

	mu      sync.Mutex
	pending map[string]struct{}
}

// New validates cfg and registers every directory under Root.
func New(cfg Config) (*Watcher, error) {
	if cfg.Root == "" {
		return nil, errors.New("rebuild: root cannot be empty")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("rebuild: resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("rebuild: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("rebuild: %s is not a directory", root)
	}
	for _, pat := range cfg.Ignore {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("rebuild: invalid ignore pattern %q", pat)
		}
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	pf, err := pathfinder.NewConstrainedPathFinder(root)
	if err != nil {
		return nil, fmt.Errorf("rebuild: %w", err)
	}

	files := make(map[string]bool, len(cfg.Files))
	for _, f := range cfg.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("rebuild: resolve %s: %w", f, err)
		}
		files[abs] = true
	}

	w := &Watcher{
		cfg:      cfg,
		root:     root,
		debounce: debounce,
		ignores:  append(append([]string{}, defaultIgnores...), cfg.Ignore...),
		files:    files,
		pf:       pf,
		pending:  make(map[string]struct{}),
	}
	if cfg.IgnoreFiles {
		if w.matcher, err = ignore.NewMatcher(root); err != nil {
			return nil, fmt.Errorf("rebuild: %w", err)
		}
	}

	if w.fsw, err = fsnotify.NewWatcher(); err != nil {
		return nil, fmt.Errorf("rebuild: create watcher: %w", err)
	}
	if err := w.addTree(root); err != nil {
		_ = w.fsw.Close()
		return nil, err
	}
	for abs := range files {
		// the parent is watched so that replace-by-rename saves are seen
		if err := w.fsw.Add(filepath.Dir(abs)); err != nil {
			_ = w.fsw.Close()
			return nil, fmt.Errorf("rebuild: watch %s: %w", abs, err)
		}
	}
	return w, nil
}

// Run blocks until ctx is cancelled. It returns nil on cancellation and an
// error when the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("rebuild: Run called more than once")
	}
	defer func() {
		if err := w.fsw.Close(); err != nil {
			log.Warn("Failed to close file watcher", logger.Err(err))
		}
	}()

	trigger := make(chan struct{}, 1)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.watch(gctx, trigger)
	})
	g.Go(func() error {
		if w.cfg.InitialBuild {
			w.fire(gctx, nil)
		}
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-trigger:
				w.fire(gctx, w.drain())
			}
		}
	})

	return g.Wait()
}

func (w *Watcher) watch(ctx context.Context, trigger chan<- struct{}) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	schedule := func() {
		if timer == nil {
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})
			return
		}
		timer.Reset(w.debounce)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("rebuild: event channel closed")
			}
			key, ok := w.accept(evt)
			if !ok {
				continue
			}
			log.Trace("View tree changed", logger.String("path", key), logger.String("op", evt.Op.String()))
			w.mu.Lock()
			w.pending[key] = struct{}{}
			w.mu.Unlock()
			schedule()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("rebuild: error channel closed")
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				log.Warn("File events were dropped, forcing a rebuild", logger.Err(err))
				schedule()
				continue
			}
			log.Warn("File watcher error", logger.Err(err))
		}
	}
}

func (w *Watcher) fire(ctx context.Context, changed []string) {
	if ctx.Err() != nil || w.cfg.OnChange == nil {
		return
	}
	start := time.Now()
	if err := w.cfg.OnChange(ctx, changed); err != nil {
		log.Error("Rebuild failed", logger.Err(err), logger.Int("changed", len(changed)))
		return
	}
	log.Debug("Rebuild finished",
		logger.Int("changed", len(changed)),
		logger.Duration("elapsed", time.Since(start)))
}

func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	clear(w.pending)
	sort.Strings(changed)
	return changed
}

// accept filters an event and returns the key it is reported under. It also
// follows new directories and reloads ignore files.
func (w *Watcher) accept(evt fsnotify.Event) (string, bool) {
	rel, err := filepath.Rel(w.root, evt.Name)
	inside := err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
	key := filepath.ToSlash(rel)
	if !inside {
		key = filepath.ToSlash(evt.Name)
	}
	if w.files[evt.Name] {
		return key, true
	}
	if !inside {
		return "", false
	}

	info, statErr := os.Stat(evt.Name)
	isDir := statErr == nil && info.IsDir()
	if w.ignored(key, isDir) {
		return "", false
	}

	if ignoreFiles[path.Base(key)] && w.matcher != nil {
		w.reloadIgnores()
	} else if isDir && evt.Has(fsnotify.Create) {
		if err := w.addTree(evt.Name); err != nil {
			log.Warn("Failed to watch new directory", logger.String("dir", evt.Name), logger.Err(err))
		}
	}
	return key, true
}

// reloadIgnores re-reads ignore files and watches directories they no
// longer exclude. Directories that became ignored stay watched; their
// events are filtered.
func (w *Watcher) reloadIgnores() {
	m, err := ignore.NewMatcher(w.root)
	if err != nil {
		log.Warn("Failed to reload ignore files", logger.Err(err))
		return
	}
	w.matcher = m
	if err := w.addTree(w.root); err != nil {
		log.Warn("Failed to rescan watched directories", logger.Err(err))
	}
}

// addTree registers dir and every non-ignored directory below it.
func (w *Watcher) addTree(dir string) error {
	base, err := filepath.Rel(w.root, dir)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	base = filepath.ToSlash(base)

	dirs, err := w.pf.DiscoverDirs(dir, pathfinder.DiscoveryOptions{
		SkipDir: func(rel string) bool {
			return w.ignored(path.Join(base, rel), true)
		},
		ErrorHandler: func(p string, err error) error {
			log.Warn("Skipping unreadable path", logger.String("path", p), logger.Err(err))
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	for _, rel := range dirs {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("rebuild: watch %s: %w", p, err)
		}
	}
	return nil
}

// ignored reports whether rel, slash separated below the root, is filtered.
func (w *Watcher) ignored(rel string, isDir bool) bool {
	if rel == "." {
		return false
	}
	if !isDir && ignoreFiles[path.Base(rel)] {
		return false
	}
	for _, pat := range w.ignores {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	if w.matcher == nil {
		return false
	}
	if isDir {
		return w.matcher.IsIgnoredDir(rel)
	}
	return w.matcher.IsIgnored(rel)
}
