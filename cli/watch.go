package cli

import (
	"context"
	"path/filepath"
	"slices"
	"sync"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
)

// WatchAction reconstructs the project and then reconstructs again every time one of its files
// changes, until interrupted.
func WatchAction(c *cli.Context) error {
	p, err := newProject(c)
	if err != nil {
		return err
	}
	ctx := p.ctx
	output := c.String(outputFlag)

	var runMu sync.Mutex
	run := func() {
		runMu.Lock()
		defer runMu.Unlock()
		if ctx.Err() != nil {
			return
		}
		r, err := p.orchestrator.Reconstruct(ctx)
		if err != nil {
			p.logger.Errorw("reconstruction failed", "error", err)
			return
		}
		if err := writeReconstruction(c.App.Writer, output, r); err != nil {
			p.logger.Errorw("failed to write reconstruction", "error", err)
			return
		}
		reportReconstruction(c.App.ErrWriter, r)
	}
	run()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	//nolint:errcheck
	defer watcher.Close()

	// Watching directories catches editors that save by renaming a new file over the old one.
	for _, dir := range lo.Uniq(lo.Map(p.files(), func(path string, _ int) string { return filepath.Dir(path) })) {
		if err := watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "failed to watch %q", dir)
		}
	}
	p.logger.Infow("watching for changes", "files", p.files())

	changed := newChangeSet()
	debounced := debounce.New(c.Duration(debounceFlag))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			path, ok := p.projectFile(event.Name)
			if !ok {
				continue
			}
			p.logger.Debugw("file changed", "file", path, "op", event.Op.String())
			changed.add(path)
			debounced(func() {
				if p.reloadAll(ctx, changed.take()) {
					run()
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Warnw("file watcher error", "error", err)
		}
	}
}

// projectFile returns the configured path matching a watched file name.
func (p *project) projectFile(name string) (string, bool) {
	name = filepath.Clean(name)
	i := slices.IndexFunc(p.files(), func(path string) bool { return filepath.Clean(path) == name })
	if i < 0 {
		return "", false
	}
	return p.files()[i], true
}

// reloadAll reloads every changed file and reports whether any of them was reloaded.
func (p *project) reloadAll(ctx context.Context, paths []string) bool {
	reloaded := false
	for _, path := range paths {
		if ctx.Err() != nil {
			return false
		}
		ok, err := p.reload(path)
		if err != nil {
			p.logger.Warnw("failed to reload file, keeping the previous contents", "file", path, "error", err)
			continue
		}
		reloaded = reloaded || ok
	}
	return reloaded
}

// changeSet collects changed paths between debounced reloads.
type changeSet struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func newChangeSet() *changeSet {
	return &changeSet{paths: map[string]struct{}{}}
}

func (cs *changeSet) add(path string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.paths[path] = struct{}{}
}

func (cs *changeSet) take() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	paths := lo.Keys(cs.paths)
	slices.Sort(paths)
	clear(cs.paths)
	return paths
}
