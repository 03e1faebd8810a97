package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
	"github.com/custodia-labs/docindex/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Source = (*Connector)(nil)

// Type is the source type identifier.
const Type = "filesystem"

// Connector reads documents from a local directory tree.
type Connector struct {
	root string

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// New creates a connector rooted at root.
func New(root string) *Connector {
	return &Connector{root: root}
}

// Type returns "filesystem".
func (c *Connector) Type() string {
	return Type
}

// Root returns the directory the connector reads.
func (c *Connector) Root() string {
	return c.root
}

// Validate checks the root exists and is a directory.
func (c *Connector) Validate(_ context.Context) error {
	info, err := os.Stat(c.root)
	if err != nil {
		return fmt.Errorf("%w: root path error: %w", domain.ErrConfiguration, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: root path error: %s is not a directory", domain.ErrConfiguration, c.root)
	}
	return nil
}

func (c *Connector) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// FullSync walks the root and emits every regular, non-hidden file.
// Unreadable files are reported as domain.ItemError with StageScan.
func (c *Connector) FullSync(ctx context.Context) (<-chan domain.Document, <-chan error) {
	docs := make(chan domain.Document)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		report := func(err error) bool {
			select {
			case errs <- err:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if c.isClosed() {
			report(domain.ErrConnectorClosed)
			return
		}
		if err := c.Validate(ctx); err != nil {
			report(err)
			return
		}

		err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			rel, relErr := c.relative(path)
			if relErr != nil {
				return relErr
			}

			if err != nil {
				if d != nil && !d.IsDir() {
					if !report(&domain.ItemError{Stage: domain.StageScan, Filename: rel, Err: err}) {
						return ctx.Err()
					}
					return nil
				}
				// An unreadable directory hides an unknown set of files.
				if !report(fmt.Errorf("scan %s: %w", path, err)) {
					return ctx.Err()
				}
				return fs.SkipDir
			}

			if path != c.root && isHidden(d.Name()) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}

			doc, err := c.read(path, rel)
			if err != nil {
				if !report(&domain.ItemError{Stage: domain.StageScan, Filename: rel, Err: err}) {
					return ctx.Err()
				}
				return nil
			}

			select {
			case docs <- *doc:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			report(fmt.Errorf("scan %s: %w", c.root, err))
		}
	}()

	return docs, errs
}

// relative converts an absolute path under root to a slash-separated
// filename.
func (c *Connector) relative(path string) (string, error) {
	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func (c *Connector) read(path, rel string) (*domain.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return domain.NewDocument(rel, DetectMIMEType(path, content), content), nil
}

// isHidden reports whether a file or directory name is hidden.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// hiddenPath reports whether any element of rel is hidden.
func hiddenPath(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if isHidden(part) {
			return true
		}
	}
	return false
}

// Watch emits changes to non-hidden files under the root until ctx is
// cancelled or the connector is closed. Directories created after the
// call are watched too.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.DocumentChange, error) {
	if err := c.Validate(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, domain.ErrConnectorClosed
	}
	if c.watcher != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("watch %s: already watching", c.root)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	c.watcher = watcher
	c.mu.Unlock()

	if err := c.addTree(watcher, c.root); err != nil {
		c.stopWatcher()
		return nil, err
	}

	changes := make(chan domain.DocumentChange, 64)
	go c.watchLoop(ctx, watcher, changes)
	return changes, nil
}

// addTree watches dir and its non-hidden subdirectories.
func (c *Connector) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			logger.Warn("Cannot watch %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != c.root && isHidden(d.Name()) {
			return fs.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (c *Connector) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- domain.DocumentChange) {
	defer close(changes)
	defer c.stopWatcher()

	for {
		select {
		case <-ctx.Done():
			return

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watch error: %v", err)

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			change, ok := c.translate(watcher, event)
			if !ok {
				continue
			}
			select {
			case changes <- change:
			case <-ctx.Done():
				return
			}
		}
	}
}

// translate maps an fsnotify event to a document change. Events on
// hidden paths, directories and permission changes are dropped.
func (c *Connector) translate(watcher *fsnotify.Watcher, event fsnotify.Event) (domain.DocumentChange, bool) {
	rel, err := c.relative(event.Name)
	if err != nil || rel == "." || hiddenPath(rel) {
		return domain.DocumentChange{}, false
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return domain.DocumentChange{Type: domain.ChangeDeleted, Document: domain.Document{Filename: rel}}, true

	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			logger.Debug("Skipping %s: %v", rel, err)
			return domain.DocumentChange{}, false
		}
		if info.IsDir() {
			if event.Has(fsnotify.Create) {
				if err := c.addTree(watcher, event.Name); err != nil {
					logger.Warn("%v", err)
				}
			}
			return domain.DocumentChange{}, false
		}
		if !info.Mode().IsRegular() {
			return domain.DocumentChange{}, false
		}

		doc, err := c.read(event.Name, rel)
		if err != nil {
			logger.Debug("Skipping %s: %v", rel, err)
			return domain.DocumentChange{}, false
		}
		kind := domain.ChangeUpdated
		if event.Has(fsnotify.Create) {
			kind = domain.ChangeCreated
		}
		return domain.DocumentChange{Type: kind, Document: *doc}, true
	}

	return domain.DocumentChange{}, false
}

func (c *Connector) stopWatcher() {
	c.mu.Lock()
	w := c.watcher
	c.watcher = nil
	c.mu.Unlock()
	if w != nil {
		w.Close()
	}
}

// Close stops any active watch. Close is idempotent.
func (c *Connector) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.stopWatcher()
	return nil
}
