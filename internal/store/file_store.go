package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/renameio/v2"
	"github.com/streamhook/streamhook/internal/config"
	"github.com/streamhook/streamhook/internal/retry"
	shErrors "github.com/streamhook/streamhook/pkg/streamhook/v1/errors"
	shlog "github.com/streamhook/streamhook/pkg/streamhook/v1/log"
)

// DefaultDebounce is how long Watch waits for writes to settle.
const DefaultDebounce = 100 * time.Millisecond

// reloadRetry covers editors that write a file in several steps.
var reloadRetry = retry.Config{
	Attempts:      3,
	Delay:         50 * time.Millisecond,
	MaxDelay:      500 * time.Millisecond,
	BackoffFactor: 2,
	Jitter:        0.2,
}

// FileStore keeps the document in a single YAML file. Writes go through a
// pending file that is fsynced and renamed over the target, so readers see
// either the old or the new document and never a partial one.
type FileStore struct {
	path     string
	log      shlog.Logger
	debounce time.Duration

	// writeMu serializes Save calls from the same process.
	writeMu sync.Mutex
}

// NewFileStore creates a store for path. Panics if log is nil.
func NewFileStore(path string, log shlog.Logger) *FileStore {
	if log == nil {
		panic("FileStore requires a non-nil logger")
	}
	return &FileStore{
		path:     path,
		log:      log.With("component", "FileStore", "path", path),
		debounce: DefaultDebounce,
	}
}

// Path returns the file the store reads and writes.
func (s *FileStore) Path() string { return s.path }

// Load reads and validates the document.
func (s *FileStore) Load(ctx context.Context) (*config.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := config.LoadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, err
	}
	s.log.Debugf("Loaded configuration (%d global action(s), %d app(s))", len(doc.GlobalEventActions), len(doc.Apps))
	return doc, nil
}

// Save validates doc and atomically replaces the file with it. Invalid
// documents are refused and the file is left untouched.
func (s *FileStore) Save(ctx context.Context, doc *config.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	content, err := encode(doc, s.path)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	pendingFile, err := renameio.NewPendingFile(s.path, renameio.WithPermissions(0o600))
	if err != nil {
		return shErrors.NewConfigError(fmt.Sprintf("create pending file for '%s'", s.path), err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			s.log.Debugf("cleanup pending file: %v", err)
		}
	}()

	if _, err := pendingFile.Write(content); err != nil {
		return shErrors.NewConfigError(fmt.Sprintf("write configuration '%s'", s.path), err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return shErrors.NewConfigError(fmt.Sprintf("atomically replace '%s'", s.path), err)
	}

	s.log.Infof("Saved configuration (%d global action(s), %d app(s))", len(doc.GlobalEventActions), len(doc.Apps))
	return nil
}

// Watch calls fn with the freshly loaded document whenever the file changes,
// until ctx is done. Bursts of events are collapsed into one reload. Reload
// failures (for example a half-edited file) are retried briefly, then logged
// and skipped; fn only ever sees valid documents. The parent directory is
// watched so that atomic replacements by editors and by Save are noticed.
// Reloads run one at a time on a single goroutine, so fn is never called
// concurrently, and never after Watch has returned.
func (s *FileStore) Watch(ctx context.Context, fn func(*config.Document)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return shErrors.NewConfigError("create file watcher", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return shErrors.NewConfigError(fmt.Sprintf("watch directory '%s'", dir), err)
	}
	name := filepath.Base(s.path)

	watchCtx, cancel := context.WithCancel(ctx)
	pending := make(chan struct{}, 1)
	reloaderDone := make(chan struct{})
	go func() {
		defer close(reloaderDone)
		s.reloadLoop(watchCtx, pending, fn)
	}()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		cancel()
		<-reloaderDone
	}()
	// The timer callback only marks a reload as pending; a reload already
	// queued absorbs the new one.
	requestReload := func() {
		select {
		case pending <- struct{}{}:
		default:
		}
	}

	s.log.Debugf("Watching for changes")
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(s.debounce, requestReload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warnf("File watcher error: %v", err)
		}
	}
}

// reloadLoop loads the document once per pending signal until ctx is done.
func (s *FileStore) reloadLoop(ctx context.Context, pending <-chan struct{}, fn func(*config.Document)) {
	retrier := retry.NewHelper(s.log)
	cfg := reloadRetry
	cfg.Name = "reload"
	for {
		select {
		case <-ctx.Done():
			return
		case <-pending:
		}

		var doc *config.Document
		err := retrier.Do(ctx, cfg, func(ctx context.Context) error {
			var loadErr error
			doc, loadErr = s.Load(ctx)
			return loadErr
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.log.Warnf("Ignoring change that failed to load: %v", err)
			continue
		}
		fn(doc)
	}
}

var (
	_ Store   = (*FileStore)(nil)
	_ Watcher = (*FileStore)(nil)
)

// Close is a no-op; Watch releases its watcher when its context ends.
func (s *FileStore) Close() error {
	return nil
}
