package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/inkforge/atlasforge/internal/logging"
	"github.com/inkforge/atlasforge/internal/model"
)

// ChapterStore is the slice of storage this package needs: persisting newly
// split chapters. Kept narrow (rather than depending on the full store.Store)
// so this package never needs to import internal/store.
type ChapterStore interface {
	SaveChapter(ch *model.Chapter) error
}

// OnNewChapters is called after a source file's chapters have been
// (re-)persisted, with the numbers that were written, so a caller can queue
// an incremental start_analysis extension for just those chapters.
type OnNewChapters func(novelID string, chapterNumbers []int)

// Watcher watches a novel's raw-chapter source directory for new or edited
// .txt files, splits each one into chapters on write, and persists them.
// Grounded on the teacher's MangleWatcher: same debounce-map-plus-ticker
// shape, adapted from .mg rule files to .txt chapter-source files.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	store       ChapterStore
	novelID     string
	sourceDir   string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	onNew       OnNewChapters
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a Watcher over sourceDir for novelID. onNew may be nil
// if the caller doesn't need incremental-analysis notification.
func NewWatcher(novelID, sourceDir string, store ChapterStore, onNew OnNewChapters) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		store:       store,
		novelID:     novelID,
		sourceDir:   sourceDir,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		onNew:       onNew,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching sourceDir in the background. Non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.sourceDir, 0755); err != nil {
		logging.IngestWarn("failed to create source dir %s: %v (continuing anyway)", w.sourceDir, err)
	}
	if err := w.watcher.Add(w.sourceDir); err != nil {
		logging.IngestWarn("initial watch failed for %s: %v", w.sourceDir, err)
	} else {
		logging.Ingest("watching source directory: %s", w.sourceDir)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.watcher.Close(); err != nil {
		logging.IngestError("error closing watcher: %v", err)
	}
	logging.Ingest("stopped watching %s", w.sourceDir)
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.IngestError("watcher error: %v", err)
		case <-ticker.C:
			w.processDebounced(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, ".txt") {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	w.mu.Lock()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processDebounced(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, t := range w.debounceMap {
		if now.Sub(t) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		w.ingestFile(ctx, path)
	}
}

func (w *Watcher) ingestFile(_ context.Context, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		logging.IngestError("failed to read %s: %v", path, err)
		return
	}

	chapters := ParseChapters(string(raw))
	if err := Validate(chapters); err != nil {
		logging.IngestWarn("skipping %s: %v", filepath.Base(path), err)
		return
	}

	var written []int
	for _, c := range chapters {
		ch := &model.Chapter{NovelID: w.novelID, Number: c.Number, Title: c.Title, Text: c.Text}
		if err := w.store.SaveChapter(ch); err != nil {
			logging.IngestError("failed to save chapter %d from %s: %v", c.Number, path, err)
			continue
		}
		written = append(written, c.Number)
	}

	logging.Ingest("ingested %d chapter(s) from %s", len(written), filepath.Base(path))
	if w.onNew != nil && len(written) > 0 {
		w.onNew(w.novelID, written)
	}
}

// IngestDirectory performs a one-shot synchronous ingest of every .txt file
// already present in sourceDir, for first-time imports that shouldn't wait
// on the filesystem watcher's debounce window.
func IngestDirectory(novelID, sourceDir string, store ChapterStore) (int, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		path := filepath.Join(sourceDir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			logging.IngestError("failed to read %s: %v", path, err)
			continue
		}
		chapters := ParseChapters(string(raw))
		if err := Validate(chapters); err != nil {
			logging.IngestWarn("skipping %s: %v", entry.Name(), err)
			continue
		}
		for _, c := range chapters {
			ch := &model.Chapter{NovelID: novelID, Number: c.Number, Title: c.Title, Text: c.Text}
			if err := store.SaveChapter(ch); err != nil {
				logging.IngestError("failed to save chapter %d from %s: %v", c.Number, path, err)
				continue
			}
			total++
		}
	}
	return total, nil
}
