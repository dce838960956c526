package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/inkforge/atlasforge/internal/model"
)

type fakeChapterStore struct {
	mu    sync.Mutex
	saved []*model.Chapter
}

func (f *fakeChapterStore) SaveChapter(ch *model.Chapter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, ch)
	return nil
}

func (f *fakeChapterStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func TestIngestDirectory_SplitsAndSavesAllFiles(t *testing.T) {
	dir := t.TempDir()
	content := "第1章 起\n正文。\n\n第2章 承\n正文。\n"
	if err := os.WriteFile(filepath.Join(dir, "novel.txt"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	store := &fakeChapterStore{}
	n, err := IngestDirectory("novel-1", dir, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 chapters ingested, got %d", n)
	}
	if store.count() != 2 {
		t.Fatalf("expected 2 chapters saved, got %d", store.count())
	}
}

func TestIngestDirectory_IgnoresNonTxtFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("not a chapter file"), 0644); err != nil {
		t.Fatal(err)
	}

	store := &fakeChapterStore{}
	n, err := IngestDirectory("novel-1", dir, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 chapters ingested, got %d", n)
	}
}

func TestWatcher_PicksUpNewFile(t *testing.T) {
	dir := t.TempDir()
	store := &fakeChapterStore{}

	var mu sync.Mutex
	var notified []int
	onNew := func(novelID string, numbers []int) {
		mu.Lock()
		defer mu.Unlock()
		notified = append(notified, numbers...)
	}

	w, err := NewWatcher("novel-1", dir, store, onNew)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer w.Stop()

	content := "第1章 起\n正文。\n"
	if err := os.WriteFile(filepath.Join(dir, "new.txt"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if store.count() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if store.count() == 0 {
		t.Fatal("expected watcher to ingest the new file within the deadline")
	}
}
