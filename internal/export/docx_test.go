package export

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nguyentantai21042004/folder-scribe/internal/logger"
	"github.com/nguyentantai21042004/folder-scribe/internal/progress"
)

func TestParagraphs(t *testing.T) {
	got := Paragraphs("first chunk\n\n  second chunk \n")
	want := []string{"first chunk", "second chunk"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Paragraphs() = %v, want %v", got, want)
	}
	if got := Paragraphs(""); len(got) != 0 {
		t.Errorf("Paragraphs(\"\") = %v, want empty", got)
	}
}

func TestExportWritesDocument(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "docs")
	d := NewDocx(dir, nil, logger.Discard())

	if err := d.Export(context.Background(), "/watch/Lecture 1.mp4", "hello\nworld\n"); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	path := filepath.Join(dir, "Lecture 1.docx")
	if d.Path("/watch/Lecture 1.mp4") != path {
		t.Errorf("Path() = %q, want %q", d.Path("/watch/Lecture 1.mp4"), path)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("document not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("document is empty")
	}
}

func TestExportSameBaseNameDoesNotOverwrite(t *testing.T) {
	stateDir := t.TempDir()
	store, err := progress.New(stateDir, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	first, second := "/watch/a/x.mp4", "/watch/b/x.mp4"
	for _, path := range []string{first, second} {
		if err := store.Commit(path, "text of "+path+"\n", 1); err != nil {
			t.Fatal(err)
		}
	}

	d := NewDocx(stateDir, store, logger.Discard())
	if got := d.Path(first); got != filepath.Join(stateDir, "x.docx") {
		t.Errorf("Path(first) = %q, want x.docx", got)
	}
	if d.Path(first) == d.Path(second) {
		t.Fatalf("both files export to %q", d.Path(first))
	}

	for _, path := range []string{first, second} {
		if err := d.Export(context.Background(), path, "text\n"); err != nil {
			t.Fatalf("Export(%s) error = %v", path, err)
		}
	}
	for _, path := range []string{first, second} {
		if _, err := os.Stat(d.Path(path)); err != nil {
			t.Errorf("document for %s missing: %v", path, err)
		}
	}
}
