package search

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"docsearch/config"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileWalkerList(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.txt", "b")
	writeFile(t, root, "a/report.pdf", "pdf")
	writeFile(t, root, "a/deep/sheet.xlsx", "x")
	writeFile(t, root, ".hidden", "h")
	writeFile(t, root, ".git/config", "g")
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := NewFileWalker(false).List(root)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"a/deep/sheet.xlsx", "a/report.pdf", "b.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}

	withHidden, err := NewFileWalker(true).List(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(withHidden) != 4 {
		t.Errorf("expected hidden file but not .git, got %v", withHidden)
	}
}

func TestFileWalkerArchiveFolders(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "__MACOSX/a.pdf", "m")
	writeFile(t, root, "$RECYCLE.BIN/b.txt", "r")
	writeFile(t, root, ".Trashes/c.txt", "t")
	writeFile(t, root, ".svn/entries", "s")

	for _, includeHidden := range []bool{false, true} {
		got, err := NewFileWalker(includeHidden).List(root)
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"$RECYCLE.BIN/b.txt", "__MACOSX/a.pdf"}
		if includeHidden {
			want = []string{"$RECYCLE.BIN/b.txt", ".Trashes/c.txt", "__MACOSX/a.pdf"}
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("List(includeHidden=%v) = %v, want %v", includeHidden, got, want)
		}
		for _, rel := range got {
			if config.Excluded(rel, includeHidden) {
				t.Errorf("walker listed %q but Excluded reports it hidden", rel)
			}
		}
	}
}

func TestFileWalkerMissingRoot(t *testing.T) {
	_, err := NewFileWalker(false).List(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrCorpusUnavailable) {
		t.Fatalf("expected ErrCorpusUnavailable, got %v", err)
	}
}

func TestFileWalkerRootIsFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "f.txt", "x")
	_, err := NewFileWalker(false).List(filepath.Join(root, "f.txt"))
	if !errors.Is(err, ErrCorpusUnavailable) {
		t.Fatalf("expected ErrCorpusUnavailable, got %v", err)
	}
}
