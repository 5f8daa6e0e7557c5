package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, p)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("; ir\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestScanFindsSortedIRFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"zeta.ll",
		"alpha.ll",
		"sub/beta.ll",
		"readme.md",
		"main.c",
	)

	files, err := New(DefaultOptions()).Scan(root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(files) != 3 {
		t.Fatalf("found %d files, want 3: %+v", len(files), files)
	}
	want := []string{"alpha.ll", filepath.Join("sub", "beta.ll"), "zeta.ll"}
	for i, f := range files {
		if f.Path != want[i] {
			t.Errorf("files[%d].Path = %q, want %q", i, f.Path, want[i])
		}
		if f.FullPath == "" || f.Size == 0 {
			t.Errorf("files[%d] missing metadata: %+v", i, f)
		}
	}
}

func TestScanSkipsHiddenAndExcluded(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"keep.ll",
		".hidden/skipped.ll",
		".dotfile.ll",
		"build/generated.ll",
		"target/out.ll",
	)

	files, err := New(DefaultOptions()).Scan(root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(files) != 1 || files[0].Path != "keep.ll" {
		t.Errorf("files = %+v, want only keep.ll", files)
	}
}

func TestScanIncludesHiddenWhenAsked(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "keep.ll", ".dotfile.ll")

	files, err := New(Options{SkipHidden: false}).Scan(root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("found %d files, want 2", len(files))
	}
}

func TestScanRejectsNonDirectory(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "only.ll")

	if _, err := New(DefaultOptions()).Scan(filepath.Join(root, "only.ll")); err == nil {
		t.Error("expected an error scanning a file path")
	}
	if _, err := New(DefaultOptions()).Scan(filepath.Join(root, "absent")); err == nil {
		t.Error("expected an error scanning a missing directory")
	}
}
