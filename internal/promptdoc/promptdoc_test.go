package promptdoc

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBuildEmpty(t *testing.T) {
	if _, err := Build("   \n", nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("Build() error = %v, want ErrEmpty", err)
	}
}

func TestBuildPromptOnly(t *testing.T) {
	got, err := Build("  why does this panic?\n", nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	want := "--- USER PROMPT ---\n\nwhy does this panic?\n\n"
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
}

func TestBuildPromptAndFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "cmd", "main.go")
	b := filepath.Join(dir, "internal", "ptt", "state.go")
	writeFile(t, a, "package main")
	writeFile(t, b, "package ptt")

	got, err := Build("review", []string{a, b})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := "--- USER PROMPT ---\n\nreview\n\n" +
		"--- CONTEXT FILES ---\n\n" +
		"--- FILE: cmd/main.go ---\n```go\npackage main\n```\n\n" +
		"--- FILE: internal/ptt/state.go ---\n```go\npackage ptt\n```\n\n"
	if got != want {
		t.Errorf("Build() =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildSingleFileUsesParentDir(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "notes", "README")
	writeFile(t, f, "hello")

	got, err := Build("", []string{f})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	want := "--- CONTEXT FILES ---\n\n--- FILE: README ---\n```\nhello\n```\n\n"
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
}

func TestBuildUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	ok := filepath.Join(dir, "ok.txt")
	writeFile(t, ok, "fine")
	missing := filepath.Join(dir, "gone.txt")

	got, err := Build("", []string{missing, ok})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !strings.Contains(got, "--- ERROR READING FILE: gone.txt ---\nError: ") {
		t.Errorf("missing error section in:\n%s", got)
	}
	if !strings.Contains(got, "--- FILE: ok.txt ---\n```txt\nfine\n```\n\n") {
		t.Errorf("readable file not included in:\n%s", got)
	}
}

func TestBuildDropsInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "bin.dat")
	writeFile(t, f, "ok\xffdone")

	got, err := Build("", []string{f})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !strings.Contains(got, "okdone") {
		t.Errorf("invalid bytes not dropped:\n%q", got)
	}
}

func TestCommonDir(t *testing.T) {
	sep := string(filepath.Separator)
	root := sep + filepath.Join("src", "proj")
	tests := []struct {
		name  string
		paths []string
		want  string
	}{
		{"single", []string{filepath.Join(root, "a.go")}, root},
		{"siblings", []string{filepath.Join(root, "a.go"), filepath.Join(root, "b.go")}, root},
		{"nested", []string{filepath.Join(root, "x", "a.go"), filepath.Join(root, "y", "z", "b.go")}, root},
		{"disjoint", []string{sep + filepath.Join("a", "f"), sep + filepath.Join("b", "g")}, sep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := commonDir(tt.paths); got != tt.want {
				t.Errorf("commonDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.go"), "")
	writeFile(t, filepath.Join(dir, "sub", "a.go"), "")
	writeFile(t, filepath.Join(dir, ".git", "config"), "")
	writeFile(t, filepath.Join(dir, ".env"), "")

	got, err := CollectFiles([]string{dir, filepath.Join(dir, "b.go")})
	if err != nil {
		t.Fatalf("CollectFiles() error = %v", err)
	}
	want := []string{filepath.Join(dir, "b.go"), filepath.Join(dir, "sub", "a.go")}
	if len(got) != len(want) {
		t.Fatalf("CollectFiles() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCollectFilesMissing(t *testing.T) {
	if _, err := CollectFiles([]string{"/nonexistent/path"}); err == nil {
		t.Error("CollectFiles() should fail for a missing path")
	}
}
