// Package promptdoc merges a prompt and a set of files into one plain-text
// document that can be pasted into an AI assistant. Each file is labelled
// with its path relative to the files' common directory and fenced by
// extension.
package promptdoc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrEmpty is returned when there is neither a prompt nor any file.
var ErrEmpty = errors.New("promptdoc: provide a prompt or at least one file")

// Build returns the document for prompt and files. The prompt is trimmed.
// Files that cannot be read get an error section instead of failing the build.
func Build(prompt string, files []string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" && len(files) == 0 {
		return "", ErrEmpty
	}

	var b strings.Builder
	if prompt != "" {
		fmt.Fprintf(&b, "--- USER PROMPT ---\n\n%s\n\n", prompt)
	}
	if len(files) > 0 {
		b.WriteString("--- CONTEXT FILES ---\n\n")
		writeFiles(&b, files)
	}
	return b.String(), nil
}

func writeFiles(b *strings.Builder, files []string) {
	abs := make([]string, len(files))
	for i, f := range files {
		if p, err := filepath.Abs(f); err == nil {
			abs[i] = p
		} else {
			abs[i] = filepath.Clean(f)
		}
	}
	root := commonDir(abs)

	for _, path := range abs {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(b, "--- ERROR READING FILE: %s ---\nError: %v\n\n", filepath.Base(path), err)
			continue
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		ext := strings.TrimPrefix(filepath.Ext(path), ".")

		fmt.Fprintf(b, "--- FILE: %s ---\n", filepath.ToSlash(rel))
		fmt.Fprintf(b, "```%s\n", ext)
		b.WriteString(strings.ToValidUTF8(string(data), ""))
		b.WriteString("\n```\n\n")
	}
}

// commonDir returns the deepest directory containing every path.
func commonDir(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	common := splitPath(filepath.Dir(paths[0]))
	for _, p := range paths[1:] {
		parts := splitPath(filepath.Dir(p))
		n := 0
		for n < len(common) && n < len(parts) && common[n] == parts[n] {
			n++
		}
		common = common[:n]
	}

	vol := filepath.VolumeName(paths[0])
	return vol + string(filepath.Separator) + filepath.Join(common...)
}

func splitPath(dir string) []string {
	dir = strings.TrimPrefix(dir, filepath.VolumeName(dir))
	var parts []string
	for _, p := range strings.Split(dir, string(filepath.Separator)) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// CollectFiles expands paths into a sorted list of regular files.
// Directories are walked recursively, skipping hidden entries below them.
func CollectFiles(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("promptdoc: %w", err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p != root && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("promptdoc: walk %s: %w", root, err)
		}
	}

	sort.Strings(out)
	return out, nil
}
