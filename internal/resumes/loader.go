package resumes

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/anuragparashar26/skillscreen/internal/pipeline"
	"github.com/bmatcuk/doublestar/v4"
)

// DefaultMaxBytes is the per-file size limit.
const DefaultMaxBytes = 5 << 20

var ErrNoMatches = errors.New("no resume files matched")

var textExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".text":     true,
}

var documentExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
}

// Discover expands doublestar patterns ("cvs/**/*.txt") into a sorted,
// de-duplicated list of regular files. Plain paths are accepted as-is.
func Discover(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", pattern, err)
		}
		for _, m := range matches {
			clean := filepath.Clean(m)
			if seen[clean] {
				continue
			}
			seen[clean] = true
			paths = append(paths, clean)
		}
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatches, strings.Join(patterns, ", "))
	}
	sort.Strings(paths)
	return paths, nil
}

// Load reads every path into a ResumeInput. Files that cannot be used still
// produce an entry whose text is a bracketed placeholder, so the batch keeps
// one result per file.
func Load(paths []string, maxBytes int64) []pipeline.ResumeInput {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	ids := newIDAllocator()
	out := make([]pipeline.ResumeInput, 0, len(paths))
	for _, path := range paths {
		name := filepath.Base(path)
		out = append(out, pipeline.ResumeInput{
			ID:       ids.next(name),
			Filename: name,
			Text:     readText(path, name, maxBytes),
		})
	}
	return out
}

// FromBytes builds a resume from uploaded content using the same rules as Load.
func FromBytes(name string, data []byte, maxBytes int64) string {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if int64(len(data)) > maxBytes {
		return OversizePlaceholder(name, maxBytes)
	}
	return extract(name, data)
}

// IsText reports whether the file extension is read as plain text.
func IsText(name string) bool {
	return textExtensions[strings.ToLower(filepath.Ext(name))]
}

// IsSupported reports whether text can be extracted from the file: plain
// text, PDF or DOCX.
func IsSupported(name string) bool {
	return IsText(name) || documentExtensions[strings.ToLower(filepath.Ext(name))]
}

func UnsupportedPlaceholder(name string) string {
	return fmt.Sprintf("[Unsupported file format: %s]", name)
}

func OversizePlaceholder(name string, maxBytes int64) string {
	return fmt.Sprintf("[File exceeds %s MB limit: %s]", formatMB(maxBytes), name)
}

func ReadErrorPlaceholder(err error) string {
	return fmt.Sprintf("[Could not read file: %v]", err)
}

func readText(path, name string, maxBytes int64) string {
	info, err := os.Stat(path)
	if err != nil {
		return ReadErrorPlaceholder(err)
	}
	if info.Size() > maxBytes {
		return OversizePlaceholder(name, maxBytes)
	}
	if !IsSupported(name) {
		return UnsupportedPlaceholder(name)
	}

	f, err := os.Open(path)
	if err != nil {
		return ReadErrorPlaceholder(err)
	}
	defer f.Close()

	// The file may grow between Stat and Read.
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return ReadErrorPlaceholder(err)
	}
	if int64(len(data)) > maxBytes {
		return OversizePlaceholder(name, maxBytes)
	}
	return extract(name, data)
}

func formatMB(n int64) string {
	return strconv.FormatFloat(float64(n)/(1<<20), 'f', -1, 64)
}

// idAllocator hands out base names, suffixing repeats with #2, #3, ...
type idAllocator struct {
	used map[string]bool
}

func newIDAllocator() *idAllocator {
	return &idAllocator{used: make(map[string]bool)}
}

func (a *idAllocator) next(name string) string {
	id := name
	for n := 2; a.used[id]; n++ {
		id = name + "#" + strconv.Itoa(n)
	}
	a.used[id] = true
	return id
}

// UniqueIDs applies the same suffixing to caller-provided names. Reserved ids
// are already taken and are never handed out.
func UniqueIDs(names []string, reserved ...string) []string {
	a := newIDAllocator()
	for _, id := range reserved {
		a.used[id] = true
	}
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = a.next(name)
	}
	return out
}
