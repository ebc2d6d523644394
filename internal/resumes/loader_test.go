package resumes

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), []byte("b"))
	writeFile(t, filepath.Join(dir, "a.txt"), []byte("a"))
	writeFile(t, filepath.Join(dir, "nested", "deep", "c.txt"), []byte("c"))
	writeFile(t, filepath.Join(dir, "nested", "d.pdf"), []byte("%PDF"))

	paths, err := Discover([]string{
		filepath.Join(dir, "**", "*.txt"),
		filepath.Join(dir, "a.txt"),
	})
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}

	want := []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "nested", "deep", "c.txt"),
	}
	if len(paths) != len(want) {
		t.Fatalf("expected %d paths, got %v", len(want), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("path %d: expected %s, got %s", i, want[i], paths[i])
		}
	}
}

func TestDiscoverNoMatches(t *testing.T) {
	_, err := Discover([]string{filepath.Join(t.TempDir(), "*.txt")})
	if !errors.Is(err, ErrNoMatches) {
		t.Fatalf("expected ErrNoMatches, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "one", "jane.txt")
	dup := filepath.Join(dir, "two", "jane.txt")
	pdf := filepath.Join(dir, "john.pdf")
	big := filepath.Join(dir, "big.md")
	missing := filepath.Join(dir, "gone.txt")
	docx := filepath.Join(dir, "anna.docx")
	rtf := filepath.Join(dir, "old.rtf")

	writeFile(t, text, []byte("Python\x00 developer \xff"))
	writeFile(t, dup, []byte("Go developer"))
	writeFile(t, pdf, []byte("%PDF-1.7"))
	writeFile(t, big, []byte(strings.Repeat("x", 2048)))
	writeFile(t, docx, buildDOCX(t, "Go engineer", "Kubernetes, SQL"))
	writeFile(t, rtf, []byte(`{\rtf1 Go}`))

	got := Load([]string{text, dup, pdf, big, missing, docx, rtf}, 1024)
	if len(got) != 7 {
		t.Fatalf("expected one entry per path, got %d", len(got))
	}

	tests := []struct {
		id, filename, text string
	}{
		{"jane.txt", "jane.txt", "Python developer �"},
		{"jane.txt#2", "jane.txt", "Go developer"},
		{"john.pdf", "john.pdf", ""},
		{"big.md", "big.md", "[File exceeds 0.0009765625 MB limit: big.md]"},
		{"gone.txt", "gone.txt", ""},
		{"anna.docx", "anna.docx", "Go engineer\nKubernetes, SQL"},
		{"old.rtf", "old.rtf", "[Unsupported file format: old.rtf]"},
	}
	for i, tt := range tests {
		if got[i].ID != tt.id || got[i].Filename != tt.filename {
			t.Fatalf("entry %d: expected id %q filename %q, got %q %q", i, tt.id, tt.filename, got[i].ID, got[i].Filename)
		}
		if tt.text != "" && got[i].Text != tt.text {
			t.Fatalf("entry %d: expected text %q, got %q", i, tt.text, got[i].Text)
		}
	}
	if !strings.HasPrefix(got[2].Text, "[Could not parse PDF: ") {
		t.Fatalf("expected pdf parse placeholder, got %q", got[2].Text)
	}
	if !strings.HasPrefix(got[4].Text, "[Could not read file: ") {
		t.Fatalf("expected read error placeholder, got %q", got[4].Text)
	}
}

func TestFromBytes(t *testing.T) {
	if got := FromBytes("cv.txt", []byte("hello"), 0); got != "hello" {
		t.Fatalf("expected text passthrough, got %q", got)
	}
	if got := FromBytes("cv.docx", []byte("PK"), 0); !strings.HasPrefix(got, "[Could not parse DOCX: ") {
		t.Fatalf("unexpected placeholder %q", got)
	}
	if got := FromBytes("cv.odt", []byte("PK"), 0); got != "[Unsupported file format: cv.odt]" {
		t.Fatalf("unexpected placeholder %q", got)
	}
	if got := FromBytes("cv.txt", make([]byte, 6<<20), 5<<20); got != "[File exceeds 5 MB limit: cv.txt]" {
		t.Fatalf("unexpected placeholder %q", got)
	}
}

func TestUniqueIDs(t *testing.T) {
	got := UniqueIDs([]string{"a", "a", "b", "a", "a#2"})
	want := []string{"a", "a#2", "b", "a#3", "a#2#2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestUniqueIDsSkipsReserved(t *testing.T) {
	got := UniqueIDs([]string{"cv.txt", "cv.txt", "other.txt"}, "cv.txt", "cv.txt#2")
	want := []string{"cv.txt#3", "cv.txt#4", "other.txt"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
