package resumes

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"strings"
	"testing"
)

const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// buildDOCX writes a minimal WordprocessingML package with one paragraph per argument.
func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var body strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&body, `<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, html.EscapeString(p))
	}
	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="` + wordNamespace + `"><w:body>` + body.String() + `</w:body></w:document>`

	return zipFiles(t, map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		docxBody:              document,
	})
}

func zipFiles(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// buildPDF writes a single-page PDF showing each line with Helvetica.
func buildPDF(t *testing.T, lines ...string) []byte {
	t.Helper()

	var content strings.Builder
	content.WriteString("BT /F1 12 Tf 72 720 Td 14 TL")
	for _, line := range lines {
		fmt.Fprintf(&content, " (%s) Tj T*", line)
	}
	content.WriteString(" ET")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractDocuments(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		want     string
		// match is "prefix" or "contains"; empty means exact.
		match    string
	}{
		{
			name:     "docx paragraphs",
			filename: "jane.docx",
			data:     buildDOCX(t, "Python backend engineer, 6 years", "Skills: Django & SQL"),
			want:     "Python backend engineer, 6 years\nSkills: Django & SQL",
		},
		{
			name:     "docx extension is case-insensitive",
			filename: "JANE.DOCX",
			data:     buildDOCX(t, "Go developer"),
			want:     "Go developer",
		},
		{
			name:     "docx without document body",
			filename: "empty.docx",
			data:     zipFiles(t, map[string]string{"word/styles.xml": "<styles/>"}),
			want:     "[Could not parse DOCX: " + docxBody + " not found]",
		},
		{
			name:     "docx that is not a zip",
			filename: "broken.docx",
			data:     []byte("not a zip archive"),
			want:     "[Could not parse DOCX: ",
			match:    "prefix",
		},
		{
			name:     "docx with broken xml",
			filename: "bad.docx",
			data:     zipFiles(t, map[string]string{docxBody: "<w:document><w:body><w:p>"}),
			want:     "[Could not parse DOCX: ",
			match:    "prefix",
		},
		{
			name:     "pdf text",
			filename: "john.pdf",
			data:     buildPDF(t, "Python backend engineer"),
			want:     "Python backend engineer",
			match:    "contains",
		},
		{
			name:     "pdf without trailer",
			filename: "broken.pdf",
			data:     []byte("%PDF-1.4\nnot really a pdf"),
			want:     "[Could not parse PDF: ",
			match:    "prefix",
		},
		{
			name:     "plain text",
			filename: "notes.md",
			data:     []byte("# Go\x00"),
			want:     "# Go",
		},
		{
			name:     "unsupported",
			filename: "cv.odt",
			data:     []byte("PK"),
			want:     "[Unsupported file format: cv.odt]",
		},
	}

	for _, tt := range tests {
		got := extract(tt.filename, tt.data)
		var ok bool
		switch tt.match {
		case "prefix":
			ok = strings.HasPrefix(got, tt.want)
		case "contains":
			ok = strings.Contains(got, tt.want)
		default:
			ok = got == tt.want
		}
		if !ok {
			t.Fatalf("%s: expected %s %q, got %q", tt.name, tt.match, tt.want, got)
		}
	}
}

func TestDocumentTextRunWhitespace(t *testing.T) {
	doc := `<w:document xmlns:w="` + wordNamespace + `"><w:body>` +
		`<w:p><w:r><w:t>Go</w:t><w:tab/><w:t>5 years</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Line one</w:t><w:br/><w:t>Line two</w:t></w:r></w:p>` +
		`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Kubernetes</w:t></w:r></w:p></w:tc></w:tr></w:tbl>` +
		`</w:body></w:document>`

	got, err := documentText(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Go\t5 years\nLine one\nLine two\nKubernetes"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestFromBytesDocuments(t *testing.T) {
	if got := FromBytes("jane.docx", buildDOCX(t, "Python backend engineer, 6 years"), 0); got != "Python backend engineer, 6 years" {
		t.Fatalf("expected docx text, got %q", got)
	}
	if got := FromBytes("jane.docx", buildDOCX(t, "x"), 10); !strings.HasPrefix(got, "[File exceeds ") {
		t.Fatalf("expected size check before parsing, got %q", got)
	}
}
