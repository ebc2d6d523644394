package resumes

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/anuragparashar26/skillscreen/internal/utils"
	"github.com/ledongthuc/pdf"
)

const (
	formatPDF  = "PDF"
	formatDOCX = "DOCX"

	docxBody = "word/document.xml"
	// maxDocumentXML bounds the decompressed DOCX body.
	maxDocumentXML = 64 << 20
)

var errNoDocumentBody = errors.New(docxBody + " not found")

func ParseErrorPlaceholder(format string, err error) string {
	return fmt.Sprintf("[Could not parse %s: %v]", format, err)
}

// extract turns file content into resume text according to the extension.
// Parse failures become placeholders, never errors.
func extract(name string, data []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		text, err := pdfText(data)
		if err != nil {
			return ParseErrorPlaceholder(formatPDF, err)
		}
		return utils.SanitizeUTF8(text)
	case ".docx":
		text, err := docxText(data)
		if err != nil {
			return ParseErrorPlaceholder(formatDOCX, err)
		}
		return utils.SanitizeUTF8(text)
	}

	if IsText(name) {
		return utils.SanitizeUTF8(string(data))
	}
	return UnsupportedPlaceholder(name)
}

// pdfText joins the plain text of every page with newlines.
func pdfText(data []byte) (text string, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed document: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, content)
	}
	return strings.TrimSpace(strings.Join(pages, "\n")), nil
}

// docxText reads the paragraphs of word/document.xml, one per line.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	for _, f := range zr.File {
		if f.Name != docxBody {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", docxBody, err)
		}
		defer rc.Close()
		return documentText(io.LimitReader(rc, maxDocumentXML))
	}
	return "", errNoDocumentBody
}

// documentText walks WordprocessingML: w:t carries text, w:tab and w:br
// inside a run are whitespace, w:p ends a paragraph.
func documentText(r io.Reader) (string, error) {
	var (
		dec        = xml.NewDecoder(r)
		paragraphs []string
		para       strings.Builder
		runDepth   int
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", docxBody, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "r":
				runDepth++
			case "t":
				inText = true
			case "tab":
				if runDepth > 0 {
					para.WriteByte('\t')
				}
			case "br", "cr":
				if runDepth > 0 {
					para.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				runDepth--
			case "t":
				inText = false
			case "p":
				paragraphs = append(paragraphs, para.String())
				para.Reset()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	if para.Len() > 0 {
		paragraphs = append(paragraphs, para.String())
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n")), nil
}
