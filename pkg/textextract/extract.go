// Package textextract pulls plain text out of uploaded documents, one entry
// per page where the format has pages.
package textextract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var ErrUnsupportedType = errors.New("unsupported file type")

type Page struct {
	Number int
	Text   string
}

type ExtractedText struct {
	Pages    []Page
	Metadata map[string]string
}

// Content joins all pages with newlines.
func (e *ExtractedText) Content() string {
	texts := make([]string, len(e.Pages))
	for i, p := range e.Pages {
		texts[i] = p.Text
	}
	return strings.Join(texts, "\n")
}

// Extract dispatches on fileType, which may be an extension with or without
// the dot, or a MIME type.
func Extract(data io.ReaderAt, size int64, fileType string) (*ExtractedText, error) {
	switch strings.ToLower(fileType) {
	case ".pdf", "pdf", "application/pdf":
		return extractPDF(data, size)
	case ".docx", "docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return extractDOCX(data, size)
	case ".txt", "txt", "text/plain":
		return extractTXT(data, size)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, fileType)
	}
}

func SupportedTypes() []string {
	return []string{".pdf", ".docx", ".txt"}
}

func extractPDF(data io.ReaderAt, size int64) (*ExtractedText, error) {
	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	numPages := reader.NumPage()
	pages := make([]Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	return &ExtractedText{
		Pages: pages,
		Metadata: map[string]string{
			"type":        "pdf",
			"total_pages": fmt.Sprint(numPages),
		},
	}, nil
}

func extractDOCX(data io.ReaderAt, size int64) (*ExtractedText, error) {
	reader, err := zip.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open DOCX: %w", err)
	}

	for _, f := range reader.File {
		if f.Name != "word/document.xml" && path.Base(f.Name) != "document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open document.xml: %w", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read document.xml: %w", err)
		}

		return &ExtractedText{
			Pages:    []Page{{Number: 1, Text: docxText(string(content))}},
			Metadata: map[string]string{"type": "docx"},
		}, nil
	}

	return nil, errors.New("open DOCX: word/document.xml not found")
}

func extractTXT(data io.ReaderAt, size int64) (*ExtractedText, error) {
	buf := make([]byte, size)
	n, err := data.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read TXT: %w", err)
	}
	buf = buf[:n]
	if !utf8.Valid(buf) {
		return nil, errors.New("read TXT: not valid UTF-8")
	}

	return &ExtractedText{
		Pages:    []Page{{Number: 1, Text: string(bytes.TrimSpace(buf))}},
		Metadata: map[string]string{"type": "txt"},
	}, nil
}

// docxText keeps paragraph breaks and drops all other markup.
func docxText(xml string) string {
	var lines []string
	for _, para := range strings.Split(xml, "</w:p>") {
		if line := strings.Join(strings.Fields(stripXMLTags(para)), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func stripXMLTags(s string) string {
	var result strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			result.WriteRune(r)
		}
	}
	return result.String()
}
