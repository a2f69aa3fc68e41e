// Package transcript turns uploaded transcripts into clean text and mines
// them for LinkedIn topics that support a promotional goal.
package transcript

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported transcript format, expected pdf, docx, txt or md")
	ErrEmptyTranscript   = errors.New("transcript is empty")
)

// Supported formats.
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatText = "text"
)

// Document is an extracted transcript.
type Document struct {
	Filename string `json:"filename"`
	Format   string `json:"format"`
	Text     string `json:"text"`
}

// FormatOf maps a filename to a supported format.
func FormatOf(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(filename))) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	case ".txt", ".md", ".markdown", "":
		return FormatText, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Extract reads the file and returns its cleaned text.
func Extract(filename string, r io.ReaderAt, size int64) (Document, error) {
	format, err := FormatOf(filename)
	if err != nil {
		return Document{}, err
	}

	var text string
	switch format {
	case FormatPDF:
		text, err = extractPDF(r, size)
	case FormatDOCX:
		text, err = extractDOCX(r, size)
	default:
		text, err = extractPlain(r, size)
	}
	if err != nil {
		return Document{}, fmt.Errorf("read %s transcript: %w", format, err)
	}

	text = Clean(text)
	if text == "" {
		return Document{}, ErrEmptyTranscript
	}
	return Document{Filename: filepath.Base(filename), Format: format, Text: text}, nil
}

// FromText wraps pasted text as a document.
func FromText(filename, text string) (Document, error) {
	cleaned := Clean(text)
	if cleaned == "" {
		return Document{}, ErrEmptyTranscript
	}
	if strings.TrimSpace(filename) == "" {
		filename = "pasted.txt"
	}
	return Document{Filename: filename, Format: FormatText, Text: cleaned}, nil
}

var (
	blankLines = regexp.MustCompile(`\n\s*\n`)
	spaceRuns  = regexp.MustCompile(` +`)
)

// Clean collapses blank-line runs into one empty line and space runs into a
// single space.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	text = spaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func extractPlain(r io.ReaderAt, size int64) (string, error) {
	data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.New("text transcript is not valid UTF-8")
	}
	return string(data), nil
}

func extractPDF(r io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

func extractDOCX(r io.ReaderAt, size int64) (string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return "", err
	}
	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", errors.New("word/document.xml not found")
	}
	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return paragraphsFromWordXML(rc)
}

// paragraphsFromWordXML emits one line per w:p element.
func paragraphsFromWordXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var (
		out    bytes.Buffer
		para   strings.Builder
		inText bool
	)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Space != wordNS {
				continue
			}
			switch el.Name.Local {
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "tab":
				para.WriteString("\t")
			case "br", "cr":
				para.WriteString("\n")
			}
		case xml.EndElement:
			if el.Name.Space != wordNS {
				continue
			}
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteString(para.String())
				out.WriteString("\n")
				para.Reset()
			}
		case xml.CharData:
			if inText {
				para.Write(el)
			}
		}
	}
	return out.String(), nil
}
