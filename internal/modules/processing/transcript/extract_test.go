package transcript

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestClean(t *testing.T) {
	in := "Hello   world\r\n\r\n\r\n  \nSecond    line  \n"
	assert.Equal(t, "Hello world\n\nSecond line", Clean(in))
	assert.Equal(t, "", Clean(""))
	assert.Equal(t, "", Clean("  \n\n "))
}

func TestFormatOf(t *testing.T) {
	cases := map[string]string{
		"call.pdf":   FormatPDF,
		"CALL.DOCX":  FormatDOCX,
		"notes.txt":  FormatText,
		"notes.md":   FormatText,
		"transcript": FormatText,
	}
	for name, want := range cases {
		got, err := FormatOf(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := FormatOf("deck.pptx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractPlain(t *testing.T) {
	data := []byte("We shipped   DSPy\n\n\n\nto production.")
	doc, err := Extract("dir/call.txt", bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, "call.txt", doc.Filename)
	assert.Equal(t, FormatText, doc.Format)
	assert.Equal(t, "We shipped DSPy\n\nto production.", doc.Text)
}

func TestExtractPlainRejectsBinary(t *testing.T) {
	data := []byte{0xff, 0xfe, 0x00, 0x01}
	_, err := Extract("call.txt", bytes.NewReader(data), int64(len(data)))
	assert.Error(t, err)
}

func TestExtractEmpty(t *testing.T) {
	data := []byte("   \n\n  ")
	_, err := Extract("call.txt", bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestExtractDOCX(t *testing.T) {
	data := buildDocx(t,
		`<w:p><w:r><w:t>First paragraph</w:t></w:r><w:r><w:t xml:space="preserve"> continues</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>`)

	doc, err := Extract("call.docx", bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, FormatDOCX, doc.Format)
	assert.Equal(t, "First paragraph continues\nSecond paragraph", doc.Text)
}

func TestExtractDOCXMissingDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Extract("call.docx", bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	assert.Error(t, err)
}

func TestFromText(t *testing.T) {
	doc, err := FromText("", "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "pasted.txt", doc.Filename)
	assert.Equal(t, "hello", doc.Text)

	_, err = FromText("x.txt", " ")
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}
