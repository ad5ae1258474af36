package textextract

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTXT(t *testing.T) {
	data := []byte("  hello\nworld \n")
	got, err := Extract(bytes.NewReader(data), int64(len(data)), ".txt")
	require.NoError(t, err)
	require.Len(t, got.Pages, 1)
	assert.Equal(t, 1, got.Pages[0].Number)
	assert.Equal(t, "hello\nworld", got.Content())
	assert.Equal(t, "txt", got.Metadata["type"])
}

func TestExtractTXT_InvalidUTF8(t *testing.T) {
	data := []byte{0xff, 0xfe, 0x00}
	_, err := Extract(bytes.NewReader(data), int64(len(data)), "txt")
	assert.Error(t, err)
}

func TestExtractDOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document><w:body>` +
		`<w:p><w:r><w:t>First</w:t></w:r><w:r><w:t xml:space="preserve"> line</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Second line</w:t></w:r></w:p>` +
		`</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	got, err := Extract(bytes.NewReader(buf.Bytes()), int64(buf.Len()), ".docx")
	require.NoError(t, err)
	assert.Equal(t, "First line\nSecond line", got.Content())
}

func TestExtractDOCX_MissingBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Extract(bytes.NewReader(buf.Bytes()), int64(buf.Len()), "docx")
	assert.Error(t, err)
}

func TestExtract_Unsupported(t *testing.T) {
	_, err := Extract(bytes.NewReader(nil), 0, ".exe")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtractPDF_Invalid(t *testing.T) {
	data := []byte("not a pdf")
	_, err := Extract(bytes.NewReader(data), int64(len(data)), ".pdf")
	assert.Error(t, err)
}
