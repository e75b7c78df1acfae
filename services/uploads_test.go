package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		max      int64
		allowed  []string
		wantErr  string
		wantType string
	}{
		{name: "pdf", filename: "paper.pdf", content: pdfSample, max: 1 << 20, allowed: DocumentTypes, wantType: "application/pdf"},
		{name: "plain text", filename: "notes.txt", content: []byte("plain notes\n"), max: 1 << 20, allowed: DocumentTypes, wantType: "text/plain"},
		{name: "image rejected", filename: "scan.png", content: pngSample, max: 1 << 20, allowed: DocumentTypes, wantErr: "image/png"},
		{name: "empty", filename: "empty.pdf", content: []byte{}, max: 1 << 20, allowed: DocumentTypes, wantErr: "empty"},
		{name: "too large", filename: "big.pdf", content: pdfSample, max: 10, allowed: DocumentTypes, wantErr: "Please keep filesize under 10 B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := fileHeader(t, "manuscript", tt.filename, tt.content)
			upload, err := ValidateUpload("manuscript", header, tt.max, tt.allowed)
			if tt.wantErr != "" {
				fields := fieldsOf(t, err)
				require.Len(t, fields["manuscript"], 1)
				assert.Contains(t, fields["manuscript"][0], tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(upload.ContentType, tt.wantType), upload.ContentType)
			assert.Equal(t, int64(len(tt.content)), upload.Size)
		})
	}

	_, err := ValidateUpload("manuscript", nil, 0, DocumentTypes)
	assert.Contains(t, fieldsOf(t, err), "manuscript")
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", humanSize(512))
	assert.Equal(t, "1.5 KB", humanSize(1536))
	assert.Equal(t, "10.0 MB", humanSize(10<<20))
}

func TestStoredName(t *testing.T) {
	long := strings.Repeat("é", 200) + ".pdf"
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"plain", "Paper.PDF", "Paper.PDF"},
		{"unicode", "résumé final.pdf", "résumé final.pdf"},
		{"unix path", "../../etc/passwd", "passwd"},
		{"windows path", `C:\Users\ada\thesis.docx`, "thesis.docx"},
		{"control chars", "bad\x00\nname.pdf", "badname.pdf"},
		{"empty", "", "file"},
		{"dots", "..", "file"},
		{"too long", long, strings.Repeat("é", maxStoredName-4) + ".pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := storedName(tt.filename)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	st, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key := objectKey("papers", "Paper.PDF")
	assert.True(t, strings.HasPrefix(key, "papers/"))
	assert.True(t, strings.HasSuffix(key, "/Paper.PDF"))
	assert.NotEqual(t, key, objectKey("papers", "Paper.PDF"))

	require.NoError(t, st.Save(ctx, key, bytes.NewReader(pdfSample), int64(len(pdfSample)), "application/pdf"))
	rc, err := st.Open(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, pdfSample, body)

	require.NoError(t, st.Delete(ctx, key))
	_, err = st.Open(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, st.Delete(ctx, key))

	// Keys cannot climb out of the media root.
	require.NoError(t, st.Save(ctx, "../../escape.txt", strings.NewReader("x"), 1, "text/plain"))
	rc, err = st.Open(ctx, "escape.txt")
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	_, err = st.Open(ctx, "/")
	assert.ErrorIs(t, err, ErrNotFound)
}
