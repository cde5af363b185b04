package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildZip creates a zip file at path with the given entries.
func buildZip(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

func TestExpandZip(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "bundle.zip")
	buildZip(t, archivePath, map[string][]byte{
		"invoice.pdf":   []byte("pdf bytes"),
		"scan/page.jpg": []byte("jpg bytes"),
	})

	dest := t.TempDir()
	files, err := NewExpander(nil).Expand(context.Background(), archivePath, dest)
	require.NoError(t, err)
	require.Len(t, files, 2)

	names := make(map[string]bool)
	for _, f := range files {
		names[filepath.Base(f)] = true
		_, statErr := os.Stat(f)
		assert.NoError(t, statErr)
	}
	assert.True(t, names["invoice.pdf"])
	assert.True(t, names["page.jpg"], "directory structure should be flattened")
}

func TestExpandNestedZip(t *testing.T) {
	dir := t.TempDir()

	var inner bytes.Buffer
	zw := zip.NewWriter(&inner)
	w, err := zw.Create("receipt.pdf")
	require.NoError(t, err)
	_, err = w.Write([]byte("inner pdf"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	outerPath := filepath.Join(dir, "outer.zip")
	buildZip(t, outerPath, map[string][]byte{
		"invoice.pdf": []byte("outer pdf"),
		"nested.zip":  inner.Bytes(),
	})

	dest := t.TempDir()
	files, err := NewExpander(nil).Expand(context.Background(), outerPath, dest)
	require.NoError(t, err)
	require.Len(t, files, 2)

	names := make(map[string]bool)
	for _, f := range files {
		names[filepath.Base(f)] = true
	}
	assert.True(t, names["invoice.pdf"])
	assert.True(t, names["receipt.pdf"], "nested archive contents should be expanded")

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotEqual(t, "nested.zip", entry.Name(),
			"container files must not land in the output directory")
	}
	assert.Len(t, entries, 2)
}

func TestExpandTruncatedTar(t *testing.T) {
	dir := t.TempDir()

	// A valid entry followed by garbage instead of the end-of-archive
	// trailer. Reading past the good entry fails, but the good entry must
	// still come back.
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	content := []byte("pdf bytes")
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "good.pdf",
		Mode:     0o600,
		Size:     int64(len(content)),
		Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Flush())
	buf.Write(bytes.Repeat([]byte{0xFF}, 512))

	archivePath := filepath.Join(dir, "bundle.tar")
	require.NoError(t, os.WriteFile(archivePath, buf.Bytes(), 0o600))

	dest := t.TempDir()
	files, err := NewExpander(nil).Expand(context.Background(), archivePath, dest)
	require.NoError(t, err, "a fault after valid entries is logged, not fatal")
	require.Len(t, files, 1)
	assert.Equal(t, "good.pdf", filepath.Base(files[0]))

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestExpandCorruptArchive(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "bundle.zip")
	require.NoError(t, os.WriteFile(archivePath, []byte("not a zip"), 0o600))

	_, err := NewExpander(nil).Expand(context.Background(), archivePath, t.TempDir())
	require.Error(t, err, "an unopenable archive still reports an error")
}

func TestExpandNameCollision(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "bundle.zip")
	buildZip(t, archivePath, map[string][]byte{
		"2024/invoice.pdf": []byte("january"),
		"2025/invoice.pdf": []byte("february"),
	})

	dest := t.TempDir()
	files, err := NewExpander(nil).Expand(context.Background(), archivePath, dest)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.NotEqual(t, files[0], files[1], "colliding names should be renamed, not overwritten")

	for _, f := range files {
		data, readErr := os.ReadFile(f)
		require.NoError(t, readErr)
		assert.NotEmpty(t, data)
	}
}

func TestExpandDepthLimit(t *testing.T) {
	dir := t.TempDir()

	// Build a chain of zips nested deeper than the expansion limit.
	payload := []byte("too deep")
	current := buildZipBytes(t, map[string][]byte{"leaf.txt": payload})
	for i := 0; i < maxDepth+2; i++ {
		current = buildZipBytes(t, map[string][]byte{"nested.zip": current})
	}

	archivePath := filepath.Join(dir, "deep.zip")
	require.NoError(t, os.WriteFile(archivePath, current, 0o600))

	dest := t.TempDir()
	files, err := NewExpander(nil).Expand(context.Background(), archivePath, dest)
	require.NoError(t, err, "depth overflow is logged per nested archive, not fatal")
	assert.Empty(t, files)
}

func buildZipBytes(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExpandSkipsVisitedArchive(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "bundle.zip")
	buildZip(t, archivePath, map[string][]byte{"invoice.pdf": []byte("pdf")})

	e := NewExpander(nil)
	visited := map[string]bool{archiveKey(archivePath): true}

	files, err := e.expand(context.Background(), archivePath, t.TempDir(), visited, 0)
	require.NoError(t, err)
	assert.Empty(t, files, "an already-visited archive must not expand again")
}

func TestExpandUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.xyz")
	require.NoError(t, os.WriteFile(path, []byte("not an archive"), 0o600))

	files, err := NewExpander(nil).Expand(context.Background(), path, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestIsArchive(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"bundle.zip", true},
		{"bundle.ZIP", true},
		{"bundle.rar", true},
		{"bundle.7z", true},
		{"bundle.tar", true},
		{"bundle.tar.gz", true},
		{"bundle.tgz", true},
		{"invoice.pdf", false},
		{"scan.jpg", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsArchive(tt.name), tt.name)
	}
}
