package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/nwaples/rardecode/v2"

	"github.com/sangtrankt98/invoice-collection/internal/logging"
)

// maxEntrySize bounds the decompressed size of a single archive entry (200MB).
// Keeps a crafted archive from filling the disk.
const maxEntrySize = 200 * 1024 * 1024

var archiveExtensions = map[string]bool{
	".zip": true,
	".rar": true,
	".7z":  true,
	".tar": true,
	".gz":  true,
	".tgz": true,
}

// IsArchive reports whether the filename looks like a supported archive.
func IsArchive(name string) bool {
	return archiveExtensions[strings.ToLower(filepath.Ext(name))]
}

// Expander unpacks archives recursively. Nested archives found among the
// extracted entries are expanded in turn; an archive that resolves to a
// path already being expanded is skipped so self-referential or mutually
// nested archives cannot loop forever.
type Expander struct {
	logger *slog.Logger
}

// NewExpander creates an Expander that logs through the given logger.
func NewExpander(logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{logger: logger}
}

// Expand unpacks the archive at path into destDir and returns the paths of
// all extracted regular files, including files pulled out of nested
// archives. Entries are staged in a temporary directory first; only
// non-archive entries are moved into destDir, so nested container files
// never show up among the results. Entries that fail to extract are
// logged and skipped, and a truncated archive yields whatever was read
// before the fault; Expand returns an error only when the archive itself
// cannot be opened or produced nothing.
func (e *Expander) Expand(ctx context.Context, path, destDir string) ([]string, error) {
	visited := make(map[string]bool)
	return e.expand(ctx, path, destDir, visited, 0)
}

// expansion nesting is bounded as a second line of defense alongside the
// visited set.
const maxDepth = 10

func (e *Expander) expand(ctx context.Context, path, destDir string, visited map[string]bool, depth int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if depth > maxDepth {
		return nil, fmt.Errorf("archive nesting exceeds %d levels: %s", maxDepth, path)
	}

	key := archiveKey(path)
	if visited[key] {
		e.logger.Warn("skipping already-visited archive",
			logging.Operation("archive_expand"),
			logging.File(path),
			logging.Status(logging.StatusSkipped))
		return nil, nil
	}
	visited[key] = true

	// Entries are staged here first. Nested container files stay behind
	// and vanish with the staging directory; only leaf files move on.
	stageDir, err := os.MkdirTemp("", "expand-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer os.RemoveAll(stageDir)

	var entries []string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		entries, err = e.expandZip(path, stageDir)
	case ".rar":
		entries, err = e.expandRar(path, stageDir)
	case ".7z":
		entries, err = e.expandSevenZip(path, stageDir)
	case ".tar":
		entries, err = e.expandTar(path, stageDir, false)
	case ".tgz":
		entries, err = e.expandTar(path, stageDir, true)
	case ".gz":
		if strings.HasSuffix(strings.ToLower(path), ".tar.gz") {
			entries, err = e.expandTar(path, stageDir, true)
		} else {
			entries, err = e.expandGzip(path, stageDir)
		}
	default:
		e.logger.Warn("unsupported archive format",
			logging.Operation("archive_expand"),
			logging.File(path),
			logging.Status(logging.StatusSkipped))
		return nil, nil
	}
	if err != nil {
		// A fault mid-stream (truncated or corrupt tail) still leaves the
		// entries read so far; keep them rather than throwing them away.
		if len(entries) == 0 {
			return nil, fmt.Errorf("failed to expand %s: %w", filepath.Base(path), err)
		}
		e.logger.Error("archive expansion incomplete, keeping partial entries",
			logging.Operation("archive_expand"),
			logging.File(filepath.Base(path)),
			slog.Int("entries", len(entries)),
			logging.Err(err),
			logging.Status(logging.StatusError))
	}

	var files []string
	for _, entry := range entries {
		if !IsArchive(entry) {
			moved, moveErr := e.moveToDest(entry, destDir)
			if moveErr != nil {
				e.logEntryError(path, filepath.Base(entry), moveErr)
				continue
			}
			files = append(files, moved)
			continue
		}

		nested, nestedErr := e.expand(ctx, entry, destDir, visited, depth+1)
		if nestedErr != nil {
			e.logger.Error("failed to expand nested archive",
				logging.Operation("archive_expand"),
				logging.File(entry),
				logging.Err(nestedErr),
				logging.Status(logging.StatusError))
			continue
		}
		files = append(files, nested...)
	}

	return files, nil
}

// moveToDest moves a staged entry into destDir, renaming on collision.
// Falls back to copying when the staging dir sits on another filesystem.
func (e *Expander) moveToDest(path, destDir string) (string, error) {
	name := filepath.Base(path)
	dest := filepath.Join(destDir, name)
	if _, err := os.Stat(dest); err == nil {
		dest = filepath.Join(destDir, uniqueName(name))
	}

	if err := os.Rename(path, dest); err == nil {
		return dest, nil
	}

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open staged entry: %w", err)
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to copy %s: %w", dest, err)
	}
	os.Remove(path)
	return dest, nil
}

// archiveKey resolves the identity of an archive for cycle detection.
// Symlinks are resolved when possible so two paths to the same file
// count as one visit.
func archiveKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return filepath.Clean(abs)
}

func (e *Expander) expandZip(path, destDir string) ([]string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	defer reader.Close()

	var files []string
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			e.logEntryError(path, f.Name, err)
			continue
		}
		out, err := e.writeEntry(destDir, f.Name, rc)
		rc.Close()
		if err != nil {
			e.logEntryError(path, f.Name, err)
			continue
		}
		files = append(files, out)
	}
	return files, nil
}

func (e *Expander) expandRar(path, destDir string) ([]string, error) {
	reader, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rar: %w", err)
	}
	defer reader.Close()

	var files []string
	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return files, fmt.Errorf("failed to read rar entry: %w", err)
		}
		if header.IsDir {
			continue
		}
		out, err := e.writeEntry(destDir, header.Name, reader)
		if err != nil {
			e.logEntryError(path, header.Name, err)
			continue
		}
		files = append(files, out)
	}
	return files, nil
}

func (e *Expander) expandSevenZip(path, destDir string) ([]string, error) {
	reader, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open 7z: %w", err)
	}
	defer reader.Close()

	var files []string
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			e.logEntryError(path, f.Name, err)
			continue
		}
		out, err := e.writeEntry(destDir, f.Name, rc)
		rc.Close()
		if err != nil {
			e.logEntryError(path, f.Name, err)
			continue
		}
		files = append(files, out)
	}
	return files, nil
}

func (e *Expander) expandTar(path, destDir string, gzipped bool) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tar: %w", err)
	}
	defer f.Close()

	var src io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	var files []string
	tr := tar.NewReader(src)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return files, fmt.Errorf("failed to read tar entry: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		out, err := e.writeEntry(destDir, header.Name, tr)
		if err != nil {
			e.logEntryError(path, header.Name, err)
			continue
		}
		files = append(files, out)
	}
	return files, nil
}

// expandGzip decompresses a standalone gzip file. The output name is the
// archive name with the .gz suffix dropped.
func (e *Expander) expandGzip(path, destDir string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip file: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer gz.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out, err := e.writeEntry(destDir, name, gz)
	if err != nil {
		return nil, err
	}
	return []string{out}, nil
}

// writeEntry copies a single archive entry into destDir, flattening any
// directory structure the entry carries. Names are sanitized against
// path traversal, and a colliding name gets a random suffix instead of
// overwriting an earlier entry.
func (e *Expander) writeEntry(destDir, entryName string, src io.Reader) (string, error) {
	name := filepath.Base(filepath.Clean(strings.ReplaceAll(entryName, "\\", "/")))
	if name == "." || name == ".." || name == "/" || name == "" {
		return "", fmt.Errorf("invalid entry name %q", entryName)
	}

	dest := filepath.Join(destDir, name)
	if _, err := os.Stat(dest); err == nil {
		dest = filepath.Join(destDir, uniqueName(name))
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer out.Close()

	n, err := io.Copy(out, io.LimitReader(src, maxEntrySize+1))
	if err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if n > maxEntrySize {
		os.Remove(dest)
		return "", fmt.Errorf("entry %s exceeds maximum size %d", entryName, maxEntrySize)
	}

	return dest, nil
}

// uniqueName appends a short random suffix before the extension.
func uniqueName(name string) string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%s%s", base, hex.EncodeToString(buf), ext)
}

func (e *Expander) logEntryError(archivePath, entryName string, err error) {
	e.logger.Error("failed to extract archive entry",
		logging.Operation("archive_expand"),
		logging.File(filepath.Base(archivePath)),
		slog.String("entry", entryName),
		logging.Err(err),
		logging.Status(logging.StatusError))
}
