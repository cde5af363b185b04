package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// renderDPI keeps page images readable without making the composite huge.
const renderDPI = 150

// RenderToJPEG rasterizes every page of a PDF and stacks the pages
// vertically into a single JPEG. It shells out to pdftoppm first and
// falls back to mutool; an error is returned only when no renderer
// produced any page image.
func RenderToJPEG(path string) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "pdfrender-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create render dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pages, err := renderPages(path, tmpDir)
	if err != nil {
		return nil, err
	}

	return stackPages(pages)
}

func renderPages(path, tmpDir string) ([]string, error) {
	renderers := []struct {
		name string
		args []string
		glob string
	}{
		{
			name: "pdftoppm",
			args: []string{"-jpeg", "-r", fmt.Sprint(renderDPI), path, filepath.Join(tmpDir, "page")},
			glob: "page-*.jpg",
		},
		{
			name: "mutool",
			args: []string{"draw", "-r", fmt.Sprint(renderDPI), "-o", filepath.Join(tmpDir, "page-%d.png"), path},
			glob: "page-*.png",
		},
	}

	var lastErr error
	for _, r := range renderers {
		if _, err := exec.LookPath(r.name); err != nil {
			lastErr = fmt.Errorf("%s not found: %w", r.name, err)
			continue
		}

		cmd := exec.Command(r.name, r.args...)
		if out, err := cmd.CombinedOutput(); err != nil {
			lastErr = fmt.Errorf("%s failed: %w: %s", r.name, err, strings.TrimSpace(string(out)))
			continue
		}

		pages, err := filepath.Glob(filepath.Join(tmpDir, r.glob))
		if err != nil || len(pages) == 0 {
			lastErr = fmt.Errorf("%s produced no page images", r.name)
			continue
		}
		sort.Strings(pages)
		return pages, nil
	}

	return nil, fmt.Errorf("no pdf renderer succeeded: %w", lastErr)
}

// stackPages decodes the page images and concatenates them top to bottom.
func stackPages(pages []string) ([]byte, error) {
	var images []image.Image
	width, height := 0, 0

	for _, page := range pages {
		f, err := os.Open(page)
		if err != nil {
			return nil, fmt.Errorf("failed to open page image: %w", err)
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode page image %s: %w", filepath.Base(page), err)
		}

		images = append(images, img)
		bounds := img.Bounds()
		if bounds.Dx() > width {
			width = bounds.Dx()
		}
		height += bounds.Dy()
	}

	composite := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(composite, composite.Bounds(), image.White, image.Point{}, draw.Src)

	y := 0
	for _, img := range images {
		bounds := img.Bounds()
		rect := image.Rect(0, y, bounds.Dx(), y+bounds.Dy())
		draw.Draw(composite, rect, img, bounds.Min, draw.Src)
		y += bounds.Dy()
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, composite, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode composite jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
