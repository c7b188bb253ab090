package raster

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

func (t *targetImpl) SideBySide(scale int) *image.RGBA {
	t.mu.Lock()
	defer t.mu.Unlock()
	if scale < 1 {
		scale = 1
	}

	w, h := t.width*scale, t.height*scale
	dst := image.NewRGBA(image.Rect(0, 0, w*t.layers, h))
	for l, src := range t.resolved {
		dr := image.Rect(l*w, 0, (l+1)*w, h)
		draw.NearestNeighbor.Scale(dst, dr, src, src.Bounds(), draw.Src, nil)
	}
	return dst
}

func (t *targetImpl) WritePNGs(dir string, scale int) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %q: %w", dir, err)
	}

	var paths []string
	for l := range t.layers {
		path := filepath.Join(dir, fmt.Sprintf("view%d.png", l))
		if err := writePNG(path, t.Layer(l)); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	path := filepath.Join(dir, "side_by_side.png")
	if err := writePNG(path, t.SideBySide(scale)); err != nil {
		return paths, err
	}
	return append(paths, path), nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %q: %w", path, err)
	}
	return f.Close()
}
