package source

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ImageRaster serves one page per image file. Images are returned at their
// native resolution whatever dpi is asked for.
type ImageRaster struct {
	paths []string
}

func NewImageRaster(path string) (*ImageRaster, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var paths []string
	if fi.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(entry.Name())) {
			case ".jpg", ".jpeg", ".png":
				paths = append(paths, filepath.Join(path, entry.Name()))
			}
		}
		sort.Strings(paths)
	} else {
		paths = []string{path}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images in %s", path)
	}

	return &ImageRaster{paths: paths}, nil
}

func (s *ImageRaster) PageCount() int {
	return len(s.paths)
}

func (s *ImageRaster) PageSize(page int) (float64, float64, error) {
	if err := checkPage(page, len(s.paths)); err != nil {
		return 0, 0, err
	}
	f, err := os.Open(s.paths[page])
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode %s: %w", s.paths[page], err)
	}
	return float64(cfg.Width), float64(cfg.Height), nil
}

func (s *ImageRaster) Render(page int, _ int) (image.Image, error) {
	if err := checkPage(page, len(s.paths)); err != nil {
		return nil, err
	}
	f, err := os.Open(s.paths[page])
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.paths[page], err)
	}
	return img, nil
}

func (s *ImageRaster) Close() error {
	return nil
}
