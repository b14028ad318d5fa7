// Package source rasterises the backdrop pages a canvas layout is drawn on.
// Page sizes are in points; an image pixel counts as one point.
package source

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// BaseDPI is the resolution at which one pixel equals one point.
const BaseDPI = 72

type Raster interface {
	PageCount() int
	PageSize(page int) (width, height float64, err error)
	Render(page int, dpi int) (image.Image, error)
	Close() error
}

// Open picks a raster for path: a PDF, a single image or a directory of images.
func Open(path string) (Raster, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return NewImageRaster(path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return NewPDFRaster(path)
	case ".png", ".jpg", ".jpeg":
		return NewImageRaster(path)
	default:
		return nil, fmt.Errorf("unsupported source: %s", path)
	}
}

type PDFRaster struct {
	doc  *fitz.Document
	path string
}

func NewPDFRaster(path string) (*PDFRaster, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &PDFRaster{doc: doc, path: path}, nil
}

func (p *PDFRaster) PageCount() int {
	return p.doc.NumPage()
}

func (p *PDFRaster) PageSize(page int) (float64, float64, error) {
	if err := checkPage(page, p.PageCount()); err != nil {
		return 0, 0, err
	}
	rect, err := p.doc.Bound(page)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

// Render opens its own document handle so pages can be rendered from
// several goroutines at once.
func (p *PDFRaster) Render(page int, dpi int) (image.Image, error) {
	if err := checkPage(page, p.PageCount()); err != nil {
		return nil, err
	}
	doc, err := fitz.New(p.path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return doc.ImageDPI(page, float64(dpi))
}

func (p *PDFRaster) Close() error {
	return p.doc.Close()
}

func checkPage(page, count int) error {
	if page < 0 || page >= count {
		return fmt.Errorf("page %d out of range [0, %d)", page, count)
	}
	return nil
}
