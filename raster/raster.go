// Package raster implements the raster stage (spec §4.1): it rasterises
// each PDF page to a PNG bitmap at a configured DPI using MuPDF bindings,
// the image every downstream stage (OCR, layout segmentation, figure
// cropping) consumes.
package raster

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
)

// Document wraps a go-fitz document opened for rasterisation.
type Document struct {
	doc *fitz.Document
}

// Open loads a PDF for rasterisation.
func Open(path string) (*Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf for rasterisation: %w", err)
	}
	return &Document{doc: doc}, nil
}

// Close releases the underlying MuPDF document.
func (d *Document) Close() error {
	return d.doc.Close()
}

// NumPage returns the page count.
func (d *Document) NumPage() int {
	return d.doc.NumPage()
}

// PageImage rasterises a zero-based page index at dpi.
func (d *Document) PageImage(pageIndex int, dpi int) (image.Image, error) {
	img, err := d.doc.ImageDPI(pageIndex, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("rasterise page %d: %w", pageIndex, err)
	}
	return img, nil
}

// WritePagePNG rasterises a page and writes it to
// <outDir>/images/page_<pageIndex+1>.png, returning the written path (spec
// §6 output layout).
func (d *Document) WritePagePNG(pageIndex int, dpi int, outDir string) (string, error) {
	data, err := d.doc.ImagePNG(pageIndex, float64(dpi))
	if err != nil {
		return "", fmt.Errorf("encode page %d png: %w", pageIndex, err)
	}
	imagesDir := filepath.Join(outDir, "images")
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return "", fmt.Errorf("create images dir: %w", err)
	}
	path := filepath.Join(imagesDir, fmt.Sprintf("page_%d.png", pageIndex+1))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write page image: %w", err)
	}
	return path, nil
}
