package pdfrenderer

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// FitzRenderer implements PDF rendering using go-fitz (requires CGo and MuPDF).
// MuPDF handles multi-page documents natively, so no setup call is exposed.
type FitzRenderer struct {
}

// NewFitzRenderer creates a new Fitz-based PDF renderer
func NewFitzRenderer() (*FitzRenderer, error) {
	return &FitzRenderer{}, nil
}

// Name identifies the implementation
func (r *FitzRenderer) Name() string {
	return "fitz"
}

// Open acquires a render handle for the file
func (r *FitzRenderer) Open(filename string) (Document, error) {
	doc, err := fitz.New(filename)
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

// Close cleans up resources (no-op for Fitz, handles are closed individually)
func (r *FitzRenderer) Close() error {
	return nil
}

type fitzDocument struct {
	doc *fitz.Document
}

func (d *fitzDocument) PageCount() (int, error) {
	return d.doc.NumPage(), nil
}

func (d *fitzDocument) Image(page int) (image.Image, error) {
	img, err := d.doc.Image(page)
	if err != nil {
		return nil, fmt.Errorf("unable to render page %d: %w", page, err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
