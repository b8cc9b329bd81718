package pdfrenderer

import (
	"fmt"
	"image"
	"strings"
)

// Document is an open render handle over one PDF file. Pages are selected and
// rendered one at a time, so callers iterate strictly in page order.
type Document interface {
	// PageCount returns the total number of pages
	PageCount() (int, error)

	// Image renders the page with the given zero-based index
	Image(page int) (image.Image, error)

	// Close releases the handle
	Close() error
}

// Renderer defines the capability boundary for PDF page rendering
type Renderer interface {
	// Name identifies the implementation ("pdfium", "fitz")
	Name() string

	// Open acquires a render handle for the file
	Open(filename string) (Document, error)

	// Close cleans up any resources used by the renderer
	Close() error
}

// MultiPageInitializer is implemented by renderers that need a one-time setup
// call before pages can be iterated. Implementations without it handle
// multi-page documents natively.
type MultiPageInitializer interface {
	InitMultiPage() error
}

// Capabilities reports what the selected renderer can do. Used only to drive
// the user-facing warning, never for correctness.
type Capabilities struct {
	PDFSupported   bool   `json:"pdfSupported"`
	MultiPageSetup bool   `json:"multiPageSetup"`
	Renderer       string `json:"renderer"`
}

type rendererFactory struct {
	name string
	make func() (Renderer, error)
}

// factories are tried in order by "auto" selection. Each factory must prove
// the implementation actually works, so pdfium runs its one-time pool setup
// here and the chain falls through to fitz when that fails.
var factories = []rendererFactory{
	{"pdfium", func() (Renderer, error) {
		r, err := NewPDFiumRenderer()
		if err != nil {
			return nil, err
		}
		if err := r.InitMultiPage(); err != nil {
			r.Close()
			return nil, err
		}
		return r, nil
	}},
	{"fitz", func() (Renderer, error) { return NewFitzRenderer() }},
}

// NewRenderer creates a renderer of the requested kind. "auto" probes the
// registered implementations at call time and returns the first whose setup
// succeeds. "none" always fails and exists so deployments can switch PDF
// support off.
func NewRenderer(kind string) (Renderer, error) {
	switch strings.ToLower(kind) {
	case "", "auto":
		var lastErr error
		for _, f := range factories {
			r, err := f.make()
			if err == nil {
				return r, nil
			}
			lastErr = err
		}
		return nil, fmt.Errorf("no PDF renderer available: %w", lastErr)
	case "none":
		return nil, fmt.Errorf("PDF rendering disabled by configuration")
	default:
		for _, f := range factories {
			if f.name == kind {
				return f.make()
			}
		}
		return nil, fmt.Errorf("unknown PDF renderer %q", kind)
	}
}

// Probe reports the capabilities of a renderer instance. A nil renderer means
// PDF input is not supported at all.
func Probe(r Renderer) Capabilities {
	caps := Capabilities{}
	if r == nil {
		return caps
	}
	caps.PDFSupported = true
	caps.Renderer = r.Name()
	_, caps.MultiPageSetup = r.(MultiPageInitializer)
	return caps
}
