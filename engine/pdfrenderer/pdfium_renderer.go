package pdfrenderer

import (
	"fmt"
	"image"
	"os"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

// PDFiumRenderer implements PDF rendering using go-pdfium with WebAssembly
// (pure Go, no CGo). The WebAssembly worker pool must be initialized once
// before pages can be rendered, which is exposed through InitMultiPage.
type PDFiumRenderer struct {
	pool     pdfium.Pool
	instance pdfium.Pdfium
}

// NewPDFiumRenderer creates a new PDFium-based PDF renderer using WebAssembly
func NewPDFiumRenderer() (*PDFiumRenderer, error) {
	return &PDFiumRenderer{}, nil
}

// Name identifies the implementation
func (r *PDFiumRenderer) Name() string {
	return "pdfium"
}

// InitMultiPage performs the one-time WebAssembly pool setup. Safe to call
// more than once; subsequent calls are no-ops.
func (r *PDFiumRenderer) InitMultiPage() error {
	if r.instance != nil {
		return nil
	}

	// Single-threaded usage, keep the pool minimal
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize PDFium WebAssembly: %w", err)
	}

	instance, err := pool.GetInstance(time.Second * 30)
	if err != nil {
		pool.Close()
		return fmt.Errorf("failed to get PDFium instance: %w", err)
	}

	r.pool = pool
	r.instance = instance
	return nil
}

// Open acquires a render handle for the file
func (r *PDFiumRenderer) Open(filename string) (Document, error) {
	if err := r.InitMultiPage(); err != nil {
		return nil, err
	}

	pdfBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("unable to read PDF file: %w", err)
	}

	doc, err := r.instance.OpenDocument(&requests.OpenDocument{
		File: &pdfBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}

	return &pdfiumDocument{instance: r.instance, doc: doc.Document}, nil
}

// Close cleans up resources used by the PDFium renderer
func (r *PDFiumRenderer) Close() error {
	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}
	r.instance = nil
	return nil
}

type pdfiumDocument struct {
	instance pdfium.Pdfium
	doc      references.FPDF_DOCUMENT
}

func (d *pdfiumDocument) PageCount() (int, error) {
	resp, err := d.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: d.doc,
	})
	if err != nil {
		return 0, fmt.Errorf("unable to get page count: %w", err)
	}
	return resp.PageCount, nil
}

func (d *pdfiumDocument) Image(page int) (image.Image, error) {
	// 150 DPI balances output size against legibility of slide text
	pageRender, err := d.instance.RenderPageInDPI(&requests.RenderPageInDPI{
		DPI: 150,
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: d.doc,
				Index:    page,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to render page %d: %w", page, err)
	}

	img := pageRender.Result.Image
	// Release WebAssembly resources for this page
	pageRender.Cleanup()
	return img, nil
}

func (d *pdfiumDocument) Close() error {
	_, err := d.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: d.doc,
	})
	return err
}
