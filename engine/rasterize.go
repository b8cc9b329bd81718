package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/drummonds/goslides/engine/pdfrenderer"
)

// ErrNotPDF is returned when the input file does not carry a .pdf extension
var ErrNotPDF = errors.New("file is not a PDF")

// RasterizePDF converts every page of the PDF at filePath into an individual
// PNG file written to the same directory as the source, named
// "{base}-p{page}-pdf.png" with a 1-based page number. Returns the absolute
// paths of the generated files in page order.
//
// An empty filePath means there is nothing to generate and returns (nil, nil),
// which is distinct from an error. Any failure aborts the whole operation;
// PNGs already written for earlier pages are left on disk and reclaimed later
// by the orphan sweep.
func (serverHandler *ServerHandler) RasterizePDF(filePath string) ([]string, error) {
	if filePath == "" {
		return nil, nil
	}
	if !strings.EqualFold(filepath.Ext(filePath), ".pdf") {
		return nil, fmt.Errorf("%w: %s", ErrNotPDF, filepath.Base(filePath))
	}

	renderer := serverHandler.Renderer
	if renderer == nil {
		return nil, errors.New("no PDF renderer available")
	}

	// Compatibility shim: some implementations need a one-time multi-page
	// initialization before pages can be iterated
	if initializer, ok := renderer.(pdfrenderer.MultiPageInitializer); ok {
		if err := initializer.InitMultiPage(); err != nil {
			return nil, err
		}
	}

	doc, err := renderer.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	numPages, err := doc.PageCount()
	if err != nil {
		return nil, err
	}
	Logger.Debug("PDF has pages", "filePath", filePath, "count", numPages)

	dir := filepath.Dir(filePath)
	base := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))

	var saved []string
	for pageNum := 0; pageNum < numPages; pageNum++ {
		img, err := doc.Image(pageNum)
		if err != nil {
			return nil, fmt.Errorf("unable to render page %d: %w", pageNum, err)
		}

		outPath := uniqueFilename(dir, fmt.Sprintf("%s-p%d-pdf.png", base, pageNum+1))
		if err := imaging.Save(img, outPath); err != nil {
			return nil, fmt.Errorf("unable to save page %d: %w", pageNum, err)
		}
		saved = append(saved, outPath)
	}

	Logger.Info("Rasterized PDF to page images", "filePath", filePath, "pages", len(saved))
	return saved, nil
}

// uniqueFilename returns a path under dir based on name that does not collide
// with an existing file: "name.png", then "name-1.png", "name-2.png" and so on
func uniqueFilename(dir, name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := filepath.Join(dir, name)
	for n := 1; ; n++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, n, ext))
	}
}
