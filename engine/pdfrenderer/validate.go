package pdfrenderer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ValidatePDF checks that the file is structurally a PDF and answers the
// page-count query, without constructing a render handle. Used to reject
// corrupt uploads before any rendering work starts.
func ValidatePDF(path string) (int, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return 0, fmt.Errorf("not a PDF file: %s", filepath.Base(path))
	}
	if err := api.ValidateFile(path, nil); err != nil {
		return 0, fmt.Errorf("PDF validation failed: %w", err)
	}
	count, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("unable to query page count: %w", err)
	}
	return count, nil
}
