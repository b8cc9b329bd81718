package engine

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"testing"

	"github.com/drummonds/goslides/config"
	"github.com/drummonds/goslides/database"
	"github.com/drummonds/goslides/engine/pdfrenderer"
	"github.com/labstack/echo/v4"
)

// stubRenderer renders solid images without touching the input file, so
// rasterizer behavior can be tested without MuPDF or the WebAssembly runtime
type stubRenderer struct {
	pages    int
	failPage int // zero-based page whose render fails, -1 for none
	openErr  error
	opens    int
}

func (r *stubRenderer) Name() string { return "stub" }

func (r *stubRenderer) Open(filename string) (pdfrenderer.Document, error) {
	r.opens++
	if r.openErr != nil {
		return nil, r.openErr
	}
	return &stubDocument{pages: r.pages, failPage: r.failPage}, nil
}

func (r *stubRenderer) Close() error { return nil }

type stubDocument struct {
	pages    int
	failPage int
}

func (d *stubDocument) PageCount() (int, error) { return d.pages, nil }

func (d *stubDocument) Image(page int) (image.Image, error) {
	if page == d.failPage {
		return nil, errors.New("decode failed")
	}
	return image.NewNRGBA(image.Rect(0, 0, 8, 8)), nil
}

func (d *stubDocument) Close() error { return nil }

// newTestHandler builds a ServerHandler over an in-memory sqlite repository
// and a temp media root
func newTestHandler(t *testing.T, renderer pdfrenderer.Renderer) *ServerHandler {
	t.Helper()
	if Logger == nil {
		Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	if database.Logger == nil {
		database.Logger = Logger
	}

	db := database.NewRepository(config.ServerConfig{DatabaseType: "sqlite", DatabaseDbname: ":memory:"})
	t.Cleanup(func() { db.Close() })

	e := echo.New()
	e.HideBanner = true

	return &ServerHandler{
		DB:   db,
		Echo: e,
		ServerConfig: config.ServerConfig{
			MediaPath:       t.TempDir(),
			UploadFolderRel: "uploads",
			PreviewWidth:    320,
		},
		Renderer: renderer,
	}
}

// touch creates an empty file for path setup in tests
func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("%PDF-1.4 test"), 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", path, err)
	}
}

// minimalPDF builds the smallest structurally valid one-page PDF, with a
// correct cross-reference table, so ingestion tests survive validation
// without a binary fixture
func minimalPDF() []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	objects := []string{
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n",
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n",
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n",
	}
	offsets := make([]int, 0, len(objects))
	for _, obj := range objects {
		offsets = append(offsets, buf.Len())
		buf.WriteString(obj)
	}

	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefPos)
	return buf.Bytes()
}
