package engine

import (
	"bytes"
	"database/sql"
	"errors"
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/drummonds/goslides/database"
	"github.com/drummonds/goslides/engine/pdfrenderer"
	"github.com/labstack/echo/v4"
)

var slideViewTemplate = template.Must(template.New("slideView").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { margin: 0; background: #222; }
.slide-page { display: block; margin: 1em auto; max-width: 90%; box-shadow: 0 0 12px rgba(0,0,0,0.6); }
.empty { color: #ccc; text-align: center; margin-top: 4em; font-family: sans-serif; }
</style>
</head>
<body>
{{if .Pages}}{{range .Pages}}<img class="slide-page" src="{{.}}" alt="{{$.Title}}">
{{end}}{{else}}<p class="empty">No PDF selected for this slide.</p>{{end}}
</body>
</html>
`))

var adminSlideTemplate = template.Must(template.New("adminSlide").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Edit slide: {{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
.warning { background: #fcf8e3; border: 1px solid #faebcc; color: #8a6d3b; padding: 0.8em; margin-bottom: 1em; }
.preview { max-width: 320px; border: 1px solid #ddd; display: block; margin-top: 1em; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{if .Warning}}<div class="warning">{{.Warning}}</div>{{end}}
<form method="post" action="/api/attachment/upload" enctype="multipart/form-data">
<input type="hidden" name="slide" value="{{.SlideID}}">
<label>PDF slide deck: <input type="file" name="file" accept="application/pdf"></label>
<button type="submit">Upload</button>
{{if .AttachmentID}}<button type="submit" formmethod="post" formaction="/api/slide/{{.SlideID}}/attachment/remove">Remove current PDF</button>{{end}}
</form>
{{if .AttachmentID}}<img class="preview" src="/api/attachment/{{.AttachmentID}}/preview" alt="First page preview">{{end}}
</body>
</html>
`))

type slideViewData struct {
	Title string
	Pages []string
}

type adminSlideData struct {
	SlideID      string
	Title        string
	AttachmentID string
	Warning      string
}

// ViewSlide renders the slide template: every generated page image in order
func (serverHandler *ServerHandler) ViewSlide(context echo.Context) error {
	slide, err := serverHandler.DB.GetSlide(context.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return context.HTML(http.StatusNotFound, "<h1>Slide not found</h1>")
		}
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	data := slideViewData{Title: slide.Title}
	if slide.Attachment != "" {
		pages, err := serverHandler.DB.GetPageImages(slide.Attachment)
		if err != nil {
			return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		for _, rel := range pages {
			data.Pages = append(data.Pages, "/media/"+rel)
		}
	}

	var buf bytes.Buffer
	if err := slideViewTemplate.Execute(&buf, data); err != nil {
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return context.HTML(http.StatusOK, buf.String())
}

// AdminSlide renders the slide edit form: upload control, hidden attachment
// reference, first-page preview, and the capability warning when PDF
// rendering is unavailable
func (serverHandler *ServerHandler) AdminSlide(context echo.Context) error {
	slide, err := serverHandler.DB.GetSlide(context.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return context.HTML(http.StatusNotFound, "<h1>Slide not found</h1>")
		}
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	data := adminSlideData{
		SlideID:      slide.ULID.String(),
		Title:        slide.Title,
		AttachmentID: slide.Attachment,
	}
	caps := pdfrenderer.Probe(serverHandler.Renderer)
	if !caps.PDFSupported {
		data.Warning = "PDF rendering is unavailable on this server. Uploaded slide decks will be stored but page images cannot be generated."
	}

	var buf bytes.Buffer
	if err := adminSlideTemplate.Execute(&buf, data); err != nil {
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return context.HTML(http.StatusOK, buf.String())
}

// RenderPreview returns a resized PNG of the attachment's first page image
func (serverHandler *ServerHandler) RenderPreview(attachment *database.Attachment) ([]byte, error) {
	pages, err := serverHandler.DB.GetPageImages(attachment.ULID.String())
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, errors.New("no page images generated")
	}

	absPath := filepath.Join(serverHandler.ServerConfig.MediaPath, filepath.FromSlash(pages[0]))
	img, err := imaging.Open(absPath)
	if err != nil {
		return nil, err
	}

	width := serverHandler.ServerConfig.PreviewWidth
	if width <= 0 {
		width = 320
	}
	resized := imaging.Resize(img, width, 0, imaging.Lanczos)
	sharpened := imaging.Sharpen(resized, 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, sharpened, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
