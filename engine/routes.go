package engine

import (
	"database/sql"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/drummonds/goslides/config"
	"github.com/drummonds/goslides/database"
	"github.com/drummonds/goslides/engine/pdfrenderer"
	"github.com/labstack/echo/v4"
)

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	DB           database.Repository
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
	Renderer     pdfrenderer.Renderer
}

// RegisterRoutes wires every route onto the echo instance
func (serverHandler *ServerHandler) RegisterRoutes() {
	e := serverHandler.Echo

	e.POST("/api/attachment/upload", serverHandler.UploadAttachment)
	e.GET("/api/attachments", serverHandler.GetAttachments)
	e.GET("/api/attachment/:id", serverHandler.GetAttachment)
	e.GET("/api/attachment/:id/preview", serverHandler.GetAttachmentPreview)
	e.DELETE("/api/attachment/:id", serverHandler.DeleteAttachmentRoute)
	e.GET("/api/search", serverHandler.SearchAttachments)
	e.GET("/api/status", serverHandler.GetStatus)

	e.POST("/api/slide", serverHandler.CreateSlide)
	e.GET("/api/slides", serverHandler.GetSlides)
	e.GET("/api/slide/:id", serverHandler.GetSlideRoute)
	e.PATCH("/api/slide/:id/attachment", serverHandler.SetSlideAttachment)
	e.DELETE("/api/slide/:id/attachment", serverHandler.RemoveSlideAttachment)
	// HTML forms cannot issue DELETE, the admin page posts here instead
	e.POST("/api/slide/:id/attachment/remove", serverHandler.RemoveSlideAttachment)
	e.DELETE("/api/slide/:id", serverHandler.DeleteSlideRoute)

	e.GET("/slide/view/:id", serverHandler.ViewSlide)
	e.GET("/admin/slide/:id", serverHandler.AdminSlide)

	e.Static("/media", serverHandler.ServerConfig.MediaPath)
}

type attachmentResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	URL        string    `json:"url"`
	UploadTime time.Time `json:"uploadTime"`
	Pages      []string  `json:"pages"` // media URLs of the page images, in order
}

func (serverHandler *ServerHandler) attachmentToResponse(att *database.Attachment) (*attachmentResponse, error) {
	pages, err := serverHandler.DB.GetPageImages(att.ULID.String())
	if err != nil {
		return nil, err
	}
	pageURLs := make([]string, 0, len(pages))
	for _, rel := range pages {
		pageURLs = append(pageURLs, "/media/"+rel)
	}
	return &attachmentResponse{
		ID:         att.ULID.String(),
		Name:       att.Name,
		Path:       att.Path,
		URL:        "/media/" + att.Path,
		UploadTime: att.UploadTime,
		Pages:      pageURLs,
	}, nil
}

// UploadAttachment accepts a multipart PDF upload and runs the full
// ingestion. An optional "slide" form field carries a slide ULID; the new
// attachment becomes that slide's selected PDF, which is how the admin form
// uploads and selects in one step.
// @Summary Upload a PDF attachment
// @Tags Attachments
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} attachmentResponse
// @Failure 400 {object} map[string]string "Not a PDF"
// @Failure 404 {object} map[string]string "Slide not found"
// @Failure 500 {object} map[string]string "Ingestion failure"
// @Router /api/attachment/upload [post]
func (serverHandler *ServerHandler) UploadAttachment(context echo.Context) error {
	fileHeader, err := context.FormFile("file")
	if err != nil {
		return context.JSON(http.StatusBadRequest, map[string]string{"error": "missing file field"})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	attachment, err := serverHandler.IngestPDF(fileHeader.Filename, content)
	if err != nil {
		if errors.Is(err, ErrNotPDF) {
			return context.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		Logger.Error("Attachment ingestion failed", "fileName", fileHeader.Filename, "error", err)
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if slideULID := context.FormValue("slide"); slideULID != "" {
		if _, err := serverHandler.DB.GetSlide(slideULID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// The attachment is already in the library, only the selection failed
				return context.JSON(http.StatusNotFound, map[string]string{"error": "slide not found"})
			}
			return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		if err := serverHandler.DB.UpdateSlideAttachment(slideULID, attachment.ULID.String()); err != nil {
			return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		Logger.Info("Attachment selected for slide", "slide", slideULID, "attachment", attachment.ULID.String())
	}

	response, err := serverHandler.attachmentToResponse(attachment)
	if err != nil {
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return context.JSON(http.StatusOK, response)
}

// GetAttachments lists attachments, newest first
func (serverHandler *ServerHandler) GetAttachments(context echo.Context) error {
	attachments, err := serverHandler.DB.GetAllAttachments()
	if err != nil {
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	responses := make([]attachmentResponse, 0, len(attachments))
	for i := range attachments {
		response, err := serverHandler.attachmentToResponse(&attachments[i])
		if err != nil {
			return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		responses = append(responses, *response)
	}
	return context.JSON(http.StatusOK, responses)
}

// GetAttachment returns one attachment with its page image URLs
func (serverHandler *ServerHandler) GetAttachment(context echo.Context) error {
	attachment, err := serverHandler.DB.GetAttachment(context.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return context.JSON(http.StatusNotFound, map[string]string{"error": "attachment not found"})
		}
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	response, err := serverHandler.attachmentToResponse(attachment)
	if err != nil {
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return context.JSON(http.StatusOK, response)
}

// GetAttachmentPreview serves a resized first-page preview for the admin form
func (serverHandler *ServerHandler) GetAttachmentPreview(context echo.Context) error {
	attachment, err := serverHandler.DB.GetAttachment(context.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return context.JSON(http.StatusNotFound, map[string]string{"error": "attachment not found"})
		}
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	preview, err := serverHandler.RenderPreview(attachment)
	if err != nil {
		return context.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return context.Blob(http.StatusOK, "image/png", preview)
}

// DeleteAttachmentRoute deletes an attachment, its PDF and its page images
// @Summary Delete an attachment
// @Tags Attachments
// @Produce json
// @Param id path string true "Attachment ULID"
// @Success 200 {string} string "Attachment Deleted"
// @Failure 404 {object} map[string]string "Attachment not found"
// @Router /api/attachment/{id} [delete]
func (serverHandler *ServerHandler) DeleteAttachmentRoute(context echo.Context) error {
	attachment, err := serverHandler.DB.GetAttachment(context.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return context.JSON(http.StatusNotFound, map[string]string{"error": "attachment not found"})
		}
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if err := serverHandler.DeleteAttachment(attachment); err != nil {
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return context.JSON(http.StatusOK, "Attachment Deleted")
}

// SearchAttachments searches attachment names and extracted text
func (serverHandler *ServerHandler) SearchAttachments(context echo.Context) error {
	searchTerm := context.QueryParam("q")
	if searchTerm == "" {
		return context.JSON(http.StatusBadRequest, map[string]string{"error": "missing q parameter"})
	}

	attachments, err := serverHandler.DB.SearchAttachments(searchTerm)
	if err != nil {
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	responses := make([]attachmentResponse, 0, len(attachments))
	for i := range attachments {
		response, err := serverHandler.attachmentToResponse(&attachments[i])
		if err != nil {
			return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		responses = append(responses, *response)
	}
	return context.JSON(http.StatusOK, responses)
}

type statusResponse struct {
	pdfrenderer.Capabilities
	Warning string `json:"warning,omitempty"`
}

// GetStatus reports the PDF rendering capabilities and the user-facing
// warning when rendering is unavailable
func (serverHandler *ServerHandler) GetStatus(context echo.Context) error {
	status := statusResponse{Capabilities: pdfrenderer.Probe(serverHandler.Renderer)}
	if !status.PDFSupported {
		status.Warning = "PDF rendering is unavailable: uploaded slide decks will not display page images"
	}
	return context.JSON(http.StatusOK, status)
}

type slideRequest struct {
	Title      string `json:"title"`
	Attachment string `json:"attachment"`
}

type slideResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Attachment string    `json:"attachment,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func slideToResponse(slide *database.Slide) slideResponse {
	return slideResponse{
		ID:         slide.ULID.String(),
		Title:      slide.Title,
		Attachment: slide.Attachment,
		CreatedAt:  slide.CreatedAt,
	}
}

// CreateSlide creates a new slide post
func (serverHandler *ServerHandler) CreateSlide(context echo.Context) error {
	var request slideRequest
	if err := context.Bind(&request); err != nil {
		return context.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if request.Title == "" {
		return context.JSON(http.StatusBadRequest, map[string]string{"error": "missing title"})
	}

	newTime := time.Now()
	newULID, err := database.CalculateUUID(newTime)
	if err != nil {
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	slide := &database.Slide{
		ULID:       newULID,
		Title:      request.Title,
		Attachment: request.Attachment,
		CreatedAt:  newTime,
	}
	if err := serverHandler.DB.SaveSlide(slide); err != nil {
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return context.JSON(http.StatusOK, slideToResponse(slide))
}

// GetSlides lists every slide
func (serverHandler *ServerHandler) GetSlides(context echo.Context) error {
	slides, err := serverHandler.DB.GetAllSlides()
	if err != nil {
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	responses := make([]slideResponse, 0, len(slides))
	for i := range slides {
		responses = append(responses, slideToResponse(&slides[i]))
	}
	return context.JSON(http.StatusOK, responses)
}

// GetSlideRoute returns one slide
func (serverHandler *ServerHandler) GetSlideRoute(context echo.Context) error {
	slide, err := serverHandler.DB.GetSlide(context.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return context.JSON(http.StatusNotFound, map[string]string{"error": "slide not found"})
		}
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return context.JSON(http.StatusOK, slideToResponse(slide))
}

// SetSlideAttachment selects the PDF for a slide and generates its page
// images when they are missing
// @Summary Select the slide's PDF
// @Tags Slides
// @Accept json
// @Produce json
// @Param id path string true "Slide ULID"
// @Router /api/slide/{id}/attachment [patch]
func (serverHandler *ServerHandler) SetSlideAttachment(context echo.Context) error {
	var request slideRequest
	if err := context.Bind(&request); err != nil {
		return context.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if request.Attachment == "" {
		return context.JSON(http.StatusBadRequest, map[string]string{"error": "missing attachment"})
	}

	attachment, err := serverHandler.DB.GetAttachment(request.Attachment)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return context.JSON(http.StatusNotFound, map[string]string{"error": "attachment not found"})
		}
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if err := serverHandler.DB.UpdateSlideAttachment(context.Param("id"), attachment.ULID.String()); err != nil {
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	// Attachment may predate the rasterizer or a previous generation may have
	// failed, in which case this save retries it
	if err := serverHandler.AddPageImages(attachment); err != nil {
		Logger.Error("Page image generation failed on slide save", "attachment", attachment.ULID.String(), "error", err)
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return context.JSON(http.StatusOK, "Attachment Selected")
}

// RemoveSlideAttachment clears the slide's PDF selection. The attachment and
// its page images stay in the media library.
func (serverHandler *ServerHandler) RemoveSlideAttachment(context echo.Context) error {
	if err := serverHandler.DB.UpdateSlideAttachment(context.Param("id"), ""); err != nil {
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return context.JSON(http.StatusOK, "Attachment Removed")
}

// DeleteSlideRoute deletes a slide post
func (serverHandler *ServerHandler) DeleteSlideRoute(context echo.Context) error {
	if err := serverHandler.DB.DeleteSlide(context.Param("id")); err != nil {
		return context.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return context.JSON(http.StatusOK, "Slide Deleted")
}
