package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func doRequest(serverHandler *ServerHandler, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	serverHandler.Echo.ServeHTTP(rec, req)
	return rec
}

func doJSON(serverHandler *ServerHandler, method, target string, payload interface{}) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			panic(err)
		}
	}
	return doRequest(serverHandler, method, target, &body, "application/json")
}

func TestStatusWithoutRenderer(t *testing.T) {
	serverHandler := newTestHandler(t, nil)
	serverHandler.RegisterRoutes()

	rec := doRequest(serverHandler, http.MethodGet, "/api/status", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var status struct {
		PDFSupported bool   `json:"pdfSupported"`
		Renderer     string `json:"renderer"`
		Warning      string `json:"warning"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if status.PDFSupported {
		t.Error("Expected pdfSupported false without a renderer")
	}
	if status.Warning == "" {
		t.Error("Expected a warning without a renderer")
	}
}

func TestStatusWithRenderer(t *testing.T) {
	serverHandler := newTestHandler(t, &stubRenderer{pages: 1, failPage: -1})
	serverHandler.RegisterRoutes()

	rec := doRequest(serverHandler, http.MethodGet, "/api/status", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var status struct {
		PDFSupported bool   `json:"pdfSupported"`
		Renderer     string `json:"renderer"`
		Warning      string `json:"warning"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if !status.PDFSupported {
		t.Error("Expected pdfSupported true with a renderer")
	}
	if status.Renderer != "stub" {
		t.Errorf("Expected renderer name stub, got %s", status.Renderer)
	}
	if status.Warning != "" {
		t.Errorf("Expected no warning, got %q", status.Warning)
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	serverHandler := newTestHandler(t, &stubRenderer{pages: 1, failPage: -1})
	serverHandler.RegisterRoutes()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	fmt.Fprint(part, "just some text")
	writer.Close()

	rec := doRequest(serverHandler, http.MethodPost, "/api/attachment/upload", &body, writer.FormDataContentType())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for non-PDF upload, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadMissingFileField(t *testing.T) {
	serverHandler := newTestHandler(t, nil)
	serverHandler.RegisterRoutes()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.Close()

	rec := doRequest(serverHandler, http.MethodPost, "/api/attachment/upload", &body, writer.FormDataContentType())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for missing file field, got %d", rec.Code)
	}
}

func TestGetAttachmentNotFound(t *testing.T) {
	serverHandler := newTestHandler(t, nil)
	serverHandler.RegisterRoutes()

	rec := doRequest(serverHandler, http.MethodGet, "/api/attachment/01JXXXXXXXXXXXXXXXXXXXXXXX", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for unknown attachment, got %d", rec.Code)
	}
}

func TestSlideLifecycle(t *testing.T) {
	renderer := &stubRenderer{pages: 2, failPage: -1}
	serverHandler := newTestHandler(t, renderer)
	serverHandler.RegisterRoutes()
	attachment := storeAttachment(t, serverHandler, "deck.pdf")

	rec := doJSON(serverHandler, http.MethodPost, "/api/slide", map[string]string{"title": "Quarterly report"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Create slide failed: %d: %s", rec.Code, rec.Body.String())
	}
	var slide struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		Attachment string `json:"attachment"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &slide); err != nil {
		t.Fatalf("Failed to decode slide: %v", err)
	}
	if slide.Title != "Quarterly report" {
		t.Errorf("Expected title round trip, got %q", slide.Title)
	}

	t.Run("SetAttachment", func(t *testing.T) {
		rec := doJSON(serverHandler, http.MethodPatch, "/api/slide/"+slide.ID+"/attachment",
			map[string]string{"attachment": attachment.ULID.String()})
		if rec.Code != http.StatusOK {
			t.Fatalf("Set attachment failed: %d: %s", rec.Code, rec.Body.String())
		}

		// Selecting the PDF also generates its page images
		has, err := serverHandler.DB.HasPageImages(attachment.ULID.String())
		if err != nil {
			t.Fatalf("HasPageImages failed: %v", err)
		}
		if !has {
			t.Error("Expected page images to be generated on slide save")
		}
	})

	t.Run("ViewSlide", func(t *testing.T) {
		rec := doRequest(serverHandler, http.MethodGet, "/slide/view/"+slide.ID, nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("View slide failed: %d", rec.Code)
		}
		html := rec.Body.String()
		if !strings.Contains(html, "/media/uploads/deck-p1-pdf.png") {
			t.Error("Expected first page image in slide view")
		}
		if !strings.Contains(html, "/media/uploads/deck-p2-pdf.png") {
			t.Error("Expected second page image in slide view")
		}
		p1 := strings.Index(html, "deck-p1-pdf.png")
		p2 := strings.Index(html, "deck-p2-pdf.png")
		if p1 > p2 {
			t.Error("Expected page images in page order")
		}
	})

	t.Run("AdminForm", func(t *testing.T) {
		rec := doRequest(serverHandler, http.MethodGet, "/admin/slide/"+slide.ID, nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("Admin slide failed: %d", rec.Code)
		}
		html := rec.Body.String()
		if !strings.Contains(html, attachment.ULID.String()) {
			t.Error("Expected attachment reference in admin form")
		}
		if strings.Contains(html, "class=\"warning\"") {
			t.Error("Expected no capability warning with a working renderer")
		}
	})

	t.Run("RemoveAttachment", func(t *testing.T) {
		// Same handler the admin form posts to
		rec := doRequest(serverHandler, http.MethodPost, "/api/slide/"+slide.ID+"/attachment/remove", nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("Remove attachment failed: %d: %s", rec.Code, rec.Body.String())
		}

		rec = doRequest(serverHandler, http.MethodGet, "/api/slide/"+slide.ID, nil, "")
		var updated struct {
			Attachment string `json:"attachment"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
			t.Fatalf("Failed to decode slide: %v", err)
		}
		if updated.Attachment != "" {
			t.Errorf("Expected attachment cleared, got %q", updated.Attachment)
		}

		// The attachment itself stays in the library
		rec = doRequest(serverHandler, http.MethodGet, "/api/attachment/"+attachment.ULID.String(), nil, "")
		if rec.Code != http.StatusOK {
			t.Errorf("Expected attachment to survive removal from slide, got %d", rec.Code)
		}
	})

	t.Run("ViewSlideWithoutPDF", func(t *testing.T) {
		rec := doRequest(serverHandler, http.MethodGet, "/slide/view/"+slide.ID, nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("View slide failed: %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "No PDF selected") {
			t.Error("Expected empty message when no PDF is selected")
		}
	})

	t.Run("DeleteSlide", func(t *testing.T) {
		rec := doRequest(serverHandler, http.MethodDelete, "/api/slide/"+slide.ID, nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("Delete slide failed: %d", rec.Code)
		}
		rec = doRequest(serverHandler, http.MethodGet, "/api/slide/"+slide.ID, nil, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404 after delete, got %d", rec.Code)
		}
	})
}

func TestUploadSelectsSlidePDF(t *testing.T) {
	renderer := &stubRenderer{pages: 1, failPage: -1}
	serverHandler := newTestHandler(t, renderer)
	serverHandler.RegisterRoutes()

	rec := doJSON(serverHandler, http.MethodPost, "/api/slide", map[string]string{"title": "Town hall"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Create slide failed: %d", rec.Code)
	}
	var slide struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &slide); err != nil {
		t.Fatalf("Failed to decode slide: %v", err)
	}

	// The admin form posts the upload with a hidden slide field
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("slide", slide.ID); err != nil {
		t.Fatalf("Failed to write slide field: %v", err)
	}
	part, err := writer.CreateFormFile("file", "deck.pdf")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write(minimalPDF())
	writer.Close()

	rec = doRequest(serverHandler, http.MethodPost, "/api/attachment/upload", &body, writer.FormDataContentType())
	if rec.Code != http.StatusOK {
		t.Fatalf("Upload failed: %d: %s", rec.Code, rec.Body.String())
	}
	var uploaded struct {
		ID    string   `json:"id"`
		Pages []string `json:"pages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &uploaded); err != nil {
		t.Fatalf("Failed to decode attachment: %v", err)
	}
	if len(uploaded.Pages) != 1 {
		t.Errorf("Expected 1 page image, got %d", len(uploaded.Pages))
	}

	rec = doRequest(serverHandler, http.MethodGet, "/api/slide/"+slide.ID, nil, "")
	var updated struct {
		Attachment string `json:"attachment"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("Failed to decode slide: %v", err)
	}
	if updated.Attachment != uploaded.ID {
		t.Errorf("Expected slide to select attachment %s, got %q", uploaded.ID, updated.Attachment)
	}
}

func TestUploadWithUnknownSlide(t *testing.T) {
	serverHandler := newTestHandler(t, &stubRenderer{pages: 1, failPage: -1})
	serverHandler.RegisterRoutes()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("slide", "01JXXXXXXXXXXXXXXXXXXXXXXX"); err != nil {
		t.Fatalf("Failed to write slide field: %v", err)
	}
	part, err := writer.CreateFormFile("file", "deck.pdf")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write(minimalPDF())
	writer.Close()

	rec := doRequest(serverHandler, http.MethodPost, "/api/attachment/upload", &body, writer.FormDataContentType())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for unknown slide, got %d", rec.Code)
	}

	// The attachment itself still landed in the library
	rec = doRequest(serverHandler, http.MethodGet, "/api/attachments", nil, "")
	var attachments []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &attachments); err != nil {
		t.Fatalf("Failed to decode attachments: %v", err)
	}
	if len(attachments) != 1 || attachments[0].Name != "deck.pdf" {
		t.Errorf("Expected deck.pdf in the library, got %+v", attachments)
	}
}

func TestAdminSlideWarningWithoutRenderer(t *testing.T) {
	serverHandler := newTestHandler(t, nil)
	serverHandler.RegisterRoutes()

	rec := doJSON(serverHandler, http.MethodPost, "/api/slide", map[string]string{"title": "No renderer"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Create slide failed: %d", rec.Code)
	}
	var slide struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &slide); err != nil {
		t.Fatalf("Failed to decode slide: %v", err)
	}

	rec = doRequest(serverHandler, http.MethodGet, "/admin/slide/"+slide.ID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Admin slide failed: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "PDF rendering is unavailable") {
		t.Error("Expected capability warning without a renderer")
	}
}

func TestDeleteAttachmentRemovesPageImages(t *testing.T) {
	renderer := &stubRenderer{pages: 2, failPage: -1}
	serverHandler := newTestHandler(t, renderer)
	serverHandler.RegisterRoutes()
	attachment := storeAttachment(t, serverHandler, "deck.pdf")

	if err := serverHandler.AddPageImages(attachment); err != nil {
		t.Fatalf("AddPageImages failed: %v", err)
	}

	rec := doRequest(serverHandler, http.MethodDelete, "/api/attachment/"+attachment.ULID.String(), nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Delete attachment failed: %d: %s", rec.Code, rec.Body.String())
	}

	has, err := serverHandler.DB.HasPageImages(attachment.ULID.String())
	if err != nil {
		t.Fatalf("HasPageImages failed: %v", err)
	}
	if has {
		t.Error("Expected page image metadata removed with the attachment")
	}
	rec = doRequest(serverHandler, http.MethodGet, "/api/attachment/"+attachment.ULID.String(), nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}
