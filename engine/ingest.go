package engine

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/drummonds/goslides/database"
	"github.com/drummonds/goslides/engine/pdfrenderer"
	"github.com/ledongthuc/pdf"
)

// IngestPDF stores an uploaded PDF in the media library and generates its
// page images.
// Step 1: hash the content and check for duplicates
// Step 2: write the file under the media root and validate it
// Step 3: extract text (best-effort) and save the attachment record
// Step 4: rasterize pages and record the page image metadata
//
// A step 4 failure leaves the attachment in place with no page image
// metadata; a later save retries generation since AddPageImages is idempotent
// on absent metadata.
func (serverHandler *ServerHandler) IngestPDF(fileName string, content []byte) (*database.Attachment, error) {
	if !strings.EqualFold(filepath.Ext(fileName), ".pdf") {
		return nil, fmt.Errorf("%w: %s", ErrNotPDF, fileName)
	}

	// Step 1: hash and duplicate check
	hash := fmt.Sprintf("%x", md5.Sum(content))
	existing, err := serverHandler.DB.GetAttachmentByHash(hash)
	if err != nil {
		return nil, fmt.Errorf("duplicate check failed: %w", err)
	}
	if existing != nil {
		Logger.Info("Duplicate attachment detected, reusing", "fileName", fileName, "existing", existing.Name)
		return existing, nil
	}

	// Step 2: write the file to the upload folder with a collision-free name
	uploadDir := filepath.Join(serverHandler.ServerConfig.MediaPath, filepath.FromSlash(serverHandler.ServerConfig.UploadFolderRel))
	if err := os.MkdirAll(uploadDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	destPath := uniqueFilename(uploadDir, filepath.Base(fileName))
	if err := os.WriteFile(destPath, content, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}

	pageCount, err := pdfrenderer.ValidatePDF(destPath)
	if err != nil {
		os.Remove(destPath)
		return nil, err
	}
	Logger.Info("Upload validated", "fileName", fileName, "pages", pageCount)

	// Step 3: extract text for search; the attachment is stored without text
	// when extraction fails
	fullText, err := extractText(destPath)
	if err != nil {
		Logger.Warn("Text extraction failed, storing attachment without text", "fileName", fileName, "error", err)
		fullText = ""
	}

	newTime := time.Now()
	newULID, err := database.CalculateUUID(newTime)
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("cannot generate ULID: %w", err)
	}

	relPath, err := filepath.Rel(serverHandler.ServerConfig.MediaPath, destPath)
	if err != nil {
		os.Remove(destPath)
		return nil, err
	}

	attachment := &database.Attachment{
		ULID:         newULID,
		Name:         filepath.Base(destPath),
		Path:         filepath.ToSlash(relPath),
		Hash:         hash,
		UploadTime:   newTime,
		DocumentType: filepath.Ext(destPath),
		FullText:     fullText,
	}
	if err := serverHandler.DB.SaveAttachment(attachment); err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("unable to save attachment: %w", err)
	}

	Logger.Info("Attachment record created", "ulid", attachment.ULID.String(), "hash", hash)

	// Step 4: generate page images
	if err := serverHandler.AddPageImages(attachment); err != nil {
		return attachment, fmt.Errorf("page image generation failed: %w", err)
	}

	Logger.Info("Attachment ingestion complete", "fileName", attachment.Name, "ulid", attachment.ULID.String())
	return attachment, nil
}

// DeleteAttachment removes an attachment's page images, its PDF file, the
// page image metadata and the attachment record
func (serverHandler *ServerHandler) DeleteAttachment(attachment *database.Attachment) error {
	if err := serverHandler.DeletePageImages(attachment); err != nil {
		return err
	}
	if err := serverHandler.DB.DeletePageImages(attachment.ULID.String()); err != nil {
		return err
	}

	if attachment.Path != "" {
		absPath := filepath.Join(serverHandler.ServerConfig.MediaPath, filepath.FromSlash(attachment.Path))
		if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
			Logger.Warn("Unable to delete attachment file", "path", absPath, "error", err)
		}
	}

	return serverHandler.DB.DeleteAttachment(attachment.ULID.String())
}

// extractText pulls the plain text out of a PDF for search indexing
func extractText(filePath string) (string, error) {
	fileName := filepath.Base(filePath)
	pdfFile, result, err := pdf.Open(filePath)
	if err != nil {
		Logger.Error("Unable to open PDF for text extraction", "fileName", fileName)
		return "", err
	}
	defer pdfFile.Close()

	textReader, err := result.GetPlainText()
	if err != nil {
		Logger.Error("Unable to convert PDF to text", "fileName", fileName)
		return "", err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, textReader); err != nil {
		return "", err
	}
	return buf.String(), nil
}
