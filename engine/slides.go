package engine

import (
	"os"
	"path/filepath"

	"github.com/drummonds/goslides/database"
)

// AddPageImages generates page images for the attachment's PDF and records
// their media-relative paths as metadata. Idempotent: when metadata is already
// present no rendering work is done. Metadata is written only after every page
// succeeded, so it is never partial.
func (serverHandler *ServerHandler) AddPageImages(attachment *database.Attachment) error {
	has, err := serverHandler.DB.HasPageImages(attachment.ULID.String())
	if err != nil {
		return err
	}
	if has {
		Logger.Debug("Page images already generated, skipping", "attachment", attachment.ULID.String())
		return nil
	}

	absPath := ""
	if attachment.Path != "" {
		absPath = filepath.Join(serverHandler.ServerConfig.MediaPath, filepath.FromSlash(attachment.Path))
	}

	saved, err := serverHandler.RasterizePDF(absPath)
	if err != nil {
		return err
	}
	if len(saved) == 0 {
		// Nothing to generate, leave metadata absent
		return nil
	}

	relPaths := make([]string, 0, len(saved))
	for _, savedPath := range saved {
		rel, err := filepath.Rel(serverHandler.ServerConfig.MediaPath, savedPath)
		if err != nil {
			return err
		}
		relPaths = append(relPaths, filepath.ToSlash(rel))
	}

	return serverHandler.DB.SavePageImages(attachment.ULID.String(), relPaths)
}

// DeletePageImages removes the files listed in the attachment's page image
// metadata. Deletion is best-effort: files already gone are ignored and other
// removal failures are logged but not returned. The metadata rows themselves
// are the caller's responsibility.
func (serverHandler *ServerHandler) DeletePageImages(attachment *database.Attachment) error {
	paths, err := serverHandler.DB.GetPageImages(attachment.ULID.String())
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}

	for _, rel := range paths {
		absPath := filepath.Join(serverHandler.ServerConfig.MediaPath, filepath.FromSlash(rel))
		if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
			Logger.Warn("Unable to delete page image", "path", absPath, "error", err)
		}
	}

	Logger.Info("Deleted page images", "attachment", attachment.ULID.String(), "count", len(paths))
	return nil
}
