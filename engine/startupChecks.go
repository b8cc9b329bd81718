package engine

import (
	"fmt"
	"os"

	"github.com/drummonds/goslides/config"
	"github.com/drummonds/goslides/engine/pdfrenderer"
)

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks() error {
	if err := mediaDirectoryChecks(serverHandler.ServerConfig); err != nil {
		return err
	}
	rendererChecks(serverHandler.Renderer)
	return nil
}

// mediaDirectoryChecks ensures the media storage root exists
func mediaDirectoryChecks(serverConfig config.ServerConfig) error {
	if serverConfig.MediaPath == "" {
		Logger.Warn("Media path not configured")
		return nil
	}

	mediaInfo, err := os.Stat(serverConfig.MediaPath)
	if err != nil {
		if os.IsNotExist(err) {
			Logger.Info("Creating media directory", "path", serverConfig.MediaPath)
			err = os.MkdirAll(serverConfig.MediaPath, 0755)
			if err != nil {
				Logger.Error("Failed to create media directory", "path", serverConfig.MediaPath, "error", err)
				return err
			}
			Logger.Info("Media directory created successfully", "path", serverConfig.MediaPath)
			return nil
		}
		Logger.Error("Error checking media directory", "path", serverConfig.MediaPath, "error", err)
		return err
	}

	if !mediaInfo.IsDir() {
		Logger.Error("Media path exists but is not a directory", "path", serverConfig.MediaPath)
		return fmt.Errorf("media path is not a directory: %s", serverConfig.MediaPath)
	}

	Logger.Info("Media directory exists", "path", serverConfig.MediaPath)
	return nil
}

// rendererChecks logs the rendering capabilities. Missing capability is a
// warning, not an error: the server still runs, uploads just won't get page
// images until a renderer is available.
func rendererChecks(renderer pdfrenderer.Renderer) {
	caps := pdfrenderer.Probe(renderer)
	if !caps.PDFSupported {
		Logger.Warn("PDF rendering unavailable, slide page images will not be generated")
		return
	}
	Logger.Info("PDF renderer available", "renderer", caps.Renderer, "multiPageSetup", caps.MultiPageSetup)
}
