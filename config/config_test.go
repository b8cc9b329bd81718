package config

import (
	"path/filepath"
	"testing"
)

func TestSetupServerDefaults(t *testing.T) {
	t.Setenv("LOG_OUTPUT", "stdout")
	t.Setenv("MEDIA_PATH", t.TempDir())

	serverConfig, logger := SetupServer()
	if logger == nil {
		t.Fatal("Expected logger to be created")
	}

	if serverConfig.ListenAddrPort != "8000" {
		t.Errorf("Expected default port 8000, got %s", serverConfig.ListenAddrPort)
	}
	if serverConfig.DatabaseType != "sqlite" {
		t.Errorf("Expected default database type sqlite, got %s", serverConfig.DatabaseType)
	}
	if serverConfig.Renderer != "auto" {
		t.Errorf("Expected default renderer auto, got %s", serverConfig.Renderer)
	}
	if !filepath.IsAbs(serverConfig.MediaPath) {
		t.Errorf("Expected absolute media path, got %s", serverConfig.MediaPath)
	}
	if serverConfig.PreviewWidth != 320 {
		t.Errorf("Expected default preview width 320, got %d", serverConfig.PreviewWidth)
	}
}

func TestSetupServerOverrides(t *testing.T) {
	t.Setenv("LOG_OUTPUT", "stdout")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("PDF_RENDERER", "fitz")
	t.Setenv("SWEEP_INTERVAL", "5")

	serverConfig, _ := SetupServer()

	if serverConfig.ListenAddrPort != "9000" {
		t.Errorf("Expected port 9000, got %s", serverConfig.ListenAddrPort)
	}
	if serverConfig.Renderer != "fitz" {
		t.Errorf("Expected renderer fitz, got %s", serverConfig.Renderer)
	}
	if serverConfig.SweepInterval != 5 {
		t.Errorf("Expected sweep interval 5, got %d", serverConfig.SweepInterval)
	}
}

func TestGetEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL", "not-a-number")
	if got := getEnvInt("SWEEP_INTERVAL", 60); got != 60 {
		t.Errorf("Expected fallback 60 for unparseable value, got %d", got)
	}
}
