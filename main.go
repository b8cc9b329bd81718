package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	config "github.com/drummonds/goslides/config"
	database "github.com/drummonds/goslides/database"
	engine "github.com/drummonds/goslides/engine"
	"github.com/drummonds/goslides/engine/pdfrenderer"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	database.Logger = Logger
	config.Logger = Logger
	engine.Logger = Logger
}

func main() {
	serverConfig, logger := config.SetupServer()
	injectGlobals(logger) //inject the logger into all of the packages

	Logger.Info("Setting up database", "type", serverConfig.DatabaseType)
	db := database.NewRepository(serverConfig)
	defer db.Close()

	Logger.Info("Database setup complete")
	database.WriteConfigToDB(serverConfig, db) //writing the config to the database

	// Renderer selection is a capability probe: failure is survivable, the
	// server just can't generate page images until one is available
	renderer, err := pdfrenderer.NewRenderer(serverConfig.Renderer)
	if err != nil {
		Logger.Warn("PDF renderer unavailable", "requested", serverConfig.Renderer, "error", err)
		renderer = nil
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))

	serverHandler := &engine.ServerHandler{
		DB:           db,
		Echo:         e,
		ServerConfig: serverConfig,
		Renderer:     renderer,
	}

	if err := serverHandler.StartupChecks(); err != nil {
		Logger.Error("Startup checks failed", "error", err)
		os.Exit(1)
	}

	serverHandler.RegisterRoutes()
	serverHandler.InitializeSchedules()

	listenAddr := serverConfig.ListenAddrIP + ":" + serverConfig.ListenAddrPort
	Logger.Info("Starting server", "addr", listenAddr)
	if err := e.Start(listenAddr); err != nil && err != http.ErrServerClosed {
		Logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
