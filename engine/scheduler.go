package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/robfig/cron/v3"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// pageImagePattern matches generated page image filenames, including the
// numbered variants produced by collision avoidance
var pageImagePattern = regexp.MustCompile(`-p\d+-pdf(-\d+)?\.png$`)

// minOrphanAge keeps the sweep away from files a rasterization in flight has
// written but not yet recorded
const minOrphanAge = 15 * time.Minute

// InitializeSchedules starts all the cron jobs (currently just one)
func (serverHandler *ServerHandler) InitializeSchedules() {
	interval := serverHandler.ServerConfig.SweepInterval
	if interval <= 0 {
		Logger.Info("Orphan sweep disabled", "interval_minutes", interval)
		return
	}

	c := cron.New()
	var sweepJob cron.Job
	sweepJob = cron.FuncJob(func() { serverHandler.sweepOrphanPageImages() })
	sweepJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(sweepJob) //ensure we don't kick off another if old one is still running
	c.AddJob(fmt.Sprintf("@every %dm", interval), sweepJob)
	Logger.Info("Adding orphan sweep scheduler", "interval_minutes", interval)
	c.Start()
}

// sweepOrphanPageImages deletes generated page image files that no attachment
// metadata references. A failed rasterization leaves its earlier pages on
// disk unrecorded; this reclaims them.
func (serverHandler *ServerHandler) sweepOrphanPageImages() {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in orphan sweep", "panic", r)
		}
	}()

	mediaPath := serverHandler.ServerConfig.MediaPath
	Logger.Info("Starting orphan page image sweep", "path", mediaPath)

	referenced, err := serverHandler.DB.GetAllPageImagePaths()
	if err != nil {
		Logger.Error("Unable to fetch page image metadata for sweep", "error", err)
		return
	}
	referencedSet := make(map[string]bool, len(referenced))
	for _, rel := range referenced {
		referencedSet[filepath.Join(mediaPath, filepath.FromSlash(rel))] = true
	}

	removed := 0
	err = filepath.Walk(mediaPath, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !pageImagePattern.MatchString(info.Name()) {
			return nil
		}
		if referencedSet[path] {
			return nil
		}
		if time.Since(info.ModTime()) < minOrphanAge {
			return nil
		}

		Logger.Debug("Removing orphan page image", "path", path)
		if err := os.Remove(path); err != nil {
			Logger.Warn("Unable to remove orphan page image", "path", path, "error", err)
			return nil
		}
		removed++
		return nil
	})
	if err != nil {
		Logger.Error("Error walking media path during sweep", "path", mediaPath, "error", err)
	}

	Logger.Info("Orphan sweep complete", "removed", removed)
}
