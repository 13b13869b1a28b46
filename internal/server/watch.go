package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conneroisu/pagebuilder/internal/transfer"
	"github.com/conneroisu/pagebuilder/internal/watcher"
)

// reloadMessage tells clients that a watched file was applied.
type reloadMessage struct {
	Type    string `json:"type"`
	Path    string `json:"path"`
	Count   int    `json:"count,omitempty"`
	Message string `json:"message,omitempty"`
}

// loadInitialFiles applies the configured catalog and design files once at
// startup. Failures are logged; the server starts with built-ins and an
// empty design.
func (s *Server) loadInitialFiles(ctx context.Context) {
	if path := s.config.Catalog.Path; path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := s.catalog.Reload(path); err != nil {
				s.logger.Warn(ctx, err, "Failed to load template catalog", "path", path)
			} else {
				s.logger.Info(ctx, "Loaded template catalog", "path", path, "templates", len(s.catalog.All()))
			}
		}
	}

	if path := s.config.Builder.DesignFile; path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := s.importDesignFile(ctx, path); err != nil {
				s.logger.Warn(ctx, err, "Failed to load design file", "path", path)
			}
		}
	}
}

func (s *Server) importDesignFile(ctx context.Context, path string) error {
	file, err := transfer.FileFromPath(path)
	if err != nil {
		return err
	}
	if err := s.pipeline.Import(ctx, file); err != nil {
		return err
	}
	s.logger.Info(ctx, "Imported design file", "path", path, "sections", len(s.builder.GetOrderedSections()))

	return nil
}

// setupFileWatcher watches the catalog and design files when enabled.
func (s *Server) setupFileWatcher(ctx context.Context) error {
	catalogPath := ""
	if s.config.Catalog.Watch && s.config.Catalog.Path != "" {
		catalogPath = absPath(s.config.Catalog.Path)
	}
	designPath := ""
	if s.config.Builder.WatchDesign && s.config.Builder.DesignFile != "" {
		designPath = absPath(s.config.Builder.DesignFile)
	}
	if catalogPath == "" && designPath == "" {
		return nil
	}

	fw, err := watcher.NewFileWatcher(watcher.DefaultDelay, watcher.WithLogger(s.logger))
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	fw.AddFilter(watcher.NoTempFilter)

	for _, path := range []string{catalogPath, designPath} {
		if path == "" {
			continue
		}
		if err := fw.AddFile(path); err != nil {
			_ = fw.Stop()
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
	}

	fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		return s.handleFileChange(ctx, events, catalogPath, designPath)
	})

	if err := fw.Start(ctx); err != nil {
		_ = fw.Stop()
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	s.watcher = fw

	return nil
}

func (s *Server) handleFileChange(ctx context.Context, events []watcher.ChangeEvent, catalogPath, designPath string) error {
	for _, event := range events {
		if event.Type == watcher.EventTypeDeleted {
			s.logger.Info(ctx, "Watched file removed", "path", event.Path)
			continue
		}

		switch event.Path {
		case catalogPath:
			if err := s.catalog.Reload(event.Path); err != nil {
				s.logger.Warn(ctx, err, "Catalog reload failed", "path", event.Path)
				s.broadcastJSON(reloadMessage{Type: "catalog_error", Path: event.Path, Message: err.Error()})
				continue
			}
			s.broadcastJSON(reloadMessage{Type: "catalog_reloaded", Path: event.Path, Count: len(s.catalog.All())})

		case designPath:
			// The import itself broadcasts the new state through the store.
			if err := s.importDesignFile(ctx, event.Path); err != nil {
				s.logger.Warn(ctx, err, "Design re-import failed", "path", event.Path)
				s.broadcastJSON(reloadMessage{Type: "design_error", Path: event.Path, Message: err.Error()})
			}
		}
	}

	return nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
