package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileSource serves credentials loaded from a config file and reloads them
// whenever the file changes. Reads never block on a reload.
type FileSource struct {
	path   string
	logger *zap.Logger
	creds  atomic.Pointer[Credentials]
}

// NewFileSource loads path once and returns a source for its credentials.
func NewFileSource(path string, logger *zap.Logger) (*FileSource, error) {
	s := &FileSource{path: path, logger: logger}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Credentials implements Source.
func (s *FileSource) Credentials() (Credentials, error) {
	return *s.creds.Load(), nil
}

func (s *FileSource) reload() error {
	cfg, err := Load(s.path)
	if err != nil {
		return err
	}
	creds := cfg.Credentials()
	s.creds.Store(&creds)
	return nil
}

// Watch reloads the file on every write until ctx is done. A reload that
// fails keeps the previous credentials. The directory is watched rather than
// the file so that editors replacing the file are noticed.
func (s *FileSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if !fileExists(s.path) {
				continue
			}
			if err := s.reload(); err != nil {
				s.logger.Warn("config reload failed, keeping previous credentials",
					zap.String("path", s.path),
					zap.Error(err),
				)
				continue
			}
			s.logger.Info("config reloaded", zap.String("path", s.path))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}
