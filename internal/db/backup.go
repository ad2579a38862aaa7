package db

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// BackupService periodically copies the SQLite file aside and prunes old
// copies. The appointment audit log and the stored admin token both live in
// that file, so losing it means losing the local history and the session.
type BackupService struct {
	dbPath        string
	dir           string
	interval      time.Duration
	retentionDays int
	logger        *zerolog.Logger
}

func NewBackupService(dbPath, dir string, interval time.Duration, retentionDays int, logger *zerolog.Logger) *BackupService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &BackupService{
		dbPath:        dbPath,
		dir:           dir,
		interval:      interval,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// Start runs a backup immediately, then on every interval tick until the
// context is cancelled.
func (s *BackupService) Start(ctx context.Context) {
	s.logger.Info().Str("dir", s.dir).Dur("interval", s.interval).Msg("backup service started")

	if err := s.Run(); err != nil {
		s.logger.Error().Err(err).Msg("initial backup failed")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Run(); err != nil {
				s.logger.Error().Err(err).Msg("scheduled backup failed")
			}
			s.prune()
		}
	}
}

// Run copies the database file into the backup directory.
func (s *BackupService) Run() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("barberia_%s.db", time.Now().Format("20060102_150405"))
	target := filepath.Join(s.dir, name)

	source, err := os.Open(s.dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer source.Close()

	dest, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, source); err != nil {
		return fmt.Errorf("copy database: %w", err)
	}

	s.logger.Info().Str("path", target).Msg("backup written")
	return nil
}

func (s *BackupService) prune() {
	if s.retentionDays <= 0 {
		return
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read backup dir for pruning")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", entry.Name()).Msg("removing expired backup")
			_ = os.Remove(filepath.Join(s.dir, entry.Name()))
		}
	}
}
