package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kurochkinivan/docuextract/internal/domain"
)

type fileStamp struct {
	size    int64
	modTime time.Time
}

// Scanner polls a directory and submits every new or changed file for extraction.
type Scanner struct {
	log          *slog.Logger
	watchDir     string
	scanInterval time.Duration
	submitter    Submitter
	seen         map[string]fileStamp
}

func NewScanner(
	log *slog.Logger,
	watchDir string,
	scanInterval time.Duration,
	submitter Submitter,
) *Scanner {
	return &Scanner{
		log:          log,
		watchDir:     watchDir,
		scanInterval: scanInterval,
		submitter:    submitter,
		seen:         make(map[string]fileStamp),
	}
}

func (s *Scanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.log.DebugContext(ctx, "scan cycle started")

			err := s.scanFiles(ctx)
			if err != nil {
				s.log.ErrorContext(ctx, "failed to scan files", slog.String("err", err.Error()))
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Scanner) scanFiles(ctx context.Context) error {
	entries, err := os.ReadDir(s.watchDir)
	if err != nil {
		return fmt.Errorf("failed to read directory %q: %w", s.watchDir, err)
	}

	var files []domain.RawFile
	stamps := make(map[string]fileStamp)

	for _, entry := range entries {
		f, stamp, ok, err := s.processEntry(entry)
		if err != nil {
			s.log.ErrorContext(ctx, "failed process entry, skipping file",
				slog.String("filename", entry.Name()),
				slog.String("err", err.Error()),
			)
			continue
		}

		if !ok {
			continue
		}

		files = append(files, f)
		stamps[entry.Name()] = stamp
	}

	if len(files) == 0 {
		return nil
	}

	result, err := s.submitter.Submit(ctx, files...)
	if err != nil {
		return fmt.Errorf("failed to submit files: %w", err)
	}

	for name, stamp := range stamps {
		s.seen[name] = stamp
	}

	if result.Message != "" {
		s.log.WarnContext(ctx, result.Message)
	}

	s.log.InfoContext(ctx, "submitted files from watch directory",
		slog.Int("accepted", len(result.Accepted)),
		slog.Int("rejected", len(result.Rejected)),
	)

	return nil
}

func (s *Scanner) processEntry(entry os.DirEntry) (domain.RawFile, fileStamp, bool, error) {
	if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
		return domain.RawFile{}, fileStamp{}, false, nil
	}

	info, err := entry.Info()
	if err != nil {
		return domain.RawFile{}, fileStamp{}, false, fmt.Errorf("failed to stat file: %w", err)
	}

	stamp := fileStamp{size: info.Size(), modTime: info.ModTime()}
	if prev, ok := s.seen[entry.Name()]; ok && prev.size == stamp.size && prev.modTime.Equal(stamp.modTime) {
		return domain.RawFile{}, fileStamp{}, false, nil
	}

	data, err := os.ReadFile(filepath.Join(s.watchDir, entry.Name()))
	if err != nil {
		return domain.RawFile{}, fileStamp{}, false, fmt.Errorf("failed to read file: %w", err)
	}

	return domain.RawFile{Name: entry.Name(), Data: data}, stamp, true, nil
}
