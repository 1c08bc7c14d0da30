package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/kurochkinivan/docuextract/internal/domain"
)

// Reporter follows scheduler transitions and writes a PDF summary for every completed document.
type Reporter struct {
	log             *slog.Logger
	outputDir       string
	transitions     <-chan *domain.Transition
	reportGenerator ReportGenerator
}

func NewReporter(
	log *slog.Logger,
	outputDir string,
	transitions <-chan *domain.Transition,
	reportGenerator ReportGenerator,
) *Reporter {
	return &Reporter{
		log:             log,
		outputDir:       outputDir,
		transitions:     transitions,
		reportGenerator: reportGenerator,
	}
}

func (r *Reporter) Run(ctx context.Context) error {
	for {
		select {
		case t, ok := <-r.transitions:
			if !ok {
				return nil
			}

			log := r.log.With(
				slog.String("document_id", t.Document.ID),
				slog.String("filename", t.Document.FileName),
			)

			log.DebugContext(ctx, "document status changed",
				slog.String("from", string(t.From)),
				slog.String("to", string(t.To)),
			)

			if t.To != domain.StatusComplete || r.outputDir == "" {
				continue
			}

			path, err := r.processTransition(t)
			if err != nil {
				log.ErrorContext(ctx, "failed to generate report", slog.String("err", err.Error()))
				continue
			}

			log.InfoContext(ctx, "report generated", slog.String("path", path))

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Reporter) processTransition(t *domain.Transition) (string, error) {
	if t.Document.Result == nil {
		return "", fmt.Errorf("document %s has no result", t.Document.ID)
	}

	path := filepath.Join(r.outputDir, t.Document.ID+".pdf")

	if err := r.reportGenerator.GenerateReport(path, t.Document); err != nil {
		return "", fmt.Errorf("document %s: %w", t.Document.ID, err)
	}

	return path, nil
}
