package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kurochkinivan/docuextract/internal/config"
	v1 "github.com/kurochkinivan/docuextract/internal/controller/http/v1"
	"github.com/kurochkinivan/docuextract/internal/domain"
	"github.com/kurochkinivan/docuextract/internal/export"
	"github.com/kurochkinivan/docuextract/internal/infrastructure/extraction"
	"github.com/kurochkinivan/docuextract/internal/infrastructure/pdfinfo"
	"github.com/kurochkinivan/docuextract/internal/infrastructure/preview"
	"github.com/kurochkinivan/docuextract/internal/infrastructure/report_generator"
	"github.com/kurochkinivan/docuextract/internal/pipeline"
	"golang.org/x/sync/errgroup"
)

const (
	transitionsBuffer = 100
	shutdownTimeout   = 5 * time.Second
)

type App struct {
	log *slog.Logger
	cfg *config.Config
}

func New(log *slog.Logger, cfg *config.Config) *App {
	return &App{
		log: log,
		cfg: cfg,
	}
}

type components struct {
	previews  *preview.Registry
	scheduler *pipeline.Scheduler
	reporter  *pipeline.Reporter
	// closed by the scheduler goroutine once the loop has exited
	transitions chan *domain.Transition
}

func (a *App) build(ctx context.Context) (*components, error) {
	client, err := extraction.New(a.log, a.cfg.Extraction.URL, &http.Client{})
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction client: %w", err)
	}

	a.log.InfoContext(ctx, "checking extraction service",
		slog.String("extraction_url", a.cfg.Extraction.URL),
	)

	probe := extraction.Retry(a.log, client.Ping, a.cfg.Extraction.HealthRetries, a.cfg.Extraction.HealthRetryDelay)
	if err := probe(ctx); err != nil {
		a.log.WarnContext(ctx, "extraction service is not available, documents will fail until it is",
			slog.String("err", err.Error()),
		)
	}

	previews := preview.NewRegistry(a.log, v1.PreviewPath)
	transitions := make(chan *domain.Transition, transitionsBuffer)

	ingestor := pipeline.NewIngestor(a.log, a.cfg.MaxFileSize, previews, pdfinfo.New())
	scheduler := pipeline.NewScheduler(
		a.log,
		a.cfg.MaxConcurrent,
		a.cfg.Extraction.Timeout,
		pipeline.NewStore(),
		ingestor,
		client,
		previews,
		transitions,
	)
	reporter := pipeline.NewReporter(a.log, a.cfg.ReportsDirectory, transitions, report_generator.New())

	return &components{
		previews:    previews,
		scheduler:   scheduler,
		reporter:    reporter,
		transitions: transitions,
	}, nil
}

// Run serves the HTTP API and, when a watch directory is configured, submits files
// dropped into it.
func (a *App) Run(ctx context.Context) error {
	a.log.InfoContext(ctx, "starting app",
		slog.String("watch_dir", a.cfg.WatchDirectory),
		slog.String("reports_dir", a.cfg.ReportsDirectory),
		slog.Int("max_concurrent", a.cfg.MaxConcurrent),
		slog.Duration("extraction_timeout", a.cfg.Extraction.Timeout),
	)

	c, err := a.build(ctx)
	if err != nil {
		return err
	}
	defer c.previews.Close()

	server := v1.NewServer(a.log, a.cfg.HTTP, c.scheduler, c.previews)

	erg, ctx := errgroup.WithContext(ctx)

	erg.Go(func() error {
		a.log.InfoContext(ctx, "scheduler started")
		defer close(c.transitions)
		return c.scheduler.Run(ctx)
	})

	erg.Go(func() error {
		a.log.InfoContext(ctx, "reporter started")
		return c.reporter.Run(ctx)
	})

	if a.cfg.WatchDirectory != "" {
		scanner := pipeline.NewScanner(a.log, a.cfg.WatchDirectory, a.cfg.DirectoryScanInterval, c.scheduler)

		erg.Go(func() error {
			a.log.InfoContext(ctx, "scanner started")
			return scanner.Run(ctx)
		})
	}

	erg.Go(func() error {
		a.log.InfoContext(ctx, "starting http server",
			slog.String("addr", net.JoinHostPort(a.cfg.HTTP.Host, a.cfg.HTTP.Port)),
		)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}

		return nil
	})

	erg.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	a.log.InfoContext(ctx, "all components started")

	if err := erg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		a.log.ErrorContext(ctx, "app stopped with error", slog.String("err", err.Error()))

		return err
	}

	a.log.InfoContext(ctx, "app stopped gracefully")

	return nil
}

// Extract processes the given files once and writes the export to output. The format
// follows the output extension: .xlsx for a workbook, CSV otherwise.
func (a *App) Extract(ctx context.Context, paths []string, output string) error {
	files, err := readFiles(paths)
	if err != nil {
		return err
	}

	c, err := a.build(ctx)
	if err != nil {
		return err
	}
	defer c.previews.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var erg errgroup.Group

	erg.Go(func() error {
		defer close(c.transitions)
		return c.scheduler.Run(runCtx)
	})

	// the reporter stops once the scheduler closes transitions, after writing every report
	erg.Go(func() error {
		return c.reporter.Run(ctx)
	})

	docs, err := a.process(ctx, c.scheduler, files)

	cancel()
	if waitErr := erg.Wait(); waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		err = errors.Join(err, waitErr)
	}
	if err != nil {
		return err
	}

	return a.writeExport(ctx, docs, output)
}

func (a *App) process(ctx context.Context, scheduler *pipeline.Scheduler, files []domain.RawFile) ([]domain.Document, error) {
	result, err := scheduler.Submit(ctx, files...)
	if err != nil {
		return nil, err
	}

	if result.Message != "" {
		a.log.WarnContext(ctx, result.Message)
	}

	if err := scheduler.Drained(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for extractions: %w", err)
	}

	docs, err := scheduler.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	for _, doc := range docs {
		log := a.log.With(
			slog.String("filename", doc.FileName),
			slog.String("status", string(doc.Status)),
		)

		if doc.Status == domain.StatusError {
			log.WarnContext(ctx, "document failed", slog.String("err", doc.ErrorMessage))
			continue
		}

		log.InfoContext(ctx, "document processed")
	}

	return docs, nil
}

func (a *App) writeExport(ctx context.Context, docs []domain.Document, output string) error {
	render, ext := export.CSV, "csv"
	if strings.EqualFold(filepath.Ext(output), ".xlsx") {
		render, ext = export.XLSX, "xlsx"
	}

	if output == "" {
		output = export.FileName(time.Now(), ext)
	}

	data, err := render(docs)
	if err != nil {
		return fmt.Errorf("failed to render export: %w", err)
	}

	if data == nil {
		a.log.WarnContext(ctx, "no completed documents, nothing exported")
		return nil
	}

	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	a.log.InfoContext(ctx, "export written",
		slog.String("path", output),
		slog.Int("rows", len(export.Rows(docs))),
	)

	return nil
}

func readFiles(paths []string) ([]domain.RawFile, error) {
	if len(paths) == 0 {
		return nil, errors.New("no files given")
	}

	files := make([]domain.RawFile, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", path, err)
		}

		files = append(files, domain.RawFile{Name: filepath.Base(path), Data: data})
	}

	return files, nil
}
