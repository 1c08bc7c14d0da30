package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kurochkinivan/docuextract/internal/app"
	appconfig "github.com/kurochkinivan/docuextract/internal/config"
	"github.com/kurochkinivan/docuextract/internal/pipeline"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"
)

const envPrefix = "DOCUEXTRACT_"

var version = "dev"

func cmd() *cli.Command {
	return &cli.Command{
		Name:    "docuextract",
		Usage:   "Financial document extraction queue",
		Version: version,
		Commands: []*cli.Command{
			serveCmd(),
			extractCmd(),
		},
	}
}

func serveCmd() *cli.Command {
	var config string

	flags := append(commonFlags(&config), serveFlags(&config)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API and watch a directory for new documents",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log, err := loggerFrom(ctx)
			if err != nil {
				return err
			}

			return app.New(log, appconfig.Load(cmd)).Run(ctx)
		},
	}
}

func extractCmd() *cli.Command {
	var config string

	flags := append(commonFlags(&config),
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the export to `FILE` (.csv or .xlsx), defaults to extracted_data_<date>.csv",
		},
	)

	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract the given documents once and export the results",
		ArgsUsage: "FILE...",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log, err := loggerFrom(ctx)
			if err != nil {
				return err
			}

			if cmd.NArg() == 0 {
				return errors.New("at least one file is required")
			}

			return app.New(log, appconfig.Load(cmd)).Extract(ctx, cmd.Args().Slice(), cmd.String("output"))
		},
	}
}

func loggerFrom(ctx context.Context) (*slog.Logger, error) {
	log, ok := ctx.Value(loggerKey{}).(*slog.Logger)
	if !ok {
		return nil, errors.New("failed to get logger from context")
	}

	return log, nil
}

func sources(env, key string, config *string) cli.ValueSourceChain {
	return cli.NewValueSourceChain(
		cli.EnvVar(envPrefix+env),
		yaml.YAML(key, altsrc.NewStringPtrSourcer(config)),
	)
}

func commonFlags(config *string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Validator:   validateConfig,
			Usage:       "Load configuration from `FILE`",
			Destination: config,
		},
		&cli.StringFlag{
			Name:     "extraction-url",
			Aliases:  []string{"u"},
			Usage:    "Set extraction service base URL",
			Value:    "http://localhost:8000",
			Sources:  sources("EXTRACTION_URL", "extraction.url", config),
			Required: true,
		},
		&cli.DurationFlag{
			Name:    "extraction-timeout",
			Usage:   "Set per-document extraction timeout",
			Value:   2 * time.Minute,
			Sources: sources("EXTRACTION_TIMEOUT", "extraction.timeout", config),
		},
		&cli.IntFlag{
			Name:    "health-retries",
			Usage:   "Set number of extraction service health check retries",
			Value:   3,
			Sources: sources("HEALTH_RETRIES", "extraction.health_retries", config),
		},
		&cli.DurationFlag{
			Name:    "health-retry-delay",
			Usage:   "Set delay between extraction service health checks",
			Value:   2 * time.Second,
			Sources: sources("HEALTH_RETRY_DELAY", "extraction.health_retry_delay", config),
		},
		&cli.IntFlag{
			Name:    "max-concurrent",
			Aliases: []string{"n"},
			Usage:   "Set maximum number of documents processed at once",
			Value:   pipeline.DefaultMaxConcurrent,
			Sources: sources("MAX_CONCURRENT", "app.max_concurrent", config),
			Validator: func(n int) error {
				if n < 1 {
					return fmt.Errorf("max-concurrent must be at least 1, got %d", n)
				}
				return nil
			},
		},
		&cli.Int64Flag{
			Name:    "max-file-size",
			Usage:   "Set maximum accepted file size in bytes",
			Value:   pipeline.DefaultMaxFileSize,
			Sources: sources("MAX_FILE_SIZE", "app.max_file_size", config),
		},
		&cli.StringFlag{
			Name:      "reports-dir",
			Aliases:   []string{"r"},
			Usage:     "Set directory to write PDF reports to, reports are disabled when empty",
			Sources:   sources("REPORTS_DIR", "app.reports_dir", config),
			Validator: validateDirectory,
		},
	}
}

func serveFlags(config *string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:      "watch-dir",
			Aliases:   []string{"w"},
			Usage:     "Set directory to watch for new files, watching is disabled when empty",
			Sources:   sources("WATCH_DIR", "app.watch_dir", config),
			Validator: validateDirectory,
		},
		&cli.DurationFlag{
			Name:    "scan-interval",
			Aliases: []string{"s"},
			Value:   3 * time.Second,
			Usage:   "Set directory scan interval",
			Sources: sources("SCAN_INTERVAL", "app.scan_interval", config),
		},
		&cli.StringFlag{
			Name:    "http-host",
			Usage:   "Set HTTP server host",
			Value:   "localhost",
			Sources: sources("HTTP_HOST", "http.host", config),
		},
		&cli.StringFlag{
			Name:    "http-port",
			Usage:   "Set HTTP server port",
			Value:   "8080",
			Sources: sources("HTTP_PORT", "http.port", config),
		},
		&cli.DurationFlag{
			Name:    "http-idle-timeout",
			Usage:   "Set HTTP server idle timeout",
			Value:   1 * time.Minute,
			Sources: sources("HTTP_IDLE_TIMEOUT", "http.idle_timeout", config),
		},
		&cli.DurationFlag{
			Name:    "http-read-timeout",
			Usage:   "Set HTTP server read timeout",
			Value:   15 * time.Second,
			Sources: sources("HTTP_READ_TIMEOUT", "http.read_timeout", config),
		},
		&cli.DurationFlag{
			Name:    "http-write-timeout",
			Usage:   "Set HTTP server write timeout",
			Value:   15 * time.Second,
			Sources: sources("HTTP_WRITE_TIMEOUT", "http.write_timeout", config),
		},
		&cli.Int64Flag{
			Name:    "http-max-upload-size",
			Usage:   "Set maximum size of one upload request in bytes",
			Value:   100 << 20,
			Sources: sources("HTTP_MAX_UPLOAD_SIZE", "http.max_upload_size", config),
		},
	}
}

func validateDirectory(dir string) error {
	if dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%q does not exist", dir)
		}
		return fmt.Errorf("failed to stat %q: %w", dir, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%q is not a directory", dir)
	}

	return nil
}

func validateConfig(config string) error {
	info, err := os.Stat(config)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%q does not exist", config)
		}
		return fmt.Errorf("failed to stat %q: %w", config, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%q is a directory, not a file", config)
	}

	ext := filepath.Ext(info.Name())
	if ext != ".yml" && ext != ".yaml" {
		return fmt.Errorf("invalid extension %q", config)
	}

	return nil
}
