package config

import (
	"time"

	"github.com/urfave/cli/v3"
)

type Config struct {
	App
	Extraction
	HTTP
}

type App struct {
	WatchDirectory        string
	ReportsDirectory      string
	DirectoryScanInterval time.Duration
	MaxConcurrent         int
	MaxFileSize           int64
}

type Extraction struct {
	URL              string
	Timeout          time.Duration
	HealthRetries    int
	HealthRetryDelay time.Duration
}

type HTTP struct {
	Host          string
	Port          string
	IdleTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxUploadSize int64
}

func Load(cmd *cli.Command) *Config {
	return &Config{
		App: App{
			WatchDirectory:        cmd.String("watch-dir"),
			ReportsDirectory:      cmd.String("reports-dir"),
			DirectoryScanInterval: cmd.Duration("scan-interval"),
			MaxConcurrent:         cmd.Int("max-concurrent"),
			MaxFileSize:           cmd.Int64("max-file-size"),
		},
		Extraction: Extraction{
			URL:              cmd.String("extraction-url"),
			Timeout:          cmd.Duration("extraction-timeout"),
			HealthRetries:    cmd.Int("health-retries"),
			HealthRetryDelay: cmd.Duration("health-retry-delay"),
		},
		HTTP: HTTP{
			Host:          cmd.String("http-host"),
			Port:          cmd.String("http-port"),
			IdleTimeout:   cmd.Duration("http-idle-timeout"),
			ReadTimeout:   cmd.Duration("http-read-timeout"),
			WriteTimeout:  cmd.Duration("http-write-timeout"),
			MaxUploadSize: cmd.Int64("http-max-upload-size"),
		},
	}
}
