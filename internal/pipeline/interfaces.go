package pipeline

import (
	"context"

	"github.com/kurochkinivan/docuextract/internal/domain"
)

type Extractor interface {
	Extract(ctx context.Context, doc domain.Document) (*domain.Extraction, error)
}

type PreviewRegistry interface {
	Acquire(fileName, mimeType string, data []byte) (domain.PreviewHandle, error)
	Release(handle domain.PreviewHandle) error
}

type PageCounter interface {
	CountPages(data []byte) (int, error)
}

type Submitter interface {
	Submit(ctx context.Context, files ...domain.RawFile) (*IngestResult, error)
}

type ReportGenerator interface {
	GenerateReport(outputPath string, doc domain.Document) error
}
