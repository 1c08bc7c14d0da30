package pipeline

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kurochkinivan/docuextract/internal/domain"
)

const DefaultMaxFileSize = 10 << 20

type Rejection struct {
	FileName string `json:"file_name"`
	Reason   string `json:"reason"`
}

type IngestResult struct {
	Accepted []domain.Document `json:"accepted"`
	Rejected []Rejection       `json:"rejected"`
	Message  string            `json:"message,omitempty"`
}

// Ingestor validates raw files and turns the acceptable ones into queued documents.
type Ingestor struct {
	log         *slog.Logger
	maxFileSize int64
	previews    PreviewRegistry
	pages       PageCounter
	now         func() time.Time
}

func NewIngestor(log *slog.Logger, maxFileSize int64, previews PreviewRegistry, pages PageCounter) *Ingestor {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	return &Ingestor{
		log:         log,
		maxFileSize: maxFileSize,
		previews:    previews,
		pages:       pages,
		now:         time.Now,
	}
}

// Ingest never fails the whole batch: every file is either accepted or rejected on its own.
func (i *Ingestor) Ingest(files []domain.RawFile) *IngestResult {
	result := &IngestResult{
		Accepted: make([]domain.Document, 0, len(files)),
		Rejected: []Rejection{},
	}

	for _, f := range files {
		mimeType := DetectMimeType(f)

		if reason := i.check(f, mimeType); reason != "" {
			i.log.Debug("file rejected",
				slog.String("filename", f.Name),
				slog.String("mime_type", mimeType),
				slog.String("reason", reason),
			)

			result.Rejected = append(result.Rejected, Rejection{FileName: f.Name, Reason: reason})
			continue
		}

		result.Accepted = append(result.Accepted, i.newDocument(f, mimeType))
	}

	result.Message = rejectionMessage(result.Rejected)

	return result
}

func (i *Ingestor) check(f domain.RawFile, mimeType string) string {
	if !domain.IsSupportedMimeType(mimeType) {
		if mimeType == "" {
			mimeType = "unknown"
		}
		return fmt.Sprintf("unsupported file type (%s)", mimeType)
	}

	if len(f.Data) == 0 {
		return "file is empty"
	}

	if int64(len(f.Data)) > i.maxFileSize {
		return fmt.Sprintf("file exceeds %s limit", formatSize(i.maxFileSize))
	}

	return ""
}

func (i *Ingestor) newDocument(f domain.RawFile, mimeType string) domain.Document {
	doc := domain.Document{
		ID:          uuid.NewString(),
		FileName:    f.Name,
		MimeType:    mimeType,
		Size:        int64(len(f.Data)),
		Pages:       1,
		Payload:     f.Data,
		Status:      domain.StatusQueued,
		SubmittedAt: i.now(),
	}

	log := i.log.With(slog.String("document_id", doc.ID), slog.String("filename", doc.FileName))

	if doc.IsPDF() {
		doc.Pages = 0

		if i.pages != nil {
			n, err := i.pages.CountPages(f.Data)
			if err != nil {
				log.Warn("failed to count pdf pages", slog.String("err", err.Error()))
			} else {
				doc.Pages = n
			}
		}
	}

	handle, err := i.previews.Acquire(doc.FileName, doc.MimeType, doc.Payload)
	if err != nil {
		log.Warn("failed to acquire preview", slog.String("err", err.Error()))
	} else {
		doc.Preview = handle
	}

	return doc
}

// DetectMimeType prefers the declared content type, then the extension, then the content.
func DetectMimeType(f domain.RawFile) string {
	if mt := domain.NormalizeMimeType(f.ContentType); mt != "" && mt != "application/octet-stream" {
		return mt
	}

	if mt := domain.MimeTypeByExtension(f.Name); mt != "" {
		return mt
	}

	if len(f.Data) == 0 {
		return ""
	}

	return domain.NormalizeMimeType(http.DetectContentType(f.Data))
}

func rejectionMessage(rejected []Rejection) string {
	if len(rejected) == 0 {
		return ""
	}

	parts := make([]string, 0, len(rejected))
	for _, r := range rejected {
		parts = append(parts, r.FileName+": "+r.Reason)
	}

	return fmt.Sprintf("%d file(s) rejected: %s", len(rejected), strings.Join(parts, "; "))
}

func formatSize(n int64) string {
	const mb = 1 << 20

	if n%mb == 0 {
		return fmt.Sprintf("%d MB", n/mb)
	}

	return fmt.Sprintf("%d bytes", n)
}
