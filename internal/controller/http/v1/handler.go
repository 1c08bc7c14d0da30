package v1

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kurochkinivan/docuextract/internal/domain"
	"github.com/kurochkinivan/docuextract/internal/export"
	"github.com/kurochkinivan/docuextract/internal/infrastructure/preview"
	"github.com/kurochkinivan/docuextract/internal/pipeline"
)

const (
	filesField      = "files"
	maxUploadMemory = 32 << 20
)

type DocumentService interface {
	Submit(ctx context.Context, files ...domain.RawFile) (*pipeline.IngestResult, error)
	Remove(ctx context.Context, id string) error
	Retry(ctx context.Context, id string) (domain.Document, error)
	Select(ctx context.Context, id string) error
	Selected(ctx context.Context) (domain.Document, bool, error)
	Document(ctx context.Context, id string) (domain.Document, error)
	Documents(ctx context.Context) ([]domain.Document, error)
}

type PreviewStore interface {
	Open(handle domain.PreviewHandle) (preview.Preview, bool)
	URL(handle domain.PreviewHandle) string
}

type DocumentsHandler struct {
	log           *slog.Logger
	service       DocumentService
	previews      PreviewStore
	maxUploadSize int64
	now           func() time.Time
}

func NewDocumentsHandler(log *slog.Logger, service DocumentService, previews PreviewStore, maxUploadSize int64) *DocumentsHandler {
	return &DocumentsHandler{
		log:           log,
		service:       service,
		previews:      previews,
		maxUploadSize: maxUploadSize,
		now:           time.Now,
	}
}

func (h *DocumentsHandler) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, fmt.Sprintf("invalid multipart form: %s", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[filesField]
	if len(headers) == 0 {
		http.Error(w, fmt.Sprintf("no files in %q field", filesField), http.StatusBadRequest)
		return
	}

	files := make([]domain.RawFile, 0, len(headers))
	for _, fh := range headers {
		f, err := readFormFile(fh)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		files = append(files, f)
	}

	result, err := h.service.Submit(r.Context(), files...)
	if err != nil {
		writeError(w, err)
		return
	}

	if result.Message != "" {
		h.log.WarnContext(r.Context(), result.Message)
	}

	resp := UploadResponse{
		Accepted: h.documents(result.Accepted),
		Rejected: result.Rejected,
		Message:  result.Message,
	}
	if resp.Rejected == nil {
		resp.Rejected = []pipeline.Rejection{}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *DocumentsHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	docs, err := h.service.Documents(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	items, pagination := paginate(docs, page, limit)

	writeJSON(w, http.StatusOK, ListDocumentsResponse{
		Documents:  h.documents(items),
		Pagination: pagination,
	})
}

func (h *DocumentsHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Document(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.document(doc))
}

func (h *DocumentsHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentsHandler) RetryDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Retry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.document(doc))
}

func (h *DocumentsHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	doc, ok, err := h.service.Selected(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var resp SelectionResponse
	if ok {
		d := h.document(doc)
		resp.Document = &d
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *DocumentsHandler) PutSelection(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Select(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentsHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	var (
		render      func([]domain.Document) ([]byte, error)
		contentType string
	)

	switch format {
	case "csv":
		render, contentType = export.CSV, "text/csv; charset=utf-8"
	case "xlsx":
		render, contentType = export.XLSX, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		http.Error(w, fmt.Sprintf("unsupported export format %q", format), http.StatusBadRequest)
		return
	}

	docs, err := h.service.Documents(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := render(docs)
	if err != nil {
		writeError(w, err)
		return
	}

	if data == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(h.now(), format)))
	w.Write(data)
}

func (h *DocumentsHandler) GetPreview(w http.ResponseWriter, r *http.Request) {
	p, ok := h.previews.Open(domain.PreviewHandle(chi.URLParam(r, "handle")))
	if !ok {
		http.Error(w, "preview not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", p.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", p.FileName))
	w.Write(p.Data)
}

func (h *DocumentsHandler) document(doc domain.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:           doc.ID,
		FileName:     doc.FileName,
		MimeType:     doc.MimeType,
		Size:         doc.Size,
		Pages:        doc.Pages,
		Status:       doc.Status,
		Result:       doc.Result,
		ErrorMessage: doc.ErrorMessage,
		SubmittedAt:  doc.SubmittedAt,
	}

	if doc.Preview != "" {
		resp.PreviewURL = h.previews.URL(doc.Preview)
	}

	return resp
}

func (h *DocumentsHandler) documents(docs []domain.Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, h.document(doc))
	}

	return out
}

func readFormFile(fh *multipart.FileHeader) (_ domain.RawFile, err error) {
	f, err := fh.Open()
	if err != nil {
		return domain.RawFile{}, fmt.Errorf("failed to open %q: %w", fh.Filename, err)
	}
	defer func() { err = errors.Join(err, f.Close()) }()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.RawFile{}, fmt.Errorf("failed to read %q: %w", fh.Filename, err)
	}

	return domain.RawFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
