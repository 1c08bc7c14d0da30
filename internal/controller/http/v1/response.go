package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/kurochkinivan/docuextract/internal/domain"
	"github.com/kurochkinivan/docuextract/internal/pipeline"
)

type DocumentResponse struct {
	ID           string             `json:"id"`
	FileName     string             `json:"file_name"`
	MimeType     string             `json:"mime_type"`
	Size         int64              `json:"size"`
	Pages        int                `json:"pages"`
	Status       domain.Status      `json:"status"`
	PreviewURL   string             `json:"preview_url,omitempty"`
	Result       *domain.Extraction `json:"result,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
	SubmittedAt  time.Time          `json:"submitted_at"`
}

type ListDocumentsResponse struct {
	Documents  []DocumentResponse `json:"documents"`
	Pagination Pagination         `json:"pagination"`
}

type UploadResponse struct {
	Accepted []DocumentResponse   `json:"accepted"`
	Rejected []pipeline.Rejection `json:"rejected"`
	Message  string               `json:"message,omitempty"`
}

type SelectionResponse struct {
	Document *DocumentResponse `json:"document"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, pipeline.ErrSchedulerStopped):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
