package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/kurochkinivan/docuextract/internal/domain"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const maxResponseSize = 4 << 20

type extractResponse struct {
	ID         string          `json:"id"`
	Data       json.RawMessage `json:"data"`
	Confidence float64         `json:"confidence"`
	Provider   string          `json:"provider"`
	Duplicate  bool            `json:"duplicate"`
}

type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

type HealthStatus struct {
	Status          string `json:"status"`
	OllamaAvailable bool   `json:"ollama_available"`
}

// Client talks to the extraction service over HTTP. Deadlines come from the caller's
// context.
type Client struct {
	log        *slog.Logger
	baseURL    string
	httpClient *http.Client
	schema     *jsonschema.Schema
}

func New(log *slog.Logger, baseURL string, httpClient *http.Client) (*Client, error) {
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}

	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		log:        log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		schema:     schema,
	}, nil
}

func (c *Client) Extract(ctx context.Context, doc domain.Document) (*domain.Extraction, error) {
	body, contentType, err := multipartBody(doc)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/extract", body)
	if err != nil {
		return nil, createRequestError(err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	c.log.DebugContext(ctx, "sending extraction request",
		slog.String("document_id", doc.ID),
		slog.String("filename", doc.FileName),
		slog.Int64("size", doc.Size),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, doRequestError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Detail: detail(raw)}
	}

	var envelope extractResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, decodeResponseError(err)
	}

	result, err := c.decodeData(envelope.Data)
	if err != nil {
		return nil, err
	}

	result.Confidence = envelope.Confidence
	result.Provider = envelope.Provider
	result.Duplicate = envelope.Duplicate

	c.log.DebugContext(ctx, "extraction response received",
		slog.String("document_id", doc.ID),
		slog.String("extraction_id", envelope.ID),
		slog.String("provider", envelope.Provider),
		slog.Bool("duplicate", envelope.Duplicate),
	)

	return result, nil
}

// multipartBody carries the payload in the "file" form field the service reads uploads from.
func multipartBody(doc domain.Document) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     "file",
		"filename": doc.FileName,
	}))
	header.Set("Content-Type", doc.MimeType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart part: %w", err)
	}

	if _, err := part.Write(doc.Payload); err != nil {
		return nil, "", fmt.Errorf("failed to write multipart part: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

func (c *Client) decodeData(data json.RawMessage) (*domain.Extraction, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, ErrNoData
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, decodeResponseError(err)
	}

	if err := c.schema.Validate(v); err != nil {
		return nil, fmt.Errorf("malformed extraction data: %w", err)
	}

	var result domain.Extraction
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, decodeResponseError(err)
	}

	result.Normalize()

	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("malformed extraction data: %w", err)
	}

	return &result, nil
}

func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return nil, createRequestError(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, doRequestError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		return nil, &ServiceError{StatusCode: resp.StatusCode, Detail: detail(raw)}
	}

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, decodeResponseError(err)
	}

	return &status, nil
}

// detail extracts the FastAPI {"detail": "..."} message. Validation errors carry a list
// there, which is returned as raw JSON.
func detail(raw []byte) string {
	var e errorResponse
	if err := json.Unmarshal(raw, &e); err != nil || len(e.Detail) == 0 {
		return ""
	}

	var msg string
	if err := json.Unmarshal(e.Detail, &msg); err == nil {
		return msg
	}

	return string(e.Detail)
}

// Ping succeeds when the service reports an "ok" status.
func (c *Client) Ping(ctx context.Context) error {
	status, err := c.Health(ctx)
	if err != nil {
		return err
	}

	if status.Status != "ok" {
		return fmt.Errorf("extraction service status is %q", status.Status)
	}

	return nil
}
