package preview

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/kurochkinivan/docuextract/internal/domain"
)

var ErrReleased = errors.New("preview already released")

type Preview struct {
	FileName string
	MimeType string
	Data     []byte
}

// Registry hands out revocable preview handles. Each handle is released exactly once,
// either explicitly or by Close.
type Registry struct {
	log      *slog.Logger
	basePath string

	mu       sync.RWMutex
	previews map[domain.PreviewHandle]Preview
	closed   bool
}

func NewRegistry(log *slog.Logger, basePath string) *Registry {
	return &Registry{
		log:      log,
		basePath: basePath,
		previews: make(map[domain.PreviewHandle]Preview),
	}
}

func (r *Registry) Acquire(fileName, mimeType string, data []byte) (domain.PreviewHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", errors.New("preview registry is closed")
	}

	handle := domain.PreviewHandle(uuid.NewString())
	r.previews[handle] = Preview{
		FileName: fileName,
		MimeType: mimeType,
		Data:     data,
	}

	return handle, nil
}

func (r *Registry) Open(handle domain.PreviewHandle) (Preview, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.previews[handle]

	return p, ok
}

func (r *Registry) Release(handle domain.PreviewHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.previews[handle]; !ok {
		return fmt.Errorf("%w: %s", ErrReleased, handle)
	}

	delete(r.previews, handle)

	return nil
}

// URL is the path under which the HTTP API serves a preview.
func (r *Registry) URL(handle domain.PreviewHandle) string {
	return r.basePath + "/" + string(handle)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.previews)
}

// Close releases every preview still registered.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	if n := len(r.previews); n > 0 {
		r.log.Debug("releasing remaining previews", slog.Int("count", n))
	}

	clear(r.previews)
}
