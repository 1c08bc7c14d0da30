package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/kurochkinivan/docuextract/internal/domain"
	"github.com/kurochkinivan/docuextract/internal/infrastructure/preview"
	"github.com/kurochkinivan/docuextract/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcome struct {
	result *domain.Extraction
	err    error
}

// fakeExtractor blocks every call until the test resolves it by file name.
type fakeExtractor struct {
	mu       sync.Mutex
	outcomes map[string]chan outcome
	started  chan string
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{
		outcomes: make(map[string]chan outcome),
		started:  make(chan string, 100),
	}
}

func (f *fakeExtractor) channel(name string) chan outcome {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch, ok := f.outcomes[name]
	if !ok {
		ch = make(chan outcome, 1)
		f.outcomes[name] = ch
	}

	return ch
}

func (f *fakeExtractor) Extract(ctx context.Context, doc domain.Document) (*domain.Extraction, error) {
	ch := f.channel(doc.FileName)
	f.started <- doc.FileName

	select {
	case o := <-ch:
		return o.result, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeExtractor) resolve(name string, o outcome) {
	f.channel(name) <- o
}

func (f *fakeExtractor) waitStarted(t *testing.T) string {
	t.Helper()

	select {
	case name := <-f.started:
		return name
	case <-time.After(time.Second):
		t.Fatal("timeout: no extraction was started")
		return ""
	}
}

func sampleExtraction(vendor string) *domain.Extraction {
	return &domain.Extraction{
		DocumentType: domain.DocumentTypeInvoice,
		VendorName:   vendor,
		Currency:     "USD",
		TotalAmount:  12,
		LineItems: []domain.LineItem{
			{Description: "Widget", Quantity: 2, UnitPrice: 5, Total: 10},
		},
	}
}

func pdfFile(name string) domain.RawFile {
	return domain.RawFile{Name: name, Data: pdfBytes}
}

type harness struct {
	scheduler *pipeline.Scheduler
	previews  *preview.Registry
	cancel    context.CancelFunc
	errChan   chan error
}

func startScheduler(
	t *testing.T,
	maxConcurrent int,
	timeout time.Duration,
	extractor pipeline.Extractor,
	transitions chan<- *domain.Transition,
) *harness {
	t.Helper()

	log := slog.New(slog.DiscardHandler)
	previews := preview.NewRegistry(log, "/previews")
	ingestor := pipeline.NewIngestor(log, 1024, previews, nil)

	scheduler := pipeline.NewScheduler(
		log,
		maxConcurrent,
		timeout,
		pipeline.NewStore(),
		ingestor,
		extractor,
		previews,
		transitions,
	)

	ctx, cancel := context.WithCancel(context.Background())

	h := &harness{
		scheduler: scheduler,
		previews:  previews,
		cancel:    cancel,
		errChan:   make(chan error, 1),
	}

	go func() {
		h.errChan <- scheduler.Run(ctx)
	}()

	t.Cleanup(h.stop)

	return h
}

func (h *harness) stop() {
	h.cancel()
	<-h.errChan
}

func statuses(t *testing.T, s *pipeline.Scheduler) map[string]domain.Status {
	t.Helper()

	docs, err := s.Documents(context.Background())
	if err != nil {
		t.Errorf("failed to list documents: %v", err)
		return nil
	}

	out := make(map[string]domain.Status, len(docs))
	for _, doc := range docs {
		out[doc.FileName] = doc.Status
	}

	return out
}

func TestScheduler_AdmitsUpToLimit(t *testing.T) {
	t.Parallel()

	ext := newFakeExtractor()
	h := startScheduler(t, 2, 0, ext, nil)
	ctx := context.Background()

	result, err := h.scheduler.Submit(ctx, pdfFile("F1.pdf"), pdfFile("F2.pdf"), pdfFile("F3.pdf"))
	require.NoError(t, err)
	require.Len(t, result.Accepted, 3)

	assert.Equal(t, map[string]domain.Status{
		"F1.pdf": domain.StatusProcessing,
		"F2.pdf": domain.StatusProcessing,
		"F3.pdf": domain.StatusQueued,
	}, statuses(t, h.scheduler))

	ext.resolve("F1.pdf", outcome{result: sampleExtraction("Acme")})

	require.Eventually(t, func() bool {
		st := statuses(t, h.scheduler)
		return st["F1.pdf"] == domain.StatusComplete && st["F3.pdf"] == domain.StatusProcessing
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, domain.StatusProcessing, statuses(t, h.scheduler)["F2.pdf"])

	doc, err := h.scheduler.Document(ctx, result.Accepted[0].ID)
	require.NoError(t, err)
	require.NotNil(t, doc.Result)
	assert.Equal(t, "Acme", doc.Result.VendorName)
}

func TestScheduler_SubmitWithRejection(t *testing.T) {
	t.Parallel()

	h := startScheduler(t, 2, 0, newFakeExtractor(), nil)
	ctx := context.Background()

	result, err := h.scheduler.Submit(ctx,
		domain.RawFile{Name: "huge.pdf", Data: make([]byte, 2048)},
		pdfFile("ok.pdf"),
	)
	require.NoError(t, err)

	require.Len(t, result.Rejected, 1)
	assert.Equal(t, "huge.pdf", result.Rejected[0].FileName)
	assert.NotEmpty(t, result.Message)

	require.Len(t, result.Accepted, 1)
	assert.Equal(t, "ok.pdf", result.Accepted[0].FileName)
	assert.Equal(t, domain.StatusQueued, result.Accepted[0].Status)

	docs, err := h.scheduler.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "ok.pdf", docs[0].FileName)
}

func TestScheduler_FailureAndRetry(t *testing.T) {
	t.Parallel()

	ext := newFakeExtractor()
	h := startScheduler(t, 2, 0, ext, nil)
	ctx := context.Background()

	result, err := h.scheduler.Submit(ctx, pdfFile("F1.pdf"))
	require.NoError(t, err)
	id := result.Accepted[0].ID

	assert.Equal(t, "F1.pdf", ext.waitStarted(t))
	ext.resolve("F1.pdf", outcome{err: errors.New("timeout")})

	require.Eventually(t, func() bool {
		return statuses(t, h.scheduler)["F1.pdf"] == domain.StatusError
	}, time.Second, 5*time.Millisecond)

	doc, err := h.scheduler.Document(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "timeout", doc.ErrorMessage)
	assert.Nil(t, doc.Result)

	requeued, err := h.scheduler.Retry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, requeued.Status)
	assert.Empty(t, requeued.ErrorMessage)

	assert.Equal(t, "F1.pdf", ext.waitStarted(t), "retried document must be admitted again")
	assert.Equal(t, domain.StatusProcessing, statuses(t, h.scheduler)["F1.pdf"])

	ext.resolve("F1.pdf", outcome{result: sampleExtraction("Acme")})

	require.Eventually(t, func() bool {
		return statuses(t, h.scheduler)["F1.pdf"] == domain.StatusComplete
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_RetryRequiresError(t *testing.T) {
	t.Parallel()

	ext := newFakeExtractor()
	h := startScheduler(t, 1, 0, ext, nil)
	ctx := context.Background()

	result, err := h.scheduler.Submit(ctx, pdfFile("F1.pdf"), pdfFile("F2.pdf"))
	require.NoError(t, err)

	_, err = h.scheduler.Retry(ctx, result.Accepted[0].ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition, "processing document")

	_, err = h.scheduler.Retry(ctx, result.Accepted[1].ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition, "queued document")

	_, err = h.scheduler.Retry(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestScheduler_RetriedDocumentJoinsBackOfQueue(t *testing.T) {
	t.Parallel()

	ext := newFakeExtractor()
	h := startScheduler(t, 1, 0, ext, nil)
	ctx := context.Background()

	result, err := h.scheduler.Submit(ctx, pdfFile("F1.pdf"), pdfFile("F2.pdf"), pdfFile("F3.pdf"))
	require.NoError(t, err)

	assert.Equal(t, "F1.pdf", ext.waitStarted(t))
	ext.resolve("F1.pdf", outcome{err: errors.New("boom")})

	assert.Equal(t, "F2.pdf", ext.waitStarted(t))

	require.Eventually(t, func() bool {
		return statuses(t, h.scheduler)["F1.pdf"] == domain.StatusError
	}, time.Second, 5*time.Millisecond)

	_, err = h.scheduler.Retry(ctx, result.Accepted[0].ID)
	require.NoError(t, err)

	ext.resolve("F2.pdf", outcome{result: sampleExtraction("B")})
	assert.Equal(t, "F3.pdf", ext.waitStarted(t))

	ext.resolve("F3.pdf", outcome{result: sampleExtraction("C")})
	assert.Equal(t, "F1.pdf", ext.waitStarted(t))

	ext.resolve("F1.pdf", outcome{result: sampleExtraction("A")})
	require.NoError(t, h.scheduler.Drained(ctx))

	for name, st := range statuses(t, h.scheduler) {
		assert.Equal(t, domain.StatusComplete, st, name)
	}
}

func TestScheduler_ConcurrencyBoundAndTransitionOrder(t *testing.T) {
	t.Parallel()

	const files = 7

	for limit := 1; limit <= 4; limit++ {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			t.Parallel()

			transitions := make(chan *domain.Transition, 256)
			ext := newFakeExtractor()
			h := startScheduler(t, limit, 0, ext, transitions)
			ctx := context.Background()

			raw := make([]domain.RawFile, 0, files)
			for i := range files {
				raw = append(raw, pdfFile(fmt.Sprintf("F%d.pdf", i+1)))
			}

			_, err := h.scheduler.Submit(ctx, raw...)
			require.NoError(t, err)

			for i := range files {
				name := ext.waitStarted(t)
				if i%3 == 2 {
					ext.resolve(name, outcome{err: errors.New("unreadable")})
				} else {
					ext.resolve(name, outcome{result: sampleExtraction(name)})
				}
			}

			require.NoError(t, h.scheduler.Drained(ctx))

			docs, err := h.scheduler.Documents(ctx)
			require.NoError(t, err)
			names := make(map[string]string, len(docs))
			for _, doc := range docs {
				names[doc.ID] = doc.FileName
			}

			var (
				processing int
				admitted   []string
				sequences  = make(map[string][]domain.Status)
			)

			for len(transitions) > 0 {
				tr := <-transitions

				if tr.To == domain.StatusProcessing {
					processing++
					admitted = append(admitted, names[tr.Document.ID])
				}
				if tr.From == domain.StatusProcessing {
					processing--
				}
				require.LessOrEqual(t, processing, limit)

				if tr.To == domain.StatusComplete {
					require.NotNil(t, tr.Document.Result, "complete without result")
				}

				sequences[tr.Document.ID] = append(sequences[tr.Document.ID], tr.To)
			}

			expectedOrder := make([]string, 0, files)
			for _, f := range raw {
				expectedOrder = append(expectedOrder, f.Name)
			}
			assert.Equal(t, expectedOrder, admitted, "admission must follow insertion order")

			require.Len(t, sequences, files)
			for id, seq := range sequences {
				require.Len(t, seq, 3, names[id])
				assert.Equal(t, domain.StatusQueued, seq[0])
				assert.Equal(t, domain.StatusProcessing, seq[1])
				assert.True(t, seq[2].Terminal())
			}
		})
	}
}

func TestScheduler_RemoveProcessingDiscardsOutcome(t *testing.T) {
	t.Parallel()

	ext := newFakeExtractor()
	h := startScheduler(t, 2, 0, ext, nil)
	ctx := context.Background()

	result, err := h.scheduler.Submit(ctx, pdfFile("F1.pdf"))
	require.NoError(t, err)
	id := result.Accepted[0].ID

	assert.Equal(t, "F1.pdf", ext.waitStarted(t))
	assert.Equal(t, 1, h.previews.Len())

	require.NoError(t, h.scheduler.Remove(ctx, id))
	assert.Zero(t, h.previews.Len(), "preview must be released on removal")

	_, ok, err := h.scheduler.Selected(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "removing the selected document clears selection")

	ext.resolve("F1.pdf", outcome{result: sampleExtraction("Acme")})

	assert.Never(t, func() bool {
		docs, err := h.scheduler.Documents(ctx)
		return err != nil || len(docs) != 0
	}, 50*time.Millisecond, 5*time.Millisecond)

	_, err = h.scheduler.Document(ctx, id)
	require.ErrorIs(t, err, domain.ErrNotFound)

	err = h.scheduler.Remove(ctx, id)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestScheduler_Selection(t *testing.T) {
	t.Parallel()

	h := startScheduler(t, 1, 0, newFakeExtractor(), nil)
	ctx := context.Background()

	_, ok, err := h.scheduler.Selected(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	result, err := h.scheduler.Submit(ctx, pdfFile("a.pdf"), pdfFile("b.pdf"), pdfFile("c.pdf"))
	require.NoError(t, err)
	a, b, c := result.Accepted[0].ID, result.Accepted[1].ID, result.Accepted[2].ID

	selected, ok, err := h.scheduler.Selected(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a, selected.ID, "first accepted document is selected")

	require.NoError(t, h.scheduler.Select(ctx, "missing"))

	_, ok, err = h.scheduler.Selected(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "unknown id leaves nothing selected")

	require.NoError(t, h.scheduler.Select(ctx, b))

	selected, _, err = h.scheduler.Selected(ctx)
	require.NoError(t, err)
	assert.Equal(t, b, selected.ID)

	require.NoError(t, h.scheduler.Remove(ctx, c))

	selected, _, err = h.scheduler.Selected(ctx)
	require.NoError(t, err)
	assert.Equal(t, b, selected.ID, "removing another document keeps selection")

	require.NoError(t, h.scheduler.Remove(ctx, b))

	_, ok, err = h.scheduler.Selected(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	result, err = h.scheduler.Submit(ctx, pdfFile("d.pdf"))
	require.NoError(t, err)

	selected, ok, err = h.scheduler.Selected(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result.Accepted[0].ID, selected.ID)
}

func TestScheduler_Timeout(t *testing.T) {
	t.Parallel()

	ext := newFakeExtractor()
	h := startScheduler(t, 1, 10*time.Millisecond, ext, nil)
	ctx := context.Background()

	result, err := h.scheduler.Submit(ctx, pdfFile("slow.pdf"))
	require.NoError(t, err)

	require.NoError(t, h.scheduler.Drained(ctx))

	doc, err := h.scheduler.Document(ctx, result.Accepted[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, doc.Status)
	assert.Equal(t, "extraction timed out after 10ms", doc.ErrorMessage)
}

type panickingExtractor struct{}

func (panickingExtractor) Extract(context.Context, domain.Document) (*domain.Extraction, error) {
	panic("bad response")
}

func TestScheduler_ExtractorPanicBecomesError(t *testing.T) {
	t.Parallel()

	h := startScheduler(t, 1, 0, panickingExtractor{}, nil)
	ctx := context.Background()

	_, err := h.scheduler.Submit(ctx, pdfFile("a.pdf"), pdfFile("b.pdf"))
	require.NoError(t, err)

	require.NoError(t, h.scheduler.Drained(ctx))

	for name, st := range statuses(t, h.scheduler) {
		assert.Equal(t, domain.StatusError, st, name)
	}
}

func TestScheduler_TeardownReleasesPreviews(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.DiscardHandler)
	previews := preview.NewRegistry(log, "/previews")
	ext := newFakeExtractor()

	scheduler := pipeline.NewScheduler(
		log, 1, 0, pipeline.NewStore(),
		pipeline.NewIngestor(log, 1024, previews, nil),
		ext, previews, nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- scheduler.Run(ctx)
	}()

	_, err := scheduler.Submit(ctx, pdfFile("a.pdf"), pdfFile("b.pdf"))
	require.NoError(t, err)
	assert.Equal(t, 2, previews.Len())

	cancel()

	select {
	case err := <-errChan:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("timeout: scheduler did not stop")
	}

	assert.Zero(t, previews.Len())

	_, err = scheduler.Documents(context.Background())
	require.ErrorIs(t, err, pipeline.ErrSchedulerStopped)
}
