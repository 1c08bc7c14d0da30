package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kurochkinivan/docuextract/internal/domain"
)

const DefaultMaxConcurrent = 2

var ErrSchedulerStopped = errors.New("scheduler stopped")

type command struct {
	apply func(ctx context.Context)
	done  chan struct{}
}

type completion struct {
	id     string
	result *domain.Extraction
	err    error
}

// Scheduler owns the record set. Every mutation, whether requested by a caller or caused by
// a finished extraction, is a message handled by the single Run loop, and admission is
// re-evaluated after each of them.
type Scheduler struct {
	log           *slog.Logger
	maxConcurrent int
	timeout       time.Duration
	ingestor      *Ingestor
	extractor     Extractor
	previews      PreviewRegistry
	store         *Store
	transitions   chan<- *domain.Transition

	commands    chan command
	completions chan completion
	stopped     chan struct{}
	stopOnce    sync.Once
	inflight    sync.WaitGroup
	waiters     []chan struct{}
}

func NewScheduler(
	log *slog.Logger,
	maxConcurrent int,
	timeout time.Duration,
	store *Store,
	ingestor *Ingestor,
	extractor Extractor,
	previews PreviewRegistry,
	transitions chan<- *domain.Transition,
) *Scheduler {
	if maxConcurrent < 1 {
		maxConcurrent = DefaultMaxConcurrent
	}

	return &Scheduler{
		log:           log,
		maxConcurrent: maxConcurrent,
		timeout:       timeout,
		ingestor:      ingestor,
		extractor:     extractor,
		previews:      previews,
		store:         store,
		transitions:   transitions,
		commands:      make(chan command),
		completions:   make(chan completion),
		stopped:       make(chan struct{}),
	}
}

func (s *Scheduler) Run(ctx context.Context) error {
	defer s.teardown()

	for {
		select {
		case cmd := <-s.commands:
			cmd.apply(ctx)
			s.evaluate(ctx)
			close(cmd.done)

		case c := <-s.completions:
			s.finish(ctx, c)
			s.evaluate(ctx)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Scheduler) Submit(ctx context.Context, files ...domain.RawFile) (*IngestResult, error) {
	result := s.ingestor.Ingest(files)
	if len(result.Accepted) == 0 {
		return result, nil
	}

	var (
		stored    []domain.Document
		appendErr error
	)
	err := s.do(ctx, func(ctx context.Context) {
		stored, appendErr = s.store.Append(result.Accepted...)
		if appendErr != nil {
			return
		}

		for _, doc := range stored {
			s.publish(ctx, "", doc)
		}
	})
	if err == nil {
		err = appendErr
	}

	if err != nil {
		for _, doc := range result.Accepted {
			s.releasePreview(doc)
		}
		return nil, fmt.Errorf("failed to submit documents: %w", err)
	}

	result.Accepted = stored

	s.log.InfoContext(ctx, "documents submitted",
		slog.Int("accepted", len(result.Accepted)),
		slog.Int("rejected", len(result.Rejected)),
	)

	return result, nil
}

// Remove drops a document in any status and releases its preview. An extraction still in
// flight for it is not cancelled; its outcome is discarded when it arrives.
func (s *Scheduler) Remove(ctx context.Context, id string) error {
	var removeErr error
	err := s.do(ctx, func(ctx context.Context) {
		var doc domain.Document

		doc, removeErr = s.store.Remove(id)
		if removeErr != nil {
			return
		}

		s.releasePreview(doc)
		s.log.InfoContext(ctx, "document removed",
			slog.String("document_id", id),
			slog.String("status", string(doc.Status)),
		)
	})
	if err != nil {
		return err
	}

	return removeErr
}

func (s *Scheduler) Retry(ctx context.Context, id string) (domain.Document, error) {
	var (
		doc      domain.Document
		retryErr error
	)
	err := s.do(ctx, func(ctx context.Context) {
		current, ok := s.store.Get(id)
		if !ok {
			retryErr = fmt.Errorf("%w: %s", domain.ErrNotFound, id)
			return
		}

		doc, retryErr = current.Retry(s.store.NextSeq())
		if retryErr != nil {
			return
		}

		retryErr = s.store.Replace(doc)
		if retryErr != nil {
			return
		}

		s.log.InfoContext(ctx, "document requeued", slog.String("document_id", id))
		s.publish(ctx, current.Status, doc)
	})
	if err != nil {
		return domain.Document{}, err
	}

	return doc.Snapshot(), retryErr
}

func (s *Scheduler) Select(ctx context.Context, id string) error {
	return s.do(ctx, func(context.Context) {
		s.store.Select(id)
	})
}

func (s *Scheduler) Selected(ctx context.Context) (domain.Document, bool, error) {
	var (
		doc domain.Document
		ok  bool
	)
	err := s.do(ctx, func(context.Context) {
		doc, ok = s.store.Selected()
	})

	return doc, ok, err
}

func (s *Scheduler) Document(ctx context.Context, id string) (domain.Document, error) {
	var (
		doc domain.Document
		ok  bool
	)
	err := s.do(ctx, func(context.Context) {
		doc, ok = s.store.Get(id)
		doc = doc.Snapshot()
	})
	if err != nil {
		return domain.Document{}, err
	}

	if !ok {
		return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	return doc, nil
}

func (s *Scheduler) Documents(ctx context.Context) ([]domain.Document, error) {
	var docs []domain.Document
	err := s.do(ctx, func(context.Context) {
		docs = s.store.Documents()
	})

	return docs, err
}

// Drained blocks until no document is queued or processing.
func (s *Scheduler) Drained(ctx context.Context) error {
	ch := make(chan struct{})

	err := s.do(ctx, func(context.Context) {
		s.waiters = append(s.waiters, ch)
	})
	if err != nil {
		return err
	}

	select {
	case <-ch:
		return nil
	case <-s.stopped:
		return ErrSchedulerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) do(ctx context.Context, apply func(ctx context.Context)) error {
	cmd := command{apply: apply, done: make(chan struct{})}

	select {
	case s.commands <- cmd:
	case <-s.stopped:
		return ErrSchedulerStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// Once delivered, a command always runs to completion.
	<-cmd.done

	return nil
}

func (s *Scheduler) evaluate(ctx context.Context) {
	for s.store.Count(domain.StatusProcessing) < s.maxConcurrent {
		doc, ok := s.store.NextQueued()
		if !ok {
			break
		}

		admitted, err := doc.Admit()
		if err != nil {
			s.log.ErrorContext(ctx, "failed to admit document", slog.String("err", err.Error()))
			break
		}

		if err := s.store.Replace(admitted); err != nil {
			s.log.ErrorContext(ctx, "failed to admit document", slog.String("err", err.Error()))
			break
		}

		s.log.DebugContext(ctx, "document admitted",
			slog.String("document_id", admitted.ID),
			slog.String("filename", admitted.FileName),
		)

		s.publish(ctx, doc.Status, admitted)
		s.extract(ctx, admitted)
	}

	if len(s.waiters) > 0 &&
		s.store.Count(domain.StatusQueued) == 0 &&
		s.store.Count(domain.StatusProcessing) == 0 {
		for _, ch := range s.waiters {
			close(ch)
		}
		s.waiters = nil
	}
}

func (s *Scheduler) extract(ctx context.Context, doc domain.Document) {
	s.inflight.Add(1)

	go func() {
		defer s.inflight.Done()

		c := completion{id: doc.ID}
		c.result, c.err = s.call(ctx, doc)

		select {
		case s.completions <- c:
		case <-s.stopped:
		}
	}()
}

func (s *Scheduler) call(ctx context.Context, doc domain.Document) (result *domain.Extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("extraction panicked: %v", r)
		}
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err = s.extractor.Extract(ctx, doc)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("extraction timed out after %s", s.timeout)
	}

	return result, err
}

func (s *Scheduler) finish(ctx context.Context, c completion) {
	log := s.log.With(slog.String("document_id", c.id))

	doc, ok := s.store.Get(c.id)
	if !ok {
		log.DebugContext(ctx, "discarding extraction outcome for removed document")
		return
	}

	if doc.Status != domain.StatusProcessing {
		log.WarnContext(ctx, "discarding extraction outcome", slog.String("status", string(doc.Status)))
		return
	}

	var (
		next domain.Document
		err  error
	)

	switch {
	case c.err != nil:
		next, err = doc.Fail(c.err.Error())
	case c.result == nil:
		next, err = doc.Fail("extraction service returned no data")
	default:
		next, err = doc.Complete(c.result)
	}
	if err != nil {
		log.ErrorContext(ctx, "failed to apply extraction outcome", slog.String("err", err.Error()))
		return
	}

	if err := s.store.Replace(next); err != nil {
		log.ErrorContext(ctx, "failed to apply extraction outcome", slog.String("err", err.Error()))
		return
	}

	switch next.Status {
	case domain.StatusComplete:
		log.InfoContext(ctx, "extraction complete",
			slog.String("filename", next.FileName),
			slog.Int("line_items", len(next.Result.LineItems)),
		)
	default:
		log.WarnContext(ctx, "extraction failed",
			slog.String("filename", next.FileName),
			slog.String("err", next.ErrorMessage),
		)
	}

	s.publish(ctx, doc.Status, next)
}

func (s *Scheduler) publish(ctx context.Context, from domain.Status, doc domain.Document) {
	if s.transitions == nil {
		return
	}

	t := &domain.Transition{
		Document: doc.Snapshot(),
		From:     from,
		To:       doc.Status,
		At:       time.Now(),
	}

	select {
	case s.transitions <- t:
	case <-ctx.Done():
	}
}

func (s *Scheduler) releasePreview(doc domain.Document) {
	if doc.Preview == "" {
		return
	}

	if err := s.previews.Release(doc.Preview); err != nil {
		s.log.Warn("failed to release preview",
			slog.String("document_id", doc.ID),
			slog.String("err", err.Error()),
		)
	}
}

func (s *Scheduler) teardown() {
	s.stopOnce.Do(func() {
		close(s.stopped)
	})

	s.inflight.Wait()

	for _, doc := range s.store.Clear() {
		s.releasePreview(doc)
	}

	s.log.Info("scheduler stopped")
}
