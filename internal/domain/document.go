package domain

import (
	"fmt"
	"time"
)

type PreviewHandle string

// Document is one submitted file and its place in the extraction lifecycle.
// Values are treated as immutable snapshots: every transition returns a new Document.
type Document struct {
	ID           string        `json:"id"`
	FileName     string        `json:"file_name"`
	MimeType     string        `json:"mime_type"`
	Size         int64         `json:"size"`
	Pages        int           `json:"pages"`
	Payload      []byte        `json:"-"`
	Preview      PreviewHandle `json:"preview"`
	Status       Status        `json:"status"`
	Result       *Extraction   `json:"result,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	SubmittedAt  time.Time     `json:"submitted_at"`
	QueuedSeq    uint64        `json:"-"`
}

func (d Document) IsPDF() bool {
	return d.MimeType == MimePDF
}

func (d Document) Admit() (Document, error) {
	if d.Status != StatusQueued {
		return Document{}, transitionError(d.Status, StatusProcessing)
	}

	next := d
	next.Status = StatusProcessing

	return next, nil
}

func (d Document) Complete(result *Extraction) (Document, error) {
	if d.Status != StatusProcessing {
		return Document{}, transitionError(d.Status, StatusComplete)
	}

	if result == nil {
		return Document{}, fmt.Errorf("%w: complete without result", ErrInvalidTransition)
	}

	next := d
	next.Status = StatusComplete
	next.Result = result.Clone()
	next.ErrorMessage = ""

	return next, nil
}

func (d Document) Fail(message string) (Document, error) {
	if d.Status != StatusProcessing {
		return Document{}, transitionError(d.Status, StatusError)
	}

	if message == "" {
		message = "extraction failed"
	}

	next := d
	next.Status = StatusError
	next.Result = nil
	next.ErrorMessage = message

	return next, nil
}

// Retry puts a failed document back in the queue. There is no attempt limit.
func (d Document) Retry(seq uint64) (Document, error) {
	if d.Status != StatusError {
		return Document{}, transitionError(d.Status, StatusQueued)
	}

	next := d
	next.Status = StatusQueued
	next.ErrorMessage = ""
	next.QueuedSeq = seq

	return next, nil
}

// Snapshot returns a copy that shares no mutable memory with d.
func (d Document) Snapshot() Document {
	c := d
	c.Result = d.Result.Clone()

	return c
}

func (d Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("id is required")
	}

	if !d.Status.Valid() {
		return fmt.Errorf("unknown status %q", d.Status)
	}

	if (d.Status == StatusComplete) != (d.Result != nil) {
		return fmt.Errorf("status %s with result present=%t", d.Status, d.Result != nil)
	}

	if d.ErrorMessage != "" && d.Status != StatusError {
		return fmt.Errorf("status %s carries error message", d.Status)
	}

	return nil
}

// Transition is published by the scheduler every time a document changes status.
type Transition struct {
	Document Document
	From     Status
	To       Status
	At       time.Time
}
