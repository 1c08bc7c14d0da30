package pipeline

import (
	"fmt"

	"github.com/kurochkinivan/docuextract/internal/domain"
)

// Store is the ordered record set together with the current selection.
// It is not safe for concurrent use; the Scheduler loop is its only writer.
type Store struct {
	docs     []domain.Document
	ids      map[string]struct{}
	selected string
	seq      uint64
}

func NewStore() *Store {
	return &Store{
		ids: make(map[string]struct{}),
	}
}

// Append adds queued documents in order and assigns their queue sequence.
// When no stored document is selected, the first appended one becomes selected.
func (s *Store) Append(docs ...domain.Document) ([]domain.Document, error) {
	for _, doc := range docs {
		if _, ok := s.ids[doc.ID]; ok {
			return nil, fmt.Errorf("duplicate document id %q", doc.ID)
		}

		if doc.Status != domain.StatusQueued {
			return nil, fmt.Errorf("document %q must be queued, got %s", doc.ID, doc.Status)
		}
	}

	stored := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		doc.QueuedSeq = s.NextSeq()
		s.ids[doc.ID] = struct{}{}
		s.docs = append(s.docs, doc)
		stored = append(stored, doc)
	}

	if len(stored) > 0 && s.indexOf(s.selected) < 0 {
		s.selected = stored[0].ID
	}

	return stored, nil
}

func (s *Store) NextSeq() uint64 {
	s.seq++
	return s.seq
}

func (s *Store) Get(id string) (domain.Document, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return domain.Document{}, false
	}

	return s.docs[i], true
}

// Replace swaps the stored record for doc as a whole.
func (s *Store) Replace(doc domain.Document) error {
	i := s.indexOf(doc.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, doc.ID)
	}

	s.docs[i] = doc

	return nil
}

func (s *Store) Remove(id string) (domain.Document, error) {
	i := s.indexOf(id)
	if i < 0 {
		return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	doc := s.docs[i]
	s.docs = append(s.docs[:i:i], s.docs[i+1:]...)

	if s.selected == id {
		s.selected = ""
	}

	return doc, nil
}

// Clear drops every record and returns what was stored.
func (s *Store) Clear() []domain.Document {
	docs := s.docs
	s.docs = nil
	s.selected = ""

	return docs
}

func (s *Store) Documents() []domain.Document {
	docs := make([]domain.Document, len(s.docs))
	for i, doc := range s.docs {
		docs[i] = doc.Snapshot()
	}

	return docs
}

func (s *Store) Len() int {
	return len(s.docs)
}

func (s *Store) Count(status domain.Status) int {
	n := 0
	for _, doc := range s.docs {
		if doc.Status == status {
			n++
		}
	}

	return n
}

// NextQueued returns the queued document that entered the queue first.
func (s *Store) NextQueued() (domain.Document, bool) {
	var (
		next  domain.Document
		found bool
	)

	for _, doc := range s.docs {
		if doc.Status != domain.StatusQueued {
			continue
		}

		if !found || doc.QueuedSeq < next.QueuedSeq {
			next, found = doc, true
		}
	}

	return next, found
}

// Select records id as the selection even when no document carries it; Selected then
// reports nothing selected.
func (s *Store) Select(id string) {
	s.selected = id
}

// Selected reports the selected record, if any.
func (s *Store) Selected() (domain.Document, bool) {
	if s.selected == "" {
		return domain.Document{}, false
	}

	doc, ok := s.Get(s.selected)
	if !ok {
		return domain.Document{}, false
	}

	return doc.Snapshot(), true
}

func (s *Store) indexOf(id string) int {
	for i, doc := range s.docs {
		if doc.ID == id {
			return i
		}
	}

	return -1
}
