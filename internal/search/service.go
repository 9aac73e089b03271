package search

import (
	"context"
	"log"
	"sync"
	"time"

	"memopad/internal/store"
)

// Service is the facade that tries Meilisearch first and falls back to a
// scan of the memo store. Index writes go through a single worker so a
// delete can never overtake the save queued before it.
type Service struct {
	meili *Meili
	local *Local
	index indexWriter

	mu      sync.Mutex
	pending []indexOp
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

type indexWriter interface {
	Healthy() bool
	IndexMemos(records []MemoRecord) error
	DeleteMemo(id string) error
}

// indexOp is one queued index write. record is nil for deletes.
type indexOp struct {
	id     string
	record *MemoRecord
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, local *Local) *Service {
	s := &Service{meili: meili, local: local}
	if meili != nil {
		s.startIndexer(meili)
	}
	return s
}

func (s *Service) startIndexer(index indexWriter) {
	s.index = index
	s.wake = make(chan struct{}, 1)
	s.done = make(chan struct{})
	go s.runIndexer()
}

func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text, Backend: "meilisearch"}
		}
		log.Printf("search: meilisearch error, falling back to local scan: %v", err)
	}

	if s.local == nil {
		return Response{Results: []Result{}, Query: q.Text, Backend: "none"}
	}
	results, total, err := s.local.Search(ctx, q)
	if err != nil {
		log.Printf("search: local scan error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text, Backend: "local"}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text, Backend: "local"}
}

// IndexMemo queues a saved memo for Meilisearch. It never blocks.
func (s *Service) IndexMemo(id string, memo store.Memo) {
	record := toRecord(id, memo)
	s.enqueue(indexOp{id: id, record: &record})
}

// DeleteMemo queues removal of a memo from the index.
func (s *Service) DeleteMemo(id string) {
	s.enqueue(indexOp{id: id})
}

func (s *Service) enqueue(op indexOp) {
	if s.index == nil || !s.index.Healthy() {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = append(s.pending, op)
	s.mu.Unlock()
	s.signal()
}

func (s *Service) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// runIndexer applies queued writes in queue order and returns once the
// queue is drained after Close.
func (s *Service) runIndexer() {
	defer close(s.done)
	for {
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		closed := s.closed
		s.mu.Unlock()

		for _, op := range batch {
			s.apply(op)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-s.wake
	}
}

func (s *Service) apply(op indexOp) {
	if op.record == nil {
		if err := s.index.DeleteMemo(op.id); err != nil {
			log.Printf("search: delete memo %s: %v", op.id, err)
		}
		return
	}
	if err := s.index.IndexMemos([]MemoRecord{*op.record}); err != nil {
		log.Printf("search: index memo %s: %v", op.id, err)
	}
}

// ReindexAll pushes every stored memo to Meilisearch. Called at startup.
func (s *Service) ReindexAll(ctx context.Context, memos MemoSource) {
	if s.meili == nil || !s.meili.Healthy() || memos == nil {
		return
	}
	all := memos.AllMemos(ctx)
	records := make([]MemoRecord, 0, len(all))
	for id, memo := range all {
		records = append(records, toRecord(id, memo))
	}
	if err := s.meili.IndexMemos(records); err != nil {
		log.Printf("search: reindex memos: %v", err)
	}
}

// Close flushes queued index writes and stops the Meilisearch health
// monitor if there is one.
func (s *Service) Close() {
	if s.index != nil {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.signal()
		<-s.done
	}
	if s.meili != nil {
		s.meili.Close()
	}
}

func toRecord(id string, memo store.Memo) MemoRecord {
	return MemoRecord{ID: id, Title: memo.Title, Content: memo.Content, LastModified: memo.LastModified.UTC().Format(time.RFC3339Nano)}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
