package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mohans/arqmon/arqmon"
	apperrors "github.com/mohans/arqmon/internal/errors"
)

// memStore is an in-memory arqmon.Store that counts reads and tracks how
// many calls are in flight at once.
type memStore struct {
	mu       sync.Mutex
	status   map[string]arqmon.Status
	defs     map[string]*arqmon.JobDef
	results  map[string]*arqmon.JobResult
	failing  map[string]error
	extraKey []arqmon.JobKey

	resultReads atomic.Int32
	defReads    atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
}

func newMemStore() *memStore {
	return &memStore{
		status:  map[string]arqmon.Status{},
		defs:    map[string]*arqmon.JobDef{},
		results: map[string]*arqmon.JobResult{},
		failing: map[string]error{},
	}
}

func (s *memStore) addPending(id string, st arqmon.Status, def arqmon.JobDef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[id] = st
	s.defs[id] = &def
}

func (s *memStore) addResult(id string, res arqmon.JobResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[id] = arqmon.StatusComplete
	delete(s.defs, id)
	s.results[id] = &res
}

func (s *memStore) enter() func() {
	n := s.inFlight.Add(1)
	for {
		m := s.maxInFlight.Load()
		if n <= m || s.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return func() { s.inFlight.Add(-1) }
}

func (s *memStore) Keys(context.Context) ([]arqmon.JobKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []arqmon.JobKey
	for id := range s.defs {
		keys = append(keys, arqmon.JobKey{Namespace: arqmon.NamespaceDefinition, ID: id})
	}
	for id := range s.results {
		keys = append(keys, arqmon.JobKey{Namespace: arqmon.NamespaceResult, ID: id})
	}
	return append(keys, s.extraKey...), nil
}

func (s *memStore) Status(_ context.Context, id string) (arqmon.Status, error) {
	defer s.enter()()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing[id]; err != nil {
		return "", err
	}
	if st, ok := s.status[id]; ok {
		return st, nil
	}
	return arqmon.StatusNotFound, nil
}

func (s *memStore) Definition(_ context.Context, id string) (*arqmon.JobDef, error) {
	defer s.enter()()
	s.defReads.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.defs[id]; ok {
		return d, nil
	}
	return nil, apperrors.ForJob("definition", id, apperrors.ErrNotFound)
}

func (s *memStore) Result(_ context.Context, id string) (*arqmon.JobResult, error) {
	defer s.enter()()
	s.resultReads.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.results[id]; ok {
		return r, nil
	}
	return nil, apperrors.ForJob("result", id, apperrors.ErrNotFound)
}

func (s *memStore) Abort(context.Context, string) (bool, error) { return false, nil }
func (s *memStore) Close() error                                { return nil }
