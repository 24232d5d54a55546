// Package store holds the in-memory task collection that scheduling
// decisions are made against.
package store

import (
	"sort"
	"sync"

	"github.com/nick-dorsch/slotplan/pkg/models"
)

// Store keeps tasks in insertion order. Tasks are copied in and out so
// callers never share a *Task with the store.
type Store struct {
	mu    sync.RWMutex
	order []string
	tasks map[string]models.Task
}

func New(tasks ...models.Task) *Store {
	s := &Store{tasks: make(map[string]models.Task)}
	s.Replace(tasks)
	return s
}

// Replace swaps the whole collection, e.g. after LoadAll.
func (s *Store) Replace(tasks []models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = s.order[:0]
	s.tasks = make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		if _, dup := s.tasks[t.ID]; !dup {
			s.order = append(s.order, t.ID)
		}
		s.tasks[t.ID] = t.Clone()
	}
}

// Snapshot returns every task in insertion order.
func (s *Store) Snapshot() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id].Clone())
	}
	return out
}

func (s *Store) Get(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	return t.Clone(), ok
}

// Put inserts or replaces a task. New ids are appended to the order.
func (s *Store) Put(t models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[t.ID]; !exists {
		s.order = append(s.order, t.ID)
	}
	s.tasks[t.ID] = t.Clone()
}

func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return false
	}
	delete(s.tasks, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Scheduled returns scheduled tasks ordered by start.
func (s *Store) Scheduled() []models.Task {
	var out []models.Task
	for _, t := range s.Snapshot() {
		if t.IsScheduled() {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := out[i].Start()
		b, _ := out[j].Start()
		return a.Before(b)
	})
	return out
}
