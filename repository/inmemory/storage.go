package storage

import (
	"sync"

	"todoapp/internal/domain/errors"
	"todoapp/internal/domain/models"
)

// Storage is an ordered, id-indexed set of todos safe for concurrent use.
type Storage struct {
	mu    sync.RWMutex
	order []int
	todos map[int]models.Todo
}

func NewStorage() *Storage {
	return &Storage{
		todos: make(map[int]models.Todo),
	}
}

// Replace discards the current contents and stores todos in order.
// Later duplicates of an id win.
func (s *Storage) Replace(todos []models.Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = s.order[:0]
	s.todos = make(map[int]models.Todo, len(todos))
	for _, t := range todos {
		if _, exists := s.todos[t.ID]; !exists {
			s.order = append(s.order, t.ID)
		}
		s.todos[t.ID] = t
	}
}

// Put appends todo, or replaces it in place when the id is already known.
func (s *Storage) Put(todo models.Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.todos[todo.ID]; !exists {
		s.order = append(s.order, todo.ID)
	}
	s.todos[todo.ID] = todo
}

// Update replaces an existing todo and reports ErrTodoNotFound otherwise.
func (s *Storage) Update(todo models.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.todos[todo.ID]; !exists {
		return errors.ErrTodoNotFound
	}
	s.todos[todo.ID] = todo
	return nil
}

func (s *Storage) Get(id int) (*models.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	todo, exists := s.todos[id]
	if !exists {
		return nil, errors.ErrTodoNotFound
	}
	return &todo, nil
}

func (s *Storage) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.todos[id]; !exists {
		return errors.ErrTodoNotFound
	}
	delete(s.todos, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns a copy of all todos in insertion order.
func (s *Storage) List() []models.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Todo, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.todos[id])
	}
	return out
}

func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// MaxID returns the highest stored id, or 0 when empty.
func (s *Storage) MaxID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	max := 0
	for _, id := range s.order {
		if id > max {
			max = id
		}
	}
	return max
}
