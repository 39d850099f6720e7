package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"todoapp/internal/domain/errors"
	"todoapp/internal/domain/models"
	storage "todoapp/repository/inmemory"

	"github.com/charmbracelet/log"
)

// Backend is the todo API as seen by the controller. *API implements it.
type Backend interface {
	ListTodos(ctx context.Context) ([]models.Todo, error)
	Stats(ctx context.Context) (models.Stats, error)
	CreateTodo(ctx context.Context, req models.CreateTodoRequest) (models.Todo, error)
	UpdateTodo(ctx context.Context, id int, req models.UpdateTodoRequest) (models.Todo, error)
	DeleteTodo(ctx context.Context, id int) error
	ToggleTodo(ctx context.Context, id int) (models.Todo, error)
}

// App holds the client state: the local todo cache, the view state and the
// last known stats. Every mutation round-trips to the backend before the
// cache changes.
type App struct {
	backend  Backend
	notifier Notifier
	logger   *log.Logger
	cache    *storage.Storage
	locks    *keyedMutex
	busy     *busyCounter

	mu     sync.RWMutex
	filter models.Filter
	search string
	stats  models.Stats
}

func NewApp(backend Backend, notifier Notifier, logger *log.Logger) *App {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &App{
		backend:  backend,
		notifier: notifier,
		logger:   logger,
		cache:    storage.NewStorage(),
		locks:    newKeyedMutex(),
		busy:     &busyCounter{notifier: notifier},
		filter:   models.FilterAll,
	}
}

func (a *App) Load(ctx context.Context) error {
	done := a.busy.begin()
	defer done()

	todos, err := a.backend.ListTodos(ctx)
	if err != nil {
		return a.fail("load todos", err)
	}
	stats, err := a.backend.Stats(ctx)
	if err != nil {
		return a.fail("load stats", err)
	}

	a.cache.Replace(todos)
	a.setStats(stats)
	a.logger.Debug("todos loaded", "count", len(todos))
	return nil
}

func (a *App) Add(ctx context.Context, text string, priority models.Priority) (models.Todo, error) {
	req, err := models.NormalizeCreate(text, priority)
	if err != nil {
		a.notifier.Notify(Notice{Kind: NoticeError, Message: sentence(err.Error())})
		return models.Todo{}, err
	}

	done := a.busy.begin()
	defer done()

	todo, err := a.backend.CreateTodo(ctx, req)
	if err != nil {
		return models.Todo{}, a.fail("add todo", err)
	}
	a.cache.Put(todo)
	a.refreshStats(ctx)

	a.logger.Info("todo added", "id", todo.ID, "priority", todo.Priority)
	a.notifier.Notify(Notice{Kind: NoticeSuccess, Message: "Todo added successfully!"})
	return todo, nil
}

func (a *App) Update(ctx context.Context, id int, fields models.UpdateTodoRequest) (models.Todo, error) {
	req, err := models.NormalizeUpdate(fields)
	if err != nil {
		a.notifier.Notify(Notice{Kind: NoticeError, Message: sentence(err.Error())})
		return models.Todo{}, err
	}

	done := a.busy.begin()
	defer done()
	unlock := a.locks.lock(id)
	defer unlock()

	todo, err := a.backend.UpdateTodo(ctx, id, req)
	if err != nil {
		return models.Todo{}, a.fail("update todo", err)
	}
	a.cache.Put(todo)
	a.refreshStats(ctx)

	a.logger.Info("todo updated", "id", id)
	a.notifier.Notify(Notice{Kind: NoticeSuccess, Message: "Todo updated successfully!"})
	return todo, nil
}

func (a *App) Remove(ctx context.Context, id int) error {
	done := a.busy.begin()
	defer done()
	unlock := a.locks.lock(id)
	defer unlock()

	if err := a.backend.DeleteTodo(ctx, id); err != nil {
		return a.fail("delete todo", err)
	}
	if err := a.cache.Delete(id); err != nil && !stderrors.Is(err, errors.ErrTodoNotFound) {
		return err
	}
	a.refreshStats(ctx)

	a.logger.Info("todo deleted", "id", id)
	a.notifier.Notify(Notice{Kind: NoticeSuccess, Message: "Todo deleted successfully!"})
	return nil
}

// ToggleCompleted flips the completion flag. The returned todo tells the
// caller whether it is now completed or reopened.
func (a *App) ToggleCompleted(ctx context.Context, id int) (models.Todo, error) {
	done := a.busy.begin()
	defer done()
	unlock := a.locks.lock(id)
	defer unlock()

	todo, err := a.backend.ToggleTodo(ctx, id)
	if err != nil {
		return models.Todo{}, a.fail("update todo", err)
	}
	a.cache.Put(todo)
	a.refreshStats(ctx)

	msg := "Todo reopened"
	if todo.Completed {
		msg = "Todo completed!"
	}
	a.logger.Info("todo toggled", "id", id, "completed", todo.Completed)
	a.notifier.Notify(Notice{Kind: NoticeSuccess, Message: msg})
	return todo, nil
}

// Filtered projects the cache through the current filter and search.
func (a *App) Filtered() []models.Todo {
	a.mu.RLock()
	filter, search := a.filter, a.search
	a.mu.RUnlock()
	return models.Project(a.cache.List(), filter, search)
}

func (a *App) Todos() []models.Todo {
	return a.cache.List()
}

func (a *App) Todo(id int) (*models.Todo, error) {
	return a.cache.Get(id)
}

func (a *App) SetFilter(f models.Filter) {
	a.mu.Lock()
	a.filter = f
	a.mu.Unlock()
}

func (a *App) Filter() models.Filter {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.filter
}

func (a *App) SetSearch(q string) {
	a.mu.Lock()
	a.search = q
	a.mu.Unlock()
}

func (a *App) Search() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.search
}

func (a *App) Stats() models.Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

func (a *App) Busy() bool {
	return a.busy.busy()
}

func (a *App) setStats(s models.Stats) {
	a.mu.Lock()
	a.stats = s
	a.mu.Unlock()
}

// refreshStats falls back to counting the cache when the backend call fails,
// so a successful mutation is never reported as a failure.
func (a *App) refreshStats(ctx context.Context) {
	stats, err := a.backend.Stats(ctx)
	if err != nil {
		a.logger.Warn("stats refresh failed, using local counts", "err", err)
		stats = models.StatsOf(a.cache.List())
	}
	a.setStats(stats)
}

func (a *App) fail(action string, err error) error {
	a.logger.Error("request failed", "action", action, "err", err)
	a.notifier.Notify(Notice{Kind: NoticeError, Message: sentence(fmt.Sprintf("failed to %s", action))})
	return fmt.Errorf("%s: %w", action, err)
}
