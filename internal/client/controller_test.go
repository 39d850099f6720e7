package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"todoapp/internal/backendtest"
	"todoapp/internal/domain/errors"
	"todoapp/internal/domain/models"
	"todoapp/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) ListTodos(ctx context.Context) ([]models.Todo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Todo), args.Error(1)
}

func (m *MockBackend) Stats(ctx context.Context) (models.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Stats), args.Error(1)
}

func (m *MockBackend) CreateTodo(ctx context.Context, req models.CreateTodoRequest) (models.Todo, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.Todo), args.Error(1)
}

func (m *MockBackend) UpdateTodo(ctx context.Context, id int, req models.UpdateTodoRequest) (models.Todo, error) {
	args := m.Called(ctx, id, req)
	return args.Get(0).(models.Todo), args.Error(1)
}

func (m *MockBackend) DeleteTodo(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBackend) ToggleTodo(ctx context.Context, id int) (models.Todo, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Todo), args.Error(1)
}

type recorder struct {
	mu      sync.Mutex
	notices []Notice
	busy    []bool
}

func (r *recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) SetBusy(b bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy = append(r.busy, b)
}

func (r *recorder) errorNotices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notice
	for _, n := range r.notices {
		if n.Kind == NoticeError {
			out = append(out, n)
		}
	}
	return out
}

func (r *recorder) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}

func newTestApp(t *testing.T) (*App, *backendtest.Backend, *recorder) {
	t.Helper()
	backend := backendtest.New()
	t.Cleanup(backend.Close)

	api, err := NewAPI(backend.URL())
	require.NoError(t, err)

	rec := &recorder{}
	return NewApp(api, rec, logging.Discard()), backend, rec
}

func TestAppLoad(t *testing.T) {
	app, backend, rec := newTestApp(t)
	backend.Seed(
		models.Todo{ID: 1, Text: "one", Priority: models.PriorityLow, CreatedAt: models.NewTimestamp(time.Now().Add(-time.Hour))},
		models.Todo{ID: 2, Text: "two", Priority: models.PriorityHigh, Completed: true, CreatedAt: models.NewTimestamp(time.Now())},
	)

	require.NoError(t, app.Load(context.Background()))

	assert.Len(t, app.Todos(), 2)
	assert.Equal(t, 2, app.Stats().Total)
	assert.Equal(t, 1, app.Stats().Completed)
	assert.Equal(t, []bool{true, false}, rec.busy)
	assert.Empty(t, rec.errorNotices())
	assert.False(t, app.Busy())
}

func TestAppAdd(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		priority models.Priority
		want     struct {
			err        error
			cacheLen   int
			requests   int
			noticeKind NoticeKind
		}
	}{
		{
			name:     "adds todo",
			text:     "Buy milk",
			priority: models.PriorityHigh,
			want: struct {
				err        error
				cacheLen   int
				requests   int
				noticeKind NoticeKind
			}{cacheLen: 1, requests: 2, noticeKind: NoticeSuccess},
		},
		{
			name:     "empty text makes no call",
			text:     "",
			priority: models.PriorityHigh,
			want: struct {
				err        error
				cacheLen   int
				requests   int
				noticeKind NoticeKind
			}{err: errors.ErrEmptyText, noticeKind: NoticeError},
		},
		{
			name:     "whitespace text makes no call",
			text:     "   \t",
			priority: models.PriorityLow,
			want: struct {
				err        error
				cacheLen   int
				requests   int
				noticeKind NoticeKind
			}{err: errors.ErrEmptyText, noticeKind: NoticeError},
		},
		{
			name:     "unknown priority makes no call",
			text:     "Buy milk",
			priority: "urgent",
			want: struct {
				err        error
				cacheLen   int
				requests   int
				noticeKind NoticeKind
			}{err: errors.ErrInvalidPriority, noticeKind: NoticeError},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, backend, rec := newTestApp(t)

			_, err := app.Add(context.Background(), tt.text, tt.priority)

			assert.Equal(t, tt.want.err, err)
			assert.Len(t, app.Todos(), tt.want.cacheLen)
			assert.Equal(t, tt.want.requests, backend.Requests())
			assert.Equal(t, tt.want.noticeKind, rec.last().Kind)
		})
	}
}

func TestAppAddScenario(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, app.Load(ctx))
	before := app.Stats()

	todo, err := app.Add(ctx, "Buy milk", "high")
	require.NoError(t, err)

	require.Len(t, app.Todos(), 1)
	cached := app.Todos()[0]
	assert.Equal(t, todo, cached)
	assert.False(t, cached.Completed)
	assert.Equal(t, models.PriorityHigh, cached.Priority)
	assert.Equal(t, before.Total+1, app.Stats().Total)
	assert.Equal(t, before.Pending+1, app.Stats().Pending)
}

func TestAppToggleTwice(t *testing.T) {
	app, _, rec := newTestApp(t)
	ctx := context.Background()
	todo, err := app.Add(ctx, "Walk the dog", models.PriorityMedium)
	require.NoError(t, err)

	toggled, err := app.ToggleCompleted(ctx, todo.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)
	assert.Equal(t, "Todo completed!", rec.last().Message)
	cached, err := app.Todo(todo.ID)
	require.NoError(t, err)
	assert.True(t, cached.Completed)

	toggled, err = app.ToggleCompleted(ctx, todo.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Completed)
	assert.Equal(t, "Todo reopened", rec.last().Message)
	cached, err = app.Todo(todo.ID)
	require.NoError(t, err)
	assert.False(t, cached.Completed)
}

func TestAppRemove(t *testing.T) {
	tests := []struct {
		name string
		id   func(existing int) int
		want struct {
			remaining int
		}
	}{
		{
			name: "existing id",
			id:   func(existing int) int { return existing },
			want: struct {
				remaining int
			}{remaining: 1},
		},
		{
			name: "missing id is a no-op",
			id:   func(int) int { return 999 },
			want: struct {
				remaining int
			}{remaining: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _, _ := newTestApp(t)
			ctx := context.Background()
			first, err := app.Add(ctx, "first", models.PriorityLow)
			require.NoError(t, err)
			_, err = app.Add(ctx, "second", models.PriorityLow)
			require.NoError(t, err)

			require.NoError(t, app.Remove(ctx, tt.id(first.ID)))

			assert.Len(t, app.Todos(), tt.want.remaining)
		})
	}
}

func TestAppUpdate(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()
	todo, err := app.Add(ctx, "draft", models.PriorityLow)
	require.NoError(t, err)

	text := "final"
	priority := models.PriorityHigh
	updated, err := app.Update(ctx, todo.ID, models.UpdateTodoRequest{Text: &text, Priority: &priority})
	require.NoError(t, err)

	assert.Equal(t, "final", updated.Text)
	cached, err := app.Todo(todo.ID)
	require.NoError(t, err)
	assert.Equal(t, *cached, updated)
	assert.Equal(t, models.PriorityHigh, cached.Priority)

	blank := "  "
	_, err = app.Update(ctx, todo.ID, models.UpdateTodoRequest{Text: &blank})
	assert.Equal(t, errors.ErrEmptyText, err)
}

func TestAppBackendUnreachable(t *testing.T) {
	tests := []struct {
		name string
		call func(*App) error
	}{
		{name: "load", call: func(a *App) error { return a.Load(context.Background()) }},
		{name: "add", call: func(a *App) error {
			_, err := a.Add(context.Background(), "Buy milk", models.PriorityHigh)
			return err
		}},
		{name: "update", call: func(a *App) error {
			done := true
			_, err := a.Update(context.Background(), 1, models.UpdateTodoRequest{Completed: &done})
			return err
		}},
		{name: "remove", call: func(a *App) error { return a.Remove(context.Background(), 1) }},
		{name: "toggle", call: func(a *App) error {
			_, err := a.ToggleCompleted(context.Background(), 1)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, backend, rec := newTestApp(t)
			backend.Seed(models.Todo{ID: 1, Text: "seeded", Priority: models.PriorityLow})
			require.NoError(t, app.Load(context.Background()))
			before := app.Todos()
			backend.Close()

			err := tt.call(app)

			assert.ErrorIs(t, err, errors.ErrBackendUnavailable)
			assert.Len(t, rec.errorNotices(), 1)
			assert.Equal(t, before, app.Todos())
			assert.False(t, app.Busy())
		})
	}
}

func TestAppNonSuccessStatusLeavesCache(t *testing.T) {
	app, backend, rec := newTestApp(t)
	ctx := context.Background()
	_, err := app.Add(ctx, "keep me", models.PriorityLow)
	require.NoError(t, err)
	before := app.Todos()

	backend.FailNext(1)
	_, err = app.Add(ctx, "rejected", models.PriorityLow)

	assert.ErrorIs(t, err, errors.ErrRequestFailed)
	assert.Equal(t, before, app.Todos())
	assert.Len(t, rec.errorNotices(), 1)
}

func TestAppStatsFallback(t *testing.T) {
	mockBackend := &MockBackend{}
	created := models.Todo{ID: 5, Text: "x", Priority: models.PriorityHigh}
	mockBackend.On("CreateTodo", mock.Anything, models.CreateTodoRequest{Text: "x", Priority: models.PriorityHigh}).Return(created, nil)
	mockBackend.On("Stats", mock.Anything).Return(models.Stats{}, errors.ErrBackendUnavailable)

	rec := &recorder{}
	app := NewApp(mockBackend, rec, logging.Discard())

	_, err := app.Add(context.Background(), "x", models.PriorityHigh)
	require.NoError(t, err)

	assert.Equal(t, 1, app.Stats().Total)
	assert.Equal(t, 1, app.Stats().Pending)
	assert.Empty(t, rec.errorNotices())
	mockBackend.AssertExpectations(t)
}

func TestAppFilteredUsesViewState(t *testing.T) {
	mockBackend := &MockBackend{}
	now := time.Now()
	mockBackend.On("ListTodos", mock.Anything).Return([]models.Todo{
		{ID: 1, Text: "Buy milk", CreatedAt: models.NewTimestamp(now.Add(-2 * time.Minute))},
		{ID: 2, Text: "Buy bread", Completed: true, CreatedAt: models.NewTimestamp(now.Add(-time.Minute))},
		{ID: 3, Text: "Call mom", CreatedAt: models.NewTimestamp(now)},
	}, nil)
	mockBackend.On("Stats", mock.Anything).Return(models.Stats{Total: 3, Completed: 1, Pending: 2}, nil)

	app := NewApp(mockBackend, nil, logging.Discard())
	require.NoError(t, app.Load(context.Background()))

	assert.Equal(t, []int{3, 2, 1}, todoIDs(app.Filtered()))

	app.SetFilter(models.FilterPending)
	assert.Equal(t, []int{3, 1}, todoIDs(app.Filtered()))

	app.SetSearch("BUY")
	assert.Equal(t, models.FilterPending, app.Filter())
	assert.Equal(t, "BUY", app.Search())
	assert.Equal(t, []int{1}, todoIDs(app.Filtered()))

	app.SetFilter(models.FilterCompleted)
	assert.Equal(t, []int{2}, todoIDs(app.Filtered()))
}

func TestAppSerializesMutationsPerID(t *testing.T) {
	mockBackend := &MockBackend{}
	release := make(chan struct{})
	var mu sync.Mutex
	active, maxActive := 0, 0
	track := func(mock.Arguments) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		<-release
		mu.Lock()
		active--
		mu.Unlock()
	}
	mockBackend.On("ToggleTodo", mock.Anything, 1).Run(track).Return(models.Todo{ID: 1, Completed: true}, nil)
	mockBackend.On("Stats", mock.Anything).Return(models.Stats{Total: 1}, nil)

	app := NewApp(mockBackend, nil, logging.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = app.ToggleCompleted(context.Background(), 1)
		}()
	}
	for i := 0; i < 3; i++ {
		release <- struct{}{}
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
	assert.Equal(t, 0, app.locks.size())
	mockBackend.AssertNumberOfCalls(t, "ToggleTodo", 3)
}

func TestBusyCounter(t *testing.T) {
	rec := &recorder{}
	b := &busyCounter{notifier: rec}

	first := b.begin()
	second := b.begin()
	assert.True(t, b.busy())
	first()
	first()
	assert.True(t, b.busy())
	second()
	assert.False(t, b.busy())

	assert.Equal(t, []bool{true, false}, rec.busy)
}

func TestAppQueuedMutationShowsBusy(t *testing.T) {
	mockBackend := &MockBackend{}
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	mockBackend.On("ToggleTodo", mock.Anything, 1).Run(func(mock.Arguments) {
		started <- struct{}{}
		<-release
	}).Return(models.Todo{ID: 1, Completed: true}, nil)
	mockBackend.On("Stats", mock.Anything).Return(models.Stats{Total: 1}, nil)

	rec := &recorder{}
	app := NewApp(mockBackend, rec, logging.Discard())

	var wg sync.WaitGroup
	toggle := func() {
		defer wg.Done()
		_, _ = app.ToggleCompleted(context.Background(), 1)
	}
	wg.Add(2)
	go toggle()
	<-started
	go toggle()

	// the second toggle waits on the id lock but already counts as in flight
	assert.Eventually(t, func() bool {
		app.busy.mu.Lock()
		defer app.busy.mu.Unlock()
		return app.busy.inflight == 2
	}, time.Second, 5*time.Millisecond)

	close(release)
	wg.Wait()

	assert.False(t, app.Busy())
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []bool{true, false}, rec.busy)
}

type blockingNotifier struct {
	NopNotifier
	entered chan bool
	release chan struct{}
}

func (n *blockingNotifier) SetBusy(busy bool) {
	n.entered <- busy
	<-n.release
}

func TestBusyCounterSlowNotifier(t *testing.T) {
	n := &blockingNotifier{entered: make(chan bool, 4), release: make(chan struct{})}
	b := &busyCounter{notifier: n}

	firstDone := make(chan func(), 1)
	go func() { firstDone <- b.begin() }()
	require.True(t, <-n.entered)

	unblocked := make(chan struct{})
	go func() {
		second := b.begin()
		_ = b.busy()
		second()
		close(unblocked)
	}()
	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("counter blocked behind a pending SetBusy")
	}
	assert.True(t, b.busy())

	close(n.release)
	done := <-firstDone
	done()

	assert.False(t, b.busy())
	assert.False(t, <-n.entered)
}

func todoIDs(todos []models.Todo) []int {
	out := make([]int, 0, len(todos))
	for _, t := range todos {
		out = append(out, t.ID)
	}
	return out
}
