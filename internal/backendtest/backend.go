// Package backendtest runs an in-memory implementation of the todo backend
// API for tests of the client, the command line and the edge proxy.
package backendtest

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"todoapp/internal/domain/models"
	storage "todoapp/repository/inmemory"

	"github.com/gin-gonic/gin"
)

// Backend serves the todo API under /api on an httptest server.
type Backend struct {
	Server *httptest.Server

	store    *storage.Storage
	mu       sync.Mutex
	clock    time.Time
	requests atomic.Int64
	failNext atomic.Int64
}

// New starts a backend. Call Close when done.
func New() *Backend {
	gin.SetMode(gin.TestMode)
	b := &Backend{
		store: storage.NewStorage(),
		clock: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	b.Server = httptest.NewServer(b.router())
	return b
}

// URL is the API base, e.g. http://127.0.0.1:1234/api.
func (b *Backend) URL() string {
	return b.Server.URL + "/api"
}

func (b *Backend) Close() {
	b.Server.Close()
}

// Requests counts every request received so far.
func (b *Backend) Requests() int {
	return int(b.requests.Load())
}

// FailNext makes the next n requests answer 500.
func (b *Backend) FailNext(n int) {
	b.failNext.Store(int64(n))
}

// Seed stores todos as they are, bypassing the API.
func (b *Backend) Seed(todos ...models.Todo) {
	for _, t := range todos {
		b.store.Put(t)
	}
}

func (b *Backend) Todos() []models.Todo {
	return b.store.List()
}

func (b *Backend) now() models.Timestamp {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clock = b.clock.Add(time.Minute)
	return models.NewTimestamp(b.clock)
}

func (b *Backend) router() http.Handler {
	router := gin.New()
	router.Use(func(ctx *gin.Context) {
		b.requests.Add(1)
		if b.failNext.Load() > 0 {
			b.failNext.Add(-1)
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "injected failure"})
			return
		}
		ctx.Next()
	})

	api := router.Group("/api")
	{
		api.GET("/todos", b.getTodos)
		api.POST("/todos", b.createTodo)
		api.PUT("/todos/:id", b.updateTodo)
		api.DELETE("/todos/:id", b.deleteTodo)
		api.PATCH("/todos/toggle/:id", b.toggleTodo)
		api.GET("/stats", b.getStats)
		api.GET("/health", b.health)
		api.Any("/echo/*path", b.echo)
	}
	return router
}

func (b *Backend) getTodos(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, b.store.List())
}

func (b *Backend) createTodo(ctx *gin.Context) {
	var req models.CreateTodoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Text == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Todo text is required"})
		return
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	todo := models.Todo{
		ID:        b.store.MaxID() + 1,
		Text:      req.Text,
		Priority:  priority,
		CreatedAt: b.now(),
	}
	b.store.Put(todo)
	ctx.JSON(http.StatusCreated, todo)
}

func (b *Backend) updateTodo(ctx *gin.Context) {
	todo, ok := b.lookup(ctx)
	if !ok {
		return
	}
	var req models.UpdateTodoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if req.Text != nil {
		todo.Text = *req.Text
	}
	if req.Priority != nil {
		todo.Priority = *req.Priority
	}
	if req.Completed != nil {
		todo.Completed = *req.Completed
	}
	updated := b.now()
	todo.UpdatedAt = &updated
	_ = b.store.Update(*todo)
	ctx.JSON(http.StatusOK, todo)
}

func (b *Backend) deleteTodo(ctx *gin.Context) {
	// Deleting an unknown id still succeeds, like the real backend.
	if id, err := strconv.Atoi(ctx.Param("id")); err == nil {
		_ = b.store.Delete(id)
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Todo deleted successfully"})
}

func (b *Backend) toggleTodo(ctx *gin.Context) {
	todo, ok := b.lookup(ctx)
	if !ok {
		return
	}
	todo.Completed = !todo.Completed
	updated := b.now()
	todo.UpdatedAt = &updated
	_ = b.store.Update(*todo)
	ctx.JSON(http.StatusOK, todo)
}

func (b *Backend) getStats(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, models.StatsOf(b.store.List()))
}

func (b *Backend) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, models.Health{Status: "healthy", Timestamp: models.NewTimestamp(time.Now())})
}

// echo reflects the request back so proxy tests can inspect what arrived.
func (b *Backend) echo(ctx *gin.Context) {
	body, _ := ctx.GetRawData()
	headers := make(map[string]string, len(ctx.Request.Header))
	for k := range ctx.Request.Header {
		headers[strings.ToLower(k)] = ctx.Request.Header.Get(k)
	}
	ctx.JSON(http.StatusOK, gin.H{
		"method":  ctx.Request.Method,
		"path":    ctx.Request.URL.Path,
		"query":   ctx.Request.URL.RawQuery,
		"host":    ctx.Request.Host,
		"body":    string(body),
		"headers": headers,
	})
}

func (b *Backend) lookup(ctx *gin.Context) (*models.Todo, bool) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Todo not found"})
		return nil, false
	}
	todo, err := b.store.Get(id)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Todo not found"})
		return nil, false
	}
	return todo, true
}
