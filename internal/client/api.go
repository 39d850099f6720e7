package client

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"todoapp/internal/domain/errors"
	"todoapp/internal/domain/models"
)

const DefaultTimeout = 10 * time.Second

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", errors.ErrRequestFailed, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", errors.ErrRequestFailed, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() []error {
	if e.StatusCode == http.StatusNotFound {
		return []error{errors.ErrRequestFailed, errors.ErrTodoNotFound}
	}
	return []error{errors.ErrRequestFailed}
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return stderrors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// API talks to the todo backend through the edge server's API prefix.
type API struct {
	baseURL    *url.URL
	httpClient *http.Client
}

type APIOption func(*API)

func WithHTTPClient(c *http.Client) APIOption {
	return func(a *API) {
		if c != nil {
			a.httpClient = c
		}
	}
}

func WithTimeout(d time.Duration) APIOption {
	return func(a *API) {
		if d > 0 {
			a.httpClient.Timeout = d
		}
	}
}

func NewAPI(baseURL string, opts ...APIOption) (*API, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", errors.ErrInvalidBackendURL, baseURL)
	}
	api := &API{
		baseURL:    u,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(api)
	}
	return api, nil
}

func (a *API) BaseURL() string {
	return a.baseURL.String()
}

func (a *API) ListTodos(ctx context.Context) ([]models.Todo, error) {
	var todos []models.Todo
	if err := a.do(ctx, http.MethodGet, "/todos", nil, &todos); err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []models.Todo{}
	}
	return todos, nil
}

func (a *API) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats
	err := a.do(ctx, http.MethodGet, "/stats", nil, &stats)
	return stats, err
}

func (a *API) CreateTodo(ctx context.Context, req models.CreateTodoRequest) (models.Todo, error) {
	var todo models.Todo
	err := a.do(ctx, http.MethodPost, "/todos", req, &todo)
	return todo, err
}

func (a *API) UpdateTodo(ctx context.Context, id int, req models.UpdateTodoRequest) (models.Todo, error) {
	var todo models.Todo
	err := a.do(ctx, http.MethodPut, "/todos/"+strconv.Itoa(id), req, &todo)
	return todo, err
}

func (a *API) DeleteTodo(ctx context.Context, id int) error {
	return a.do(ctx, http.MethodDelete, "/todos/"+strconv.Itoa(id), nil, nil)
}

func (a *API) ToggleTodo(ctx context.Context, id int) (models.Todo, error) {
	var todo models.Todo
	err := a.do(ctx, http.MethodPatch, "/todos/toggle/"+strconv.Itoa(id), nil, &todo)
	return todo, err
}

func (a *API) Health(ctx context.Context) (models.Health, error) {
	var health models.Health
	err := a.do(ctx, http.MethodGet, "/health", nil, &health)
	return health, err
}

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	endpoint := a.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", errors.ErrBackendUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrBackendUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload models.ErrorResponse
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrDecodeResponse, err)
	}
	return nil
}
