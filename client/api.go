// Package client is the Go client for the taskflow API: a typed HTTP
// client, an in-memory task store with derived views and optimistic
// mutations, transient notifications, and drag/drop reconciliation.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"taskflow/models"
)

// APIError is a non-2xx response from the server, carrying the status code
// and the server's error message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client talks to the taskflow REST API. The bearer token captured at login
// or registration is attached to every subsequent request.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken installs a bearer token, e.g. one restored from session storage.
func (c *Client) SetToken(token string) { c.token = token }

// Token returns the current bearer token, empty when signed out.
func (c *Client) Token() string { return c.token }

// ClearToken discards the bearer token; logout is client-side only.
func (c *Client) ClearToken() { c.token = "" }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf *bytes.Buffer
	if body != nil {
		buf = &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return err
		}
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

type authPayload struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Register creates an account and signs the client in.
func (c *Client) Register(ctx context.Context, email, password, name string) (models.User, error) {
	var resp authPayload
	body := map[string]string{"email": email, "password": password, "name": name}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &resp); err != nil {
		return models.User{}, err
	}
	c.token = resp.Token
	return resp.User, nil
}

// Login authenticates and captures the bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (models.User, error) {
	var resp authPayload
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return models.User{}, err
	}
	c.token = resp.Token
	return resp.User, nil
}

// Verify confirms the stored token is still accepted.
func (c *Client) Verify(ctx context.Context) (models.User, error) {
	var resp struct {
		User models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/verify", nil, &resp); err != nil {
		return models.User{}, err
	}
	return resp.User, nil
}

// ListTasks fetches the caller's tasks, optionally server-filtered.
func (c *Client) ListTasks(ctx context.Context, f models.TaskFilters) ([]models.Task, error) {
	params := url.Values{}
	if f.Status != "" {
		params.Set("status", f.Status)
	}
	if f.Priority != "" {
		params.Set("priority", f.Priority)
	}
	if f.Search != "" {
		params.Set("search", f.Search)
	}
	path := "/tasks"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp struct {
		Tasks []models.Task `json:"tasks"`
		Count int           `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

func (c *Client) GetTask(ctx context.Context, id int) (models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+strconv.Itoa(id), nil, &task); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

type taskPayload struct {
	Message string      `json:"message"`
	Task    models.Task `json:"task"`
}

func (c *Client) CreateTask(ctx context.Context, t models.NewTask) (models.Task, error) {
	var resp taskPayload
	if err := c.do(ctx, http.MethodPost, "/tasks", t, &resp); err != nil {
		return models.Task{}, err
	}
	return resp.Task, nil
}

func (c *Client) UpdateTask(ctx context.Context, id int, p models.TaskPatch) (models.Task, error) {
	var resp taskPayload
	if err := c.do(ctx, http.MethodPut, "/tasks/"+strconv.Itoa(id), p, &resp); err != nil {
		return models.Task{}, err
	}
	return resp.Task, nil
}

func (c *Client) DeleteTask(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+strconv.Itoa(id), nil, nil)
}

func (c *Client) ToggleTask(ctx context.Context, id int) (models.Task, error) {
	var resp taskPayload
	if err := c.do(ctx, http.MethodPatch, "/tasks/"+strconv.Itoa(id)+"/toggle", nil, &resp); err != nil {
		return models.Task{}, err
	}
	return resp.Task, nil
}
