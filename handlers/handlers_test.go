package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"taskflow/handlers"
	"taskflow/models"
	"taskflow/utils"
)

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	users map[uuid.UUID]models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]models.User{}}
}

func (r *fakeUserRepo) EmailInUse(_ context.Context, email string) (bool, error) {
	for _, u := range r.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) Create(_ context.Context, email, name, passwordHash string) (models.User, error) {
	u := models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	r.users[u.ID] = u
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, utils.ErrUserNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return models.User{}, utils.ErrUserNotFound
	}
	return u, nil
}

// fakeTaskRepo is an in-memory TaskRepository enforcing the same validation
// and ownership rules as the SQL-backed store.
type fakeTaskRepo struct {
	nextID int
	tasks  map[int]models.Task
	clock  time.Time
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{
		nextID: 1,
		tasks:  map[int]models.Task{},
		clock:  time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (r *fakeTaskRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *fakeTaskRepo) owned(userID uuid.UUID, id int) (models.Task, bool) {
	t, ok := r.tasks[id]
	if !ok || t.UserID != userID {
		return models.Task{}, false
	}
	return t, true
}

func (r *fakeTaskRepo) List(_ context.Context, userID uuid.UUID, f models.TaskFilters) ([]models.Task, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := []models.Task{}
	for _, t := range r.tasks {
		if t.UserID != userID {
			continue
		}
		if models.ValidStatus(f.Status) && t.Status != f.Status {
			continue
		}
		if models.ValidPriority(f.Priority) && t.Priority != f.Priority {
			continue
		}
		if search != "" {
			inTitle := strings.Contains(strings.ToLower(t.Title), search)
			inDesc := t.Description != nil && strings.Contains(strings.ToLower(*t.Description), search)
			if !inTitle && !inDesc {
				continue
			}
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeTaskRepo) Get(_ context.Context, userID uuid.UUID, id int) (models.Task, error) {
	t, ok := r.owned(userID, id)
	if !ok {
		return models.Task{}, utils.ErrTaskNotFound
	}
	return t, nil
}

func (r *fakeTaskRepo) Create(_ context.Context, userID uuid.UUID, nt models.NewTask) (models.Task, error) {
	if err := utils.ValidateNewTask(nt); err != nil {
		return models.Task{}, err
	}

	now := r.tick()
	t := models.Task{
		ID:        r.nextID,
		UserID:    userID,
		Title:     strings.TrimSpace(nt.Title),
		Priority:  nt.Priority,
		Status:    models.StatusPending,
		DueDate:   nt.DueDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if trimmed := strings.TrimSpace(nt.Description); trimmed != "" {
		t.Description = &trimmed
	}
	r.nextID++
	r.tasks[t.ID] = t
	return t, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, userID uuid.UUID, id int, p models.TaskPatch) (models.Task, error) {
	if err := utils.ValidateTaskPatch(p); err != nil {
		return models.Task{}, err
	}
	if p.Empty() {
		return models.Task{}, utils.ErrNoFields
	}

	t, ok := r.owned(userID, id)
	if !ok {
		return models.Task{}, utils.ErrTaskNotFound
	}

	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		if trimmed := strings.TrimSpace(*p.Description); trimmed != "" {
			t.Description = &trimmed
		} else {
			t.Description = nil
		}
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	t.UpdatedAt = r.tick()
	r.tasks[id] = t
	return t, nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, userID uuid.UUID, id int) error {
	if _, ok := r.owned(userID, id); !ok {
		return utils.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *fakeTaskRepo) Toggle(_ context.Context, userID uuid.UUID, id int) (models.Task, error) {
	t, ok := r.owned(userID, id)
	if !ok {
		return models.Task{}, utils.ErrTaskNotFound
	}
	if t.Status == models.StatusPending {
		t.Status = models.StatusCompleted
	} else {
		t.Status = models.StatusPending
	}
	t.UpdatedAt = r.tick()
	r.tasks[id] = t
	return t, nil
}

// testEnv wires real handlers over the in-memory fakes, routed exactly as
// the server routes them.
type testEnv struct {
	server *httptest.Server
	users  *fakeUserRepo
	tasks  *fakeTaskRepo
	auth   *handlers.AuthHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newFakeUserRepo()
	tasks := newFakeTaskRepo()
	auth := &handlers.AuthHandler{
		Users:  users,
		Tokens: utils.NewTokenManager("test-secret", time.Hour),
	}
	taskHandler := &handlers.TaskHandler{Tasks: tasks}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.Health)
	mux.HandleFunc("POST /auth/register", auth.Register)
	mux.HandleFunc("POST /auth/login", auth.Login)
	mux.HandleFunc("GET /auth/verify", auth.RequireAuth(auth.Verify))
	mux.HandleFunc("GET /tasks", auth.RequireAuth(taskHandler.List))
	mux.HandleFunc("POST /tasks", auth.RequireAuth(taskHandler.Create))
	mux.HandleFunc("GET /tasks/{id}", auth.RequireAuth(taskHandler.Get))
	mux.HandleFunc("PUT /tasks/{id}", auth.RequireAuth(taskHandler.Update))
	mux.HandleFunc("DELETE /tasks/{id}", auth.RequireAuth(taskHandler.Delete))
	mux.HandleFunc("PATCH /tasks/{id}/toggle", auth.RequireAuth(taskHandler.Toggle))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{server: server, users: users, tasks: tasks, auth: auth}
}

// request performs a JSON request and decodes the response body.
func (e *testEnv) request(t *testing.T, method, path, token string, body any) (int, map[string]json.RawMessage) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}

	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	payload := map[string]json.RawMessage{}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return resp.StatusCode, payload
}

// register creates a user and returns a usable bearer token.
func (e *testEnv) register(t *testing.T, email string) string {
	t.Helper()

	status, payload := e.request(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"password": "SecurePass123!",
		"name":     "Test User",
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: status = %d, body = %v", email, status, payload)
	}

	var token string
	if err := json.Unmarshal(payload["token"], &token); err != nil || token == "" {
		t.Fatalf("register %s: no token in response", email)
	}
	return token
}

// createTask persists a task through the API and returns it.
func (e *testEnv) createTask(t *testing.T, token string, nt models.NewTask) models.Task {
	t.Helper()

	status, payload := e.request(t, http.MethodPost, "/tasks", token, nt)
	if status != http.StatusCreated {
		t.Fatalf("create task: status = %d, body = %v", status, payload)
	}

	var task models.Task
	if err := json.Unmarshal(payload["task"], &task); err != nil {
		t.Fatalf("create task: decoding task: %v", err)
	}
	return task
}

func errorField(t *testing.T, payload map[string]json.RawMessage) string {
	t.Helper()
	var msg string
	_ = json.Unmarshal(payload["error"], &msg)
	return msg
}
