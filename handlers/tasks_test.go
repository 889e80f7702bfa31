package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"taskflow/models"
)

func TestCreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "a@example.com")

	tests := []struct {
		name string
		body map[string]string
	}{
		{name: "Missing title", body: map[string]string{"priority": "Low", "due_date": "2025-01-01"}},
		{name: "Missing priority", body: map[string]string{"title": "Buy milk", "due_date": "2025-01-01"}},
		{name: "Missing due date", body: map[string]string{"title": "Buy milk", "priority": "Low"}},
		{name: "Bad priority", body: map[string]string{"title": "Buy milk", "priority": "Urgent", "due_date": "2025-01-01"}},
		{name: "Bad due date", body: map[string]string{"title": "Buy milk", "priority": "Low", "due_date": "01/01/2025"}},
		{name: "Whitespace title", body: map[string]string{"title": "   ", "priority": "Low", "due_date": "2025-01-01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := env.request(t, http.MethodPost, "/tasks", token, tt.body)
			if status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", status)
			}
		})
	}

	// None of the rejected requests persisted a row.
	status, payload := env.request(t, http.MethodGet, "/tasks", token, nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d, want 200", status)
	}
	var count int
	if err := json.Unmarshal(payload["count"], &count); err != nil || count != 0 {
		t.Errorf("count = %d after rejected creates, want 0", count)
	}
}

func TestCreateGetRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "a@example.com")

	created := env.createTask(t, token, models.NewTask{
		Title:       "Buy milk",
		Description: "Two liters, whole",
		Priority:    "Low",
		DueDate:     "2025-01-01",
	})

	if created.ID == 0 {
		t.Error("created task has no generated id")
	}
	if created.Status != models.StatusPending {
		t.Errorf("created status = %q, want Pending", created.Status)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("created task missing timestamps")
	}

	status, payload := env.request(t, http.MethodGet, fmt.Sprintf("/tasks/%d", created.ID), token, nil)
	if status != http.StatusOK {
		t.Fatalf("get status = %d, want 200", status)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	var fetched models.Task
	if err := json.Unmarshal(raw, &fetched); err != nil {
		t.Fatalf("decoding fetched task: %v", err)
	}

	if fetched.Title != created.Title || fetched.Priority != created.Priority || fetched.DueDate != created.DueDate {
		t.Errorf("fetched = %+v, want same fields as created %+v", fetched, created)
	}
	if fetched.Description == nil || *fetched.Description != "Two liters, whole" {
		t.Errorf("fetched description = %v, want original", fetched.Description)
	}
}

func TestUpdateIdempotent(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "a@example.com")
	task := env.createTask(t, token, models.NewTask{Title: "Draft", Priority: "Medium", DueDate: "2025-03-01"})

	patch := map[string]string{"title": "Final", "priority": "High"}
	path := fmt.Sprintf("/tasks/%d", task.ID)

	var results [2]models.Task
	for i := range results {
		status, payload := env.request(t, http.MethodPut, path, token, patch)
		if status != http.StatusOK {
			t.Fatalf("update %d status = %d, want 200", i, status)
		}
		if err := json.Unmarshal(payload["task"], &results[i]); err != nil {
			t.Fatalf("decoding updated task: %v", err)
		}
	}

	if results[0].Title != results[1].Title || results[0].Priority != results[1].Priority ||
		results[0].Status != results[1].Status || results[0].DueDate != results[1].DueDate {
		t.Errorf("repeated update changed stored fields: %+v vs %+v", results[0], results[1])
	}
	if !results[1].UpdatedAt.After(results[0].UpdatedAt) {
		t.Error("second update did not refresh the last-updated timestamp")
	}
	// Unspecified fields survive the partial update.
	if results[1].DueDate != "2025-03-01" {
		t.Errorf("due date = %q, want untouched original", results[1].DueDate)
	}
}

func TestUpdateEmptyBody(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "a@example.com")
	task := env.createTask(t, token, models.NewTask{Title: "Draft", Priority: "Low", DueDate: "2025-03-01"})

	status, payload := env.request(t, http.MethodPut, fmt.Sprintf("/tasks/%d", task.ID), token, map[string]string{})
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
	if msg := errorField(t, payload); msg != "No fields to update" {
		t.Errorf("error = %q, want %q", msg, "No fields to update")
	}
}

func TestToggleScenario(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "a@example.com")

	task := env.createTask(t, token, models.NewTask{Title: "Buy milk", Priority: "Low", DueDate: "2025-01-01"})
	if task.Status != "Pending" {
		t.Fatalf("created status = %q, want Pending", task.Status)
	}

	path := fmt.Sprintf("/tasks/%d/toggle", task.ID)

	for i, want := range []string{"Completed", "Pending"} {
		status, payload := env.request(t, http.MethodPatch, path, token, nil)
		if status != http.StatusOK {
			t.Fatalf("toggle %d status = %d, want 200", i, status)
		}
		var toggled models.Task
		if err := json.Unmarshal(payload["task"], &toggled); err != nil {
			t.Fatalf("decoding toggled task: %v", err)
		}
		if toggled.Status != want {
			t.Errorf("toggle %d status = %q, want %q", i, toggled.Status, want)
		}
	}
}

func TestListFilters(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "a@example.com")

	env.createTask(t, token, models.NewTask{Title: "Buy milk", Description: "from the corner shop", Priority: "Low", DueDate: "2025-01-01"})
	env.createTask(t, token, models.NewTask{Title: "File report", Priority: "High", DueDate: "2025-01-02"})
	report := env.createTask(t, token, models.NewTask{Title: "Review REPORT draft", Priority: "Medium", DueDate: "2025-01-03"})
	env.request(t, http.MethodPatch, fmt.Sprintf("/tasks/%d/toggle", report.ID), token, nil)

	listTasks := func(query string) (int, []models.Task) {
		t.Helper()
		status, payload := env.request(t, http.MethodGet, "/tasks"+query, token, nil)
		if status != http.StatusOK {
			t.Fatalf("list %q status = %d, want 200", query, status)
		}
		var tasks []models.Task
		if err := json.Unmarshal(payload["tasks"], &tasks); err != nil {
			t.Fatalf("decoding task list: %v", err)
		}
		var count int
		if err := json.Unmarshal(payload["count"], &count); err != nil {
			t.Fatalf("decoding count: %v", err)
		}
		if count != len(tasks) {
			t.Errorf("count = %d, want %d", count, len(tasks))
		}
		return count, tasks
	}

	t.Run("Newest first", func(t *testing.T) {
		_, tasks := listTasks("")
		for i := 1; i < len(tasks); i++ {
			if tasks[i].CreatedAt.After(tasks[i-1].CreatedAt) {
				t.Error("list is not ordered newest first")
			}
		}
	})

	t.Run("Status filter", func(t *testing.T) {
		_, tasks := listTasks("?status=Completed")
		if len(tasks) != 1 {
			t.Fatalf("got %d completed tasks, want 1", len(tasks))
		}
		for _, task := range tasks {
			if task.Status != "Completed" {
				t.Errorf("task %d status = %q, want Completed", task.ID, task.Status)
			}
		}
	})

	t.Run("Priority filter", func(t *testing.T) {
		_, tasks := listTasks("?priority=High")
		if len(tasks) != 1 {
			t.Fatalf("got %d high tasks, want 1", len(tasks))
		}
		for _, task := range tasks {
			if task.Priority != "High" {
				t.Errorf("task %d priority = %q, want High", task.ID, task.Priority)
			}
		}
	})

	t.Run("Case-insensitive search over title and description", func(t *testing.T) {
		_, tasks := listTasks("?search=report")
		if len(tasks) != 2 {
			t.Fatalf("got %d matches for report, want 2", len(tasks))
		}

		_, tasks = listTasks("?search=CORNER")
		if len(tasks) != 1 {
			t.Fatalf("got %d matches for CORNER, want 1 (description match)", len(tasks))
		}
	})

	t.Run("Invalid filter values ignored", func(t *testing.T) {
		count, _ := listTasks("?status=Whatever&priority=Urgent")
		if count != 3 {
			t.Errorf("count = %d, want all 3 tasks", count)
		}
	})

	t.Run("No match yields empty list and zero count", func(t *testing.T) {
		count, tasks := listTasks("?status=Completed&priority=High")
		if count != 0 || len(tasks) != 0 {
			t.Errorf("count = %d, tasks = %v, want empty", count, tasks)
		}
	})
}

func TestOwnershipIsolation(t *testing.T) {
	env := newTestEnv(t)
	tokenA := env.register(t, "a@example.com")
	tokenB := env.register(t, "b@example.com")

	task := env.createTask(t, tokenA, models.NewTask{Title: "Private", Priority: "Low", DueDate: "2025-01-01"})

	attempts := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, fmt.Sprintf("/tasks/%d", task.ID), nil},
		{http.MethodPut, fmt.Sprintf("/tasks/%d", task.ID), map[string]string{"title": "Stolen"}},
		{http.MethodDelete, fmt.Sprintf("/tasks/%d", task.ID), nil},
		{http.MethodPatch, fmt.Sprintf("/tasks/%d/toggle", task.ID), nil},
	}

	for _, a := range attempts {
		status, _ := env.request(t, a.method, a.path, tokenB, a.body)
		if status != http.StatusNotFound {
			t.Errorf("%s %s as other user: status = %d, want 404", a.method, a.path, status)
		}
	}

	// B's list never shows A's task.
	status, payload := env.request(t, http.MethodGet, "/tasks", tokenB, nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	var count int
	if err := json.Unmarshal(payload["count"], &count); err != nil || count != 0 {
		t.Errorf("other user's list count = %d, want 0", count)
	}

	// And the owner still has it intact.
	status, _ = env.request(t, http.MethodGet, fmt.Sprintf("/tasks/%d", task.ID), tokenA, nil)
	if status != http.StatusOK {
		t.Errorf("owner get status = %d, want 200", status)
	}
}

func TestDeleteThenGet(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "a@example.com")
	task := env.createTask(t, token, models.NewTask{Title: "Ephemeral", Priority: "Low", DueDate: "2025-01-01"})

	path := fmt.Sprintf("/tasks/%d", task.ID)

	status, _ := env.request(t, http.MethodDelete, path, token, nil)
	if status != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", status)
	}

	status, _ = env.request(t, http.MethodGet, path, token, nil)
	if status != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", status)
	}

	// Deleting again also reports absence.
	status, _ = env.request(t, http.MethodDelete, path, token, nil)
	if status != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", status)
	}
}

func TestTasksRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/tasks", nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{name: "No header", header: ""},
		{name: "Not bearer", header: "Basic abc123"},
		{name: "Empty token", header: "Bearer "},
		{name: "Garbage token", header: "Bearer not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := req.Clone(req.Context())
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(r)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", resp.StatusCode)
			}
		})
	}
}
