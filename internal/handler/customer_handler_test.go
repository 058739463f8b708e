package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/hitoshi/agencytime/internal/catalog"
	"github.com/hitoshi/agencytime/internal/model"
)

func TestCustomers_RequireAdmin(t *testing.T) {
	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/customers"},
		{http.MethodPost, "/customers"},
		{http.MethodGet, "/customers/1"},
		{http.MethodPut, "/customers/1"},
		{http.MethodGet, "/customers/1/users"},
		{http.MethodPost, "/customers/1/users"},
		{http.MethodDelete, "/customers/1/users/2"},
		{http.MethodGet, "/users"},
		{http.MethodGet, "/users/2/customers"},
		{http.MethodPost, "/projects"},
		{http.MethodPut, "/projects/1"},
		{http.MethodDelete, "/projects/1"},
		{http.MethodPost, "/tasks"},
		{http.MethodPut, "/tasks/1"},
		{http.MethodDelete, "/tasks/1"},
	}

	d := newTestDeps()
	router := d.router()
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			w := doRequest(t, router, p.method, p.path, "alice", `{}`)
			expectError(t, w, http.StatusForbidden, "Access denied. Admins only.")
		})
	}
}

func TestCreateCustomer_Created(t *testing.T) {
	d := newTestDeps()
	d.catalog.createCustomerFn = func(ctx context.Context, in catalog.CustomerInput) (*model.Customer, error) {
		if in.Name == nil || *in.Name != "Acme" {
			t.Errorf("name = %v, want Acme", in.Name)
		}
		if in.HourlyFee == nil || *in.HourlyFee != 80 {
			t.Errorf("hourly_fee = %v, want 80", in.HourlyFee)
		}
		return &model.Customer{ID: 100, Name: *in.Name, HourlyFee: *in.HourlyFee}, nil
	}

	w := doRequest(t, d.router(), http.MethodPost, "/customers", "admin", `{"name":"Acme","hourly_fee":80}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", w.Code, w.Body.String())
	}
	var data customerResponse
	if err := json.Unmarshal(parseEnvelope(t, w).Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.ID != 100 || data.HourlyFee != 80 {
		t.Errorf("data = %+v", data)
	}
}

func TestCreateCustomer_ValidationError(t *testing.T) {
	d := newTestDeps()
	d.catalog.createCustomerFn = func(ctx context.Context, in catalog.CustomerInput) (*model.Customer, error) {
		return nil, model.NewValidationError("name is required.")
	}

	w := doRequest(t, d.router(), http.MethodPost, "/customers", "admin", `{"hourly_fee":80}`)

	expectError(t, w, http.StatusBadRequest, "name is required.")
}

func TestGetCustomer_NotFound(t *testing.T) {
	d := newTestDeps()
	d.catalog.getCustomerFn = func(ctx context.Context, id int64) (*model.Customer, error) {
		return nil, model.NewNotFoundError("Customer not found.")
	}

	w := doRequest(t, d.router(), http.MethodGet, "/customers/999", "admin", nil)

	expectError(t, w, http.StatusNotFound, "Customer not found.")
}

func TestUpdateCustomer_PassesID(t *testing.T) {
	d := newTestDeps()
	d.catalog.updateCustomerFn = func(ctx context.Context, id int64, in catalog.CustomerInput) (*model.Customer, error) {
		if id != 100 {
			t.Errorf("id = %d, want 100", id)
		}
		return &model.Customer{ID: id, Name: "Acme Corp", HourlyFee: 90}, nil
	}

	w := doRequest(t, d.router(), http.MethodPut, "/customers/100", "admin", `{"name":"Acme Corp","hourly_fee":90}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestAssignUser(t *testing.T) {
	d := newTestDeps()
	var gotCustomer, gotUser int64
	d.assignments.assignFn = func(ctx context.Context, customerID, userID int64) error {
		gotCustomer, gotUser = customerID, userID
		return nil
	}

	w := doRequest(t, d.router(), http.MethodPost, "/customers/100/users", "admin", `{"user_id":10}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	if gotCustomer != 100 || gotUser != 10 {
		t.Errorf("assign(%d, %d), want (100, 10)", gotCustomer, gotUser)
	}
}

func TestAssignUser_UnknownUser(t *testing.T) {
	d := newTestDeps()
	d.assignments.assignFn = func(ctx context.Context, customerID, userID int64) error {
		return model.NewValidationError("Invalid user_id.")
	}

	w := doRequest(t, d.router(), http.MethodPost, "/customers/100/users", "admin", `{"user_id":0}`)

	expectError(t, w, http.StatusBadRequest, "Invalid user_id.")
}

func TestUnassignUser(t *testing.T) {
	tests := []struct {
		name       string
		removed    bool
		wantStatus int
	}{
		{"removed", true, http.StatusOK},
		{"not assigned", false, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			d.assignments.unassignFn = func(ctx context.Context, customerID, userID int64) (bool, error) {
				if customerID != 100 || userID != 10 {
					t.Errorf("unassign(%d, %d), want (100, 10)", customerID, userID)
				}
				return tt.removed, nil
			}

			w := doRequest(t, d.router(), http.MethodDelete, "/customers/100/users/10", "admin", nil)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestListCustomerUsers(t *testing.T) {
	d := newTestDeps()
	d.assignments.listUsersFn = func(ctx context.Context, customerID int64) ([]model.User, error) {
		return []model.User{{ID: 10, Username: "alice", Role: model.RoleUser}}, nil
	}

	w := doRequest(t, d.router(), http.MethodGet, "/customers/100/users", "admin", nil)

	var data []userResponse
	if err := json.Unmarshal(parseEnvelope(t, w).Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(data) != 1 || data[0].Role != "user" {
		t.Errorf("data = %+v", data)
	}
}

func TestCustomersOfUser(t *testing.T) {
	d := newTestDeps()
	d.assignments.customersFn = func(ctx context.Context, userID int64) ([]model.CustomerRef, error) {
		if userID != 10 {
			t.Errorf("userID = %d, want 10", userID)
		}
		return []model.CustomerRef{{ID: 100, Name: "Acme"}}, nil
	}

	w := doRequest(t, d.router(), http.MethodGet, "/users/10/customers", "admin", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestCatalog_ReadableByUsers(t *testing.T) {
	d := newTestDeps()
	router := d.router()

	for _, path := range []string{"/projects", "/tasks"} {
		t.Run(path, func(t *testing.T) {
			w := doRequest(t, router, http.MethodGet, path, "alice", nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			var data []namedResponse
			if err := json.Unmarshal(parseEnvelope(t, w).Data, &data); err != nil {
				t.Fatalf("decode data: %v", err)
			}
			if len(data) != 1 {
				t.Errorf("len(data) = %d, want 1", len(data))
			}
		})
	}
}

func TestCreateProject_Admin(t *testing.T) {
	d := newTestDeps()
	d.catalog.createProjectFn = func(ctx context.Context, in catalog.NameInput) (*model.Project, error) {
		return &model.Project{ID: 2, Name: in.Name}, nil
	}

	w := doRequest(t, d.router(), http.MethodPost, "/projects", "admin", `{"name":"Rebrand"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
}

func TestCreateTask_Admin(t *testing.T) {
	d := newTestDeps()
	d.catalog.createTaskFn = func(ctx context.Context, in catalog.NameInput) (*model.Task, error) {
		return nil, model.NewValidationError("name is required.")
	}

	w := doRequest(t, d.router(), http.MethodPost, "/tasks", "admin", `{"name":""}`)

	expectError(t, w, http.StatusBadRequest, "name is required.")
}

func TestGetProject_ReadableByUsers(t *testing.T) {
	d := newTestDeps()
	d.catalog.getProjectFn = func(ctx context.Context, id int64) (*model.Project, error) {
		if id != 7 {
			return nil, model.NewNotFoundError("Project not found.")
		}
		return &model.Project{ID: 7, Name: "Website"}, nil
	}
	router := d.router()

	w := doRequest(t, router, http.MethodGet, "/projects/7", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var data namedResponse
	if err := json.Unmarshal(parseEnvelope(t, w).Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.ID != 7 || data.Name != "Website" {
		t.Errorf("data = %+v", data)
	}

	w = doRequest(t, router, http.MethodGet, "/projects/8", "alice", nil)
	expectError(t, w, http.StatusNotFound, "Project not found.")
}

func TestUpdateProject_Admin(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{name: "renamed", path: "/projects/3", wantStatus: http.StatusOK},
		{name: "duplicate", path: "/projects/3", err: model.NewDuplicateNameError("Project with this name already exists."),
			wantStatus: http.StatusConflict, wantMsg: "Project with this name already exists."},
		{name: "missing", path: "/projects/3", err: model.NewNotFoundError("Project not found."),
			wantStatus: http.StatusNotFound, wantMsg: "Project not found."},
		{name: "invalid id", path: "/projects/abc", wantStatus: http.StatusBadRequest, wantMsg: "Invalid id."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			d.catalog.updateProjectFn = func(ctx context.Context, id int64, in catalog.NameInput) (*model.Project, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				return &model.Project{ID: id, Name: in.Name}, nil
			}

			w := doRequest(t, d.router(), http.MethodPut, tt.path, "admin", `{"name":"Portal"}`)

			if tt.wantMsg != "" {
				expectError(t, w, tt.wantStatus, tt.wantMsg)
				return
			}
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var data namedResponse
			if err := json.Unmarshal(parseEnvelope(t, w).Data, &data); err != nil {
				t.Fatalf("decode data: %v", err)
			}
			if data.ID != 3 || data.Name != "Portal" {
				t.Errorf("data = %+v", data)
			}
		})
	}
}

func TestDeleteProject_Admin(t *testing.T) {
	d := newTestDeps()
	d.catalog.deleteProjectFn = func(ctx context.Context, id int64) error {
		if id == 5 {
			return model.NewInUseError("Project cannot be deleted, it is assigned to a tracked time.")
		}
		return nil
	}
	router := d.router()

	w := doRequest(t, router, http.MethodDelete, "/projects/4", "admin", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	w = doRequest(t, router, http.MethodDelete, "/projects/5", "admin", nil)
	expectError(t, w, http.StatusConflict, "Project cannot be deleted, it is assigned to a tracked time.")
}

func TestTaskRoutes_Admin(t *testing.T) {
	d := newTestDeps()
	d.catalog.getTaskFn = func(ctx context.Context, id int64) (*model.Task, error) {
		return &model.Task{ID: id, Name: "Design"}, nil
	}
	d.catalog.updateTaskFn = func(ctx context.Context, id int64, in catalog.NameInput) (*model.Task, error) {
		return nil, model.NewDuplicateNameError("Task with this name already exists.")
	}
	d.catalog.deleteTaskFn = func(ctx context.Context, id int64) error {
		return model.NewNotFoundError("Task not found.")
	}
	router := d.router()

	w := doRequest(t, router, http.MethodGet, "/tasks/2", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", w.Code)
	}

	w = doRequest(t, router, http.MethodPut, "/tasks/2", "admin", `{"name":"Design"}`)
	expectError(t, w, http.StatusConflict, "Task with this name already exists.")

	w = doRequest(t, router, http.MethodDelete, "/tasks/2", "admin", nil)
	expectError(t, w, http.StatusNotFound, "Task not found.")
}
