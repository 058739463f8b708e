package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/agencytime/internal/catalog"
	"github.com/hitoshi/agencytime/internal/model"
	"github.com/hitoshi/agencytime/internal/tracking"
)

// --- モック定義 ---

// mockTrackingService はTrackingServiceInterfaceのモック実装。
type mockTrackingService struct {
	startFn             func(ctx context.Context, userID int64, note *string) (*model.TimeEntry, error)
	stopFn              func(ctx context.Context, userID int64, in tracking.StopInput) (*model.TimeEntry, error)
	manualFn            func(ctx context.Context, userID int64, in tracking.ManualInput) (*model.TimeEntry, error)
	updateFn            func(ctx context.Context, id int64, p model.Principal, in tracking.UpdateInput) (*model.TimeEntry, error)
	deleteFn            func(ctx context.Context, id int64, p model.Principal) (*model.TimeEntry, error)
	currentFn           func(ctx context.Context, p model.Principal) (*model.TimeEntry, error)
	openFn              func(ctx context.Context, p model.Principal) ([]model.TimeEntryDetail, error)
	entriesFn           func(ctx context.Context, p model.Principal) ([]model.TimeEntryDetail, error)
	userEntriesFn       func(ctx context.Context, userID int64) ([]model.TimeEntry, error)
	assignedCustomersFn func(ctx context.Context, p model.Principal) ([]model.CustomerRef, error)
}

func (m *mockTrackingService) StartSession(ctx context.Context, userID int64, note *string) (*model.TimeEntry, error) {
	return m.startFn(ctx, userID, note)
}

func (m *mockTrackingService) StopSession(ctx context.Context, userID int64, in tracking.StopInput) (*model.TimeEntry, error) {
	return m.stopFn(ctx, userID, in)
}

func (m *mockTrackingService) AddManualEntry(ctx context.Context, userID int64, in tracking.ManualInput) (*model.TimeEntry, error) {
	return m.manualFn(ctx, userID, in)
}

func (m *mockTrackingService) UpdateEntry(ctx context.Context, id int64, p model.Principal, in tracking.UpdateInput) (*model.TimeEntry, error) {
	return m.updateFn(ctx, id, p, in)
}

func (m *mockTrackingService) DeleteEntry(ctx context.Context, id int64, p model.Principal) (*model.TimeEntry, error) {
	return m.deleteFn(ctx, id, p)
}

func (m *mockTrackingService) CurrentSession(ctx context.Context, p model.Principal) (*model.TimeEntry, error) {
	return m.currentFn(ctx, p)
}

func (m *mockTrackingService) OpenSessions(ctx context.Context, p model.Principal) ([]model.TimeEntryDetail, error) {
	return m.openFn(ctx, p)
}

func (m *mockTrackingService) Entries(ctx context.Context, p model.Principal) ([]model.TimeEntryDetail, error) {
	return m.entriesFn(ctx, p)
}

func (m *mockTrackingService) UserEntries(ctx context.Context, userID int64) ([]model.TimeEntry, error) {
	return m.userEntriesFn(ctx, userID)
}

func (m *mockTrackingService) AssignedCustomers(ctx context.Context, p model.Principal) ([]model.CustomerRef, error) {
	return m.assignedCustomersFn(ctx, p)
}

// mockBillingService はBillingServiceInterfaceのモック実装。
type mockBillingService struct {
	monthlyFn func(ctx context.Context, customerID int64) ([]model.MonthlySummary, error)
}

func (m *mockBillingService) MonthlySummary(ctx context.Context, customerID int64) ([]model.MonthlySummary, error) {
	return m.monthlyFn(ctx, customerID)
}

// mockCatalogService はCatalogServiceInterfaceのモック実装。
type mockCatalogService struct {
	listCustomersFn  func(ctx context.Context) ([]model.Customer, error)
	getCustomerFn    func(ctx context.Context, id int64) (*model.Customer, error)
	createCustomerFn func(ctx context.Context, in catalog.CustomerInput) (*model.Customer, error)
	updateCustomerFn func(ctx context.Context, id int64, in catalog.CustomerInput) (*model.Customer, error)
	getProjectFn     func(ctx context.Context, id int64) (*model.Project, error)
	createProjectFn  func(ctx context.Context, in catalog.NameInput) (*model.Project, error)
	updateProjectFn  func(ctx context.Context, id int64, in catalog.NameInput) (*model.Project, error)
	deleteProjectFn  func(ctx context.Context, id int64) error
	getTaskFn        func(ctx context.Context, id int64) (*model.Task, error)
	createTaskFn     func(ctx context.Context, in catalog.NameInput) (*model.Task, error)
	updateTaskFn     func(ctx context.Context, id int64, in catalog.NameInput) (*model.Task, error)
	deleteTaskFn     func(ctx context.Context, id int64) error
}

func (m *mockCatalogService) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	return m.listCustomersFn(ctx)
}

func (m *mockCatalogService) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	return m.getCustomerFn(ctx, id)
}

func (m *mockCatalogService) CreateCustomer(ctx context.Context, in catalog.CustomerInput) (*model.Customer, error) {
	return m.createCustomerFn(ctx, in)
}

func (m *mockCatalogService) UpdateCustomer(ctx context.Context, id int64, in catalog.CustomerInput) (*model.Customer, error) {
	return m.updateCustomerFn(ctx, id, in)
}

func (m *mockCatalogService) ListProjects(ctx context.Context) ([]model.Project, error) {
	return []model.Project{{ID: 1, Name: "Website"}}, nil
}

func (m *mockCatalogService) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	return m.getProjectFn(ctx, id)
}

func (m *mockCatalogService) CreateProject(ctx context.Context, in catalog.NameInput) (*model.Project, error) {
	return m.createProjectFn(ctx, in)
}

func (m *mockCatalogService) UpdateProject(ctx context.Context, id int64, in catalog.NameInput) (*model.Project, error) {
	return m.updateProjectFn(ctx, id, in)
}

func (m *mockCatalogService) DeleteProject(ctx context.Context, id int64) error {
	return m.deleteProjectFn(ctx, id)
}

func (m *mockCatalogService) ListTasks(ctx context.Context) ([]model.Task, error) {
	return []model.Task{{ID: 1, Name: "Design"}}, nil
}

func (m *mockCatalogService) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	return m.getTaskFn(ctx, id)
}

func (m *mockCatalogService) CreateTask(ctx context.Context, in catalog.NameInput) (*model.Task, error) {
	return m.createTaskFn(ctx, in)
}

func (m *mockCatalogService) UpdateTask(ctx context.Context, id int64, in catalog.NameInput) (*model.Task, error) {
	return m.updateTaskFn(ctx, id, in)
}

func (m *mockCatalogService) DeleteTask(ctx context.Context, id int64) error {
	return m.deleteTaskFn(ctx, id)
}

func (m *mockCatalogService) ListUsers(ctx context.Context) ([]model.User, error) {
	return []model.User{{ID: 1, Username: "alice", Role: model.RoleUser}}, nil
}

// mockAssignmentService はAssignmentServiceInterfaceのモック実装。
type mockAssignmentService struct {
	assignFn    func(ctx context.Context, customerID, userID int64) error
	unassignFn  func(ctx context.Context, customerID, userID int64) (bool, error)
	listUsersFn func(ctx context.Context, customerID int64) ([]model.User, error)
	customersFn func(ctx context.Context, userID int64) ([]model.CustomerRef, error)
}

func (m *mockAssignmentService) Assign(ctx context.Context, customerID, userID int64) error {
	return m.assignFn(ctx, customerID, userID)
}

func (m *mockAssignmentService) Unassign(ctx context.Context, customerID, userID int64) (bool, error) {
	return m.unassignFn(ctx, customerID, userID)
}

func (m *mockAssignmentService) ListUsersForCustomer(ctx context.Context, customerID int64) ([]model.User, error) {
	return m.listUsersFn(ctx, customerID)
}

func (m *mockAssignmentService) ListCustomersForUser(ctx context.Context, userID int64) ([]model.CustomerRef, error) {
	return m.customersFn(ctx, userID)
}

// tokenResolver はトークン文字列をそのまま主体に対応付けるPrincipalResolver。
type tokenResolver struct{}

func (tokenResolver) Resolve(ctx context.Context, token string) (model.Principal, error) {
	switch token {
	case "admin":
		return model.Principal{UserID: 1, Role: model.RoleAdmin}, nil
	case "alice":
		return model.Principal{UserID: 10, Role: model.RoleUser}, nil
	case "bob":
		return model.Principal{UserID: 11, Role: model.RoleUser}, nil
	}
	return model.Principal{}, errors.New("unknown token")
}

type stubHealth struct{ err error }

func (s stubHealth) PingContext(ctx context.Context) error { return s.err }

// --- テストヘルパー ---

type testDeps struct {
	tracking    *mockTrackingService
	billing     *mockBillingService
	catalog     *mockCatalogService
	assignments *mockAssignmentService
	health      stubHealth
}

func newTestDeps() *testDeps {
	return &testDeps{
		tracking:    &mockTrackingService{},
		billing:     &mockBillingService{},
		catalog:     &mockCatalogService{},
		assignments: &mockAssignmentService{},
	}
}

func (d *testDeps) router() http.Handler {
	return NewRouter(&RouterDeps{
		PrincipalResolver: tokenResolver{},
		CORSAllowedOrigin: "http://localhost:3000",
		HealthChecker:     d.health,
		TrackingService:   d.tracking,
		BillingService:    d.billing,
		CatalogService:    d.catalog,
		AssignmentService: d.assignments,
	})
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// envelope はレスポンスボディの共通部分。
type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Code     string          `json:"code"`
	Message  string          `json:"message"`
	Category string          `json:"category"`
	Action   string          `json:"action"`
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return env
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, status, w.Body.String())
	}
	env := parseEnvelope(t, w)
	if env.Success {
		t.Error("success should be false")
	}
	if message != "" && env.Message != message {
		t.Errorf("message = %q, want %q", env.Message, message)
	}
}

func sampleEntry(id, userID int64) *model.TimeEntry {
	return &model.TimeEntry{ID: id, UserID: userID, StartTime: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}
