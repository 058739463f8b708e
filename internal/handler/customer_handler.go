package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/agencytime/internal/catalog"
	"github.com/hitoshi/agencytime/internal/model"
)

// CatalogServiceInterface はマスタデータ管理のサービスインターフェース。
type CatalogServiceInterface interface {
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*model.Customer, error)
	CreateCustomer(ctx context.Context, in catalog.CustomerInput) (*model.Customer, error)
	UpdateCustomer(ctx context.Context, id int64, in catalog.CustomerInput) (*model.Customer, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
	GetProject(ctx context.Context, id int64) (*model.Project, error)
	CreateProject(ctx context.Context, in catalog.NameInput) (*model.Project, error)
	UpdateProject(ctx context.Context, id int64, in catalog.NameInput) (*model.Project, error)
	DeleteProject(ctx context.Context, id int64) error
	ListTasks(ctx context.Context) ([]model.Task, error)
	GetTask(ctx context.Context, id int64) (*model.Task, error)
	CreateTask(ctx context.Context, in catalog.NameInput) (*model.Task, error)
	UpdateTask(ctx context.Context, id int64, in catalog.NameInput) (*model.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	ListUsers(ctx context.Context) ([]model.User, error)
}

// AssignmentServiceInterface は顧客割り当てのサービスインターフェース。
type AssignmentServiceInterface interface {
	Assign(ctx context.Context, customerID, userID int64) error
	Unassign(ctx context.Context, customerID, userID int64) (bool, error)
	ListUsersForCustomer(ctx context.Context, customerID int64) ([]model.User, error)
	ListCustomersForUser(ctx context.Context, userID int64) ([]model.CustomerRef, error)
}

// CustomerHandler は顧客と割り当て管理のHTTPハンドラー。ルーティングで管理者に限定する。
type CustomerHandler struct {
	catalog     CatalogServiceInterface
	assignments AssignmentServiceInterface
}

// NewCustomerHandler はCustomerHandlerを生成する。
func NewCustomerHandler(catalog CatalogServiceInterface, assignments AssignmentServiceInterface) *CustomerHandler {
	return &CustomerHandler{catalog: catalog, assignments: assignments}
}

// List は全顧客を返す。
// GET /customers
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	customers, err := h.catalog.ListCustomers(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	out := make([]customerResponse, 0, len(customers))
	for i := range customers {
		out = append(out, toCustomerResponse(&customers[i]))
	}
	writeSuccess(w, http.StatusOK, out)
}

// Get は顧客を1件返す。
// GET /customers/{customerID}
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "customerID")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	c, err := h.catalog.GetCustomer(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toCustomerResponse(c))
}

// Create は顧客を作成する。
// POST /customers
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in catalog.CustomerInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, r, err)
		return
	}
	c, err := h.catalog.CreateCustomer(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toCustomerResponse(c))
}

// Update は顧客情報を更新する。
// PUT /customers/{customerID}
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "customerID")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	var in catalog.CustomerInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, r, err)
		return
	}
	c, err := h.catalog.UpdateCustomer(r.Context(), id, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toCustomerResponse(c))
}

// assignRequest は割り当て作成リクエストのボディ。
type assignRequest struct {
	UserID int64 `json:"user_id"`
}

// AssignUser はユーザーを顧客に割り当てる。既に割り当て済みでも成功とする。
// POST /customers/{customerID}/users
func (h *CustomerHandler) AssignUser(w http.ResponseWriter, r *http.Request) {
	customerID, err := parseIDParam(r, "customerID")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := h.assignments.Assign(r.Context(), customerID, req.UserID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]int64{"customer_id": customerID, "user_id": req.UserID})
}

// ListUsers は顧客に割り当てられたユーザーを返す。
// GET /customers/{customerID}/users
func (h *CustomerHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	customerID, err := parseIDParam(r, "customerID")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	users, err := h.assignments.ListUsersForCustomer(r.Context(), customerID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toUserResponses(users))
}

// UnassignUser は割り当てを解除する。存在しない割り当ては404を返す。
// DELETE /customers/{customerID}/users/{userID}
func (h *CustomerHandler) UnassignUser(w http.ResponseWriter, r *http.Request) {
	customerID, err := parseIDParam(r, "customerID")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	userID, err := parseIDParam(r, "userID")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	removed, err := h.assignments.Unassign(r.Context(), customerID, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !removed {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("Assignment not found."))
		return
	}
	writeSuccess(w, http.StatusOK, map[string]bool{"removed": true})
}

// CustomersOfUser は指定ユーザーに割り当てられた顧客を返す。
// GET /users/{userID}/customers
func (h *CustomerHandler) CustomersOfUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "userID")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	refs, err := h.assignments.ListCustomersForUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toCustomerRefResponses(refs))
}
