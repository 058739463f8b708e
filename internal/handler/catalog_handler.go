package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/agencytime/internal/catalog"
	"github.com/hitoshi/agencytime/internal/model"
)

// CatalogHandler はプロジェクト・タスク種別・ユーザー一覧のHTTPハンドラー。
type CatalogHandler struct {
	service CatalogServiceInterface
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(service CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// ListProjects は全プロジェクトを返す。
// GET /projects
func (h *CatalogHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ListProjects(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	out := make([]namedResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, namedResponse{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt})
	}
	writeSuccess(w, http.StatusOK, out)
}

// CreateProject はプロジェクトを作成する。
// POST /projects（管理者のみ）
func (h *CatalogHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var in catalog.NameInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, r, err)
		return
	}
	p, err := h.service.CreateProject(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, namedResponse{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt})
}

// GetProject はプロジェクトを1件返す。
// GET /projects/{id}
func (h *CatalogHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	p, err := h.service.GetProject(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, namedResponse{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt})
}

// UpdateProject はプロジェクト名を変更する。
// PUT /projects/{id}（管理者のみ）
func (h *CatalogHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	var in catalog.NameInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, r, err)
		return
	}
	p, err := h.service.UpdateProject(r.Context(), id, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, namedResponse{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt})
}

// DeleteProject はプロジェクトを削除する。
// DELETE /projects/{id}（管理者のみ）
func (h *CatalogHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.service.DeleteProject)
}

// ListTasks は全タスク種別を返す。
// GET /tasks
func (h *CatalogHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.ListTasks(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toNamedTaskResponses(tasks))
}

// CreateTask はタスク種別を作成する。
// POST /tasks（管理者のみ）
func (h *CatalogHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var in catalog.NameInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, r, err)
		return
	}
	task, err := h.service.CreateTask(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, namedResponse{ID: task.ID, Name: task.Name, CreatedAt: task.CreatedAt})
}

// GetTask はタスク種別を1件返す。
// GET /tasks/{id}
func (h *CatalogHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	task, err := h.service.GetTask(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, namedResponse{ID: task.ID, Name: task.Name, CreatedAt: task.CreatedAt})
}

// UpdateTask はタスク種別名を変更する。
// PUT /tasks/{id}（管理者のみ）
func (h *CatalogHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	var in catalog.NameInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, r, err)
		return
	}
	task, err := h.service.UpdateTask(r.Context(), id, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, namedResponse{ID: task.ID, Name: task.Name, CreatedAt: task.CreatedAt})
}

// DeleteTask はタスク種別を削除する。
// DELETE /tasks/{id}（管理者のみ）
func (h *CatalogHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.service.DeleteTask)
}

func (h *CatalogHandler) deleteByID(w http.ResponseWriter, r *http.Request, del func(context.Context, int64) error) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := del(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]bool{"deleted": true})
}

// ListUsers は全ユーザーを返す。
// GET /users（管理者のみ）
func (h *CatalogHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toUserResponses(users))
}

func toNamedTaskResponses(tasks []model.Task) []namedResponse {
	out := make([]namedResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, namedResponse{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt})
	}
	return out
}
