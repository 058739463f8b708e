package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/agencytime/internal/billing"
	"github.com/hitoshi/agencytime/internal/model"
	"github.com/hitoshi/agencytime/internal/tracking"
)

// TrackingServiceInterface は時間計測ハンドラーが必要とするサービスインターフェース。
type TrackingServiceInterface interface {
	StartSession(ctx context.Context, userID int64, note *string) (*model.TimeEntry, error)
	StopSession(ctx context.Context, userID int64, in tracking.StopInput) (*model.TimeEntry, error)
	AddManualEntry(ctx context.Context, userID int64, in tracking.ManualInput) (*model.TimeEntry, error)
	UpdateEntry(ctx context.Context, id int64, p model.Principal, in tracking.UpdateInput) (*model.TimeEntry, error)
	DeleteEntry(ctx context.Context, id int64, p model.Principal) (*model.TimeEntry, error)
	CurrentSession(ctx context.Context, p model.Principal) (*model.TimeEntry, error)
	OpenSessions(ctx context.Context, p model.Principal) ([]model.TimeEntryDetail, error)
	Entries(ctx context.Context, p model.Principal) ([]model.TimeEntryDetail, error)
	UserEntries(ctx context.Context, userID int64) ([]model.TimeEntry, error)
	AssignedCustomers(ctx context.Context, p model.Principal) ([]model.CustomerRef, error)
}

// BillingServiceInterface は請求集計のサービスインターフェース。
type BillingServiceInterface interface {
	MonthlySummary(ctx context.Context, customerID int64) ([]model.MonthlySummary, error)
}

// TimeTrackingHandler は時間計測のHTTPハンドラー。
type TimeTrackingHandler struct {
	service TrackingServiceInterface
	billing BillingServiceInterface
}

// NewTimeTrackingHandler はTimeTrackingHandlerを生成する。
func NewTimeTrackingHandler(service TrackingServiceInterface, billing BillingServiceInterface) *TimeTrackingHandler {
	return &TimeTrackingHandler{service: service, billing: billing}
}

// startRequest は計測開始リクエストのボディ。
type startRequest struct {
	Note *string `json:"note"`
}

// Start は計測を開始する。
// POST /time-tracking/start
func (h *TimeTrackingHandler) Start(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(w, r)
	if !ok {
		return
	}

	var req startRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	entry, err := h.service.StartSession(r.Context(), p.UserID, req.Note)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toTimeEntryResponse(entry))
}

// Stop は計測中のセッションを終了する。
// POST /time-tracking/stop
func (h *TimeTrackingHandler) Stop(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(w, r)
	if !ok {
		return
	}

	var in tracking.StopInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, r, err)
		return
	}

	entry, err := h.service.StopSession(r.Context(), p.UserID, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toTimeEntryResponse(entry))
}

// AddManual は手動エントリを登録する。
// POST /time-tracking/manual
func (h *TimeTrackingHandler) AddManual(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(w, r)
	if !ok {
		return
	}

	var in tracking.ManualInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, r, err)
		return
	}

	entry, err := h.service.AddManualEntry(r.Context(), p.UserID, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toTimeEntryResponse(entry))
}

// Update は終了済みエントリを更新する。
// PUT /time-tracking/{id}
func (h *TimeTrackingHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	var in tracking.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, r, err)
		return
	}

	entry, err := h.service.UpdateEntry(r.Context(), id, p, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toTimeEntryResponse(entry))
}

// Delete はエントリを削除し、削除した行を返す。
// DELETE /time-tracking/{id}
func (h *TimeTrackingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	entry, err := h.service.DeleteEntry(r.Context(), id, p)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toTimeEntryResponse(entry))
}

// Active は主体自身の計測中セッションを返す。ない場合はdataがnullになる。
// GET /time-tracking/active
func (h *TimeTrackingHandler) Active(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(w, r)
	if !ok {
		return
	}

	entry, err := h.service.CurrentSession(r.Context(), p)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if entry == nil {
		writeSuccess(w, http.StatusOK, nil)
		return
	}
	writeSuccess(w, http.StatusOK, toTimeEntryResponse(entry))
}

// AllActive は可視範囲内の計測中セッションを返す。
// GET /time-tracking/all-active
func (h *TimeTrackingHandler) AllActive(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(w, r)
	if !ok {
		return
	}

	sessions, err := h.service.OpenSessions(r.Context(), p)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toTimeEntryDetailResponses(sessions))
}

// List は可視範囲内の全エントリを返す。
// GET /time-tracking
func (h *TimeTrackingHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(w, r)
	if !ok {
		return
	}

	entries, err := h.service.Entries(r.Context(), p)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toTimeEntryDetailResponses(entries))
}

// OwnEntries は主体自身のエントリを返す。
// GET /time-tracking/entries
func (h *TimeTrackingHandler) OwnEntries(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(w, r)
	if !ok {
		return
	}

	entries, err := h.service.UserEntries(r.Context(), p.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toTimeEntryResponses(entries))
}

// AssignedCustomers は主体に割り当てられた顧客を返す。
// GET /time-tracking/assigned-customers
func (h *TimeTrackingHandler) AssignedCustomers(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(w, r)
	if !ok {
		return
	}

	refs, err := h.service.AssignedCustomers(r.Context(), p)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, toCustomerRefResponses(refs))
}

// MonthlySummary は顧客の月次集計を返す。?format=xlsx の場合はXLSXファイルを返す。
// GET /time-tracking/{id}/summary（管理者のみ）
func (h *TimeTrackingHandler) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	customerID, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	rows, err := h.billing.MonthlySummary(r.Context(), customerID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") != "xlsx" {
		writeSuccess(w, http.StatusOK, toMonthlySummaryResponses(rows))
		return
	}

	// ヘッダー送信前にファイル全体を生成する
	var buf bytes.Buffer
	if err := billing.WriteXLSX(&buf, customerID, rows); err != nil {
		slog.Error("failed to render summary export",
			slog.Int64("customer_id", customerID),
			slog.String("error", err.Error()),
		)
		handleServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", billing.XLSXContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+billing.XLSXFilename(customerID)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
