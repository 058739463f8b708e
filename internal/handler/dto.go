package handler

import (
	"time"

	"github.com/hitoshi/agencytime/internal/model"
)

// timeEntryResponse は時間エントリのAPIレスポンス。
type timeEntryResponse struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	CustomerID      *int64     `json:"customer_id"`
	ProjectID       *int64     `json:"project_id"`
	TaskID          *int64     `json:"task_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationHours   *int       `json:"duration_hours"`
	DurationMinutes *int       `json:"duration_minutes"`
	Note            *string    `json:"note"`
}

// timeEntryDetailResponse は関連名称付きの時間エントリのAPIレスポンス。
type timeEntryDetailResponse struct {
	timeEntryResponse
	Username     *string `json:"username"`
	CustomerName *string `json:"customer_name"`
	BillingType  *string `json:"billing_type"`
	ProjectName  *string `json:"project_name"`
	TaskName     *string `json:"task_name"`
}

type customerRefResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type customerResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	HourlyFee   float64   `json:"hourly_fee"`
	BillingType *string   `json:"billing_type"`
	InvoiceType *string   `json:"invoice_type"`
	TaxNumber   *string   `json:"tax_number"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type namedResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type monthlySummaryResponse struct {
	Month      string  `json:"month"`
	TotalHours float64 `json:"total_hours"`
	HourlyFee  float64 `json:"hourly_fee"`
	TotalCost  float64 `json:"total_cost"`
}

func toTimeEntryResponse(e *model.TimeEntry) timeEntryResponse {
	return timeEntryResponse{
		ID:              e.ID,
		UserID:          e.UserID,
		CustomerID:      e.CustomerID,
		ProjectID:       e.ProjectID,
		TaskID:          e.TaskID,
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		DurationHours:   e.DurationHours,
		DurationMinutes: e.DurationMinutes,
		Note:            e.Note,
	}
}

func toTimeEntryResponses(entries []model.TimeEntry) []timeEntryResponse {
	out := make([]timeEntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, toTimeEntryResponse(&entries[i]))
	}
	return out
}

func toTimeEntryDetailResponses(entries []model.TimeEntryDetail) []timeEntryDetailResponse {
	out := make([]timeEntryDetailResponse, 0, len(entries))
	for i := range entries {
		d := &entries[i]
		out = append(out, timeEntryDetailResponse{
			timeEntryResponse: toTimeEntryResponse(&d.TimeEntry),
			Username:          d.Username,
			CustomerName:      d.CustomerName,
			BillingType:       d.BillingType,
			ProjectName:       d.ProjectName,
			TaskName:          d.TaskName,
		})
	}
	return out
}

func toCustomerRefResponses(refs []model.CustomerRef) []customerRefResponse {
	out := make([]customerRefResponse, 0, len(refs))
	for _, ref := range refs {
		out = append(out, customerRefResponse{ID: ref.ID, Name: ref.Name})
	}
	return out
}

func toCustomerResponse(c *model.Customer) customerResponse {
	return customerResponse{
		ID:          c.ID,
		Name:        c.Name,
		HourlyFee:   c.HourlyFee,
		BillingType: c.BillingType,
		InvoiceType: c.InvoiceType,
		TaxNumber:   c.TaxNumber,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toUserResponses(users []model.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Role: string(u.Role)})
	}
	return out
}

func toMonthlySummaryResponses(rows []model.MonthlySummary) []monthlySummaryResponse {
	out := make([]monthlySummaryResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, monthlySummaryResponse{
			Month:      row.Month.UTC().Format("2006-01"),
			TotalHours: row.TotalHours,
			HourlyFee:  row.HourlyFee,
			TotalCost:  row.TotalCost,
		})
	}
	return out
}
