// Package catalog は顧客・プロジェクト・タスク種別などの管理用マスタデータを扱う。
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/agencytime/internal/model"
	"github.com/hitoshi/agencytime/internal/repository"
)

const (
	msgProjectNotFound  = "Project not found."
	msgProjectDuplicate = "Project with this name already exists."
	msgProjectInUse     = "Project cannot be deleted, it is assigned to a tracked time."
	msgTaskNotFound     = "Task not found."
	msgTaskDuplicate    = "Task with this name already exists."
	msgTaskInUse        = "Task cannot be deleted, it is assigned to a tracked time."
)

// CustomerInput は顧客の作成・更新の入力。
type CustomerInput struct {
	Name        *string  `json:"name" validate:"required,max=255"`
	HourlyFee   *float64 `json:"hourly_fee" validate:"required,gte=0"`
	BillingType *string  `json:"billing_type" validate:"omitempty,max=50"`
	InvoiceType *string  `json:"invoice_type" validate:"omitempty,max=50"`
	TaxNumber   *string  `json:"tax_number" validate:"omitempty,max=50"`
}

// NameInput はプロジェクト・タスク種別の作成・改名の入力。
type NameInput struct {
	Name string `json:"name" validate:"required,max=255"`
}

// Service はマスタデータ管理のサービス層。
type Service struct {
	customers repository.CustomerRepository
	projects  repository.ProjectRepository
	tasks     repository.TaskRepository
	users     repository.UserRepository
	validate  *validator.Validate
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	customers repository.CustomerRepository,
	projects repository.ProjectRepository,
	tasks repository.TaskRepository,
	users repository.UserRepository,
) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return &Service{
		customers: customers,
		projects:  projects,
		tasks:     tasks,
		users:     users,
		validate:  v,
	}
}

// ListCustomers は全顧客を返す。
func (s *Service) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	customers, err := s.customers.List(ctx)
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("顧客一覧の取得に失敗しました: %w", err))
	}
	return customers, nil
}

// GetCustomer は顧客を1件返す。
func (s *Service) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	c, err := s.customers.FindByID(ctx, id)
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("顧客の取得に失敗しました: %w", err))
	}
	if c == nil {
		return nil, model.NewNotFoundError("Customer not found.")
	}
	return c, nil
}

// CreateCustomer は顧客を作成する。
func (s *Service) CreateCustomer(ctx context.Context, in CustomerInput) (*model.Customer, error) {
	c, err := s.customerFromInput(in)
	if err != nil {
		return nil, err
	}
	if err := s.customers.Create(ctx, c); err != nil {
		return nil, model.NewStorageError(fmt.Errorf("顧客の作成に失敗しました: %w", err))
	}

	slog.Info("customer created", slog.Int64("customer_id", c.ID))
	return c, nil
}

// UpdateCustomer は顧客情報を上書きする。
func (s *Service) UpdateCustomer(ctx context.Context, id int64, in CustomerInput) (*model.Customer, error) {
	c, err := s.customerFromInput(in)
	if err != nil {
		return nil, err
	}
	c.ID = id

	updated, err := s.customers.Update(ctx, c)
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("顧客の更新に失敗しました: %w", err))
	}
	if updated == nil {
		return nil, model.NewNotFoundError("Customer not found.")
	}

	slog.Info("customer updated", slog.Int64("customer_id", id))
	return updated, nil
}

// ListProjects は全プロジェクトを返す。
func (s *Service) ListProjects(ctx context.Context) ([]model.Project, error) {
	projects, err := s.projects.List(ctx)
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err))
	}
	return projects, nil
}

// GetProject はプロジェクトを1件返す。
func (s *Service) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	p, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("プロジェクトの取得に失敗しました: %w", err))
	}
	if p == nil {
		return nil, model.NewNotFoundError(msgProjectNotFound)
	}
	return p, nil
}

// CreateProject はプロジェクトを作成する。同名のプロジェクトがある場合は競合エラーを返す。
func (s *Service) CreateProject(ctx context.Context, in NameInput) (*model.Project, error) {
	name, err := s.validName(in)
	if err != nil {
		return nil, err
	}
	p, err := s.projects.Create(ctx, name)
	if err != nil {
		return nil, catalogWriteError(err, "プロジェクトの作成に失敗しました", msgProjectDuplicate, "")
	}

	slog.Info("project created", slog.Int64("project_id", p.ID))
	return p, nil
}

// UpdateProject はプロジェクト名を変更する。
func (s *Service) UpdateProject(ctx context.Context, id int64, in NameInput) (*model.Project, error) {
	name, err := s.validName(in)
	if err != nil {
		return nil, err
	}
	p, err := s.projects.Update(ctx, id, name)
	if err != nil {
		return nil, catalogWriteError(err, "プロジェクトの更新に失敗しました", msgProjectDuplicate, "")
	}
	if p == nil {
		return nil, model.NewNotFoundError(msgProjectNotFound)
	}

	slog.Info("project renamed", slog.Int64("project_id", id))
	return p, nil
}

// DeleteProject はプロジェクトを削除する。作業記録から参照されている場合は競合エラーを返す。
func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	deleted, err := s.projects.Delete(ctx, id)
	if err != nil {
		return catalogWriteError(err, "プロジェクトの削除に失敗しました", "", msgProjectInUse)
	}
	if !deleted {
		return model.NewNotFoundError(msgProjectNotFound)
	}

	slog.Info("project deleted", slog.Int64("project_id", id))
	return nil
}

// ListTasks は全タスク種別を返す。
func (s *Service) ListTasks(ctx context.Context) ([]model.Task, error) {
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("タスク一覧の取得に失敗しました: %w", err))
	}
	return tasks, nil
}

// GetTask はタスク種別を1件返す。
func (s *Service) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("タスクの取得に失敗しました: %w", err))
	}
	if task == nil {
		return nil, model.NewNotFoundError(msgTaskNotFound)
	}
	return task, nil
}

// CreateTask はタスク種別を作成する。
func (s *Service) CreateTask(ctx context.Context, in NameInput) (*model.Task, error) {
	name, err := s.validName(in)
	if err != nil {
		return nil, err
	}
	task, err := s.tasks.Create(ctx, name)
	if err != nil {
		return nil, catalogWriteError(err, "タスクの作成に失敗しました", msgTaskDuplicate, "")
	}

	slog.Info("task created", slog.Int64("task_id", task.ID))
	return task, nil
}

// UpdateTask はタスク種別名を変更する。
func (s *Service) UpdateTask(ctx context.Context, id int64, in NameInput) (*model.Task, error) {
	name, err := s.validName(in)
	if err != nil {
		return nil, err
	}
	task, err := s.tasks.Update(ctx, id, name)
	if err != nil {
		return nil, catalogWriteError(err, "タスクの更新に失敗しました", msgTaskDuplicate, "")
	}
	if task == nil {
		return nil, model.NewNotFoundError(msgTaskNotFound)
	}

	slog.Info("task renamed", slog.Int64("task_id", id))
	return task, nil
}

// DeleteTask はタスク種別を削除する。
func (s *Service) DeleteTask(ctx context.Context, id int64) error {
	deleted, err := s.tasks.Delete(ctx, id)
	if err != nil {
		return catalogWriteError(err, "タスクの削除に失敗しました", "", msgTaskInUse)
	}
	if !deleted {
		return model.NewNotFoundError(msgTaskNotFound)
	}

	slog.Info("task deleted", slog.Int64("task_id", id))
	return nil
}

// catalogWriteError はリポジトリの書き込みエラーをAPIErrorに変換する。
func catalogWriteError(err error, op, duplicateMsg, inUseMsg string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateName) && duplicateMsg != "":
		return model.NewDuplicateNameError(duplicateMsg)
	case errors.Is(err, repository.ErrInUse) && inUseMsg != "":
		return model.NewInUseError(inUseMsg)
	default:
		return model.NewStorageError(fmt.Errorf("%s: %w", op, err))
	}
}

// ListUsers は全ユーザーを返す。
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err))
	}
	return users, nil
}

func (s *Service) customerFromInput(in CustomerInput) (*model.Customer, error) {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		in.Name = &trimmed
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if *in.Name == "" {
		return nil, model.NewValidationError("name is required.")
	}
	return &model.Customer{
		Name:        *in.Name,
		HourlyFee:   *in.HourlyFee,
		BillingType: in.BillingType,
		InvoiceType: in.InvoiceType,
		TaxNumber:   in.TaxNumber,
	}, nil
}

func (s *Service) validName(in NameInput) (string, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return "", validationError(err)
	}
	return in.Name, nil
}

// validationError はvalidatorのエラーを最初の項目についてのメッセージに変換する。
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return model.NewValidationError("Invalid request.")
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return model.NewValidationError(fmt.Sprintf("%s is required.", fe.Field()))
	case "gte":
		return model.NewValidationError(fmt.Sprintf("%s must not be negative.", fe.Field()))
	case "max":
		return model.NewValidationError(fmt.Sprintf("%s is too long.", fe.Field()))
	default:
		return model.NewValidationError(fmt.Sprintf("Invalid value for %s.", fe.Field()))
	}
}
