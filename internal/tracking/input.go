package tracking

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/agencytime/internal/model"
)

// maxDurationHours は1エントリに記録できる時間の上限。
// time.Durationとduration_hours列（INTEGER）の範囲を超えないよう制限する。
const maxDurationHours = 10000

const (
	msgAllFieldsRequired     = "All fields are required."
	msgMissingRequiredFields = "Missing required fields."
)

// StopInput は計測中セッション終了の入力。
// ポインタのnilは未指定を表し、ゼロ値は有効な値として扱う。
type StopInput struct {
	ID         *int64 `json:"id" validate:"required"`
	CustomerID *int64 `json:"customer_id" validate:"required"`
	ProjectID  *int64 `json:"project_id" validate:"required"`
	TaskID     *int64 `json:"task_id" validate:"required"`
}

// ManualInput は手動エントリ登録の入力。
type ManualInput struct {
	CustomerID      *int64     `json:"customer_id" validate:"required"`
	ProjectID       *int64     `json:"project_id" validate:"required"`
	TaskID          *int64     `json:"task_id" validate:"required"`
	StartTime       *time.Time `json:"start_time" validate:"required"`
	DurationHours   *int       `json:"duration_hours" validate:"required,min=0,max=10000"`
	DurationMinutes *int       `json:"duration_minutes" validate:"required,min=0,max=59"`
	Note            *string    `json:"note"`
}

// UpdateInput は終了済みエントリ更新の入力。duration_hoursは省略時0として扱う。
type UpdateInput struct {
	CustomerID      *int64     `json:"customer_id" validate:"required"`
	ProjectID       *int64     `json:"project_id" validate:"required"`
	TaskID          *int64     `json:"task_id" validate:"required"`
	StartTime       *time.Time `json:"start_time" validate:"required"`
	DurationHours   *int       `json:"duration_hours" validate:"omitempty,min=0,max=10000"`
	DurationMinutes *int       `json:"duration_minutes" validate:"required,min=0,max=59"`
	Note            *string    `json:"note"`
}

// newValidator はjsonタグ名でフィールドを報告するvalidatorを生成する。
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput は入力を検証し、必須項目の欠落はmissingMsg、範囲外の値は項目名入りのメッセージで返す。
func validateInput(v *validator.Validate, in any, missingMsg string) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return model.NewValidationError(missingMsg)
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return model.NewValidationError(missingMsg)
		}
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "max", "min":
		switch fe.Field() {
		case "duration_minutes":
			return model.NewValidationError("duration_minutes must be between 0 and 59.")
		case "duration_hours":
			return model.NewValidationError(fmt.Sprintf("duration_hours must be between 0 and %d.", maxDurationHours))
		}
		return model.NewValidationError(fmt.Sprintf("%s must not be negative.", fe.Field()))
	default:
		return model.NewValidationError(fmt.Sprintf("Invalid value for %s.", fe.Field()))
	}
}

// SplitDuration は経過時間を時間と60未満の分に分解する。端数の秒は切り捨てる。
// 負の経過時間は0として扱う。
func SplitDuration(d time.Duration) (hours, minutes int) {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Minute)
	return total / 60, total % 60
}

// composeDuration は時間と分から経過時間を組み立てる。
func composeDuration(hours, minutes int) time.Duration {
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
}
