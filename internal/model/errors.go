// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrorKind はエラーの分類を表す。HTTPステータスへの変換はハンドラー層が担う。
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindConflict        ErrorKind = "conflict"
	KindForbidden       ErrorKind = "forbidden"
	KindNotFound        ErrorKind = "not_found"
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindStorage         ErrorKind = "storage"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Kind     ErrorKind // エラー分類
	Code     string    // エラーコード
	Message  string    // エラーメッセージ
	Category string    // カテゴリ: auth, validation, tracking, billing, system
	Action   string    // ユーザー向け対処方法
	Err      error     // 原因エラー（ストレージエラー等）。レスポンスには含めない
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeActiveSessionExists = "ACTIVE_SESSION_EXISTS"
	ErrCodeSessionNotFound     = "SESSION_NOT_FOUND"
	ErrCodeSessionStillOpen    = "SESSION_STILL_OPEN"
	ErrCodeCustomerNotAssigned = "CUSTOMER_NOT_ASSIGNED"
	ErrCodeUpdateFailed        = "UPDATE_FAILED"
	ErrCodeDeleteFailed        = "DELETE_FAILED"
	ErrCodeAdminRequired       = "ADMIN_REQUIRED"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeDuplicateName       = "DUPLICATE_NAME"
	ErrCodeInUse               = "RESOURCE_IN_USE"
	ErrCodeUnauthenticated     = "UNAUTHENTICATED"
	ErrCodeStorage             = "STORAGE_ERROR"
)

// KindOf はエラーチェーンからAPIErrorを探し、その分類を返す。
// APIErrorを含まないエラーはストレージエラーとして扱う。
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindStorage
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "Check the request body and try again.",
	}
}

// NewActiveSessionExistsError は計測中セッションが既に存在するエラーを生成する。
func NewActiveSessionExistsError() *APIError {
	return &APIError{
		Kind:     KindConflict,
		Code:     ErrCodeActiveSessionExists,
		Message:  "You already have an active tracking session.",
		Category: "tracking",
		Action:   "Stop the running session before starting a new one.",
	}
}

// NewSessionNotFoundError は停止対象の計測中セッションが見つからないエラーを生成する。
func NewSessionNotFoundError() *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeSessionNotFound,
		Message:  "No active tracking session found or invalid session ID.",
		Category: "tracking",
		Action:   "Reload the current session and try again.",
	}
}

// NewSessionStillOpenError は計測中のエントリを手動編集しようとした場合のエラーを生成する。
func NewSessionStillOpenError() *APIError {
	return &APIError{
		Kind:     KindConflict,
		Code:     ErrCodeSessionStillOpen,
		Message:  "The session is still running. Stop it before editing.",
		Category: "tracking",
		Action:   "Stop the session first.",
	}
}

// NewCustomerNotAssignedError は未割り当て顧客への記録を拒否するエラーを生成する。
func NewCustomerNotAssignedError() *APIError {
	return &APIError{
		Kind:     KindForbidden,
		Code:     ErrCodeCustomerNotAssigned,
		Message:  "Selected customer is not assigned to this user.",
		Category: "tracking",
		Action:   "Ask an administrator to assign you to the customer.",
	}
}

// NewUpdateFailedError はエントリ更新対象が見つからないか権限がない場合のエラーを生成する。
// 存在しないエントリと他人のエントリは区別しない。
func NewUpdateFailedError() *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeUpdateFailed,
		Message:  "Update failed or unauthorized.",
		Category: "tracking",
		Action:   "Check the entry ID.",
	}
}

// NewDeleteFailedError はエントリ削除対象が見つからないか権限がない場合のエラーを生成する。
func NewDeleteFailedError() *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeDeleteFailed,
		Message:  "Delete failed or unauthorized.",
		Category: "tracking",
		Action:   "Check the entry ID.",
	}
}

// NewAdminRequiredError は管理者権限が必要な操作のエラーを生成する。
func NewAdminRequiredError() *APIError {
	return &APIError{
		Kind:     KindForbidden,
		Code:     ErrCodeAdminRequired,
		Message:  "Access denied. Admins only.",
		Category: "auth",
		Action:   "Sign in with an administrator account.",
	}
}

// NewNotFoundError は汎用のリソース未検出エラーを生成する。
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeNotFound,
		Message:  message,
		Category: "validation",
		Action:   "Check the resource ID.",
	}
}

// NewDuplicateNameError は同名のマスタデータが既に存在するエラーを生成する。
func NewDuplicateNameError(message string) *APIError {
	return &APIError{
		Kind:     KindConflict,
		Code:     ErrCodeDuplicateName,
		Message:  message,
		Category: "validation",
		Action:   "Choose a different name.",
	}
}

// NewInUseError は作業記録から参照されているマスタデータを削除しようとした場合のエラーを生成する。
func NewInUseError(message string) *APIError {
	return &APIError{
		Kind:     KindConflict,
		Code:     ErrCodeInUse,
		Message:  message,
		Category: "validation",
		Action:   "Reassign or delete the tracked time that uses it first.",
	}
}

// NewUnauthenticatedError はトークン未指定・不正時のエラーを生成する。
func NewUnauthenticatedError(message string) *APIError {
	return &APIError{
		Kind:     KindUnauthenticated,
		Code:     ErrCodeUnauthenticated,
		Message:  message,
		Category: "auth",
		Action:   "Sign in again to obtain a new token.",
	}
}

// NewStorageError はストレージ層の失敗をラップする。
// 原因はログにのみ記録し、レスポンスには一般的なメッセージを返す。
func NewStorageError(err error) *APIError {
	return &APIError{
		Kind:     KindStorage,
		Code:     ErrCodeStorage,
		Message:  "Internal server error.",
		Category: "system",
		Action:   "Please try again later.",
		Err:      err,
	}
}
