package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/agencytime/internal/middleware"
	"github.com/hitoshi/agencytime/internal/model"
)

// successResponse は成功レスポンスの統一フォーマット。
type successResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// writeSuccess は {"success": true, "data": ...} 形式でレスポンスを書き込む。
func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(successResponse{Success: true, Data: data})
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// ストレージエラーの原因はログにのみ記録する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		apiErr = model.NewStorageError(err)
	}

	statusCode := mapKindToHTTPStatus(apiErr.Kind)
	if statusCode >= http.StatusInternalServerError {
		slog.Error("internal server error",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeAPIErrorResponse(w, statusCode, apiErr)
}

// mapKindToHTTPStatus はエラー分類からHTTPステータスコードにマッピングする。
// 未認証は既存クライアントとの互換のため403とする。
func mapKindToHTTPStatus(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindConflict:
		return http.StatusConflict
	case model.KindForbidden, model.KindUnauthenticated:
		return http.StatusForbidden
	case model.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON はリクエストボディをdstにデコードする。失敗時はValidationErrorを返す。
// 空のボディは許容し、dstはゼロ値のままになる。
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return model.NewValidationError("Invalid request body.")
	}
	return nil
}

// parseIDParam はURLパラメータを正の整数IDとして解釈する。
func parseIDParam(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewValidationError("Invalid " + key + ".")
	}
	return id, nil
}

// principalFrom は認証済みの主体を取得する。取得できない場合は403を書き込みfalseを返す。
func principalFrom(w http.ResponseWriter, r *http.Request) (model.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewUnauthenticatedError("Access denied. No token provided."))
		return model.Principal{}, false
	}
	return p, true
}
