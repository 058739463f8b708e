// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/agencytime/internal/model"
)

const (
	msgNoToken      = "Access denied. No token provided."
	msgInvalidToken = "Invalid token"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストに主体を格納するためのキー。
var principalContextKey = contextKey("principal")

// PrincipalResolver はベアラートークンから主体を復元するインターフェース。
// auth.TokenServiceが実装する。
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (model.Principal, error)
}

// NewAuthMiddleware はAuthorizationヘッダーのベアラートークンを検証し、
// 主体（ユーザーIDとロール）をリクエストコンテキストに注入するミドルウェアを返す。
// トークンの欠落・不正には403を返す。
func NewAuthMiddleware(resolver PrincipalResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Authorizationヘッダーからトークンを取得
			token := bearerToken(r)
			if token == "" {
				WriteErrorResponse(w, http.StatusForbidden, model.NewUnauthenticatedError(msgNoToken))
				return
			}

			// 2. トークンを検証
			principal, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				slog.Warn("token rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewUnauthenticatedError(msgInvalidToken))
				return
			}

			// 3. 主体をコンテキストに注入し、アクセスログにも記録する
			setRequestUser(r.Context(), principal.UserID)
			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin は管理者以外のリクエストを403で拒否するミドルウェア。
// NewAuthMiddlewareの後に配置する。
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok || !principal.IsAdmin() {
			WriteErrorResponse(w, http.StatusForbidden, model.NewAdminRequiredError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken は "Bearer <token>" 形式のヘッダーからトークン部分を取り出す。
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// PrincipalFromContext はリクエストコンテキストから主体を取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(model.Principal)
	if !ok || p.UserID <= 0 {
		return model.Principal{}, false
	}
	return p, true
}

// UserIDFromContext はリクエストコンテキストから主体のユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (int64, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return 0, fmt.Errorf("principal not found in context")
	}
	return p.UserID, nil
}

// ContextWithPrincipal はコンテキストに主体を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}
