// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/dishlist/internal/model"
)

// SessionCookieName はセッションIDを保持するHTTP Only Cookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionContextKey はリクエストコンテキストに解決済みセッションを格納するためのキー。
var sessionContextKey = contextKey("session")

// SessionResolver はセッションIDから認証済みセッションを解決するインターフェース。
// 未認証の場合は (nil, nil) を返す。
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionID string) (*model.SessionInfo, error)
}

// NewSessionResolverMiddleware はCookieからセッションを解決し、
// 認証済みであればリクエストコンテキストに注入するミドルウェアを返す。
// 未認証のリクエストも拒否せずに通す。
// ストア障害で解決できない場合のみ500を返す。
func NewSessionResolverMiddleware(resolver SessionResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := resolver.ResolveSession(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to resolve session",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
		})
	}
}

// RequireSession はコンテキストにセッションが無いリクエストに401を返すミドルウェア。
// NewSessionResolverMiddleware の後に配置する。
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()) == nil {
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewSessionMiddleware はセッションの解決と必須チェックをまとめたミドルウェアを返す。
// 未認証リクエストには401 Unauthorizedを返す。
func NewSessionMiddleware(resolver SessionResolver) func(next http.Handler) http.Handler {
	resolve := NewSessionResolverMiddleware(resolver)
	return func(next http.Handler) http.Handler {
		return resolve(RequireSession(next))
	}
}

// SessionFromContext はリクエストコンテキストから解決済みセッションを取得する。
// 未認証の場合はnilを返す。
func SessionFromContext(ctx context.Context) *model.SessionInfo {
	session, _ := ctx.Value(sessionContextKey).(*model.SessionInfo)
	return session
}

// ContextWithSession はコンテキストにセッションを注入する。
func ContextWithSession(ctx context.Context, session *model.SessionInfo) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションが解決済みのリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	session := SessionFromContext(ctx)
	if session == nil || session.UserID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return session.UserID, nil
}

// ContextWithUserID はユーザーIDのみを持つセッションをコンテキストに注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return ContextWithSession(ctx, &model.SessionInfo{UserID: userID})
}
