// Package view はdatastarのSSEでサーバー描画するクライアントビューを提供する。
// 画面の状態はセッションの有無だけで決まる。
package view

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	datastar "github.com/starfederation/datastar-go/datastar"

	"github.com/hitoshi/dishlist/internal/middleware"
	"github.com/hitoshi/dishlist/internal/model"
)

// DishService はビューが利用する料理ストアのインターフェース。
type DishService interface {
	List(ctx context.Context, session *model.SessionInfo, cursor string, limit int) (*model.DishPage, error)
	Create(ctx context.Context, session *model.SessionInfo, title string) (*model.Dish, error)
	Remove(ctx context.Context, session *model.SessionInfo, id string) (*model.Dish, error)
}

// SessionEnder はログアウト時にセッションを破棄するインターフェース。
type SessionEnder interface {
	Logout(ctx context.Context, sessionID string) error
}

// Config はビューの設定。
type Config struct {
	CSRF         middleware.CSRFConfig
	CookieDomain string
	CookieSecure bool
}

// Handler はクライアントビューのHTTPハンドラー。
type Handler struct {
	dishes   DishService
	sessions SessionEnder
	config   Config
}

// NewHandler はHandlerを生成する。
func NewHandler(dishes DishService, sessions SessionEnder, config Config) *Handler {
	return &Handler{dishes: dishes, sessions: sessions, config: config}
}

// Register はビューのルートを登録する。
// セッション解決ミドルウェアとCSRFミドルウェアの内側に登録すること。
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.Page)
	r.Get("/view/session", h.Session)
	r.Get("/view/dishes", h.LoadMore)
	r.Post("/view/dishes", h.Create)
	r.Delete("/view/dishes/{id}", h.Remove)
	r.Post("/view/logout", h.Logout)
}

// Page はloading-session状態のページシェルを返す。
// 読み込み後にクライアントが /view/session を呼び出して状態を確定させる。
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	html, err := renderPage(middleware.EnsureCSRFToken(w, r, h.config.CSRF))
	if err != nil {
		slog.Error("failed to render page", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

// Session はセッションの状態に応じて #app を未認証または認証済みの画面に置き換える。
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		sse := datastar.NewSSE(w, r)
		h.patchUnauthenticated(sse)
		return
	}

	page, err := h.dishes.List(r.Context(), session, "", 0)
	if err != nil {
		h.failBeforeStream(w, err)
		return
	}

	sse := datastar.NewSSE(w, r)
	h.patchHTML(sse, "authenticated", authenticatedData{Session: session, Page: newDishPageData(page)},
		datastar.WithSelectorID("app"), datastar.WithModeInner())
}

// LoadMore は次のページを #dish-list の末尾に追加し、続きを読み込むボタンを差し替える。
// 既に表示済みのページは並べ替えない。
func (h *Handler) LoadMore(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		h.patchUnauthenticated(datastar.NewSSE(w, r))
		return
	}

	page, err := h.dishes.List(r.Context(), session, r.URL.Query().Get("cursor"), 0)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			h.patchError(datastar.NewSSE(w, r), apiErr)
			return
		}
		h.failBeforeStream(w, err)
		return
	}

	data := newDishPageData(page)
	sse := datastar.NewSSE(w, r)
	if len(data.Dishes) > 0 {
		h.patchHTML(sse, "dish-items", data.Dishes, datastar.WithSelectorID("dish-list"), datastar.WithModeAppend())
	}
	h.patchHTML(sse, "load-more", data.NextCursor)
}

type createSignals struct {
	Title string `json:"title"`
}

// Create は title シグナルから料理を作成する。
// 成功時は一覧を先頭ページから描画し直し、フォームをリセットして新しい料理を表示位置に移動する。
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var signals createSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		h.patchError(datastar.NewSSE(w, r), model.NewInvalidRequestError("malformed signals"))
		return
	}

	session := middleware.SessionFromContext(r.Context())
	d, err := h.dishes.Create(r.Context(), session, signals.Title)
	if err != nil {
		h.handleMutationError(w, r, err)
		return
	}

	page, err := h.dishes.List(r.Context(), session, "", 0)
	if err != nil {
		h.failBeforeStream(w, err)
		return
	}

	sse := datastar.NewSSE(w, r)
	h.patchList(sse, page)
	if err := sse.MarshalAndPatchSignals(map[string]string{"title": ""}); err != nil {
		slog.Warn("failed to reset form signals", slog.String("error", err.Error()))
	}
	if err := sse.ExecuteScript("document.getElementById('dish-" + d.ID + "')?.scrollIntoView({behavior: 'smooth', block: 'nearest'})"); err != nil {
		slog.Warn("failed to scroll to new dish", slog.String("error", err.Error()))
	}
}

// Remove は料理を削除し、一覧を先頭ページから描画し直す。
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if _, err := h.dishes.Remove(r.Context(), session, chi.URLParam(r, "id")); err != nil {
		h.handleMutationError(w, r, err)
		return
	}

	page, err := h.dishes.List(r.Context(), session, "", 0)
	if err != nil {
		h.failBeforeStream(w, err)
		return
	}

	h.patchList(datastar.NewSSE(w, r), page)
}

// Logout はセッションを破棄してCookieを削除し、未認証の画面に切り替える。
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := middleware.SessionFromContext(r.Context()); session != nil && h.sessions != nil {
		if err := h.sessions.Logout(r.Context(), session.SessionID); err != nil {
			// 失敗してもCookieはクリアする
			slog.Error("failed to logout", slog.String("error", err.Error()))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	h.patchUnauthenticated(datastar.NewSSE(w, r))
}

func (h *Handler) handleMutationError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		h.failBeforeStream(w, err)
		return
	}

	sse := datastar.NewSSE(w, r)
	if apiErr.Code == model.ErrCodeUnauthorized {
		h.patchUnauthenticated(sse)
		return
	}
	h.patchError(sse, apiErr)
}

// failBeforeStream はSSE開始前の想定外エラーを500として返す。
func (h *Handler) failBeforeStream(w http.ResponseWriter, err error) {
	middleware.WriteServiceError(w, err)
}

func (h *Handler) patchList(sse *datastar.ServerSentEventGenerator, page *model.DishPage) {
	h.patchHTML(sse, "dish-page", newDishPageData(page), datastar.WithSelectorID("dishes"), datastar.WithModeInner())
	h.patchHTML(sse, "dish-error", "")
}

func (h *Handler) patchUnauthenticated(sse *datastar.ServerSentEventGenerator) {
	h.patchHTML(sse, "unauthenticated", nil, datastar.WithSelectorID("app"), datastar.WithModeInner())
}

func (h *Handler) patchError(sse *datastar.ServerSentEventGenerator, apiErr *model.APIError) {
	h.patchHTML(sse, "dish-error", apiErr.Message)
}

func (h *Handler) patchHTML(sse *datastar.ServerSentEventGenerator, name string, data any, opts ...datastar.PatchElementOption) {
	html, err := render(name, data)
	if err != nil {
		slog.Error("failed to render fragment",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := sse.PatchElements(html, opts...); err != nil {
		slog.Warn("failed to patch elements",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
	}
}
