package procedure

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/dishlist/internal/middleware"
	"github.com/hitoshi/dishlist/internal/model"
)

// maxInputBytes はミューテーションのリクエストボディの上限。
const maxInputBytes = 64 << 10

// Metrics はプロシージャ呼び出しを記録するインターフェース。
type Metrics interface {
	RecordProcedureCall(procedure, outcome string, duration time.Duration)
}

// Handler はRouterをHTTPに公開するハンドラー。
// クエリは GET /{name}?input=<JSON>、ミューテーションは POST /{name} で呼び出す。
type Handler struct {
	router  *Router
	metrics Metrics
}

// NewHandler はHandlerを生成する。metricsはnilでもよい。
func NewHandler(router *Router, metrics Metrics) *Handler {
	return &Handler{router: router, metrics: metrics}
}

// Routes はchiのサブルーターを返す。/api/rpc にマウントする想定。
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.HandleFunc("/{name}", h.ServeProcedure)
	return r
}

// ServeProcedure はURLパスの {name} に対応するプロシージャを実行する。
func (h *Handler) ServeProcedure(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	start := time.Now()

	result, err := h.serve(r, name)
	h.record(name, err, time.Since(start))

	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("failed to encode procedure result",
			slog.String("procedure", name),
			slog.String("error", err.Error()),
		)
	}
}

func (h *Handler) serve(r *http.Request, name string) (any, error) {
	p, ok := h.router.Lookup(name)
	if !ok {
		return nil, model.NewProcedureNotFoundError(name)
	}

	var input json.RawMessage
	switch {
	case p.Kind == KindQuery && r.Method == http.MethodGet:
		if raw := r.URL.Query().Get("input"); raw != "" {
			input = json.RawMessage(raw)
		}
	case p.Kind == KindMutation && r.Method == http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxInputBytes+1))
		if err != nil {
			return nil, model.NewInvalidRequestError("failed to read request body")
		}
		if len(body) > maxInputBytes {
			return nil, model.NewInvalidRequestError("request body too large")
		}
		input = body
	default:
		return nil, model.NewMethodNotAllowedError(name, r.Method)
	}

	return p.call(r.Context(), middleware.SessionFromContext(r.Context()), input)
}

func (h *Handler) record(name string, err error, d time.Duration) {
	if h.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = model.ErrCodeInternal
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			outcome = apiErr.Code
		}
	}
	// 未登録の名前でラベルの種類が増えないようにまとめる
	if _, ok := h.router.Lookup(name); !ok {
		name = "unknown"
	}
	h.metrics.RecordProcedureCall(name, outcome, d)
}
