// Package procedure は名前付きの入力検証付きリモート操作（プロシージャ）のルーターを提供する。
package procedure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/dishlist/internal/model"
)

// Kind はプロシージャの種別。
type Kind int

const (
	// KindQuery は読み取り専用のプロシージャ。GETで呼び出す。
	KindQuery Kind = iota
	// KindMutation は状態を変更するプロシージャ。POSTで呼び出す。
	KindMutation
)

func (k Kind) String() string {
	if k == KindMutation {
		return "mutation"
	}
	return "query"
}

// handlerFunc は生のJSON入力を受け取り結果を返す内部表現。
type handlerFunc func(ctx context.Context, session *model.SessionInfo, input json.RawMessage) (any, error)

// Procedure は登録済みのプロシージャ。
type Procedure struct {
	Name string
	Kind Kind
	call handlerFunc
}

// Router はプロシージャ名から実装への対応を保持する。
// 登録はサーバー起動前に完了させ、以降は読み取りのみ行う。
type Router struct {
	procs    map[string]*Procedure
	validate *validator.Validate
}

// NewRouter は空のRouterを生成する。
func NewRouter() *Router {
	return &Router{
		procs:    make(map[string]*Procedure),
		validate: newValidator(),
	}
}

// newValidator はエラー上のフィールド名にjsonタグを使うバリデーターを生成する。
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Query は読み取り専用プロシージャを登録する。
func Query[In, Out any](r *Router, name string, fn func(ctx context.Context, session *model.SessionInfo, in In) (Out, error)) {
	register(r, name, KindQuery, fn)
}

// Mutation は状態変更プロシージャを登録する。
func Mutation[In, Out any](r *Router, name string, fn func(ctx context.Context, session *model.SessionInfo, in In) (Out, error)) {
	register(r, name, KindMutation, fn)
}

func register[In, Out any](r *Router, name string, kind Kind, fn func(ctx context.Context, session *model.SessionInfo, in In) (Out, error)) {
	if _, exists := r.procs[name]; exists {
		panic(fmt.Sprintf("procedure: duplicate registration of %q", name))
	}
	validate := r.validate
	r.procs[name] = &Procedure{
		Name: name,
		Kind: kind,
		call: func(ctx context.Context, session *model.SessionInfo, raw json.RawMessage) (any, error) {
			var in In
			if err := decodeInput(raw, &in); err != nil {
				return nil, err
			}
			if err := validateInput(validate, in); err != nil {
				return nil, err
			}
			return fn(ctx, session, in)
		},
	}
}

// Merge は別ルーターのプロシージャを "prefix:name" の名前で取り込む。
func (r *Router) Merge(prefix string, sub *Router) *Router {
	for name, p := range sub.procs {
		full := prefix + ":" + name
		if _, exists := r.procs[full]; exists {
			panic(fmt.Sprintf("procedure: duplicate registration of %q", full))
		}
		r.procs[full] = &Procedure{Name: full, Kind: p.Kind, call: p.call}
	}
	return r
}

// Lookup は名前に対応するプロシージャを返す。
func (r *Router) Lookup(name string) (*Procedure, bool) {
	p, ok := r.procs[name]
	return p, ok
}

// Names は登録済みのプロシージャ名を昇順で返す。
func (r *Router) Names() []string {
	names := make([]string, 0, len(r.procs))
	for name := range r.procs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call は名前を指定してプロシージャを呼び出す。
// 入力の検証はセッションの確認やストアへのアクセスより先に行われる。
func (r *Router) Call(ctx context.Context, session *model.SessionInfo, name string, input json.RawMessage) (any, error) {
	p, ok := r.procs[name]
	if !ok {
		return nil, model.NewProcedureNotFoundError(name)
	}
	return p.call(ctx, session, input)
}

// decodeInput はJSON入力をデコードする。空入力はゼロ値として扱う。
func decodeInput(raw json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return model.NewInvalidRequestError("malformed JSON input")
	}
	return nil
}

// validateInput は構造体タグに従って入力を検証し、違反をVALIDATION_ERRORに変換する。
func validateInput(v *validator.Validate, in any) error {
	rv := reflect.ValueOf(in)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	err := v.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate input: %w", err)
	}
	fields := make([]model.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, model.FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return model.NewValidationError(fields...)
}
