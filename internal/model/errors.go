// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, dish, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeDishNotFound      = "DISH_NOT_FOUND"
	ErrCodeProcedureNotFound = "PROCEDURE_NOT_FOUND"
	ErrCodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeRateLimited       = "RATE_LIMIT_EXCEEDED"
	ErrCodeCSRF              = "CSRF_TOKEN_INVALID"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// FieldError は入力検証で不正だったフィールドを表す。
type FieldError struct {
	Field string
	Rule  string
}

// NewValidationError は入力検証エラーを生成する。
// fieldsが空の場合は汎用メッセージになる。
func NewValidationError(fields ...FieldError) *APIError {
	msg := "入力値が不正です。"
	if len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			parts = append(parts, fmt.Sprintf("%s(%s)", f.Field, f.Rule))
		}
		msg = fmt.Sprintf("入力値が不正です: %s", strings.Join(parts, ", "))
	}
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  msg,
		Category: "validation",
		Action:   "入力内容を確認してください。タイトルは2文字以上で入力してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "ログインが必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewDishNotFoundError は料理未検出エラーを生成する。
func NewDishNotFoundError(dishID string) *APIError {
	return &APIError{
		Code:     ErrCodeDishNotFound,
		Message:  fmt.Sprintf("指定された料理が見つかりません: %s", dishID),
		Category: "dish",
		Action:   "一覧を再読み込みしてください。",
	}
}

// NewProcedureNotFoundError は未定義のプロシージャ呼び出しエラーを生成する。
func NewProcedureNotFoundError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeProcedureNotFound,
		Message:  fmt.Sprintf("プロシージャが見つかりません: %s", name),
		Category: "validation",
		Action:   "プロシージャ名を確認してください。",
	}
}

// NewMethodNotAllowedError はHTTPメソッドとプロシージャ種別の不一致エラーを生成する。
func NewMethodNotAllowedError(name, method string) *APIError {
	return &APIError{
		Code:     ErrCodeMethodNotAllowed,
		Message:  fmt.Sprintf("%s は %s で呼び出せません。", name, method),
		Category: "validation",
		Action:   "クエリはGET、ミューテーションはPOSTで呼び出してください。",
	}
}

// NewInvalidRequestError はリクエスト形式エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト形式を確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError(retryAfterSec int) *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   fmt.Sprintf("%d秒ほど待ってから再度お試しください。", retryAfterSec),
	}
}

// NewCSRFError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRF,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ出力する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく時間をおいてから再度お試しください。",
	}
}
