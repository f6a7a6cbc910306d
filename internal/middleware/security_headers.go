package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
)

// datastarCDN はクライアントビューが読み込むdatastarスクリプトの配信元。
const datastarCDN = "https://cdn.jsdelivr.net"

// SecureOptions はセキュリティヘッダーの設定を返す。
// datastarは式の評価にFunctionコンストラクタを使うため 'unsafe-eval' を許可する。
func SecureOptions(isDevelopment bool) secure.Options {
	return secure.Options{
		IsDevelopment:      isDevelopment,
		ContentTypeNosniff: true,
		FrameDeny:          true,
		ContentSecurityPolicy: "default-src 'self'; " +
			"script-src 'self' 'unsafe-eval' " + datastarCDN + "; " +
			"style-src 'self' 'unsafe-inline'; " +
			"img-src 'self' data:; " +
			"connect-src 'self'; " +
			"form-action 'self' https://accounts.google.com",
		ReferrerPolicy:       "strict-origin-when-cross-origin",
		PermissionsPolicy:    "camera=(), microphone=(), geolocation=()",
		STSSeconds:           31536000,
		STSIncludeSubdomains: true,
	}
}

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
// HSTSは本番（isDevelopment=false かつ HTTPS）でのみ送出される。
func NewSecurityHeadersMiddleware(isDevelopment bool) func(next http.Handler) http.Handler {
	s := secure.New(SecureOptions(isDevelopment))
	return s.Handler
}
