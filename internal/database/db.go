package database

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect は接続先データベースの種類を表す。
type Dialect string

const (
	// DialectPostgres は本番運用を想定したPostgreSQL。
	DialectPostgres Dialect = "postgres"
	// DialectSQLite はローカル開発とテスト用の組み込みSQLite。
	DialectSQLite Dialect = "sqlite"
)

const sqliteScheme = "sqlite://"

// DialectOf は接続URLのスキームからDialectを判定する。
func DialectOf(databaseURL string) (Dialect, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DialectPostgres, nil
	case strings.HasPrefix(databaseURL, sqliteScheme):
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database url scheme: %q", schemeOf(databaseURL))
	}
}

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

// Rebind は $N 形式のプレースホルダをDialectに合わせて書き換える。
// クエリはPostgreSQL形式で1回だけ書き、SQLiteでは ?N に変換する。
func (d Dialect) Rebind(query string) string {
	if d != DialectSQLite {
		return query
	}
	return placeholderRe.ReplaceAllString(query, "?$1")
}

// Open は接続URLに応じたデータベース接続を開く。
// postgres:// はlib/pq、sqlite:// はmodernc.org/sqliteで開く。
// sql.Openは接続を試行しないため、実際の接続確認にはdb.Ping()を使用すること。
func Open(databaseURL string) (*sql.DB, error) {
	dialect, err := DialectOf(databaseURL)
	if err != nil {
		return nil, err
	}

	switch dialect {
	case DialectSQLite:
		db, err := sql.Open("sqlite", sqliteDSN(databaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// SQLiteは書き込みが直列化されるため接続を1本に絞る
		db.SetMaxOpenConns(1)
		return db, nil
	default:
		db, err := sql.Open("postgres", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return db, nil
	}
}

// SQLitePath は sqlite:// URL からファイルパスを取り出す。
func SQLitePath(databaseURL string) string {
	path := strings.TrimPrefix(databaseURL, sqliteScheme)
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

func sqliteDSN(databaseURL string) string {
	return "file:" + SQLitePath(databaseURL) +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

func schemeOf(databaseURL string) string {
	if i := strings.Index(databaseURL, "://"); i >= 0 {
		return databaseURL[:i]
	}
	return ""
}
