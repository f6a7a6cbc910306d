// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/dishlist/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentities、sessions、dishesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// DishRepository は料理データの永続化インターフェース。
type DishRepository interface {
	// ListByUser はユーザーの料理をid降順で最大limit件取得する。
	// cursorが空でない場合は id < cursor の行のみを対象にする。
	ListByUser(ctx context.Context, userID, cursor string, limit int) ([]model.Dish, error)

	// Create は料理を作成する。IDとCreatedAtは呼び出し側で設定済みであること。
	Create(ctx context.Context, dish *model.Dish) error

	// DeleteByID は指定IDの料理を所有者を問わず削除し、削除した行を返す。
	// 見つからない場合はnilを返す。
	DeleteByID(ctx context.Context, id string) (*model.Dish, error)

	// DeleteByIDAndUser は指定ユーザーが所有する料理のみを削除し、削除した行を返す。
	// 見つからない、または所有者が異なる場合はnilを返す。
	DeleteByIDAndUser(ctx context.Context, id, userID string) (*model.Dish, error)

	// DeleteByUserID はユーザーの全料理を削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Clock は現在時刻の取得を抽象化する。テストで固定時刻を注入するために使う。
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }
