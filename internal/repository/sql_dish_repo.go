package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/dishlist/internal/database"
	"github.com/hitoshi/dishlist/internal/model"
)

const dishColumns = `id, title, user_id, created_at`

// SQLDishRepo はdatabase/sqlを使用した料理リポジトリ。
type SQLDishRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQLDishRepo はSQLDishRepoを生成する。
func NewSQLDishRepo(db *sql.DB, dialect database.Dialect) *SQLDishRepo {
	return &SQLDishRepo{db: db, dialect: dialect}
}

// ListByUser はユーザーの料理をid降順で最大limit件取得する。
// cursorは排他的な上限として扱う。cursorの行が削除済みでも比較は成立する。
func (r *SQLDishRepo) ListByUser(ctx context.Context, userID, cursor string, limit int) ([]model.Dish, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if cursor == "" {
		rows, err = r.db.QueryContext(ctx,
			r.dialect.Rebind(`SELECT `+dishColumns+` FROM dishes
			 WHERE user_id = $1
			 ORDER BY id DESC
			 LIMIT $2`),
			userID, limit,
		)
	} else {
		rows, err = r.db.QueryContext(ctx,
			r.dialect.Rebind(`SELECT `+dishColumns+` FROM dishes
			 WHERE user_id = $1 AND id < $2
			 ORDER BY id DESC
			 LIMIT $3`),
			userID, cursor, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list dishes: %w", err)
	}
	defer rows.Close()

	dishes := make([]model.Dish, 0, limit)
	for rows.Next() {
		var d model.Dish
		if err := rows.Scan(&d.ID, &d.Title, &d.UserID, scanTime(&d.CreatedAt)); err != nil {
			return nil, fmt.Errorf("failed to scan dish: %w", err)
		}
		dishes = append(dishes, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dishes: %w", err)
	}

	return dishes, nil
}

// Create は料理を作成する。
func (r *SQLDishRepo) Create(ctx context.Context, dish *model.Dish) error {
	_, err := r.db.ExecContext(ctx,
		r.dialect.Rebind(`INSERT INTO dishes (id, title, user_id, created_at)
		 VALUES ($1, $2, $3, $4)`),
		dish.ID, dish.Title, dish.UserID, dish.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create dish: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの料理を削除し、削除した行を返す。見つからない場合はnilを返す。
func (r *SQLDishRepo) DeleteByID(ctx context.Context, id string) (*model.Dish, error) {
	return r.deleteReturning(ctx,
		`DELETE FROM dishes WHERE id = $1 RETURNING `+dishColumns,
		id,
	)
}

// DeleteByIDAndUser は所有者が一致する料理のみを削除し、削除した行を返す。
// 見つからない場合はnilを返す。
func (r *SQLDishRepo) DeleteByIDAndUser(ctx context.Context, id, userID string) (*model.Dish, error) {
	return r.deleteReturning(ctx,
		`DELETE FROM dishes WHERE id = $1 AND user_id = $2 RETURNING `+dishColumns,
		id, userID,
	)
}

func (r *SQLDishRepo) deleteReturning(ctx context.Context, query string, args ...any) (*model.Dish, error) {
	d := &model.Dish{}
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), args...).
		Scan(&d.ID, &d.Title, &d.UserID, scanTime(&d.CreatedAt))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete dish: %w", err)
	}
	return d, nil
}

// DeleteByUserID はユーザーの全料理を削除する。
func (r *SQLDishRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		r.dialect.Rebind(`DELETE FROM dishes WHERE user_id = $1`),
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user dishes: %w", err)
	}
	return nil
}

// compile-time interface check
var _ DishRepository = (*SQLDishRepo)(nil)
