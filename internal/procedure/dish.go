package procedure

import (
	"context"

	"github.com/hitoshi/dishlist/internal/model"
)

// DishService はdish系プロシージャが委譲する料理ストアのインターフェース。
type DishService interface {
	List(ctx context.Context, session *model.SessionInfo, cursor string, limit int) (*model.DishPage, error)
	Create(ctx context.Context, session *model.SessionInfo, title string) (*model.Dish, error)
	Remove(ctx context.Context, session *model.SessionInfo, id string) (*model.Dish, error)
}

// ListInput は dish:list の入力。
type ListInput struct {
	Cursor *string `json:"cursor" validate:"omitnil,min=1"`
	Limit  *int    `json:"limit" validate:"omitnil,min=1,max=100"`
}

// CreateInput は dish:create の入力。
type CreateInput struct {
	Title string `json:"title" validate:"required,min=2"`
}

// RemoveInput は dish:remove の入力。
// id は必須だが空文字は許容し、ストアで見つからない扱いになる。
type RemoveInput struct {
	ID *string `json:"id" validate:"required"`
}

// NewDishRouter は list, create, remove を登録したRouterを返す。
// 親ルーターには "dish" プレフィックスでMergeする。
func NewDishRouter(svc DishService) *Router {
	r := NewRouter()

	Query(r, "list", func(ctx context.Context, session *model.SessionInfo, in ListInput) (*model.DishPage, error) {
		var cursor string
		if in.Cursor != nil {
			cursor = *in.Cursor
		}
		var limit int
		if in.Limit != nil {
			limit = *in.Limit
		}
		return svc.List(ctx, session, cursor, limit)
	})

	Mutation(r, "create", func(ctx context.Context, session *model.SessionInfo, in CreateInput) (*model.Dish, error) {
		return svc.Create(ctx, session, in.Title)
	})

	Mutation(r, "remove", func(ctx context.Context, session *model.SessionInfo, in RemoveInput) (*model.Dish, error) {
		return svc.Remove(ctx, session, *in.ID)
	})

	return r
}

// NewAppRouter はアプリケーション全体のプロシージャを束ねたRouterを返す。
func NewAppRouter(dishes DishService) *Router {
	return NewRouter().Merge("dish", NewDishRouter(dishes))
}
