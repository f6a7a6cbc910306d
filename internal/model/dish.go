package model

import "time"

// Dish はユーザーが登録した料理レコードを表す。
// IDは作成順に単調増加し、ページングのカーソルとして使われる。
type Dish struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// DishPage は一覧取得の1ページ分の結果を表す。
// NextCursor が nil の場合は続きのページが存在しない。
type DishPage struct {
	Dishes     []Dish  `json:"dishes"`
	NextCursor *string `json:"nextCursor"`
}
