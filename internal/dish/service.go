// Package dish は料理レコードの一覧・作成・削除のドメインロジックを提供する。
package dish

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hitoshi/dishlist/internal/model"
	"github.com/hitoshi/dishlist/internal/repository"
)

const (
	// DefaultPageSize は limit 未指定時の1ページあたりの件数。
	DefaultPageSize = 3
	// MaxPageSize は1ページあたりの件数の上限。
	MaxPageSize = 100
	// MinTitleLength はタイトルの最小文字数（rune単位）。
	MinTitleLength = 2
)

// ServiceConfig は料理サービスの設定。
type ServiceConfig struct {
	PageSize int // limit 未指定時の件数

	// EnforceOwnership がtrueの場合、削除は所有者本人の料理に限定される。
	// falseの場合は認証済みであれば任意の料理をIDで削除できる。
	EnforceOwnership bool

	// RejectGuestList がtrueの場合、未認証の一覧取得をUnauthorizedで拒否する。
	// falseの場合は空のページを返す。
	RejectGuestList bool
}

// DefaultServiceConfig はデフォルト設定を返す。
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		PageSize:         DefaultPageSize,
		EnforceOwnership: true,
	}
}

// Metrics は料理の作成・削除を記録するインターフェース。
type Metrics interface {
	RecordDishCreated()
	RecordDishRemoved()
}

// Service は料理ストアのサービス層。
// 所有者の識別子は呼び出し時に渡されるセッションからのみ取得する。
type Service struct {
	repo    repository.DishRepository
	config  ServiceConfig
	newID   func() (uuid.UUID, error)
	now     func() time.Time
	metrics Metrics
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.DishRepository, config ServiceConfig) *Service {
	if config.PageSize <= 0 || config.PageSize > MaxPageSize {
		config.PageSize = DefaultPageSize
	}
	return &Service{
		repo:   repo,
		config: config,
		newID:  uuid.NewV7,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithMetrics はメトリクス記録先を設定する。
func (s *Service) WithMetrics(m Metrics) *Service {
	s.metrics = m
	return s
}

// PageSize は limit 未指定時に使用される件数を返す。
func (s *Service) PageSize() int {
	return s.config.PageSize
}

// List はセッションのユーザーが所有する料理をid降順で返す。
// limit が0の場合は設定のページサイズを使う。
// limit+1件を取得し、続きがある場合は返却した最後の料理のIDをNextCursorに設定する。
func (s *Service) List(ctx context.Context, session *model.SessionInfo, cursor string, limit int) (*model.DishPage, error) {
	if limit == 0 {
		limit = s.config.PageSize
	}
	if limit < 1 || limit > MaxPageSize {
		return nil, model.NewValidationError(model.FieldError{Field: "limit", Rule: fmt.Sprintf("1..%d", MaxPageSize)})
	}

	if session == nil {
		if s.config.RejectGuestList {
			return nil, model.NewUnauthorizedError()
		}
		return &model.DishPage{Dishes: []model.Dish{}}, nil
	}

	dishes, err := s.repo.ListByUser(ctx, session.UserID, cursor, limit+1)
	if err != nil {
		return nil, fmt.Errorf("料理一覧の取得に失敗しました: %w", err)
	}

	page := &model.DishPage{Dishes: dishes}
	if len(dishes) > limit {
		page.Dishes = dishes[:limit]
		next := page.Dishes[limit-1].ID
		page.NextCursor = &next
	}

	return page, nil
}

// Create はセッションのユーザーを所有者として料理を作成する。
func (s *Service) Create(ctx context.Context, session *model.SessionInfo, title string) (*model.Dish, error) {
	if err := ValidateTitle(title); err != nil {
		return nil, err
	}
	if session == nil {
		return nil, model.NewUnauthorizedError()
	}

	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("料理IDの生成に失敗しました: %w", err)
	}

	d := &model.Dish{
		ID:        id.String(),
		Title:     title,
		UserID:    session.UserID,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("料理の作成に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordDishCreated()
	}
	slog.Info("料理を作成しました",
		slog.String("user_id", session.UserID),
		slog.String("dish_id", d.ID),
	)

	return d, nil
}

// Remove は指定IDの料理を削除し、削除した料理を返す。
// 該当する料理が無い場合は空文字のIDも含めてDishNotFoundを返す。
func (s *Service) Remove(ctx context.Context, session *model.SessionInfo, id string) (*model.Dish, error) {
	if session == nil {
		return nil, model.NewUnauthorizedError()
	}

	var (
		d   *model.Dish
		err error
	)
	if s.config.EnforceOwnership {
		d, err = s.repo.DeleteByIDAndUser(ctx, id, session.UserID)
	} else {
		d, err = s.repo.DeleteByID(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("料理の削除に失敗しました: %w", err)
	}
	if d == nil {
		return nil, model.NewDishNotFoundError(id)
	}

	if s.metrics != nil {
		s.metrics.RecordDishRemoved()
	}
	slog.Info("料理を削除しました",
		slog.String("user_id", session.UserID),
		slog.String("dish_id", d.ID),
		slog.String("owner_id", d.UserID),
	)

	return d, nil
}

// ValidateTitle はタイトルの文字数を検証する。上限は設けない。
func ValidateTitle(title string) error {
	if utf8.RuneCountInString(title) < MinTitleLength {
		return model.NewValidationError(model.FieldError{Field: "title", Rule: fmt.Sprintf("min=%d", MinTitleLength)})
	}
	return nil
}
