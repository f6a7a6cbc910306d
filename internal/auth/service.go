// Package auth はOAuthログイン、セッションの発行・破棄、リクエストごとのセッション解決を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/dishlist/internal/model"
	"github.com/hitoshi/dishlist/internal/repository"
)

// sessionIDBytes はセッションIDの乱数バイト数（hexで64文字）。
const sessionIDBytes = 32

// ErrMissingProviderUserID はプロバイダーがユーザー識別子を返さなかった場合のエラー。
var ErrMissingProviderUserID = errors.New("provider user id is empty")

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Provider       string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service はログインとセッションの管理を行う。
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository

	sessionTTL   time.Duration
	now          func() time.Time
	newSessionID func() (string, error)
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:        oauth,
		userRepo:     userRepo,
		identRepo:    identRepo,
		sessionRepo:  sessionRepo,
		sessionTTL:   time.Duration(config.SessionMaxAge) * time.Second,
		now:          func() time.Time { return time.Now().UTC() },
		newSessionID: randomSessionID,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback は認可コードからユーザーを特定し、新しいセッションを発行する。
// 初回ログインではusersとidentitiesを同一トランザクションで作成する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	info, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("認可コードの交換に失敗しました: %w", err)
	}
	if info.ProviderUserID == "" {
		return nil, ErrMissingProviderUserID
	}

	userID, created, err := s.findOrCreateUser(ctx, info)
	if err != nil {
		return nil, err
	}

	session, err := s.issueSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	slog.Info("ログインしました",
		slog.String("user_id", userID),
		slog.String("provider", info.Provider),
		slog.Bool("new_user", created),
	)
	return session, nil
}

// findOrCreateUser はidentityに紐付くユーザーIDを返す。
// identityが無ければユーザーを新規作成し、createdをtrueで返す。
func (s *Service) findOrCreateUser(ctx context.Context, info *OAuthUserInfo) (userID string, created bool, err error) {
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, info.Provider, info.ProviderUserID)
	if err != nil {
		return "", false, fmt.Errorf("identityの検索に失敗しました: %w", err)
	}
	if identity != nil {
		return identity.UserID, false, nil
	}

	now := s.now()
	user := &model.User{
		ID:        uuid.NewString(),
		Email:     info.Email,
		Name:      info.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ident := &model.Identity{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		Provider:       info.Provider,
		ProviderUserID: info.ProviderUserID,
		CreatedAt:      now,
	}
	if err := s.userRepo.CreateWithIdentity(ctx, user, ident); err != nil {
		return "", false, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}
	return user.ID, true, nil
}

// issueSession はユーザーのセッションを生成して保存する。
func (s *Service) issueSession(ctx context.Context, userID string) (*model.Session, error) {
	id, err := s.newSessionID()
	if err != nil {
		return nil, fmt.Errorf("セッションIDの生成に失敗しました: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("セッションの保存に失敗しました: %w", err)
	}
	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}
	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}

	slog.Info("ログアウトしました", slog.String("session_id", sessionID))
	return nil
}

// ResolveSession はCookieのセッションIDから認証済みセッション情報を解決する。
// セッションが無い、期限切れ、またはユーザーが削除済みの場合は (nil, nil) を返す。
// errorはストア障害の場合のみ返す。
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (*model.SessionInfo, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}
	// クリーンアップ前の期限切れ行もここで弾く
	if session == nil || !session.ExpiresAt.After(s.now()) {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	return &model.SessionInfo{
		SessionID: session.ID,
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func randomSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
