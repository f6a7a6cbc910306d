package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/dishlist/internal/database"
	"github.com/hitoshi/dishlist/internal/model"
)

// newTestDB はマイグレーション済みのSQLiteデータベースを一時ディレクトリに作成する。
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := "sqlite://" + filepath.Join(t.TempDir(), "repo.db")
	if err := database.RunMigrations(dbURL); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}

	db, err := database.Open(dbURL)
	if err != nil {
		t.Fatalf("SQLiteのオープンに失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser はテスト用ユーザーを作成してIDを返す。
func createTestUser(t *testing.T, db *sql.DB, email string) string {
	t.Helper()

	now := time.Now().UTC()
	user := &model.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      "Test User",
		CreatedAt: now,
		UpdatedAt: now,
	}
	identity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         user.ID,
		Provider:       "google",
		ProviderUserID: "google-" + email,
		CreatedAt:      now,
	}

	repo := NewSQLUserRepo(db, database.DialectSQLite)
	if err := repo.CreateWithIdentity(context.Background(), user, identity); err != nil {
		t.Fatalf("ユーザー作成に失敗: %v", err)
	}
	return user.ID
}
