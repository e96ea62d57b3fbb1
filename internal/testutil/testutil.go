// Package testutil はテスト用の共通ヘルパーを提供します。
package testutil

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/book-vault/internal/model"
	"github.com/yourusername/book-vault/internal/store"
)

// OpenTestDB はインメモリのSQLiteデータベースを開き、スキーマを適用します。
// name はテストごとに一意な値を指定してください（共有キャッシュの分離のため）。
func OpenTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := "file:" + name + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SeedUser はテスト用のユーザーを作成します。
func SeedUser(t *testing.T, db *gorm.DB, name, email, password string, isAdmin bool) *model.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &model.User{
		Name:     name,
		Email:    email,
		Password: string(hashed),
		IsAdmin:  isAdmin,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedBook はテスト用の書籍を作成します。
func SeedBook(t *testing.T, db *gorm.DB, title, author, genre string, stocks int) *model.Book {
	t.Helper()

	book := &model.Book{
		Title:  title,
		Author: author,
		Genre:  genre,
		Stocks: stocks,
	}
	if err := db.Create(book).Error; err != nil {
		t.Fatalf("seed book: %v", err)
	}
	return book
}
