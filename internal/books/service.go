// Package books は蔵書カタログの操作を提供します。
package books

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/book-vault/internal/apperr"
	"github.com/yourusername/book-vault/internal/model"
)

// Service はカタログ操作をまとめた構造体です。
type Service struct {
	db *gorm.DB
}

// NewService は Service を作成します。
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateInput は書籍登録の入力です。
type CreateInput struct {
	Title  string
	Author string
	Genre  string
	Stocks int
}

// Create は書籍を登録します。同じ (タイトル, 著者) の書籍が
// すでに存在する場合は登録せずエラーを返します。
// 事前確認と登録の間に別リクエストが割り込む可能性は許容しています
// （一意性はデータ層では保証されません）。
func (s *Service) Create(ctx context.Context, input CreateInput) (*model.Book, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Author = strings.TrimSpace(input.Author)
	input.Genre = strings.TrimSpace(input.Genre)
	if input.Title == "" || input.Author == "" || input.Genre == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "title、author、genre をすべて指定してください。", nil)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Book{}).
		Where("title = ? AND author = ?", input.Title, input.Author).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.New(apperr.CodeConflict, "この書籍はすでに登録されています。", nil)
	}

	book := &model.Book{
		Title:  input.Title,
		Author: input.Author,
		Genre:  input.Genre,
		Stocks: input.Stocks,
	}
	if err := s.db.WithContext(ctx).Create(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

// ListAll は全書籍を登録の新しい順に返します。
func (s *Service) ListAll(ctx context.Context) ([]model.Book, error) {
	var list []model.Book
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListByAuthor は指定した著者の書籍を完全一致で検索します。
func (s *Service) ListByAuthor(ctx context.Context, author string) ([]model.Book, error) {
	author = strings.TrimSpace(author)
	if author == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "author を指定してください。", nil)
	}

	var list []model.Book
	if err := s.db.WithContext(ctx).
		Where("author = ?", author).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Get はIDで書籍を1件取得します。IDの形式不正と不存在は区別して返します。
func (s *Service) Get(ctx context.Context, id string) (*model.Book, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.New(apperr.CodeInvalidID, "書籍IDの形式が正しくありません。", err)
	}

	var book model.Book
	if err := s.db.WithContext(ctx).First(&book, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "この書籍はデータベースに見つかりませんでした。", nil)
		}
		return nil, err
	}
	return &book, nil
}

// UpdateInput は書籍更新の入力です。指定されたフィールドのみを上書きします。
// 更新可能なフィールドはここに列挙されたものに限られます。
type UpdateInput struct {
	Title  *string
	Author *string
	Genre  *string
	Stocks *int
}

// Update は書籍の一部フィールドを更新して返します。
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*model.Book, error) {
	book, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		book.Title = strings.TrimSpace(*input.Title)
	}
	if input.Author != nil {
		book.Author = strings.TrimSpace(*input.Author)
	}
	if input.Genre != nil {
		book.Genre = strings.TrimSpace(*input.Genre)
	}
	if input.Stocks != nil {
		book.Stocks = *input.Stocks
	}
	if book.Title == "" || book.Author == "" || book.Genre == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "title、author、genre を空にすることはできません。", nil)
	}

	if err := s.db.WithContext(ctx).Save(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

// Delete は書籍を削除し、削除した書籍のタイトルを返します。
func (s *Service) Delete(ctx context.Context, id string) (string, error) {
	book, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	if err := s.db.WithContext(ctx).Delete(&model.Book{}, "id = ?", book.ID).Error; err != nil {
		return "", err
	}
	return book.Title, nil
}
