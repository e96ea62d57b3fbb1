// Package users は利用者アカウントの管理機能を提供します。
package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yourusername/book-vault/internal/apperr"
	"github.com/yourusername/book-vault/internal/model"
)

// Service はアカウント操作をまとめた構造体です。
type Service struct {
	db *gorm.DB
}

// NewService は Service を作成します。
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateInput はアカウント作成の入力です。
type CreateInput struct {
	Name     string
	Email    string
	Password string
	IsAdmin  bool
}

// Create はアカウントを作成します。自己登録の経路は存在せず、
// 管理者による作成のみを想定しています。
func (s *Service) Create(ctx context.Context, input CreateInput) (*model.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if input.Name == "" || input.Email == "" || input.Password == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "name、email、password をすべて指定してください。", nil)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ?", input.Email).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.New(apperr.CodeConflict, "このユーザーはすでに存在します。", nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:     input.Name,
		Email:    input.Email,
		Password: string(hashed),
		IsAdmin:  input.IsAdmin,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// ListAll は全アカウントを登録の新しい順に返します。
func (s *Service) ListAll(ctx context.Context) ([]model.User, error) {
	var list []model.User
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Get はIDでアカウントを1件取得します。IDの形式不正と不存在は区別して返します。
func (s *Service) Get(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.New(apperr.CodeInvalidID, "ユーザーIDの形式が正しくありません。", err)
	}

	var user model.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "このユーザーは存在しません。", nil)
		}
		return nil, err
	}
	return &user, nil
}

// UpdateInput はアカウント更新の入力です。指定されたフィールドのみを上書きします。
type UpdateInput struct {
	Name     *string
	Email    *string
	Password *string
	IsAdmin  *bool
}

// Update はアカウントの一部フィールドを更新して返します。
// isAdmin の変更は管理者のみに許可されます。
func (s *Service) Update(ctx context.Context, id string, input UpdateInput, actorIsAdmin bool) (*model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.IsAdmin != nil && !actorIsAdmin {
		return nil, apperr.New(apperr.CodeUnauthorized, "isAdmin の変更には管理者権限が必要です。", nil)
	}

	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		user.Email = strings.TrimSpace(*input.Email)
	}
	if input.Password != nil {
		if *input.Password == "" {
			return nil, apperr.New(apperr.CodeInvalidInput, "password を空にすることはできません。", nil)
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hashed)
	}
	if input.IsAdmin != nil {
		user.IsAdmin = *input.IsAdmin
	}
	if user.Name == "" || user.Email == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "name と email を空にすることはできません。", nil)
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Delete はアカウントを削除し、削除したユーザーの名前を返します。
func (s *Service) Delete(ctx context.Context, id string) (string, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	if err := s.db.WithContext(ctx).Delete(&model.User{}, "id = ?", user.ID).Error; err != nil {
		return "", err
	}
	return user.Name, nil
}
