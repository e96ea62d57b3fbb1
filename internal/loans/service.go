// Package loans は貸出・返却の状態遷移と貸出記録の参照を提供します。
//
// 貸出記録は ACTIVE（未返却）→ PARTIALLY_RETURNED（一部返却）→
// FULLY_RETURNED（全冊返却、終端）の順に遷移します。在庫の増減と
// 貸出記録の作成・更新は常に単一のトランザクションで行います。
package loans

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/book-vault/internal/apperr"
	"github.com/yourusername/book-vault/internal/model"
)

// Service は貸出操作をまとめた構造体です。
type Service struct {
	db     *gorm.DB
	period time.Duration
	now    func() time.Time
}

// NewService は Service を作成します。loanPeriod は返却期限までの期間です。
func NewService(db *gorm.DB, loanPeriod time.Duration) *Service {
	return &Service{
		db:     db,
		period: loanPeriod,
		now:    time.Now,
	}
}

// Period は貸出期間を返します。期限チェックの投入に使用します。
func (s *Service) Period() time.Duration {
	return s.period
}

// BorrowResult は貸出成功時のレスポンス内容です。
type BorrowResult struct {
	ID   string `json:"id"`
	User struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"user"`
	Book struct {
		ID              string `json:"id"`
		Title           string `json:"title"`
		Author          string `json:"author"`
		Genre           string `json:"genre"`
		BorrowedCopies  int    `json:"borrowedCopies"`
		RemainingStocks int    `json:"remainingStocks"`
	} `json:"book"`
	BorrowDate time.Time `json:"borrowDate"`
	DueDate    time.Time `json:"dueDate"`
}

// Borrow は書籍を貸し出します。
//
// 前提条件: 呼び出し元は認証済みの非管理者で、対象の書籍が存在し、
// 同じ書籍の未返却の貸出記録を持っておらず、要求冊数分の在庫があること。
// 在庫の減算は要求冊数を条件に含めた1文のUPDATEで行うため、
// 同時リクエストがあっても在庫が要求未満のまま減ることはありません。
func (s *Service) Borrow(ctx context.Context, actor *model.User, bookID string, copies int) (*BorrowResult, error) {
	if actor == nil {
		return nil, apperr.New(apperr.CodeUnauthorized, "認証されていません。", nil)
	}
	if actor.IsAdmin {
		return nil, apperr.New(apperr.CodeUnauthorized, "管理者は貸出を利用できません。", nil)
	}
	if _, err := uuid.Parse(bookID); err != nil {
		return nil, apperr.New(apperr.CodeInvalidID, "書籍IDの形式が正しくありません。", err)
	}
	if copies < 1 {
		return nil, apperr.New(apperr.CodeInvalidInput, "貸出冊数は1以上を指定してください。", nil)
	}

	now := s.now()
	loan := &model.Loan{
		UserID:     actor.ID,
		BookID:     bookID,
		BookCopies: copies,
		BorrowDate: now,
		DueDate:    now.Add(s.period),
	}
	var book model.Book

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&book, "id = ?", bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.CodeNotFound, "この書籍はデータベースに見つかりませんでした。", nil)
			}
			return err
		}

		var open int64
		if err := tx.Model(&model.Loan{}).
			Where("user_id = ? AND book_id = ? AND returned = ?", actor.ID, bookID, false).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return apperr.New(apperr.CodeAlreadyBorrowed, "この書籍はすでに借りています。", nil)
		}

		// 在庫確認と減算を1文で行う。影響行数0は在庫不足を意味する
		result := tx.Model(&model.Book{}).
			Where("id = ? AND stocks >= ?", bookID, copies).
			Update("stocks", gorm.Expr("stocks - ?", copies))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.New(apperr.CodeInsufficientStock, "この書籍の在庫が不足しています。", nil)
		}

		if err := tx.Create(loan).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &BorrowResult{
		ID:         loan.ID,
		BorrowDate: loan.BorrowDate,
		DueDate:    loan.DueDate,
	}
	res.User.ID = actor.ID
	res.User.Name = actor.Name
	res.Book.ID = book.ID
	res.Book.Title = book.Title
	res.Book.Author = book.Author
	res.Book.Genre = book.Genre
	res.Book.BorrowedCopies = copies
	res.Book.RemainingStocks = book.Stocks - copies
	return res, nil
}

// Return は借りた書籍を返却します。一部返却も可能です。
//
// 返却できるのは貸出記録の所有者本人のみで、管理者による代理返却は
// 許可しません。返却日時は返却のたびに上書きされ、最後の返却日時のみが
// 残ります。未返却の冊数が0になった時点で記録は終端状態になります。
func (s *Service) Return(ctx context.Context, actor *model.User, loanID string, copies int) (*model.Loan, error) {
	if actor == nil {
		return nil, apperr.New(apperr.CodeUnauthorized, "認証されていません。", nil)
	}
	if _, err := uuid.Parse(loanID); err != nil {
		return nil, apperr.New(apperr.CodeInvalidID, "貸出記録IDの形式が正しくありません。", err)
	}

	var loan model.Loan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&loan, "id = ?", loanID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.CodeNotFound, "貸出記録が見つかりません。", nil)
			}
			return err
		}

		if loan.UserID != actor.ID {
			return apperr.New(apperr.CodeUnauthorized, "この貸出記録を返却する権限がありません。", nil)
		}
		if loan.Returned {
			return apperr.New(apperr.CodeAlreadyReturned, "この書籍はすでに返却されています。", nil)
		}
		if copies < 1 {
			return apperr.New(apperr.CodeInvalidInput, "返却冊数は1以上を指定してください。", nil)
		}
		if copies > loan.BookCopies {
			return apperr.New(apperr.CodeOverReturn, "借りた冊数を超えて返却することはできません。", nil)
		}

		if err := tx.Model(&model.Book{}).
			Where("id = ?", loan.BookID).
			Update("stocks", gorm.Expr("stocks + ?", copies)).Error; err != nil {
			return err
		}

		now := s.now()
		loan.BookCopies -= copies
		loan.ReturnedCopies += copies
		loan.ReturnDate = &now
		if loan.BookCopies == 0 {
			loan.Returned = true
		}
		if err := tx.Save(&loan).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// ListAll は全貸出記録を新しい順に返します。
func (s *Service) ListAll(ctx context.Context) ([]model.Loan, error) {
	var list []model.Loan
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListByReader は指定した利用者の貸出記録を、書籍情報と利用者名を
// 含めて新しい順に返します。
func (s *Service) ListByReader(ctx context.Context, userID string) ([]model.Loan, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, apperr.New(apperr.CodeInvalidID, "ユーザーIDの形式が正しくありません。", err)
	}

	var list []model.Loan
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Preload("Book").
		Preload("User").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// MarkOverdueIfOpen は期限を過ぎても未返却の貸出記録に期限超過の印を
// 付けます。印を付けた場合に true を返します。
func (s *Service) MarkOverdueIfOpen(ctx context.Context, loanID string) (bool, error) {
	var loan model.Loan
	if err := s.db.WithContext(ctx).First(&loan, "id = ?", loanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if loan.Returned || loan.Overdue || s.now().Before(loan.DueDate) {
		return false, nil
	}

	if err := s.db.WithContext(ctx).Model(&model.Loan{}).
		Where("id = ?", loan.ID).
		Update("overdue", true).Error; err != nil {
		return false, err
	}
	return true, nil
}
