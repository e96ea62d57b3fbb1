// Package model は永続化対象のエンティティを定義します。
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User は利用者アカウントを表します。
// パスワードは bcrypt ハッシュのみを保持し、レスポンスには含めません。
type User struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"index;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	IsAdmin   bool      `gorm:"not null;default:false" json:"isAdmin"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// BeforeCreate は主キーが未設定の場合にUUIDを採番します。
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Book は蔵書を表します。Stocks は貸出可能な冊数です。
type Book struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Author    string    `gorm:"index;not null" json:"author"`
	Genre     string    `gorm:"not null" json:"genre"`
	Stocks    int       `gorm:"not null" json:"stocks"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// BeforeCreate は主キーが未設定の場合にUUIDを採番します。
func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Loan は貸出記録を表します。返却が完了しても削除されず、履歴として残ります。
//
// 不変条件: ReturnedCopies + BookCopies は貸出時の冊数に常に一致します。
// また同一の (UserID, BookID) に対して Returned=false の記録は高々1件です。
type Loan struct {
	ID             string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string     `gorm:"type:uuid;index;not null" json:"userId"`
	BookID         string     `gorm:"type:uuid;index;not null" json:"bookId"`
	User           *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Book           *Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
	BookCopies     int        `gorm:"not null" json:"bookCopies"`
	ReturnedCopies int        `gorm:"not null;default:0" json:"returnedCopies"`
	BorrowDate     time.Time  `gorm:"not null" json:"borrowDate"`
	DueDate        time.Time  `gorm:"not null" json:"dueDate"`
	ReturnDate     *time.Time `json:"returnDate,omitempty"`
	Returned       bool       `gorm:"index;not null;default:false" json:"returned"`
	Overdue        bool       `gorm:"not null;default:false" json:"overdue"`
	CreatedAt      time.Time  `json:"-"`
	UpdatedAt      time.Time  `json:"-"`
}

// BeforeCreate は主キーが未設定の場合にUUIDを採番します。
func (l *Loan) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// BorrowedAmount は貸出時の冊数を返します。
func (l *Loan) BorrowedAmount() int {
	return l.BookCopies + l.ReturnedCopies
}
