package loans

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/book-vault/internal/apperr"
	"github.com/yourusername/book-vault/internal/auth"
	"github.com/yourusername/book-vault/internal/model"
)

// DueScheduler は返却期限チェックのジョブを投入できる実装が満たします。
type DueScheduler interface {
	Schedule(ctx context.Context, loanID string, processAfter time.Duration) error
}

// HandlerOptions は貸出ハンドラーの追加設定です。
type HandlerOptions struct {
	Scheduler DueScheduler
	Logger    *log.Logger
}

// BorrowHandler は POST /api/requestBooks/borrowBook のハンドラーを返します。
// 貸出を行えるのは認証済みの非管理者のみです。貸出成功後に返却期限
// チェックのジョブを投入しますが、投入失敗で貸出自体は失敗させません。
func BorrowHandler(svc *Service, opts HandlerOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			BookID     string `json:"book_id" binding:"required"`
			BookCopies int    `json:"book_copies" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			apperr.Respond(c, apperr.New(apperr.CodeInvalidInput, "book_id と book_copies を JSON で送ってください。", err))
			return
		}

		actor, _ := auth.CurrentUser(c)
		result, err := svc.Borrow(c.Request.Context(), actor, req.BookID, req.BookCopies)
		if err != nil {
			apperr.Respond(c, err)
			return
		}

		if opts.Scheduler != nil {
			if err := opts.Scheduler.Schedule(c.Request.Context(), result.ID, svc.Period()); err != nil && opts.Logger != nil {
				opts.Logger.Printf("failed to schedule due check loan=%s: %v", result.ID, err)
			}
		}

		c.JSON(http.StatusCreated, result)
	}
}

// ReturnHandler は PUT /api/requestBooks/book/ のハンドラーを返します。
// 返却できるのは貸出記録の所有者本人のみです。
func ReturnHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			BorrowedBookID string `json:"borrowedBookId" binding:"required"`
			ReturnedCopies int    `json:"returned_copies"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			apperr.Respond(c, apperr.New(apperr.CodeInvalidInput, "borrowedBookId と returned_copies を JSON で送ってください。", err))
			return
		}

		actor, _ := auth.CurrentUser(c)
		loan, err := svc.Return(c.Request.Context(), actor, req.BorrowedBookID, req.ReturnedCopies)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "返却を受け付けました。",
			"loan":    loan,
		})
	}
}

// ListAllHandler は GET /api/requestBooks/allBooks のハンドラーを返します。
// 管理者のみが全貸出記録を参照できます。
func ListAllHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svc.ListAll(c.Request.Context())
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		if list == nil {
			list = []model.Loan{}
		}
		c.JSON(http.StatusOK, gin.H{
			"count": len(list),
			"items": list,
		})
	}
}

// readerLoanView は利用者別一覧のレスポンス1件分です。
// 書籍のタイトル・著者・ジャンルと利用者名を貸出記録に展開します。
type readerLoanView struct {
	ID             string     `json:"id"`
	BookCopies     int        `json:"bookCopies"`
	ReturnedCopies int        `json:"returnedCopies"`
	BorrowDate     time.Time  `json:"borrowDate"`
	DueDate        time.Time  `json:"dueDate"`
	ReturnDate     *time.Time `json:"returnDate,omitempty"`
	Returned       bool       `json:"returned"`
	Overdue        bool       `json:"overdue"`
	Book           *struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Author string `json:"author"`
		Genre  string `json:"genre"`
	} `json:"book,omitempty"`
	User *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"user,omitempty"`
}

// ListByReaderHandler は GET /api/requestBooks/allBooksByReader のハンドラーを
// 返します。本人または管理者のみが参照できます。
func ListByReaderHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID string `json:"user_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			apperr.Respond(c, apperr.New(apperr.CodeInvalidInput, "user_id を JSON で送ってください。", err))
			return
		}

		actor, ok := auth.CurrentUser(c)
		if !ok || !auth.CanAccessOwner(actor, req.UserID) {
			apperr.Respond(c, apperr.New(apperr.CodeUnauthorized, "この利用者の貸出記録を参照する権限がありません。", nil))
			return
		}

		list, err := svc.ListByReader(c.Request.Context(), req.UserID)
		if err != nil {
			apperr.Respond(c, err)
			return
		}

		items := make([]readerLoanView, 0, len(list))
		for _, loan := range list {
			items = append(items, toReaderView(loan))
		}
		c.JSON(http.StatusOK, gin.H{
			"count": len(items),
			"items": items,
		})
	}
}

func toReaderView(loan model.Loan) readerLoanView {
	view := readerLoanView{
		ID:             loan.ID,
		BookCopies:     loan.BookCopies,
		ReturnedCopies: loan.ReturnedCopies,
		BorrowDate:     loan.BorrowDate,
		DueDate:        loan.DueDate,
		ReturnDate:     loan.ReturnDate,
		Returned:       loan.Returned,
		Overdue:        loan.Overdue,
	}
	if loan.Book != nil {
		view.Book = &struct {
			ID     string `json:"id"`
			Title  string `json:"title"`
			Author string `json:"author"`
			Genre  string `json:"genre"`
		}{
			ID:     loan.Book.ID,
			Title:  loan.Book.Title,
			Author: loan.Book.Author,
			Genre:  loan.Book.Genre,
		}
	}
	if loan.User != nil {
		view.User = &struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}{
			ID:   loan.User.ID,
			Name: loan.User.Name,
		}
	}
	return view
}
