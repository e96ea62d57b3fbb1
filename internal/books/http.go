package books

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/book-vault/internal/apperr"
	"github.com/yourusername/book-vault/internal/httpx"
	"github.com/yourusername/book-vault/internal/model"
)

// CreateHandler は POST /api/books/createBook のハンドラーを返します。
func CreateHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Title  string `json:"title" binding:"required"`
			Author string `json:"author" binding:"required"`
			Genre  string `json:"genre" binding:"required"`
			Stocks int    `json:"stocks"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			apperr.Respond(c, apperr.New(apperr.CodeInvalidInput, "title、author、genre、stocks を JSON で送ってください。", err))
			return
		}

		book, err := svc.Create(c.Request.Context(), CreateInput{
			Title:  req.Title,
			Author: req.Author,
			Genre:  req.Genre,
			Stocks: req.Stocks,
		})
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusCreated, book)
	}
}

// ListAllHandler は GET /api/books/allBooks のハンドラーを返します。
// 書籍が1冊もない場合も件数0の空コレクションを返します。
func ListAllHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svc.ListAll(c.Request.Context())
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		respondList(c, list)
	}
}

// ListByAuthorHandler は GET /api/books/author のハンドラーを返します。
func ListByAuthorHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Author string `json:"author" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			apperr.Respond(c, apperr.New(apperr.CodeInvalidInput, "author を JSON で送ってください。", err))
			return
		}

		list, err := svc.ListByAuthor(c.Request.Context(), req.Author)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		respondList(c, list)
	}
}

// GetHandler は GET /api/books/book/:book_id のハンドラーを返します。
func GetHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		book, err := svc.Get(c.Request.Context(), c.Param("book_id"))
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, book)
	}
}

// UpdateHandler は PUT /api/books/book/:book_id のハンドラーを返します。
// 更新可能なフィールドは title、author、genre、stocks のみで、
// それ以外のフィールドを含むリクエストは拒否します。
func UpdateHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Title  *string `json:"title"`
			Author *string `json:"author"`
			Genre  *string `json:"genre"`
			Stocks *int    `json:"stocks"`
		}
		if err := httpx.BindStrict(c, &req); err != nil {
			apperr.Respond(c, apperr.New(apperr.CodeInvalidInput, "更新できるのは title、author、genre、stocks のみです。", err))
			return
		}

		book, err := svc.Update(c.Request.Context(), c.Param("book_id"), UpdateInput{
			Title:  req.Title,
			Author: req.Author,
			Genre:  req.Genre,
			Stocks: req.Stocks,
		})
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, book)
	}
}

// DeleteHandler は DELETE /api/books/book/:book_id のハンドラーを返します。
func DeleteHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		title, err := svc.Delete(c.Request.Context(), c.Param("book_id"))
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "『" + title + "』の書籍情報を削除しました。",
		})
	}
}

func respondList(c *gin.Context, list []model.Book) {
	if list == nil {
		list = []model.Book{}
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(list),
		"items": list,
	})
}
