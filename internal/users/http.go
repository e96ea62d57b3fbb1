package users

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/book-vault/internal/apperr"
	"github.com/yourusername/book-vault/internal/auth"
	"github.com/yourusername/book-vault/internal/httpx"
	"github.com/yourusername/book-vault/internal/model"
)

// CreateHandler は POST /api/users/create のハンドラーを返します。
// 管理者のみがアカウントを作成できます（自己登録はできません）。
func CreateHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name     string `json:"name" binding:"required"`
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
			IsAdmin  bool   `json:"isAdmin"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			apperr.Respond(c, apperr.New(apperr.CodeInvalidInput, "name、email、password を JSON で送ってください。", err))
			return
		}

		user, err := svc.Create(c.Request.Context(), CreateInput{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			IsAdmin:  req.IsAdmin,
		})
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

// ListAllHandler は GET /api/users/allprofiles のハンドラーを返します。
func ListAllHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svc.ListAll(c.Request.Context())
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		if list == nil {
			list = []model.User{}
		}
		c.JSON(http.StatusOK, gin.H{
			"count": len(list),
			"items": list,
		})
	}
}

// GetHandler は GET /api/users/profile/:id のハンドラーを返します。
// 本人または管理者のみが参照できます。
func GetHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !requireOwnerOrAdmin(c, id) {
			return
		}

		user, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// UpdateHandler は PUT /api/users/profile/:id のハンドラーを返します。
// 更新可能なフィールドは name、email、password、isAdmin のみで、
// それ以外のフィールドを含むリクエストは拒否します。
func UpdateHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !requireOwnerOrAdmin(c, id) {
			return
		}

		var req struct {
			Name     *string `json:"name"`
			Email    *string `json:"email"`
			Password *string `json:"password"`
			IsAdmin  *bool   `json:"isAdmin"`
		}
		if err := httpx.BindStrict(c, &req); err != nil {
			apperr.Respond(c, apperr.New(apperr.CodeInvalidInput, "更新できるのは name、email、password、isAdmin のみです。", err))
			return
		}

		actor, _ := auth.CurrentUser(c)
		user, err := svc.Update(c.Request.Context(), id, UpdateInput{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			IsAdmin:  req.IsAdmin,
		}, actor != nil && actor.IsAdmin)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// DeleteHandler は DELETE /api/users/profile/:id のハンドラーを返します。
func DeleteHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !requireOwnerOrAdmin(c, id) {
			return
		}

		name, err := svc.Delete(c.Request.Context(), id)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": name + " さんのプロフィールを削除しました。",
		})
	}
}

// requireOwnerOrAdmin は本人または管理者であることを確認します。
// 条件を満たさない場合はレスポンスを書き込み false を返します。
func requireOwnerOrAdmin(c *gin.Context, ownerID string) bool {
	actor, ok := auth.CurrentUser(c)
	if !ok || !auth.CanAccessOwner(actor, ownerID) {
		apperr.Abort(c, apperr.New(apperr.CodeUnauthorized, "この操作を行う権限がありません。", nil))
		return false
	}
	return true
}
