// Package apperr はAPI全体で共通のエラー型とHTTPレスポンスへの変換を提供します。
package apperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// エラーコード一覧。コードごとにHTTPステータスが決まります。
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInvalidID          = "INVALID_ID"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeAlreadyReturned    = "ALREADY_RETURNED"
	CodeAlreadyBorrowed    = "ALREADY_BORROWED"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeOverReturn         = "OVER_RETURN"
	CodeInternal           = "INTERNAL_ERROR"
)

var statusByCode = map[string]int{
	CodeInvalidInput:       http.StatusBadRequest,
	CodeInvalidID:          http.StatusBadRequest,
	CodeInvalidCredentials: http.StatusBadRequest,
	CodeUnauthorized:       http.StatusUnauthorized,
	CodeNotFound:           http.StatusNotFound,
	CodeConflict:           http.StatusConflict,
	CodeAlreadyReturned:    http.StatusConflict,
	CodeAlreadyBorrowed:    http.StatusUnprocessableEntity,
	CodeInsufficientStock:  http.StatusUnprocessableEntity,
	CodeOverReturn:         http.StatusUnprocessableEntity,
	CodeInternal:           http.StatusInternalServerError,
}

// Error はコードと利用者向けメッセージを持つAPIエラーです。
type Error struct {
	Code    string
	Message string
	Err     error
}

// Error は error インターフェースを実装します。
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap は原因となったエラーを返します。
func (e *Error) Unwrap() error {
	return e.Err
}

// New は新しいAPIエラーを作成します。cause は nil でも構いません。
func New(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// Status はコードに対応するHTTPステータスを返します。
func (e *Error) Status() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusBadRequest
}

// Respond はエラーを {code, message} 形式のJSONレスポンスに変換します。
// *Error 以外のエラーはすべて内部エラーとして扱います。
func Respond(c *gin.Context, err error) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.Status(), gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    CodeInternal,
		"message": "サーバー内部でエラーが発生しました。",
	})
}

// Abort はミドルウェアからエラーを返し、後続の処理を中断します。
func Abort(c *gin.Context, err *Error) {
	c.AbortWithStatusJSON(err.Status(), gin.H{
		"code":    err.Code,
		"message": err.Message,
	})
}
