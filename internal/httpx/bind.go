// Package httpx はハンドラー共通のリクエスト処理ヘルパーを提供します。
package httpx

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
)

// BindStrict はJSONボディを未知フィールドを拒否しつつデコードします。
// 更新系エンドポイントで許可リスト外のフィールドを弾くために使用します。
func BindStrict(c *gin.Context, dst any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// JSON本体の後に余分なデータがある場合も不正とみなす
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
