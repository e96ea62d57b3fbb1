// Package auth は認証・認可機能を提供します。
package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yourusername/book-vault/internal/apperr"
	"github.com/yourusername/book-vault/internal/config"
	"github.com/yourusername/book-vault/internal/model"
)

const (
	// TokenCookieName は認証トークンを載せるクッキー名です。
	TokenCookieName = "jwt"

	// ContextUserKey は、ハンドラー間で認証済みユーザーを共有するためのキーです。
	ContextUserKey = "auth.user"

	revokedKeyPrefix = "revoked_token:"
)

// tokenLifetime はトークンとクッキーの有効期間です。
// トークン自体が唯一のセッション情報で、サーバー側にセッションは持ちません。
var tokenLifetime = 30 * 24 * time.Hour

// TokenMaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func TokenMaxAgeSeconds() int {
	return int(tokenLifetime.Seconds())
}

// Manager は認証処理と依存をまとめた構造体です。
type Manager struct {
	cfg *config.Config
	db  *gorm.DB
	rdb *redis.Client
}

// NewManager は認証マネージャーを作成します。rdb は nil でも動作します
// （その場合ログアウトによるトークン失効は行われません）。
func NewManager(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *Manager {
	return &Manager{
		cfg: cfg,
		db:  db,
		rdb: rdb,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login は POST /api/users/login のハンドラーです。
// 認証に成功するとトークンをクッキーに設定します。
func (m *Manager) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.New(apperr.CodeInvalidInput, "email と password を JSON で送ってください。", err))
		return
	}

	var user model.User
	err := m.db.WithContext(c.Request.Context()).
		Where("email = ?", req.Email).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apperr.Respond(c, apperr.New(apperr.CodeNotFound, "このメールアドレスのアカウントは登録されていません。", nil))
			return
		}
		apperr.Respond(c, err)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		apperr.Respond(c, apperr.New(apperr.CodeInvalidCredentials, "メールアドレスまたはパスワードが正しくありません。", nil))
		return
	}

	token, err := m.GenerateToken(user.ID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	m.setTokenCookie(c, token)

	c.JSON(http.StatusOK, gin.H{
		"message": "ログインしました。",
		"id":      user.ID,
		"name":    user.Name,
		"email":   user.Email,
	})
}

// Logout は POST /api/users/logout のハンドラーです。
// クッキーを失効させ、提示されたトークンを失効リストに登録します。
func (m *Manager) Logout(c *gin.Context) {
	if token, err := c.Cookie(TokenCookieName); err == nil && token != "" {
		m.revokeToken(c, token)
	}
	m.clearTokenCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "ログアウトしました。"})
}

// RequireLogin はクッキーのトークンを検証するミドルウェアを返します。
// 検証に成功した場合、解決済みのユーザーをコンテキストに設定します。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(TokenCookieName)
		if err != nil || token == "" {
			apperr.Abort(c, apperr.New(apperr.CodeUnauthorized, "トークンが存在しません。", nil))
			return
		}

		subject, err := m.parseToken(token)
		if err != nil {
			apperr.Abort(c, apperr.New(apperr.CodeUnauthorized, "無効なトークンです。", err))
			return
		}

		if m.isRevoked(c, token) {
			apperr.Abort(c, apperr.New(apperr.CodeUnauthorized, "このトークンは失効しています。", nil))
			return
		}

		var user model.User
		if err := m.db.WithContext(c.Request.Context()).First(&user, "id = ?", subject).Error; err != nil {
			apperr.Abort(c, apperr.New(apperr.CodeUnauthorized, "ユーザーが見つかりません。", err))
			return
		}

		c.Set(ContextUserKey, &user)
		c.Next()
	}
}

// RequireAdmin は管理者のみ許可するミドルウェアを返します。
// RequireLogin の後段に配置する前提です。
func (m *Manager) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || !user.IsAdmin {
			apperr.Abort(c, apperr.New(apperr.CodeUnauthorized, "この操作には管理者権限が必要です。", nil))
			return
		}
		c.Next()
	}
}

// CurrentUser はコンテキストから認証済みユーザーを取得します。
func CurrentUser(c *gin.Context) (*model.User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*model.User)
	return user, ok
}

// CanAccessOwner は本人または管理者のみ許可する判定を行います。
func CanAccessOwner(actor *model.User, ownerID string) bool {
	if actor == nil {
		return false
	}
	return actor.IsAdmin || actor.ID == ownerID
}

// GenerateToken はユーザーIDを subject に持つ署名付きトークンを生成します。
func (m *Manager) GenerateToken(userID string) (string, error) {
	if m.cfg.JWTSecret == "" {
		return "", errors.New("JWT_SECRET が設定されていません")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.cfg.JWTSecret))
}

// parseToken は署名と有効期限を検証し、subject を返します。
func (m *Manager) parseToken(tokenStr string) (string, error) {
	if m.cfg.JWTSecret == "" {
		return "", errors.New("JWT_SECRET が設定されていません")
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(m.cfg.JWTSecret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token claims")
	}
	return claims.Subject, nil
}

func (m *Manager) setTokenCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(
		TokenCookieName,
		token,
		TokenMaxAgeSeconds(),
		"/",
		"",
		m.cfg.GinMode == gin.ReleaseMode,
		true,
	)
}

func (m *Manager) clearTokenCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(
		TokenCookieName,
		"",
		-1,
		"/",
		"",
		m.cfg.GinMode == gin.ReleaseMode,
		true,
	)
}

// revokeToken はトークンを残存有効期間だけ失効リストに保持します。
func (m *Manager) revokeToken(c *gin.Context, token string) {
	if m.rdb == nil {
		return
	}

	ttl := tokenLifetime
	var claims jwt.RegisteredClaims
	if _, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(m.cfg.JWTSecret), nil
	}); err == nil && claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return
	}

	_ = m.rdb.Set(c.Request.Context(), revokedKeyPrefix+token, "1", ttl).Err()
}

func (m *Manager) isRevoked(c *gin.Context, token string) bool {
	if m.rdb == nil {
		return false
	}
	n, err := m.rdb.Exists(c.Request.Context(), revokedKeyPrefix+token).Result()
	if err != nil {
		return false
	}
	return n > 0
}
