// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/book-vault/internal/auth"
	"github.com/yourusername/book-vault/internal/books"
	"github.com/yourusername/book-vault/internal/config"
	"github.com/yourusername/book-vault/internal/loans"
	"github.com/yourusername/book-vault/internal/store"
	"github.com/yourusername/book-vault/internal/users"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// データベース接続とマイグレーション
	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	origins := strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowOrigins = origins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
	}
	router.Use(cors.New(corsConfig))

	// 貸出サービスと期限チェックワーカーの準備
	loanService := loans.NewService(db, loanPeriod(cfg))
	reminderManager, redisClient, err := setupReminders(cfg, loanService)
	if err != nil {
		log.Fatalf("Failed to set up reminders: %v", err)
	}
	reminderManager.StartWorkers()

	// 認証マネージャーの準備（トークン失効リストにRedisを使用）
	authManager := auth.NewManager(cfg, db, redisClient)

	// ルーティングの設定
	setupRoutes(router, routeDeps{
		auth:      authManager,
		users:     users.NewService(db),
		books:     books.NewService(db),
		loans:     loanService,
		scheduler: reminderManager,
	})

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s (mode: %s)", addr, cfg.GinMode)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "book-vault-api",
		"version": "0.1.0",
	})
}

// routeDeps はルーティングに必要な依存をまとめた構造体です。
type routeDeps struct {
	auth      *auth.Manager
	users     *users.Service
	books     *books.Service
	loans     *loans.Service
	scheduler loans.DueScheduler
}

// setupRoutes は API グループと認証周りの配線を行います。
func setupRoutes(router *gin.Engine, deps routeDeps) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	api := router.Group("/api")
	{
		userRoutes := api.Group("/users")
		{
			userRoutes.POST("/login", deps.auth.Login)
			userRoutes.POST("/logout", deps.auth.Logout)
			userRoutes.POST("/create",
				deps.auth.RequireLogin(),
				deps.auth.RequireAdmin(),
				users.CreateHandler(deps.users),
			)
			userRoutes.GET("/allprofiles",
				deps.auth.RequireLogin(),
				deps.auth.RequireAdmin(),
				users.ListAllHandler(deps.users),
			)

			// 本人または管理者のみ。所有者判定はハンドラー内で行う
			profile := userRoutes.Group("/profile", deps.auth.RequireLogin())
			{
				profile.GET("/:id", users.GetHandler(deps.users))
				profile.PUT("/:id", users.UpdateHandler(deps.users))
				profile.DELETE("/:id", users.DeleteHandler(deps.users))
			}
		}

		bookRoutes := api.Group("/books")
		{
			bookRoutes.POST("/createBook",
				deps.auth.RequireLogin(),
				deps.auth.RequireAdmin(),
				books.CreateHandler(deps.books),
			)
			bookRoutes.GET("/allBooks", books.ListAllHandler(deps.books))
			bookRoutes.GET("/author", books.ListByAuthorHandler(deps.books))
			bookRoutes.GET("/book/:book_id", books.GetHandler(deps.books))
			bookRoutes.PUT("/book/:book_id",
				deps.auth.RequireLogin(),
				deps.auth.RequireAdmin(),
				books.UpdateHandler(deps.books),
			)
			bookRoutes.DELETE("/book/:book_id",
				deps.auth.RequireLogin(),
				deps.auth.RequireAdmin(),
				books.DeleteHandler(deps.books),
			)
		}

		borrowRoutes := api.Group("/requestBooks", deps.auth.RequireLogin())
		{
			borrowRoutes.POST("/borrowBook", loans.BorrowHandler(deps.loans, loans.HandlerOptions{
				Scheduler: deps.scheduler,
				Logger:    log.Default(),
			}))
			borrowRoutes.GET("/allBooks",
				deps.auth.RequireAdmin(),
				loans.ListAllHandler(deps.loans),
			)
			borrowRoutes.GET("/allBooksByReader", loans.ListByReaderHandler(deps.loans))
			borrowRoutes.PUT("/book/", loans.ReturnHandler(deps.loans))
		}
	}
}
