package main

import (
	"log"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/book-vault/internal/config"
	"github.com/yourusername/book-vault/internal/loans"
	"github.com/yourusername/book-vault/internal/reminders"
)

// loanPeriod は設定の貸出期間を time.Duration に変換します。
func loanPeriod(cfg *config.Config) time.Duration {
	days := cfg.LoanPeriodDays
	if days <= 0 {
		days = 14
	}
	return time.Duration(days) * 24 * time.Hour
}

// setupReminders は期限チェックワーカーとRedisクライアントを準備します。
func setupReminders(cfg *config.Config, loanService *loans.Service) (*reminders.Manager, *redis.Client, error) {
	opt, err := redis.ParseURL(cfg.QueueRedisURL)
	if err != nil {
		return nil, nil, err
	}

	redisClient := redis.NewClient(opt)
	manager, err := reminders.NewManager(cfg.QueueRedisURL, loanService, redisClient, log.Default())
	if err != nil {
		return nil, nil, err
	}
	return manager, redisClient, nil
}
