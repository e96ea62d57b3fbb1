// Package reminders は返却期限チェックの非同期ジョブを管理します。
//
// 貸出の成立時に貸出期間後のジョブを投入し、期限を過ぎても未返却の
// 貸出記録に期限超過の印を付けます。
package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/yourusername/book-vault/internal/loans"
)

const (
	taskTypeDueCheck = "loan:due_check"

	overdueKeyPrefix = "loan:overdue:"
)

// Manager はジョブの投入と期限超過の記録を担います。
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	loans  *loans.Service
	rdb    *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// TaskPayload は期限チェックジョブのペイロードです。
type TaskPayload struct {
	LoanID string `json:"loanId"`
}

// NewManager は Manager を初期化します。rdb は nil でも動作します
// （その場合Redisへの期限超過マーカーの記録は行われません）。
func NewManager(redisURL string, loanService *loans.Service, rdb *redis.Client, logger *log.Logger) (*Manager, error) {
	if loanService == nil {
		return nil, errors.New("loanService is nil")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"loans": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		client: client,
		server: server,
		mux:    mux,
		loans:  loanService,
		rdb:    rdb,
		ttl:    loanService.Period(),
		logger: logger,
	}
	mux.HandleFunc(taskTypeDueCheck, manager.handleDueCheck)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && err != asynq.ErrServerClosed {
			if m.logger != nil {
				m.logger.Printf("asynq server stopped with error: %v", err)
			} else {
				log.Printf("asynq server stopped with error: %v", err)
			}
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.server.Shutdown()
	m.client.Close()
	return nil
}

// Schedule は貸出記録の期限チェックジョブを processAfter 後に実行される
// よう投入します。loans.DueScheduler を実装します。
func (m *Manager) Schedule(ctx context.Context, loanID string, processAfter time.Duration) error {
	if loanID == "" {
		return fmt.Errorf("loanID is required")
	}

	body, err := json.Marshal(&TaskPayload{LoanID: loanID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(taskTypeDueCheck, body, asynq.Queue("loans"))
	_, err = m.client.EnqueueContext(ctx, task, asynq.ProcessIn(processAfter), asynq.MaxRetry(1))
	return err
}

func (m *Manager) handleDueCheck(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	if payload.LoanID == "" {
		return fmt.Errorf("missing loanId in payload")
	}

	marked, err := m.loans.MarkOverdueIfOpen(ctx, payload.LoanID)
	if err != nil {
		return err
	}
	if !marked {
		return nil
	}

	if m.logger != nil {
		m.logger.Printf("loan overdue: %s", payload.LoanID)
	}
	if m.rdb != nil {
		if err := m.rdb.Set(ctx, overdueKeyPrefix+payload.LoanID, "1", m.ttl).Err(); err != nil && m.logger != nil {
			m.logger.Printf("failed to record overdue marker loan=%s: %v", payload.LoanID, err)
		}
	}
	return nil
}
