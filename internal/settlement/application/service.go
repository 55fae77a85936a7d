// Package application 实现结算服务的应用层编排
package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/paymentsengine/internal/settlement/domain"
	"github.com/wyfcoding/paymentsengine/pkg/metrics"
)

// TransactionSource 交易数据源抽象，CSV 文件与 Kafka 主题均实现该接口
// Next 在数据源耗尽时返回 io.EOF；其余错误视为不可恢复并中止处理。
type TransactionSource interface {
	Next(ctx context.Context) (domain.Transaction, error)
}

// SettlementService 结算服务
// 编排生产者/消费者管道：生产者从数据源逐笔读取并提交到引擎的有界队列，
// 消费者在独立协程里顺序消费。已发布的快照副本在读写锁保护下供查询接口使用，
// 查询永远不触碰引擎的可变状态。
type SettlementService struct {
	engine           *domain.Engine
	logger           *slog.Logger
	metrics          *metrics.Metrics
	snapshotInterval int

	processed uint64

	mu        sync.RWMutex
	published []domain.AccountSnapshot
}

// NewSettlementService 创建结算服务，metrics 可为 nil（批处理模式不暴露指标）
func NewSettlementService(engine *domain.Engine, logger *slog.Logger, m *metrics.Metrics, snapshotInterval int) *SettlementService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SettlementService{
		engine:           engine,
		logger:           logger,
		metrics:          m,
		snapshotInterval: snapshotInterval,
	}
	// 回调在消费者协程内执行，读取引擎状态无需加锁
	engine.SetObserver(s.observe)
	return s
}

// Process 驱动一次完整的处理流程，返回最终快照（按客户端 ID 升序）
// 生产者无论成败都关闭队列，保证消费者排干剩余交易后退出；
// 数据源错误会取消整个管道并原样返回，ctx 取消视为数据流正常结束
//（流式摄入靠信号停机），仍然返回排干后的最终快照。
func (s *SettlementService) Process(ctx context.Context, src TransactionSource) ([]domain.AccountSnapshot, error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.engine.Run(gctx)
		return nil
	})

	g.Go(func() error {
		defer s.engine.Close()
		for {
			tx, err := src.Next(gctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read transaction source: %w", err)
			}
			if err := s.engine.Submit(gctx, tx); err != nil {
				return err
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}

	snapshots := s.engine.Snapshot()
	s.publish(snapshots)
	s.logger.InfoContext(ctx, "settlement completed",
		"transactions", s.processed,
		"accounts", len(snapshots),
	)
	return snapshots, nil
}

// Accounts 返回最近发布的全量账户视图
func (s *SettlementService) Accounts() []AccountDTO {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dtos := make([]AccountDTO, 0, len(s.published))
	for _, snap := range s.published {
		dtos = append(dtos, NewAccountDTO(snap))
	}
	return dtos
}

// Account 按客户端 ID 查询最近发布的账户视图
func (s *SettlementService) Account(clientID domain.ClientID) (AccountDTO, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, snap := range s.published {
		if snap.ClientID == clientID {
			return NewAccountDTO(snap), true
		}
	}
	return AccountDTO{}, false
}

// RecordSkipped 记录一条被数据源跳过的非法输入
func (s *SettlementService) RecordSkipped() {
	if s.metrics != nil {
		s.metrics.RecordsSkipped.Inc()
	}
}

// observe 引擎分发回调：上报指标并按周期发布快照
func (s *SettlementService) observe(tx domain.Transaction, err error, elapsed time.Duration) {
	s.processed++

	if s.metrics != nil {
		s.metrics.DispatchDuration.Observe(elapsed.Seconds())
		s.metrics.QueueDepth.Set(float64(s.engine.QueueDepth()))
		if err != nil {
			s.metrics.TransactionsRejected.WithLabelValues(rejectionReason(err)).Inc()
		} else {
			s.metrics.TransactionsApplied.WithLabelValues(tx.Type.String()).Inc()
		}
	}

	if s.snapshotInterval > 0 && s.processed%uint64(s.snapshotInterval) == 0 {
		s.publish(s.engine.Snapshot())
	}
}

// publish 替换已发布的快照副本
func (s *SettlementService) publish(snapshots []domain.AccountSnapshot) {
	s.mu.Lock()
	s.published = snapshots
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.AccountsActive.Set(float64(len(snapshots)))
	}
}

// rejectionReason 把领域错误映射为低基数的指标标签
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, domain.ErrDuplicateTransaction):
		return "duplicate_tx"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrNegativeAmount):
		return "negative_amount"
	case errors.Is(err, domain.ErrTransactionNotFound):
		return "tx_not_found"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, domain.ErrNotDisputable):
		return "not_disputable"
	case errors.Is(err, domain.ErrAlreadyDisputed):
		return "already_disputed"
	case errors.Is(err, domain.ErrNoOpenDispute):
		return "no_open_dispute"
	case errors.Is(err, domain.ErrMissingAmount):
		return "missing_amount"
	case errors.Is(err, domain.ErrAmountOverflow):
		return "amount_overflow"
	default:
		return "other"
	}
}
