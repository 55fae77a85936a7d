package domain

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"
)

// DefaultQueueCapacity 引擎输入队列的默认容量
// 生产者在队列满时阻塞（背压），消费者在队列空时阻塞。
const DefaultQueueCapacity = 100

var (
	// ErrMissingAmount 存取款缺少金额
	ErrMissingAmount = errors.New("deposit or withdrawal missing amount")
	// ErrAccountNotFound 争议族交易引用了不存在的账户
	ErrAccountNotFound = errors.New("account not found")
)

// AccountSnapshot 账户快照行
type AccountSnapshot struct {
	ClientID  ClientID
	Available Amount
	Held      Amount
	Total     Amount
	Locked    bool
}

// DispatchObserver 每笔交易分发后的回调，err 为 nil 表示成功生效
// 回调在消费者协程内同步执行，可以安全地读取引擎状态。
type DispatchObserver func(tx Transaction, err error, elapsed time.Duration)

// Engine 交易处理引擎
// 持有 client_id -> ClientAccount 映射和进程级的已见交易 ID 集合，
// 从有界队列按到达顺序逐笔消费。状态只被唯一的消费者协程修改，
// 顺序性对重复检测和「先争议后撤销」的因果关系是承重的。
type Engine struct {
	queue     chan Transaction
	accounts  map[ClientID]*ClientAccount
	seenTxIDs map[TxID]struct{}
	logger    *slog.Logger
	observer  DispatchObserver
}

// NewEngine 创建引擎，queueCapacity <= 0 时使用 DefaultQueueCapacity
func NewEngine(queueCapacity int, logger *slog.Logger) *Engine {
	if queueCapacity <= 0 {
		queueCapacity = DefaultQueueCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		queue:     make(chan Transaction, queueCapacity),
		accounts:  make(map[ClientID]*ClientAccount),
		seenTxIDs: make(map[TxID]struct{}),
		logger:    logger,
	}
}

// SetObserver 设置分发回调（指标上报、周期快照等），须在 Run 之前调用
func (e *Engine) SetObserver(fn DispatchObserver) {
	e.observer = fn
}

// QueueDepth 当前队列中等待消费的交易数
func (e *Engine) QueueDepth() int {
	return len(e.queue)
}

// Submit 向引擎提交一笔交易，队列满时阻塞直到空出位置或 ctx 取消
func (e *Engine) Submit(ctx context.Context, tx Transaction) error {
	select {
	case e.queue <- tx:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 关闭输入队列，表示数据源已耗尽（优雅结束，而非错误）
func (e *Engine) Close() {
	close(e.queue)
}

// Run 消费者主循环
// 逐笔取出并分发交易；业务性拒绝记录 error 日志后继续，绝不中止本轮。
// 队列关闭后把剩余条目全部排干再返回，优雅停机不丢任何交易。
func (e *Engine) Run(ctx context.Context) {
	for tx := range e.queue {
		start := time.Now()
		err := e.Apply(tx)
		if err != nil {
			e.logger.ErrorContext(ctx, "transaction rejected",
				"type", tx.Type.String(),
				"client", tx.ClientID,
				"tx", tx.TxID,
				"error", err,
			)
		}
		if e.observer != nil {
			e.observer(tx, err, time.Since(start))
		}
	}
}

// Apply 分发单笔交易到所属账户
// 存取款：先做全局交易 ID 去重（失败的首次出现同样占用该 ID），
// 再按需惰性创建账户；争议族交易只引用、不占用交易 ID，
// 账户不存在时直接丢弃。
func (e *Engine) Apply(tx Transaction) error {
	switch tx.Type {
	case TransactionTypeDeposit, TransactionTypeWithdrawal:
		if _, dup := e.seenTxIDs[tx.TxID]; dup {
			return ErrDuplicateTransaction
		}
		e.seenTxIDs[tx.TxID] = struct{}{}

		account, ok := e.accounts[tx.ClientID]
		if !ok {
			account = NewClientAccount(tx.ClientID)
			e.accounts[tx.ClientID] = account
		}
		if tx.Amount == nil {
			return ErrMissingAmount
		}
		if tx.Type == TransactionTypeDeposit {
			return account.Deposit(tx.TxID, *tx.Amount)
		}
		return account.Withdraw(tx.TxID, *tx.Amount)

	case TransactionTypeDispute, TransactionTypeResolve, TransactionTypeChargeback:
		account, ok := e.accounts[tx.ClientID]
		if !ok {
			return ErrAccountNotFound
		}
		switch tx.Type {
		case TransactionTypeDispute:
			return account.Dispute(tx.TxID)
		case TransactionTypeResolve:
			return account.Resolve(tx.TxID)
		default:
			return account.Chargeback(tx.TxID)
		}

	default:
		return ErrUnknownTransactionType
	}
}

// Account 按客户端 ID 查询账户（供查询接口与测试使用）
func (e *Engine) Account(clientID ClientID) (*ClientAccount, bool) {
	account, ok := e.accounts[clientID]
	return account, ok
}

// Snapshot 生成全部账户的快照，按客户端 ID 升序排列
func (e *Engine) Snapshot() []AccountSnapshot {
	snapshots := make([]AccountSnapshot, 0, len(e.accounts))
	for _, account := range e.accounts {
		snapshots = append(snapshots, AccountSnapshot{
			ClientID:  account.ClientID(),
			Available: account.Available(),
			Held:      account.Held(),
			Total:     account.Total(),
			Locked:    account.Locked(),
		})
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].ClientID < snapshots[j].ClientID
	})
	return snapshots
}
