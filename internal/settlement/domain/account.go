package domain

import "errors"

var (
	// ErrAccountLocked 账户已锁定，拒绝新的存取款与新发起的争议
	ErrAccountLocked = errors.New("account is locked")
	// ErrNegativeAmount 金额为负
	ErrNegativeAmount = errors.New("amount must be non-negative")
	// ErrDuplicateTransaction 交易 ID 重复
	ErrDuplicateTransaction = errors.New("duplicate transaction id")
	// ErrInsufficientFunds 可用余额不足
	ErrInsufficientFunds = errors.New("insufficient available funds")
	// ErrTransactionNotFound 账本中不存在被引用的交易
	ErrTransactionNotFound = errors.New("transaction not found in ledger")
	// ErrNotDisputable 只有存款可以被争议
	ErrNotDisputable = errors.New("only deposits can be disputed")
	// ErrAlreadyDisputed 交易已处于争议流程中或已终结
	ErrAlreadyDisputed = errors.New("transaction already disputed or settled")
	// ErrNoOpenDispute 交易没有处于打开状态的争议
	ErrNoOpenDispute = errors.New("transaction has no open dispute")
)

// DisputeStatus 单笔账本条目的争议状态
// 状态只沿 None -> Disputed -> {Resolved | ChargedBack} 单向迁移，
// Resolved 与 ChargedBack 为终态。
type DisputeStatus int8

const (
	DisputeStatusNone        DisputeStatus = 0 // 未争议
	DisputeStatusDisputed    DisputeStatus = 1 // 争议中
	DisputeStatusResolved    DisputeStatus = 2 // 已撤销（终态）
	DisputeStatusChargedBack DisputeStatus = 3 // 已拒付（终态）
)

func (s DisputeStatus) String() string {
	switch s {
	case DisputeStatusNone:
		return "NONE"
	case DisputeStatusDisputed:
		return "DISPUTED"
	case DisputeStatusResolved:
		return "RESOLVED"
	case DisputeStatusChargedBack:
		return "CHARGED_BACK"
	default:
		return "UNKNOWN"
	}
}

// LedgerEntry 账本条目
// 只记录成功生效的存取款；失败的交易从不入账。
type LedgerEntry struct {
	Type   TransactionType
	Amount Amount
	Status DisputeStatus
}

// ClientAccount 单个客户端的账户
// 维护不变量 Total() == available + held；状态只由引擎的
// 单一消费者按到达顺序修改，不需要加锁。
type ClientAccount struct {
	clientID  ClientID
	available Amount
	held      Amount
	locked    bool
	ledger    map[TxID]*LedgerEntry
}

// NewClientAccount 创建余额为零的账户
func NewClientAccount(clientID ClientID) *ClientAccount {
	return &ClientAccount{
		clientID: clientID,
		ledger:   make(map[TxID]*LedgerEntry),
	}
}

// ClientID 返回客户端 ID
func (a *ClientAccount) ClientID() ClientID { return a.clientID }

// Available 返回可用余额
func (a *ClientAccount) Available() Amount { return a.available }

// Held 返回争议冻结余额
func (a *ClientAccount) Held() Amount { return a.held }

// Total 返回总余额，恒等于 available + held，是派生值、从不单独存储
func (a *ClientAccount) Total() Amount { return a.available.Add(a.held) }

// Locked 账户是否已被拒付锁定
func (a *ClientAccount) Locked() bool { return a.locked }

// Entry 按交易 ID 查询账本条目（供测试与快照检查使用）
func (a *ClientAccount) Entry(txID TxID) (LedgerEntry, bool) {
	e, ok := a.ledger[txID]
	if !ok {
		return LedgerEntry{}, false
	}
	return *e, true
}

// Deposit 存款
// 锁定账户、负金额、重复交易 ID、溢出均被拒绝；
// 成功时 available += amount 并入账（状态 None）。
func (a *ClientAccount) Deposit(txID TxID, amount Amount) error {
	if a.locked {
		return ErrAccountLocked
	}
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	if _, exists := a.ledger[txID]; exists {
		return ErrDuplicateTransaction
	}
	next, err := a.available.AddChecked(amount)
	if err != nil {
		return err
	}
	a.available = next
	a.ledger[txID] = &LedgerEntry{Type: TransactionTypeDeposit, Amount: amount}
	return nil
}

// Withdraw 取款
// 锁定账户、负金额、重复交易 ID、余额不足均被拒绝；
// 失败的取款从不入账，后续对该交易 ID 的争议也因此无效。
func (a *ClientAccount) Withdraw(txID TxID, amount Amount) error {
	if a.locked {
		return ErrAccountLocked
	}
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	if _, exists := a.ledger[txID]; exists {
		return ErrDuplicateTransaction
	}
	if a.available.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	a.available = a.available.Sub(amount)
	a.ledger[txID] = &LedgerEntry{Type: TransactionTypeWithdrawal, Amount: amount}
	return nil
}

// Dispute 对一笔已入账的存款发起争议
// 锁定账户拒绝新争议；只有状态为 None 的存款条目可被争议。
// 成功时 held += amount、available -= amount，状态迁移到 Disputed。
// 争议可能使 available 变为负数（存款已被部分取出时），这是预期行为。
func (a *ClientAccount) Dispute(txID TxID) error {
	if a.locked {
		return ErrAccountLocked
	}
	entry, ok := a.ledger[txID]
	if !ok {
		return ErrTransactionNotFound
	}
	if entry.Type != TransactionTypeDeposit {
		return ErrNotDisputable
	}
	if entry.Status != DisputeStatusNone {
		return ErrAlreadyDisputed
	}
	a.available = a.available.Sub(entry.Amount)
	a.held = a.held.Add(entry.Amount)
	entry.Status = DisputeStatusDisputed
	return nil
}

// Resolve 撤销一个打开的争议，把冻结资金返还到可用余额
// 账户锁定不阻止撤销：锁定前已打开的争议仍可完成。
func (a *ClientAccount) Resolve(txID TxID) error {
	entry, ok := a.ledger[txID]
	if !ok {
		return ErrTransactionNotFound
	}
	if entry.Status != DisputeStatusDisputed {
		return ErrNoOpenDispute
	}
	a.held = a.held.Sub(entry.Amount)
	a.available = a.available.Add(entry.Amount)
	entry.Status = DisputeStatusResolved
	return nil
}

// Chargeback 对一个打开的争议执行拒付
// 冻结资金被永久移除（不回到可用余额），账户随即锁定。
// 与 Resolve 相同，先前的锁定不阻止对已打开争议的拒付。
func (a *ClientAccount) Chargeback(txID TxID) error {
	entry, ok := a.ledger[txID]
	if !ok {
		return ErrTransactionNotFound
	}
	if entry.Status != DisputeStatusDisputed {
		return ErrNoOpenDispute
	}
	a.held = a.held.Sub(entry.Amount)
	a.locked = true
	entry.Status = DisputeStatusChargedBack
	return nil
}
