package domain

import (
	"errors"
	"strings"
)

// ClientID 客户端标识
type ClientID = uint16

// TxID 全局唯一的交易标识
type TxID = uint32

// ErrUnknownTransactionType 未知的交易类型
var ErrUnknownTransactionType = errors.New("unknown transaction type")

// TransactionType 交易类型
type TransactionType int8

const (
	TransactionTypeDeposit    TransactionType = 1 // 存入
	TransactionTypeWithdrawal TransactionType = 2 // 取出
	TransactionTypeDispute    TransactionType = 3 // 争议
	TransactionTypeResolve    TransactionType = 4 // 争议撤销
	TransactionTypeChargeback TransactionType = 5 // 拒付
)

func (t TransactionType) String() string {
	switch t {
	case TransactionTypeDeposit:
		return "deposit"
	case TransactionTypeWithdrawal:
		return "withdrawal"
	case TransactionTypeDispute:
		return "dispute"
	case TransactionTypeResolve:
		return "resolve"
	case TransactionTypeChargeback:
		return "chargeback"
	default:
		return "unknown"
	}
}

// ParseTransactionType 解析交易类型，大小写不敏感、允许两侧空白
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deposit":
		return TransactionTypeDeposit, nil
	case "withdrawal":
		return TransactionTypeWithdrawal, nil
	case "dispute":
		return TransactionTypeDispute, nil
	case "resolve":
		return TransactionTypeResolve, nil
	case "chargeback":
		return TransactionTypeChargeback, nil
	default:
		return 0, ErrUnknownTransactionType
	}
}

// Transaction 一笔交易记录
// Deposit/Withdrawal 携带金额；争议族交易（Dispute/Resolve/Chargeback）
// 不携带金额，金额从被引用的账本条目恢复。
type Transaction struct {
	// 交易类型
	Type TransactionType
	// 客户端 ID
	ClientID ClientID
	// 交易 ID，跨全部客户端全局唯一
	TxID TxID
	// 金额，仅 Deposit/Withdrawal 存在
	Amount *Amount
}

// IsDisputeRelated 是否属于争议族交易（dispute/resolve/chargeback）
func (t Transaction) IsDisputeRelated() bool {
	switch t.Type {
	case TransactionTypeDispute, TransactionTypeResolve, TransactionTypeChargeback:
		return true
	default:
		return false
	}
}
