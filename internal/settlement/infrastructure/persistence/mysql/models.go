// Package mysql 实现账户快照的 MySQL 持久化
package mysql

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/paymentsengine/internal/settlement/domain"
)

// AccountSnapshotPO 账户快照持久化对象
// 金额列用 DECIMAL(20,4) 存储，与引擎的四位小数定点精度一致。
type AccountSnapshotPO struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement"`
	RunID     string          `gorm:"type:varchar(64);not null;index:idx_run_client,priority:1"`
	ClientID  uint16          `gorm:"not null;index:idx_run_client,priority:2"`
	Available decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Held      decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Total     decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Locked    bool            `gorm:"not null"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (AccountSnapshotPO) TableName() string {
	return "account_snapshots"
}

// newSnapshotPO 把领域快照转换成持久化对象
func newSnapshotPO(runID string, snap domain.AccountSnapshot) AccountSnapshotPO {
	return AccountSnapshotPO{
		RunID:     runID,
		ClientID:  snap.ClientID,
		Available: snap.Available.Decimal(),
		Held:      snap.Held.Decimal(),
		Total:     snap.Total.Decimal(),
		Locked:    snap.Locked,
	}
}
