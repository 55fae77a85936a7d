package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/wyfcoding/paymentsengine/internal/settlement/domain"
)

// SnapshotRepo 账户快照仓储
type SnapshotRepo struct {
	db *gorm.DB
}

// NewSnapshotRepo 创建快照仓储实例
func NewSnapshotRepo(db *gorm.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Migrate 建表
func (r *SnapshotRepo) Migrate() error {
	return r.db.AutoMigrate(&AccountSnapshotPO{})
}

// SaveBatch 把一次处理运行的全量快照原子写入
// 同一 run_id 重复写入前先清空旧行，重跑是幂等的。
func (r *SnapshotRepo) SaveBatch(ctx context.Context, runID string, snapshots []domain.AccountSnapshot) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}

	pos := make([]AccountSnapshotPO, 0, len(snapshots))
	for _, snap := range snapshots {
		pos = append(pos, newSnapshotPO(runID, snap))
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", runID).Delete(&AccountSnapshotPO{}).Error; err != nil {
			return fmt.Errorf("clear previous snapshots for run %s: %w", runID, err)
		}
		if len(pos) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(pos, 500).Error; err != nil {
			return fmt.Errorf("insert snapshots for run %s: %w", runID, err)
		}
		return nil
	})
}

// FindByRun 按处理运行查询全部快照，按客户端 ID 升序
func (r *SnapshotRepo) FindByRun(ctx context.Context, runID string) ([]AccountSnapshotPO, error) {
	var pos []AccountSnapshotPO
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("client_id ASC").
		Find(&pos).Error
	return pos, err
}
