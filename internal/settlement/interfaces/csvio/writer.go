package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/wyfcoding/paymentsengine/internal/settlement/domain"
)

// WriteAccounts 把账户快照写成 CSV
// 表头固定为 client,available,held,total,locked，零账户时也输出表头；
// 行序沿用入参顺序（引擎快照已按客户端 ID 升序）。
func WriteAccounts(w io.Writer, snapshots []domain.AccountSnapshot) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"client", "available", "held", "total", "locked"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, snap := range snapshots {
		record := []string{
			strconv.FormatUint(uint64(snap.ClientID), 10),
			snap.Available.String(),
			snap.Held.String(),
			snap.Total.String(),
			strconv.FormatBool(snap.Locked),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record for client %d: %w", snap.ClientID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
