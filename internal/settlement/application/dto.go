package application

import (
	"github.com/wyfcoding/paymentsengine/internal/settlement/domain"
)

// AccountDTO 账户对外视图，金额以十进制字符串呈现（最多四位小数）
type AccountDTO struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

// NewAccountDTO 从账户快照构建 DTO
func NewAccountDTO(s domain.AccountSnapshot) AccountDTO {
	return AccountDTO{
		Client:    s.ClientID,
		Available: s.Available.String(),
		Held:      s.Held.String(),
		Total:     s.Total.String(),
		Locked:    s.Locked,
	}
}
