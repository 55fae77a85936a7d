// Package domain 实现结算引擎的领域模型
package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// amountScale 定点数的缩放因子，即保留 4 位小数
const amountScale = 10_000

var (
	// ErrInvalidAmount 金额字符串格式非法
	ErrInvalidAmount = errors.New("invalid amount format")
	// ErrAmountOverflow 金额超出 int64 定点数可表示范围
	ErrAmountOverflow = errors.New("amount overflows fixed-point range")
)

// Amount 定点数金额
// 内部以 int64 存储真实值 × 10,000（例如 1.5 存储为 15000），
// 全程不经过浮点数，避免精度误差。
type Amount int64

// NewAmount 从内部表示（万分之一单位）构造金额
// 例如 NewAmount(15000) 表示 1.5。
func NewAmount(units int64) Amount {
	return Amount(units)
}

// ParseAmount 从十进制字符串解析金额
// 允许任意位数的小数，超出 4 位的部分按「远离零舍入」
// （round half away from zero）处理：第 5 位 >= 5 时进位。
// 例如 "1.23455" -> 1.2346，"1.23454" -> 1.2345。
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	negative := false
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		negative = true
		s = s[1:]
	}

	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return 0, ErrInvalidAmount
	}
	if hasDot && fracPart == "" && intPart == "" {
		return 0, ErrInvalidAmount
	}

	// 整数部分逐位累加，随时检查溢出
	var whole int64
	for _, c := range intPart {
		if c < '0' || c > '9' {
			return 0, ErrInvalidAmount
		}
		digit := int64(c - '0')
		if whole > (math.MaxInt64-digit)/10 {
			return 0, ErrAmountOverflow
		}
		whole = whole*10 + digit
	}

	// 小数部分取前 4 位，第 5 位决定是否进位
	var frac int64
	for i, c := range fracPart {
		if c < '0' || c > '9' {
			return 0, ErrInvalidAmount
		}
		switch {
		case i < 4:
			frac = frac*10 + int64(c-'0')
		case i == 4:
			if c >= '5' {
				frac++
			}
		default:
			// 第 6 位及之后不影响舍入结果
		}
	}
	// 不足 4 位时右侧补零
	for i := len(fracPart); i < 4; i++ {
		frac *= 10
	}
	// 舍入进位可能使 frac 达到 10000，向整数部分结转
	if frac >= amountScale {
		frac -= amountScale
		if whole == math.MaxInt64 {
			return 0, ErrAmountOverflow
		}
		whole++
	}

	if whole > (math.MaxInt64-frac)/amountScale {
		return 0, ErrAmountOverflow
	}
	units := whole*amountScale + frac
	if negative {
		units = -units
	}
	return Amount(units), nil
}

// Add 金额相加
func (a Amount) Add(b Amount) Amount {
	return a + b
}

// Sub 金额相减
func (a Amount) Sub(b Amount) Amount {
	return a - b
}

// AddChecked 带溢出检查的加法，溢出时返回 ErrAmountOverflow
func (a Amount) AddChecked(b Amount) (Amount, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, ErrAmountOverflow
	}
	return sum, nil
}

// SubChecked 带溢出检查的减法，溢出时返回 ErrAmountOverflow
func (a Amount) SubChecked(b Amount) (Amount, error) {
	diff := a - b
	if (b < 0 && diff < a) || (b > 0 && diff > a) {
		return 0, ErrAmountOverflow
	}
	return diff, nil
}

// Neg 金额取反
func (a Amount) Neg() Amount {
	return -a
}

// Cmp 比较两个金额，返回 -1/0/1
func (a Amount) Cmp(b Amount) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// IsNegative 金额是否为负
func (a Amount) IsNegative() bool {
	return a < 0
}

// Units 返回内部表示（万分之一单位）
func (a Amount) Units() int64 {
	return int64(a)
}

// Decimal 转换为 shopspring decimal，用于持久化层的列映射
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -4)
}

// String 格式化为最多 4 位小数的十进制字符串，去除末尾多余的零
// 例如 15000 -> "1.5"，10000 -> "1"，-1 -> "-0.0001"。
func (a Amount) String() string {
	units := int64(a)
	sign := ""
	if units < 0 {
		sign = "-"
		units = -units
	}
	whole := units / amountScale
	frac := units % amountScale

	if frac == 0 {
		return fmt.Sprintf("%s%d", sign, whole)
	}
	fracStr := strings.TrimRight(fmt.Sprintf("%04d", frac), "0")
	return fmt.Sprintf("%s%d.%s", sign, whole, fracStr)
}
