// Package csvio 实现交易流的 CSV 读取与账户快照的 CSV 输出
package csvio

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/wyfcoding/paymentsengine/internal/settlement/domain"
)

// columnIndex 表头列到字段下标的映射，-1 表示该列不存在
type columnIndex struct {
	typ    int
	client int
	tx     int
	amount int
}

// Reader 流式 CSV 交易数据源
// 逐行解码而非整文件载入，内存占用与文件大小无关。
// 非法行记录 warn 日志并跳过，绝不中止整个数据流。
type Reader struct {
	csv    *csv.Reader
	logger *slog.Logger
	onSkip func()
	cols   columnIndex
	line   int
}

// NewReader 创建 CSV 读取器并解析表头
// 表头列名不区分大小写且允许两侧空白，列顺序任意；
// type、client、tx 三列必须存在，amount 列可缺省（争议族文件）。
// onSkip 在每次跳过非法行时被调用，可为 nil。
func NewReader(r io.Reader, logger *slog.Logger, onSkip func()) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("csv input is empty, header row is required")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := columnIndex{typ: -1, client: -1, tx: -1, amount: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "type":
			cols.typ = i
		case "client":
			cols.client = i
		case "tx":
			cols.tx = i
		case "amount":
			cols.amount = i
		}
	}
	if cols.typ < 0 || cols.client < 0 || cols.tx < 0 {
		return nil, fmt.Errorf("csv header must contain type, client and tx columns, got %v", header)
	}
	if onSkip == nil {
		onSkip = func() {}
	}

	return &Reader{csv: cr, logger: logger, onSkip: onSkip, cols: cols, line: 1}, nil
}

// Next 返回下一笔交易，文件读完返回 io.EOF
func (r *Reader) Next(ctx context.Context) (domain.Transaction, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.Transaction{}, err
		}

		record, err := r.csv.Read()
		if err == io.EOF {
			return domain.Transaction{}, io.EOF
		}
		r.line++
		if err != nil {
			r.skip(ctx, err)
			continue
		}

		tx, err := r.parseRecord(record)
		if err != nil {
			r.skip(ctx, err)
			continue
		}
		return tx, nil
	}
}

// skip 记录并计数一条被丢弃的非法行
func (r *Reader) skip(ctx context.Context, err error) {
	r.logger.WarnContext(ctx, "skipping malformed csv record", "line", r.line, "error", err)
	r.onSkip()
}

// parseRecord 把一行 CSV 字段解析成交易
func (r *Reader) parseRecord(record []string) (domain.Transaction, error) {
	field := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	txType, err := domain.ParseTransactionType(field(r.cols.typ))
	if err != nil {
		return domain.Transaction{}, err
	}

	client, err := strconv.ParseUint(field(r.cols.client), 10, 16)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid client id %q: %w", field(r.cols.client), err)
	}

	txID, err := strconv.ParseUint(field(r.cols.tx), 10, 32)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid tx id %q: %w", field(r.cols.tx), err)
	}

	tx := domain.Transaction{
		Type:     txType,
		ClientID: domain.ClientID(client),
		TxID:     domain.TxID(txID),
	}

	// 金额缺省的存取款交由引擎拒绝，这里只拒绝格式非法的金额
	if raw := field(r.cols.amount); raw != "" {
		amount, err := domain.ParseAmount(raw)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("invalid amount %q: %w", raw, err)
		}
		tx.Amount = &amount
	}

	return tx, nil
}
