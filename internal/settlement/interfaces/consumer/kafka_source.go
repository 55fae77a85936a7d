// Package consumer 实现来自 Kafka 的流式交易数据源
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/wyfcoding/paymentsengine/internal/settlement/domain"
	"github.com/wyfcoding/paymentsengine/pkg/mq"
)

// transactionEvent 交易事件的线上格式
// 金额用十进制字符串而非浮点数承载，避免二进制浮点的精度损失。
type transactionEvent struct {
	Type   string `json:"type"`
	Client uint16 `json:"client"`
	Tx     uint32 `json:"tx"`
	Amount string `json:"amount,omitempty"`
}

// KafkaSource 把 Kafka 主题适配成交易数据源
// 非法消息记录 warn 日志、提交位点后跳过，与 CSV 读取器的坏行策略一致；
// 流式数据源没有自然的结束，Next 只会因 ctx 取消而返回错误。
type KafkaSource struct {
	consumer *mq.KafkaConsumer
	logger   *slog.Logger
	onSkip   func()
}

// NewKafkaSource 创建 Kafka 交易数据源，onSkip 可为 nil
func NewKafkaSource(consumer *mq.KafkaConsumer, logger *slog.Logger, onSkip func()) *KafkaSource {
	if logger == nil {
		logger = slog.Default()
	}
	if onSkip == nil {
		onSkip = func() {}
	}
	return &KafkaSource{consumer: consumer, logger: logger, onSkip: onSkip}
}

// Next 拉取并解码下一笔交易，阻塞直到有消息或 ctx 取消
func (s *KafkaSource) Next(ctx context.Context) (domain.Transaction, error) {
	for {
		msg, err := s.consumer.Fetch(ctx)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("fetch kafka message: %w", err)
		}

		tx, err := decodeEvent(msg.Value)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping malformed kafka message",
				"partition", msg.Partition, "offset", msg.Offset, "error", err)
			s.onSkip()
			s.commit(ctx, msg)
			continue
		}

		s.commit(ctx, msg)
		return tx, nil
	}
}

// commit 提交位点，失败只记日志（重复消费由引擎的交易 ID 去重兜底）
func (s *KafkaSource) commit(ctx context.Context, msg kafka.Message) {
	if err := s.consumer.Commit(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to commit kafka offset",
			"partition", msg.Partition, "offset", msg.Offset, "error", err)
	}
}

// decodeEvent 解析 JSON 交易事件
func decodeEvent(payload []byte) (domain.Transaction, error) {
	var event transactionEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return domain.Transaction{}, fmt.Errorf("decode transaction event: %w", err)
	}

	txType, err := domain.ParseTransactionType(event.Type)
	if err != nil {
		return domain.Transaction{}, err
	}

	tx := domain.Transaction{
		Type:     txType,
		ClientID: event.Client,
		TxID:     event.Tx,
	}

	if event.Amount != "" {
		amount, err := domain.ParseAmount(event.Amount)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("invalid amount %q: %w", event.Amount, err)
		}
		tx.Amount = &amount
	}

	return tx, nil
}
