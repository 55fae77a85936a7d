// Package mq 提供 Kafka consumer 通用实现，供流式摄入交易事件使用
package mq

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/wyfcoding/paymentsengine/pkg/logger"
)

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MaxBytes int
}

// KafkaConsumer Kafka 消费者
// 单分区主题保证交易的全局到达顺序；多分区会破坏顺序语义，
// 部署时交易主题必须只有一个分区。
type KafkaConsumer struct {
	reader *kafka.Reader
	config KafkaConfig
}

// NewConsumer 创建 Kafka 消费者
func NewConsumer(cfg KafkaConfig) (*KafkaConsumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MaxBytes: maxBytes,
	})

	logger.Info(context.Background(), "kafka consumer created",
		"brokers", cfg.Brokers, "topic", cfg.Topic, "group_id", cfg.GroupID)
	return &KafkaConsumer{reader: reader, config: cfg}, nil
}

// Fetch 拉取一条消息，无消息时阻塞直到 ctx 取消
func (kc *KafkaConsumer) Fetch(ctx context.Context) (kafka.Message, error) {
	return kc.reader.FetchMessage(ctx)
}

// Commit 提交消息位点
func (kc *KafkaConsumer) Commit(ctx context.Context, msgs ...kafka.Message) error {
	return kc.reader.CommitMessages(ctx, msgs...)
}

// Close 关闭消费者
func (kc *KafkaConsumer) Close() error {
	return kc.reader.Close()
}
