// Package config 提供 TOML 配置加载、环境变量覆盖与 schema 校验
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"

	"github.com/wyfcoding/paymentsengine/pkg/logger"
)

// Config 结算服务配置
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// 引擎配置
	Engine EngineConfig `mapstructure:"engine"`
	// Kafka 流式摄入配置
	Kafka KafkaConfig `mapstructure:"kafka"`
	// 快照落库配置
	Database DatabaseConfig `mapstructure:"database"`
	// 查询 HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
	// 日志配置
	Logger logger.Config `mapstructure:"logger"`
}

// EngineConfig 引擎配置
type EngineConfig struct {
	// 输入队列容量，生产者满则阻塞
	QueueCapacity int `mapstructure:"queue_capacity"`
	// 流式模式下每处理多少笔交易发布一次快照
	SnapshotInterval int `mapstructure:"snapshot_interval"`
}

// KafkaConfig Kafka 摄入配置
type KafkaConfig struct {
	// 是否启用流式摄入（启用后输入来自 Kafka 而非 CSV 文件）
	Enabled bool `mapstructure:"enabled"`
	// Broker 地址列表
	Brokers []string `mapstructure:"brokers"`
	// Consumer Group ID
	GroupID string `mapstructure:"group_id"`
	// 交易主题
	Topic string `mapstructure:"topic"`
	// 单条消息最大字节数
	MaxBytes int `mapstructure:"max_bytes"`
}

// DatabaseConfig 快照落库配置
type DatabaseConfig struct {
	// 是否把最终快照写入数据库
	Enabled bool `mapstructure:"enabled"`
	// 数据源名称
	DSN string `mapstructure:"dsn"`
	// 最大连接数
	MaxOpenConns int `mapstructure:"max_open_conns"`
	// 最大空闲连接数
	MaxIdleConns int `mapstructure:"max_idle_conns"`
	// 连接最大生命周期（秒）
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"`
}

// HTTPConfig 查询服务配置
type HTTPConfig struct {
	// 是否启用查询接口（流式模式下有意义）
	Enabled bool `mapstructure:"enabled"`
	// 监听地址
	Host string `mapstructure:"host"`
	// 监听端口
	Port int `mapstructure:"port"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `mapstructure:"enabled"`
	// Prometheus 监听端口
	Port int `mapstructure:"port"`
}

// Load 从 TOML 文件加载配置，文件不存在时使用默认值，支持环境变量覆盖
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	// 配置文件缺失时按默认值运行（纯 CSV 批处理不需要配置文件）
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 环境变量覆盖，前缀 APP，使用 _ 替代 .
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.Engine.QueueCapacity <= 0 {
		return fmt.Errorf("invalid engine queue capacity: %d", c.Engine.QueueCapacity)
	}
	if c.Engine.SnapshotInterval <= 0 {
		return fmt.Errorf("invalid engine snapshot interval: %d", c.Engine.SnapshotInterval)
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka ingestion is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required when kafka ingestion is enabled")
		}
	}
	if c.Database.Enabled && c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required when snapshot persistence is enabled")
	}
	if c.HTTP.Enabled && (c.HTTP.Port <= 0 || c.HTTP.Port > 65535) {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d", c.Metrics.Port)
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "settlement")
	v.SetDefault("environment", "dev")

	v.SetDefault("engine.queue_capacity", 100)
	v.SetDefault("engine.snapshot_interval", 1000)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.group_id", "settlement")
	v.SetDefault("kafka.topic", "transactions")
	v.SetDefault("kafka.max_bytes", 1<<20)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)

	v.SetDefault("http.enabled", false)
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stderr")
	v.SetDefault("logger.file_path", "logs/settlement.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)
}
