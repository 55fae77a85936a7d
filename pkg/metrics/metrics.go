// Package metrics 提供 Prometheus helper，包含结算引擎的业务指标模板
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wyfcoding/paymentsengine/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	registry *prometheus.Registry

	// 成功生效的交易计数，按交易类型划分
	TransactionsApplied *prometheus.CounterVec
	// 被拒绝的交易计数，按拒绝原因划分
	TransactionsRejected *prometheus.CounterVec
	// 被生产者跳过的非法输入行计数
	RecordsSkipped prometheus.Counter
	// 当前账户数
	AccountsActive prometheus.Gauge
	// 输入队列当前深度
	QueueDepth prometheus.Gauge
	// 单笔交易处理耗时
	DispatchDuration prometheus.Histogram
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		TransactionsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payments",
			Subsystem: serviceName,
			Name:      "transactions_applied_total",
			Help:      "Total transactions successfully applied",
		}, []string{"type"}),
		TransactionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payments",
			Subsystem: serviceName,
			Name:      "transactions_rejected_total",
			Help:      "Total transactions rejected by business rules",
		}, []string{"reason"}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "payments",
			Subsystem: serviceName,
			Name:      "records_skipped_total",
			Help:      "Total malformed source records skipped by the producer",
		}),
		AccountsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "payments",
			Subsystem: serviceName,
			Name:      "accounts_active",
			Help:      "Number of client accounts currently tracked",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "payments",
			Subsystem: serviceName,
			Name:      "queue_depth",
			Help:      "Transactions waiting in the bounded input queue",
		}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "payments",
			Subsystem: serviceName,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent dispatching a single transaction",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}

	registry.MustRegister(
		m.TransactionsApplied,
		m.TransactionsRejected,
		m.RecordsSkipped,
		m.AccountsActive,
		m.QueueDepth,
		m.DispatchDuration,
	)

	return m
}

// ExposeHTTP 暴露 /metrics 端点，阻塞运行直到 ctx 取消
func (m *Metrics) ExposeHTTP(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "metrics server starting", "port", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
