package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/paymentsengine/internal/settlement/application"
	"github.com/wyfcoding/paymentsengine/internal/settlement/domain"
	persistencemysql "github.com/wyfcoding/paymentsengine/internal/settlement/infrastructure/persistence/mysql"
	"github.com/wyfcoding/paymentsengine/internal/settlement/interfaces/consumer"
	"github.com/wyfcoding/paymentsengine/internal/settlement/interfaces/csvio"
	httpiface "github.com/wyfcoding/paymentsengine/internal/settlement/interfaces/http"
	"github.com/wyfcoding/paymentsengine/pkg/config"
	"github.com/wyfcoding/paymentsengine/pkg/db"
	"github.com/wyfcoding/paymentsengine/pkg/logger"
	"github.com/wyfcoding/paymentsengine/pkg/metrics"
	"github.com/wyfcoding/paymentsengine/pkg/mq"
)

func main() {
	configPath := flag.String("config", "configs/settlement/config.toml", "path to config file")
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Logger（诊断输出走 stderr，stdout 留给 CSV 结果）
	if err := logger.Init(cfg.Logger); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	slogger := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Metrics
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.ServiceName)
	}

	// 4. Engine and application service
	engine := domain.NewEngine(cfg.Engine.QueueCapacity, slogger)
	svc := application.NewSettlementService(engine, slogger, m, cfg.Engine.SnapshotInterval)

	// 5. Transaction source
	src, cleanup, err := buildSource(cfg, svc)
	if err != nil {
		log.Fatalf("failed to build transaction source: %v", err)
	}
	defer cleanup()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return m.ExposeHTTP(gctx, cfg.Metrics.Port)
		})
	}

	if cfg.HTTP.Enabled {
		g.Go(func() error {
			return serveHTTP(gctx, cfg, svc)
		})
	}

	// 6. Pipeline
	var snapshots []domain.AccountSnapshot
	g.Go(func() error {
		defer stop()
		var err error
		snapshots, err = svc.Process(gctx, src)
		return err
	})

	// 信号触发的取消在 Process 内部按数据流结束处理，这里只剩真实错误
	if err := g.Wait(); err != nil {
		logger.Error(ctx, "settlement pipeline failed", "error", err)
		os.Exit(1)
	}

	// 7. Emit final snapshot
	if err := csvio.WriteAccounts(os.Stdout, snapshots); err != nil {
		logger.Error(ctx, "failed to write account snapshot", "error", err)
		os.Exit(1)
	}

	if cfg.Database.Enabled {
		if err := persistSnapshots(cfg, snapshots); err != nil {
			logger.Error(ctx, "failed to persist account snapshot", "error", err)
			os.Exit(1)
		}
	}
}

// buildSource 按配置选择交易数据源：Kafka 流式摄入或 CSV 批处理
func buildSource(cfg *config.Config, svc *application.SettlementService) (application.TransactionSource, func(), error) {
	if cfg.Kafka.Enabled {
		kc, err := mq.NewConsumer(mq.KafkaConfig{
			Brokers:  cfg.Kafka.Brokers,
			GroupID:  cfg.Kafka.GroupID,
			Topic:    cfg.Kafka.Topic,
			MaxBytes: cfg.Kafka.MaxBytes,
		})
		if err != nil {
			return nil, nil, err
		}
		src := consumer.NewKafkaSource(kc, logger.Get(), svc.RecordSkipped)
		return src, func() { _ = kc.Close() }, nil
	}

	path := flag.Arg(0)
	if path == "" {
		return nil, nil, fmt.Errorf("usage: settlement [flags] <transactions.csv>")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open transactions file: %w", err)
	}
	src, err := csvio.NewReader(f, logger.Get(), svc.RecordSkipped)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return src, func() { _ = f.Close() }, nil
}

// serveHTTP 启动账户查询接口，阻塞运行直到 ctx 取消
func serveHTTP(ctx context.Context, cfg *config.Config, svc *application.SettlementService) error {
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	httpiface.NewAccountHandler(svc).RegisterRoutes(router)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "query server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// persistSnapshots 把最终快照写入数据库，run_id 用处理完成时刻标识
func persistSnapshots(cfg *config.Config, snapshots []domain.AccountSnapshot) error {
	gdb, err := db.Init(db.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}

	repo := persistencemysql.NewSnapshotRepo(gdb)
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("migrate snapshot table: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return repo.SaveBatch(ctx, runID, snapshots)
}
