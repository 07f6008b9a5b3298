package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/radieske/prop-parlay-platform/internal/settlement/consumer"
	"github.com/radieske/prop-parlay-platform/internal/settlement/dispatcher"
	"github.com/radieske/prop-parlay-platform/internal/settlement/grading"
	"github.com/radieske/prop-parlay-platform/internal/settlement/ledger"
	"github.com/radieske/prop-parlay-platform/internal/settlement/lock"
	"github.com/radieske/prop-parlay-platform/internal/settlement/model"
	"github.com/radieske/prop-parlay-platform/internal/settlement/producer"
	"github.com/radieske/prop-parlay-platform/internal/settlement/repo"
	sharedcache "github.com/radieske/prop-parlay-platform/internal/shared/cache"
	"github.com/radieske/prop-parlay-platform/internal/shared/config"
	"github.com/radieske/prop-parlay-platform/internal/shared/db"
	"github.com/radieske/prop-parlay-platform/internal/shared/kafka"
	"github.com/radieske/prop-parlay-platform/internal/shared/logger"
	"github.com/radieske/prop-parlay-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "settlement-worker"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	checks := map[string]metrics.HealthFunc{"postgres": pg.PingContext}

	// Lock por aposta: em memória para uma réplica, Redis quando há várias
	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.LockBackend == "redis" {
		rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
		if err != nil {
			log.Fatal("redis connect", zap.Error(err))
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(log, rdb, cfg.LockTTL)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	store := repo.NewPostgres(pg)
	updater := ledger.NewUpdater(log, store)

	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWagerSettled)
	defer settledWriter.Close()
	publisher := producer.NewKafkaPublisher(settledWriter)

	// Métricas Prometheus
	settled := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_wagers_settled_total", Help: "apostas liquidadas por status"}, []string{"status"})
	credited := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_credited_cents_total", Help: "centavos creditados (pagamentos + reembolsos)"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_skipped_total", Help: "apostas ignoradas por motivo"}, []string{"reason"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_errors_total", Help: "erros por estágio"}, []string{"stage"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "settlement_wager_seconds", Help: "tempo de liquidação por aposta", Buckets: prometheus.DefBuckets})
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_messages_consumed_total", Help: "mensagens prop_results consumidas"})
	deadLettered := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_dlq_total", Help: "mensagens enviadas para a DLQ"})
	sweeps := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_sweeps_total", Help: "varreduras executadas"})
	prometheus.MustRegister(settled, credited, skipped, errorsBy, latency, consumed, deadLettered, sweeps)

	disp := dispatcher.New(log, store, updater, locker,
		dispatcher.WithConcurrency(cfg.SettlementConcurrency),
	)
	disp.OnSkipped = func(reason string) { skipped.WithLabelValues(reason).Inc() }
	disp.OnError = func(stage string) { errorsBy.WithLabelValues(stage).Inc() }
	disp.OnLatency = func(d time.Duration) { latency.Observe(d.Seconds()) }
	disp.OnSettled = func(w model.Wager, d grading.Decision) {
		settled.WithLabelValues(d.Verdict.String()).Inc()
		credited.Add(float64(d.Payout))

		// o crédito já foi gravado; falha aqui só perde a notificação
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := publisher.PublishWagerSettled(ctx, w, d); err != nil {
			log.Warn("publish wager_settled failed", zap.String("wagerId", w.ID), zap.Error(err))
			errorsBy.WithLabelValues("publish").Inc()
		}
	}

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicPropResults, "settlement-worker")
	defer reader.Close()

	proc := &consumer.Processor{
		Log:          log,
		Reader:       reader,
		Handler:      disp,
		OnConsumed:   func() { consumed.Inc() },
		OnDeadLetter: func() { deadLettered.Inc() },
		OnError:      func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}
	if cfg.TopicPropResultsDLQ != "" {
		dlqWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPropResultsDLQ)
		defer dlqWriter.Close()
		proc.DLQ = dlqWriter
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Varredura periódica: garante progresso mesmo com eventos perdidos ou na DLQ
	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := sched.AddFunc(cfg.SettlementSweepSpec, func() {
		sweeps.Inc()
		if err := disp.Sweep(ctx); err != nil && ctx.Err() == nil {
			log.Warn("sweep finished with errors", zap.Error(err))
		}
	}); err != nil {
		log.Fatal("invalid sweep schedule", zap.String("spec", cfg.SettlementSweepSpec), zap.Error(err))
	}
	sched.Start()

	srv := metrics.StartMetricsServer(cfg.MetricsPort, checks)
	log.Info("metrics/health listening", zap.String("addr", srv.Addr))

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicPropResults),
		zap.String("publish", cfg.TopicWagerSettled),
		zap.String("lock", cfg.LockBackend),
		zap.Int("concurrency", cfg.SettlementConcurrency),
	)
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("processor stopped with error", zap.Error(err))
	}

	<-sched.Stop().Done()
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("settlement-worker stopped")
}
