package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	srepo "github.com/radieske/prop-parlay-platform/internal/settlement/repo"
	sharedcache "github.com/radieske/prop-parlay-platform/internal/shared/cache"
	"github.com/radieske/prop-parlay-platform/internal/shared/config"
	"github.com/radieske/prop-parlay-platform/internal/shared/db"
	"github.com/radieske/prop-parlay-platform/internal/shared/kafka"
	"github.com/radieske/prop-parlay-platform/internal/shared/logger"
	"github.com/radieske/prop-parlay-platform/internal/shared/metrics"
	whttp "github.com/radieske/prop-parlay-platform/internal/wager-service/http"
	"github.com/radieske/prop-parlay-platform/internal/wager-service/leaderboard"
	kpub "github.com/radieske/prop-parlay-platform/internal/wager-service/producer"
	"github.com/radieske/prop-parlay-platform/internal/wager-service/repo"
)

// store junta a leitura compartilhada (props, aposta) com as escritas do wager-service
type (
	sharedReads = srepo.Postgres
	wagerWrites = repo.Postgres
	store       struct {
		*sharedReads
		*wagerWrites
	}
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "wager-service"
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

	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWagerPlaced)
	defer writer.Close()

	wrepo := repo.NewPostgres(pg)
	board := leaderboard.New(log, wrepo, leaderboard.NewRedisCache(rdb), cfg.LeaderboardTTL)

	// Métricas Prometheus
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "wager_placed_total", Help: "apostas aceitas por tipo"}, []string{"play_type"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "wager_rejected_total", Help: "apostas recusadas por motivo"}, []string{"reason"})
	prometheus.MustRegister(placed, rejected)

	api := whttp.NewServer(log, store{srepo.NewPostgres(pg), wrepo}, board, kpub.NewKafkaPublisher(writer))
	api.OnPlaced = func(p string) { placed.WithLabelValues(p).Inc() }
	api.OnRejected = func(r string) { rejected.WithLabelValues(r).Inc() }

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Cada liquidação muda o ranking: derruba o cache sem esperar o TTL
	settledReader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicWagerSettled, "wager-service-leaderboard")
	defer settledReader.Close()
	go func() {
		if err := board.RunInvalidator(ctx, settledReader); err != nil && ctx.Err() == nil {
			log.Error("leaderboard invalidator stopped", zap.Error(err))
		}
	}()

	msrv := metrics.StartMetricsServer(cfg.MetricsPort, map[string]metrics.HealthFunc{
		"postgres": pg.PingContext,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})
	log.Info("metrics/health listening", zap.String("addr", msrv.Addr))

	apiSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = apiSrv.Shutdown(shutdownCtx)
		_ = msrv.Shutdown(shutdownCtx)
	}()

	log.Info("wager-service listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("api", zap.Error(err))
	}
	log.Info("wager-service stopped")
}
