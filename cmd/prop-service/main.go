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

	phttp "github.com/radieske/prop-parlay-platform/internal/prop-service/http"
	kpub "github.com/radieske/prop-parlay-platform/internal/prop-service/producer"
	"github.com/radieske/prop-parlay-platform/internal/prop-service/repo"
	"github.com/radieske/prop-parlay-platform/internal/shared/config"
	"github.com/radieske/prop-parlay-platform/internal/shared/db"
	"github.com/radieske/prop-parlay-platform/internal/shared/kafka"
	"github.com/radieske/prop-parlay-platform/internal/shared/logger"
	"github.com/radieske/prop-parlay-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "prop-service"
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

	// Kafka writer (tópico prop_results, chave = propId)
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPropResults)
	defer writer.Close()

	results := prometheus.NewCounter(prometheus.CounterOpts{Name: "prop_results_posted_total", Help: "resultados de props lançados"})
	prometheus.MustRegister(results)

	api := phttp.NewServer(log, repo.NewPostgres(pg), kpub.NewKafkaPublisher(writer))
	api.OnResult = func() { results.Inc() }

	msrv := metrics.StartMetricsServer(cfg.MetricsPort, map[string]metrics.HealthFunc{"postgres": pg.PingContext})
	log.Info("metrics/health listening", zap.String("addr", msrv.Addr))

	apiSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = apiSrv.Shutdown(shutdownCtx)
		_ = msrv.Shutdown(shutdownCtx)
	}()

	log.Info("prop-service listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("api", zap.Error(err))
	}
	log.Info("prop-service stopped")
}
