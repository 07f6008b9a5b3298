package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/radieske/prop-parlay-platform/internal/shared/config"
	"github.com/radieske/prop-parlay-platform/internal/shared/logger"
)

func rp(to string) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(to)
	if err != nil {
		return nil, err
	}
	return httputil.NewSingleHostReverseProxy(u), nil
}

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "api-gateway"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	props, err := rp(cfg.PropURL)
	if err != nil {
		log.Fatal("invalid PROP_URL", zap.String("url", cfg.PropURL), zap.Error(err))
	}
	wagers, err := rp(cfg.WagerURL)
	if err != nil {
		log.Fatal("invalid WAGER_URL", zap.String("url", cfg.WagerURL), zap.Error(err))
	}

	addr := ":" + cfg.HTTPPort
	log.Info("api-gateway listening", zap.String("addr", addr),
		zap.String("props", cfg.PropURL), zap.String("wagers", cfg.WagerURL))
	limiter := rate.NewLimiter(rate.Limit(cfg.GatewayRatePerSec), cfg.GatewayBurst)
	if err := http.ListenAndServe(addr, withCORS(withRateLimit(limiter, newMux(props, wagers)))); err != nil && err != http.ErrServerClosed {
		log.Fatal("gateway failed", zap.Error(err))
	}
}

// newMux: /api/props/* -> prop-service, /api/wagers/* -> wager-service
func newMux(props, wagers http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/props/", http.StripPrefix("/api/props", props))
	mux.Handle("/api/wagers/", http.StripPrefix("/api/wagers", wagers))
	return mux
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// withRateLimit recusa com 429 quando o balde esvazia; não enfileira
func withRateLimit(l *rate.Limiter, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		h.ServeHTTP(w, r)
	})
}
