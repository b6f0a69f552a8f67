// Package main содержит точку входа для приложения darklaunch.
// Приложение работает как reverse proxy перед primary-сервисом и
// в фоне сравнивает его ответы с ответами candidate-сервиса.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kargones/darklaunch/internal/config"
	"github.com/Kargones/darklaunch/internal/constants"
	"github.com/Kargones/darklaunch/internal/di"
	"github.com/Kargones/darklaunch/internal/pkg/logging"
	"github.com/Kargones/darklaunch/internal/pkg/metrics"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "путь к YAML-файлу конфигурации (переменные окружения DL_* переопределяют файл)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Не удалось загрузить конфигурацию приложения: %v\n", err)
		os.Exit(5)
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Не удалось инициализировать приложение: %v\n", err)
		os.Exit(6)
	}
	l := app.Logger

	l.Debug("Информация о сборке", "version", constants.Version)

	if err := run(app, l); err != nil {
		l.Error("Приложение завершилось с ошибкой", "error", err.Error())
		os.Exit(7)
	}
}

func run(app *di.App, l logging.Logger) error {
	cfg := app.Config

	primaryURL, err := url.Parse(cfg.PrimaryBaseURL)
	if err != nil {
		return fmt.Errorf("невалидный primary URL %q: %w", cfg.PrimaryBaseURL, err)
	}

	proxy := newPrimaryProxy(primaryURL, l)

	var handler http.Handler = proxy
	if app.ShadowingEnabled() {
		handler = app.Middleware.Wrap(proxy)
		l.Info("теневой контур включён",
			"candidate", cfg.CandidateBaseURL,
			"sample_rate", cfg.SampleRate,
			"endpoints", len(app.Endpoints.Endpoints),
		)
	} else {
		l.Info("теневой контур отключён, прокси работает прозрачно")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", app.Collector.Handler())
	mux.HandleFunc("/healthz", handleHealth)
	mux.Handle("/stats", handleStats(app.Collector))
	mux.Handle("/", handler)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Фоновая отправка метрик в Pushgateway, если настроена.
	if pc, ok := app.Collector.(*metrics.PrometheusCollector); ok && cfg.Metrics.PushInterval > 0 {
		go pc.PushPeriodically(ctx, cfg.Metrics.PushInterval)
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("darklaunch запущен",
			"listen", cfg.ListenAddr,
			"primary", cfg.PrimaryBaseURL,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	l.Info("получен сигнал остановки, завершение")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Сначала listener: новые запросы не принимаются, начатые дорабатывают.
	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Error("HTTP сервер не завершился корректно", "error", err.Error())
	}

	// Затем фоновые сравнения, синки и трейсинг.
	if err := app.Shutdown(shutdownCtx); err != nil {
		return err
	}

	_ = app.Collector.Push(shutdownCtx)

	l.Info("darklaunch остановлен")
	return nil
}

// newPrimaryProxy создаёт reverse proxy на primary. Сбой primary
// отдаётся клиенту как 502 и логируется.
func newPrimaryProxy(target *url.URL, l logging.Logger) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		l.Error("сбой проксирования к primary",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		w.WriteHeader(http.StatusBadGateway)
	}
	// FlushInterval < 0 — немедленный flush каждого chunk-а: SSE-потоки
	// primary должны доходить до клиента без буферизации.
	proxy.FlushInterval = -1
	return proxy
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleStats отдаёт агрегированный срез показателей сравнений в JSON.
func handleStats(collector metrics.Collector) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(collector.Snapshot()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
