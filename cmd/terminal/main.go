package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tokoku/client/internal/config"
	"tokoku/client/internal/demo"
	"tokoku/client/internal/httpapi"
	"tokoku/client/internal/logger"
	"tokoku/client/internal/notify"
	"tokoku/client/internal/sales"
	"tokoku/client/internal/session"
	"tokoku/client/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if err := validateConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		ServiceName: "tokoku-terminal",
		Level:       logger.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = log.WithTerminalID(ctx, cfg.TerminalID)

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "terminal stopped", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	closers := make([]func() error, 0, 3)
	defer func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				log.Warn(ctx, "close failed", err)
			}
		}
	}()

	sessions, closeSessions, err := openSessions(ctx, cfg, log)
	if err != nil {
		return err
	}
	if closeSessions != nil {
		closers = append(closers, closeSessions)
	}

	baseURL := cfg.APIBaseURL
	if cfg.DemoMode() {
		demoURL, shutdown, err := startDemo(ctx, cfg, log)
		if err != nil {
			return err
		}
		baseURL = demoURL
		closers = append(closers, shutdown)
	}

	reg := prometheus.NewRegistry()
	metrics := httpapi.NewMetrics(reg)
	if cfg.MetricsAddr != "" {
		closers = append(closers, serveMetrics(ctx, cfg.MetricsAddr, reg, log))
	}

	var st *store.Store
	client := httpapi.New(baseURL, sessions,
		httpapi.WithTimeout(cfg.RequestTimeout),
		httpapi.WithMetrics(metrics),
		httpapi.WithLogger(log),
		httpapi.WithTerminalID(cfg.TerminalID),
		httpapi.WithUnauthorizedHandler(func(ctx context.Context, err error) {
			st.HandleUnauthorized(ctx, err)
		}),
	)
	st = store.New(client, sessions, store.Options{
		Toast:  notify.NewSlot(nil, cfg.ToastDuration),
		Logger: log,
	})
	register := sales.New(st, sales.Options{
		Banner: notify.NewSlot(nil, cfg.BannerDuration),
		Logger: log,
	})

	term := newTerminal(st, register, client, os.Stdout, log)
	defer term.close()

	log.Info(ctx, "terminal ready on "+baseURL)
	term.resume(ctx)
	return term.run(ctx, os.Stdin)
}

// openSessions picks the session store. An unreachable Redis falls back to
// an in-memory session for this run.
func openSessions(ctx context.Context, cfg config.Config, log *logger.Logger) (session.Store, func() error, error) {
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		rs := session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TerminalID, cfg.SessionTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			log.Warn(ctx, "redis unavailable, keeping the session in memory", err)
			_ = rs.Close()
			return session.NewMemoryStore(), nil, nil
		}
		log.Info(ctx, "session: redis")
		return rs, rs.Close, nil
	case config.SessionBackendMemory:
		log.Info(ctx, "session: memory")
		return session.NewMemoryStore(), nil, nil
	default:
		fs, err := session.NewFileStore(cfg.SessionFile, cfg.SessionKey)
		if err != nil {
			return nil, nil, err
		}
		log.Info(ctx, "session: file "+fs.Path())
		return fs, nil, nil
	}
}

// startDemo serves the seeded backend on a loopback port and returns its
// API base URL.
func startDemo(ctx context.Context, cfg config.Config, log *logger.Logger) (string, func() error, error) {
	secret := cfg.DemoAuthSecret
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return "", nil, fmt.Errorf("generate demo secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
	}
	backend, err := demo.New(demo.Options{Secret: secret, TokenTTL: cfg.SessionTTL, Logger: log})
	if err != nil {
		return "", nil, err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("listen for demo backend: %w", err)
	}
	server := &http.Server{
		Handler:           backend.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "demo backend error", err)
		}
	}()
	log.Info(ctx, "demo backend listening on "+ln.Addr().String())

	shutdown := func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
	return "http://" + ln.Addr().String() + demo.APIPrefix, shutdown, nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, log *logger.Logger) func() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info(ctx, "metrics listening on "+addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "metrics server error", err)
		}
	}()
	return func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func validateConfig(cfg config.Config) error {
	switch cfg.SessionBackend {
	case config.SessionBackendFile:
		if len(cfg.SessionKey) < 32 {
			return fmt.Errorf("TOKOKU_SESSION_KEY must be set and at least 32 characters for the file session backend")
		}
	case config.SessionBackendRedis:
		if cfg.RedisAddr == "" {
			return fmt.Errorf("TOKOKU_REDIS_ADDR must be set for the redis session backend")
		}
	case config.SessionBackendMemory:
	default:
		return fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("TOKOKU_REQUEST_TIMEOUT must be positive")
	}
	if !cfg.DemoMode() {
		u, err := url.Parse(cfg.APIBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("TOKOKU_API_BASE_URL must be an absolute http(s) URL")
		}
	}
	if cfg.DemoAuthSecret != "" && len(cfg.DemoAuthSecret) < 32 {
		return fmt.Errorf("TOKOKU_DEMO_AUTH_SECRET must be at least 32 characters")
	}
	return nil
}
