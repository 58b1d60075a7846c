package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/securesign/internal/audit"
	"github.com/dropDatabas3/securesign/internal/cache"
	"github.com/dropDatabas3/securesign/internal/certificate"
	"github.com/dropDatabas3/securesign/internal/config"
	"github.com/dropDatabas3/securesign/internal/docsign"
	"github.com/dropDatabas3/securesign/internal/domain/repository"
	"github.com/dropDatabas3/securesign/internal/http/handlers"
	"github.com/dropDatabas3/securesign/internal/http/router"
	"github.com/dropDatabas3/securesign/internal/keys"
	"github.com/dropDatabas3/securesign/internal/metrics"
	"github.com/dropDatabas3/securesign/internal/observability/logger"
	"github.com/dropDatabas3/securesign/internal/rate"
	"github.com/dropDatabas3/securesign/internal/security/password"
	"github.com/dropDatabas3/securesign/internal/security/secretbox"
	"github.com/dropDatabas3/securesign/internal/signature"
	"github.com/dropDatabas3/securesign/internal/store"
)

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

func main() {
	var (
		flagConfig  = flag.String("config", "", "ruta a config.yaml (default: configs/config.yaml si existe)")
		flagEnvFile = flag.String("env-file", ".env", "ruta a .env")
	)
	flag.Parse()

	// .env es opcional
	_ = godotenv.Load(*flagEnvFile)

	path := *flagConfig
	if path == "" && fileExists("configs/config.yaml") {
		path = "configs/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name,
		Version:     os.Getenv("SERVICE_VERSION"),
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	if err := run(cfg); err != nil {
		log.Error("service stopped with error", logger.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := logger.L()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ─── secretbox (opcional) ───
	var box *secretbox.Box
	if k := strings.TrimSpace(cfg.Security.SecretboxMasterKey); k != "" {
		b, err := secretbox.FromString(k)
		if err != nil {
			return fmt.Errorf("secretbox: %w", err)
		}
		box = b
	} else {
		log.Warn("SECRETBOX_MASTER_KEY not set: private keys are stored unsealed")
	}

	// ─── stores ───
	scfg := store.Config{
		Driver:  cfg.Storage.Driver,
		DSN:     cfg.Storage.DSN,
		Dir:     cfg.Storage.Dir,
		Migrate: cfg.Storage.Migrate,
	}
	scfg.Postgres.MaxConns = int32(cfg.Storage.Postgres.MaxConns)
	scfg.Postgres.MinConns = int32(cfg.Storage.Postgres.MinConns)
	scfg.Postgres.ConnMaxLifetime = cfg.Storage.Postgres.ConnMaxLifetime
	stores, err := store.Open(ctx, scfg, box)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer func() { _ = stores.Close() }()
	log.Info("stores ready", logger.Driver(stores.Driver))

	// ─── cache de claves públicas ───
	cc, err := cache.New(ctx, cache.Config{
		Driver:   cfg.Cache.Kind,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer func() { _ = cc.Close() }()
	creds := store.NewCachedCredentials(stores.Credentials, cc, cfg.Cache.TTL)

	// ─── rate limit de autenticación ───
	var limiter rate.Limiter
	if rl := cfg.Security.AuthRateLimit; rl.Max > 0 {
		rcfg := rate.Config{Max: rl.Max, Window: rl.Window, Prefix: cfg.Cache.Redis.Prefix + ":rl:"}
		if strings.EqualFold(cfg.Cache.Kind, "redis") {
			client := rdb.NewClient(&rdb.Options{
				Addr:     cfg.Cache.Redis.Addr,
				Password: cfg.Cache.Redis.Password,
				DB:       cfg.Cache.Redis.DB,
			})
			defer func() { _ = client.Close() }()
			limiter = rate.NewRedisLimiter(client, rcfg)
		} else {
			limiter = rate.NewMemoryLimiter(rcfg)
		}
		log.Info("auth rate limit enabled", logger.Int("max", rl.Max), logger.Duration(rl.Window))
	}

	// ─── auditoría ───
	sinks := []repository.AuditSink{audit.NewLogSink(nil)}
	switch strings.ToLower(cfg.Audit.Driver) {
	case "memory":
		sinks = append([]repository.AuditSink{audit.NewMemorySink(cfg.Audit.MemoryCapacity)}, sinks...)
	case "sqlite":
		sq, err := audit.OpenSQLite(cfg.Audit.SQLitePath)
		if err != nil {
			return fmt.Errorf("audit sqlite: %w", err)
		}
		sinks = append([]repository.AuditSink{sq}, sinks...)
	}
	auditSink := audit.NewTee(sinks...)
	defer func() { _ = auditSink.Close() }()

	// ─── métricas ───
	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// ─── service ───
	policy := password.DefaultPolicy
	if cfg.Security.PasswordMinLength > 0 {
		policy.MinLength = cfg.Security.PasswordMinLength
	}
	svc, err := docsign.New(docsign.Deps{
		Credentials:       creds,
		Documents:         stores.Documents,
		Audit:             auditSink,
		Keys:              keys.NewManager(keys.Config{DefaultBits: cfg.Crypto.KeyBits}),
		Signer:            signature.NewEngine(nil),
		Certs:             certificate.New(certificate.Config{Validity: cfg.Crypto.CertValidity}),
		Metrics:           m,
		PasswordParams:    password.Default,
		PasswordPolicy:    policy,
		KeyBits:           cfg.Crypto.KeyBits,
		KeygenConcurrency: cfg.Crypto.KeygenConcurrency,
	})
	if err != nil {
		return err
	}

	if cfg.Security.OperatorJWTSecret == "" {
		log.Warn("OPERATOR_JWT_SECRET not set: operator routes are disabled")
	}
	handler := router.New(router.Deps{
		Service:        svc,
		Metrics:        m,
		OperatorSecret: []byte(cfg.Security.OperatorJWTSecret),
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Limiter:        limiter,
		Ready: map[string]handlers.Check{
			"store": stores.Ping,
			"cache": cc.Ping,
		},
		SelfCheck: handlers.NewSelfCheck(func() (*rsa.PrivateKey, error) {
			return rsa.GenerateKey(rand.Reader, keys.Bits2048)
		}),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", logger.String("addr", cfg.Server.Addr), logger.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", logger.Duration(cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
