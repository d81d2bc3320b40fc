package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/atinyakov/go-qr-expiry/internal/app/server"
	grpcserver "github.com/atinyakov/go-qr-expiry/internal/app/server/grpc"
	"github.com/atinyakov/go-qr-expiry/internal/app/service"
	"github.com/atinyakov/go-qr-expiry/internal/artifact"
	"github.com/atinyakov/go-qr-expiry/internal/cache"
	"github.com/atinyakov/go-qr-expiry/internal/clock"
	"github.com/atinyakov/go-qr-expiry/internal/config"
	"github.com/atinyakov/go-qr-expiry/internal/encoder"
	"github.com/atinyakov/go-qr-expiry/internal/logger"
	"github.com/atinyakov/go-qr-expiry/internal/middleware"
	"github.com/atinyakov/go-qr-expiry/internal/repository"
	"github.com/atinyakov/go-qr-expiry/internal/storage"
)

var (
	buildVersion = "N/A"
	buildDate    = "N/A"
	buildCommit  = "N/A"
)

const shutdownTimeout = 10 * time.Second

// recordStore is a service.Store the process owns and must close.
type recordStore interface {
	service.Store
	Close() error
}

func main() {
	log := logger.New()

	opts, err := config.Parse()
	if err != nil {
		_ = log.Init("info")
		log.Log.Fatal("failed to load config", zap.Error(err))
	}

	if err := log.Init(opts.LogLevel); err != nil {
		_ = log.Init("info")
		log.Log.Fatal("invalid log level", zap.String("level", opts.LogLevel), zap.Error(err))
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Log.Info("starting qrserver",
		zap.String("version", buildVersion),
		zap.String("date", buildDate),
		zap.String("commit", buildCommit),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, log.Log); err != nil {
		log.Log.Error("server stopped", zap.Error(err))
		stop()
		_ = log.Sync()
		log.Log.Fatal("exiting")
	}
}

func run(ctx context.Context, opts *config.Options, zl *zap.Logger) error {
	c, err := clock.Load(opts.TimeZone)
	if err != nil {
		return err
	}

	var inputZone *time.Location
	if opts.InputTimeZone != "" {
		if inputZone, err = time.LoadLocation(opts.InputTimeZone); err != nil {
			return fmt.Errorf("load input time zone: %w", err)
		}
	}

	store, err := openStore(ctx, opts, c, zl)
	if err != nil {
		return err
	}
	defer store.Close()

	arts, err := openArtifacts(ctx, opts, zl)
	if err != nil {
		return err
	}

	trusted, err := middleware.ParseSubnet(opts.TrustedSubnet)
	if err != nil {
		return fmt.Errorf("parse trusted subnet: %w", err)
	}

	svc := service.NewCodeService(store, c, encoder.NewQR(), arts, service.IssuerConfig{
		BaseURL:      opts.ResultHostname,
		InputZone:    inputZone,
		StoreTimeout: opts.StoreTimeout,
	}, zl)

	if opts.EnablePprof {
		go func() {
			zl.Info("Starting pprof server", zap.String("addr", "localhost:6060"))
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				zl.Error("pprof server error", zap.Error(err))
			}
		}()
	}

	if opts.GRPCPort != 0 {
		g := grpcserver.New(svc, trusted, zl, opts.GRPCPort)
		go func() {
			if err := g.Start(); err != nil {
				zl.Error("gRPC server error", zap.Error(err))
			}
		}()
		defer g.GracefulStop()
	}

	srv := &http.Server{
		Addr:              opts.Port,
		Handler:           server.Init(svc, arts, zl, trusted),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(srv, opts, zl)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func serve(srv *http.Server, opts *config.Options, zl *zap.Logger) error {
	if !opts.EnableHTTPS {
		zl.Info("Server is running", zap.String("address", srv.Addr))
		return srv.ListenAndServe()
	}

	host := "localhost"
	if u, err := url.Parse(opts.ResultHostname); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}

	manager := &autocert.Manager{
		Cache:      autocert.DirCache("cache-dir"),
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(host),
	}
	srv.Addr = ":443"
	srv.TLSConfig = manager.TLSConfig()

	zl.Info("Server is running with TLS", zap.String("host", host))
	return srv.ListenAndServeTLS("", "")
}

// openStore picks the record store: PostgreSQL, SQLite, file, then memory.
// A Redis address wraps the choice in a read-through cache.
func openStore(ctx context.Context, opts *config.Options, c clock.Clock, zl *zap.Logger) (recordStore, error) {
	var (
		store recordStore
		err   error
	)

	switch {
	case opts.DatabaseDSN != "":
		zl.Info("using postgres storage")
		db, dbErr := repository.InitDB(ctx, opts.DatabaseDSN, zl)
		if dbErr != nil {
			return nil, dbErr
		}
		store = repository.CreateCodeRepository(db, c, zl)
	case opts.SQLitePath != "":
		zl.Info("using sqlite storage", zap.String("path", opts.SQLitePath))
		store, err = repository.OpenSQLite(ctx, opts.SQLitePath, c, zl)
	case opts.FilePath != "":
		zl.Info("using file storage", zap.String("path", opts.FilePath))
		store, err = storage.NewFileStorage(opts.FilePath, c, zl)
	default:
		zl.Info("using in memory storage")
		store, err = storage.CreateMemoryStorage(c)
	}
	if err != nil {
		return nil, err
	}

	if opts.RedisAddr == "" {
		return store, nil
	}

	client := cache.NewRedisClient(opts.RedisAddr)
	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		zl.Warn("redis is not reachable, cache will fall through", zap.String("addr", opts.RedisAddr), zap.Error(err))
	}

	return cache.NewRedisStore(store, client, c, opts.RedisTTL, zl), nil
}

// openArtifacts picks S3 when a bucket is configured, else the local directory.
func openArtifacts(ctx context.Context, opts *config.Options, zl *zap.Logger) (artifact.Store, error) {
	if opts.S3.Bucket != "" {
		zl.Info("using s3 artifacts", zap.String("bucket", opts.S3.Bucket))
		return artifact.NewS3(ctx, artifact.S3Config{
			Endpoint:        opts.S3.Endpoint,
			AccessKeyID:     opts.S3.AccessKeyID,
			SecretAccessKey: opts.S3.SecretAccessKey,
			Bucket:          opts.S3.Bucket,
			Region:          opts.S3.Region,
		})
	}

	zl.Info("using local artifacts", zap.String("dir", opts.ArtifactDir))
	return artifact.NewDir(opts.ArtifactDir)
}
