package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
	"google.golang.org/grpc/reflection"

	grpcrouter "github.com/dtroode/medisupply-security/internal/api/grpc/router"
	grpcserver "github.com/dtroode/medisupply-security/internal/api/grpc/server"
	httpctx "github.com/dtroode/medisupply-security/internal/api/http/context"
	"github.com/dtroode/medisupply-security/internal/api/http/handler"
	"github.com/dtroode/medisupply-security/internal/api/http/middleware"
	httprouter "github.com/dtroode/medisupply-security/internal/api/http/router"
	httpserver "github.com/dtroode/medisupply-security/internal/api/http/server"
	"github.com/dtroode/medisupply-security/internal/bootstrap"
	"github.com/dtroode/medisupply-security/internal/config"
	"github.com/dtroode/medisupply-security/internal/fieldcipher"
	"github.com/dtroode/medisupply-security/internal/keys"
	"github.com/dtroode/medisupply-security/internal/logger"
	"github.com/dtroode/medisupply-security/internal/metrics"
	"github.com/dtroode/medisupply-security/internal/model"
	"github.com/dtroode/medisupply-security/internal/password"
	"github.com/dtroode/medisupply-security/internal/repository/memory"
	"github.com/dtroode/medisupply-security/internal/repository/postgres"
	redisrepo "github.com/dtroode/medisupply-security/internal/repository/redis"
	"github.com/dtroode/medisupply-security/internal/repository/timeout"
	"github.com/dtroode/medisupply-security/internal/server"
	"github.com/dtroode/medisupply-security/internal/service"
	miniostorage "github.com/dtroode/medisupply-security/internal/storage/minio"
	s3storage "github.com/dtroode/medisupply-security/internal/storage/s3"
	"github.com/dtroode/medisupply-security/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

// stores are the persistence backends selected by configuration.
type stores struct {
	users         model.UserStore
	records       model.RecordRepository
	refreshTokens model.RefreshTokenStore
	revocations   model.RevocationList
	closers       []func() error
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel, cfg.LogFormat)

	health := service.NewHealth(buildVersion, cfg.Store.Timeout, logger)

	keyStore, err := openKeyStore(ctx, cfg, health)
	if err != nil {
		logger.Fatal("failed to initialize key store", "error", err)
	}
	keyManager := keys.NewManager(keyStore, logger)
	if err := keyManager.Init(ctx); err != nil {
		logger.Fatal("failed to initialize keys", "error", err)
	}
	material, err := keyManager.Keys(ctx)
	if err != nil {
		logger.Fatal("failed to load keys", "error", err)
	}

	cipher, err := fieldcipher.New(material.Cipher)
	if err != nil {
		logger.Fatal("failed to initialize field cipher", "error", err)
	}
	health.AddStatic("encryption", "active")

	tokenManager, err := token.NewJWT(material.Signing, token.WithIssuer(cfg.Token.Issuer))
	if err != nil {
		logger.Fatal("failed to initialize token manager", "error", err)
	}
	health.AddStatic("jwt", "configured")

	st, err := openStores(ctx, cfg, health)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer st.Close()

	hasher := password.NewHasher(password.Params{Time: cfg.KDF.Time, MemKiB: cfg.KDF.MemKiB, Par: cfg.KDF.Par})
	credentials, err := service.NewCredentials(st.users, hasher, logger)
	if err != nil {
		logger.Fatal("failed to initialize credentials", "error", err)
	}

	ttl := service.TokenTTL{Access: cfg.Token.AccessTTL, Refresh: cfg.Token.RefreshTTL}
	tokenService := service.NewTokenService(tokenManager, st.refreshTokens, st.revocations, st.users, ttl, logger)
	authService := service.NewAuth(credentials, tokenService, cfg.Auth.AssumeMFA, logger)
	customerService := service.NewCustomers(service.NewRecords(st.records, cipher, logger), logger)

	if cfg.Auth.SeedDemoUsers {
		if _, err := bootstrap.Seed(ctx, st.users, hasher, bootstrap.DemoAccounts, logger); err != nil {
			logger.Fatal("failed to seed demo users", "error", err)
		}
	}

	m := metrics.New()
	m.SetBuildInfo(buildVersion, buildCommit)

	var rateLimiter *middleware.RateLimiter
	if cfg.Auth.LoginRatePerMinute > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.Auth.LoginRatePerMinute)
	}

	services := httprouter.Services{
		Auth:      authService,
		Customers: customerService,
		Tokens:    tokenService,
		Health:    health,
		Users:     st.users,
	}
	build := handler.BuildInfo{Version: buildVersion, Date: buildDate, Commit: buildCommit}
	engine, err := httprouter.New(services, httpctx.NewManager(), m, rateLimiter, cfg.HTTP.TrustedProxies, build, ttl, logger).Register()
	if err != nil {
		logger.Fatal("failed to build http router", "error", err)
	}

	servers := []model.Server{
		httpserver.NewHTTPServer(engine, fmt.Sprintf(":%s", cfg.HTTP.Port), cfg.HTTP.ReadHeaderTimeout),
	}
	if cfg.GRPC.Enabled {
		servers = append(servers, registerGRPCServer(health, logger, fmt.Sprintf(":%s", cfg.GRPC.Port)))
	}

	var sl model.SecurityLayer
	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(s model.Server) {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.Address())
				stop()
			}
		}(s)
	}

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for _, s := range servers {
		if err := s.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.Address())
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}

// openKeyStore selects where key material lives and registers it with the
// health checker when it is remote.
func openKeyStore(ctx context.Context, cfg *config.Config, health *service.Health) (keys.Store, error) {
	switch cfg.Keys.Backend {
	case "minio":
		minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
			Creds:  miniocreds.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
			Secure: cfg.Storage.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
		storageClient, err := miniostorage.NewClient(ctx, minioClient, cfg.Storage.Bucket)
		if err != nil {
			return nil, err
		}
		health.AddPinger("keys", storageClient)
		return keys.NewObjectStore(storageClient, cfg.Keys.Prefix), nil
	case "s3":
		storageClient, err := s3storage.NewClient(ctx, s3storage.Options{
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		health.AddPinger("keys", storageClient)
		return keys.NewObjectStore(storageClient, cfg.Keys.Prefix), nil
	default:
		return keys.NewFileStore(cfg.Keys.Path)
	}
}

// openStores builds the configured repositories, each bounded by the store
// timeout.
func openStores(ctx context.Context, cfg *config.Config, health *service.Health) (*stores, error) {
	st := &stores{}

	var (
		users         model.UserStore
		records       model.RecordRepository
		refreshTokens model.RefreshTokenStore
		revocations   model.RevocationList
	)

	switch cfg.Store.Backend {
	case "postgres":
		db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, db.Close)
		health.AddPinger("database", db)

		users = postgres.NewUserRepository(db)
		records = postgres.NewRecordRepository(db)
		refreshTokens = postgres.NewRefreshTokenRepository(db)
	default:
		health.AddStatic("database", "memory")

		users = memory.NewUserRepository()
		records = memory.NewRecordRepository()
		refreshTokens = memory.NewRefreshTokenRepository()
	}

	if cfg.Redis.URL != "" {
		client, err := redisrepo.NewClient(cfg.Redis.URL)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.closers = append(st.closers, client.Close)
		list := redisrepo.NewRevocationList(client)
		health.AddPinger("redis", list)
		revocations = list
	} else {
		revocations = memory.NewRevocationList()
	}

	st.users = timeout.NewUsers(users, cfg.Store.Timeout)
	st.records = timeout.NewRecords(records, cfg.Store.Timeout)
	st.refreshTokens = timeout.NewRefreshTokens(refreshTokens, cfg.Store.Timeout)
	st.revocations = timeout.NewRevocations(revocations, cfg.Store.Timeout)

	return st, nil
}

func registerGRPCServer(health *service.Health, logger *logger.Logger, addr string) *grpcserver.GRPCServer {
	s := grpcrouter.New(health, logger).Register()

	reflection.Register(s)

	return grpcserver.NewGRPCServer(s, addr)
}
