package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/redis/go-redis/v9"

	"chat-relay/handler"
	"chat-relay/internal/config"
	"chat-relay/internal/integrations/dify"
	"chat-relay/internal/integrations/paramstore"
	"chat-relay/internal/server"
	"chat-relay/internal/store"
	"chat-relay/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// ---- AWS SDK config, only when something needs it ----
	var awsCfg aws.Config
	if cfg.UsesAWS() {
		var err error
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			fatal("failed to load AWS config", err)
		}
	}

	// ---- Clients ----
	creds := credentialSource(cfg, awsCfg)

	st, err := newStore(cfg, awsCfg)
	if err != nil {
		fatal("failed to create state store", err)
	}
	defer st.Close()

	difyClient, err := dify.NewClient(
		dify.WithBaseURL(cfg.DifyBaseURL),
		dify.WithTimeout(cfg.UpstreamTimeout),
	)
	if err != nil {
		fatal("failed to create Dify client", err)
	}

	// ---- Services ----
	relay, err := usecase.NewRelayService(creds, difyClient, st, st, logger)
	if err != nil {
		fatal("failed to create relay service", err)
	}
	profiles, err := usecase.NewProfileService(st)
	if err != nil {
		fatal("failed to create profile service", err)
	}

	srv, err := server.NewServer(relay, profiles, server.Options{
		AllowedOrigin: cfg.AllowedOrigin,
		StaticDir:     cfg.StaticDir,
		Logger:        logger,
	})
	if err != nil {
		fatal("failed to create server", err)
	}

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		h, err := handler.NewHandler(srv.Router(), logger)
		if err != nil {
			fatal("failed to create handler", err)
		}
		lambda.Start(h.Handle)
		return
	}

	serve(logger, cfg.Port, srv.Router())
}

func credentialSource(cfg config.Config, awsCfg aws.Config) usecase.CredentialSource {
	if cfg.DifyAPIKeyParam == "" {
		return usecase.StaticCredentials{APIKey: cfg.DifyAPIKey, AppID: cfg.DifyAppID}
	}
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		fatal("failed to create SSM client", err)
	}
	creds, err := usecase.NewParamStoreCredentials(ssmClient, cfg.DifyAPIKeyParam, cfg.DifyAppID)
	if err != nil {
		fatal("failed to create credential source", err)
	}
	return creds
}

func newStore(cfg config.Config, awsCfg aws.Config) (store.Store, error) {
	driver, err := store.ParseDriver(cfg.StoreDriver)
	if err != nil {
		return nil, err
	}
	opts := []store.Option{store.WithTTL(cfg.StateTTL)}
	switch driver {
	case store.DriverRedis:
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, store.WithRedisClient(redis.NewClient(redisOpts)))
	case store.DriverDynamoDB:
		opts = append(opts, store.WithDynamoDB(awsdynamodb.NewFromConfig(awsCfg), cfg.StateTable))
	}
	return store.New(driver, opts...)
}

func serve(logger *slog.Logger, port string, h http.Handler) {
	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
	logger.Info("server stopped")
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
