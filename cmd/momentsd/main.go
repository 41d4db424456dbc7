package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/your-org/moments/internal/gateway"
	"github.com/your-org/moments/internal/moments"
	"github.com/your-org/moments/internal/poaps"
	"github.com/your-org/moments/pkg/compass"
	"github.com/your-org/moments/pkg/config"
	"github.com/your-org/moments/pkg/kafka"
	"github.com/your-org/moments/pkg/logger"
	"github.com/your-org/moments/pkg/poapapi"
	"github.com/your-org/moments/pkg/storage/objectstore"
	"github.com/your-org/moments/pkg/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logr, err := logger.New(logger.Options{
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	traceShutdown, err := tracing.Init(ctx, tracing.Config{
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
		Attributes:     tracing.ParseAttributes(cfg.Tracing.ResourceAttr),
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
	})
	if err != nil {
		logr.Fatal("init tracing", zap.Error(err))
	}
	defer traceShutdown(context.Background()) //nolint:errcheck

	api := poapapi.New(poapapi.Config{
		BaseURL: cfg.API.BaseURL,
		APIKey:  cfg.API.APIKey,
		Timeout: cfg.API.Timeout,
	})

	uploader, err := newUploader(cfg, api)
	if err != nil {
		logr.Fatal("init media uploader", zap.Error(err))
	}

	orchestrator := moments.NewOrchestrator(moments.Params{
		Uploader: uploader,
		Creator:  api,
		Logger:   logr.Named("moments"),
	})

	var publisher gateway.Publisher
	if cfg.Kafka.Enabled {
		publisher = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.MomentsTopic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			Compression:  kafka.CompressionFromString(cfg.Kafka.CompressionCodec),
			RequiredAcks: kafkago.RequireAll,
			MaxAttempts:  cfg.Kafka.Retries,
		})
	}

	poapClient := poaps.NewClient(compass.New(compass.Config{
		Endpoint: cfg.Compass.Endpoint,
		APIKey:   cfg.Compass.APIKey,
		Timeout:  cfg.Compass.Timeout,
	}))

	service := gateway.NewService(gateway.Params{
		Creator:        orchestrator,
		Poaps:          poapClient,
		Publisher:      publisher,
		Logger:         logr,
		PublishTimeout: cfg.Kafka.PublishTimeout,
	})

	handler := gateway.NewHTTPHandler(service, logr, gateway.Limits{
		MaxSizeBytes:  cfg.Upload.MaxSizeBytes,
		FormMemBytes:  cfg.Upload.MultipartMemBytes,
		MaxMediaItems: cfg.Upload.MaxMediaItems,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logr.Error("http server shutdown failed", zap.Error(err))
		}
		if err := service.Close(); err != nil {
			logr.Error("service shutdown failed", zap.Error(err))
		}
	}()

	logr.Info("moments gateway starting",
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("ticket_source", cfg.Upload.TicketSource),
		zap.Bool("kafka", cfg.Kafka.Enabled),
	)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Fatal("http server failed", zap.Error(err))
	}
}

func newUploader(cfg *config.Config, api *poapapi.Client) (moments.MediaUploader, error) {
	if cfg.Upload.TicketSource != config.TicketSourceObjectStore {
		return moments.NewAPIUploader(api), nil
	}

	store, err := objectstore.New(objectstore.Config{
		Provider:  cfg.Storage.Provider,
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		Bucket:    cfg.Storage.Bucket,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return moments.NewPresignedUploader(store, api, cfg.Storage.PresignExpiry, cfg.Storage.KeyPrefix), nil
}
