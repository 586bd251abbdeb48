// Command server runs the immersion convention API: the HTTP surface, the
// outbox worker that fans domain events out to notification and partner
// sinks, and the periodic partner resync job.
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

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"immersion/internal/agency"
	"immersion/internal/assessment"
	assessmenthandler "immersion/internal/assessment/handler"
	conventionhandler "immersion/internal/convention/handler"
	conventionmetrics "immersion/internal/convention/metrics"
	"immersion/internal/convention/service"
	"immersion/internal/convention/store"
	"immersion/internal/magiclink"
	"immersion/internal/notification"
	"immersion/internal/outbox"
	"immersion/internal/partner"
	partnerhandler "immersion/internal/partner/handler"
	"immersion/internal/platform/config"
	"immersion/internal/platform/httpserver"
	"immersion/internal/platform/logger"
	"immersion/internal/platform/postgres"
	platformredis "immersion/internal/platform/redis"
	"immersion/pkg/platform/circuit"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logger.New()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config.FromEnv(), log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	var (
		conventions conventionStore
		agencies    agencyStore
		assessments assessmentStore
		outboxStore outbox.Store
		tosync      partner.ToSyncStore
		errorStore  partner.ErrorStore
		tx          txRunner
	)
	if cfg.PostgresURL != "" {
		db, err := postgres.NewDB(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return err
		}
		pool, err := postgres.NewPool(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		conventions = store.NewPostgres(db)
		agencies = agency.NewPostgres(pool)
		assessments = assessment.NewPostgres(db)
		outboxStore = outbox.NewPostgresStore(db)
		tosync = partner.NewPostgresToSyncStore(pool)
		errorStore = partner.NewPostgresErrorStore(db)
		tx = postgres.NewTx(db)
	} else {
		log.Warn("IMMERSION_POSTGRES_URL not set, using in-memory stores")
		conventions = store.NewInMemory()
		agencies = agency.NewInMemory()
		assessments = assessment.NewInMemory()
		outboxStore = outbox.NewInMemoryStore()
		tosync = partner.NewInMemoryToSyncStore()
		errorStore = partner.NewInMemoryErrorStore()
		tx = service.NewInMemoryTx()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	reg := prometheus.DefaultRegisterer
	publisher := outbox.NewPublisher(outboxStore)

	conventionService := service.New(conventions, agencies, assessments, publisher,
		service.WithTx(tx),
		service.WithLogger(log),
		service.WithMetrics(conventionmetrics.New(reg)),
	)
	assessmentService := assessment.NewService(assessments, conventions, agencies, publisher,
		assessment.WithTx(tx),
		assessment.WithLogger(log),
		assessment.WithMetrics(assessment.NewMetrics(reg)),
	)

	broadcastEnabled := cfg.Partner.Enabled && cfg.Partner.BaseURL != ""
	partnerGateway := partner.NewGuardedGateway(
		partner.NewHTTPGateway(cfg.Partner.BaseURL, cfg.Partner.APIKey, cfg.Partner.Timeout),
		circuit.New("partner"),
		log,
	)
	broadcaster := partner.NewBroadcaster(
		partnerGateway,
		conventions, agencies, tosync, errorStore, broadcastEnabled,
		partner.WithLogger(log),
		partner.WithMetrics(partner.NewMetrics(reg)),
	)
	resyncService := partner.NewResyncService(tosync, broadcaster, errorStore, log)

	notifier := notification.NewConsumer(conventions, agencies,
		notification.NewLogGateway(log),
		notification.NewRateLimiter(redisClient, log),
		cfg.Notification,
		notification.WithLogger(log),
		notification.WithMetrics(notification.NewMetrics(reg)),
	)

	sinks := []outbox.Sink{notifier, partner.NewConsumer(broadcaster)}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := outbox.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}
	worker := outbox.NewWorker(outboxStore, sinks, cfg.OutboxPollInterval, log)

	links := magiclink.NewService(cfg.MagicLinkSigningKey)
	router := newRouter(routerDeps{
		conventions: conventionhandler.New(conventionService, log),
		assessments: assessmenthandler.New(assessmentService, log),
		partner:     partnerhandler.New(resyncService, cfg.ResyncLimit, log),
		links:       links,
		cfg:         cfg,
		logger:      log,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return ignoreCanceled(worker.Run(gctx))
	})
	if broadcastEnabled {
		g.Go(func() error {
			return ignoreCanceled(resyncService.Run(gctx, cfg.ResyncInterval, cfg.ResyncLimit))
		})
	}

	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
