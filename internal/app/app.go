// Package app wires the service together and runs it until the context is
// cancelled: Redis, repositories, the retry manager, channel senders, the
// worker pool, the tick loop and the two HTTP servers.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/benbjohnson/clock"
	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"medremind/internal/config"
	"medremind/internal/entity"
	"medremind/internal/metrics"
	"medremind/internal/notifier"
	"medremind/internal/notifier/sender"
	"medremind/internal/repository"
	"medremind/internal/retry"
	"medremind/internal/scheduler"
	"medremind/internal/service"
	httpt "medremind/internal/transport/http"
	"medremind/internal/worker"
	redisstore "medremind/pkg/storage/redis"
)

func Run(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	eg, ctx := errgroup.WithContext(ctx)
	clk := clock.New()

	rdb, err := initStorage(&cfg.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rdb.Close(); cerr != nil {
			log.Errorw("failed to close redis client", "error", cerr)
		}
	}()

	reminderRepo := repository.NewReminderRepository(rdb)
	scheduleIndex := repository.NewScheduleIndex(rdb)
	retryRepo := repository.NewRetryRepository(rdb, cfg.Retry.CounterTTL)
	contactRepo := repository.NewContactRepository(rdb)
	queueRepo := repository.NewQueueRepository(rdb)

	retryManager := retry.NewManager(retryRepo, scheduleIndex, clk, log,
		cfg.Retry.MaxRetries, cfg.Retry.BaseDelay)

	dispatcher := initDispatcher(cfg, contactRepo, queueRepo, log)

	recorder := metrics.NewRecorder(cfg.Metrics.EventBuffer, log)
	recorder.ObserveSchedule(scheduleIndex)
	recorder.ObserveQueues(queueRepo, []entity.Channel{entity.ChannelSocket})
	recorder.ObserveDeadLetters(retryRepo)
	eg.Go(func() error {
		recorder.Run(ctx)
		return nil
	})

	svc, err := initService(reminderRepo, retryManager, dispatcher, retryRepo, contactRepo, clk, log, recorder)
	if err != nil {
		return err
	}

	pool := worker.NewPool(cfg.Worker.Count, svc, scheduleIndex, clk, log,
		cfg.Worker.HeartbeatTimeout, cfg.Worker.HealthCheckInterval, cfg.Worker.RequeueDelay)
	pool.Start(ctx)
	defer pool.Stop()
	recorder.ObserveWorkers(pool)

	sched := scheduler.New(scheduleIndex, pool, clk, log, recorder,
		cfg.Scheduler.TickInterval, cfg.Scheduler.BatchLimit,
		cfg.Scheduler.SubBatchSize, cfg.Scheduler.RequeueDelay)
	sched.Start(ctx)
	defer sched.Stop()

	initMetricsServer(ctx, eg, &cfg.Metrics, recorder, log)
	initHTTPServer(ctx, eg, cfg, svc, sched, pool, log)

	return waitForShutdown(eg)
}

func initStorage(cfg *config.Redis) (*goredis.Client, error) {
	rdb, err := redisstore.New(cfg.Addr, cfg.Password, cfg.DB,
		redisstore.PoolSize(cfg.PoolSize),
		redisstore.MinIdleCons(cfg.MinIdleCons),
		redisstore.PoolTimeout(cfg.PoolTimeout),
		redisstore.DialTimeout(cfg.DialTimeout),
		redisstore.ReadTimeout(cfg.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("app.initStorage: %w", err)
	}
	return rdb, nil
}

func initDispatcher(
	cfg *config.Config,
	contacts *repository.ContactRepository,
	queue *repository.QueueRepository,
	log *zap.SugaredLogger,
) *notifier.Dispatcher {
	smsClient := &http.Client{Timeout: cfg.SMS.Timeout}
	pushClient := &http.Client{Timeout: cfg.Push.Timeout}

	senders := map[entity.Channel]notifier.Sender{
		entity.ChannelEmail: sender.NewEmailSender(cfg.Email.Host, cfg.Email.Port,
			cfg.Email.Username, cfg.Email.Password, cfg.Email.Sender, contacts, log),
		entity.ChannelSMS: sender.NewSMSSender(smsClient, cfg.SMS.GatewayURL,
			cfg.SMS.APIKey, cfg.SMS.From, contacts, log),
		entity.ChannelPush: sender.NewPushSender(pushClient, cfg.Push.GatewayURL,
			cfg.Push.APIKey, contacts, log),
		entity.ChannelSocket: sender.NewSocketSender(queue, log),
	}

	return notifier.NewDispatcher(senders, cfg.Notify.ChannelTimeout, log)
}

func initService(
	repo *repository.ReminderRepository,
	retries *retry.Manager,
	dispatcher *notifier.Dispatcher,
	deadLetters *repository.RetryRepository,
	contacts *repository.ContactRepository,
	clk clock.Clock,
	log *zap.SugaredLogger,
	events metrics.Sink,
) (*service.ReminderService, error) {
	svc, err := service.NewReminderService(repo, retries, dispatcher, deadLetters, contacts,
		clk, log, events)
	if err != nil {
		return nil, fmt.Errorf("app.initService: %w", err)
	}
	return svc, nil
}

func initHTTPServer(
	ctx context.Context,
	eg *errgroup.Group,
	cfg *config.Config,
	svc *service.ReminderService,
	sched *scheduler.Scheduler,
	pool *worker.Pool,
	log *zap.SugaredLogger,
) {
	handler := httpt.NewHandler(svc, sched, pool, log, cfg.App.Name, cfg.App.Version)

	srv := &http.Server{
		Addr:              cfg.HTTP.Host + ":" + cfg.HTTP.Port,
		Handler:           handler.Engine(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	eg.Go(func() error {
		log.Infow("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app.initHTTPServer: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func initMetricsServer(
	ctx context.Context,
	eg *errgroup.Group,
	cfg *config.Metrics,
	recorder *metrics.Recorder,
	log *zap.SugaredLogger,
) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())

	srv := &http.Server{
		Addr:              cfg.Host + ":" + cfg.Port,
		Handler:           mux,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	eg.Go(func() error {
		log.Infow("metrics server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app.initMetricsServer: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		return srv.Close()
	})
}

func waitForShutdown(eg *errgroup.Group) error {
	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("app.waitForShutdown: %w", err)
	}
	return nil
}
