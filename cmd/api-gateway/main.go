package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tutor-booking-api/api/swagger"
	"github.com/noah-isme/tutor-booking-api/internal/dto"
	"github.com/noah-isme/tutor-booking-api/internal/handler"
	"github.com/noah-isme/tutor-booking-api/internal/repository"
	"github.com/noah-isme/tutor-booking-api/internal/service"
	"github.com/noah-isme/tutor-booking-api/migrations"
	"github.com/noah-isme/tutor-booking-api/pkg/cache"
	"github.com/noah-isme/tutor-booking-api/pkg/config"
	"github.com/noah-isme/tutor-booking-api/pkg/database"
	"github.com/noah-isme/tutor-booking-api/pkg/jobs"
	"github.com/noah-isme/tutor-booking-api/pkg/lock"
	"github.com/noah-isme/tutor-booking-api/pkg/logger"
	"github.com/noah-isme/tutor-booking-api/pkg/payments"
)

// @title Tutor Booking API
// @version 1.0.0
// @description Class and one-on-one tutoring bookings with payment settlement.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		migrator, err := database.NewMigrator(db.DB, migrations.FS, ".", logr)
		if err != nil {
			return err
		}
		if err := migrator.Up(ctx); err != nil {
			return err
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	gateway, err := payments.New(cfg.Payments)
	if err != nil {
		return err
	}

	app, err := buildApp(cfg, db, redisClient, gateway, logr)
	if err != nil {
		return err
	}

	app.queue.Start(ctx)
	defer app.queue.Stop()

	if cfg.Sweeps.Enabled {
		scheduler := cron.New()
		if _, err := app.sweeps.Register(scheduler, cfg.Sweeps.Schedule); err != nil {
			return fmt.Errorf("register sweeps: %w", err)
		}
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()
		logr.Info("sweeps scheduled", zap.String("schedule", cfg.Sweeps.Schedule))
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, app, logr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "payment_provider", gateway.Name())
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

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type app struct {
	metrics      *service.MetricsService
	auth         *service.AuthService
	users        *service.UserService
	bookings     *service.BookingService
	classes      *service.ClassService
	availability *service.AvailabilityService
	settlement   *service.SettlementService
	exports      *service.ExportService
	sweeps       *service.SweepService
	queue        *jobs.Queue
	checks       map[string]handler.Pinger
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, gateway payments.Gateway, logr *zap.Logger) (*app, error) {
	validate := dto.NewValidator()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	scheduleDayRepo := repository.NewScheduleDayRepository(db)
	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewTeacherSubjectRepository(db)
	intentRepo := repository.NewPaymentIntentRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)

	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient), metrics, cfg.Availability.CacheTTL, logr, redisClient != nil)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, subjectRepo, cacheSvc, cfg.Availability.CacheTTL, validate, logr)

	locker, err := newLocker(cfg.Locks, redisClient, logr)
	if err != nil {
		return nil, err
	}
	var events service.EventPublisher = repository.NewLogEventPublisher(logr)
	if redisClient != nil {
		events = repository.NewRedisEventPublisher(redisClient, repository.BookingEventsChannel)
	}

	bookingSvc := service.NewBookingService(service.BookingDependencies{
		Bookings:        bookingRepo,
		Availability:    availabilityRepo,
		ScheduleDays:    scheduleDayRepo,
		Classes:         classRepo,
		TeacherSubjects: subjectRepo,
		Intents:         intentRepo,
		Reviews:         reviewRepo,
		Assignments:     assignmentRepo,
		Gateway:         gateway,
		Locker:          locker,
		Events:          events,
		SlotCache:       availabilitySvc,
		Metrics:         metrics,
	}, service.BookingConfig{
		IntentTTL:      cfg.Payments.IntentTTL,
		GatewayTimeout: cfg.Payments.GatewayTimeout,
	}, validate, logr)

	settlementSvc := service.NewSettlementService(gateway, bookingSvc, metrics, logr)
	queue := jobs.NewQueue("settlement", settlementSvc.Process, jobs.QueueConfig{
		Workers:    cfg.Settlement.Workers,
		BufferSize: cfg.Settlement.BufferSize,
		MaxRetries: cfg.Settlement.MaxRetries,
		RetryDelay: cfg.Settlement.RetryDelay,
		Logger:     logr,
		OnDrop:     settlementSvc.OnDrop,
	})
	settlementSvc.UseQueue(queue)

	checks := map[string]handler.Pinger{"database": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	return &app{
		metrics: metrics,
		auth: service.NewAuthService(userRepo, logr, service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiry,
			Issuer:            cfg.JWT.Issuer,
		}),
		users:        service.NewUserService(userRepo, logr),
		bookings:     bookingSvc,
		classes:      service.NewClassService(classRepo, validate, logr),
		availability: availabilitySvc,
		settlement:   settlementSvc,
		exports:      service.NewExportService(bookingRepo, nil, nil, logger.ServiceName, logr),
		sweeps:       service.NewSweepService(intentRepo, bookingRepo, bookingSvc, cfg.Payments.IntentTTL, logr),
		queue:        queue,
		checks:       checks,
	}, nil
}

func newLocker(cfg config.LockConfig, client *redis.Client, logr *zap.Logger) (lock.Locker, error) {
	switch cfg.Backend {
	case config.LockBackendMemory, "":
		return lock.NewKeyedMutex(), nil
	case config.LockBackendRedis:
		if client == nil {
			return nil, fmt.Errorf("LOCK_BACKEND=redis requires ENABLE_REDIS=true")
		}
		return lock.NewRedisLocker(client, cfg.TTL, logr), nil
	default:
		return nil, fmt.Errorf("unsupported lock backend %q", cfg.Backend)
	}
}
