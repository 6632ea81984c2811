// Package app wires the course hub from configuration: storage, cache,
// event delivery and the command and query handlers. Both binaries build
// on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	goredis "github.com/redis/go-redis/v9"

	"github.com/alem-hub/course-hub/config"
	"github.com/alem-hub/course-hub/internal/application/command"
	"github.com/alem-hub/course-hub/internal/application/eventhandler"
	"github.com/alem-hub/course-hub/internal/application/query"
	"github.com/alem-hub/course-hub/internal/domain/course"
	"github.com/alem-hub/course-hub/internal/domain/shared"
	"github.com/alem-hub/course-hub/internal/infrastructure/messaging"
	"github.com/alem-hub/course-hub/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/course-hub/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/course-hub/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/course-hub/internal/infrastructure/scheduler"
	"github.com/alem-hub/course-hub/internal/infrastructure/scheduler/jobs"
	"github.com/alem-hub/course-hub/internal/infrastructure/service"
	"github.com/alem-hub/course-hub/internal/interface/http/handlers"
	"github.com/alem-hub/course-hub/pkg/logger"
)

// eventBus is what both bus flavours provide.
type eventBus interface {
	shared.EventBus
	Close() error
	Closed() bool
	Metrics() *messaging.EventBusMetrics
}

// Commands groups every command handler.
type Commands struct {
	CreateCourse          *command.CreateCourseHandler
	UpdateCourseInfo      *command.UpdateCourseInfoHandler
	ChangePrice           *command.ChangePriceHandler
	AssignTeacher         *command.AssignTeacherHandler
	ChangeCourseLifecycle *command.ChangeCourseLifecycleHandler

	AddSection    *command.AddSectionHandler
	UpdateSection *command.UpdateSectionHandler
	RemoveSection *command.RemoveSectionHandler
	AddLesson     *command.AddLessonHandler
	UpdateLesson  *command.UpdateLessonHandler
	RemoveLesson  *command.RemoveLessonHandler

	AddQuiz             *command.AddQuizHandler
	UpdateQuiz          *command.UpdateQuizHandler
	ChangeQuizLifecycle *command.ChangeQuizLifecycleHandler
	AddQuestion         *command.AddQuestionHandler
	UpdateQuestion      *command.UpdateQuestionHandler
	DeleteQuestion      *command.DeleteQuestionHandler

	FileRequest    *command.FileRequestHandler
	ResolveRequest *command.ResolveRequestHandler
	AddReview      *command.AddReviewHandler

	ImportCourse *command.ImportCourseHandler
}

// Queries groups every query handler.
type Queries struct {
	CourseOutline *query.GetCourseOutlineHandler
	GradeQuiz     *query.GradeQuizHandler
}

// App holds the wired service. Close releases everything Build opened.
type App struct {
	Config *config.Config
	Logger *logger.Logger

	Repository   course.Repository
	DB           *postgres.Connection // nil with the in-memory repository
	Redis        *goredis.Client      // nil when Redis is disabled
	OutlineCache *redis.OutlineCache  // nil when Redis is disabled
	Bus          eventBus
	Dispatcher   *messaging.Dispatcher
	Notifier     *service.NotificationService
	Scheduler    *scheduler.Scheduler // nil when jobs are disabled

	Commands Commands
	Queries  Queries

	closers []func()
}

// Build connects to the configured backends and wires the handlers.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log}
	wired := false
	defer func() {
		if !wired {
			a.Close()
		}
	}()
	sl := log.Slog()

	// ─────────────────────────────────────────────────────────────────────────
	// Storage
	// ─────────────────────────────────────────────────────────────────────────
	if err := a.openRepository(ctx, sl); err != nil {
		return nil, err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Cache
	// ─────────────────────────────────────────────────────────────────────────
	if !cfg.Redis.Disabled {
		client, err := redis.NewClient(ctx, redisConfig(cfg.Redis))
		if err != nil {
			return nil, err
		}
		a.Redis = client
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.OutlineCache = redis.NewOutlineCache(redis.NewCache(client), cfg.Redis.OutlineTTL, sl)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Events
	// ─────────────────────────────────────────────────────────────────────────
	if err := a.openEventBus(sl); err != nil {
		return nil, err
	}

	a.Dispatcher = messaging.NewDispatcher(messaging.DispatcherConfig{
		Bus:                 a.Bus,
		WorkerPoolSize:      cfg.Events.Workers,
		Retry:               messaging.DefaultRetryConfig(),
		DeadLetterQueueSize: cfg.Events.QueueSize,
		Logger:              sl,
	})
	a.Dispatcher.Use(messaging.RecoveryMiddleware(sl))
	a.Dispatcher.Use(messaging.LoggingMiddleware(sl))
	a.closers = append(a.closers, a.Dispatcher.Stop)

	var sink service.NotificationSink = service.NewLogSink(sl)
	if a.Redis != nil {
		sink = service.NewRedisStreamSink(a.Redis, cfg.Events.NotifyStream, 0)
	}
	a.Notifier = service.NewNotificationService(sink, sl)

	var invalidator eventhandler.CacheInvalidator
	if a.OutlineCache != nil {
		invalidator = a.OutlineCache
	}
	if err := eventhandler.Register(a.Dispatcher,
		eventhandler.NewOnCoursePublishedHandler(a.Notifier, invalidator, cfg.Features, sl),
		eventhandler.NewOnCourseReviewedHandler(a.Notifier, invalidator, sl),
	); err != nil {
		return nil, err
	}
	if err := a.Dispatcher.Start(); err != nil {
		return nil, fmt.Errorf("start dispatcher: %w", err)
	}

	if err := a.buildScheduler(sl); err != nil {
		return nil, err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Handlers
	// ─────────────────────────────────────────────────────────────────────────
	a.wireHandlers(sl)

	log.Info("course hub wired",
		logger.Bool("postgres", a.DB != nil),
		logger.Bool("redis", a.Redis != nil),
		logger.String("events_mode", cfg.Events.Mode),
	)
	wired = true
	return a, nil
}

func (a *App) openRepository(ctx context.Context, sl *slog.Logger) error {
	cfg := a.Config
	if cfg.Database.URL == "" {
		a.Logger.Warn("DATABASE_URL not set, using in-memory repository")
		a.Repository = memory.NewCourseRepository()
		return nil
	}

	conn, err := postgres.NewConnection(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return err
	}
	a.DB = conn
	a.closers = append(a.closers, conn.Close)

	if cfg.Database.AutoMigrate {
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			return err
		}
		sl.Info("migrations applied")
	}
	a.Repository = postgres.NewCourseRepository(conn)
	return nil
}

func (a *App) openEventBus(sl *slog.Logger) error {
	cfg := a.Config.Events
	local := messaging.InMemoryEventBusConfig{
		AsyncMode:      cfg.Mode == config.EventsModeAsync,
		WorkerPoolSize: cfg.Workers,
		Logger:         sl,
		EnableMetrics:  true,
	}

	if cfg.Mode != config.EventsModeRedis {
		bus := messaging.NewInMemoryEventBus(local)
		a.Bus = bus
		a.closers = append(a.closers, func() { _ = bus.Close() })
		return nil
	}

	if a.Redis == nil {
		return errors.New("events mode redis requires Redis to be enabled")
	}
	hostname, _ := os.Hostname()
	bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
		Client:         messaging.NewGoRedisClient(a.Redis),
		ChannelName:    cfg.Channel,
		InstanceID:     fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		LocalBusConfig: local,
		Logger:         sl,
	})
	if err != nil {
		return fmt.Errorf("start redis event bus: %w", err)
	}
	a.Bus = bus
	a.closers = append(a.closers, func() { _ = bus.Close() })
	return nil
}

func (a *App) wireHandlers(sl *slog.Logger) {
	execCfg := command.ExecutorConfig{
		Repository:  a.Repository,
		Publisher:   a.Bus,
		MaxAttempts: a.Config.App.SaveMaxAttempts,
		Logger:      sl,
	}
	var outlines query.OutlineCache
	if a.OutlineCache != nil {
		execCfg.Cache = a.OutlineCache
		outlines = a.OutlineCache
	}
	exec := command.NewExecutor(execCfg)
	features := a.Config.Features

	a.Commands = Commands{
		CreateCourse:          command.NewCreateCourseHandler(exec),
		UpdateCourseInfo:      command.NewUpdateCourseInfoHandler(exec),
		ChangePrice:           command.NewChangePriceHandler(exec),
		AssignTeacher:         command.NewAssignTeacherHandler(exec),
		ChangeCourseLifecycle: command.NewChangeCourseLifecycleHandler(exec),

		AddSection:    command.NewAddSectionHandler(exec),
		UpdateSection: command.NewUpdateSectionHandler(exec),
		RemoveSection: command.NewRemoveSectionHandler(exec),
		AddLesson:     command.NewAddLessonHandler(exec),
		UpdateLesson:  command.NewUpdateLessonHandler(exec),
		RemoveLesson:  command.NewRemoveLessonHandler(exec),

		AddQuiz:             command.NewAddQuizHandler(exec),
		UpdateQuiz:          command.NewUpdateQuizHandler(exec),
		ChangeQuizLifecycle: command.NewChangeQuizLifecycleHandler(exec),
		AddQuestion:         command.NewAddQuestionHandler(exec),
		UpdateQuestion:      command.NewUpdateQuestionHandler(exec),
		DeleteQuestion:      command.NewDeleteQuestionHandler(exec),

		FileRequest:    command.NewFileRequestHandler(exec),
		ResolveRequest: command.NewResolveRequestHandler(exec),
		AddReview:      command.NewAddReviewHandler(exec, features),

		ImportCourse: command.NewImportCourseHandler(exec, a.Repository, features, sl),
	}
	a.Queries = Queries{
		CourseOutline: query.NewGetCourseOutlineHandler(a.Repository, outlines, features, sl),
		GradeQuiz:     query.NewGradeQuizHandler(a.Repository, sl),
	}
}

// buildScheduler registers the maintenance jobs. They only start with StartJobs.
func (a *App) buildScheduler(sl *slog.Logger) error {
	dlq := a.Dispatcher.DeadLetterQueue()
	if !a.Config.Jobs.Enabled || dlq == nil {
		return nil
	}

	schedule, err := scheduler.ParseSchedule(a.Config.Jobs.ReplaySchedule)
	if err != nil {
		return fmt.Errorf("JOBS_REPLAY_SCHEDULE: %w", err)
	}
	s := scheduler.New(scheduler.Config{Logger: sl})
	replay := jobs.NewReplayDeadLettersJob(dlq, a.Dispatcher, a.Config.Jobs.ReplayBatch, sl)
	if err := s.Register(replay, schedule); err != nil {
		return err
	}
	a.Scheduler = s
	return nil
}

// StartJobs starts the maintenance scheduler, if any. Close stops it.
func (a *App) StartJobs(ctx context.Context) error {
	if a.Scheduler == nil {
		return nil
	}
	if err := a.Scheduler.Start(ctx); err != nil {
		return err
	}
	a.closers = append(a.closers, func() { _ = a.Scheduler.Stop() })
	return nil
}

// OpsHandler builds the health and metrics handler for the wired backends.
func (a *App) OpsHandler() *handlers.OpsHandler {
	checker := handlers.NewCompositeHealthChecker(a.Config.App.Version)
	ops := handlers.NewOpsHandler(checker)

	if a.DB != nil {
		checker.AddCheck("postgres", handlers.NewDatabaseCheck(a.DB))
	}
	if a.Redis != nil {
		checker.AddCheck("redis", handlers.NewCacheCheck(redisPinger{a.Redis}))
	}
	checker.AddCheck("event_bus", handlers.NewEventBusCheck(a.Bus))
	if dlq := a.Dispatcher.DeadLetterQueue(); dlq != nil {
		limit := a.Config.Events.QueueSize / 2
		checker.AddCheck("dead_letters", handlers.NewDeadLetterCheck(dlq, limit))
	}

	if m := a.Bus.Metrics(); m != nil {
		ops.AddMetrics("event_bus", func() any { return m.Snapshot() })
	}
	ops.AddMetrics("dispatcher", func() any { return a.Dispatcher.Metrics().Snapshot() })
	ops.AddMetrics("notifier", func() any { return a.Notifier.Breaker().Snapshot() })
	if a.Scheduler != nil {
		ops.AddMetrics("jobs", func() any { return a.Scheduler.Jobs() })
	}
	if a.OutlineCache != nil {
		ops.AddMetrics("outline_cache", func() any { return a.OutlineCache.Breaker().Snapshot() })
	}
	if a.DB != nil {
		ops.AddMetrics("postgres", func() any {
			status, err := a.DB.Health(context.Background())
			if err != nil {
				return map[string]string{"error": err.Error()}
			}
			return status
		})
	}
	return ops
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

type redisPinger struct{ client *goredis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

func redisConfig(c config.RedisConfig) redis.Config {
	return redis.Config{
		URL:          c.URL,
		Host:         c.Host,
		Port:         c.Port,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		MaxRetries:   3,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}
