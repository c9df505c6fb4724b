package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	cli "github.com/urfave/cli/v3"

	"github.com/aviary-sh/aviary/pkg/cmd"
	"github.com/aviary-sh/aviary/pkg/log"
	"github.com/aviary-sh/aviary/pkg/otelhelper"
	"github.com/aviary-sh/aviary/pkg/repository"
	"github.com/aviary-sh/aviary/pkg/scheduler"
	"github.com/aviary-sh/aviary/pkg/triggers/queue"
	"github.com/aviary-sh/aviary/pkg/web"
	"github.com/aviary-sh/aviary/pkg/workflow"
)

func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start the schedulers, the monitor, and the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL (sqlite://path or file://dir)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (memory, kafka)",
				Value:   "memory",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "HTTP API port",
				Value:   8085,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.IntFlag{
				Name:    "tick-seconds",
				Usage:   "Scheduler tick interval in seconds",
				Value:   60,
				Sources: cli.EnvVars("TICK_SECONDS"),
			},
			&cli.IntFlag{
				Name:    "retention-days",
				Usage:   "How many days of run logs and alerts to keep",
				Value:   30,
				Sources: cli.EnvVars("RETENTION_DAYS"),
			},
			&cli.StringFlag{
				Name:    "trigger-queue",
				Usage:   "Redis queue for event-triggered workflows (disabled when empty)",
				Sources: cli.EnvVars("TRIGGER_QUEUE"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the trigger queue",
				Value:   "localhost:6379",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("aviary")

	logger.InfoContext(ctx, "Initializing Aviary")

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	tracer, err := otelhelper.NewTracer(ctx, "aviary")
	if err != nil {
		return err
	}

	repo := repository.NewRepository(persistence)
	executor := newLogExecutor(logger)
	notifier := newLogNotifier(logger)

	runner := workflow.NewRunner(repo, executor, notifier, eventBus, tracer, logger)

	tickInterval := time.Duration(command.Int("tick-seconds")) * time.Second
	retention := time.Duration(command.Int("retention-days")) * 24 * time.Hour

	tasks := scheduler.NewTaskScheduler(repo, executor, eventBus, tracer, logger)
	tasks.SetTickInterval(tickInterval)
	tasks.SetRetention(retention)

	workflows := scheduler.NewWorkflowScheduler(repo, runner, logger)
	workflows.SetTickInterval(tickInterval)

	monitor := scheduler.NewMonitor(repo, executor, notifier, eventBus, logger, scheduler.DefaultMonitorConfig())

	if err := tasks.Start(ctx); err != nil {
		return err
	}

	if err := workflows.Start(ctx); err != nil {
		return err
	}

	if err := monitor.Start(ctx); err != nil {
		return err
	}

	var trigger *queue.Trigger

	if queueName := command.String("trigger-queue"); queueName != "" {
		trigger, err = queue.NewTrigger(ctx, map[string]any{
			"queue": queueName,
			"connection": map[string]any{
				"addr": command.String("redis-addr"),
			},
		}, repo, workflows.RunNow, logger)
		if err != nil {
			return err
		}

		if err := trigger.Start(ctx); err != nil {
			return err
		}
	}

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	handlers := web.NewAPIHandlers(repo, workflows, monitor)
	handlers.Register(app)

	go func() {
		addr := ":" + strconv.Itoa(command.Int("port"))
		if err := app.Listen(addr); err != nil {
			logger.ErrorContext(ctx, "HTTP server stopped", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.InfoContext(ctx, "Shutting down")

	if trigger != nil {
		if err := trigger.Stop(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to stop queue trigger", "error", err)
		}
	}

	if err := monitor.Stop(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to stop monitor", "error", err)
	}

	if err := workflows.Stop(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to stop workflow scheduler", "error", err)
	}

	if err := tasks.Stop(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to stop task scheduler", "error", err)
	}

	return app.Shutdown()
}
