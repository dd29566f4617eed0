package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/jackc/pgx/v5/pgxpool"

	migrations "github.com/coachbotai/coachbot/db"
	"github.com/coachbotai/coachbot/internal/aiconfig"
	"github.com/coachbotai/coachbot/internal/analytics"
	"github.com/coachbotai/coachbot/internal/completion"
	"github.com/coachbotai/coachbot/internal/config"
	"github.com/coachbotai/coachbot/internal/contacts"
	"github.com/coachbotai/coachbot/internal/db"
	"github.com/coachbotai/coachbot/internal/delivery"
	"github.com/coachbotai/coachbot/internal/gateway"
	"github.com/coachbotai/coachbot/internal/handlers"
	"github.com/coachbotai/coachbot/internal/logger"
	"github.com/coachbotai/coachbot/internal/messages"
	"github.com/coachbotai/coachbot/internal/orchestrator"
	"github.com/coachbotai/coachbot/internal/responder"
	"github.com/coachbotai/coachbot/internal/server"
	"github.com/coachbotai/coachbot/internal/summaries"
	"github.com/coachbotai/coachbot/internal/training"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,

			provideCompletionClient,
			provideTwilioSender,

			contacts.NewService,
			messages.NewService,
			provideAIConfigService,
			training.NewService,
			summaries.NewService,
			analytics.NewService,

			provideResponder,
			provideScheduler,
			provideOrchestrator,

			provideServerHandler(provideHealthHandler),
			provideServerHandler(provideWebhookHandler),
			provideServerHandler(handlers.NewContactsHandler),
			provideServerHandler(provideMessagesHandler),
			provideServerHandler(handlers.NewAIConfigHandler),
			provideServerHandler(provideTrainingHandler),
			provideServerHandler(provideBroadcastHandler),
			provideServerHandler(handlers.NewSummariesHandler),
			provideServerHandler(handlers.NewAnalyticsHandler),
			provideServerHandler(provideTestAIHandler),

			provideServer,
		),
		fx.Invoke(
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func runMigrate(args []string) error {
	cfg, err := provideConfig()
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	command := "up"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}
	sqlFS, err := fs.Sub(migrations.MigrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	return db.RunMigrate(logger.L, cfg.Postgres, sqlFS, command, args)
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

func provideCompletionClient(log *slog.Logger, cfg config.Config) (*completion.Client, error) {
	return completion.NewClient(log, cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey,
		time.Duration(cfg.OpenAI.TimeoutSeconds)*time.Second)
}

func provideTwilioSender(log *slog.Logger, cfg config.Config) (*gateway.TwilioClient, error) {
	return gateway.NewTwilioClient(log, cfg.Twilio.AccountSID, cfg.Twilio.AuthToken,
		cfg.Twilio.WhatsAppNumber, time.Duration(cfg.Twilio.TimeoutSeconds)*time.Second)
}

func provideAIConfigService(log *slog.Logger, pool *pgxpool.Pool, cfg config.Config) *aiconfig.Service {
	return aiconfig.NewService(log, pool, aiconfig.Params{
		MaxTokens:   cfg.Agent.MaxTokens,
		Temperature: cfg.Agent.Temperature,
		DelayMin:    cfg.Agent.DelayMin,
		DelayMax:    cfg.Agent.DelayMax,
	})
}

func provideResponder(log *slog.Logger, client *completion.Client, configService *aiconfig.Service, trainingService *training.Service, cfg config.Config) *responder.Responder {
	return responder.New(log, client, configService, trainingService,
		cfg.Agent.Persona, cfg.OpenAI.ChatModel, cfg.OpenAI.SummaryModel)
}

func provideScheduler(log *slog.Logger, sender *gateway.TwilioClient, messageService *messages.Service, contactService *contacts.Service) *delivery.Scheduler {
	return delivery.NewScheduler(log, sender, messageService, contactService)
}

func provideOrchestrator(lc fx.Lifecycle, log *slog.Logger, contactService *contacts.Service, messageService *messages.Service, rsp *responder.Responder, scheduler *delivery.Scheduler, summaryService *summaries.Service, cfg config.Config) *orchestrator.Orchestrator {
	o := orchestrator.New(log, contactService, messageService, rsp, scheduler,
		summaryService, cfg.Agent.Workers, cfg.Agent.QueueSize)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			o.Shutdown()
			return nil
		},
	})
	return o
}

func provideHealthHandler() *handlers.HealthHandler {
	return handlers.NewHealthHandler()
}

func provideWebhookHandler(log *slog.Logger, o *orchestrator.Orchestrator) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(log, o)
}

func provideMessagesHandler(messageService *messages.Service, contactService *contacts.Service, scheduler *delivery.Scheduler) *handlers.MessagesHandler {
	return handlers.NewMessagesHandler(messageService, contactService, scheduler)
}

func provideTrainingHandler(trainingService *training.Service, rsp *responder.Responder) *handlers.TrainingHandler {
	return handlers.NewTrainingHandler(trainingService, rsp)
}

func provideBroadcastHandler(scheduler *delivery.Scheduler) *handlers.BroadcastHandler {
	return handlers.NewBroadcastHandler(scheduler)
}

func provideTestAIHandler(rsp *responder.Responder, contactService *contacts.Service, messageService *messages.Service) *handlers.TestAIHandler {
	return handlers.NewTestAIHandler(rsp, contactService, messageService)
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.ServerHandlers...)
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil { // block until server is stopped
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
