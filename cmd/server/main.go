package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/simhastha_samwad/backend/internal/ai"
	"github.com/simhastha_samwad/backend/internal/config"
	"github.com/simhastha_samwad/backend/internal/db"
	"github.com/simhastha_samwad/backend/internal/gateway"
	"github.com/simhastha_samwad/backend/internal/geocode"
	httpapi "github.com/simhastha_samwad/backend/internal/http"
	"github.com/simhastha_samwad/backend/internal/jobs"
	"github.com/simhastha_samwad/backend/internal/realtime"
	"github.com/simhastha_samwad/backend/internal/service"
	"github.com/simhastha_samwad/backend/internal/tools"
)

func main() {
	root := &cobra.Command{
		Use:           "samwad",
		Short:         "Simhastha Samwad message relay",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serve := serveCmd()
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	root.AddCommand(serve, migrateCmd())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return log.Level(level).With().Str("service", "samwad-relay").Logger()
}

func serveCmd() *cobra.Command {
	var autoMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, webhook and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(autoMigrate)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply pending migrations before starting")
	return cmd
}

func runServe(autoMigrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if autoMigrate {
		v, err := db.MigrateUp(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		logger.Info().Uint("version", v).Msg("migrations applied")
	}

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	settings := config.NewProvider()

	var completer ai.Completer
	if cfg.AIBaseURL == "" {
		completer = ai.MockCompleter{}
		logger.Info().Msg("using mock AI completer")
	} else {
		completer = &ai.OpenAICompatClient{
			BaseURL:     cfg.AIBaseURL,
			Model:       cfg.AIModel,
			APIKey:      cfg.AIAPIKey,
			Temperature: cfg.AITemperature,
			MaxTokens:   cfg.AIMaxTokens,
			Timeout:     cfg.AITimeout,
			CacheTTL:    10 * time.Minute,
		}
	}
	classifier := ai.Classifier{LLM: completer, Model: cfg.AIModel}
	generator := ai.Generator{
		LLM:         completer,
		Model:       cfg.AIModel,
		AppName:     cfg.AppName,
		Temperature: cfg.AITemperature,
		MaxTokens:   cfg.AIMaxTokens,
	}

	var gw gateway.Gateway
	if cfg.SamwadSendURL == "" {
		gw = gateway.LogOnly{Logger: logger}
		logger.Info().Msg("no gateway configured, outbound messages are only logged")
	} else {
		gw = &gateway.Samwad{
			SendURL:            cfg.SamwadSendURL,
			LocationURL:        cfg.SamwadLocationURL,
			LocationRequestURL: cfg.SamwadLocationRequestURL,
			Token:              cfg.SamwadToken,
			Timeout:            cfg.GatewayTimeout,
		}
	}

	var relay realtime.Relay
	if cfg.RedisURL != "" {
		rr, err := realtime.NewRedisRelay(cfg.RedisURL)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = rr.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, realtime fan-out stays local")
			_ = rr.Close()
		} else {
			relay = rr
			defer rr.Close()
		}
	}
	hub := realtime.NewHub(logger, relay, config.SplitCSV(cfg.CORSAllowed))
	hubCtx, stopHub := context.WithCancel(ctx)
	go hub.Run(hubCtx)

	pool := jobs.NewPool(cfg.WorkerCount, cfg.WorkerQueueSize, logger)

	contextResolver := &service.ContextResolver{Repo: store, Settings: settings, Logger: logger}
	intents := &service.IntentResolver{Classifier: classifier, Logger: logger}
	actions := &service.Actions{
		Repo:      store,
		Gateway:   gw,
		Events:    hub,
		Settings:  settings,
		Context:   contextResolver,
		Intents:   intents,
		Generator: generator,
		Geocoder: &geocode.NominatimGeocoder{
			BaseURL:      cfg.GeocoderURL,
			UserAgent:    cfg.GeocoderUserAgent,
			CountryCodes: cfg.GeocoderCountry,
		},
		City:        cfg.CityDefault,
		MediaClient: &http.Client{Timeout: cfg.GatewayTimeout},
		Logger:      logger,
	}
	composer := &service.ReplyComposer{Context: contextResolver, Actions: actions, Generator: generator, Logger: logger}
	responder := &service.AutoResponder{
		Actions:  actions,
		Composer: composer,
		Intents:  intents,
		Jobs:     pool,
		Settings: settings,
		Logger:   logger,
	}
	dispatcher := &tools.Dispatcher{Backend: actions}
	gate := &tools.Gate{Store: store, Executor: dispatcher, Settings: settings, Events: hub, Logger: logger}

	router := httpapi.Router(cfg, httpapi.Deps{
		Store:     store,
		Inbound:   responder,
		Messenger: actions,
		Tools:     dispatcher,
		Gate:      gate,
		Hub:       hub,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	if err := pool.Stop(ctxShutdown); err != nil {
		logger.Warn().Err(err).Msg("background jobs not drained")
	}
	stopHub()
	logger.Info().Msg("server stopped")
	return nil
}
