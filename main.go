package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"csrdesk/cache"
	"csrdesk/config"
	"csrdesk/database"
	"csrdesk/loader"
	"csrdesk/logging"
	"csrdesk/metrics"
	"csrdesk/model"
	"csrdesk/notify"
	"csrdesk/resources"
	"csrdesk/view"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

const shutdownTimeout = 10 * time.Second

var configPath string

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "csrdesk",
		Short:        "Customer service desk backend: records, reports and notifications",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	root.AddCommand(newServeCmd(), newImportCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the notification poller",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func newImportCmd() *cobra.Command {
	var resource string
	cmd := &cobra.Command{
		Use:   "import --resource <key> <file.csv>",
		Short: "Load a CSV file into a resource collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer app.close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("could not open file %s: %w", args[0], err)
			}
			defer f.Close()

			n, err := app.importer.Import(cmd.Context(), resource, f)
			if err != nil {
				app.logger.Error("Import failed", zap.String("resource", resource), zap.Error(err))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d %s records\n", n, resource)
			return nil
		},
	}
	cmd.Flags().StringVar(&resource, "resource", "", "resource key, e.g. tickets or users")
	cmd.MarkFlagRequired("resource")
	return cmd
}

// application holds what both commands need.
type application struct {
	cfg       config.Config
	logger    *zap.Logger
	db        *sqlx.DB
	store     *database.Store
	collector *metrics.Collector
	importer  *loader.Importer
}

func bootstrap(ctx context.Context) (*application, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Environment, cfg.Logging)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)

	logger.Info("Connecting to database...", zap.String("path", cfg.Database.Path))
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("Database connection successful.")

	store := database.NewStore(db)
	collector := metrics.NewCollector()
	importer := loader.NewImporter(store, logger)
	importer.OnImported = collector.RecordsImported

	if err := loader.InitDatabase(ctx, db, importer, cfg.Database.SeedDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("database initialization failed: %w", err)
	}
	logger.Info("Database initialization complete.")

	return &application{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		store:     store,
		collector: collector,
		importer:  importer,
	}, nil
}

func (a *application) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	a.logger.Sync()
}

// ackStore returns the Redis store when enabled, else the in-process one.
func (a *application) ackStore(ctx context.Context) (notify.AckStore, func()) {
	if !a.cfg.Redis.Enabled {
		return notify.NewMemoryAckStore(a.cfg.Redis.AckTTL), func() {}
	}
	client, err := cache.Connect(ctx, a.cfg.Redis)
	if err != nil {
		a.logger.Warn("Redis unavailable, acknowledgements will not survive restarts", zap.Error(err))
		return notify.NewMemoryAckStore(a.cfg.Redis.AckTTL), func() {}
	}
	a.logger.Info("Acknowledgements stored in Redis", zap.String("addr", a.cfg.Redis.Addr))
	return cache.NewRedisAckStore(client, a.cfg.Redis.AckTTL), func() { client.Close() }
}

func (a *application) engine() *view.Engine {
	tag, err := language.Parse(a.cfg.View.Locale)
	if err != nil {
		a.logger.Warn("invalid locale, using English", zap.String("locale", a.cfg.View.Locale), zap.Error(err))
		tag = language.English
	}
	return view.NewEngine(view.WithLocation(a.cfg.Location()), view.WithLanguage(tag))
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.close()
	logger := app.logger

	acks, closeAcks := app.ackStore(ctx)
	defer closeAcks()

	src := resources.NewNotificationSource(app.store, notify.Rules)
	feed := notify.NewFeed(notify.Rules, acks)
	poller := notify.NewPoller(src, feed, logger,
		notify.WithObserver(app.collector),
		notify.WithIdleTimeout(app.cfg.Notification.IdleTimeout),
		notify.WithIntervals(map[model.SourceType]time.Duration{
			model.SourceProgress: app.cfg.Notification.ProgressInterval,
			model.SourceTracking: app.cfg.Notification.TrackingInterval,
			model.SourceWrapUp:   app.cfg.Notification.WrapUpInterval,
		}))
	if err := poller.Start(ctx); err != nil {
		return err
	}
	defer poller.Stop()

	router := mux.NewRouter()
	SetupRoutes(router, Services{
		Store:     app.store,
		Engine:    app.engine(),
		Importer:  app.importer,
		Feed:      feed,
		Poller:    poller,
		Source:    src,
		Collector: app.collector,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", app.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  app.cfg.Server.ReadTimeout,
		WriteTimeout: app.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", "http://localhost"+srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server start error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
