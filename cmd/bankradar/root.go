package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/bankradar/internal/adapter"
	"github.com/amishk599/bankradar/internal/aggregator"
	"github.com/amishk599/bankradar/internal/config"
	"github.com/amishk599/bankradar/internal/dispatcher"
	"github.com/amishk599/bankradar/internal/model"
	"github.com/amishk599/bankradar/internal/notifier"
	"github.com/amishk599/bankradar/internal/pipeline"
	"github.com/amishk599/bankradar/internal/retry"
	"github.com/amishk599/bankradar/internal/store"
	"github.com/amishk599/bankradar/internal/store/migrations"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "bankradar",
	Short: "Bank job radar: new analyst and intern postings, delivered",
	Long:  "Bank Radar scrapes bank career sites, remembers when each posting was first seen, and notifies subscribers of fresh matches.",
	// No subcommand runs the server.
	RunE:         runStart,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: "+config.EnvPath+" env var or ./"+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// loadConfig reads the resolved config file. A missing file at the default
// location falls back to built-in defaults.
func loadConfig(flagPath string) (*config.Config, error) {
	path := config.ResolvePath(flagPath)
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && flagPath == "" && os.Getenv(config.EnvPath) == "" {
		return config.Default(), nil
	}
	return cfg, err
}

func newHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.HTTPTimeout}
}

// buildSources registers the enabled sources, each behind retry.
func buildSources(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) ([]model.Source, error) {
	all := adapter.Registry(adapter.Options{
		Client:    httpClient,
		PageDelay: cfg.Fetch.PageDelay,
		MaxPages:  cfg.Fetch.MaxPages,
	})
	selected, err := adapter.Select(all, cfg.EnabledSourceKeys())
	if err != nil {
		return nil, fmt.Errorf("sources: %w", err)
	}

	sources := make([]model.Source, 0, len(selected))
	for _, s := range selected {
		sources = append(sources, retry.NewSource(s, cfg.Fetch.Retries, cfg.Fetch.RetryBaseDelay, logger))
	}
	logger.Info("sources registered", "keys", adapter.Keys(sources))
	return sources, nil
}

// backend is what each SQL store provides.
type backend interface {
	model.FreshnessStore
	model.NotificationQueue
	model.Ledger
	model.SubscriberDirectory
	model.DigestLog
	Close() error
}

// storage is the wired persistence layer for one process.
type storage struct {
	freshness model.FreshnessStore
	queue     model.NotificationQueue
	ledger    model.Ledger
	directory model.SubscriberDirectory
	digestLog model.DigestLog
	locker    model.Locker
	closers   []func() error
}

func (s *storage) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

func openBackend(ctx context.Context, cfg *config.Config) (backend, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		return store.NewPostgresStore(ctx, cfg.Storage.PostgresURL)
	default:
		return store.NewSQLiteStore(cfg.Storage.SQLitePath)
	}
}

// openStorage wires the SQL backend and, when configured, Redis for the run
// lease and first-seen ledger.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	migrations.SetLogger(logger)
	db, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	st := &storage{
		freshness: db,
		queue:     db,
		ledger:    db,
		directory: db,
		digestLog: db,
		closers:   []func() error{db.Close},
	}
	logger.Info("store opened", "driver", cfg.Storage.Driver)

	if cfg.Storage.RedisURL == "" {
		return st, nil
	}
	rdb, err := store.NewRedisClient(ctx, cfg.Storage.RedisURL)
	if err != nil {
		st.Close()
		return nil, err
	}
	st.closers = append(st.closers, rdb.Close)
	st.locker = store.NewRedisLease(rdb)

	if cfg.Storage.Freshness == config.FreshnessRedis {
		rf := store.NewRedisFreshness(rdb)
		st.freshness = rf
		st.ledger = store.NewSplitLedger(rf, db)
		logger.Info("first-seen ledger in redis", "key", store.FirstSeenKey)
	}
	return st, nil
}

// dryRunStorage records nothing and queues nothing, but still reads real
// subscribers so matches can be logged.
func dryRunStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	nop := store.NewNopStore()
	st.freshness = nop
	st.queue = nop
	st.ledger = nop
	st.locker = nil
	return st, nil
}

// buildChannels picks delivery channels from the configured credentials.
// Without any credentials notifications are only logged.
func buildChannels(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) ([]model.Channel, dispatcher.NothingFoundSender) {
	n := cfg.Notification
	brand := notifier.Brand{Name: n.BrandName, SiteURL: n.SiteURL}

	var (
		channels     []model.Channel
		nothingFound dispatcher.NothingFoundSender
	)
	if n.ResendAPIKey != "" {
		email := notifier.NewEmailChannel(notifier.EmailConfig{
			APIKey:  n.ResendAPIKey,
			From:    n.From,
			BaseURL: n.ResendBaseURL,
		}, brand, httpClient, logger)
		channels = append(channels, email)
		nothingFound = email
	}
	sms := notifier.SMSConfig{
		AccountSID: n.TwilioSID,
		AuthToken:  n.TwilioToken,
		From:       n.TwilioFrom,
		BaseURL:    n.TwilioBaseURL,
	}
	if sms.Configured() {
		channels = append(channels, notifier.NewSMSChannel(sms, brand, httpClient, logger))
	}
	if len(channels) == 0 {
		logger.Info("no delivery credentials configured, logging notifications")
		lc := notifier.NewLogChannel(logger)
		channels = append(channels, lc)
		nothingFound = lc
	}
	return channels, nothingFound
}

func buildReporter(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) pipeline.Reporter {
	if cfg.Notification.SlackWebhookURL == "" {
		return nil
	}
	logger.Info("run summaries go to slack")
	return notifier.NewSlackReporter(cfg.Notification.SlackWebhookURL, httpClient, logger)
}

func buildPipeline(cfg *config.Config, sources []model.Source, st *storage, reporter pipeline.Reporter, logger *slog.Logger) *pipeline.Pipeline {
	return pipeline.New(pipeline.Deps{
		Aggregator: aggregator.New(sources, logger),
		Ledger:     st.ledger,
		Freshness:  st.freshness,
		Directory:  st.directory,
		Locker:     st.locker,
		Reporter:   reporter,
	}, pipeline.Config{
		Timeout:   cfg.RunTimeout,
		Retention: cfg.Retention,
		LeaseTTL:  cfg.Storage.LeaseTTL,
	}, logger)
}

func buildDispatcher(cfg *config.Config, st *storage, httpClient *http.Client, logger *slog.Logger) *dispatcher.Dispatcher {
	channels, nothingFound := buildChannels(cfg, httpClient, logger)
	return dispatcher.New(dispatcher.Config{
		Queue:        st.queue,
		Directory:    st.directory,
		DigestLog:    st.digestLog,
		Channels:     channels,
		NothingFound: nothingFound,
		Policy:       dispatcher.NothingFoundPolicy{Hour: cfg.Notification.NothingFoundHour},
	}, logger)
}
