package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"paper-trader/internal/config"
	"paper-trader/internal/feed"
	"paper-trader/internal/models"
	"paper-trader/internal/notify"
	"paper-trader/internal/store"
	"paper-trader/internal/trading"
)

// Version information
const Version = "0.1.0"

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.Store
	Feed     feed.PriceFeed
	Service  *trading.Service
	Notifier notify.Notifier
}

// Close releases the application's resources.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// owner resolves the acting owner from the flag, falling back to the
// configured default.
func (a *App) owner(cmd *cobra.Command) string {
	owner, _ := cmd.Flags().GetString("owner")
	if owner != "" {
		return owner
	}
	return a.Config.Account.DefaultOwner
}

// NewRootCmd creates the root command and wires the application together.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) (*cobra.Command, *App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	var dataStore store.Store
	var err error
	if cfg.Store.InMemory {
		dataStore = store.NewMemoryStore(cfg.Account.DefaultBalance)
	} else {
		dataStore, err = store.NewSQLiteStore(cfg.Store.Path, cfg.Account.DefaultBalance)
		if err != nil {
			return nil, nil, err
		}
	}
	app.Store = dataStore

	feedOpts := []feed.YahooOption{
		feed.WithExchange(models.Exchange(cfg.Feed.Exchange)),
		feed.WithTimeout(cfg.Engine.FeedTimeout),
	}
	if cfg.Feed.BaseURL != "" {
		feedOpts = append(feedOpts, feed.WithBaseURL(cfg.Feed.BaseURL))
	}
	app.Feed = feed.NewYahooFeed(feedOpts...)

	if cfg.Notifications.Enabled {
		app.Notifier = notify.NewMultiNotifier(&cfg.Notifications)
	}

	app.Service = trading.NewService(app.Store, app.Feed, logger)

	rootCmd := &cobra.Command{
		Use:     "papertrade",
		Short:   "Paper trading engine for the Indian stock market",
		Version: Version,
		Long: `papertrade tracks buy orders against live quotes and simulates their
execution: a position fills when the market touches its entry price and
closes automatically at its stop-loss or target. All cash and trades are
simulated; no real orders are placed.

Use 'papertrade run' to start the execution engine.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("owner", "", "account owner (default from config)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addPositionCommands(rootCmd, app)
	addAccountCommands(rootCmd, app)
	addHistoryCommands(rootCmd, app)
	addRunCommand(rootCmd, app)

	return rootCmd, app, nil
}
