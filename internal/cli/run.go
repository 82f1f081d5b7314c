package cli

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"paper-trader/internal/engine"
)

func addRunCommand(rootCmd *cobra.Command, app *App) {
	var interval time.Duration
	var marketHoursOnly bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the execution engine",
		Long: `Run the execution engine. Every cycle it fetches quotes for all
tracked symbols, fills positions whose entry was touched and closes
holdings whose stop-loss or target was hit. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.Options{
				PollInterval:    app.Config.Engine.PollInterval,
				FeedTimeout:     app.Config.Engine.FeedTimeout,
				MarketHoursOnly: app.Config.Engine.MarketHoursOnly,
			}
			if cmd.Flags().Changed("interval") {
				opts.PollInterval = interval
			}
			if cmd.Flags().Changed("market-hours") {
				opts.MarketHoursOnly = marketHoursOnly
			}

			e := engine.New(app.Store, app.Feed, app.Notifier, app.Logger, opts)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			NewOutput(cmd).Printf("Engine running (poll every %s). Ctrl-C to stop.\n", opts.PollInterval)
			if err := e.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "poll interval")
	cmd.Flags().BoolVar(&marketHoursOnly, "market-hours", false, "only evaluate during NSE market hours")
	rootCmd.AddCommand(cmd)
}
