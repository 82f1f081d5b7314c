package cli

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"paper-trader/internal/store"
	"paper-trader/pkg/utils"
)

func addHistoryCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newExportCmd(app))
}

func historyFilter(cmd *cobra.Command) (store.TradeFilter, error) {
	var filter store.TradeFilter
	filter.Symbol, _ = cmd.Flags().GetString("symbol")
	filter.Limit, _ = cmd.Flags().GetInt("limit")

	if today, _ := cmd.Flags().GetBool("today"); today {
		filter.StartDate = utils.StartOfTradingDay(time.Now())
	}
	if from, _ := cmd.Flags().GetString("from"); from != "" {
		t, err := time.ParseInLocation("2006-01-02", from, utils.IndiaLocation)
		if err != nil {
			return filter, fmt.Errorf("invalid --from date: %w", err)
		}
		filter.StartDate = t
	}
	if to, _ := cmd.Flags().GetString("to"); to != "" {
		t, err := time.ParseInLocation("2006-01-02", to, utils.IndiaLocation)
		if err != nil {
			return filter, fmt.Errorf("invalid --to date: %w", err)
		}
		filter.EndDate = t.AddDate(0, 0, 1)
	}
	return filter, nil
}

func addHistoryFlags(cmd *cobra.Command) {
	cmd.Flags().String("symbol", "", "filter by symbol")
	cmd.Flags().Int("limit", 0, "maximum number of trades")
	cmd.Flags().Bool("today", false, "only today's trades")
	cmd.Flags().String("from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "end date (YYYY-MM-DD)")
}

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show closed trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := historyFilter(cmd)
			if err != nil {
				return err
			}
			trades, err := app.Service.History(cmd.Context(), app.owner(cmd), filter)
			if err != nil {
				return err
			}

			out := NewOutput(cmd)
			if out.IsJSON() {
				return out.JSON(trades)
			}
			if len(trades) == 0 {
				out.Println("No trades.")
				return nil
			}

			out.Header("📒 Trade History")
			out.Printf("%-11s %-12s %6s %12s %12s %-10s %14s\n",
				"Date", "Symbol", "Qty", "Entry", "Exit", "Reason", "P&L")

			var total float64
			for _, tr := range trades {
				total += tr.PnL
				out.Printf("%-11s %-12s %6d %12s %12s %-10s %14s\n",
					tr.ExitTime.In(utils.IndiaLocation).Format("02-Jan-2006"),
					tr.Symbol,
					tr.Quantity,
					utils.FormatIndianCurrency(tr.EntryPrice),
					utils.FormatIndianCurrency(tr.ExitPrice),
					string(tr.Reason),
					PnLString(tr.PnL, utils.FormatPnL(tr.PnL)))
			}
			out.Println()
			out.Printf("Total P&L: %s\n", PnLString(total, utils.FormatPnL(total)))
			return nil
		},
	}
	addHistoryFlags(cmd)
	return cmd
}

func newExportCmd(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export closed trades to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := historyFilter(cmd)
			if err != nil {
				return err
			}
			trades, err := app.Service.History(cmd.Context(), app.owner(cmd), filter)
			if err != nil {
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()

			w := csv.NewWriter(f)
			header := []string{"id", "symbol", "quantity", "entry_price", "exit_price", "pnl", "reason", "entry_time", "exit_time", "balance_after"}
			if err := w.Write(header); err != nil {
				return err
			}
			for _, tr := range trades {
				row := []string{
					tr.ID,
					tr.Symbol,
					strconv.Itoa(tr.Quantity),
					strconv.FormatFloat(tr.EntryPrice, 'f', 2, 64),
					strconv.FormatFloat(tr.ExitPrice, 'f', 2, 64),
					strconv.FormatFloat(tr.PnL, 'f', 2, 64),
					string(tr.Reason),
					tr.EntryTime.Format(time.RFC3339),
					tr.ExitTime.Format(time.RFC3339),
					strconv.FormatFloat(tr.BalanceAfter, 'f', 2, 64),
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
			w.Flush()
			if err := w.Error(); err != nil {
				return err
			}

			NewOutput(cmd).Success("✓ Exported %d trades to %s", len(trades), output)
			return nil
		},
	}

	addHistoryFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "trades.csv", "output file")
	return cmd
}
