package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"paper-trader/pkg/utils"
)

func addAccountCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newBalanceCmd(app))
	rootCmd.AddCommand(newPortfolioCmd(app))
}

func newBalanceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the paper cash balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			balance, err := app.Service.GetBalance(cmd.Context(), app.owner(cmd))
			if err != nil {
				return err
			}

			out := NewOutput(cmd)
			if out.IsJSON() {
				return out.JSON(map[string]interface{}{"owner": app.owner(cmd), "balance": balance})
			}
			out.Printf("Balance: %s\n", utils.FormatIndianCurrency(balance))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <amount>",
		Short: "Override the paper cash balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return err
			}
			if err := app.Service.SetBalance(cmd.Context(), app.owner(cmd), amount); err != nil {
				return err
			}
			NewOutput(cmd).Success("✓ Balance set to %s", utils.FormatIndianCurrency(amount))
			return nil
		},
	})

	return cmd
}

func newPortfolioCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio",
		Short: "Show the account snapshot with live valuations",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.Service.GetPortfolio(cmd.Context(), app.owner(cmd))
			if err != nil {
				return err
			}

			out := NewOutput(cmd)
			if out.IsJSON() {
				return out.JSON(p)
			}

			out.Header("💼 Portfolio")
			out.Printf("Cash:          %s\n", utils.FormatIndianCurrency(p.Cash))

			if len(p.Holdings) > 0 {
				out.Println()
				out.Printf("%-12s %8s %12s %12s %12s %14s\n",
					"Symbol", "Qty", "Buy Price", "LTP", "Value", "P&L")
				for _, h := range p.Holdings {
					pnl := utils.FormatPnL(h.UnrealizedPnL)
					out.Printf("%-12s %8d %12s %12s %12s %14s\n",
						h.Position.Symbol,
						h.Position.Quantity,
						utils.FormatIndianCurrency(h.Position.FillPrice),
						utils.FormatIndianCurrency(h.LTP),
						utils.FormatIndianCurrency(h.CurrentValue),
						PnLString(h.UnrealizedPnL, pnl))
				}
				out.Println()
				out.Printf("Invested:      %s\n", utils.FormatIndianCurrency(p.InvestedAmount))
				out.Printf("Current Value: %s\n", utils.FormatIndianCurrency(p.CurrentValue))
				out.Printf("Unrealized:    %s\n", PnLString(p.UnrealizedPnL, utils.FormatPnL(p.UnrealizedPnL)))
			}

			if len(p.Tracking) > 0 {
				out.Println()
				out.Printf("Tracking: ")
				for i, pos := range p.Tracking {
					if i > 0 {
						out.Printf(", ")
					}
					out.Printf("%s @ %s", pos.Symbol, utils.FormatIndianCurrency(pos.EntryPrice))
				}
				out.Println()
			}

			if len(p.RecentClosed) > 0 {
				out.Println()
				out.Printf("Recent trades:\n")
				for _, tr := range p.RecentClosed {
					out.Printf("  %-12s %s %s\n",
						tr.Symbol, tr.Reason, PnLString(tr.PnL, utils.FormatPnL(tr.PnL)))
				}
			}

			out.Println()
			out.Printf("Today's P&L:   %s\n", PnLString(p.TodayPnL, utils.FormatPnL(p.TodayPnL)))
			out.Printf("Realized P&L:  %s\n", PnLString(p.TotalRealizedPnL, utils.FormatPnL(p.TotalRealizedPnL)))
			out.Printf("Net Worth:     %s\n", utils.FormatIndianCurrency(p.NetWorth))
			return nil
		},
	}
}
