package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"paper-trader/internal/models"
	"paper-trader/pkg/utils"
)

func addPositionCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAddCmd(app))
	rootCmd.AddCommand(newModifyCmd(app))
	rootCmd.AddCommand(newDeleteCmd(app))
	rootCmd.AddCommand(newPositionsCmd(app))
}

func newAddCmd(app *App) *cobra.Command {
	var target float64

	cmd := &cobra.Command{
		Use:   "add <symbol> <quantity> <entry> <stoploss>",
		Short: "Track a new position",
		Long: `Track a new position. The engine buys (on paper) once the market
touches the entry price, and sells at the stop-loss or target.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			entry, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return err
			}
			stopLoss, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return err
			}

			pos, err := app.Service.AddPosition(cmd.Context(), app.owner(cmd), args[0], quantity, entry, stopLoss, target)
			if err != nil {
				return err
			}

			out := NewOutput(cmd)
			if out.IsJSON() {
				return out.JSON(pos)
			}
			out.Success("✓ Tracking %s", pos.Symbol)
			out.Printf("  Quantity:  %s\n", utils.FormatQuantity(int64(pos.Quantity)))
			out.Printf("  Entry:     %s\n", utils.FormatIndianCurrency(pos.EntryPrice))
			out.Printf("  Stop Loss: %s\n", utils.FormatIndianCurrency(pos.StopLoss))
			if pos.Target > 0 {
				out.Printf("  Target:    %s\n", utils.FormatIndianCurrency(pos.Target))
			}
			return nil
		},
	}

	cmd.Flags().Float64VarP(&target, "target", "t", 0, "target price (optional)")
	return cmd
}

func newModifyCmd(app *App) *cobra.Command {
	var target float64

	cmd := &cobra.Command{
		Use:   "modify <symbol> <stoploss>",
		Short: "Change the stop-loss and target of a tracked position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stopLoss, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return err
			}

			pos, err := app.Service.ModifyPosition(cmd.Context(), app.owner(cmd), args[0], stopLoss, target)
			if err != nil {
				return err
			}

			out := NewOutput(cmd)
			if out.IsJSON() {
				return out.JSON(pos)
			}
			out.Success("✓ Updated %s", pos.Symbol)
			out.Printf("  Stop Loss: %s\n", utils.FormatIndianCurrency(pos.StopLoss))
			if pos.Target > 0 {
				out.Printf("  Target:    %s\n", utils.FormatIndianCurrency(pos.Target))
			}
			return nil
		},
	}

	cmd.Flags().Float64VarP(&target, "target", "t", 0, "target price (0 clears it)")
	return cmd
}

func newDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <symbol>",
		Short: "Stop tracking a position that has not filled yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Service.DeletePosition(cmd.Context(), app.owner(cmd), args[0]); err != nil {
				return err
			}
			NewOutput(cmd).Success("✓ Stopped tracking %s", args[0])
			return nil
		},
	}
}

func newPositionsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "List tracked and holding positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			positions, err := app.Service.ListPositions(cmd.Context(), app.owner(cmd))
			if err != nil {
				return err
			}

			out := NewOutput(cmd)
			if out.IsJSON() {
				return out.JSON(positions)
			}
			if len(positions) == 0 {
				out.Println("No positions.")
				return nil
			}

			out.Header("📋 Positions")
			out.Printf("%-12s %-9s %8s %12s %12s %12s %12s\n",
				"Symbol", "State", "Qty", "Entry", "Stop Loss", "Target", "Invested")
			for _, pos := range positions {
				target := "-"
				if pos.Target > 0 {
					target = utils.FormatIndianCurrency(pos.Target)
				}
				invested := "-"
				if pos.State == models.StateHolding {
					invested = utils.FormatIndianCurrency(pos.InvestedAmount)
				}
				out.Printf("%-12s %-9s %8d %12s %12s %12s %12s\n",
					pos.Symbol,
					string(pos.State),
					pos.Quantity,
					utils.FormatIndianCurrency(pos.EntryPrice),
					utils.FormatIndianCurrency(pos.StopLoss),
					target,
					invested)
			}
			return nil
		},
	}
}
