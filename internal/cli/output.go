// Package cli provides the command-line interface for the paper trading application.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Output handles formatted output for the CLI.
type Output struct {
	writer   io.Writer
	jsonMode bool
}

// NewOutput creates a new Output instance.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	if jsonMode || !isTerminal() {
		color.NoColor = true
	}
	return &Output{
		writer:   cmd.OutOrStdout(),
		jsonMode: jsonMode,
	}
}

// isTerminal checks if stdout is a terminal.
func isTerminal() bool {
	fileInfo, _ := os.Stdout.Stat()
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// IsJSON returns true if JSON output mode is enabled.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// JSON outputs data as JSON.
func (o *Output) JSON(data interface{}) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Println prints a message with newline.
func (o *Output) Println(args ...interface{}) {
	fmt.Fprintln(o.writer, args...)
}

// Printf prints a formatted message.
func (o *Output) Printf(format string, args ...interface{}) {
	fmt.Fprintf(o.writer, format, args...)
}

// Success prints a success message in green.
func (o *Output) Success(format string, args ...interface{}) {
	fmt.Fprintln(o.writer, color.GreenString(format, args...))
}

// Warn prints a warning message in yellow.
func (o *Output) Warn(format string, args ...interface{}) {
	fmt.Fprintln(o.writer, color.YellowString(format, args...))
}

// Header prints a section header in cyan.
func (o *Output) Header(format string, args ...interface{}) {
	fmt.Fprintln(o.writer, color.CyanString(format, args...))
}

// PnLString colors a formatted P&L value by sign.
func PnLString(pnl float64, formatted string) string {
	if pnl > 0 {
		return color.GreenString(formatted)
	}
	if pnl < 0 {
		return color.RedString(formatted)
	}
	return formatted
}
