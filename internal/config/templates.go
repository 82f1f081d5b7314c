package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Paper Trader Configuration

[engine]
# How often the engine evaluates positions against fresh quotes
poll_interval = "60s"
# Per-symbol quote fetch timeout
feed_timeout = "10s"
# Only evaluate positions during NSE market hours
market_hours_only = false

[account]
# Starting cash for owners with no trading history
default_balance = 100000.0
# Owner used when no --owner flag is given
default_owner = "default"

[store]
# SQLite database path
path = "~/.config/paper-trader/papertrader.db"
# Keep everything in memory (state is lost on exit)
in_memory = false

[feed]
# Quote provider: "yahoo"
provider = "yahoo"
# Exchange suffix applied to symbols: NSE, BSE
exchange = "NSE"

[notifications]
# Enable notifications
enabled = false
# Notification level: all, trades_only, errors_only
level = "all"

[notifications.webhook]
enabled = false
url = ""

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""

[logging]
# Log level: trace, debug, info, warn, error
level = "info"
# Log file path
file = "~/.config/paper-trader/papertrader.log"
# Rotate after this size
max_size_mb = 10
max_backups = 5
max_age_days = 30
# Also log to stderr
console = false

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
# Time format
time_format = "15:04:05"
`

// createTemplateConfig writes a commented config template so a first run
// leaves something editable behind.
func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}
