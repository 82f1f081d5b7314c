// Package notify delivers fill and exit notifications to configured channels.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"paper-trader/internal/config"
	"paper-trader/internal/models"
	"paper-trader/pkg/utils"
)

// Notifier defines the interface for sending notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	SendFill(ctx context.Context, pos *models.TrackedPosition) error
	SendExit(ctx context.Context, rec *models.TradeRecord) error
	SendError(ctx context.Context, err error, context string) error
}

// NotificationChannel defines the interface for a notification channel.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification represents a notification message.
type Notification struct {
	Type      NotificationType
	Owner     string
	Title     string
	Message   string
	Data      map[string]interface{}
	Timestamp time.Time
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationFill  NotificationType = "fill"
	NotificationExit  NotificationType = "exit"
	NotificationError NotificationType = "error"
	NotificationInfo  NotificationType = "info"
)

// NotificationLevel represents the notification level filter.
type NotificationLevel string

const (
	LevelAll        NotificationLevel = "all"
	LevelTradesOnly NotificationLevel = "trades_only"
	LevelErrorsOnly NotificationLevel = "errors_only"
)

// MultiNotifier sends notifications to multiple channels.
type MultiNotifier struct {
	channels []NotificationChannel
	level    NotificationLevel
	mu       sync.RWMutex
}

// NewMultiNotifier creates a new MultiNotifier with the given configuration.
func NewMultiNotifier(cfg *config.NotificationConfig) *MultiNotifier {
	mn := &MultiNotifier{
		channels: make([]NotificationChannel, 0),
		level:    NotificationLevel(cfg.Level),
	}
	if mn.level == "" {
		mn.level = LevelAll
	}

	if cfg.Webhook.Enabled {
		mn.channels = append(mn.channels, NewWebhookNotifier(cfg.Webhook))
	}
	if cfg.Telegram.Enabled {
		mn.channels = append(mn.channels, NewTelegramNotifier(cfg.Telegram))
	}

	return mn
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch NotificationChannel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

// shouldSend checks if a notification should be sent based on the level filter.
func (mn *MultiNotifier) shouldSend(notifType NotificationType) bool {
	switch mn.level {
	case LevelTradesOnly:
		return notifType == NotificationFill || notifType == NotificationExit
	case LevelErrorsOnly:
		return notifType == NotificationError
	default:
		return true
	}
}

// Send sends a notification to all enabled channels.
func (mn *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if !mn.shouldSend(n.Type) {
		return nil
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	var errs []string
	for _, ch := range channels {
		if ch.IsEnabled() {
			if err := ch.Send(ctx, n); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SendFill sends a notification for a position that just filled.
func (mn *MultiNotifier) SendFill(ctx context.Context, pos *models.TrackedPosition) error {
	title := fmt.Sprintf("🔔 Bought %s", pos.Symbol)
	message := fmt.Sprintf(
		"Symbol: %s\nQuantity: %d\nFill Price: %s\nInvested: %s\nStop Loss: %s",
		pos.Symbol,
		pos.Quantity,
		utils.FormatIndianCurrency(pos.FillPrice),
		utils.FormatIndianCurrency(pos.InvestedAmount),
		utils.FormatIndianCurrency(pos.StopLoss),
	)
	if pos.Target > 0 {
		message += fmt.Sprintf("\nTarget: %s", utils.FormatIndianCurrency(pos.Target))
	}

	return mn.Send(ctx, Notification{
		Type:    NotificationFill,
		Owner:   pos.Owner,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"symbol":     pos.Symbol,
			"quantity":   pos.Quantity,
			"fill_price": pos.FillPrice,
			"invested":   pos.InvestedAmount,
			"stop_loss":  pos.StopLoss,
			"target":     pos.Target,
		},
	})
}

// SendExit sends a notification for a closed position.
func (mn *MultiNotifier) SendExit(ctx context.Context, rec *models.TradeRecord) error {
	var emoji, label string
	if rec.Reason == models.ExitReasonTarget {
		emoji, label = "🎯", "Target Hit"
	} else {
		emoji, label = "🛑", "Stop Loss Hit"
	}

	title := fmt.Sprintf("%s %s: %s", emoji, label, rec.Symbol)
	message := fmt.Sprintf(
		"Symbol: %s\nQuantity: %d\nEntry: %s\nExit: %s\nP&L: %s (%s)\nBalance: %s",
		rec.Symbol,
		rec.Quantity,
		utils.FormatIndianCurrency(rec.EntryPrice),
		utils.FormatIndianCurrency(rec.ExitPrice),
		utils.FormatPnL(rec.PnL),
		utils.FormatPercent(rec.PnLPercent()),
		utils.FormatIndianCurrency(rec.BalanceAfter),
	)

	return mn.Send(ctx, Notification{
		Type:    NotificationExit,
		Owner:   rec.Owner,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"symbol":        rec.Symbol,
			"quantity":      rec.Quantity,
			"entry_price":   rec.EntryPrice,
			"exit_price":    rec.ExitPrice,
			"pnl":           rec.PnL,
			"reason":        string(rec.Reason),
			"balance_after": rec.BalanceAfter,
		},
	})
}

// SendError sends an error notification.
func (mn *MultiNotifier) SendError(ctx context.Context, err error, errContext string) error {
	title := "❌ Error Occurred"
	message := fmt.Sprintf("Context: %s\nError: %v\nTime: %s",
		errContext, err, time.Now().Format("15:04:05"))

	return mn.Send(ctx, Notification{
		Type:    NotificationError,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"context": errContext,
			"error":   err.Error(),
		},
	})
}
