// Package notify delivers the run digest to messaging channels.
package notify

import (
	"context"
	"errors"
	"net/http"

	"go-job-digest/internal/config"
	"go-job-digest/internal/models"

	"go.uber.org/zap"
)

var (
	// ErrInvalidCredentials means a channel is configured with values that
	// cannot be right (wrong token length, malformed user id, rejected token).
	ErrInvalidCredentials = errors.New("invalid notifier credentials")
	ErrDeliveryFailed     = errors.New("notification delivery failed")
)

// Notifier sends one digest to one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, d models.Digest) error
}

// Configured returns a notifier for every channel that has credentials set.
// Channels without credentials are skipped, which is not an error.
func Configured(cfg *config.Config, hc *http.Client, log *zap.Logger) []Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	var out []Notifier
	if cfg.LINE.Enabled() {
		out = append(out, NewLINE(cfg.LINE, hc))
	} else {
		log.Info("LINE not configured, skipping")
	}
	if cfg.Telegram.Enabled() {
		out = append(out, NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, hc))
	} else {
		log.Info("Telegram not configured, skipping")
	}
	return out
}
