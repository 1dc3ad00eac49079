package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/logger"
	"MarketPulse/pkg/util"
)

// ExpirationPolicy decides whether a (symbol, timeframe) slot needs a new
// forecast. The policy fails open: whenever the slot's state cannot be
// determined, the slot counts as expired so the system never stalls on bad
// data.
type ExpirationPolicy struct {
	ledger repository.Ledger
	log    *logger.Logger
	now    func() time.Time
}

// NewExpirationPolicy creates an ExpirationPolicy.
func NewExpirationPolicy(ledger repository.Ledger, log *logger.Logger) *ExpirationPolicy {
	return &ExpirationPolicy{ledger: ledger, log: log, now: time.Now}
}

type storedContext struct {
	GeneratedAt string `json:"generated_at"`
}

// IsExpired reports whether the latest prediction for a slot is older than
// the slot's horizon, or missing entirely.
func (p *ExpirationPolicy) IsExpired(ctx context.Context, symbol string, tf models.Timeframe) bool {
	record, err := p.ledger.LatestPrediction(ctx, symbol, tf)
	if err != nil {
		if isNotFoundError(err) {
			p.log.Debug("no prediction found, will create",
				logger.String("symbol", symbol),
				logger.String("timeframe", tf.String()))
		} else {
			p.log.Warn("expiration check failed, will update",
				logger.String("symbol", symbol),
				logger.String("timeframe", tf.String()),
				logger.Error(err))
		}
		return true
	}
	if record == nil {
		return true
	}

	raw := record.RawContext()
	if raw == "" {
		return true
	}

	var stored storedContext
	if err := json.Unmarshal([]byte(raw), &stored); err != nil || stored.GeneratedAt == "" {
		p.log.Warn("stored context has no usable timestamp, will update",
			logger.String("symbol", symbol),
			logger.String("timeframe", tf.String()))
		return true
	}

	generatedAt, ok := util.ParseTime(stored.GeneratedAt)
	if !ok {
		p.log.Warn("stored timestamp unparseable, will update",
			logger.String("symbol", symbol),
			logger.String("timeframe", tf.String()),
			logger.String("generated_at", stored.GeneratedAt))
		return true
	}

	duration, ok := models.Timeframe(strings.ToLower(tf.String())).Duration()
	if !ok {
		p.log.Warn("unknown timeframe, will update",
			logger.String("symbol", symbol),
			logger.String("timeframe", tf.String()))
		return true
	}

	expiresAt := generatedAt.Add(duration)
	now := p.now().UTC()
	expired := !now.Before(expiresAt)

	if expired {
		p.log.Info("slot expired",
			logger.String("symbol", symbol),
			logger.String("timeframe", tf.String()),
			logger.Duration("expired_ago", now.Sub(expiresAt)))
	} else {
		p.log.Debug("slot still valid",
			logger.String("symbol", symbol),
			logger.String("timeframe", tf.String()),
			logger.Duration("expires_in", expiresAt.Sub(now)))
	}
	return expired
}

// isNotFoundError matches the contract's "nothing there yet" read errors.
func isNotFoundError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no predictions recorded") ||
		strings.Contains(msg, "prediction missing") ||
		strings.Contains(msg, "not found")
}
