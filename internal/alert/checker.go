package alert

import (
	"context"
	"sync"
	"time"

	"twstock-line-bot/internal/metrics"
	"twstock-line-bot/internal/types"
	"twstock-line-bot/lib/helpers"
	"twstock-line-bot/lib/translation"

	log "github.com/sirupsen/logrus"
)

// Pusher is the outbound side the checker needs: push a text message to
// one user.
type Pusher interface {
	PushText(ctx context.Context, userID, text string) error
}

// Summary is the result of one alert sweep.
type Summary struct {
	Checked   int `json:"checked"`
	Triggered int `json:"triggered"`
	Skipped   int `json:"skipped"`
}

// Checker scans stored rules against live prices. The scan is read-only:
// triggered rules stay registered until the user clears them, so repeated
// sweeps over unchanged prices reach the same decisions.
type Checker struct {
	store   *Store
	market  types.MarketData
	pusher  Pusher
	metrics *metrics.BotMetrics

	// runMu serializes sweeps so an HTTP trigger cannot overlap the
	// periodic loop.
	runMu sync.Mutex
}

// NewChecker creates an alert checker. botMetrics may be nil.
func NewChecker(store *Store, market types.MarketData, pusher Pusher, botMetrics *metrics.BotMetrics) *Checker {
	return &Checker{store: store, market: market, pusher: pusher, metrics: botMetrics}
}

// Run performs one sweep over all rules. Fetch failures skip the rule,
// push failures are logged per recipient; neither aborts the batch.
func (c *Checker) Run(ctx context.Context) Summary {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	log.Debug("checking alerts...")

	var summary Summary
	for _, rule := range c.store.Snapshot() {
		summary.Checked++

		quote, err := c.market.Latest(ctx, rule.Symbol)
		if err != nil {
			log.Warnf("no price data for %s, skipping rule: %v", rule.Symbol, err)
			summary.Skipped++
			continue
		}

		log.Debugf("checking alert %s %s %s against %s",
			rule.Symbol, rule.Direction.Operator(), rule.Threshold, quote.Price)

		if !rule.Triggered(quote.Price) {
			continue
		}
		summary.Triggered++

		text := triggerMessage(rule, quote)
		if err := c.pusher.PushText(ctx, rule.UserID, text); err != nil {
			log.Errorf("failed to push alert notification to %s: %v", rule.UserID, err)
			continue
		}
		log.Debugf("alert notification sent to %s", rule.UserID)
	}

	if c.metrics != nil {
		c.metrics.AlertsChecked.Add(float64(summary.Checked))
		c.metrics.AlertsTriggered.Add(float64(summary.Triggered))
	}

	log.Debugf("alert check completed: %+v", summary)
	return summary
}

// Start launches the periodic sweep loop. interval <= 0 disables it and
// leaves triggering to the external /check_alerts pinger.
func (c *Checker) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Run(ctx)
			}
		}
	}()
	log.Debug("alert service started")
}

func triggerMessage(rule types.AlertRule, quote types.Quote) string {
	side := translation.Translate("高於")
	if rule.Direction == types.Below {
		side = translation.Translate("低於")
	}

	return translation.Translate("📈 警示觸發：%s(%s) 現在約 %s 元，已%s %s 元",
		quote.Name, quote.Symbol, helpers.FormatPrice(quote.Price), side, rule.Threshold.String())
}
