package commands

import (
	"context"
	"strings"
	"time"

	"twstock-line-bot/internal/alert"
	"twstock-line-bot/internal/types"
	"twstock-line-bot/lib/helpers"
	"twstock-line-bot/lib/translation"

	log "github.com/sirupsen/logrus"
)

// SetAlert stores a rule and builds the confirmation reply. The current
// price is included when it can be fetched; fetch failure still stores
// the rule.
func SetAlert(ctx context.Context, store *alert.Store, m types.MarketData, userID string, cmd Command) string {
	rule := types.AlertRule{
		UserID:    userID,
		Symbol:    cmd.Symbol,
		Threshold: cmd.Threshold,
		Direction: cmd.Direction,
		CreatedAt: time.Now(),
	}
	store.Add(rule)

	confirmation := translation.Translate("✅ 已設定：當 %s %s %s 時通知你",
		cmd.Symbol, cmd.Direction.Operator(), cmd.Threshold.String())

	if quote, err := m.Latest(ctx, cmd.Symbol); err == nil {
		confirmation += translation.Translate("（目前約 %s 元）", helpers.FormatPrice(quote.Price))
	} else {
		log.Debugf("no current price for alert confirmation on %s: %v", cmd.Symbol, err)
	}

	return confirmation
}

// ListAlerts builds the reply listing a user's active rules.
func ListAlerts(ctx context.Context, store *alert.Store, m types.MarketData, userID string) string {
	rules := store.ListUser(userID)
	if len(rules) == 0 {
		return translation.Translate("目前沒有任何價格警示。輸入「設定 2330 > 800」新增一筆。")
	}

	var b strings.Builder
	b.WriteString(translation.Translate("🔔 你的價格警示：\n"))
	for _, rule := range rules {
		b.WriteString(translation.Translate("▫️ %s(%s) %s %s（%s）\n",
			m.Name(ctx, rule.Symbol), rule.Symbol,
			rule.Direction.Operator(), rule.Threshold.String(),
			helpers.TimeAgo(rule.CreatedAt)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// ClearAlerts removes all of a user's rules and builds the reply.
func ClearAlerts(store *alert.Store, userID string) string {
	removed := store.ClearUser(userID)
	if removed == 0 {
		return translation.Translate("目前沒有任何價格警示。")
	}
	return translation.Translate("🗑 已清除 %d 筆價格警示。", removed)
}

// HelpText is the welcome and usage message. It doubles as the reply for
// unrecognized input.
func HelpText() string {
	return translation.Translate("👋 歡迎使用台灣股市小幫手！\n\n" +
		"📌 即時價格：輸入股票代碼，如「2330」\n" +
		"📈 趨勢圖：輸入「2330 30天」或「查 2330 2317」\n" +
		"🔔 價格警示：輸入「設定 2330 > 800」\n" +
		"🧾 警示清單：輸入「警示」；清除警示：輸入「清除」\n\n" +
		"🚀 祝你投資順利！")
}
