package commands

import (
	"context"

	"twstock-line-bot/internal/market"
	"twstock-line-bot/internal/types"
	"twstock-line-bot/lib/helpers"
	"twstock-line-bot/lib/translation"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Quote builds the latest-price reply line for one symbol.
func Quote(ctx context.Context, m types.MarketData, symbol string) (string, error) {
	log.Debugf("processing quote lookup for %s", symbol)

	q, err := m.Latest(ctx, symbol)
	if err != nil {
		return "", errors.Wrap(err, "quote lookup")
	}

	return translation.Translate("%s(%s) 目前價格：約 %s 元", q.Name, q.Symbol, helpers.FormatPrice(q.Price)), nil
}

// ErrorReply converts a command failure into the user-facing reply text.
func ErrorReply(symbol string, err error) string {
	var unavailable *market.DataUnavailableError
	if errors.As(err, &unavailable) {
		return translation.Translate("⚠️ 無法取得 %s 的最新價格（資料可能暫時不可用）。", unavailable.Symbol)
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Hint
	}

	log.Errorf("command failed for %s: %v", symbol, err)
	return translation.Translate("⚠️ 查詢失敗，請稍後再試。")
}
