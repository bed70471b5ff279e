package commands

import (
	"context"
	"strings"
	"time"

	"twstock-line-bot/internal/chart"
	"twstock-line-bot/internal/types"
	"twstock-line-bot/lib/translation"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ChartResult is a rendered trend chart ready for dispatch.
type ChartResult struct {
	Image   []byte
	Preview []byte
	Caption string
}

// Trend renders the trend chart for one or more symbols on a single chart.
// Symbols whose history cannot be fetched are skipped and noted in the
// caption; the whole command fails only when no series could be fetched.
func Trend(ctx context.Context, m types.MarketData, r *chart.Renderer, symbols []string, days int) (*ChartResult, error) {
	log.Debugf("processing trend chart for %v over %d days", symbols, days)

	key := chartCacheKey(symbols, days)
	if item, found := cacheGet(key); found {
		log.Debugf("returning cached chart for %s", key)
		return &ChartResult{Image: item.Image, Preview: item.Preview, Caption: item.Caption}, nil
	}

	var seriesList []types.PriceSeries
	var missing []string
	var lastErr error

	for _, symbol := range symbols {
		series, err := m.History(ctx, symbol, days)
		if err != nil {
			log.Warnf("history fetch failed for %s: %v", symbol, err)
			missing = append(missing, symbol)
			lastErr = err
			continue
		}
		seriesList = append(seriesList, series)
	}

	if len(seriesList) == 0 {
		return nil, errors.Wrap(lastErr, "trend chart")
	}

	image, err := r.Render(seriesList)
	if err != nil {
		return nil, errors.Wrap(err, "trend chart")
	}

	preview, err := chart.Preview(image)
	if err != nil {
		return nil, errors.Wrap(err, "trend chart")
	}

	caption := trendCaption(seriesList, days)
	if len(missing) > 0 {
		caption += "\n" + translation.Translate("⚠️ 無法取得：%s", strings.Join(missing, "、"))
	}

	cacheSet(key, image, preview, caption, 5*time.Minute)

	return &ChartResult{Image: image, Preview: preview, Caption: caption}, nil
}

func trendCaption(seriesList []types.PriceSeries, days int) string {
	if len(seriesList) == 1 {
		return translation.Translate("%s 最近 %d 日收盤價走勢圖", seriesList[0].Symbol, days)
	}

	var symbols []string
	for _, s := range seriesList {
		symbols = append(symbols, s.Symbol)
	}
	return translation.Translate("%s 收盤價比較圖", strings.Join(symbols, "、"))
}
