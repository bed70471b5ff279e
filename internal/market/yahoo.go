package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"twstock-line-bot/internal/types"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// quoteResponse mirrors the v7 quote endpoint payload.
type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string  `json:"symbol"`
			ShortName          string  `json:"shortName"`
			LongName           string  `json:"longName"`
			RegularMarketPrice float64 `json:"regularMarketPrice"`
			RegularMarketTime  int64   `json:"regularMarketTime"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"quoteResponse"`
}

// chartResponse mirrors the v8 chart endpoint payload. Closes are pointers
// because Yahoo emits null for non-trading days.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

// Latest fetches the most recent price for a symbol. When the quote
// endpoint has no usable price it falls back to the last daily close.
func (c *Client) Latest(ctx context.Context, symbol string) (types.Quote, error) {
	url := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", c.baseURL, yahooSymbol(symbol))

	var parsed quoteResponse
	if err := c.getJSON(ctx, url, &parsed); err != nil {
		return types.Quote{}, &DataUnavailableError{Symbol: symbol, Err: err}
	}

	if parsed.QuoteResponse.Error != nil {
		return types.Quote{}, &DataUnavailableError{Symbol: symbol, Err: errors.Errorf("provider error: %v", parsed.QuoteResponse.Error)}
	}

	if len(parsed.QuoteResponse.Result) == 0 || parsed.QuoteResponse.Result[0].RegularMarketPrice == 0 {
		return c.latestFromHistory(ctx, symbol)
	}

	result := parsed.QuoteResponse.Result[0]
	name := result.ShortName
	if name == "" {
		name = result.LongName
	}
	c.rememberName(symbol, name)

	at := time.Now()
	if result.RegularMarketTime > 0 {
		at = time.Unix(result.RegularMarketTime, 0)
	}

	return types.Quote{
		Symbol: symbol,
		Name:   c.Name(ctx, symbol),
		Price:  decimal.NewFromFloat(result.RegularMarketPrice),
		At:     at,
	}, nil
}

// latestFromHistory derives a quote from the last daily close.
func (c *Client) latestFromHistory(ctx context.Context, symbol string) (types.Quote, error) {
	series, err := c.History(ctx, symbol, 5)
	if err != nil {
		return types.Quote{}, err
	}
	last := series.Points[len(series.Points)-1]
	return types.Quote{
		Symbol: symbol,
		Name:   c.Name(ctx, symbol),
		Price:  decimal.NewFromFloat(last.Close),
		At:     last.Date,
	}, nil
}

// History fetches the closing prices of the last N trading days. The
// request window is padded to cover weekends and holidays.
func (c *Client) History(ctx context.Context, symbol string, days int) (types.PriceSeries, error) {
	if days <= 0 {
		days = 5
	}
	reqDays := days * 3
	if reqDays < days+10 {
		reqDays = days + 10
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s?range=%dd&interval=1d", c.baseURL, yahooSymbol(symbol), reqDays)

	var parsed chartResponse
	if err := c.getJSON(ctx, url, &parsed); err != nil {
		return types.PriceSeries{}, &DataUnavailableError{Symbol: symbol, Err: err}
	}

	if parsed.Chart.Error != nil {
		return types.PriceSeries{}, &DataUnavailableError{Symbol: symbol, Err: errors.Errorf("provider error: %v", parsed.Chart.Error)}
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return types.PriceSeries{}, &DataUnavailableError{Symbol: symbol, Err: errors.New("empty chart result")}
	}

	result := parsed.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close

	var points []types.PricePoint
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		points = append(points, types.PricePoint{
			Date:  time.Unix(ts, 0),
			Close: *closes[i],
		})
	}

	if len(points) == 0 {
		return types.PriceSeries{}, &DataUnavailableError{Symbol: symbol, Err: errors.New("no trading days in window")}
	}
	if len(points) > days {
		points = points[len(points)-days:]
	}

	return types.PriceSeries{
		Symbol: symbol,
		Name:   c.Name(ctx, symbol),
		Points: points,
	}, nil
}

// Name returns a best-effort display name for a symbol. Names are cached
// after the first successful quote; lookup failure falls back to the id.
func (c *Client) Name(ctx context.Context, symbol string) string {
	c.mu.RLock()
	name, ok := c.names[symbol]
	c.mu.RUnlock()
	if ok {
		return name
	}

	url := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", c.baseURL, yahooSymbol(symbol))
	var parsed quoteResponse
	if err := c.getJSON(ctx, url, &parsed); err != nil {
		log.Debugf("name lookup failed for %s: %v", symbol, err)
		return symbol
	}
	if len(parsed.QuoteResponse.Result) == 0 {
		return symbol
	}
	name = parsed.QuoteResponse.Result[0].ShortName
	if name == "" {
		name = parsed.QuoteResponse.Result[0].LongName
	}
	if name == "" {
		return symbol
	}
	c.rememberName(symbol, name)
	return name
}

func (c *Client) rememberName(symbol, name string) {
	if name == "" {
		return
	}
	c.mu.Lock()
	c.names[symbol] = name
	c.mu.Unlock()
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}
