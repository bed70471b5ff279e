package types

import "context"

// MarketData is the market-data adapter consumed by commands and the
// alert checker.
type MarketData interface {
	Latest(ctx context.Context, symbol string) (Quote, error)
	History(ctx context.Context, symbol string, days int) (PriceSeries, error)
	Name(ctx context.Context, symbol string) string
}

// Dispatcher sends outbound messages through the messaging platform.
type Dispatcher interface {
	ReplyText(ctx context.Context, replyToken, text string) error
	ReplyImage(ctx context.Context, replyToken, originalURL, previewURL string) error
	PushText(ctx context.Context, userID, text string) error
	PushTextWithImage(ctx context.Context, userID, text, originalURL, previewURL string) error
}
