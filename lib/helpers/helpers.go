package helpers

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatPrice renders a quote price with two decimals and thousand
// separators, e.g. "1,085.00".
func FormatPrice(p decimal.Decimal) string {
	return printer.Sprintf("%.2f", p.InexactFloat64())
}

// FormatClose renders a closing price from a series.
func FormatClose(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// FormatDate renders a series date for chart labels.
func FormatDate(t time.Time) string {
	return t.Format("01/02")
}

// TimeAgo renders a relative age for alert listings, e.g. "2 days ago".
func TimeAgo(t time.Time) string {
	return humanize.Time(t)
}
