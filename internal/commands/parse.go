// Package commands classifies inbound chat text and executes the matching
// bot command.
package commands

import (
	"regexp"
	"strconv"
	"strings"

	"twstock-line-bot/internal/types"
	"twstock-line-bot/lib/translation"

	"github.com/shopspring/decimal"
)

// Intent is the classified purpose of an inbound message.
type Intent int

const (
	IntentHelp Intent = iota
	IntentLookup
	IntentTrendChart
	IntentSetAlert
	IntentListAlerts
	IntentClearAlerts
)

func (i Intent) String() string {
	switch i {
	case IntentLookup:
		return "lookup"
	case IntentTrendChart:
		return "trend"
	case IntentSetAlert:
		return "set_alert"
	case IntentListAlerts:
		return "list_alerts"
	case IntentClearAlerts:
		return "clear_alerts"
	default:
		return "help"
	}
}

// Command is a parsed inbound message.
type Command struct {
	Intent    Intent
	Symbols   []string // lookup
	Symbol    string   // trend chart / alert
	Days      int
	Direction types.Direction
	Threshold decimal.Decimal
}

// ParseError carries the usage hint replied to the user on malformed input.
type ParseError struct {
	Hint string
}

func (e *ParseError) Error() string { return e.Hint }

var (
	symbolPattern = regexp.MustCompile(`^\d{4,5}$`)
	daysPattern   = regexp.MustCompile(`^(\d+)(?:天|日)?$`)
	alertPattern  = regexp.MustCompile(`^設定\s+(\S+)\s*([<>])\s*(\S+)$`)
)

// validSymbol reports whether s looks like a Taiwan stock id (4 or 5 digits).
func validSymbol(s string) bool {
	return symbolPattern.MatchString(s)
}

// Parse classifies raw message text. Malformed variants of a recognized
// command return *ParseError; text that matches no command at all returns
// the help intent.
func Parse(text string) (Command, error) {
	trimmed := strings.TrimSpace(text)
	parts := strings.Fields(trimmed)
	if len(parts) == 0 {
		return Command{Intent: IntentHelp}, nil
	}

	switch parts[0] {
	case "設定":
		return parseSetAlert(trimmed)
	case "查":
		return parseMultiLookup(parts[1:])
	case "警示":
		return Command{Intent: IntentListAlerts}, nil
	case "清除":
		return Command{Intent: IntentClearAlerts}, nil
	}

	first := parts[0]
	if !symbolPattern.MatchString(first) {
		if allDigits(first) {
			return Command{}, &ParseError{Hint: translation.Translate("「%s」不是合法的股票代號。", first)}
		}
		return Command{Intent: IntentHelp}, nil
	}

	if len(parts) == 1 {
		return Command{Intent: IntentLookup, Symbols: []string{first}}, nil
	}

	days, err := parseDays(parts[1])
	if err != nil {
		return Command{}, err
	}
	return Command{Intent: IntentTrendChart, Symbol: first, Days: days}, nil
}

func parseSetAlert(text string) (Command, error) {
	usage := &ParseError{Hint: translation.Translate("❌ 設定格式錯誤，請輸入範例：設定 2330 > 800")}

	m := alertPattern.FindStringSubmatch(text)
	if m == nil {
		return Command{}, usage
	}

	symbol, operator, rawTarget := m[1], m[2], m[3]
	if !validSymbol(symbol) {
		return Command{}, usage
	}

	threshold, err := decimal.NewFromString(rawTarget)
	if err != nil || threshold.Sign() <= 0 {
		return Command{}, usage
	}

	direction := types.Above
	if operator == "<" {
		direction = types.Below
	}

	return Command{
		Intent:    IntentSetAlert,
		Symbol:    symbol,
		Direction: direction,
		Threshold: threshold,
	}, nil
}

func parseMultiLookup(rawSymbols []string) (Command, error) {
	var symbols []string
	seen := make(map[string]bool)
	for _, s := range rawSymbols {
		if !validSymbol(s) || seen[s] {
			continue
		}
		seen[s] = true
		symbols = append(symbols, s)
	}

	if len(symbols) == 0 {
		return Command{}, &ParseError{Hint: translation.Translate("❌ 未偵測到有效的股票代號。範例：查 2330 2317")}
	}
	return Command{Intent: IntentLookup, Symbols: symbols}, nil
}

func parseDays(token string) (int, error) {
	if token == "月線" {
		return 30, nil
	}

	usage := &ParseError{Hint: translation.Translate("❌ 天數需為正整數，範例：2330 30天")}

	m := daysPattern.FindStringSubmatch(token)
	if m == nil {
		return 0, usage
	}
	days, err := strconv.Atoi(m[1])
	if err != nil || days <= 0 {
		return 0, usage
	}
	return days, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
