// Package webhook exposes the HTTP entry points: the messaging-platform
// callback and the periodic alert-check trigger.
package webhook

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"runtime"
	"strings"

	"twstock-line-bot/internal/alert"
	"twstock-line-bot/internal/chart"
	"twstock-line-bot/internal/commands"
	"twstock-line-bot/internal/metrics"
	"twstock-line-bot/internal/types"
	"twstock-line-bot/lib/translation"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v7/linebot"
	log "github.com/sirupsen/logrus"
)

// lookupTrendDays is the chart window attached to plain price lookups.
const lookupTrendDays = 5

// Handler sequences the parser, market adapter, renderer, alert store and
// dispatcher behind the HTTP endpoints.
type Handler struct {
	channelSecret string
	baseURL       string

	dispatcher types.Dispatcher
	market     types.MarketData
	renderer   *chart.Renderer
	artifacts  *chart.Store
	store      *alert.Store
	checker    *alert.Checker
	metrics    *metrics.BotMetrics
}

// Config collects the handler's collaborators.
type Config struct {
	ChannelSecret string
	BaseURL       string

	Dispatcher types.Dispatcher
	Market     types.MarketData
	Renderer   *chart.Renderer
	Artifacts  *chart.Store
	Store      *alert.Store
	Checker    *alert.Checker
	Metrics    *metrics.BotMetrics
}

// NewHandler creates the webhook handler.
func NewHandler(c Config) *Handler {
	return &Handler{
		channelSecret: c.ChannelSecret,
		baseURL:       strings.TrimRight(c.BaseURL, "/"),
		dispatcher:    c.Dispatcher,
		market:        c.Market,
		renderer:      c.Renderer,
		artifacts:     c.Artifacts,
		store:         c.Store,
		checker:       c.Checker,
		metrics:       c.Metrics,
	}
}

// Register attaches all routes to the engine.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "OK - stock bot server is running")
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/callback", h.handleCallback)
	r.GET("/check_alerts", h.handleCheckAlerts)
	r.GET("/static/charts/:name", h.handleChartArtifact)
}

// handleCallback verifies the platform signature and processes each event.
// Only an invalid signature earns a 400; once the signature passes the
// response is always 200, so a body the SDK cannot decode never makes the
// platform disable the webhook.
func (h *Handler) handleCallback(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warnf("could not read callback body: %v", err)
		c.String(http.StatusBadRequest, "bad request")
		return
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	events, err := linebot.ParseRequest(h.channelSecret, c.Request)
	if err == linebot.ErrInvalidSignature {
		log.Warn("rejected callback with invalid signature")
		c.String(http.StatusBadRequest, "bad request")
		return
	}
	if err != nil {
		log.Warnf("ignoring malformed callback body: %v", err)
		c.String(http.StatusOK, "OK")
		return
	}

	for _, event := range events {
		h.handleEvent(c.Request.Context(), event)
	}
	c.String(http.StatusOK, "OK")
}

func (h *Handler) handleCheckAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, h.checker.Run(c.Request.Context()))
}

func (h *Handler) handleChartArtifact(c *gin.Context) {
	data, found := h.artifacts.Get(c.Param("name"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "chart not found or expired"})
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

// handleEvent dispatches one webhook event. A panic in command handling is
// contained here so one bad event cannot take down the batch.
func (h *Handler) handleEvent(ctx context.Context, event *linebot.Event) {
	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("recovered from panic in event handler: %v\nstack trace: %s", r, stackTrace)
		}
	}()

	if h.metrics != nil {
		h.metrics.EventsHandled.Inc()
	}

	switch event.Type {
	case linebot.EventTypeFollow:
		if event.Source == nil || event.Source.UserID == "" {
			return
		}
		h.seenUser(event.Source.UserID)
		h.push(ctx, event.Source.UserID, commands.HelpText())

	case linebot.EventTypeMessage:
		textMessage, ok := event.Message.(*linebot.TextMessage)
		if !ok {
			log.Debug("ignoring non-text message event")
			return
		}
		h.handleText(ctx, event, textMessage.Text)
	}
}

func (h *Handler) handleText(ctx context.Context, event *linebot.Event, text string) {
	if event.Source == nil || event.Source.Type != linebot.EventSourceTypeUser {
		h.reply(ctx, event.ReplyToken, translation.Translate("⚠️ 抱歉，目前僅支援私訊（1對1聊天）查詢股票。"))
		return
	}
	userID := event.Source.UserID
	h.seenUser(userID)

	cmd, err := commands.Parse(text)
	if err != nil {
		h.reply(ctx, event.ReplyToken, commands.ErrorReply(text, err))
		return
	}

	if h.metrics != nil {
		h.metrics.CommandHandled(cmd.Intent.String())
	}

	switch cmd.Intent {
	case commands.IntentHelp:
		h.reply(ctx, event.ReplyToken, commands.HelpText())
	case commands.IntentListAlerts:
		h.reply(ctx, event.ReplyToken, commands.ListAlerts(ctx, h.store, h.market, userID))
	case commands.IntentClearAlerts:
		h.reply(ctx, event.ReplyToken, commands.ClearAlerts(h.store, userID))
	case commands.IntentSetAlert:
		h.reply(ctx, event.ReplyToken, commands.SetAlert(ctx, h.store, h.market, userID, cmd))
	case commands.IntentLookup:
		h.lookupAndPush(ctx, event.ReplyToken, userID, cmd.Symbols, lookupTrendDays)
	case commands.IntentTrendChart:
		h.lookupAndPush(ctx, event.ReplyToken, userID, []string{cmd.Symbol}, cmd.Days)
	}
}

// lookupAndPush acknowledges immediately (the reply token is single-use)
// and pushes the quote text plus one combined chart afterwards.
func (h *Handler) lookupAndPush(ctx context.Context, replyToken, userID string, symbols []string, days int) {
	h.reply(ctx, replyToken, translation.Translate("正在查詢股票資料，請稍後..."))

	var lines []string
	for _, symbol := range symbols {
		text, err := commands.Quote(ctx, h.market, symbol)
		if err != nil {
			text = commands.ErrorReply(symbol, err)
		}
		lines = append(lines, text)
	}
	body := strings.Join(lines, "\n")

	result, err := commands.Trend(ctx, h.market, h.renderer, symbols, days)
	if err != nil {
		log.Warnf("trend chart unavailable for %v: %v", symbols, err)
		h.push(ctx, userID, body+"\n"+translation.Translate("⚠️ 趨勢圖資料暫時不可用（可能是資料源或交易日不足）。"))
		return
	}

	if h.baseURL == "" {
		log.Warn("BASE_URL is not configured, sending text only")
		h.push(ctx, userID, body+"\n"+translation.Translate("⚠️ 尚未設定 BASE_URL，無法提供圖片連結。"))
		return
	}

	originalURL, previewURL := h.artifactURLs(result)
	if err := h.dispatcher.PushTextWithImage(ctx, userID, body+"\n"+result.Caption, originalURL, previewURL); err != nil {
		log.Errorf("failed to push chart message: %v", err)
	}
}

func (h *Handler) artifactURLs(result *commands.ChartResult) (string, string) {
	id := h.artifacts.Put(result.Image, result.Preview)
	return h.baseURL + "/static/charts/" + id + ".png",
		h.baseURL + "/static/charts/" + id + "_preview.png"
}

func (h *Handler) reply(ctx context.Context, replyToken, text string) {
	if err := h.dispatcher.ReplyText(ctx, replyToken, text); err != nil {
		log.Errorf("failed to send reply: %v", err)
	}
}

func (h *Handler) push(ctx context.Context, userID, text string) {
	if err := h.dispatcher.PushText(ctx, userID, text); err != nil {
		log.Errorf("failed to push message: %v", err)
	}
}

func (h *Handler) seenUser(userID string) {
	if h.metrics != nil {
		h.metrics.SeenUser(userID)
	}
}
