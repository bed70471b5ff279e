package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"twstock-line-bot/internal/alert"
	"twstock-line-bot/internal/chart"
	"twstock-line-bot/internal/market"
	"twstock-line-bot/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const testChannelSecret = "test-channel-secret"

type fakeMarket struct {
	prices    map[string]string
	histories map[string][]float64
}

func (f *fakeMarket) Latest(ctx context.Context, symbol string) (types.Quote, error) {
	raw, ok := f.prices[symbol]
	if !ok {
		return types.Quote{}, &market.DataUnavailableError{Symbol: symbol, Err: errors.New("no data")}
	}
	return types.Quote{Symbol: symbol, Name: symbol, Price: decimal.RequireFromString(raw), At: time.Now()}, nil
}

func (f *fakeMarket) History(ctx context.Context, symbol string, days int) (types.PriceSeries, error) {
	closes, ok := f.histories[symbol]
	if !ok {
		return types.PriceSeries{}, &market.DataUnavailableError{Symbol: symbol, Err: errors.New("no data")}
	}
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := types.PriceSeries{Symbol: symbol, Name: symbol}
	for i, c := range closes {
		s.Points = append(s.Points, types.PricePoint{Date: start.AddDate(0, 0, i), Close: c})
	}
	return s, nil
}

func (f *fakeMarket) Name(ctx context.Context, symbol string) string { return symbol }

// fakeDispatcher records every outbound message.
type fakeDispatcher struct {
	replies   []string
	pushes    []string
	imageURLs []string
}

func (f *fakeDispatcher) ReplyText(ctx context.Context, replyToken, text string) error {
	f.replies = append(f.replies, text)
	return nil
}

func (f *fakeDispatcher) ReplyImage(ctx context.Context, replyToken, originalURL, previewURL string) error {
	f.imageURLs = append(f.imageURLs, originalURL)
	return nil
}

func (f *fakeDispatcher) PushText(ctx context.Context, userID, text string) error {
	f.pushes = append(f.pushes, text)
	return nil
}

func (f *fakeDispatcher) PushTextWithImage(ctx context.Context, userID, text, originalURL, previewURL string) error {
	f.pushes = append(f.pushes, text)
	f.imageURLs = append(f.imageURLs, originalURL)
	return nil
}

type testEnv struct {
	engine     *gin.Engine
	dispatcher *fakeDispatcher
	store      *alert.Store
	artifacts  *chart.Store
}

func newTestEnv(t *testing.T, m *fakeMarket) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	renderer, err := chart.NewRenderer("")
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	dispatcher := &fakeDispatcher{}
	store := alert.NewStore()
	artifacts := chart.NewStore(time.Minute)

	h := NewHandler(Config{
		ChannelSecret: testChannelSecret,
		BaseURL:       "https://bot.example.com",
		Dispatcher:    dispatcher,
		Market:        m,
		Renderer:      renderer,
		Artifacts:     artifacts,
		Store:         store,
		Checker:       alert.NewChecker(store, m, dispatcher, nil),
	})

	engine := gin.New()
	h.Register(engine)

	return &testEnv{engine: engine, dispatcher: dispatcher, store: store, artifacts: artifacts}
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func textEventBody(userID, text string) []byte {
	payload := fmt.Sprintf(`{"destination":"Uxxx","events":[{"type":"message","mode":"active","timestamp":1710000000000,"source":{"type":"user","userId":%q},"replyToken":"reply-token-1","message":{"type":"text","id":"1001","text":%q}}]}`,
		userID, text)
	return []byte(payload)
}

func (e *testEnv) postCallback(body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Line-Signature", signature)
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func TestCallbackRejectsInvalidSignature(t *testing.T) {
	env := newTestEnv(t, &fakeMarket{})
	body := textEventBody("U1", "2330")

	w := env.postCallback(body, "not-a-valid-signature")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if len(env.dispatcher.replies)+len(env.dispatcher.pushes) != 0 {
		t.Error("rejected request must not dispatch messages")
	}
	if env.store.Len() != 0 {
		t.Error("rejected request must not touch the alert store")
	}
}

func TestCallbackMalformedBodyStillAccepted(t *testing.T) {
	env := newTestEnv(t, &fakeMarket{})

	// Correctly signed, but the body is not an event payload. The platform
	// disables webhooks that keep answering non-2xx, so only a signature
	// failure may earn a 400.
	for _, body := range [][]byte{
		[]byte(`{"events":"this-is-not-an-event-array"}`),
		[]byte(`not json at all`),
	} {
		w := env.postCallback(body, sign(testChannelSecret, body))
		if w.Code != http.StatusOK {
			t.Errorf("body %q: status = %d, want 200 once signature passes", body, w.Code)
		}
	}
	if len(env.dispatcher.replies)+len(env.dispatcher.pushes) != 0 {
		t.Error("malformed body must not dispatch messages")
	}
	if env.store.Len() != 0 {
		t.Error("malformed body must not touch the alert store")
	}
}

func TestCallbackLookup(t *testing.T) {
	m := &fakeMarket{
		prices:    map[string]string{"2330": "610"},
		histories: map[string][]float64{"2330": {600, 610, 590, 620, 605}},
	}
	env := newTestEnv(t, m)
	body := textEventBody("U1", "2330")

	w := env.postCallback(body, sign(testChannelSecret, body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}

	if len(env.dispatcher.replies) != 1 || !strings.Contains(env.dispatcher.replies[0], "正在查詢") {
		t.Errorf("replies = %v, want one acknowledgment", env.dispatcher.replies)
	}
	if len(env.dispatcher.pushes) != 1 || !strings.Contains(env.dispatcher.pushes[0], "610.00") {
		t.Errorf("pushes = %v, want quote text with price", env.dispatcher.pushes)
	}
	if len(env.dispatcher.imageURLs) != 1 {
		t.Fatalf("imageURLs = %v, want one chart link", env.dispatcher.imageURLs)
	}
	if !strings.HasPrefix(env.dispatcher.imageURLs[0], "https://bot.example.com/static/charts/") {
		t.Errorf("chart URL = %q, want it under the configured base URL", env.dispatcher.imageURLs[0])
	}
}

func TestCallbackLookupChartUnavailable(t *testing.T) {
	// Quote works but history does not; the push degrades to text.
	m := &fakeMarket{prices: map[string]string{"2454": "610"}}
	env := newTestEnv(t, m)
	body := textEventBody("U1", "2454")

	w := env.postCallback(body, sign(testChannelSecret, body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(env.dispatcher.pushes) != 1 {
		t.Fatalf("pushes = %v, want one text push", env.dispatcher.pushes)
	}
	push := env.dispatcher.pushes[0]
	if !strings.Contains(push, "610.00") || !strings.Contains(push, "趨勢圖資料暫時不可用") {
		t.Errorf("push = %q, want quote plus chart-unavailable notice", push)
	}
	if len(env.dispatcher.imageURLs) != 0 {
		t.Errorf("imageURLs = %v, want none", env.dispatcher.imageURLs)
	}
}

func TestCallbackSetAlert(t *testing.T) {
	env := newTestEnv(t, &fakeMarket{prices: map[string]string{"2330": "750"}})
	body := textEventBody("U1", "設定 2330 > 800")

	w := env.postCallback(body, sign(testChannelSecret, body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if env.store.Len() != 1 {
		t.Fatalf("store Len = %d, want 1", env.store.Len())
	}
	if len(env.dispatcher.replies) != 1 || !strings.Contains(env.dispatcher.replies[0], "已設定") {
		t.Errorf("replies = %v, want confirmation", env.dispatcher.replies)
	}
}

func TestCallbackMalformedCommand(t *testing.T) {
	env := newTestEnv(t, &fakeMarket{})
	body := textEventBody("U1", "設定 2330 800")

	w := env.postCallback(body, sign(testChannelSecret, body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if env.store.Len() != 0 {
		t.Error("malformed command must not store a rule")
	}
	if len(env.dispatcher.replies) != 1 || !strings.Contains(env.dispatcher.replies[0], "設定 2330 > 800") {
		t.Errorf("replies = %v, want usage hint", env.dispatcher.replies)
	}
}

func TestCallbackHelpFallback(t *testing.T) {
	env := newTestEnv(t, &fakeMarket{})
	body := textEventBody("U1", "hello there")

	w := env.postCallback(body, sign(testChannelSecret, body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(env.dispatcher.replies) != 1 || !strings.Contains(env.dispatcher.replies[0], "歡迎") {
		t.Errorf("replies = %v, want help text", env.dispatcher.replies)
	}
}

func TestCallbackGroupChatRejected(t *testing.T) {
	env := newTestEnv(t, &fakeMarket{})
	body := []byte(`{"destination":"Uxxx","events":[{"type":"message","mode":"active","timestamp":1710000000000,"source":{"type":"group","groupId":"G1"},"replyToken":"reply-token-1","message":{"type":"text","id":"1001","text":"2330"}}]}`)

	w := env.postCallback(body, sign(testChannelSecret, body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(env.dispatcher.replies) != 1 || !strings.Contains(env.dispatcher.replies[0], "私訊") {
		t.Errorf("replies = %v, want private-chat notice", env.dispatcher.replies)
	}
	if len(env.dispatcher.pushes) != 0 {
		t.Errorf("pushes = %v, want none", env.dispatcher.pushes)
	}
}

func TestCallbackFollowSendsWelcome(t *testing.T) {
	env := newTestEnv(t, &fakeMarket{})
	body := []byte(`{"destination":"Uxxx","events":[{"type":"follow","mode":"active","timestamp":1710000000000,"source":{"type":"user","userId":"U1"},"replyToken":"reply-token-1"}]}`)

	w := env.postCallback(body, sign(testChannelSecret, body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(env.dispatcher.pushes) != 1 || !strings.Contains(env.dispatcher.pushes[0], "歡迎") {
		t.Errorf("pushes = %v, want welcome message", env.dispatcher.pushes)
	}
}

func TestCheckAlertsEndpoint(t *testing.T) {
	m := &fakeMarket{prices: map[string]string{"2330": "810"}}
	env := newTestEnv(t, m)
	env.store.Add(types.AlertRule{
		UserID:    "U1",
		Symbol:    "2330",
		Threshold: decimal.NewFromInt(800),
		Direction: types.Above,
		CreatedAt: time.Now(),
	})

	req := httptest.NewRequest(http.MethodGet, "/check_alerts", nil)
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var summary alert.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("response is not a summary: %v", err)
	}
	if summary.Checked != 1 || summary.Triggered != 1 || summary.Skipped != 0 {
		t.Errorf("summary = %+v, want checked=1 triggered=1 skipped=0", summary)
	}
	if len(env.dispatcher.pushes) != 1 || !strings.Contains(env.dispatcher.pushes[0], "警示觸發") {
		t.Errorf("pushes = %v, want trigger notification", env.dispatcher.pushes)
	}
	if env.store.Len() != 1 {
		t.Errorf("store Len = %d, want 1 (sweep is read-only)", env.store.Len())
	}
}

func TestChartArtifactRoute(t *testing.T) {
	env := newTestEnv(t, &fakeMarket{})
	id := env.artifacts.Put([]byte("png-bytes"), []byte("preview-bytes"))

	req := httptest.NewRequest(http.MethodGet, "/static/charts/"+id+".png", nil)
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q, want image/png", ct)
	}

	req = httptest.NewRequest(http.MethodGet, "/static/charts/missing.png", nil)
	w = httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unknown artifact", w.Code)
	}
}

func TestHealthRoutes(t *testing.T) {
	env := newTestEnv(t, &fakeMarket{})

	for _, path := range []string{"/", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		env.engine.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, w.Code)
		}
	}
}
