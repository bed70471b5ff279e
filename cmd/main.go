package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"twstock-line-bot/config"
	"twstock-line-bot/internal/alert"
	"twstock-line-bot/internal/chart"
	"twstock-line-bot/internal/database"
	"twstock-line-bot/internal/line"
	"twstock-line-bot/internal/logging"
	"twstock-line-bot/internal/market"
	"twstock-line-bot/internal/metrics"
	"twstock-line-bot/internal/webhook"

	"github.com/gin-gonic/gin"
	"github.com/leonelquinteros/gotext"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func init() {
	config.InitConfig()
	logging.Setup(config.GetBool("debug"), config.GetString("log_file"))
	log.Debug("starting stock LINE bot...")
}

func main() {
	gotext.Configure("locales", strings.ToLower(config.GetString("lang_code")), "default")

	accessToken := config.GetString("channel_access_token")
	channelSecret := config.GetString("channel_secret")
	if accessToken == "" || channelSecret == "" {
		log.Fatal("CHANNEL_ACCESS_TOKEN and CHANNEL_SECRET must be set")
	}

	baseURL := strings.TrimRight(config.GetString("base_url"), "/")
	if baseURL == "" {
		log.Warn("BASE_URL is not set; replies will not carry chart image links")
	}

	if err := database.InitDB(config.GetString("db_path")); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDB()

	botMetrics := metrics.New()
	botMetrics.LoadFromDB()

	renderer, err := chart.NewRenderer(config.GetString("font_path"))
	if err != nil {
		log.Fatalf("Failed to create chart renderer: %v", err)
	}

	dispatcher, err := line.NewClient(line.Config{
		ChannelSecret:      channelSecret,
		ChannelAccessToken: accessToken,
	})
	if err != nil {
		log.Fatalf("Failed to create LINE client: %v", err)
	}

	marketClient := market.NewClient()
	alertStore := alert.NewStore()
	checker := alert.NewChecker(alertStore, marketClient, dispatcher, botMetrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checker.Start(ctx, time.Duration(config.GetInt("alert_check_interval"))*time.Second)

	handler := webhook.NewHandler(webhook.Config{
		ChannelSecret: channelSecret,
		BaseURL:       baseURL,
		Dispatcher:    dispatcher,
		Market:        marketClient,
		Renderer:      renderer,
		Artifacts:     chart.NewStore(10 * time.Minute),
		Store:         alertStore,
		Checker:       checker,
		Metrics:       botMetrics,
	})

	if config.GetBool("debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	handler.Register(engine)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	go func() {
		for {
			time.Sleep(5 * time.Minute)
			botMetrics.SaveToDB()
		}
	}()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		botMetrics.SaveToDB()
		database.CloseDB()
		log.Println("Metrics saved, shutting down...")
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%d", config.GetInt("port"))
	log.Infof("Launching webhook server on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start webhook server: %v", err)
	}
}
