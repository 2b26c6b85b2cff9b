package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"areca-grader/api/internal/config"
	"areca-grader/api/internal/container"
	"areca-grader/api/internal/httpserver"
	"areca-grader/api/internal/logger"
	"areca-grader/api/internal/metrics"
	"areca-grader/api/internal/telegram"
)

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if cfg.TelegramBotToken == "" {
		logger.Logger.Fatal("TELEGRAM_BOT_TOKEN is required for the bot")
	}
	gin.SetMode(gin.ReleaseMode)
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize container")
	}
	defer c.Close()

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.WithError(err).Fatal("telegram login failed")
	}
	bot.Debug = false

	r := &telegram.Router{
		Bot:     bot,
		Capture: c.Capture(),
		Coord:   c.Coordinator(),
		Timeout: cfg.RequestTimeout,
	}

	// ListenForWebhook registers on DefaultServeMux, so the web routes are mounted there too.
	http.Handle("/", c.Handler())
	srv := httpserver.New(":"+cfg.Port, http.DefaultServeMux, cfg.RequestTimeout)

	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		startWebhookMode(ctx, bot, r, webhookURL)
	} else {
		go runPolling(ctx, bot, func(upd tgbotapi.Update) { r.HandleUpdate(ctx, upd) })
	}

	if err := httpserver.Run(ctx, srv); err != nil {
		logger.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}

func startWebhookMode(ctx context.Context, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string) {
	// secret webhook path derived from the token
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		logger.WithError(err).Fatal("bad webhook url")
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		logger.WithError(err).Fatal("set webhook failed")
	}

	updates := bot.ListenForWebhook(path)
	go func() {
		for upd := range updates {
			r.HandleUpdate(ctx, upd)
		}
		logger.Logger.Info("webhook updates channel closed")
	}()
	logger.WithField("path", path).Info("webhook listening")
}

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") {
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

// runPolling long-polls with a bounded backoff and never exits on API errors.
func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			logger.Logger.Info("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			logger.WithError(err).WithFields(logrus.Fields{"retry_in": d.String()}).Warn("polling error")
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// shortHash is FNV-1a over s as 16 hex digits; stable per token, not a secret by itself.
func shortHash(s string) string {
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
