package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"payroll-bot/internal/config"
	"payroll-bot/internal/extract"
	"payroll-bot/internal/extract/gemini"
	"payroll-bot/internal/extract/openai"
	"payroll-bot/internal/store"
	"payroll-bot/internal/telegram"
	"payroll-bot/internal/util"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	cfg := config.Load()

	// --- Ledger store: Postgres when DATABASE_URL is set, local SQLite
	// file otherwise ---
	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		logger.Fatal("migrate store", zap.Error(err))
	}

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.Fatal("telegram init", zap.Error(err))
	}
	bot.Debug = false
	logger.Info("authorized", zap.String("bot", bot.Self.UserName))

	// --- Extraction engines (Gemini default) ---
	engines := telegram.Engines{}
	if cfg.GeminiAPIKey != "" {
		engines.Gemini = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	if cfg.OpenAIAPIKey != "" {
		engines.OpenAI = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}
	def := extract.Engine(engines.Gemini)
	if def == nil {
		def = engines.OpenAI
	}
	if def == nil {
		logger.Fatal("no extraction engine configured: set GEMINI_API_KEY or OPENAI_API_KEY")
	}

	r := &telegram.Router{
		Bot:        bot,
		EngManager: extract.NewManager(def),
		Store:      st,
		RateCents:  cfg.HourlyRateCents,
		Currency:   cfg.Currency,
		Employee:   cfg.EmployeeName,
	}

	http.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		hctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := st.Ping(hctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := "0.0.0.0:" + cfg.Port
	if url := strings.TrimSpace(cfg.WebhookURL); url != "" {
		startWebhookMode(addr, bot, r, url, engines)
	} else {
		startPollingMode(addr, bot, r, engines)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.DatabaseURL != "" {
		return store.NewPostgres(ctx, cfg.DatabaseURL)
	}
	return store.NewSQLite(cfg.DBPath)
}

// ---------------- Modes -----------------

func startWebhookMode(addr string, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string, engines telegram.Engines) {
	// secret webhook path derived from the token
	path := "/webhook/" + util.SHA256Hex([]byte(bot.Token))[:16]
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		zap.L().Fatal("webhook config", zap.Error(err))
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		zap.L().Fatal("webhook register", zap.Error(err))
	}

	// ListenForWebhook registers its handler on the DefaultServeMux, next
	// to /healthz.
	updates := bot.ListenForWebhook(path)

	go func() {
		for upd := range updates {
			go r.HandleUpdate(upd, engines)
		}
		zap.L().Warn("webhook updates channel closed")
	}()

	zap.L().Info("webhook mode", zap.String("addr", addr), zap.String("path", path))
	if err := http.ListenAndServe(addr, nil); err != nil {
		zap.L().Fatal("http server", zap.Error(err))
	}
}

func startPollingMode(addr string, bot *tgbotapi.BotAPI, r *telegram.Router, engines telegram.Engines) {
	go func() {
		zap.L().Info("health server", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			zap.L().Fatal("http server", zap.Error(err))
		}
	}()

	runPolling(context.Background(), bot, func(upd tgbotapi.Update) {
		go r.HandleUpdate(upd, engines)
	})
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 from Telegram
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
	return time.Second
}

// runPolling long-polls with backoff; transient Telegram errors never kill
// the process.
func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("polling stopped", zap.Error(ctx.Err()))
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := retryDelayFromError(err)
			if d < baseDelay {
				d = baseDelay
			}
			if d > maxDelay {
				d = maxDelay
			}
			zap.L().Warn("polling error", zap.Error(err), zap.Duration("retry_in", d))
			time.Sleep(d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			time.Sleep(200 * time.Millisecond)
		}
	}
}
