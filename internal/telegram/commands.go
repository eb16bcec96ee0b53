package telegram

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"payroll-bot/internal/extract"
	"payroll-bot/internal/payroll"
	"payroll-bot/internal/store"
)

func (r *Router) handleCommand(msg tgbotapi.Message, engines Engines) {
	cid := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		r.sendMarkdown(cid, startText(), nil)
	case "add":
		r.cmdAdd(msg, args)
	case "summary":
		r.cmdSummary(msg, args)
	case "delete":
		r.cmdDelete(msg, args)
	case "engine":
		r.cmdEngine(cid, args, engines)
	case "health":
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.Ping(ctx); err != nil {
			r.send(cid, "⚠️ Ledger storage is unreachable: "+err.Error())
			return
		}
		r.send(cid, "✅ OK: bot and ledger are up")
	default:
		r.send(cid, "Unknown command. See /start for the list.")
	}
}

// cmdAdd logs hours manually: /add <hours> [YYYY-MM-DD], date defaults to
// today.
func (r *Router) cmdAdd(msg tgbotapi.Message, args []string) {
	cid := msg.Chat.ID
	if len(args) < 1 || len(args) > 2 {
		r.send(cid, "Usage: /add <hours> [YYYY-MM-DD]\nExample: /add 7.5 2024-06-10")
		return
	}
	hundredths, err := payroll.ParseHours(args[0])
	if err != nil {
		r.send(cid, "Hours must be a number between 0 and 24, like 8 or 7.5.")
		return
	}
	day := time.Now().UTC().Truncate(24 * time.Hour)
	if len(args) == 2 {
		day, err = time.Parse("2006-01-02", args[1])
		if err != nil {
			r.send(cid, "The date must look like 2024-06-10.")
			return
		}
	}

	entries := []extract.DayEntry{{Date: day, Hundredths: hundredths}}
	sum, err := r.persistEntries(context.Background(), msg.From.ID, entries, store.SourceManual)
	if err != nil {
		r.replyError(cid, err)
		return
	}
	r.send(cid, r.loggedText(1, sum))
}

// cmdSummary reports hours and pay for a month: /summary [YYYY-MM],
// defaulting to the current one.
func (r *Router) cmdSummary(msg tgbotapi.Message, args []string) {
	cid := msg.Chat.ID
	month := time.Now().UTC()
	if len(args) >= 1 {
		var err error
		month, err = time.Parse("2006-01", args[0])
		if err != nil {
			r.send(cid, "Usage: /summary [YYYY-MM]\nExample: /summary 2024-06")
			return
		}
	}
	text, err := r.monthSummary(context.Background(), msg.From.ID, month)
	if err != nil {
		r.replyError(cid, err)
		return
	}
	r.send(cid, text)
}

func (r *Router) cmdDelete(msg tgbotapi.Message, args []string) {
	cid := msg.Chat.ID
	if len(args) != 1 {
		r.send(cid, "Usage: /delete <YYYY-MM-DD>")
		return
	}
	day, err := time.Parse("2006-01-02", args[0])
	if err != nil {
		r.send(cid, "The date must look like 2024-06-10.")
		return
	}
	if err := r.Store.DeleteDay(context.Background(), msg.From.ID, day); err != nil {
		r.replyError(cid, err)
		return
	}
	r.send(cid, "🗑 Removed the entry for "+args[0]+".")
}

// cmdEngine switches the vision backend for this chat.
func (r *Router) cmdEngine(chatID int64, args []string, engines Engines) {
	if len(args) == 0 {
		cur := r.EngManager.Get(chatID)
		r.send(chatID, "Current engine: "+cur.Name()+" ("+cur.GetModel()+")\nUsage:\n/engine gemini [model]\n/engine gpt [model]")
		return
	}
	var modelArg string
	if len(args) > 1 {
		modelArg = args[1]
	}

	var eng extract.Engine
	switch strings.ToLower(args[0]) {
	case "gemini":
		eng = engines.Gemini
	case "gpt", "openai":
		eng = engines.OpenAI
	default:
		r.send(chatID, "Unknown engine. Available: gemini | gpt")
		return
	}
	if eng == nil {
		r.send(chatID, "❌ That engine is not configured.")
		return
	}
	if modelArg != "" {
		eng.SetModel(modelArg)
	}
	r.EngManager.Set(chatID, eng)
	r.send(chatID, "✅ Engine: "+eng.Name()+" ("+eng.GetModel()+")")
}
