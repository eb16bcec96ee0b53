// Package telegram is the conversation controller: it classifies inbound
// updates, drives the extract-confirm-persist pipeline and formats every
// user-visible reply. All errors end here as exactly one message.
package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"payroll-bot/internal/extract"
	"payroll-bot/internal/store"
)

type Router struct {
	Bot        *tgbotapi.BotAPI
	EngManager *extract.Manager
	Store      store.Store

	// payout configuration, fixed at startup
	RateCents int64
	Currency  string
	Employee  string
}

// Engines holds the configured extraction backends for /engine switching.
type Engines struct {
	Gemini extract.Engine
	OpenAI extract.Engine
}

func (r *Router) HandleUpdate(upd tgbotapi.Update, engines Engines) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	// Channel posts carry no sender; every write path keys on From.ID.
	if upd.Message == nil || upd.Message.From == nil {
		return
	}
	cid := upd.Message.Chat.ID

	if upd.Message.IsCommand() {
		r.handleCommand(*upd.Message, engines)
		return
	}
	if len(upd.Message.Photo) > 0 {
		r.acceptPhoto(*upd.Message, engines)
		return
	}
	// Plain text while a correction is pending is the corrected day list.
	if upd.Message.Text != "" && getSession(cid).current() == StateCorrecting {
		r.applyCorrection(*upd.Message)
		return
	}
	if upd.Message.Text != "" {
		r.send(cid, "Send a schedule photo to log hours, or /start for the command list.")
	}
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		zap.L().Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) sendMarkdown(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	if _, err := r.Bot.Send(msg); err != nil {
		zap.L().Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// replyError converts any pipeline failure into a single user-facing
// message and logs the cause. The chat always returns to AwaitingInput.
func (r *Router) replyError(chatID int64, err error) {
	getSession(chatID).to(EventFailed)
	zap.L().Warn("pipeline failure", zap.Int64("chat_id", chatID), zap.Error(err))

	switch {
	case errors.Is(err, extract.ErrNoEntries):
		r.send(chatID, "⚠️ I couldn't read any workdays from that photo. Send a clearer picture, or log the hours with /add.")
	case errors.Is(err, store.ErrInvalidRecord):
		r.send(chatID, "⚠️ That entry isn't valid: hours must be a non-negative number and the date a real calendar day.")
	case errors.Is(err, store.ErrNotFound):
		r.send(chatID, "Nothing is logged for that day.")
	case isStoreErr(err):
		r.send(chatID, "❌ Couldn't save to the ledger right now. Please try again in a moment.")
	default:
		r.send(chatID, "❌ Reading the schedule failed. Please resend the photo or enter the hours manually with /add.")
	}
}

// isStoreErr reports whether the failure happened on the persistence side,
// which the user can retry as-is.
func isStoreErr(err error) bool {
	var pe persistError
	return errors.As(err, &pe)
}

// persistError tags storage failures so replyError can tell them apart
// from extraction failures.
type persistError struct{ err error }

func (p persistError) Error() string { return p.err.Error() }
func (p persistError) Unwrap() error { return p.err }

func (r *Router) clearKeyboard(chatID int64, msgID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := r.Bot.Request(edit); err != nil {
		zap.L().Debug("clear keyboard failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// Ping is used by the health endpoints.
func (r *Router) Ping(ctx context.Context) error {
	return r.Store.Ping(ctx)
}
