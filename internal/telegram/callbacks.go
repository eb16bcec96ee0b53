package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"payroll-bot/internal/store"
)

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	if _, err := r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		zap.L().Debug("callback ack failed", zap.Error(err))
	}

	switch cb.Data {
	case "log_yes":
		r.onConfirm(cid, cb.Message.MessageID)
	case "log_edit":
		r.onEdit(cid, cb.Message.MessageID)
	}
}

func (r *Router) onConfirm(chatID int64, msgID int) {
	sess := getSession(chatID)
	sess.mu.Lock()
	if sess.state != StateConfirming || len(sess.entries) == 0 {
		sess.mu.Unlock()
		r.send(chatID, "Nothing is waiting for confirmation. Send a schedule photo first.")
		return
	}
	entries := sess.entries
	userID := sess.userID
	hash, engine, model := sess.imageHash, sess.engine, sess.model
	sess.mu.Unlock()

	sess.to(EventConfirmed)
	r.clearKeyboard(chatID, msgID)

	ctx := context.Background()
	sum, err := r.persistEntries(ctx, userID, entries, store.SourceExtracted)
	if err != nil {
		r.replyError(chatID, err)
		return
	}
	if err := r.Store.MarkExtractAccepted(ctx, hash, engine, model, "user_yes"); err != nil {
		zap.L().Debug("mark accepted failed", zap.Error(err))
	}
	sess.to(EventPersisted)
	r.send(chatID, r.loggedText(len(entries), sum))
}

func (r *Router) onEdit(chatID int64, msgID int) {
	sess := getSession(chatID)
	if sess.current() != StateConfirming {
		r.send(chatID, "Nothing is waiting for correction. Send a schedule photo first.")
		return
	}
	sess.to(EventEditRequested)
	r.clearKeyboard(chatID, msgID)
	r.send(chatID, "Send the corrected entries, one day per line:\n2024-06-10 7.5")
}
