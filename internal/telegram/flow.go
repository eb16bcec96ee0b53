package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"payroll-bot/internal/extract"
	"payroll-bot/internal/payroll"
	"payroll-bot/internal/store"
	"payroll-bot/internal/util"
)

// runExtraction drives one merged schedule image through the model and
// presents the result for confirmation.
func (r *Router) runExtraction(ctx context.Context, chatID, userID int64, image []byte, engines Engines) {
	sess := getSession(chatID)
	sess.reset()
	sess.to(EventPhotoReceived)

	eng := r.EngManager.Get(chatID)
	if eng == nil {
		r.replyError(chatID, eris.New("no extraction engine configured"))
		return
	}
	hash := util.SHA256Hex(image)

	res, cached := r.cachedResult(ctx, hash, eng)
	if !cached {
		var err error
		res, err = r.extractOnce(ctx, eng, image)
		if err != nil {
			r.replyError(chatID, err)
			return
		}
		if err := r.Store.SetCachedExtract(ctx, chatID, hash, eng.Name(), eng.GetModel(), extract.MarshalResult(res)); err != nil {
			zap.L().Warn("cache write failed", zap.Error(err))
		}
	}

	sess.mu.Lock()
	sess.userID = userID
	sess.entries = res.Entries
	sess.imageHash, sess.engine, sess.model = hash, eng.Name(), eng.GetModel()
	sess.mu.Unlock()
	sess.to(EventExtracted)

	r.sendMarkdown(chatID, r.confirmText(res), confirmKeyboard())
}

// extractOnce runs one engine call under the extraction deadline, so a
// stalled model endpoint surfaces as an error instead of wedging the chat.
func (r *Router) extractOnce(ctx context.Context, eng extract.Engine, image []byte) (extract.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()
	return eng.Extract(ctx, image, extract.Options{
		EmployeeName: r.Employee,
		RateHint:     payroll.FormatCents(r.RateCents) + " " + r.Currency,
	})
}

// cachedResult answers an already-analyzed image from the extract cache.
func (r *Router) cachedResult(ctx context.Context, hash string, eng extract.Engine) (extract.Result, bool) {
	ce, err := r.Store.GetCachedExtract(ctx, hash, eng.Name(), eng.GetModel(), cacheMaxAge)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zap.L().Warn("cache read failed", zap.Error(err))
		}
		return extract.Result{}, false
	}
	res, err := extract.ParseModelJSON(string(ce.ResultJSON))
	if err != nil {
		return extract.Result{}, false
	}
	zap.L().Info("extraction served from cache", zap.String("image_hash", hash), zap.String("engine", eng.Name()))
	return res, true
}

// persistEntries writes the day entries under one user. Each upsert is
// atomic per date; a failure aborts the rest and is reported as a
// retryable storage error.
func (r *Router) persistEntries(ctx context.Context, userID int64, entries []extract.DayEntry, source store.Source) (payroll.Summary, error) {
	hundredths := make([]int64, 0, len(entries))
	for _, e := range entries {
		if err := r.Store.UpsertDay(ctx, userID, e.Date, e.Hundredths, source); err != nil {
			if errors.Is(err, store.ErrInvalidRecord) {
				return payroll.Summary{}, err
			}
			return payroll.Summary{}, persistError{err}
		}
		hundredths = append(hundredths, e.Hundredths)
	}
	return payroll.Compute(hundredths, r.RateCents)
}

// monthSummary computes the reply for /summary over one calendar month.
func (r *Router) monthSummary(ctx context.Context, userID int64, month time.Time) (string, error) {
	from := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)

	days, err := r.Store.RangeDays(ctx, userID, from, to)
	if err != nil {
		return "", persistError{err}
	}
	hundredths := make([]int64, 0, len(days))
	for _, d := range days {
		hundredths = append(hundredths, d.Hundredths)
	}
	sum, err := payroll.Compute(hundredths, r.RateCents)
	if err != nil {
		return "", err
	}
	return r.summaryText(from, len(days), sum), nil
}

// applyCorrection parses the user's corrected day lines and persists them
// as manual entries.
func (r *Router) applyCorrection(msg tgbotapi.Message) {
	cid := msg.Chat.ID
	sess := getSession(cid)

	entries, err := parseEntryLines(msg.Text)
	if err != nil {
		// Stay in Correcting; a typo shouldn't throw the flow away.
		r.send(cid, "I couldn't read that. One day per line, like:\n`2024-06-10 7.5`")
		return
	}
	sess.to(EventCorrectionReceived)

	sum, err := r.persistEntries(context.Background(), msg.From.ID, entries, store.SourceManual)
	if err != nil {
		r.replyError(cid, err)
		return
	}
	sess.to(EventPersisted)
	r.send(cid, r.loggedText(len(entries), sum))
}

// parseEntryLines reads "YYYY-MM-DD hours" pairs, one per line.
func parseEntryLines(text string) ([]extract.DayEntry, error) {
	var entries []extract.DayEntry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, eris.Errorf("bad line %q", line)
		}
		date, err := time.Parse("2006-01-02", fields[0])
		if err != nil {
			return nil, eris.Wrapf(err, "bad date in %q", line)
		}
		hundredths, err := payroll.ParseHours(fields[1])
		if err != nil {
			return nil, eris.Wrapf(err, "bad hours in %q", line)
		}
		entries = append(entries, extract.DayEntry{Date: date, Hundredths: hundredths})
	}
	if len(entries) == 0 {
		return nil, eris.New("no entries")
	}
	return entries, nil
}
