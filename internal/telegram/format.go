package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"payroll-bot/internal/extract"
	"payroll-bot/internal/payroll"
)

func confirmKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Save", "log_yes"),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Edit", "log_edit"),
		),
	)
	return &kb
}

// confirmText lists the extracted days with a payout preview.
func (r *Router) confirmText(res extract.Result) string {
	var b strings.Builder
	b.WriteString("Here's what I read from the schedule:\n\n")

	var hundredths []int64
	for _, e := range res.Entries {
		fmt.Fprintf(&b, "• %s — %s h\n", e.Date.Format("2006-01-02"), payroll.FormatHours(e.Hundredths))
		hundredths = append(hundredths, e.Hundredths)
	}
	for _, rej := range res.Rejected {
		fmt.Fprintf(&b, "• %s — skipped (%s)\n", rej.Date, rej.Reason)
	}
	if sum, err := payroll.Compute(hundredths, r.RateCents); err == nil {
		fmt.Fprintf(&b, "\nTotal: %s h ≈ %s %s\n", payroll.FormatHours(sum.TotalHundredths),
			payroll.FormatCents(sum.TotalPayCents), r.Currency)
	}
	b.WriteString("\nSave these entries?")
	return b.String()
}

func (r *Router) loggedText(days int, sum payroll.Summary) string {
	noun := "days"
	if days == 1 {
		noun = "day"
	}
	return fmt.Sprintf("✅ Logged %d %s, %s h total. Earnings: %s %s",
		days, noun, payroll.FormatHours(sum.TotalHundredths),
		payroll.FormatCents(sum.TotalPayCents), r.Currency)
}

func (r *Router) summaryText(month time.Time, days int, sum payroll.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Summary for %s\n", month.Format("January 2006"))
	fmt.Fprintf(&b, "Days logged: %d\n", days)
	fmt.Fprintf(&b, "Total hours: %s h\n", payroll.FormatHours(sum.TotalHundredths))
	fmt.Fprintf(&b, "Rate: %s %s/h\n", payroll.FormatCents(r.RateCents), r.Currency)
	b.WriteString("-------------------\n")
	fmt.Fprintf(&b, "Total payout: %s %s", payroll.FormatCents(sum.TotalPayCents), r.Currency)
	return b.String()
}

func startText() string {
	return "🚀 *AI Payroll Agent*\n\n" +
		"📸 Send a schedule photo to log hours\n" +
		"➕ /add <hours> [YYYY-MM-DD] — log hours manually\n" +
		"📊 /summary [YYYY-MM] — monthly hours and earnings\n" +
		"🗑 /delete <YYYY-MM-DD> — remove one day\n" +
		"🔧 /engine gemini|gpt [model] — switch the vision model\n" +
		"❤️ /health — check that everything is up"
}
