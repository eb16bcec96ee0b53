package telegram

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payroll-bot/internal/extract"
	"payroll-bot/internal/store"
)

// stubEngine resolves every image to a fixed result, standing in for the
// hosted model.
type stubEngine struct {
	res extract.Result
	err error
}

func (s *stubEngine) Name() string      { return "stub" }
func (s *stubEngine) GetModel() string  { return "stub-1" }
func (s *stubEngine) SetModel(string)   {}
func (s *stubEngine) Extract(context.Context, []byte, extract.Options) (extract.Result, error) {
	return s.res, s.err
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return &Router{
		Store:     st,
		RateCents: 3170,
		Currency:  "PLN",
		Employee:  "Jan Kowalski",
	}
}

func d(s string) time.Time {
	v, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestPersistThenSummarize(t *testing.T) {
	// The end-to-end ledger path: an extraction resolving to one day is
	// persisted as extracted, and the month summary prices it.
	r := newTestRouter(t)
	ctx := context.Background()

	eng := &stubEngine{res: extract.Result{
		Entries: []extract.DayEntry{{Date: d("2024-06-10"), Hundredths: 700}},
	}}
	res, err := eng.Extract(ctx, []byte("img"), extract.Options{})
	require.NoError(t, err)

	sum, err := r.persistEntries(ctx, 42, res.Entries, store.SourceExtracted)
	require.NoError(t, err)
	assert.Equal(t, int64(700), sum.TotalHundredths)
	assert.Equal(t, int64(22190), sum.TotalPayCents)

	days, err := r.Store.RangeDays(ctx, 42, d("2024-06-01"), d("2024-06-30"))
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, store.SourceExtracted, days[0].Source)

	text, err := r.monthSummary(ctx, 42, d("2024-06-01"))
	require.NoError(t, err)
	assert.Contains(t, text, "June 2024")
	assert.Contains(t, text, "Total hours: 7 h")
	assert.Contains(t, text, "221.90 PLN")
}

func TestPersistEntriesRejectsInvalid(t *testing.T) {
	r := newTestRouter(t)

	_, err := r.persistEntries(context.Background(), 42,
		[]extract.DayEntry{{Date: time.Time{}, Hundredths: 700}}, store.SourceManual)
	assert.ErrorIs(t, err, store.ErrInvalidRecord)
}

func TestMonthSummaryEmpty(t *testing.T) {
	r := newTestRouter(t)

	text, err := r.monthSummary(context.Background(), 42, d("2024-06-01"))
	require.NoError(t, err)
	assert.Contains(t, text, "Days logged: 0")
	assert.Contains(t, text, "Total payout: 0.00 PLN")
}

// deadlineEngine records the deadline it was called under.
type deadlineEngine struct {
	hasDeadline bool
	remaining   time.Duration
}

func (e *deadlineEngine) Name() string     { return "stub" }
func (e *deadlineEngine) GetModel() string { return "stub-1" }
func (e *deadlineEngine) SetModel(string)  {}
func (e *deadlineEngine) Extract(ctx context.Context, _ []byte, _ extract.Options) (extract.Result, error) {
	dl, ok := ctx.Deadline()
	e.hasDeadline = ok
	if ok {
		e.remaining = time.Until(dl)
	}
	return extract.Result{Entries: []extract.DayEntry{{Date: d("2024-06-10"), Hundredths: 700}}}, nil
}

// blockingEngine stalls until the context expires, like a hung endpoint.
type blockingEngine struct{}

func (e *blockingEngine) Name() string     { return "stub" }
func (e *blockingEngine) GetModel() string { return "stub-1" }
func (e *blockingEngine) SetModel(string)  {}
func (e *blockingEngine) Extract(ctx context.Context, _ []byte, _ extract.Options) (extract.Result, error) {
	<-ctx.Done()
	return extract.Result{}, ctx.Err()
}

func TestExtractOnceCarriesDeadline(t *testing.T) {
	r := newTestRouter(t)
	eng := &deadlineEngine{}

	_, err := r.extractOnce(context.Background(), eng, []byte("img"))
	require.NoError(t, err)
	require.True(t, eng.hasDeadline)
	assert.LessOrEqual(t, eng.remaining, extractTimeout)
}

func TestExtractOnceResolvesWhenEngineStalls(t *testing.T) {
	r := newTestRouter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.extractOnce(ctx, &blockingEngine{}, []byte("img"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandleUpdateIgnoresMessagesWithoutSender(t *testing.T) {
	// Channel posts have no From; they must be dropped before any handler
	// dereferences the sender.
	r := newTestRouter(t)
	upd := tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: 5},
		Text:      "/add 5",
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 4}},
	}}
	assert.NotPanics(t, func() { r.HandleUpdate(upd, Engines{}) })
}

func TestCachedResultRoundTrip(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()
	eng := &stubEngine{}

	_, ok := r.cachedResult(ctx, "hash", eng)
	assert.False(t, ok)

	res := extract.Result{Entries: []extract.DayEntry{{Date: d("2024-06-10"), Hundredths: 650}}}
	require.NoError(t, r.Store.SetCachedExtract(ctx, 1, "hash", eng.Name(), eng.GetModel(), extract.MarshalResult(res)))

	got, ok := r.cachedResult(ctx, "hash", eng)
	require.True(t, ok)
	assert.Equal(t, res.Entries, got.Entries)
}

func TestParseEntryLines(t *testing.T) {
	entries, err := parseEntryLines("2024-06-10 7.5\n\n2024-06-11 8")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(750), entries[0].Hundredths)
	assert.Equal(t, d("2024-06-11"), entries[1].Date)
}

func TestParseEntryLinesRejects(t *testing.T) {
	for _, in := range []string{"", "just text", "2024-06-10", "2024-06-10 7.5 extra", "10.06.2024 8", "2024-06-10 25"} {
		_, err := parseEntryLines(in)
		assert.Error(t, err, in)
	}
}

func TestConfirmTextListsEntriesAndRejects(t *testing.T) {
	r := newTestRouter(t)
	text := r.confirmText(extract.Result{
		Entries:  []extract.DayEntry{{Date: d("2024-06-10"), Hundredths: 800}},
		Rejected: []extract.RejectedEntry{{Date: "???", Hours: "-1", Reason: "invalid date"}},
	})
	assert.Contains(t, text, "2024-06-10 — 8 h")
	assert.Contains(t, text, "skipped (invalid date)")
	assert.Contains(t, text, "253.60 PLN")
}
