package extract

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"payroll-bot/internal/payroll"
	"payroll-bot/internal/util"
)

// wireResponse is the shape every engine asks the model to produce.
type wireResponse struct {
	Found bool      `json:"found"`
	Days  []wireDay `json:"days"`
	Note  string    `json:"note"`
}

type wireDay struct {
	Date  string     `json:"date"`
	Hours flexNumber `json:"hours"`
}

// flexNumber tolerates models quoting numbers ("7.5" instead of 7.5).
type flexNumber string

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	var num json.Number
	if err := json.Unmarshal(b, &num); err == nil {
		*n = flexNumber(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*n = flexNumber(s)
		return nil
	}
	*n = ""
	return nil
}

func (n flexNumber) String() string { return string(n) }

func (n flexNumber) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("0"), nil
	}
	return []byte(n), nil
}

// ParseModelJSON validates a raw model answer against the expected shape.
// Malformed pairs are dropped and flagged; the call only fails when no
// valid pair remains.
func ParseModelJSON(raw string) (Result, error) {
	raw = util.StripCodeFences(raw)

	var wr wireResponse
	if err := json.Unmarshal([]byte(raw), &wr); err != nil {
		return Result{}, eris.Wrap(err, "extract: model returned invalid JSON")
	}
	if !wr.Found {
		return Result{Note: wr.Note}, eris.Wrap(ErrNoEntries, "employee not found in schedule")
	}

	res := Result{Note: wr.Note}
	for _, d := range wr.Days {
		date, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			res.Rejected = append(res.Rejected, RejectedEntry{
				Date: d.Date, Hours: d.Hours.String(), Reason: "invalid date",
			})
			continue
		}
		hundredths, err := payroll.ParseHours(d.Hours.String())
		if err != nil {
			res.Rejected = append(res.Rejected, RejectedEntry{
				Date: d.Date, Hours: d.Hours.String(), Reason: "invalid hours",
			})
			continue
		}
		res.Entries = append(res.Entries, DayEntry{Date: date, Hundredths: hundredths})
	}
	if len(res.Entries) == 0 {
		return res, eris.Wrap(ErrNoEntries, "all day entries failed validation")
	}
	return res, nil
}

// MarshalResult serializes a Result back to the wire shape for caching.
func MarshalResult(r Result) []byte {
	wr := wireResponse{Found: true, Note: r.Note, Days: make([]wireDay, 0, len(r.Entries))}
	for _, e := range r.Entries {
		wr.Days = append(wr.Days, wireDay{
			Date:  e.Date.Format("2006-01-02"),
			Hours: flexNumber(payroll.FormatHours(e.Hundredths)),
		})
	}
	b, _ := json.Marshal(wr)
	return b
}
