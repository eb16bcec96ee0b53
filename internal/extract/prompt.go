package extract

import "fmt"

// SystemPrompt builds the instruction sent with the schedule photo. The
// model must answer with strict JSON so the response survives Decode.
func SystemPrompt(opt Options) string {
	rateNote := ""
	if opt.RateHint != "" {
		rateNote = fmt.Sprintf("\nFor context only: the employee is paid %s per hour. This must not change what you extract.", opt.RateHint)
	}
	return fmt.Sprintf(`You are reading a PHOTO of a work-schedule table.
Find the row for the employee %q and extract the days they are scheduled to work.%s

Rules:
1) For every workday of that employee output the calendar date and the number of hours.
2) Dates must be ISO format YYYY-MM-DD. If the table shows only day numbers, derive the month and year from the table header.
3) Hours must be a non-negative decimal number (e.g. 8, 7.5). If the table shows a shift range like "6:00-14:00", convert it to hours.
4) Do NOT invent days. If a cell is empty, a day off, or unreadable, skip it.
5) If the employee is not present in the table, return "found": false.

Return STRICT JSON, nothing else:
{
  "found": boolean,
  "days": [{"date": "YYYY-MM-DD", "hours": number}],
  "note": string
}`, opt.EmployeeName, rateNote)
}
