package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelJSON(t *testing.T) {
	res, err := ParseModelJSON(`{"found":true,"days":[
		{"date":"2024-06-10","hours":7},
		{"date":"2024-06-11","hours":6.5}
	],"note":""}`)
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), res.Entries[0].Date)
	assert.Equal(t, int64(700), res.Entries[0].Hundredths)
	assert.Equal(t, int64(650), res.Entries[1].Hundredths)
	assert.Empty(t, res.Rejected)
}

func TestParseModelJSONDropsMalformedPairs(t *testing.T) {
	// One valid pair and one with negative hours: the bad one is flagged,
	// not fatal to the batch.
	res, err := ParseModelJSON(`{"found":true,"days":[
		{"date":"2024-06-10","hours":7},
		{"date":"2024-06-11","hours":-3}
	]}`)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "2024-06-11", res.Rejected[0].Date)
	assert.Equal(t, "invalid hours", res.Rejected[0].Reason)
}

func TestParseModelJSONRejectsBadDates(t *testing.T) {
	res, err := ParseModelJSON(`{"found":true,"days":[
		{"date":"10.06.2024","hours":7},
		{"date":"2024-06-11","hours":8}
	]}`)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "invalid date", res.Rejected[0].Reason)
}

func TestParseModelJSONAllInvalid(t *testing.T) {
	res, err := ParseModelJSON(`{"found":true,"days":[{"date":"???","hours":-1}]}`)
	assert.ErrorIs(t, err, ErrNoEntries)
	assert.Len(t, res.Rejected, 1)
}

func TestParseModelJSONEmployeeNotFound(t *testing.T) {
	_, err := ParseModelJSON(`{"found":false,"days":[],"note":"no such row"}`)
	assert.ErrorIs(t, err, ErrNoEntries)
}

func TestParseModelJSONGarbage(t *testing.T) {
	_, err := ParseModelJSON(`the schedule shows 8 hours on Monday`)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoEntries)
}

func TestParseModelJSONStripsCodeFence(t *testing.T) {
	res, err := ParseModelJSON("```json\n{\"found\":true,\"days\":[{\"date\":\"2024-06-10\",\"hours\":\"7.5\"}]}\n```")
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, int64(750), res.Entries[0].Hundredths)
}

func TestMarshalResultRoundTrip(t *testing.T) {
	orig := Result{Entries: []DayEntry{
		{Date: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), Hundredths: 700},
		{Date: time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC), Hundredths: 625},
	}}
	back, err := ParseModelJSON(string(MarshalResult(orig)))
	require.NoError(t, err)
	assert.Equal(t, orig.Entries, back.Entries)
}
