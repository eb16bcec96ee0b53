// Package extract turns a schedule photo into structured (date, hours)
// day entries via a hosted vision model. Engines implement the call; this
// package owns the contract, the prompt and the response validation.
package extract

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNoEntries means the model answered but nothing usable came back:
	// the employee was not found or every pair failed validation.
	ErrNoEntries = errors.New("extract: no parseable day entries")
)

// DayEntry is one validated (date, hours) pair from the schedule.
type DayEntry struct {
	Date       time.Time
	Hundredths int64 // hours in hundredths
}

// RejectedEntry is a pair the model returned but validation dropped.
type RejectedEntry struct {
	Date   string
	Hours  string
	Reason string
}

// Result is the outcome of one extraction call. Rejected entries are
// reported, not fatal; the call fails only when Entries would be empty.
type Result struct {
	Entries  []DayEntry
	Rejected []RejectedEntry
	Note     string // free-form remark from the model, if any
}

// Options carries per-call parameters for an engine.
type Options struct {
	// EmployeeName is the row to look for in the schedule table.
	EmployeeName string
	// RateHint is the configured hourly rate, given to the model as
	// context only; it must never influence the extracted hours.
	RateHint string
	// ModelOverride replaces the engine's default model for this call.
	ModelOverride string
}

// Engine is one vision-model backend.
type Engine interface {
	Name() string
	GetModel() string
	SetModel(m string)
	Extract(ctx context.Context, image []byte, opt Options) (Result, error)
}

// Manager keeps the per-chat engine choice, falling back to a default.
type Manager struct {
	def Engine
	m   sync.Map // chatID -> Engine
}

func NewManager(defaultEngine Engine) *Manager {
	return &Manager{def: defaultEngine}
}

func (m *Manager) Get(chatID int64) Engine {
	if v, ok := m.m.Load(chatID); ok {
		return v.(Engine)
	}
	return m.def
}

func (m *Manager) Set(chatID int64, e Engine) {
	m.m.Store(chatID, e)
}
