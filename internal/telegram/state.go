package telegram

import (
	"sync"
	"time"

	"payroll-bot/internal/extract"
)

const (
	// debounce is how long we wait for more photos of the same schedule
	// before processing the batch.
	debounce = 1200 * time.Millisecond
	// maxPixels caps the merged image before it goes to the model.
	maxPixels = 18_000_000
	// cacheMaxAge bounds reuse of stored extraction results.
	cacheMaxAge = 30 * 24 * time.Hour
	// extractTimeout bounds one model call; a stalled endpoint resolves
	// to an error instead of hanging the chat.
	extractTimeout = 60 * time.Second
)

// State is the per-chat position in the message pipeline.
type State int

const (
	StateAwaitingInput State = iota
	StateExtracting
	StateConfirming
	StateCorrecting
	StatePersisting
)

// Event advances the pipeline.
type Event int

const (
	EventPhotoReceived Event = iota
	EventExtracted
	EventConfirmed
	EventEditRequested
	EventCorrectionReceived
	EventPersisted
	EventFailed
)

// transition is the pure state function. Any failure, and any event that
// makes no sense in the current state, lands back at AwaitingInput so a
// chat can never get stuck mid-pipeline.
func transition(s State, ev Event) State {
	if ev == EventFailed {
		return StateAwaitingInput
	}
	switch {
	case s == StateAwaitingInput && ev == EventPhotoReceived:
		return StateExtracting
	case s == StateExtracting && ev == EventExtracted:
		return StateConfirming
	case s == StateConfirming && ev == EventConfirmed:
		return StatePersisting
	case s == StateConfirming && ev == EventEditRequested:
		return StateCorrecting
	case s == StateCorrecting && ev == EventCorrectionReceived:
		return StatePersisting
	case s == StatePersisting && ev == EventPersisted:
		return StateAwaitingInput
	default:
		return StateAwaitingInput
	}
}

// session holds the in-flight pipeline context for one chat.
type session struct {
	mu      sync.Mutex
	state   State
	userID  int64 // who sent the photo; ledger writes go under this id
	entries []extract.DayEntry

	// cache coordinates of the pending extraction
	imageHash string
	engine    string
	model     string
}

func (s *session) to(ev Event) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = transition(s.state, ev)
	return s.state
}

// reset abandons any pending confirmation, e.g. when a new photo arrives
// mid-flow.
func (s *session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAwaitingInput
	s.userID = 0
	s.entries = nil
	s.imageHash, s.engine, s.model = "", "", ""
}

func (s *session) current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

var sessions sync.Map // chatID -> *session

func getSession(chatID int64) *session {
	v, _ := sessions.LoadOrStore(chatID, &session{})
	return v.(*session)
}

// photoBatch collects photos of one schedule (albums arrive as separate
// updates) before they are merged and extracted.
type photoBatch struct {
	ChatID       int64
	UserID       int64
	MediaGroupID string

	mu     sync.Mutex
	images [][]byte
	timer  *time.Timer
	closed bool // taken for processing; late photos must start a new batch
}

var batches sync.Map // key -> *photoBatch
