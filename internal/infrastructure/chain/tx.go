package chain

import (
	"sort"
	"sync"
	"time"

	"github.com/bernice-stories/bernice/internal/domain/events"
	"github.com/bernice-stories/bernice/internal/infrastructure/security"
)

// TxPhase is the observable state of a contract write.
type TxPhase string

const (
	PhaseAwaitingSignature    TxPhase = "awaiting_signature"
	PhaseAwaitingConfirmation TxPhase = "awaiting_confirmation"
	PhaseConfirmed            TxPhase = "confirmed"
	PhaseFailed               TxPhase = "failed"
)

// Terminal reports whether no further phase follows.
func (p TxPhase) Terminal() bool {
	return p == PhaseConfirmed || p == PhaseFailed
}

// TxRecord tracks one write from request to receipt.
type TxRecord struct {
	RequestID   string    `json:"requestId"`
	Action      string    `json:"action"`
	StoryID     string    `json:"storyId,omitempty"`
	Phase       TxPhase   `json:"phase"`
	TxHash      string    `json:"txHash,omitempty"`
	BlockNumber uint64    `json:"blockNumber,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

const maxTrackedTx = 500

// TxTracker keeps recent write records and broadcasts each phase change.
type TxTracker struct {
	records   map[string]*TxRecord
	publisher events.Publisher
	mu        sync.RWMutex
}

func NewTxTracker(publisher events.Publisher) *TxTracker {
	if publisher == nil {
		publisher = events.Discard
	}
	return &TxTracker{
		records:   make(map[string]*TxRecord),
		publisher: publisher,
	}
}

// Begin opens a record in the awaiting_signature phase.
func (t *TxTracker) Begin(action, storyID string) TxRecord {
	now := time.Now().UTC()
	rec := &TxRecord{
		RequestID: security.NewID("tx"),
		Action:    action,
		StoryID:   storyID,
		Phase:     PhaseAwaitingSignature,
		CreatedAt: now,
		UpdatedAt: now,
	}

	t.mu.Lock()
	t.records[rec.RequestID] = rec
	t.evictLocked()
	snapshot := *rec
	t.mu.Unlock()

	t.publish(snapshot)
	return snapshot
}

// Advance moves a record to phase. Terminal records are never reopened.
func (t *TxTracker) Advance(requestID string, phase TxPhase, update func(*TxRecord)) (TxRecord, bool) {
	t.mu.Lock()
	rec, ok := t.records[requestID]
	if !ok || rec.Phase.Terminal() {
		t.mu.Unlock()
		return TxRecord{}, false
	}
	rec.Phase = phase
	rec.UpdatedAt = time.Now().UTC()
	if update != nil {
		update(rec)
	}
	snapshot := *rec
	t.mu.Unlock()

	t.publish(snapshot)
	return snapshot, true
}

// Fail marks a record failed with a message.
func (t *TxTracker) Fail(requestID, message string) (TxRecord, bool) {
	return t.Advance(requestID, PhaseFailed, func(r *TxRecord) { r.Error = message })
}

func (t *TxTracker) Get(requestID string) (TxRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.records[requestID]
	if !ok {
		return TxRecord{}, false
	}
	return *rec, true
}

// List returns records newest first.
func (t *TxTracker) List() []TxRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]TxRecord, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (t *TxTracker) publish(rec TxRecord) {
	t.publisher.Publish(events.Event{
		Type:      events.TxStatus,
		Source:    events.SourceChain,
		StoryID:   rec.StoryID,
		Payload:   rec,
		Timestamp: rec.UpdatedAt,
	})
}

// evictLocked drops the oldest terminal records beyond the retention limit.
func (t *TxTracker) evictLocked() {
	if len(t.records) <= maxTrackedTx {
		return
	}
	terminal := make([]*TxRecord, 0, len(t.records))
	for _, rec := range t.records {
		if rec.Phase.Terminal() {
			terminal = append(terminal, rec)
		}
	}
	sort.Slice(terminal, func(i, j int) bool { return terminal[i].UpdatedAt.Before(terminal[j].UpdatedAt) })
	for _, rec := range terminal {
		if len(t.records) <= maxTrackedTx {
			return
		}
		delete(t.records, rec.RequestID)
	}
}
