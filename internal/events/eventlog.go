// Package events records the history of economy actions taken in a session.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypePing            EventType = "PING"
	EventTypeGeneratorBought EventType = "GENERATOR_BOUGHT"
	EventTypeUpgradeBought   EventType = "UPGRADE_BOUGHT"
	EventTypeVenture         EventType = "VENTURE_RESOLVED"
	EventTypeIgnite          EventType = "BEACON_IGNITED"
	EventTypeSaved           EventType = "GAME_SAVED"
	EventTypeLoaded          EventType = "GAME_LOADED"
	EventTypeReset           EventType = "GAME_RESET"
)

// DefaultRetention is the number of events kept in memory.
const DefaultRetention = 1000

// GameEvent represents an immutable record of an action in the game.
type GameEvent struct {
	Seq       uint64      `json:"seq"`
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`
	Message   string      `json:"message"`
	Payload   interface{} `json:"payload,omitempty"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// EventLog is the in-memory append-only log of game events. Only the most
// recent events are retained; the persister, when set, keeps the full
// history.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	nextSeq   uint64
	retention int
	persister EventPersister
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister) *EventLog {
	return &EventLog{
		events:    make([]GameEvent, 0),
		retention: DefaultRetention,
		persister: persister,
	}
}

// SetRetention changes how many events are kept in memory.
func (el *EventLog) SetRetention(n int) {
	if n <= 0 {
		return
	}
	el.mu.Lock()
	defer el.mu.Unlock()
	el.retention = n
	el.trim()
}

// Append assigns a sequence number, an ID and a timestamp when missing, and
// adds the event to the log. The returned error comes from the persister;
// the event is kept in memory regardless.
func (el *EventLog) Append(event GameEvent) (GameEvent, error) {
	el.mu.Lock()
	el.nextSeq++
	event.Seq = el.nextSeq
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	el.events = append(el.events, event)
	el.trim()
	el.mu.Unlock()

	if el.persister != nil {
		if err := el.persister.Append(event); err != nil {
			return event, err
		}
	}
	return event, nil
}

func (el *EventLog) trim() {
	if over := len(el.events) - el.retention; over > 0 {
		el.events = append([]GameEvent(nil), el.events[over:]...)
	}
}

// Since returns retained events with a sequence number greater than seq.
func (el *EventLog) Since(seq uint64) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Seq > seq {
			result = append(result, e)
		}
	}
	return result
}

// Recent returns up to limit of the newest retained events, oldest first.
// An empty eventType matches every type.
func (el *EventLog) Recent(limit int, eventType EventType) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for i := len(el.events) - 1; i >= 0 && (limit <= 0 || len(result) < limit); i-- {
		e := el.events[i]
		if eventType == "" || e.Type == eventType {
			result = append(result, e)
		}
	}
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}

// Replay returns a copy of the retained history.
func (el *EventLog) Replay() []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return append([]GameEvent(nil), el.events...)
}

// LastSeq is the sequence number of the newest event, or 0.
func (el *EventLog) LastSeq() uint64 {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.nextSeq
}
