// Package events provides the notification sink of the simulation: an append-only log of
// everything that happened to a player's economy, with observers for live fan-out.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a notification.
type EventType string

const (
	EventTypeCompanyCreated     EventType = "COMPANY_CREATED"
	EventTypeCompanyRemoved     EventType = "COMPANY_REMOVED"
	EventTypeCompanyUpgraded    EventType = "COMPANY_UPGRADED"
	EventTypeEmployeeHired      EventType = "EMPLOYEE_HIRED"
	EventTypeEmployeeDismissed  EventType = "EMPLOYEE_DISMISSED"
	EventTypeEmployeeTrained    EventType = "EMPLOYEE_TRAINED"
	EventTypeIncomeSettled      EventType = "INCOME_SETTLED"
	EventTypeSkillPurchased     EventType = "SKILL_PURCHASED"
	EventTypeDownloadProgress   EventType = "DOWNLOAD_PROGRESS"
	EventTypeDownloadCompleted  EventType = "DOWNLOAD_COMPLETED"
	EventTypeDownloadCancelled  EventType = "DOWNLOAD_CANCELLED"
	EventTypeComputingAllocated EventType = "COMPUTING_ALLOCATED"
	EventTypeJobStarted         EventType = "JOB_STARTED"
	EventTypeJobResigned        EventType = "JOB_RESIGNED"
	EventTypeSalaryPaid         EventType = "SALARY_PAID"
	EventTypeStorageWarning     EventType = "STORAGE_WARNING"
	EventTypeMoodApplied        EventType = "MOOD_APPLIED"
	EventTypeResumePublished    EventType = "RESUME_PUBLISHED"
	EventTypeResumeWithdrawn    EventType = "RESUME_WITHDRAWN"
	EventTypePlayerLevelUp      EventType = "PLAYER_LEVEL_UP"
	EventTypeCapacityUpgraded   EventType = "CAPACITY_UPGRADED"
	EventTypeCurrencyCredited   EventType = "CURRENCY_CREDITED"
	EventTypeTickCompleted      EventType = "TICK_COMPLETED"
)

// GameEvent is an immutable record of something that happened to a player.
type GameEvent struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	ActorID    string    `json:"actor_id"`  // player the event belongs to
	TargetID   string    `json:"target_id"` // company, employee, skill, job slot... (optional)
	Payload    any       `json:"payload"`
	TickNumber int64     `json:"tick_number"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// Observer receives every appended event. Observers must not block.
type Observer func(GameEvent)

// Option configures an EventLog.
type Option func(*EventLog)

// WithCapacity bounds the in-memory history; older events are dropped once it is exceeded.
// Persisted events are unaffected.
func WithCapacity(n int) Option {
	return func(el *EventLog) { el.capacity = n }
}

// WithPersistErrorHandler is called when the persister fails.
func WithPersistErrorHandler(fn func(GameEvent, error)) Option {
	return func(el *EventLog) { el.onPersistErr = fn }
}

// EventLog is the in-memory append-only log of notifications.
type EventLog struct {
	mu           sync.RWMutex
	events       []GameEvent
	capacity     int
	persister    EventPersister
	onPersistErr func(GameEvent, error)
	observers    map[int]Observer
	nextObserver int
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister, opts ...Option) *EventLog {
	el := &EventLog{
		events:    make([]GameEvent, 0),
		persister: persister,
		observers: make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(el)
	}
	return el
}

// Append adds a new event to the log, writes it through to the persister and notifies observers.
// Missing IDs and timestamps are filled in.
func (el *EventLog) Append(event GameEvent) GameEvent {
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	el.mu.Lock()
	el.events = append(el.events, event)
	if el.capacity > 0 && len(el.events) >= 2*el.capacity {
		el.events = append(make([]GameEvent, 0, 2*el.capacity), el.events[len(el.events)-el.capacity:]...)
	}
	observers := make([]Observer, 0, len(el.observers))
	for _, o := range el.observers {
		observers = append(observers, o)
	}
	el.mu.Unlock()

	if el.persister != nil {
		if err := el.persister.Append(event); err != nil && el.onPersistErr != nil {
			el.onPersistErr(event, err)
		}
	}
	for _, o := range observers {
		o(event)
	}
	return event
}

// Subscribe registers an observer and returns a function that removes it.
func (el *EventLog) Subscribe(o Observer) (unsubscribe func()) {
	el.mu.Lock()
	defer el.mu.Unlock()
	id := el.nextObserver
	el.nextObserver++
	el.observers[id] = o
	return func() {
		el.mu.Lock()
		defer el.mu.Unlock()
		delete(el.observers, id)
	}
}

// GetByActor returns all retained events of a player.
func (el *EventLog) GetByActor(actorID string) []GameEvent {
	return el.filter(func(e GameEvent) bool { return e.ActorID == actorID })
}

// GetByType returns all retained events of one type.
func (el *EventLog) GetByType(t EventType) []GameEvent {
	return el.filter(func(e GameEvent) bool { return e.Type == t })
}

// Since returns retained events of a player strictly after ts.
func (el *EventLog) Since(actorID string, ts time.Time) []GameEvent {
	return el.filter(func(e GameEvent) bool { return e.ActorID == actorID && e.Timestamp.After(ts) })
}

// Replay returns a copy of the retained history.
func (el *EventLog) Replay() []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	window := el.retained()
	out := make([]GameEvent, len(window))
	copy(out, window)
	return out
}

// Len is the number of retained events.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.retained())
}

func (el *EventLog) filter(keep func(GameEvent) bool) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.retained() {
		if keep(e) {
			result = append(result, e)
		}
	}
	return result
}

// retained is the visible history. The backing slice grows to twice the capacity before it is
// compacted, so appends stay amortized O(1). Callers hold el.mu.
func (el *EventLog) retained() []GameEvent {
	if el.capacity > 0 && len(el.events) > el.capacity {
		return el.events[len(el.events)-el.capacity:]
	}
	return el.events
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
