package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingCreated       = "booking_created"
	EventBookingConfirmed     = "booking_confirmed"
	EventBookingCancelled     = "booking_cancelled"
	EventRescheduleRequested  = "reschedule_requested"
	EventRescheduleResponded  = "reschedule_responded"
	EventApplicationSubmitted = "application_submitted"
	EventApplicationReviewed  = "application_reviewed"
	EventCouponChanged        = "coupon_changed"

	// AllEvents subscribes a handler to every event type.
	AllEvents = "*"
)

// BookingEventPayload describes the minimal booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID      string    `json:"booking_id"`
	GuestID        string    `json:"guest_id"`
	HostID         string    `json:"host_id"`
	ExperienceID   string    `json:"experience_id"`
	Status         string    `json:"status"`
	Date           time.Time `json:"date"`
	TotalPrice     int64     `json:"total_price"`
	DiscountAmount int64     `json:"discount_amount,omitempty"`
	CouponID       string    `json:"coupon_id,omitempty"`
	ChangedBy      string    `json:"changed_by,omitempty"`
}

// ApplicationEventPayload describes a host application review outcome.
type ApplicationEventPayload struct {
	ApplicationID string `json:"application_id"`
	UserID        string `json:"user_id"`
	Status        string `json:"status"`
	ExperienceID  string `json:"experience_id,omitempty"`
	ReviewedBy    string `json:"reviewed_by,omitempty"`
}

// CouponEventPayload describes an administrative coupon change.
type CouponEventPayload struct {
	Code      string `json:"code"`
	Deleted   bool   `json:"deleted,omitempty"`
	ChangedBy string `json:"changed_by"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type, or for AllEvents.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	handlers = append(handlers, b.subscribers[AllEvents]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}

	b.Publish(&event)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
