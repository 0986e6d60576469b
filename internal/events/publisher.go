package events

import (
	"context"
	"sync"
	"time"
)

// Topics carrying domain events.
const (
	TopicUserEvents = "user_events"
	TopicTagEvents  = "tag_events"
)

// Event types.
const (
	TypeUserRegistered = "user.registered"
	TypeUserDeleted    = "user.deleted"
	TypeTagCreated     = "tag.created"
	TypeTagLinked      = "tag.linked"
	TypeTagUnlinked    = "tag.unlinked"
	TypeTagDeleted     = "tag.deleted"
)

// Event is a domain fact emitted after a successful mutation.
type Event struct {
	Topic      string         `json:"-"`
	Key        string         `json:"-"`
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewEvent stamps an event with the current UTC time.
func NewEvent(topic string, eventType string, key string, attributes map[string]any) Event {
	return Event{
		Topic:      topic,
		Key:        key,
		Type:       eventType,
		Attributes: attributes,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers events. Implementations must not block the caller on broker availability.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish discards the event.
func (NopPublisher) Publish(ctx context.Context, event Event) error {
	return nil
}

// Close does nothing.
func (NopPublisher) Close() error {
	return nil
}

// MemoryPublisher keeps published events in memory; intended for tests and dev.
type MemoryPublisher struct {
	mutex  sync.Mutex
	events []Event
}

// NewMemoryPublisher constructs an empty in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish records the event.
func (publisher *MemoryPublisher) Publish(ctx context.Context, event Event) error {
	publisher.mutex.Lock()
	defer publisher.mutex.Unlock()
	publisher.events = append(publisher.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (publisher *MemoryPublisher) Events() []Event {
	publisher.mutex.Lock()
	defer publisher.mutex.Unlock()
	clone := make([]Event, len(publisher.events))
	copy(clone, publisher.events)
	return clone
}

// EventsOfType returns recorded events matching eventType.
func (publisher *MemoryPublisher) EventsOfType(eventType string) []Event {
	publisher.mutex.Lock()
	defer publisher.mutex.Unlock()
	matched := make([]Event, 0)
	for _, event := range publisher.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// Close does nothing.
func (publisher *MemoryPublisher) Close() error {
	return nil
}
