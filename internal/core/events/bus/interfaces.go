package bus

import "time"

// EventBus is a synchronous, in-process pub/sub bus.
//
// Handlers subscribe by Event.Type() within a topic.
// PublishToTopic calls handlers in the caller goroutine and joins their errors.
// Observers receive delivery callbacks and enable metrics collection.
// All methods are safe for concurrent use.
type EventBus interface {
	// PublishToTopic delivers the event to subscribers within topic.
	PublishToTopic(topic string, event Event) error

	// SubscribeTopic registers a handler for eventType within topic.
	SubscribeTopic(topic, eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. A nil subscription is ignored.
	Unsubscribe(Subscription) error

	// CreateTopic declares a topic. Repeated declarations are no-ops.
	CreateTopic(name string) error
	// Topics returns a snapshot of known topics.
	Topics() []TopicInfo

	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
	// Metrics is only accumulated while at least one observer is registered.
	Metrics() Metrics
}

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
	Metadata() map[string]any
}

type (
	// EventHandler is invoked per delivered event.
	EventHandler func(event Event) error
)

// Subscription is a registered handler bound to an event type.
type Subscription interface {
	ID() string
	Topic() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// Observer is notified about deliveries.
type Observer interface {
	OnPublish(topic, eventType string, event Event)
	OnDelivered(topic, eventType string, handlers int, err error, durationMicros int64)
}

type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
	Topics            uint64
}

type TopicInfo struct {
	Name       string
	EventTypes int
	Subs       int
}
