package monitoring

import "sync"

// Topic names a change-notification channel.
type Topic string

const (
	// TopicMetricsUpdated fires after every completed refresh, carrying
	// the new Summary snapshot.
	TopicMetricsUpdated Topic = "metrics_updated"

	// TopicAlertTriggered fires when an endpoint's alert set changes and
	// is non-empty, carrying that endpoint's health.Metrics.
	TopicAlertTriggered Topic = "alert_triggered"

	// TopicExecutionCompleted fires after each delivery attempt is
	// logged, carrying the recorded delivery.Event.
	TopicExecutionCompleted Topic = "execution_completed"
)

// Handler receives published payloads for one topic.
type Handler func(payload any)

// Subscription identifies one registered handler for later removal.
type Subscription uint64

// Hub is a minimal in-process publish/subscribe broker. Handlers run
// synchronously on the publishing goroutine and must not block.
type Hub struct {
	mu   sync.RWMutex
	subs map[Topic]map[Subscription]Handler
	next Subscription
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[Topic]map[Subscription]Handler)}
}

// On registers a handler for a topic and returns its subscription token.
func (h *Hub) On(topic Topic, fn Handler) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[Subscription]Handler)
	}
	h.subs[topic][h.next] = fn
	return h.next
}

// Off removes a previously registered handler. Removing an unknown
// subscription is a no-op.
func (h *Hub) Off(topic Topic, sub Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.subs[topic], sub)
}

// Publish delivers payload to every handler registered for the topic.
// Handlers are invoked outside the hub lock so they may subscribe or
// unsubscribe reentrantly.
func (h *Hub) Publish(topic Topic, payload any) {
	h.mu.RLock()
	handlers := make([]Handler, 0, len(h.subs[topic]))
	for _, fn := range h.subs[topic] {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(payload)
	}
}
