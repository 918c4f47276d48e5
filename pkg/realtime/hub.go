package realtime

import (
	"sync"

	"github.com/gofiber/fiber/v2/log"
)

// Transport is the publish side the propagation pipeline depends on. It is
// constructed once at startup and injected; nothing in the codebase reaches
// for a process-wide publish handle.
type Transport interface {
	EmitToRoom(machineID string, event string, data any)
	Broadcast(event string, data any)
}

type (
	// Subscription is one connected client's receive end. A subscription is
	// always in the global broadcast set and joins machine rooms on top.
	// Its own mutex orders deliveries against the channel close in
	// Unregister; the hub lock only guards topic membership.
	Subscription struct {
		ch     chan Event
		topics map[string]bool

		mu     sync.Mutex
		closed bool
	}

	// Hub is a topic-keyed fan-out: one room per machine plus an unscoped
	// broadcast topic. Slow consumers are dropped rather than blocking the
	// publisher; a client that missed events recovers via request-data.
	Hub struct {
		mu   sync.RWMutex
		subs map[string]map[*Subscription]bool // topic -> set of subscriptions
	}
)

const topicGlobal = "global"

func topicMachine(machineID string) string { return "machine:" + machineID }

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]bool)}
}

// Register creates a subscription that receives every broadcast event.
func (h *Hub) Register(buf int) *Subscription {
	if buf <= 0 {
		buf = 32
	}
	sub := &Subscription{
		ch:     make(chan Event, buf),
		topics: map[string]bool{topicGlobal: true},
	}
	h.mu.Lock()
	h.add(topicGlobal, sub)
	h.mu.Unlock()
	return sub
}

// Unregister removes the subscription from every topic and closes its channel.
// A publisher that already snapshotted the subscription may still attempt a
// delivery after this returns; offer checks the closed flag under the
// subscription lock so that delivery is skipped instead of panicking.
func (h *Hub) Unregister(sub *Subscription) {
	h.mu.Lock()
	for topic := range sub.topics {
		h.remove(topic, sub)
	}
	sub.topics = map[string]bool{}
	h.mu.Unlock()

	sub.mu.Lock()
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
	sub.mu.Unlock()
}

// JoinRoom subscribes the connection to one machine's events.
func (h *Hub) JoinRoom(machineID string, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	topic := topicMachine(machineID)
	sub.topics[topic] = true
	h.add(topic, sub)
}

// LeaveRoom drops the connection from one machine's events.
func (h *Hub) LeaveRoom(machineID string, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	topic := topicMachine(machineID)
	delete(sub.topics, topic)
	h.remove(topic, sub)
}

func (h *Hub) add(topic string, sub *Subscription) {
	set := h.subs[topic]
	if set == nil {
		set = make(map[*Subscription]bool)
		h.subs[topic] = set
	}
	set[sub] = true
}

func (h *Hub) remove(topic string, sub *Subscription) {
	if set, ok := h.subs[topic]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, topic)
		}
	}
}

func (h *Hub) emit(topic string, ev Event) {
	h.mu.RLock()
	set := h.subs[topic]
	targets := make([]*Subscription, 0, len(set))
	for sub := range set {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		if !sub.offer(ev) {
			log.Warnf("realtime: dropping %s event for slow consumer on %s", ev.Type, topic)
		}
	}
}

// EmitToRoom publishes an event to every client joined to the machine's room.
func (h *Hub) EmitToRoom(machineID string, event string, data any) {
	h.emit(topicMachine(machineID), Event{Type: event, Data: data})
}

// Broadcast publishes an event to every connected client regardless of room.
func (h *Hub) Broadcast(event string, data any) {
	h.emit(topicGlobal, Event{Type: event, Data: data})
}

// C is the subscription's receive channel; it is closed on Unregister.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Send delivers a one-shot event to this connection only, used for the
// request-data snapshot replies.
func (s *Subscription) Send(event string, data any) {
	if !s.offer(Event{Type: event, Data: data}) {
		log.Warnf("realtime: dropping direct %s event for slow consumer", event)
	}
}

// offer hands the event to the subscription unless its buffer is full. An
// already-closed subscription swallows the event; that is a disconnect, not a
// slow consumer.
func (s *Subscription) offer(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}
