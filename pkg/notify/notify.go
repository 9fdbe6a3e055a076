// Package notify is a small status channel for surfacing loading, success and
// error states of long running operations to any number of observers.
package notify

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindLoading Kind = "loading"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Infinite keeps a notification until it is dismissed explicitly.
const Infinite time.Duration = -1

type Notification struct {
	ID        string        `json:"id"`
	Kind      Kind          `json:"kind"`
	Message   string        `json:"message"`
	TTL       time.Duration `json:"ttl"`
	CreatedAt time.Time     `json:"created_at"`
}

type EventType string

const (
	EventEmitted   EventType = "emitted"
	EventDismissed EventType = "dismissed"
)

type Event struct {
	Type         EventType    `json:"type"`
	Notification Notification `json:"notification"`
}

// Observer receives events synchronously and in emission order. It must not
// call back into the Hub.
type Observer interface {
	Observe(e Event)
}

type ObserverFunc func(e Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

type entry struct {
	n     Notification
	seq   uint64
	timer *time.Timer
}

type Hub struct {
	mu        sync.Mutex
	active    map[string]*entry
	seq       uint64
	observers map[uint64]Observer
	nextObs   uint64
	errorTTL  time.Duration
	now       func() time.Time
}

func (h *Hub) NotifyLoading(message string, ttl time.Duration) string {
	return h.emit(KindLoading, message, ttl)
}

func (h *Hub) NotifySuccess(message string, ttl time.Duration) string {
	return h.emit(KindSuccess, message, ttl)
}

func (h *Hub) NotifyError(message string) string {
	return h.emit(KindError, message, h.errorTTL)
}

// Dismiss removes a notification. Unknown or already dismissed ids are ignored.
func (h *Hub) Dismiss(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.active[id]
	if !ok {
		return
	}

	if e.timer != nil {
		e.timer.Stop()
	}
	delete(h.active, id)

	h.publish(Event{Type: EventDismissed, Notification: e.n})
}

// Active returns the notifications currently shown, oldest first.
func (h *Hub) Active() []Notification {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.activeLocked()
}

func (h *Hub) Subscribe(o Observer) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.subscribeLocked(o)
}

// SubscribeWithSnapshot registers o and returns the notifications active at
// that moment. Events delivered to o happen strictly after the snapshot, so
// replaying the snapshot and then the events neither repeats nor reorders
// anything.
func (h *Hub) SubscribeWithSnapshot(o Observer) (snapshot []Notification, unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.activeLocked(), h.subscribeLocked(o)
}

func (h *Hub) activeLocked() []Notification {
	entries := make([]*entry, 0, len(h.active))
	for _, e := range h.active {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b *entry) int {
		return cmp.Compare(a.seq, b.seq)
	})

	out := make([]Notification, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.n)
	}

	return out
}

func (h *Hub) subscribeLocked(o Observer) (unsubscribe func()) {
	id := h.nextObs
	h.nextObs++
	h.observers[id] = o

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.observers, id)
	}
}

func (h *Hub) emit(kind Kind, message string, ttl time.Duration) string {
	if ttl == 0 {
		ttl = Infinite
	}

	n := Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		TTL:       ttl,
		CreatedAt: h.now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	e := &entry{n: n, seq: h.seq}
	if ttl > 0 {
		e.timer = time.AfterFunc(ttl, func() { h.Dismiss(n.ID) })
	}
	h.active[n.ID] = e

	h.publish(Event{Type: EventEmitted, Notification: n})

	return n.ID
}

// publish must be called with h.mu held so that every observer sees events
// in the order they happened.
func (h *Hub) publish(e Event) {
	ids := make([]uint64, 0, len(h.observers))
	for id := range h.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		h.observers[id].Observe(e)
	}
}

// NewHub creates a hub. errorTTL applies to error notifications; zero or
// Infinite keeps them until dismissed.
func NewHub(errorTTL time.Duration) *Hub {
	return &Hub{
		active:    make(map[string]*entry),
		observers: make(map[uint64]Observer),
		errorTTL:  errorTTL,
		now:       time.Now,
	}
}
