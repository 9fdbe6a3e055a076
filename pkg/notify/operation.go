package notify

import (
	"sync"
	"time"
)

// Operation scopes notifications to one in-flight operation. All loading
// notifications it created are dismissed before its single terminal
// notification is emitted; later terminal calls are ignored.
type Operation struct {
	hub     *Hub
	mu      sync.Mutex
	loading []string
	done    bool
}

func (h *Hub) Begin() *Operation {
	return &Operation{hub: h}
}

func (o *Operation) Loading(message string, ttl time.Duration) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.done {
		return ""
	}

	id := o.hub.NotifyLoading(message, ttl)
	o.loading = append(o.loading, id)

	return id
}

func (o *Operation) Dismiss(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, l := range o.loading {
		if l == id {
			o.loading = append(o.loading[:i], o.loading[i+1:]...)
			break
		}
	}

	o.hub.Dismiss(id)
}

func (o *Operation) Succeed(message string, ttl time.Duration) string {
	return o.finish(func() string { return o.hub.NotifySuccess(message, ttl) })
}

func (o *Operation) Fail(message string) string {
	return o.finish(func() string { return o.hub.NotifyError(message) })
}

func (o *Operation) Done() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.done
}

func (o *Operation) finish(terminal func() string) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.done {
		return ""
	}
	o.done = true

	for _, id := range o.loading {
		o.hub.Dismiss(id)
	}
	o.loading = nil

	return terminal()
}
