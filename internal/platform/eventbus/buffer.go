package eventbus

import "context"

// Buffer queues events raised during a transaction. txrunner flushes it to
// the real Bus only after a successful commit and discards it on rollback,
// so collaborators never observe an event for state that didn't stick.
type Buffer struct {
	events []Event
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Publish(event Event) {
	b.events = append(b.events, event)
}

// Flush sends every buffered event to bus in order. A nil bus is treated as
// a no-op bus.
func (b *Buffer) Flush(ctx context.Context, bus Bus) {
	if bus == nil {
		bus = NewNoopBus()
	}
	for _, event := range b.events {
		bus.Publish(ctx, event)
	}
}
