// Package announce defines the one-way screen-reader announcement channel.
// The engine pushes a message after every state-changing operation and never
// depends on delivery succeeding.
package announce

import (
	"log"
	"sync"
)

// Priority controls how urgently assistive technology relays a message.
type Priority string

const (
	// PriorityPolite queues the message behind current speech.
	PriorityPolite Priority = "polite"
	// PriorityAssertive interrupts current speech; used for failures.
	PriorityAssertive Priority = "assertive"
)

// Announcer is the delivery sink. Implementations must not block and must
// swallow their own delivery failures.
type Announcer interface {
	Announce(message string, priority Priority)
}

// Func adapts a function to the Announcer interface.
type Func func(message string, priority Priority)

// Announce implements Announcer.
func (f Func) Announce(message string, priority Priority) {
	f(message, priority)
}

// Logger announces through the process log, the default sink for headless
// runs where no assistive surface is attached.
type Logger struct{}

// Announce implements Announcer.
func (Logger) Announce(message string, priority Priority) {
	log.Printf("announce [%s] %s", priority, message)
}

// Message is one recorded announcement.
type Message struct {
	Text     string
	Priority Priority
}

// Buffer retains announcements so transports can drain them per operation.
// It is safe for concurrent use.
type Buffer struct {
	mu       sync.Mutex
	messages []Message
}

// Announce implements Announcer.
func (b *Buffer) Announce(message string, priority Priority) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, Message{Text: message, Priority: priority})
}

// Drain returns all buffered announcements and clears the buffer.
func (b *Buffer) Drain() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	drained := b.messages
	b.messages = nil
	return drained
}
