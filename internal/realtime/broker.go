// Package realtime fans session events out to connected viewers, either
// within one process (Broker) or across processes through Redis pub/sub
// (RedisPublisher feeding a Relay on every instance).
package realtime

import (
	"context"
	"sync"
)

// Publisher delivers a message to every subscriber of a channel. Delivery is
// best-effort.
type Publisher interface {
	Publish(ctx context.Context, channel string, msg []byte) error
}

// Broker is an in-process pub/sub keyed by channel name.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives messages published on channel.
func (b *Broker) Subscribe(channel string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[chan []byte]struct{})
	}
	b.subs[channel][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes ch from the channel's subscribers.
func (b *Broker) Unsubscribe(channel string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[channel], ch)
	if len(b.subs[channel]) == 0 {
		delete(b.subs, channel)
	}
	b.mu.Unlock()
}

// Subscribers returns the number of local subscribers of channel.
func (b *Broker) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

// Publish hands msg to every local subscriber. Slow subscribers miss it.
func (b *Broker) Publish(_ context.Context, channel string, msg []byte) error {
	b.mu.RLock()
	for ch := range b.subs[channel] {
		select {
		case ch <- msg:
		default:
		}
	}
	b.mu.RUnlock()
	return nil
}
