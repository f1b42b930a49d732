package queue

import (
	"sync"

	"github.com/axonake/RANGERSTORE/pkg/logger"
)

type Subscription struct {
	C <-chan Event

	ch      chan Event
	orderID int64
	b       *broadcaster
	once    sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.b.unsubscribe(s)
	})
}

type broadcaster struct {
	mu     sync.Mutex
	subs   map[int64]map[*Subscription]struct{}
	last   map[int64]Event
	buffer int
}

func newBroadcaster(buffer int) *broadcaster {
	if buffer < 1 {
		buffer = 1
	}
	return &broadcaster{
		subs:   make(map[int64]map[*Subscription]struct{}),
		last:   make(map[int64]Event),
		buffer: buffer,
	}
}

func (b *broadcaster) subscribe(orderID int64) *Subscription {
	ch := make(chan Event, b.buffer)
	s := &Subscription{C: ch, ch: ch, orderID: orderID, b: b}

	b.mu.Lock()
	defer b.mu.Unlock()

	if ev, ok := b.last[orderID]; ok {
		ch <- ev
	}

	set, ok := b.subs[orderID]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[orderID] = set
	}
	set[s] = struct{}{}

	return s
}

func (b *broadcaster) unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.remove(s)
}

// remove must be called with b.mu held. The channel is closed only here,
// so a subscription is closed at most once.
func (b *broadcaster) remove(s *Subscription) {
	set, ok := b.subs[s.orderID]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}

	delete(set, s)
	close(s.ch)

	if len(set) == 0 {
		delete(b.subs, s.orderID)
	}
}

func (b *broadcaster) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.last[ev.OrderID] = ev

	for s := range b.subs[ev.OrderID] {
		select {
		case s.ch <- ev:
		default:
			logger.Log.Warn("dropping slow log subscriber", logger.Int64("order_id", ev.OrderID))
			b.remove(s)
		}
	}
}

func (b *broadcaster) forget(orderID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.last, orderID)
}

func (b *broadcaster) count(orderID int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs[orderID])
}
