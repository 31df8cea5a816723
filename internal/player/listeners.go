package player

import (
	"fmt"
	"log/slog"
)

// Listener is called for every event of a player.
type Listener func(Event)

// ListenerID identifies a registered listener.
type ListenerID uint64

type listenerEntry struct {
	id ListenerID
	fn Listener
}

// AddListener registers fn and returns an ID for RemoveListener.
func (p *Player) AddListener(fn Listener) ListenerID {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()
	p.nextListener++
	id := p.nextListener
	p.listeners = append(p.listeners, listenerEntry{id: id, fn: fn})
	return id
}

// RemoveListener unregisters a listener. Unknown IDs are ignored.
func (p *Player) RemoveListener(id ListenerID) {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()
	for i, l := range p.listeners {
		if l.id == id {
			p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
			return
		}
	}
}

// Subscribe creates a new event subscription. It is closed by Destroy.
func (p *Player) Subscribe() *Subscription {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()
	sub := newSubscription()
	if p.closed {
		sub.close()
		return sub
	}
	p.subs = append(p.subs, sub)
	return sub
}

// enqueueLocked queues ev for delivery. Callers hold p.mu and call flush
// after releasing it.
func (p *Player) enqueueLocked(ev Event) {
	p.eventsMu.Lock()
	p.events = append(p.events, ev)
	p.eventsMu.Unlock()
}

// flush delivers queued events in order. Only one goroutine delivers at a
// time; events queued by a listener during delivery are picked up by the
// same loop.
func (p *Player) flush() {
	p.eventsMu.Lock()
	if p.dispatching {
		p.eventsMu.Unlock()
		return
	}
	p.dispatching = true
	for len(p.events) > 0 {
		ev := p.events[0]
		p.events[0] = nil
		p.events = p.events[1:]
		p.eventsMu.Unlock()

		p.deliver(ev)

		p.eventsMu.Lock()
	}
	p.events = nil
	p.dispatching = false
	p.eventsMu.Unlock()
}

func (p *Player) deliver(ev Event) {
	p.listenersMu.Lock()
	listeners := make([]listenerEntry, len(p.listeners))
	copy(listeners, p.listeners)
	for _, sub := range p.subs {
		sub.send(ev)
	}
	p.listenersMu.Unlock()

	for _, l := range listeners {
		p.call(l, ev)
	}
}

func (p *Player) call(l listenerEntry, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("player: listener panicked",
				"player", p.id,
				"listener", l.id,
				"event", fmt.Sprintf("%T", ev),
				"panic", r,
			)
		}
	}()
	l.fn(ev)
}
