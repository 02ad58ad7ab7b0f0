package table

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Class of a subscription. A table holds at most one subscription per
// class.
type Class int

// subscription classes
const (
	RegisterSync Class = iota
	CounterSync
	HitStateUpdate
	IdleTimeout
	PortStatus
	SelectorUpdate
)

var classNames = map[Class]string{
	RegisterSync:   "register_sync",
	CounterSync:    "counter_sync",
	HitStateUpdate: "hit_state_update",
	IdleTimeout:    "idle_timeout",
	PortStatus:     "port_status",
	SelectorUpdate: "selector_update",
}

func (c Class) String() string {
	if name, found := classNames[c]; found {
		return name
	}
	return "unknown"
}

// OneShot reports whether the subscription ends after its first delivery.
// Operation completions are delivered once, notifications until the
// subscription is removed.
func (c Class) OneShot() bool {
	return c == RegisterSync || c == CounterSync || c == HitStateUpdate
}

// Subscription to the callbacks of one class.
type Subscription struct {
	ID         uuid.UUID
	Class      Class
	Created    time.Time
	Deliveries uint64
}

// Subscriptions holds the callback subscriptions of a table.
type Subscriptions struct {
	sync.Mutex
	slots map[Class]*Subscription
}

// NewSubscriptions returns an empty set of subscriptions.
func NewSubscriptions() *Subscriptions {
	return &Subscriptions{slots: make(map[Class]*Subscription)}
}

// add reserves the slot of class c.
func (s *Subscriptions) add(c Class) (uuid.UUID, error) {
	s.Lock()
	defer s.Unlock()
	if sub, found := s.slots[c]; found {
		return uuid.Nil, errors.Wrapf(ErrAlreadyPending, "%s (%s)", c, sub.ID)
	}
	sub := &Subscription{ID: uuid.New(), Class: c, Created: time.Now()}
	s.slots[c] = sub
	return sub.ID, nil
}

// deliver reports whether a callback of subscription id must still be
// delivered, and ends one shot subscriptions.
func (s *Subscriptions) deliver(c Class, id uuid.UUID) bool {
	s.Lock()
	defer s.Unlock()
	sub, found := s.slots[c]
	if !found || sub.ID != id {
		return false
	}
	sub.Deliveries++
	if c.OneShot() {
		delete(s.slots, c)
	}
	return true
}

func (s *Subscriptions) remove(c Class, id uuid.UUID) {
	s.Lock()
	defer s.Unlock()
	if sub, found := s.slots[c]; found && sub.ID == id {
		delete(s.slots, c)
	}
}

// Pending reports whether class c has a subscription.
func (s *Subscriptions) Pending(c Class) bool {
	s.Lock()
	defer s.Unlock()
	_, found := s.slots[c]
	return found
}

// Get returns a copy of the subscription of class c.
func (s *Subscriptions) Get(c Class) (Subscription, bool) {
	s.Lock()
	defer s.Unlock()
	if sub, found := s.slots[c]; found {
		return *sub, true
	}
	return Subscription{}, false
}

// Unsubscribe removes the subscription of class c. Callbacks the backend
// delivers afterwards are dropped.
func (s *Subscriptions) Unsubscribe(c Class) bool {
	s.Lock()
	defer s.Unlock()
	_, found := s.slots[c]
	delete(s.slots, c)
	return found
}

// List returns a copy of every subscription.
func (s *Subscriptions) List() []Subscription {
	s.Lock()
	defer s.Unlock()
	out := make([]Subscription, 0, len(s.slots))
	for c := RegisterSync; c <= SelectorUpdate; c++ {
		if sub, found := s.slots[c]; found {
			out = append(out, *sub)
		}
	}
	return out
}
