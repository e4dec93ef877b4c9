package pubsub

import (
	"errors"
	"sync"
)

type Event interface {
}

type Publisher[E Event] interface {
	PublishEvent(*E) error
	AddSubscriber(Subscriber[E])
	RemoveSubscriber(Subscriber[E])
}

type Subscriber[E Event] interface {
	ConsumeEvent(*E) error
}

// SubscriberFunc adapts a plain function to a Subscriber. Use a pointer to it when the
// subscriber must be removed later, since funcs are not comparable.
type SubscriberFunc[E Event] func(*E) error

func (f SubscriberFunc[E]) ConsumeEvent(e *E) error {
	return f(e)
}

func Func[E Event](f func(*E) error) *SubscriberFunc[E] {
	sf := SubscriberFunc[E](f)
	return &sf
}

// SimplePublisher calls ConsumeEvent on each subscriber synchronously, in the order the
// subscribers were added. Publishing from several goroutines is safe; events from one
// goroutine are delivered in order, but there is no ordering across goroutines.
type SimplePublisher[E Event] struct {
	mu          sync.RWMutex
	subscribers []Subscriber[E]
}

func NewSimplePublisher[E Event]() *SimplePublisher[E] {
	return &SimplePublisher[E]{
		subscribers: make([]Subscriber[E], 0),
	}
}

// PublishEvent delivers e to every subscriber. A failing subscriber does not stop
// delivery to the others; all errors are returned joined.
func (p *SimplePublisher[E]) PublishEvent(e *E) error {
	if e == nil {
		return errors.New("cannot publish nil event")
	}

	p.mu.RLock()
	subscribers := make([]Subscriber[E], len(p.subscribers))
	copy(subscribers, p.subscribers)
	p.mu.RUnlock()

	var errs []error
	for _, s := range subscribers {
		if err := s.ConsumeEvent(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *SimplePublisher[E]) AddSubscriber(s Subscriber[E]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, s)
}

func (p *SimplePublisher[E]) RemoveSubscriber(s Subscriber[E]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, sub := range p.subscribers {
		if sub == s {
			p.subscribers = append(p.subscribers[:i:i], p.subscribers[i+1:]...)
			return
		}
	}
}

func (p *SimplePublisher[E]) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers)
}
