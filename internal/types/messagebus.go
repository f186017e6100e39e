package types

import (
	"context"
	"log"
	"sync"
)

type PostFn = func(msg Message)

type MessageHandler interface {
	Run(ctx context.Context, wg *sync.WaitGroup, post PostFn)
	Receive(message Message)
}

type subscription struct {
	handler MessageHandler
	cancel  context.CancelFunc
}

type MessageBus struct {
	bus       chan Message
	mu        sync.Mutex
	receivers []*subscription
	ctx       context.Context
	wg        *sync.WaitGroup
	post      PostFn
}

func NewMessageBus(bus chan Message, receivers ...MessageHandler) *MessageBus {
	mb := &MessageBus{bus: bus}
	for _, x := range receivers {
		mb.receivers = append(mb.receivers, &subscription{handler: x})
	}
	return mb
}

// Post queues a message for delivery to every handler
func (mb *MessageBus) Post(msg Message) {
	busLen := len(mb.bus)
	busCapacity := cap(mb.bus)
	if busLen > busCapacity/2 {
		log.Printf("WARNING: Bus capacity over 50%% [ %d / %d ]", busLen, busCapacity)
	}
	mb.bus <- msg
}

// Subscribe attaches a handler to the bus. If the bus is already running the handler
// is started right away, otherwise when Run is called.
// The returned release function stops the handler and detaches it.
func (mb *MessageBus) Subscribe(handler MessageHandler) (release func()) {
	sub := &subscription{handler: handler}

	mb.mu.Lock()
	mb.receivers = append(mb.receivers, sub)
	if mb.ctx != nil {
		mb.start(sub)
	}
	mb.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			mb.mu.Lock()
			defer mb.mu.Unlock()
			for i, x := range mb.receivers {
				if x == sub {
					mb.receivers = append(mb.receivers[:i:i], mb.receivers[i+1:]...)
					break
				}
			}
			if sub.cancel != nil {
				sub.cancel()
			}
		})
	}
}

// start must be called with mu held
func (mb *MessageBus) start(sub *subscription) {
	ctx, cancel := context.WithCancel(mb.ctx)
	sub.cancel = cancel
	go sub.handler.Run(ctx, mb.wg, mb.post)
}

func (mb *MessageBus) snapshot() []*subscription {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	out := make([]*subscription, len(mb.receivers))
	copy(out, mb.receivers)
	return out
}

func (mb *MessageBus) Run(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	defer wg.Done()

	mb.mu.Lock()
	mb.ctx = ctx
	mb.wg = wg
	mb.post = mb.Post
	for _, x := range mb.receivers {
		mb.start(x)
	}
	mb.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-mb.bus:
			for _, x := range mb.snapshot() {
				x.handler.Receive(msg)
			}
		}
	}
}
