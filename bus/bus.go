// Package bus implements the process-wide, in-memory publish/subscribe point
// between the test runner and the agent layer.
//
// Domain events (step completion / failure) and operational commands
// (PAUSE / RESUME) travel on separate queues, each drained by its own
// dispatch goroutine. Publishers never wait for subscribers; the dispatch
// loop awaits every subscriber call so failures are observed and logged
// instead of being propagated back to the publisher.
package bus

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/testmesh/core"
	"github.com/hupe1980/testmesh/logging"
)

// ErrBusClosed is returned when publishing to a closed bus.
var ErrBusClosed = errors.New("bus closed")

// Subscriber receives domain events.
type Subscriber interface {
	OnEvent(ctx context.Context, ev core.Event) error
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(ctx context.Context, ev core.Event) error

// OnEvent implements Subscriber.
func (f SubscriberFunc) OnEvent(ctx context.Context, ev core.Event) error { return f(ctx, ev) }

// CommandListener receives operational commands. The runner implements it.
type CommandListener interface {
	OnCommand(ctx context.Context, cmd core.Command) error
}

// CommandListenerFunc adapts a function to the CommandListener interface.
type CommandListenerFunc func(ctx context.Context, cmd core.Command) error

// OnCommand implements CommandListener.
func (f CommandListenerFunc) OnCommand(ctx context.Context, cmd core.Command) error {
	return f(ctx, cmd)
}

// Options configures a Bus.
type Options struct {
	// QueueSize is the buffer of each queue. Publishing blocks only when the
	// queue is full.
	QueueSize int
	// Logger receives delivery failures.
	Logger logging.Logger
}

// DefaultQueueSize is used when Options.QueueSize is not positive.
const DefaultQueueSize = 100

// Bus delivers events to subscribers and commands to listeners.
type Bus struct {
	logger logging.Logger

	mu          sync.RWMutex
	subscribers []Subscriber
	listeners   []CommandListener

	events         chan core.Event
	commands       chan core.Command
	eventsClosed   atomic.Bool
	commandsClosed atomic.Bool
	stopEvents     chan struct{}
	stopCommands   chan struct{}
	eventsDone     chan struct{}
	commandsDone   chan struct{}
	closeOnce      sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a bus and starts its dispatch loops. Call Close to stop them.
func New(optFns ...func(o *Options)) *Bus {
	opts := Options{QueueSize: DefaultQueueSize, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		logger:       logging.OrNoOp(opts.Logger),
		events:       make(chan core.Event, opts.QueueSize),
		commands:     make(chan core.Command, opts.QueueSize),
		stopEvents:   make(chan struct{}),
		stopCommands: make(chan struct{}),
		eventsDone:   make(chan struct{}),
		commandsDone: make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}

	go b.eventLoop()
	go b.commandLoop()

	return b
}

// Subscribe registers a subscriber for all subsequent events.
func (b *Bus) Subscribe(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, s)
}

// SubscribeCommands registers a command listener.
func (b *Bus) SubscribeCommands(l CommandListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Publish enqueues ev for delivery and returns without waiting for
// subscribers. It blocks only while the queue is full.
func (b *Bus) Publish(ctx context.Context, ev core.Event) error {
	if b.eventsClosed.Load() {
		return ErrBusClosed
	}
	select {
	case b.events <- ev:
		return nil
	case <-b.stopEvents:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishCommand enqueues an operational command for the runner.
func (b *Bus) PublishCommand(ctx context.Context, typ core.CommandType, sessionID string, params map[string]any) error {
	if b.commandsClosed.Load() {
		return ErrBusClosed
	}
	cmd := core.Command{Type: typ, SessionID: sessionID, Params: params, Timestamp: time.Now().UTC()}
	select {
	case b.commands <- cmd:
		return nil
	case <-b.stopCommands:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new events, delivers everything already queued and
// waits for both dispatch loops to exit. Commands published by subscribers
// while the event queue drains are still delivered. Messages published
// concurrently with Close may be dropped. Close is idempotent.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.eventsClosed.Store(true)
		close(b.stopEvents)
		<-b.eventsDone

		b.commandsClosed.Store(true)
		close(b.stopCommands)
		<-b.commandsDone
		b.cancel()
	})
}

func (b *Bus) eventLoop() {
	defer close(b.eventsDone)
	for {
		select {
		case ev := <-b.events:
			b.dispatchEvent(ev)
		case <-b.stopEvents:
			for {
				select {
				case ev := <-b.events:
					b.dispatchEvent(ev)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) commandLoop() {
	defer close(b.commandsDone)
	for {
		select {
		case cmd := <-b.commands:
			b.dispatchCommand(cmd)
		case <-b.stopCommands:
			for {
				select {
				case cmd := <-b.commands:
					b.dispatchCommand(cmd)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) dispatchEvent(ev core.Event) {
	for _, s := range b.snapshotSubscribers() {
		b.deliverEvent(s, ev)
	}
}

func (b *Bus) dispatchCommand(cmd core.Command) {
	for _, l := range b.snapshotListeners() {
		b.deliverCommand(l, cmd)
	}
}

func (b *Bus) deliverEvent(s Subscriber, ev core.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bus.event.panic", "event_id", ev.ID, "trigger", ev.Trigger(), "recover", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()
	if err := s.OnEvent(b.ctx, ev); err != nil {
		b.logger.Error("bus.event.subscriber_error", "event_id", ev.ID, "trigger", ev.Trigger(), "error", err.Error())
	}
}

func (b *Bus) deliverCommand(l CommandListener, cmd core.Command) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bus.command.panic", "command", string(cmd.Type), "session_id", cmd.SessionID, "recover", fmt.Sprint(r))
		}
	}()
	if err := l.OnCommand(b.ctx, cmd); err != nil {
		b.logger.Error("bus.command.listener_error", "command", string(cmd.Type), "session_id", cmd.SessionID, "error", err.Error())
	}
}

func (b *Bus) snapshotSubscribers() []Subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Subscriber(nil), b.subscribers...)
}

func (b *Bus) snapshotListeners() []CommandListener {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]CommandListener(nil), b.listeners...)
}
