package conversation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"focusgallery/presenter"
	"focusgallery/session"
)

const (
	defaultQueueCapacity = 32
	defaultEventTimeout  = 4 * time.Minute
)

type Handler interface {
	Handle(ctx context.Context, ev Event) []presenter.Reply
}

// Sender delivers replies for ev back to its chat.
type Sender interface {
	Send(ctx context.Context, ev Event, replies []presenter.Reply) error
}

// Dispatcher serializes events per session. Each key gets a FIFO queue and
// a worker goroutine that exits once the queue drains; different keys are
// handled concurrently.
type Dispatcher struct {
	handler  Handler
	sender   Sender
	capacity int
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	queues map[session.Key]chan Event
	wg     sync.WaitGroup
}

func NewDispatcher(handler Handler, sender Sender, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		handler:  handler,
		sender:   sender,
		capacity: defaultQueueCapacity,
		timeout:  defaultEventTimeout,
		logger:   logger,
		queues:   make(map[session.Key]chan Event),
	}
}

// Dispatch enqueues ev without blocking. It reports false when the
// session's queue is full and the event was dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) bool {
	key := ev.Key()

	d.mu.Lock()
	defer d.mu.Unlock()

	queue, ok := d.queues[key]
	if !ok {
		queue = make(chan Event, d.capacity)
		d.queues[key] = queue
		d.wg.Add(1)
		go d.work(ctx, key, queue)
	}

	select {
	case queue <- ev:
		return true
	default:
		d.logger.Warn("Session queue full, dropping event", "user_id", ev.UserID, "chat_id", ev.ChatID, "kind", ev.Kind.String())
		return false
	}
}

// Wait blocks until every worker has exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context, key session.Key, queue chan Event) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			d.retire(key, queue)
			return
		case ev := <-queue:
			d.process(ctx, ev)
		default:
			d.mu.Lock()
			if len(queue) == 0 {
				delete(d.queues, key)
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
		}
	}
}

func (d *Dispatcher) retire(key session.Key, queue chan Event) {
	d.mu.Lock()
	if d.queues[key] == queue {
		delete(d.queues, key)
	}
	d.mu.Unlock()
}

func (d *Dispatcher) process(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Event handler panicked", "user_id", ev.UserID, "chat_id", ev.ChatID, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	replies := d.handler.Handle(ctx, ev)
	if len(replies) > 0 {
		if err := d.sender.Send(ctx, ev, replies); err != nil {
			d.logger.Error("Reply delivery failed", "user_id", ev.UserID, "chat_id", ev.ChatID, "err", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		d.logger.Warn("Slow event processing", "user_id", ev.UserID, "chat_id", ev.ChatID, "kind", ev.Kind.String(), "elapsed", elapsed)
	}
}
