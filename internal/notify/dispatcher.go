package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const sendTimeout = 10 * time.Second

// Dispatcher hands messages to a fixed pool of workers. Dispatch never blocks
// and never fails the caller; delivery problems are only logged.
type Dispatcher struct {
	sender      Sender
	workerCount int
	queue       chan Message
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	closed      bool
	closeMux    sync.Mutex
	log         *slog.Logger
}

// NewDispatcher creates a dispatcher with the given number of workers
func NewDispatcher(sender Sender, workerCount int, log *slog.Logger) *Dispatcher {
	if workerCount < 1 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		sender:      sender,
		workerCount: workerCount,
		queue:       make(chan Message, workerCount*32),
		ctx:         ctx,
		cancel:      cancel,
		log:         log,
	}
}

// Start launches worker goroutines
func (d *Dispatcher) Start() {
	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.log.Info("mail dispatcher started", "workers", d.workerCount)
}

// Dispatch queues msg. It reports false when the message was dropped.
func (d *Dispatcher) Dispatch(msg Message) bool {
	d.closeMux.Lock()
	defer d.closeMux.Unlock()

	if d.closed {
		d.log.Warn("mail dispatcher closed, message dropped", "to", msg.To)
		return false
	}

	select {
	case d.queue <- msg:
		return true
	default:
		d.log.Warn("mail queue full, message dropped", "to", msg.To)
		return false
	}
}

// Shutdown stops accepting messages and drains the queue until ctx expires.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.closeMux.Lock()
	if !d.closed {
		close(d.queue)
		d.closed = true
	}
	d.closeMux.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		d.log.Info("mail dispatcher drained")
		return nil
	case <-ctx.Done():
		// workers stop at their next receive
		d.cancel()
		return ctx.Err()
	}
}

// worker sends queued messages until the queue closes
func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for {
		select {
		case msg, ok := <-d.queue:
			if !ok {
				return
			}
			d.send(id, msg)
		case <-d.ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) send(id int, msg Message) {
	ctx, cancel := context.WithTimeout(d.ctx, sendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.log.Error("mail delivery failed", "worker", id, "to", msg.To, "error", err)
	}
}
