package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nkiryanov/minibank/internal/logger"
)

const (
	defaultWorkers     = 2
	defaultQueueSize   = 100
	defaultSendTimeout = 10 * time.Second
)

type Config struct {
	// Number of workers sending messages concurrently
	Workers int

	// Messages over the queue size are dropped
	QueueSize int

	// Timeout for one Send call
	SendTimeout time.Duration
}

// Dispatcher sends messages in background
// Notify never blocks: delivery is best effort and failures are only logged.
// Messages may be queued before Run; after Run stopped they are dropped with a warning.
type Dispatcher struct {
	workers     int
	sendTimeout time.Duration
	stopped     atomic.Bool

	queue  chan Message
	sender Sender
	logger logger.Logger
}

func NewDispatcher(sender Sender, cfg Config, logger logger.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}

	return &Dispatcher{
		workers:     cfg.Workers,
		sendTimeout: cfg.SendTimeout,
		queue:       make(chan Message, cfg.QueueSize),
		sender:      sender,
		logger:      logger,
	}
}

func (d *Dispatcher) Notify(msgs ...Message) {
	for _, msg := range msgs {
		if d.stopped.Load() {
			d.logger.Warn("Notification dispatcher is stopped, message dropped", "to", msg.To, "subject", msg.Subject)
			continue
		}

		select {
		case d.queue <- msg:
		default:
			d.logger.Warn("Notification queue is full, message dropped", "to", msg.To, "subject", msg.Subject)
		}
	}
}

// Run starts workers and returns channel closed when all of them stopped
// Messages queued when ctx is done are sent before workers stop
func (d *Dispatcher) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			d.worker(ctx)
			wg.Done()
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()
		d.stopped.Store(true)

		d.dropQueued()
		d.logger.Debug("Notification dispatcher stopped")
	}()

	return idleStopped
}

func (d *Dispatcher) worker(ctx context.Context) {
	for {
		select {
		case msg := <-d.queue:
			d.send(context.WithoutCancel(ctx), msg)

		case <-ctx.Done():
			d.drain(context.WithoutCancel(ctx))
			return
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case msg := <-d.queue:
			d.send(ctx, msg)
		default:
			return
		}
	}
}

// Messages that slipped into the queue after the last worker drained it
func (d *Dispatcher) dropQueued() {
	for {
		select {
		case msg := <-d.queue:
			d.logger.Warn("Notification dispatcher is stopped, message dropped", "to", msg.To, "subject", msg.Subject)
		default:
			return
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, msg Message) {
	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg.To, msg.Subject, msg.Body); err != nil {
		d.logger.Error("Failed to send notification", "error", err, "to", msg.To, "subject", msg.Subject)
		return
	}

	d.logger.Debug("Notification sent", "to", msg.To, "subject", msg.Subject)
}
