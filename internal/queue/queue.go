// Package queue serializes device automation. Jobs are accepted into a
// bounded FIFO and executed one at a time by a single worker; progress
// is fanned out to every subscriber of the job's order.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/axonake/RANGERSTORE/pkg/logger"
	"github.com/google/uuid"
)

var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrClosed      = errors.New("job queue is closed")
	ErrUnknownKind = errors.New("unknown job kind")
)

type Queue struct {
	capacity int
	handlers map[JobKind]Handler
	b        *broadcaster
	now      func() time.Time

	mu       sync.Mutex
	pending  []Job
	inflight *Job
	active   map[int64]struct{}
	closed   bool
	wake     chan struct{}
}

func New(capacity, subscriberBuffer int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		capacity: capacity,
		handlers: make(map[JobKind]Handler),
		b:        newBroadcaster(subscriberBuffer),
		now:      time.Now,
		active:   make(map[int64]struct{}),
		wake:     make(chan struct{}, 1),
	}
}

// Handle registers h for kind. It must be called before Run.
func (q *Queue) Handle(kind JobKind, h Handler) {
	q.handlers[kind] = h
}

func (q *Queue) Enqueue(kind JobKind, orderID int64) (Ticket, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.enqueueLocked(kind, orderID)
}

// Attach subscribes to the order and enqueues a job for it in one step,
// so the subscriber cannot miss the start of the job or see an old job
// finish while a new one is queued behind its back.
func (q *Queue) Attach(kind JobKind, orderID int64) (*Subscription, Ticket, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	sub := q.b.subscribe(orderID)

	ticket, err := q.enqueueLocked(kind, orderID)
	if err != nil {
		sub.Close()
		return nil, Ticket{}, err
	}

	return sub, ticket, nil
}

func (q *Queue) enqueueLocked(kind JobKind, orderID int64) (Ticket, error) {
	if q.closed {
		return Ticket{}, ErrClosed
	}
	if _, ok := q.handlers[kind]; !ok {
		return Ticket{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	if _, ok := q.active[orderID]; ok {
		return Ticket{Queued: false, Position: q.positionLocked(orderID)}, nil
	}

	if len(q.pending) >= q.capacity {
		logger.Log.Warn("job queue is full", logger.Int64("order_id", orderID), logger.Int("capacity", q.capacity))
		return Ticket{}, ErrQueueFull
	}

	job := Job{
		ID:         uuid.New(),
		Kind:       kind,
		OrderID:    orderID,
		EnqueuedAt: q.now(),
	}
	q.pending = append(q.pending, job)
	q.active[orderID] = struct{}{}

	select {
	case q.wake <- struct{}{}:
	default:
	}

	logger.Log.Info("job queued",
		logger.String("job_id", job.ID.String()),
		logger.String("kind", string(kind)),
		logger.Int64("order_id", orderID),
		logger.Int("pending", len(q.pending)),
	)

	return Ticket{Job: job, Queued: true, Position: q.positionLocked(orderID)}, nil
}

// positionLocked is 1 for the job being executed and counts up through
// the pending jobs.
func (q *Queue) positionLocked(orderID int64) int {
	pos := 0
	if q.inflight != nil {
		pos++
		if q.inflight.OrderID == orderID {
			return pos
		}
	}
	for _, j := range q.pending {
		pos++
		if j.OrderID == orderID {
			return pos
		}
	}
	return pos
}

func (q *Queue) Subscribe(orderID int64) *Subscription {
	return q.b.subscribe(orderID)
}

func (q *Queue) Publish(orderID int64, kind EventKind, text string) {
	q.b.publish(Event{
		OrderID: orderID,
		Kind:    kind,
		Text:    text,
		At:      q.now(),
	})
}

func (q *Queue) Subscribers(orderID int64) int {
	return q.b.count(orderID)
}

func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.pending)
}

func (q *Queue) Active(orderID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, ok := q.active[orderID]
	return ok
}

// Close rejects further jobs and fails every job that has not started.
// The job in flight, if any, is left to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	dropped := q.pending
	q.pending = nil
	for _, j := range dropped {
		delete(q.active, j.OrderID)
	}
	q.mu.Unlock()

	for _, j := range dropped {
		q.Publish(j.OrderID, EventError, "service is shutting down")
		q.b.forget(j.OrderID)
	}
}

// Run is the single consumer. It blocks until ctx is done, then closes
// the queue.
func (q *Queue) Run(ctx context.Context) {
	logger.Log.Info("job worker started")
	defer logger.Log.Info("job worker stopped")
	defer q.Close()

	for {
		if ctx.Err() != nil {
			return
		}

		job, ok := q.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
				continue
			}
		}

		q.process(ctx, job)
	}
}

func (q *Queue) next() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return Job{}, false
	}

	job := q.pending[0]
	q.pending[0] = Job{}
	q.pending = q.pending[1:]
	q.inflight = &job

	return job, true
}

// finish releases the order and drops its replayed event in one step, so
// an Attach that starts a new job never sees the previous job's end.
func (q *Queue) finish(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.active, job.OrderID)
	q.inflight = nil
	q.b.forget(job.OrderID)
}

func (q *Queue) process(ctx context.Context, job Job) {
	defer q.finish(job)

	started := q.now()
	log := logger.Log.With(
		logger.String("job_id", job.ID.String()),
		logger.String("kind", string(job.Kind)),
		logger.Int64("order_id", job.OrderID),
	)
	log.Info("processing job", logger.Duration("waited", started.Sub(job.EnqueuedAt)))

	q.Publish(job.OrderID, EventStatus, fmt.Sprintf("processing (waiting: %d)", q.Pending()))

	h, ok := q.handlers[job.Kind]
	if !ok {
		q.Publish(job.OrderID, EventError, fmt.Sprintf("%s: %s", ErrUnknownKind, job.Kind))
		return
	}

	progress := func(msg string) {
		q.Publish(job.OrderID, EventProgress, msg)
	}

	res, err := safeHandle(ctx, h, job, progress)
	if err != nil {
		log.Error("job failed", logger.Duration("took", q.now().Sub(started)), logger.Error(err))
		q.Publish(job.OrderID, EventError, err.Error())
		return
	}

	log.Info("job finished", logger.Duration("took", q.now().Sub(started)))

	if res.VerificationCode != "" {
		q.Publish(job.OrderID, EventVerificationCode, res.VerificationCode)
		return
	}

	msg := res.Message
	if msg == "" {
		msg = "automation complete"
	}
	q.Publish(job.OrderID, EventSuccess, msg)
}

func safeHandle(ctx context.Context, h Handler, job Job, progress func(string)) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("system error: %v", r)
		}
	}()

	return h.Handle(ctx, job, progress)
}
