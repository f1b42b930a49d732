package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type JobKind string

const (
	JobLinkID JobKind = "link_id"
	JobPhase2 JobKind = "phase2"
)

type Job struct {
	ID         uuid.UUID
	Kind       JobKind
	OrderID    int64
	EnqueuedAt time.Time
}

type Result struct {
	Message          string
	VerificationCode string
}

type Handler interface {
	Handle(ctx context.Context, job Job, progress func(string)) (Result, error)
}

type HandlerFunc func(ctx context.Context, job Job, progress func(string)) (Result, error)

func (f HandlerFunc) Handle(ctx context.Context, job Job, progress func(string)) (Result, error) {
	return f(ctx, job, progress)
}

// Ticket describes what Enqueue did. Queued is false when the order
// already had a job and the caller joined it instead.
type Ticket struct {
	Job      Job
	Queued   bool
	Position int
}
