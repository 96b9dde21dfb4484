package recompute

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/completion-engine/internal/domain/aggregates"
	"github.com/yungbote/completion-engine/internal/observability"
	"github.com/yungbote/completion-engine/internal/platform/logger"
)

var ErrClosed = errors.New("recompute dispatcher closed")

// Func recomputes one enrollment.
type Func func(ctx context.Context, enrollmentID uuid.UUID) (domainagg.RecalculateResult, error)

// Dispatcher runs at most one recompute per enrollment at a time. Different
// enrollments run in parallel. A request that arrives while another request for
// the same enrollment is queued but not started shares that queued run.
type Dispatcher struct {
	run     Func
	log     *logger.Logger
	metrics *observability.Metrics
	timeout time.Duration

	mu     sync.Mutex
	lanes  map[uuid.UUID]*lane
	closed bool
	wg     sync.WaitGroup
}

type lane struct {
	pending *request
}

type request struct {
	ctx  context.Context
	done chan struct{}
	res  domainagg.RecalculateResult
	err  error
}

type Options struct {
	Log     *logger.Logger
	Metrics *observability.Metrics
	// Timeout bounds one recompute run. Zero means no bound.
	Timeout time.Duration
}

func NewDispatcher(run Func, opts Options) *Dispatcher {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{
		run:     run,
		log:     log.With("component", "RecomputeDispatcher"),
		metrics: opts.Metrics,
		timeout: opts.Timeout,
		lanes:   map[uuid.UUID]*lane{},
	}
}

// Submit requests a recompute and waits for its result. If ctx ends first the
// recompute still runs; only the wait is abandoned.
func (d *Dispatcher) Submit(ctx context.Context, enrollmentID uuid.UUID) (domainagg.RecalculateResult, error) {
	req, err := d.enqueue(ctx, enrollmentID)
	if err != nil {
		return domainagg.RecalculateResult{}, err
	}
	select {
	case <-req.done:
		return req.res, req.err
	case <-ctx.Done():
		return domainagg.RecalculateResult{}, ctx.Err()
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, enrollmentID uuid.UUID) (*request, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	l, active := d.lanes[enrollmentID]
	if active && l.pending != nil {
		d.metrics.IncRecomputeCoalesced()
		return l.pending, nil
	}
	req := &request{ctx: context.WithoutCancel(ctx), done: make(chan struct{})}
	if active {
		l.pending = req
		return req, nil
	}
	l = &lane{pending: req}
	d.lanes[enrollmentID] = l
	d.metrics.SetRecomputeLanes(len(d.lanes))
	d.wg.Add(1)
	go d.drain(enrollmentID, l)
	return req, nil
}

// drain runs queued requests for one enrollment until none are left.
func (d *Dispatcher) drain(enrollmentID uuid.UUID, l *lane) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		req := l.pending
		if req == nil {
			delete(d.lanes, enrollmentID)
			d.metrics.SetRecomputeLanes(len(d.lanes))
			d.mu.Unlock()
			return
		}
		l.pending = nil
		d.mu.Unlock()

		req.res, req.err = d.execute(req.ctx, enrollmentID)
		close(req.done)
	}
}

func (d *Dispatcher) execute(ctx context.Context, enrollmentID uuid.UUID) (res domainagg.RecalculateResult, err error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("recompute panicked", "enrollment_id", enrollmentID, "panic", r)
			err = domainagg.NewError(domainagg.CodeInternal, "recompute", "recompute panicked", nil)
		}
		result := "success"
		if err != nil {
			result = string(domainagg.CodeOf(err))
			if result == "" {
				result = "failure"
			}
		}
		d.metrics.IncRecompute(result)
	}()
	res, err = d.run(ctx, enrollmentID)
	if err != nil {
		d.log.Warn("recompute failed", "enrollment_id", enrollmentID, "error", err)
	}
	return res, err
}

// Close rejects new requests and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
