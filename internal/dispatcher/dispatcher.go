// Package dispatcher drives the conversation engine: it loads the user's
// session, applies the inbound event, stores confirmed reservations,
// persists the new session and sends the resulting prompts.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/wave-plaza-bot/internal/chat"
	"github.com/iliyamo/wave-plaza-bot/internal/conversation"
	"github.com/iliyamo/wave-plaza-bot/internal/model"
	"github.com/iliyamo/wave-plaza-bot/internal/session"
)

// ErrStopped is returned by Submit once the dispatcher has been stopped.
var ErrStopped = errors.New("dispatcher stopped")

// ErrBusy is returned by Submit when the user already has QueueSize
// events waiting.
var ErrBusy = errors.New("dispatcher: user queue full")

// Reservations stores confirmed bookings.
type Reservations interface {
	Create(ctx context.Context, r *model.Reservation) error
}

// Config tunes the per-user queues and the collaborator timeouts.
type Config struct {
	QueueSize         int // events a single user may have waiting
	RepositoryTimeout time.Duration
	SendTimeout       time.Duration
	SaveRetryTimeout  time.Duration // bound on the post-create session save retry
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.RepositoryTimeout <= 0 {
		c.RepositoryTimeout = 5 * time.Second
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	if c.SaveRetryTimeout <= 0 {
		c.SaveRetryTimeout = 5 * time.Second
	}
	return c
}

// Dispatcher routes inbound events through the engine.  Every user with
// pending events gets a goroutine that drains that user's FIFO queue and
// exits once it is empty, so one user's events run in arrival order and a
// slow user never holds up another.
type Dispatcher struct {
	engine *conversation.Engine
	store  session.Store
	repo   Reservations
	sender chat.Sender
	cfg    Config
	tracer trace.Tracer

	mu      sync.Mutex
	ctx     context.Context
	abort   context.CancelFunc
	queues  map[int64][]chat.Inbound // present while the user's goroutine runs
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// New builds a Dispatcher.  Call Start before Submit.
func New(engine *conversation.Engine, store session.Store, repo Reservations, sender chat.Sender, cfg Config) *Dispatcher {
	return &Dispatcher{
		engine: engine,
		store:  store,
		repo:   repo,
		sender: sender,
		cfg:    cfg.withDefaults(),
		tracer: otel.Tracer("github.com/iliyamo/wave-plaza-bot/internal/dispatcher"),
		queues: make(map[int64][]chat.Inbound),
	}
}

// Start enables Submit.  Events inherit ctx's values but not its
// cancellation: once accepted they run to completion under their own
// timeouts, and only Stop ends them early.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.ctx, d.abort = context.WithCancel(context.WithoutCancel(ctx))
	d.started = true
	log.Printf("dispatcher: started")
}

// Submit appends in to its user's queue and returns without waiting for
// it to be handled.
func (d *Dispatcher) Submit(ctx context.Context, in chat.Inbound) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started || d.stopped {
		return ErrStopped
	}
	q, running := d.queues[in.UserID]
	if !running {
		d.queues[in.UserID] = nil
		d.wg.Add(1)
		go d.drain(in)
		return nil
	}
	if len(q) >= d.cfg.QueueSize {
		return ErrBusy
	}
	d.queues[in.UserID] = append(q, in)
	return nil
}

// drain handles first and then the user's queued events until the queue
// is empty.
func (d *Dispatcher) drain(first chat.Inbound) {
	defer d.wg.Done()
	in := first
	for {
		if _, err := d.Handle(d.ctx, in); err != nil {
			log.Printf("dispatcher: user %d: %v", in.UserID, err)
		}
		d.mu.Lock()
		q := d.queues[in.UserID]
		if len(q) > 0 && d.ctx.Err() != nil {
			log.Printf("dispatcher: user %d: %d queued event(s) dropped on shutdown", in.UserID, len(q))
			q = nil
		}
		if len(q) == 0 {
			delete(d.queues, in.UserID)
			d.mu.Unlock()
			return
		}
		next := q[0]
		q[0] = chat.Inbound{}
		d.queues[in.UserID] = q[1:]
		d.mu.Unlock()
		in = next
	}
}

// Stop rejects new events and waits for accepted ones to finish.  If ctx
// ends first, in-flight work is cancelled and Stop returns ctx's error
// once every user goroutine has exited.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	abort := d.abort
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Printf("dispatcher: stopped")
		return nil
	case <-ctx.Done():
		if abort != nil {
			abort()
		}
		<-done
		log.Printf("dispatcher: stopped with pending events cancelled")
		return ctx.Err()
	}
}

// pending reports how many users have a running goroutine.
func (d *Dispatcher) pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}

// Handle processes one event synchronously.  The session transition and
// any reservation insert happen under the user's session lock; prompts
// are sent after the lock is released.  Delivery failures are logged and
// do not make Handle fail.
func (d *Dispatcher) Handle(ctx context.Context, in chat.Inbound) (conversation.Outcome, error) {
	ctx, span := d.tracer.Start(ctx, "dispatcher.handle", trace.WithAttributes(
		attribute.Int64("chat.user_id", in.UserID),
		attribute.String("chat.event", conversation.Name(in.Event)),
	))
	defer span.End()

	var (
		out     conversation.Outcome
		created bool
	)
	_, err := d.store.Update(ctx, in.UserID, func(s *session.Session) error {
		if in.Username != "" {
			s.Username = in.Username
		}
		out = d.engine.Apply(*s, in.Event)
		if out.Result == conversation.NeedsCreate {
			out, created = d.create(ctx, out)
		}
		if !out.Changed() {
			return session.ErrSkipSave
		}
		*s = out.Session
		return nil
	})
	span.SetAttributes(attribute.String("conversation.result", out.Result.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !created {
			return out, fmt.Errorf("update session: %w", err)
		}
		// The reservation exists; the user and the admin still hear about it.
		if rerr := d.saveCompleted(ctx, in.UserID, out.Session); rerr != nil {
			log.Printf("dispatcher: user %d: reservation stored but session not saved: %v (retry: %v)", in.UserID, err, rerr)
		}
	}

	switch out.Result {
	case conversation.Rejected, conversation.Failed:
		log.Printf("dispatcher: user %d: %v", in.UserID, out.Err)
	}
	d.send(ctx, out.Messages)
	return out, nil
}

func (d *Dispatcher) create(ctx context.Context, out conversation.Outcome) (conversation.Outcome, bool) {
	rctx, cancel := context.WithTimeout(ctx, d.cfg.RepositoryTimeout)
	defer cancel()

	r := *out.Draft
	if err := d.repo.Create(rctx, &r); err != nil {
		return d.engine.CreateFailed(out.Session, err), false
	}
	log.Printf("dispatcher: reservation %d created for user %d", r.ID, r.UserID)
	return d.engine.Created(out.Session, r), true
}

// saveCompleted retries the session save after a reservation was stored,
// so a repeated confirm finds the dialogue completed.  It runs detached
// from ctx's cancellation, bounded by SaveRetryTimeout.
func (d *Dispatcher) saveCompleted(ctx context.Context, userID int64, s session.Session) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.SaveRetryTimeout)
	defer cancel()
	_, err := d.store.Update(rctx, userID, func(cur *session.Session) error {
		*cur = s
		return nil
	})
	return err
}

func (d *Dispatcher) send(ctx context.Context, msgs []conversation.Message) {
	for _, m := range msgs {
		sctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
		err := d.sender.Send(sctx, m)
		cancel()
		if err != nil {
			if !errors.Is(err, chat.ErrDelivery) {
				err = fmt.Errorf("%w: %v", chat.ErrDelivery, err)
			}
			log.Printf("dispatcher: send to chat %d failed: %v", m.ChatID, err)
		}
	}
}
