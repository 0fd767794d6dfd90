package reminders

import (
	"container/heap"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// Once the queue is larger than compactFloor, the heap is rebuilt as soon as
// tombstones outnumber live entries, so update churn cannot grow it without
// bound.
const compactFloor = 64

// Notifier delivers a single notification. Calls may block for an unbounded
// time and are made outside the engine's lock; the engine performs exactly
// one attempt per dispatched reminder.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// Dispatch describes one completed dispatch attempt.
type Dispatch struct {
	Reminder     Reminder
	DispatchedAt time.Time
	Err          error
}

// Recorder persists dispatch attempts, successful or not.
type Recorder interface {
	Record(ctx context.Context, d Dispatch) error
}

// Options configures an Engine.
type Options struct {
	Notifier Notifier
	Clock    clock.Clock
	Recorder Recorder // optional
	Logger   zerolog.Logger
}

// Engine schedules reminders in memory and dispatches each live value
// exactly once at (or immediately after) its due time.
//
// The registry maps each id to the entry holding its current value; the
// heap orders every entry ever pushed, including superseded ones, by due
// time. A single consumer goroutine (Run) repeatedly pops the heap minimum,
// skips entries the registry no longer points at, and waits on the first
// live one. Producers insert under the same mutex and interrupt the wait
// through the wake channel, so the consumer always re-reads state that is
// at least as new as the signal it observed.
type Engine struct {
	notifier Notifier
	recorder Recorder
	clock    clock.Clock
	log      zerolog.Logger

	mu       sync.Mutex
	registry map[string]*entry
	queue    readyQueue
	wake     chan struct{}
	// stale approximates the number of tombstones in the heap. It only
	// steers compaction; correctness never depends on it.
	stale int
}

// New creates an Engine. It does not start the scheduler loop; call Run.
func New(opts Options) *Engine {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &Engine{
		notifier: opts.Notifier,
		recorder: opts.Recorder,
		clock:    clk,
		log:      opts.Logger,
		registry: make(map[string]*entry),
		queue:    make(readyQueue, 0),
		wake:     make(chan struct{}, 1),
	}
}

// AddOrUpdate registers a reminder, replacing any pending value with the
// same ID. Only the latest value for an ID is ever dispatched. The call
// never blocks beyond acquiring the internal lock; input is assumed to be
// validated by the caller.
func (e *Engine) AddOrUpdate(r Reminder) {
	en := &entry{reminder: r}

	e.mu.Lock()
	if _, ok := e.registry[r.ID]; ok {
		// The previously registered entry just became a tombstone.
		e.stale++
	}
	e.registry[r.ID] = en
	heap.Push(&e.queue, en)
	if len(e.queue) > compactFloor && e.stale > len(e.queue)/2 {
		e.compactLocked()
	}
	// Single-slot wake: a no-op if the consumer was already signaled this
	// episode. Raised under the lock so the consumer re-reads fresh state.
	select {
	case e.wake <- struct{}{}:
	default:
	}
	e.mu.Unlock()

	e.log.Debug().Str("id", r.ID).Time("due", r.DueTime).Msg("reminder registered")
}

// List returns the pending (registered, not yet dispatched) reminders
// sorted by due time.
func (e *Engine) List() []Reminder {
	e.mu.Lock()
	out := make([]Reminder, 0, len(e.registry))
	for _, en := range e.registry {
		out = append(out, en.reminder)
	}
	e.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].DueTime.Before(out[j].DueTime)
	})

	return out
}

// Pending returns the number of registered reminders.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.registry)
}

// Run is the scheduler loop. It blocks until ctx is canceled, waiting on
// the next due reminder and dispatching reminders as they come due. There
// must be at most one Run in flight per Engine. On cancellation the loop
// stops at its next wait boundary; pending reminders are abandoned, and an
// in-flight dispatch completes.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info().Msg("scheduler started")

	for {
		e.mu.Lock()
		next := e.popNextLocked()
		// Fresh single-slot signal for this waiting episode. Installed under
		// the lock, so every producer that mutated state after this point
		// signals the channel we are about to wait on.
		wake := make(chan struct{}, 1)
		e.wake = wake
		e.mu.Unlock()

		if next == nil {
			// Queue drained: block until a producer wakes us.
			select {
			case <-ctx.Done():
				e.log.Info().Msg("scheduler stopped")
				return nil
			case <-wake:
			}

			continue
		}

		if delay := next.reminder.DueTime.Sub(e.clock.Now()); delay > 0 {
			t := e.clock.Timer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				e.log.Info().Msg("scheduler stopped")

				return nil
			case <-wake:
				// Something changed; the popped entry must not be lost.
				// Push it back and recompute the minimum.
				t.Stop()
				e.mu.Lock()
				heap.Push(&e.queue, next)
				e.mu.Unlock()

				continue
			case <-t.C:
			}
		}

		e.dispatch(ctx, next)
	}
}

// popNextLocked pops heap minimums until it finds the entry its id is still
// registered under, discarding tombstones on the way. Returns nil when the
// queue is exhausted. Caller must hold e.mu.
func (e *Engine) popNextLocked() *entry {
	for len(e.queue) > 0 {
		en, ok := heap.Pop(&e.queue).(*entry)
		if !ok {
			continue
		}
		if e.registry[en.reminder.ID] == en {
			return en
		}
		if e.stale > 0 {
			e.stale--
		}
		e.log.Debug().Str("id", en.reminder.ID).Msg("stale entry discarded")
	}

	return nil
}

// compactLocked rebuilds the heap from its live entries. Caller must hold
// e.mu.
func (e *Engine) compactLocked() {
	before := len(e.queue)
	live := make(readyQueue, 0, len(e.registry))
	for _, en := range e.queue {
		if e.registry[en.reminder.ID] == en {
			live = append(live, en)
		}
	}
	e.queue = live
	heap.Init(&e.queue)
	e.stale = 0

	e.log.Debug().Int("before", before).Int("after", len(e.queue)).Msg("queue compacted")
}

// dispatch delivers a due entry unless it was superseded while the loop was
// waiting on it. The notifier runs outside the lock; the registry entry is
// removed afterwards only if it still belongs to this dispatch, so an
// update racing with the send is not lost.
func (e *Engine) dispatch(ctx context.Context, en *entry) {
	e.mu.Lock()
	if e.registry[en.reminder.ID] != en {
		if e.stale > 0 {
			e.stale--
		}
		e.mu.Unlock()

		return
	}
	e.mu.Unlock()

	r := en.reminder
	now := e.clock.Now()

	err := e.notifier.Send(ctx, r.Recipient, r.Subject(), r.Body())
	if err != nil {
		// A failed send must not starve every reminder behind it; log it,
		// journal it, move on. Retry policy is out of scope.
		e.log.Error().Err(err).Str("id", r.ID).Str("recipient", r.Recipient).Msg("notification failed")
	} else {
		e.log.Info().Str("id", r.ID).Time("due", r.DueTime).Dur("lateness", now.Sub(r.DueTime)).Msg("reminder dispatched")
	}

	if e.recorder != nil {
		if recErr := e.recorder.Record(ctx, Dispatch{Reminder: r, DispatchedAt: now, Err: err}); recErr != nil {
			e.log.Error().Err(recErr).Str("id", r.ID).Msg("failed to record dispatch")
		}
	}

	e.mu.Lock()
	if e.registry[r.ID] == en {
		delete(e.registry, r.ID)
	}
	e.mu.Unlock()
}
