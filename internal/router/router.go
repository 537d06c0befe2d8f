// Package router is the dispatcher: it pulls messages from the input port,
// looks them up in the action table and drives triggers, the pending
// registry and actions. Messages without a table entry are relayed
// unchanged.
//
// All routing decisions happen on the goroutine running Run. Deferred
// triggers do not touch router state from their timers; they post a fire
// event that Run picks up in order with incoming messages.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dayuer/midimapper-go/internal/action"
	"github.com/dayuer/midimapper-go/internal/bus"
	"github.com/dayuer/midimapper-go/internal/midi"
	"github.com/dayuer/midimapper-go/internal/registry"
	"github.com/dayuer/midimapper-go/internal/trigger"
)

var log = logrus.WithField("component", "router")

// DefaultPollTimeout bounds each wait on the input port.
const DefaultPollTimeout = 100 * time.Millisecond

// InputPort delivers raw messages. Receive returns nil, nil when nothing
// arrived within timeout.
type InputPort interface {
	Receive(timeout time.Duration) ([]byte, error)
}

// OutputPort accepts raw messages.
type OutputPort interface {
	Send(raw []byte) error
}

// Config wires a Router.
type Config struct {
	Table       Table
	In          InputPort
	Out         OutputPort
	Channel     int             // output channel for actions that do not set one
	PollTimeout time.Duration   // DefaultPollTimeout when zero
	Keys        action.Injector // nil disables keystroke actions
	Exec        registry.Exec   // registry.Inline when nil
	Bus         *bus.Bus        // optional observer
	Now         func() time.Time
}

// Stats counts what the router has done since it started.
type Stats struct {
	Received uint64  `json:"received"`
	Sent     uint64  `json:"sent"`
	Passed   uint64  `json:"passed"`
	Fired    uint64  `json:"fired"`
	Missed   uint64  `json:"missed"`
	Dropped  uint64  `json:"dropped"`
	Failed   uint64  `json:"failed"`
	Pending  int     `json:"pending"`
	Latency  Latency `json:"latency"`
}

type inbound struct {
	raw []byte
	at  time.Time
}

type fireEvent struct {
	id  string
	msg midi.Message
}

// Router is the dispatcher. Create it with New and start it with Run.
type Router struct {
	cfg      Config
	out      *encoder
	registry *registry.Registry
	latency  *latencyWindow

	fires chan fireEvent
	done  chan struct{}

	received, passed, fired, missed, dropped, failed atomic.Uint64
}

// New validates cfg and returns a router ready to Run.
func New(cfg Config) (*Router, error) {
	if cfg.In == nil || cfg.Out == nil {
		return nil, errors.New("router: input and output ports are required")
	}
	if cfg.Channel < 0 || cfg.Channel > 15 {
		return nil, fmt.Errorf("router: output channel %d out of range 0-15", cfg.Channel)
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Table == nil {
		cfg.Table = Table{}
	}

	r := &Router{
		cfg:     cfg,
		fires:   make(chan fireEvent, 16),
		done:    make(chan struct{}),
		latency: newLatencyWindow(DefaultLatencyWindow, time.Now),
	}
	r.out = &encoder{port: cfg.Out, bus: cfg.Bus}
	r.registry = registry.New(registry.Config{
		Out:     r.out,
		Channel: cfg.Channel,
		Keys:    cfg.Keys,
		Exec:    cfg.Exec,
	})
	return r, nil
}

// Run routes messages until ctx is cancelled, which is a clean shutdown
// and returns nil. A failing input port ends Run with its error.
func (r *Router) Run(ctx context.Context) error {
	defer close(r.done)
	defer r.cfg.Table.cancelTimers()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan inbound, 64)
	errc := make(chan error, 1)
	go r.pump(ctx, in, errc)

	log.WithField("entries", len(r.cfg.Table)).Info("routing started")
	for {
		select {
		case <-ctx.Done():
			log.Info("routing stopped")
			return nil
		case err := <-errc:
			return err
		case m := <-in:
			begin := time.Now()
			r.handle(ctx, m.raw, m.at)
			r.latency.record(time.Since(begin))
		case f := <-r.fires:
			r.fire(ctx, f.id, f.msg)
		}
	}
}

// pump polls the input port with a bounded wait so shutdown is noticed
// even when no message arrives.
func (r *Router) pump(ctx context.Context, in chan<- inbound, errc chan<- error) {
	for ctx.Err() == nil {
		raw, err := r.cfg.In.Receive(r.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() == nil {
				errc <- fmt.Errorf("receive: %w", err)
			}
			return
		}
		if len(raw) == 0 {
			continue
		}
		select {
		case in <- inbound{raw: raw, at: r.cfg.Now()}:
		case <-ctx.Done():
			return
		}
	}
}

// post is the FireFunc handed to triggers. It runs on timer goroutines.
func (r *Router) post(id string, msg midi.Message) {
	select {
	case r.fires <- fireEvent{id: id, msg: msg}:
	case <-r.done:
	}
}

func (r *Router) handle(ctx context.Context, raw []byte, at time.Time) {
	r.received.Add(1)
	msg, err := midi.Decode(raw)
	if err != nil {
		r.dropped.Add(1)
		log.WithError(err).WithField("raw", fmt.Sprintf("% X", raw)).Warn("dropping undecodable input")
		r.cfg.Bus.Publish(bus.Event{Type: bus.EventDrop, Time: at, Raw: raw, Error: err.Error()})
		return
	}
	r.cfg.Bus.Publish(bus.NewEvent(bus.EventIn, msg))

	key, ok := msg.Key()
	entry, found := r.cfg.Table[key]
	if !ok || !found {
		r.pass(raw, msg)
		return
	}
	log.WithFields(logrus.Fields{"key": key.String(), "msg": msg.String()}).Debug("matched table entry")

	for i, a := range entry.Actions {
		r.run(ctx, fmt.Sprintf("%s#%d", key, i), a, msg)
	}

	ev := trigger.NewEvent(msg, at)
	for _, b := range entry.Bindings {
		id := b.Trigger.ID()
		switch b.Trigger.Evaluate(ev, r.post) {
		case trigger.Matched:
			r.registry.Enqueue(id, b.Action)
			r.fire(ctx, id, msg)
		case trigger.Undecided:
			r.registry.Enqueue(id, b.Action)
			log.WithFields(logrus.Fields{"trigger": b.Trigger.String(), "action": b.Action.String()}).Debug("deferred")
			pe := bus.NewEvent(bus.EventPending, msg)
			pe.Trigger, pe.Action = b.Trigger.String(), b.Action.String()
			r.cfg.Bus.Publish(pe)
		default:
			// a fire already posted by an elapsed timer keeps its response
			if ev.Withdrawn(id) {
				r.registry.Dequeue(id)
			}
		}
	}
}

// pass relays the original bytes unchanged.
func (r *Router) pass(raw []byte, msg midi.Message) {
	r.passed.Add(1)
	r.cfg.Bus.Publish(bus.NewEvent(bus.EventPass, msg))
	if err := r.out.sendRaw(raw); err != nil {
		r.failed.Add(1)
		log.WithError(err).WithField("msg", msg.String()).Error("pass-through failed")
	}
}

// run executes an unconditional action.
func (r *Router) run(ctx context.Context, lane string, a action.Action, msg midi.Message) {
	env := action.Env{Out: r.out, Channel: r.cfg.Channel, Msg: msg, Keys: r.cfg.Keys}
	exec := r.cfg.Exec
	if exec == nil {
		exec = registry.Inline
	}
	r.fired.Add(1)
	r.publishFire(msg, "", a.String())
	if err := exec(ctx, lane, a, env); err != nil {
		r.actionFailed(msg, a.String(), err)
	}
}

// fire runs the pending action for a trigger that matched.
func (r *Router) fire(ctx context.Context, id string, msg midi.Message) {
	err := r.registry.Fire(ctx, id, msg)
	switch {
	case err == nil:
		r.fired.Add(1)
		r.publishFire(msg, id, "")
	case errors.Is(err, registry.ErrPendingMissing):
		r.missed.Add(1)
		log.WithField("trigger", id).Error("deferred trigger fired with no pending response")
		ev := bus.NewEvent(bus.EventMiss, msg)
		ev.Trigger = id
		r.cfg.Bus.Publish(ev)
	default:
		r.fired.Add(1)
		r.actionFailed(msg, id, err)
	}
}

func (r *Router) publishFire(msg midi.Message, triggerID, act string) {
	ev := bus.NewEvent(bus.EventFire, msg)
	ev.Trigger, ev.Action = triggerID, act
	r.cfg.Bus.Publish(ev)
}

func (r *Router) actionFailed(msg midi.Message, what string, err error) {
	r.failed.Add(1)
	log.WithError(err).WithField("action", what).Error("action failed")
	ev := bus.NewEvent(bus.EventError, msg)
	ev.Action, ev.Error = what, err.Error()
	r.cfg.Bus.Publish(ev)
}

// Stats returns a snapshot of the router counters.
func (r *Router) Stats() Stats {
	return Stats{
		Received: r.received.Load(),
		Sent:     r.out.sent.Load(),
		Passed:   r.passed.Load(),
		Fired:    r.fired.Load(),
		Missed:   r.missed.Load(),
		Dropped:  r.dropped.Load(),
		Failed:   r.failed.Load(),
		Pending:  r.registry.Len(),
		Latency:  r.latency.summary(),
	}
}

// PendingIDs lists the triggers with a deferred response waiting.
func (r *Router) PendingIDs() []string { return r.registry.IDs() }
