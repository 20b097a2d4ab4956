// Package engine evaluates events against the trigger graph on a bounded worker
// pool, persists the events generated by fired triggers and runs their actions.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/alerts/internal/action"
	"github.com/gyaneshwarpardhi/alerts/internal/config"
	"github.com/gyaneshwarpardhi/alerts/internal/event"
	"github.com/gyaneshwarpardhi/alerts/internal/metrics"
	"github.com/gyaneshwarpardhi/alerts/internal/trigger"
)

// Sink persists generated events. store.Store satisfies it.
type Sink interface {
	AddEvents(ctx context.Context, events []*event.Event) error
}

// eventResult is the outcome of processing a single event. Only processSync
// callers receive it.
type eventResult struct {
	EventID       string
	DurationMs    int64
	TriggersFired []string
	Generated     []*event.Event
	Error         string
}

// Engine processes events through the trigger graph.
type Engine struct {
	graph      atomic.Pointer[trigger.Graph]
	registry   *action.Registry
	sink       Sink
	damp       *dampener
	eventPool  *workerPool[*eventWork]
	actionPool *workerPool[*actionWork]
	conf       config.EngineConf
	newID      func() string
	now        func() time.Time
}

type eventWork struct {
	ev      *event.Event
	resultC chan *eventResult
}

type actionWork struct {
	node *trigger.ActionNode
	ev   *event.Event
}

// New creates an Engine using conf and starts worker pools.
func New(ctx context.Context, g *trigger.Graph, reg *action.Registry, sink Sink, conf config.EngineConf) *Engine {
	e := &Engine{
		registry: reg,
		sink:     sink,
		damp:     newDampener(),
		conf:     conf,
		newID:    uuid.NewString,
		now:      time.Now,
	}
	e.graph.Store(g)

	// Start action pool first so event workers can submit to it.
	e.actionPool = newWorkerPool(ctx, conf.ActionWorkers, conf.ActionWorkers*10, e.executeAction)
	e.eventPool = newWorkerPool(ctx, conf.EventWorkers, conf.QueueDepth, func(ctx context.Context, w *eventWork) {
		res := e.processEvent(ctx, w.ev)
		if w.resultC != nil {
			w.resultC <- res
		}
	})
	return e
}

// SwapGraph atomically replaces the trigger graph (used on hot-reload).
// Dampening state starts over with the new graph.
func (e *Engine) SwapGraph(g *trigger.Graph) {
	e.graph.Store(g)
	e.damp.reset()
}

// Graph returns the graph currently used for evaluation.
func (e *Engine) Graph() *trigger.Graph {
	return e.graph.Load()
}

// processSync evaluates an event and waits for the result. Returns an error if
// the queue is full. Production callers go through ProcessAsync.
func (e *Engine) processSync(ctx context.Context, ev *event.Event) (*eventResult, error) {
	resultC := make(chan *eventResult, 1)
	if !e.submit(&eventWork{ev: ev, resultC: resultC}) {
		return nil, fmt.Errorf("event queue full (capacity %d)", e.eventPool.QueueCap())
	}
	select {
	case res := <-resultC:
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ProcessAsync enqueues an event for background processing. Returns false if the queue is full.
func (e *Engine) ProcessAsync(ev *event.Event) bool {
	return e.submit(&eventWork{ev: ev})
}

func (e *Engine) submit(w *eventWork) bool {
	ok := e.eventPool.Submit(w)
	if ok {
		metrics.EventsEnqueued.Inc()
	} else {
		metrics.EventsDropped.Inc()
	}
	metrics.QueueUtilization.Set(e.QueueUtilization())
	return ok
}

// QueueUtilization returns queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.eventPool.QueueCap() == 0 {
		return 0
	}
	return float64(e.eventPool.QueueLen()) / float64(e.eventPool.QueueCap())
}

func (e *Engine) processEvent(ctx context.Context, ev *event.Event) *eventResult {
	start := time.Now()
	result := &eventResult{EventID: ev.ID}
	defer func() {
		result.DurationMs = time.Since(start).Milliseconds()
		metrics.EventsProcessed.Inc()
		metrics.EventProcessingDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)
	}()

	g := e.graph.Load()
	if g == nil {
		return result
	}
	matches, err := trigger.Evaluate(g, ev)
	if err != nil {
		slog.Debug("condition evaluation failed", "event_id", ev.ID, "tenant", ev.TenantID, "err", err)
	}

	for _, m := range matches {
		tn := m.Trigger
		d := tn.Dampening()
		if !e.damp.observe(ev.TenantID, tn.ID(), d.EvalTrue, m.Fired) {
			if m.Fired {
				metrics.TriggersDampened.WithLabelValues(tn.ID()).Inc()
			}
			continue
		}

		gen := e.generate(ev, m)
		if err := e.sink.AddEvents(ctx, []*event.Event{gen}); err != nil {
			slog.Error("persist generated event failed", "trigger_id", tn.ID(), "tenant", ev.TenantID, "err", err)
			result.Error = err.Error()
			continue
		}
		metrics.TriggersFired.WithLabelValues(tn.ID()).Inc()
		metrics.EventsGenerated.Inc()
		result.TriggersFired = append(result.TriggersFired, tn.ID())
		result.Generated = append(result.Generated, gen)

		for _, an := range m.Actions {
			if !e.actionPool.Submit(&actionWork{node: an, ev: gen}) {
				slog.Warn("action queue full, action skipped", "action_id", an.ID(), "event_id", gen.ID)
				metrics.ActionsExecuted.WithLabelValues(an.ActionType(), "dropped").Inc()
			}
		}
	}
	return result
}

// generate builds the event recorded when a trigger fires.
func (e *Engine) generate(src *event.Event, m trigger.Match) *event.Event {
	tn := m.Trigger
	d := tn.Dampening()
	text := tn.Description()
	if text == "" {
		text = tn.ID()
	}
	var tags map[string]string
	if len(tn.Tags()) > 0 {
		tags = make(map[string]string, len(tn.Tags()))
		for k, v := range tn.Tags() {
			tags[k] = v
		}
	}
	return &event.Event{
		TenantID:   src.TenantID,
		ID:         e.newID(),
		CTime:      e.now().UnixMilli(),
		DataSource: src.DataSource,
		DataID:     tn.ID(),
		Category:   tn.EventCategory(),
		Text:       text,
		Context:    map[string]string{"sourceEventId": src.ID},
		Tags:       tags,
		TriggerID:  tn.ID(),
		Dampening:  &event.Dampening{TriggerID: tn.ID(), Type: d.Type, EvalTrue: d.EvalTrue},
		EvalSets:   m.EvalSets,
	}
}

func (e *Engine) executeAction(ctx context.Context, w *actionWork) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(e.conf.ActionTimeoutMs)*time.Millisecond)
	defer cancel()

	res := e.runAction(ctx, w.node, w.ev)
	if !res.Success {
		slog.Warn("action failed", "action_id", res.ActionID, "type", res.Type, "event_id", w.ev.ID, "msg", res.Message)
	}
}

func (e *Engine) runAction(ctx context.Context, n *trigger.ActionNode, ev *event.Event) *action.ActionResult {
	failed := func(err error) *action.ActionResult {
		metrics.ActionsExecuted.WithLabelValues(n.ActionType(), "error").Inc()
		return &action.ActionResult{
			ActionID: n.ID(),
			Type:     n.ActionType(),
			Success:  false,
			Message:  err.Error(),
		}
	}
	exec, err := e.registry.Get(n.ActionType())
	if err != nil {
		return failed(err)
	}
	res, err := exec.Execute(ctx, n.ID(), n.Params(), ev)
	if err != nil {
		if res == nil {
			return failed(err)
		}
		metrics.ActionsExecuted.WithLabelValues(n.ActionType(), "error").Inc()
		return res
	}
	status := "success"
	if !res.Success {
		status = "error"
	}
	metrics.ActionsExecuted.WithLabelValues(n.ActionType(), status).Inc()
	return res
}

// Shutdown drains the event pool, then the action pool it feeds.
func (e *Engine) Shutdown() {
	e.eventPool.Drain()
	e.actionPool.Drain()
}
