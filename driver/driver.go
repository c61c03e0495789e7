// Package driver implements the cooperative run lifecycle around a compiled
// script: deserialize persisted globals, bind the triggering event, execute
// on a worker under a wall-clock budget, drain buffered actions to the host
// in program order, then reserialize globals for the next run.
package driver

import (
	"context"
	"time"

	"yqlang/builtin"
	"yqlang/value"
	"yqlang/vm"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Event binds the trigger data for one run: `text`, `sender`, `clock`,
// `nudged`, or any other name the script's globals reference. Values are
// plain Go types (string, int64, float64, bool, nil); unrecognized Go types
// are bound as Null.
type Event map[string]interface{}

// Result is everything a run produces: the reserialized global state to
// persist for next time, the actions the script requested in execution
// order, and whichever error (if any) ended the run.
type Result struct {
	RunID        string
	State        []byte
	Output       []Action
	Err          error
	Serialization *SerializationError
}

// Pool bounds how many concurrent runs of one compiled Template are allowed
// in flight, per the spec's max_instances cap, using a counting semaphore so
// TryAcquire fails fast instead of queuing.
type Pool struct {
	tmpl *Template
	sem  *semaphore.Weighted
	opts Options
	host HostContext
}

// NewPool builds a Pool for tmpl, bounding concurrent runs to opts's
// MaxInstances and delivering actions/nickname queries through host.
func NewPool(tmpl *Template, host HostContext, opts Options) *Pool {
	return &Pool{
		tmpl: tmpl,
		sem:  semaphore.NewWeighted(int64(opts.MaxInstances)),
		opts: opts,
		host: host,
	}
}

// Run executes one instance of the pool's Template: deserialize priorState,
// bind events, run under budget, drain actions to the host, reserialize
// globals. It rejects the run with *TooManyInstances if the pool is already
// at its concurrency cap.
func (p *Pool) Run(ctx context.Context, priorState []byte, events Event) *Result {
	if !p.sem.TryAcquire(1) {
		return &Result{Err: &TooManyInstances{Limit: p.opts.MaxInstances}}
	}
	defer p.sem.Release(1)

	return runOnce(ctx, p.tmpl, p.host, priorState, events, p.opts)
}

func runOnce(ctx context.Context, tmpl *Template, host HostContext, priorState []byte, events Event, opts Options) *Result {
	if ctx == nil {
		ctx = context.Background()
	}
	runID := uuid.NewString()
	mem := tmpl.newMemory()

	firstRun := len(priorState) == 0
	if err := Deserialize(priorState, mem); err != nil {
		return &Result{RunID: runID, Err: err}
	}
	bindEvents(mem, events)

	sink := &actionBuffer{}
	adapter := &hostAdapter{host: host}
	theVM := vm.New(mem, nil, sink)
	theVM.SetMaxDepth(opts.MaxRecursionDepth)
	theVM.SetFirstRun(firstRun)
	table := builtin.New(theVM, adapter)
	theVM.SetBuiltins(table)

	cancelCh := make(chan struct{})
	done := make(chan runOutcome, 1)
	theVM.SetCancel(cancelCh)

	go func() {
		result, err := theVM.Run(tmpl.Bytecode)
		done <- runOutcome{result: result, err: err}
	}()

	quantum := time.Duration(opts.QuantumMS) * time.Millisecond
	if quantum <= 0 {
		quantum = time.Millisecond
	}
	ticker := time.NewTicker(quantum)
	defer ticker.Stop()

	start := time.Now()
	var outcome runOutcome
	var cancelled bool
	var allOutput []Action
	var deliverErr error

	drainAndDeliver := func() {
		batch := sink.drain()
		if len(batch) == 0 {
			return
		}
		allOutput = append(allOutput, batch...)
		if host != nil && deliverErr == nil {
			deliverErr = deliver(host, batch)
		}
	}

polling:
	for {
		select {
		case outcome = <-done:
			break polling
		case <-ticker.C:
			drainAndDeliver()
			elapsed := time.Since(start).Milliseconds()
			slept := adapter.sleptMillis()
			working := elapsed - slept
			if working > opts.AllowanceMS || elapsed > opts.TotalAllowanceMS {
				cancelled = true
				closeOnce(cancelCh)
				break polling
			}
		case <-ctx.Done():
			cancelled = true
			closeOnce(cancelCh)
			break polling
		}
	}
	if cancelled {
		// The VM notices cancellation at the next instruction boundary; wait
		// for it to unwind and report rather than spinning on ctx.Done().
		outcome = <-done
	}
	drainAndDeliver()
	if deliverErr != nil && outcome.err == nil {
		outcome.err = deliverErr
	}

	data, serErr := Serialize(mem)

	res := &Result{RunID: runID, State: data, Output: allOutput, Serialization: serErr}
	if cancelled {
		res.Err = &BudgetError{Message: "run exceeded its allowance", Elapsed: time.Since(start).Milliseconds()}
	} else if outcome.err != nil {
		res.Err = classifyRuntimeError(outcome.err)
	}
	return res
}

func bindEvents(mem *value.Memory, events Event) {
	for name, v := range events {
		idx, ok := mem.GlobalIndex[name]
		if !ok {
			continue
		}
		mem.Globals[idx] = eventToValue(mem, v)
	}
}

func eventToValue(mem *value.Memory, v interface{}) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Null{}
	case bool:
		return value.Boolean(t)
	case int:
		return value.Integer(int64(t))
	case int64:
		return value.Integer(t)
	case float64:
		return value.Float(t)
	case string:
		return mem.NewString(t)
	default:
		return value.Null{}
	}
}

type runOutcome struct {
	result value.Value
	err    error
}

func closeOnce(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}
