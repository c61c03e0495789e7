package driver

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"yqlang/compiler"
	"yqlang/value"
)

// HostContext is the embedding application's side of the boundary: the
// side-effecting actions a running script can request, plus the one
// synchronous query it can make mid-execution. Say/Nudge/PicSave/PicSend are
// drained in program order by the driver's poll loop, off the VM's own
// goroutine; Nickname is called straight from the VM goroutine since a
// script needs its result immediately, so an implementation must answer
// promptly — the time it takes counts against the run's allowance.
type HostContext interface {
	Say(text string) error
	Nudge(target int64) error
	PicSave(id string) error
	PicSend(id string) error
	Nickname(id int64) (string, error)
}

// ActionKind mirrors compiler.ActionSay and friends without importing the
// compiler package's opcode-operand meaning into the driver's public API.
type ActionKind int

const (
	ActionSay ActionKind = iota
	ActionNudge
	ActionPicSave
	ActionPicSend
)

// Action is one buffered say/nudge/picsave/picsend, captured in the exact
// order the VM executed it. Num carries the nudge target; Text carries the
// say/picsave/picsend argument.
type Action struct {
	Kind ActionKind
	Text string
	Num  int64
}

// actionBuffer implements vm.ActionSink by appending to an ordered, mutex
// guarded queue; it never calls into the host directly, so the VM's worker
// goroutine never blocks on host I/O other than through Nickname/Sleep.
type actionBuffer struct {
	mu      sync.Mutex
	pending []Action
}

func (b *actionBuffer) Action(kind int, mem *value.Memory, v value.Value) error {
	a := Action{Kind: ActionKind(kind)}
	switch kind {
	case compiler.ActionNudge:
		if n, ok := v.(value.Integer); ok {
			a.Num = int64(n)
		}
	default:
		a.Text = value.Stringify(mem, v)
	}

	b.mu.Lock()
	b.pending = append(b.pending, a)
	b.mu.Unlock()
	return nil
}

// drain pops every buffered action, leaving the buffer empty.
func (b *actionBuffer) drain() []Action {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return nil
	}
	out := b.pending
	b.pending = nil
	return out
}

// deliver forwards a batch of drained actions to host in order. Called from
// the driver's poll loop, never from the VM goroutine.
func deliver(host HostContext, batch []Action) error {
	for _, a := range batch {
		var err error
		switch a.Kind {
		case ActionSay:
			err = host.Say(a.Text)
		case ActionNudge:
			err = host.Nudge(a.Num)
		case ActionPicSave:
			err = host.PicSave(a.Text)
		case ActionPicSend:
			err = host.PicSend(a.Text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// hostAdapter satisfies builtin.Host on top of a HostContext, the wall-clock,
// and an accumulated sleep counter the driver's budget check reads.
type hostAdapter struct {
	host       HostContext
	sleepAccum int64 // milliseconds, atomic
}

func (h *hostAdapter) NowMillis() int64 { return time.Now().UnixMilli() }

func (h *hostAdapter) Sleep(ms int64) {
	if ms <= 0 {
		return
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
	atomic.AddInt64(&h.sleepAccum, ms)
}

func (h *hostAdapter) Random() float64 { return rand.Float64() }

func (h *hostAdapter) Nickname(id int64) (string, error) {
	if h.host == nil {
		return "", nil
	}
	return h.host.Nickname(id)
}

func (h *hostAdapter) sleptMillis() int64 { return atomic.LoadInt64(&h.sleepAccum) }
