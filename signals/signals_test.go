package signals

import (
	"bytes"
	"errors"
	"io"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDiag struct {
	order []string
	dumps int
}

func (d *recordingDiag) PrintThreads(w io.Writer) {
	io.WriteString(w, "threads")
	d.order = append(d.order, "threads")
}

func (d *recordingDiag) FindDeadlocks(w io.Writer) {
	io.WriteString(w, "deadlocks")
	d.order = append(d.order, "deadlocks")
}

func (d *recordingDiag) PrintHeapSummary(w io.Writer) {
	io.WriteString(w, "heap")
	d.order = append(d.order, "heap")
}

func (d *recordingDiag) PrintClassHistogram(w io.Writer) {
	io.WriteString(w, "histogram")
	d.order = append(d.order, "histogram")
}

func (d *recordingDiag) PostDataDump() { d.dumps++ }

type serialExec struct{ ops int }

func (e *serialExec) Execute(op func()) {
	e.ops++
	op()
}

type fakeAttach struct {
	state       atomic.Int32
	initTrigger bool
	socketOK    bool
	initCalls   int
	socketCalls int
}

func (a *fakeAttach) TransitState(to, from AttachState) AttachState {
	if a.state.CompareAndSwap(int32(from), int32(to)) {
		return from
	}
	return AttachState(a.state.Load())
}

func (a *fakeAttach) SetState(s AttachState) { a.state.Store(int32(s)) }

func (a *fakeAttach) InitTrigger() bool {
	a.initCalls++
	return a.initTrigger
}

func (a *fakeAttach) CheckSocketFile() bool {
	a.socketCalls++
	return !a.socketOK
}

type funcHandler struct {
	name string
	fn   func(int) error
}

func (h funcHandler) Name() string           { return h.name }
func (h funcHandler) Dispatch(sig int) error { return h.fn(sig) }

func runToExit(t *testing.T, d *Dispatcher) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		d.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not drain to the exit sentinel")
	}
}

func TestQueueFIFOAndCoalescing(t *testing.T) {
	q := NewQueue()
	require.True(t, q.Enqueue(10))
	require.True(t, q.Enqueue(12))
	assert.False(t, q.Enqueue(10), "duplicate pending signal coalesces")

	assert.Equal(t, 10, q.Wait())
	assert.Equal(t, 12, q.Wait())

	// Drained signals may be enqueued again.
	require.True(t, q.Enqueue(10))
	assert.Equal(t, 10, q.Wait())
}

func TestDispatcherDiagnosticBundleThenExit(t *testing.T) {
	var out bytes.Buffer
	diag := &recordingDiag{}
	exec := &serialExec{}
	d := NewDispatcher(Options{
		Out:            &out,
		Exec:           exec,
		Diag:           diag,
		DisableAttach:  true,
		ClassHistogram: true,
		PostDataDump:   true,
	})

	require.True(t, d.Queue().Enqueue(ControlSignal))
	d.Queue().Enqueue(ExitSignal)
	runToExit(t, d)

	assert.Equal(t, []string{"threads", "deadlocks", "heap", "histogram"}, diag.order)
	assert.Equal(t, 4, exec.ops, "each report runs as its own VM operation")
	assert.Equal(t, 1, diag.dumps)
	assert.Contains(t, out.String(), "threads\n")
	assert.Contains(t, out.String(), "heap\n")
}

func TestDispatcherAttachTrigger(t *testing.T) {
	attach := &fakeAttach{initTrigger: true}
	diag := &recordingDiag{}
	d := NewDispatcher(Options{Attach: attach, Diag: diag})

	d.Queue().Enqueue(ControlSignal)
	d.Queue().Enqueue(ExitSignal)
	runToExit(t, d)

	assert.Equal(t, 1, attach.initCalls)
	assert.Empty(t, diag.order, "attach trigger consumes the signal")
	assert.Equal(t, AttachInitializing, AttachState(attach.state.Load()))
}

func TestDispatcherAttachInitFailureReverts(t *testing.T) {
	attach := &fakeAttach{initTrigger: false}
	diag := &recordingDiag{}
	d := NewDispatcher(Options{Attach: attach, Diag: diag})

	d.Queue().Enqueue(ControlSignal)
	d.Queue().Enqueue(ExitSignal)
	runToExit(t, d)

	assert.Equal(t, AttachNotInitialized, AttachState(attach.state.Load()))
	assert.Equal(t, []string{"threads", "deadlocks", "heap"}, diag.order)
}

func TestDispatcherAttachInitializedChecksSocket(t *testing.T) {
	attach := &fakeAttach{socketOK: false}
	attach.SetState(AttachInitialized)
	diag := &recordingDiag{}
	d := NewDispatcher(Options{Attach: attach, Diag: diag})

	d.Queue().Enqueue(ControlSignal)
	d.Queue().Enqueue(ExitSignal)
	runToExit(t, d)

	assert.Equal(t, 1, attach.socketCalls)
	assert.Empty(t, diag.order, "restart consumes the signal")
}

func TestDispatcherUserSignal(t *testing.T) {
	var got []int
	d := NewDispatcher(Options{
		Handler: funcHandler{name: "jdk.internal.misc.Signal", fn: func(sig int) error {
			got = append(got, sig)
			return nil
		}},
	})

	d.Queue().Enqueue(30)
	d.Queue().Enqueue(ExitSignal)
	runToExit(t, d)

	assert.Equal(t, []int{30}, got)
}

func TestDispatcherSurvivesHandlerFailures(t *testing.T) {
	calls := 0
	d := NewDispatcher(Options{
		Handler: funcHandler{name: "broken", fn: func(sig int) error {
			calls++
			if calls == 1 {
				panic("boom")
			}
			return errors.New("dispatch failed")
		}},
	})

	d.Queue().Enqueue(10)
	d.Queue().Enqueue(12)
	d.Queue().Enqueue(ExitSignal)
	runToExit(t, d)

	assert.Equal(t, 2, calls, "handler keeps receiving signals after failures")
}

// namedSignal is an os.Signal with no numeric identity.
type namedSignal string

func (s namedSignal) String() string { return string(s) }
func (namedSignal) Signal()          {}

func TestForwardDropsNonNumericSignals(t *testing.T) {
	d := NewDispatcher(Options{})
	ch := make(chan os.Signal, 2)
	ch <- namedSignal("custom")
	ch <- syscall.Signal(10)
	close(ch)
	d.forward(ch)

	// Only the numeric signal made it into the queue.
	assert.Equal(t, 10, d.Queue().Wait())
	d.Queue().Enqueue(ExitSignal)
	assert.Equal(t, ExitSignal, d.Queue().Wait())
}

func TestTerminateDrains(t *testing.T) {
	diag := &recordingDiag{}
	d := NewDispatcher(Options{Diag: diag, DisableAttach: true})

	started := make(chan struct{})
	go func() {
		close(started)
		d.Run()
	}()
	<-started

	d.Queue().Enqueue(ControlSignal)
	d.Terminate()

	assert.Equal(t, []string{"threads", "deadlocks", "heap"}, diag.order)
}
