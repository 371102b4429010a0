// Package signals implements the runtime's signal control plane: a bounded
// queue fed by OS signal handlers and a dedicated dispatcher thread that
// drains it. The control signal triggers either attach-listener startup or
// a synchronous diagnostic dump; every other signal is handed to the managed
// signal handler.
package signals

import (
	"fmt"
	"io"
	"os"
	ossignal "os/signal"

	"github.com/battleblow/osal/internal/vmlog"
)

// AttachState is the attach-listener lifecycle observed by the dispatcher.
type AttachState int32

const (
	AttachNotInitialized AttachState = iota
	AttachInitializing
	AttachInitialized
)

// AttachListener is the externally owned attach mechanism. The dispatcher
// only ever transitions it from NotInitialized to Initializing; forward
// transitions belong to the owner.
type AttachListener interface {
	// TransitState CAS-moves the state from from to to and returns the
	// state observed before the attempt.
	TransitState(to, from AttachState) AttachState
	// SetState force-writes the state. Used to revert a failed init.
	SetState(AttachState)
	// InitTrigger reports whether the control signal was an attach request
	// and, if so, starts the listener.
	InitTrigger() bool
	// CheckSocketFile restarts the listener when its socket file vanished.
	// Reports whether a restart was issued.
	CheckSocketFile() bool
}

// Diagnostics is the read-only view the control-signal dump needs.
// Implemented by the runtime; each printer writes one report.
type Diagnostics interface {
	PrintThreads(w io.Writer)
	FindDeadlocks(w io.Writer)
	PrintHeapSummary(w io.Writer)
	PrintClassHistogram(w io.Writer)
	PostDataDump()
}

// VMExecutor runs an operation synchronously on the runtime's serial
// VM-operation thread.
type VMExecutor interface {
	Execute(op func())
}

// Handler receives non-control signals in managed code.
type Handler interface {
	Name() string
	Dispatch(sig int) error
}

// Options configures a Dispatcher.
type Options struct {
	Queue   *Queue
	Out     io.Writer
	Attach  AttachListener
	Exec    VMExecutor
	Diag    Diagnostics
	Handler Handler
	// DisableAttach disables the attach mechanism; the control signal then
	// always produces a diagnostic dump.
	DisableAttach bool
	// ClassHistogram adds a class histogram to the diagnostic bundle.
	ClassHistogram bool
	// PostDataDump posts a data-dump event to instrumentation after the
	// bundle.
	PostDataDump bool
}

// Dispatcher is the signal-dispatch loop. Run it on its own goroutine.
type Dispatcher struct {
	opts    Options
	done    chan struct{}
	stopped []func()
}

// NewDispatcher validates opts and returns a dispatcher ready to Run.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.Queue == nil {
		opts.Queue = NewQueue()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Dispatcher{opts: opts, done: make(chan struct{})}
}

// Queue returns the queue OS handlers should enqueue into.
func (d *Dispatcher) Queue() *Queue { return d.opts.Queue }

// Install routes the given OS signals into the queue. Installed routes are
// removed when the dispatcher returns.
func (d *Dispatcher) Install(sigs ...os.Signal) {
	ch := make(chan os.Signal, len(sigs)+1)
	ossignal.Notify(ch, sigs...)
	go d.forward(ch)
	d.stopped = append(d.stopped, func() {
		ossignal.Stop(ch)
		close(ch)
	})
}

// forward moves OS signals into the queue. Signal implementations without a
// numeric identity cannot be queued and are dropped.
func (d *Dispatcher) forward(ch <-chan os.Signal) {
	for s := range ch {
		if n := signalNumber(s); n >= 0 {
			d.opts.Queue.Enqueue(n)
		}
	}
}

// Run drains the queue until the exit sentinel arrives. It never panics out:
// handler failures are reported and the loop continues.
func (d *Dispatcher) Run() {
	defer func() {
		for _, stop := range d.stopped {
			stop()
		}
		close(d.done)
	}()

	for {
		sig := d.opts.Queue.Wait()
		switch {
		case sig == ExitSignal:
			return
		case sig == ControlSignal:
			d.handleControl()
		default:
			d.dispatch(sig)
		}
	}
}

// Terminate enqueues the exit sentinel and waits for the loop to drain to
// it. Signals enqueued before the sentinel are still processed. Must only
// be called after Run has been started.
func (d *Dispatcher) Terminate() {
	// A false return means the sentinel is already pending.
	d.opts.Queue.Enqueue(ExitSignal)
	<-d.done
}

func (d *Dispatcher) handleControl() {
	if a := d.opts.Attach; a != nil && !d.opts.DisableAttach {
		prev := a.TransitState(AttachInitializing, AttachNotInitialized)
		switch prev {
		case AttachNotInitialized:
			if !a.InitTrigger() {
				a.SetState(AttachNotInitialized)
			} else {
				return
			}
		case AttachInitializing:
			// Another trigger is mid-flight; drop this one.
			return
		case AttachInitialized:
			if a.CheckSocketFile() {
				return
			}
		}
	}
	d.diagnosticBundle()
}

// diagnosticBundle runs the thread-dump suite synchronously on the VM
// thread. Each report flushes and ends with a blank line so concatenated
// dumps stay readable.
func (d *Dispatcher) diagnosticBundle() {
	diag := d.opts.Diag
	if diag == nil {
		return
	}
	run := func(op func()) {
		if d.opts.Exec != nil {
			d.opts.Exec.Execute(op)
		} else {
			op()
		}
	}
	w := d.opts.Out
	run(func() { diag.PrintThreads(w); d.finishReport(w) })
	run(func() { diag.FindDeadlocks(w); d.finishReport(w) })
	run(func() { diag.PrintHeapSummary(w); d.finishReport(w) })
	if d.opts.ClassHistogram {
		run(func() { diag.PrintClassHistogram(w); d.finishReport(w) })
	}
	if d.opts.PostDataDump {
		diag.PostDataDump()
	}
}

func (d *Dispatcher) finishReport(w io.Writer) {
	fmt.Fprintln(w)
	type flusher interface{ Flush() error }
	if f, ok := w.(flusher); ok {
		_ = f.Flush()
	}
}

// dispatch hands a signal to the managed handler. A failing or panicking
// handler is reported and must not take the dispatcher down with it.
func (d *Dispatcher) dispatch(sig int) {
	h := d.opts.Handler
	if h == nil {
		vmlog.L.Warn("no managed handler for signal", "signal", Name(sig))
		return
	}
	defer func() {
		if r := recover(); r != nil {
			vmlog.L.Warn("exception while dispatching signal",
				"handler", h.Name(), "signal", Name(sig), "error", fmt.Sprint(r))
		}
	}()
	if err := h.Dispatch(sig); err != nil {
		vmlog.L.Warn("exception while dispatching signal",
			"handler", h.Name(), "signal", Name(sig), "error", err)
	}
}
