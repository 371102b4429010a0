// Package osal is the runtime's operating-system abstraction layer. It
// bundles the tracked virtual-memory manager, the tracked C-heap allocator,
// the signal control plane, native-library loading, and the crash-time
// diagnostic printers behind one context struct owned by the runtime entry
// point.
package osal

import (
	"io"
	"log/slog"
	"os"

	"github.com/battleblow/osal/cheap"
	"github.com/battleblow/osal/diag"
	"github.com/battleblow/osal/dll"
	"github.com/battleblow/osal/internal/vmlog"
	"github.com/battleblow/osal/pagesize"
	"github.com/battleblow/osal/prng"
	"github.com/battleblow/osal/signals"
	"github.com/battleblow/osal/threads"
	"github.com/battleblow/osal/tracker"
	"github.com/battleblow/osal/vmem"
)

// Config carries everything the layer needs before the runtime's own
// configuration machinery exists.
type Config struct {
	// TrackMemory enables native-memory accounting.
	TrackMemory bool
	// MallocLimit caps tracked heap usage in bytes; zero means no limit.
	MallocLimit uint64
	// UseLargePages lets the virtual-memory manager pick huge pages.
	UseLargePages bool
	// DebugHeap poisons fresh allocations in the tracked heap.
	DebugHeap bool

	// DllDir is the directory holding the bundled native libraries.
	DllDir string

	// PauseAtStartupFile overrides the default pause-file path.
	PauseAtStartupFile string

	// RandomSeed seeds the layer PRNG; zero selects the default seed.
	RandomSeed uint32

	// Stack is the thread stack geometry validated during init.
	Stack threads.StackConfig

	// LogWriter and LogLevel configure layer logging; a nil writer keeps
	// logging off.
	LogWriter io.Writer
	LogLevel  slog.Level
}

// Layer is the assembled OS abstraction layer. One per process.
type Layer struct {
	Tracker    *tracker.Tracker
	Heap       *cheap.Allocator
	VM         *vmem.Manager
	PageSizes  *pagesize.Sizes
	Rand       *prng.Source
	Libs       *dll.NativeLibs
	Agents     *dll.AgentList
	Dispatcher *signals.Dispatcher
	Locator    *diag.Locator

	stackMin threads.StackMinima
	cfg      Config
}

// New assembles the layer. The tracked heap starts in preinit mode and is
// promoted once InitBeforeErgo has configured tracking, mirroring the
// allocation traffic that happens before configuration is parsed.
func New(cfg Config) *Layer {
	if cfg.LogWriter != nil {
		vmlog.Init(vmlog.Options{Writer: cfg.LogWriter, Level: cfg.LogLevel})
	}
	rand := prng.New()
	if cfg.RandomSeed != 0 {
		rand.Init(cfg.RandomSeed)
	}
	l := &Layer{
		Heap:      cheap.New(cheap.Options{Debug: cfg.DebugHeap}),
		PageSizes: &pagesize.Sizes{},
		Rand:      rand,
		Libs:      dll.NewNativeLibs(cfg.DllDir),
		Agents:    &dll.AgentList{},
		cfg:       cfg,
	}
	return l
}

// InitBeforeErgo finishes initialization that must precede ergonomics:
// page-size discovery, memory tracking, and stack-minimum validation.
func (l *Layer) InitBeforeErgo() error {
	for _, p := range supportedPageSizes() {
		l.PageSizes.Add(p)
	}

	l.Tracker = tracker.New(l.cfg.TrackMemory, l.cfg.MallocLimit)
	l.Heap.Promote(l.Tracker)
	l.VM = vmem.New(vmem.Options{
		Tracker:       l.Tracker,
		PageSizes:     l.PageSizes,
		UseLargePages: l.cfg.UseLargePages,
	})

	if l.cfg.Stack.PageSize == 0 {
		l.cfg.Stack.PageSize = uintptr(os.Getpagesize())
	}
	min, err := threads.SetMinimumStackSizes(l.cfg.Stack)
	if err != nil {
		return err
	}
	l.stackMin = min
	return nil
}

// StackMinima returns the per-role stack minima computed during init.
func (l *Layer) StackMinima() threads.StackMinima { return l.stackMin }

// StartSignalDispatcher creates and runs the dispatcher thread. Call late,
// once the collaborators in opts are ready to serve diagnostic dumps.
func (l *Layer) StartSignalDispatcher(opts signals.Options) *signals.Dispatcher {
	l.Dispatcher = signals.NewDispatcher(opts)
	go l.Dispatcher.Run()
	return l.Dispatcher
}

// InitLocator wires the crash reporter's pointer-classification pipeline.
func (l *Layer) InitLocator(opts diag.LocatorOptions) {
	if opts.Tracker == nil {
		opts.Tracker = l.Tracker
	}
	l.Locator = diag.NewLocator(opts)
}
