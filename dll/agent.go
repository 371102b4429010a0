package dll

import (
	"path/filepath"
	"strings"
	"sync"
)

// Agent describes one instrumentation agent library.
type Agent struct {
	name         string
	options      string
	absolutePath bool

	lib SymbolSource

	static       bool
	loaded       bool
	initialized  bool
	dynamic      bool
	instrumentor bool
	libPath      string
}

// NewAgent returns an agent named by its -agentlib/-agentpath argument.
// absolutePath marks names given as full paths.
func NewAgent(name, options string, absolutePath bool) *Agent {
	return &Agent{name: name, options: options, absolutePath: absolutePath}
}

func (a *Agent) Name() string        { return a.name }
func (a *Agent) Options() string     { return a.options }
func (a *Agent) IsStatic() bool      { return a.static }
func (a *Agent) IsLoaded() bool      { return a.loaded }
func (a *Agent) IsInitialized() bool { return a.initialized }
func (a *Agent) IsDynamic() bool     { return a.dynamic }
func (a *Agent) IsInstrument() bool  { return a.instrumentor }
func (a *Agent) LibPath() string     { return a.libPath }

// SetLib attaches the symbol source the agent was loaded from.
func (a *Agent) SetLib(src SymbolSource, path string) {
	a.lib = src
	a.libPath = path
	a.loaded = src != nil
}

// MarkInitialized records a completed Agent_OnLoad.
func (a *Agent) MarkInitialized() { a.initialized = true }

// MarkDynamic records an attach-time (rather than launch-time) agent.
func (a *Agent) MarkDynamic() { a.dynamic = true }

// buildAgentFunctionName derives the symbol to probe. Statically linked
// agents carry entry points suffixed with the library name,
// e.g. Agent_OnLoad_foo; libName empty means the bare symbol. A library
// given as an absolute path contributes only its stripped base name.
func buildAgentFunctionName(sym, libName string, absolutePath bool) string {
	if libName == "" {
		return sym
	}
	name := libName
	if absolutePath {
		name = filepath.Base(name)
		name = strings.TrimPrefix(name, Prefix)
		if i := strings.Index(name, Suffix); i >= 0 {
			name = name[:i]
		}
	}
	return sym + "_" + name
}

// FindAgentFunction probes the candidate entry-point symbols in the agent's
// library. When checkLib is set, or the agent is statically linked, the
// symbol names are suffixed with the library name.
func FindAgentFunction(agent *Agent, checkLib bool, syms []string) (uintptr, bool) {
	if agent == nil || agent.lib == nil {
		return 0, false
	}
	libName := ""
	if checkLib || agent.static {
		libName = agent.name
	}
	for _, sym := range syms {
		name := buildAgentFunctionName(sym, libName, agent.absolutePath)
		if addr, ok := agent.lib.Lookup(name); ok {
			return addr, true
		}
	}
	return 0, false
}

// FindBuiltinAgent tests whether the agent is linked into the process image
// by probing the name-suffixed entry points in procImage. On success the
// agent is marked static and loaded; otherwise its previous library handle
// is restored.
func FindBuiltinAgent(agent *Agent, syms []string, procImage SymbolSource) bool {
	if agent == nil || agent.name == "" || procImage == nil {
		return false
	}
	save := agent.lib
	agent.lib = procImage
	if _, ok := FindAgentFunction(agent, true, syms); ok {
		agent.static = true
		agent.loaded = true
		return true
	}
	agent.lib = save
	return false
}

// AgentList is the process-wide agent registry, read by the crash-time
// agent summary.
type AgentList struct {
	mu     sync.Mutex
	agents []*Agent
}

// Add appends an agent.
func (l *AgentList) Add(a *Agent) {
	l.mu.Lock()
	l.agents = append(l.agents, a)
	l.mu.Unlock()
}

// All returns a snapshot of the registered agents.
func (l *AgentList) All() []*Agent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Agent(nil), l.agents...)
}
