package diag

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"
)

// processStart anchors the uptime shown in crash reports.
var processStart = time.Now()

// PrintCPUInfo writes a one-line CPU summary.
func PrintCPUInfo(w io.Writer) {
	fmt.Fprintf(w, "CPU: total %d (%s)\n", runtime.NumCPU(), runtime.GOARCH)
}

// PrintSummaryInfo writes the host identification block.
func PrintSummaryInfo(w io.Writer) {
	host, err := os.Hostname()
	if err != nil {
		host = "<unknown>"
	}
	fmt.Fprintf(w, "Host: %s, %s/%s, %d cores, page size %d\n",
		host, runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), os.Getpagesize())
}

// PrintDateAndTime writes the wall-clock time and elapsed process time.
// A crash report's first question is usually "when", so this is cheap and
// allocation-light.
func PrintDateAndTime(w io.Writer) {
	buf := make([]byte, TimestampSize)
	if ts, err := Iso8601Time(time.Now().UnixMilli(), buf, false); err == nil {
		fmt.Fprintf(w, "Time: %s", ts)
	}
	elapsed := time.Since(processStart)
	fmt.Fprintf(w, " elapsed time: %.6f seconds", elapsed.Seconds())
	printDHM(w, "", int64(elapsed.Seconds()))
}

// printDHM renders a duration as "Nd days H:MM hours" after the prefix.
func printDHM(w io.Writer, prefix string, sec int64) {
	days := sec / 86400
	hours := sec/3600 - days*24
	minutes := sec/60 - days*1440 - hours*60
	fmt.Fprintf(w, "%s (%dd %d:%02d hours)\n", prefix, days, hours, minutes)
}

// PrintEnvironmentVariables writes the values of the named variables, set
// ones only. Unprintable bytes in values come out as '?'.
func PrintEnvironmentVariables(w io.Writer, names []string) {
	fmt.Fprintln(w, "Environment Variables:")
	for _, name := range names {
		val, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s=%s\n", name, sanitize(val))
	}
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return '?'
		}
		return r
	}, s)
}

// AgentInfo is the loader's view of one agent, as the crash report shows it.
type AgentInfo struct {
	Name        string
	Options     string
	Static      bool
	Initialized bool
	Path        string
}

// PrintAgentInfo writes one line per registered agent.
func PrintAgentInfo(w io.Writer, agents []AgentInfo) {
	if len(agents) == 0 {
		return
	}
	fmt.Fprintln(w, "JVMTI agents:")
	for _, a := range agents {
		kind := "dynamic"
		if a.Static {
			kind = "static"
		}
		state := "loaded"
		if a.Initialized {
			state = "initialized"
		}
		fmt.Fprintf(w, "%s path:%s, %s, %s", a.Name, a.Path, kind, state)
		if a.Options != "" {
			fmt.Fprintf(w, ", options:%s", a.Options)
		}
		fmt.Fprintln(w)
	}
}
